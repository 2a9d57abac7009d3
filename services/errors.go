package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации входных данных: отклоняются синхронно, без
	// изменения состояния.
	ErrValidationFailed     = errors.New("validation failed")
	ErrInvalidBracketType   = errors.New("invalid bracket type")
	ErrInvalidSeedingMethod = errors.New("invalid seeding method")
	ErrInvalidBestOf        = errors.New("best-of setting must be a positive odd number")
	ErrNotEnoughEntrants    = errors.New("not enough entrants to generate a bracket (minimum 2 required)")
	ErrInvalidScore         = errors.New("invalid score")
	ErrCancelReasonRequired = errors.New("cancellation requires a reason")

	// Ошибки предусловий: переход недопустим из текущего состояния.
	ErrMatchInvalidTransition = errors.New("match is not in a state allowing this transition")
	ErrMatchAlreadyTerminal   = errors.New("match already has a terminal outcome")
	ErrMatchSlotsIncomplete   = errors.New("match does not yet have both entrants")
	ErrWinnerNotInMatch       = errors.New("winner is not an entrant of this match")
	ErrRetiringNotInMatch     = errors.New("retiring entrant is not an entrant of this match")
	ErrScheduleConflict       = errors.New("scheduling conflict")
	ErrBracketAlreadyComplete = errors.New("bracket is already complete")

	// Ошибки консистентности: указывают на баг топологии. Логируются как
	// операционные и не должны портить уже записанный результат матча.
	ErrTopologyInconsistent = errors.New("bracket topology inconsistent")

	// Ошибки, специфичные для сущностей
	ErrBracketNotFound = errors.New("bracket not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrEntrantNotFound = errors.New("entrant not found")
	ErrBracketExists   = errors.New("bracket for this category already exists")
)
