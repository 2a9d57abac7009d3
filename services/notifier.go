package services

import (
	"fmt"

	"github.com/opencourt/bracket-engine/brackets"
	"github.com/opencourt/bracket-engine/models"
)

// Notifier — исходящие сигналы движка, fire-and-forget. Доставку
// уведомлений и начисление рейтингов реализуют внешние коллабораторы;
// движок только сигнализирует.
type Notifier interface {
	MatchScheduled(bracketID int, match *models.Match)
	MatchStarted(bracketID int, match *models.Match)
	MatchCompleted(bracketID int, match *models.Match)
	MatchWalkover(bracketID int, match *models.Match)
	MatchRetired(bracketID int, match *models.Match)
	BracketCompleted(bracketID int, championID, runnerUpID *int)
	// TournamentCompleted потребляет коллаборатор жизненного цикла
	// турнира: раздача призов и обновление рейтингов.
	TournamentCompleted(bracketID, categoryID int)
}

// hubNotifier транслирует сигналы в websocket-комнату сетки.
type hubNotifier struct {
	hub *brackets.Hub
}

func NewHubNotifier(hub *brackets.Hub) Notifier {
	return &hubNotifier{hub: hub}
}

func bracketRoom(bracketID int) string {
	return fmt.Sprintf("bracket_%d", bracketID)
}

func (n *hubNotifier) broadcast(bracketID int, eventType string, payload interface{}) {
	room := bracketRoom(bracketID)
	n.hub.BroadcastToRoom(room, brackets.Event{Type: eventType, Payload: payload, RoomID: room})
}

func (n *hubNotifier) MatchScheduled(bracketID int, match *models.Match) {
	n.broadcast(bracketID, "MATCH_SCHEDULED", match)
}

func (n *hubNotifier) MatchStarted(bracketID int, match *models.Match) {
	n.broadcast(bracketID, "MATCH_STARTED", match)
}

func (n *hubNotifier) MatchCompleted(bracketID int, match *models.Match) {
	n.broadcast(bracketID, "MATCH_COMPLETED", match)
}

func (n *hubNotifier) MatchWalkover(bracketID int, match *models.Match) {
	n.broadcast(bracketID, "MATCH_WALKOVER", match)
}

func (n *hubNotifier) MatchRetired(bracketID int, match *models.Match) {
	n.broadcast(bracketID, "MATCH_RETIRED", match)
}

func (n *hubNotifier) BracketCompleted(bracketID int, championID, runnerUpID *int) {
	n.broadcast(bracketID, "BRACKET_COMPLETED", map[string]interface{}{
		"bracket_id":   bracketID,
		"champion_id":  championID,
		"runner_up_id": runnerUpID,
	})
}

func (n *hubNotifier) TournamentCompleted(bracketID, categoryID int) {
	n.broadcast(bracketID, "TOURNAMENT_COMPLETED", map[string]interface{}{
		"bracket_id":  bracketID,
		"category_id": categoryID,
	})
}

// NopNotifier — заглушка для окружений без живой раздачи.
type NopNotifier struct{}

func (NopNotifier) MatchScheduled(int, *models.Match) {}
func (NopNotifier) MatchStarted(int, *models.Match)   {}
func (NopNotifier) MatchCompleted(int, *models.Match) {}
func (NopNotifier) MatchWalkover(int, *models.Match)  {}
func (NopNotifier) MatchRetired(int, *models.Match)   {}
func (NopNotifier) BracketCompleted(int, *int, *int)  {}
func (NopNotifier) TournamentCompleted(int, int)      {}
