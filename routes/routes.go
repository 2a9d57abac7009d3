package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opencourt/bracket-engine/handlers"
)

// SetupRoutes регистрирует маршруты движка сеток.
func SetupRoutes(
	router *chi.Mux,
	allowedOrigins []string,
	bracketHandler *handlers.BracketHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/brackets", func(r chi.Router) {
		r.Post("/", bracketHandler.GenerateBracketHandler)
		r.Get("/{bracketID}", bracketHandler.GetBracketHandler)
		r.Get("/{bracketID}/status", bracketHandler.GetBracketStatusHandler)
		r.Get("/{bracketID}/matches", bracketHandler.ListBracketMatchesHandler)
		r.Get("/{bracketID}/standings", bracketHandler.ListBracketStandingsHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetMatchHandler)
		r.Put("/{matchID}/schedule", matchHandler.ScheduleMatchHandler)
		r.Post("/{matchID}/start", matchHandler.StartMatchHandler)
		r.Put("/{matchID}/score", matchHandler.UpdateScoreHandler)
		r.Post("/{matchID}/result", matchHandler.RecordResultHandler)
		r.Post("/{matchID}/walkover", matchHandler.RecordWalkoverHandler)
		r.Post("/{matchID}/retirement", matchHandler.RecordRetirementHandler)
		r.Post("/{matchID}/cancel", matchHandler.CancelMatchHandler)
		r.Post("/{matchID}/postpone", matchHandler.PostponeMatchHandler)
	})

	router.Get("/ws/brackets/{bracketID}", webSocketHandler.ServeWs)
}
