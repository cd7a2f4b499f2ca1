package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/telemart-systems/telemart/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.engine, s.registry, s.db, s.store, s.logger)

	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", h.Health)

		// Model declarations
		r.Get("/models", h.ListModels)
		r.Get("/models/{name}", h.GetModel)

		// Builds and run history
		r.Post("/build", h.TriggerBuild)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{runID}", h.GetRun)
		r.Get("/runs/{runID}/models", h.ListRunModels)
		r.Get("/runs/{runID}/checks", h.ListRunChecks)
		r.Get("/runs/{runID}/events", h.ListRunEvents)

		// Mart reads
		r.Get("/channels", h.ListChannels)
		r.Get("/channels/{username}/activity", h.ChannelActivity)
		r.Get("/messages", h.ListMessages)
		r.Get("/detections/top", h.TopDetections)
	})
}
