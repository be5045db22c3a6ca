package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gestia/gestia/internal/api/v1"
	"github.com/gestia/gestia/internal/api/ws"
	"github.com/gestia/gestia/internal/audit"
	"github.com/gestia/gestia/internal/backlog"
	"github.com/gestia/gestia/internal/sprint"
	"github.com/gestia/gestia/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, sprints *sprint.Service, stories *backlog.Service, history *audit.Service) {
	v1.RegisterProjectRoutes(api, store.Projects())
	v1.RegisterSprintRoutes(api, sprints)
	v1.RegisterStoryRoutes(api, stories)
	v1.RegisterHistoryRoutes(api, history)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/activity", hub.ServeActivity)
}
