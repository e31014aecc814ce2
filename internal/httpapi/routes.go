package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/splitword/splitword-server/internal/registry"
	"github.com/splitword/splitword-server/internal/ws"
)

func SetupRoutes(reg *registry.Registry, defaultRounds int, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Post("/rooms", CreateRoom(reg, defaultRounds, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(reg, log))
	return r
}
