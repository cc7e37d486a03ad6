package server

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetflow/fleetsync/internal/events"
	"github.com/fleetflow/fleetsync/internal/service"
)

// SetupRouter настраивает маршруты через chi и возвращает http.Handler.
func SetupRouter(svc *service.FleetService, b *events.Broadcaster, keepAlive time.Duration, logger *slog.Logger) http.Handler {
	fleet := NewFleetHandler(svc, logger)
	sse := NewSSEHandler(b, keepAlive, logger)
	ws := NewWebSocketHandler(b, logger)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", sse.ServeHTTP)

		r.Get("/vehicles", fleet.listVehicles)
		r.Post("/vehicles", fleet.createVehicle)
		r.Patch("/vehicles", fleet.patchVehicle)

		r.Get("/drivers", fleet.listDrivers)
		r.Post("/drivers", fleet.createDriver)
		r.Patch("/drivers", fleet.patchDriver)

		r.Get("/trips", fleet.listTrips)
		r.Post("/trips", fleet.createTrip)
		r.Patch("/trips", fleet.patchTrip)

		r.Get("/maintenance", fleet.listMaintenance)
		r.Post("/maintenance", fleet.createMaintenance)
		r.Patch("/maintenance", fleet.patchMaintenance)

		r.Get("/expenses", fleet.listExpenses)
		r.Post("/expenses", fleet.createExpense)

		r.Get("/analytics", fleet.analytics)
	})
	return r
}
