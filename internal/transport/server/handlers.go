package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/fleetflow/fleetsync/internal/domain"
	"github.com/fleetflow/fleetsync/internal/repository"
	"github.com/fleetflow/fleetsync/internal/service"
)

// FleetHandler — REST-обработчики коллекций автопарка.
// Мутации проходят через FleetService и публикуют события как побочный эффект.
type FleetHandler struct {
	service *service.FleetService
	logger  *slog.Logger
}

// NewFleetHandler создаёт обработчик.
func NewFleetHandler(svc *service.FleetService, logger *slog.Logger) *FleetHandler {
	return &FleetHandler{service: svc, logger: logger}
}

func (h *FleetHandler) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListVehicles()
	h.respond(w, vehicles, err)
}

func (h *FleetHandler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var in service.CreateVehicleInput
	if !h.decode(w, r, &in) {
		return
	}
	vehicle, err := h.service.CreateVehicle(in)
	h.respond(w, vehicle, err)
}

func (h *FleetHandler) patchVehicle(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateVehicleInput
	if !h.decode(w, r, &in) {
		return
	}
	vehicle, err := h.service.UpdateVehicle(in)
	h.respond(w, vehicle, err)
}

func (h *FleetHandler) listDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.service.ListDrivers()
	h.respond(w, drivers, err)
}

func (h *FleetHandler) createDriver(w http.ResponseWriter, r *http.Request) {
	var in service.CreateDriverInput
	if !h.decode(w, r, &in) {
		return
	}
	driver, err := h.service.CreateDriver(in)
	h.respond(w, driver, err)
}

func (h *FleetHandler) patchDriver(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID     string              `json:"id"`
		Status domain.DriverStatus `json:"status"`
		Reason string              `json:"reason"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	driver, err := h.service.UpdateDriverStatus(in.ID, in.Status, in.Reason)
	h.respond(w, driver, err)
}

func (h *FleetHandler) listTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.service.ListTrips()
	h.respond(w, trips, err)
}

func (h *FleetHandler) createTrip(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTripInput
	if !h.decode(w, r, &in) {
		return
	}
	trip, err := h.service.CreateTrip(in)
	h.respond(w, trip, err)
}

func (h *FleetHandler) patchTrip(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID     string            `json:"id"`
		Status domain.TripStatus `json:"status"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	trip, err := h.service.UpdateTripStatus(in.ID, in.Status)
	h.respond(w, trip, err)
}

func (h *FleetHandler) listMaintenance(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListMaintenanceLogs()
	h.respond(w, logs, err)
}

func (h *FleetHandler) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var in service.LogMaintenanceInput
	if !h.decode(w, r, &in) {
		return
	}
	log, err := h.service.LogMaintenance(in)
	h.respond(w, log, err)
}

func (h *FleetHandler) patchMaintenance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID string `json:"id"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	log, err := h.service.ResolveMaintenance(in.ID)
	h.respond(w, log, err)
}

func (h *FleetHandler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListExpenses()
	h.respond(w, expenses, err)
}

func (h *FleetHandler) createExpense(w http.ResponseWriter, r *http.Request) {
	var in service.RecordExpenseInput
	if !h.decode(w, r, &in) {
		return
	}
	expense, err := h.service.RecordExpense(in)
	h.respond(w, expense, err)
}

func (h *FleetHandler) analytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Analytics()
	h.respond(w, summary, err)
}

func (h *FleetHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *FleetHandler) respond(w http.ResponseWriter, payload any, err error) {
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, payload)
	case errors.Is(err, service.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *FleetHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Response encode error", "error", err)
	}
}

func (h *FleetHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
