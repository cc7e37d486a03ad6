package service

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/fleetflow/fleetsync/internal/domain"
	"github.com/fleetflow/fleetsync/internal/events"
	"github.com/fleetflow/fleetsync/internal/repository"
)

// ErrInvalid помечает ошибки валидации входных данных мутаций.
var ErrInvalid = errors.New("invalid input")

// FleetService — бизнес-логика сервера: мутации сущностей автопарка
// с валидацией, побочными эффектами по статусам и публикацией событий.
type FleetService struct {
	repo        *repository.FleetRepository
	broadcaster *events.Broadcaster
	logger      *slog.Logger
	cron        *cron.Cron
	now         func() time.Time
}

// NewFleetService создаёт сервис поверх репозитория и брокера событий.
func NewFleetService(repo *repository.FleetRepository, b *events.Broadcaster, logger *slog.Logger) *FleetService {
	return &FleetService{
		repo:        repo,
		broadcaster: b,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateVehicleInput — поля формы создания машины.
type CreateVehicleInput struct {
	Name            string               `json:"name"`
	Model           string               `json:"model"`
	LicensePlate    string               `json:"licensePlate"`
	MaxLoad         float64              `json:"maxLoad"`
	Odometer        float64              `json:"odometer"`
	AcquisitionCost float64              `json:"acquisitionCost"`
	Region          string               `json:"region"`
	Status          domain.VehicleStatus `json:"status"`
	Type            domain.VehicleType   `json:"type"`
}

// CreateVehicle валидирует вход и сохраняет новую машину.
func (s *FleetService) CreateVehicle(in CreateVehicleInput) (domain.Vehicle, error) {
	if in.Status == "" {
		in.Status = domain.VehicleAvailable
	}
	if in.Type == "" {
		in.Type = domain.VehicleTypeVan
	}
	if in.Name == "" || in.Model == "" || in.LicensePlate == "" || in.Region == "" {
		return domain.Vehicle{}, fmt.Errorf("%w: missing required fields", ErrInvalid)
	}
	if !domain.ValidVehicleStatus(in.Status) || !domain.ValidVehicleType(in.Type) {
		return domain.Vehicle{}, fmt.Errorf("%w: invalid vehicle status or type", ErrInvalid)
	}
	if in.MaxLoad <= 0 {
		return domain.Vehicle{}, fmt.Errorf("%w: max load must be greater than 0", ErrInvalid)
	}

	vehicle := domain.Vehicle{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Model:           in.Model,
		LicensePlate:    in.LicensePlate,
		MaxLoad:         in.MaxLoad,
		Odometer:        in.Odometer,
		AcquisitionCost: in.AcquisitionCost,
		Region:          in.Region,
		Status:          in.Status,
		Type:            in.Type,
		CreatedAt:       s.now(),
	}
	if err := s.repo.CreateVehicle(vehicle); err != nil {
		return domain.Vehicle{}, err
	}
	return vehicle, nil
}

// UpdateVehicleInput — частичное обновление машины.
type UpdateVehicleInput struct {
	ID       string               `json:"id"`
	Status   domain.VehicleStatus `json:"status,omitempty"`
	Odometer *float64             `json:"odometer,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

// UpdateVehicle меняет статус и/или одометр машины.
// Смена статуса публикует событие vehicle:status.
func (s *FleetService) UpdateVehicle(in UpdateVehicleInput) (domain.Vehicle, error) {
	if in.ID == "" {
		return domain.Vehicle{}, fmt.Errorf("%w: vehicle id is required", ErrInvalid)
	}
	vehicle, err := s.repo.GetVehicle(in.ID)
	if err != nil {
		return domain.Vehicle{}, err
	}

	statusChanged := false
	if in.Status != "" {
		if !domain.ValidVehicleStatus(in.Status) {
			return domain.Vehicle{}, fmt.Errorf("%w: invalid vehicle status", ErrInvalid)
		}
		statusChanged = vehicle.Status != in.Status
		vehicle.Status = in.Status
	}
	if in.Odometer != nil {
		if *in.Odometer < 0 {
			return domain.Vehicle{}, fmt.Errorf("%w: invalid odometer value", ErrInvalid)
		}
		vehicle.Odometer = *in.Odometer
	}

	if err := s.repo.UpdateVehicle(vehicle); err != nil {
		return domain.Vehicle{}, err
	}
	if statusChanged {
		s.broadcaster.Publish(domain.EventVehicleStatus, map[string]any{
			"vehicleId": vehicle.ID,
			"status":    string(vehicle.Status),
			"reason":    in.Reason,
		})
	}
	return vehicle, nil
}

// CreateDriverInput — поля формы создания водителя.
type CreateDriverInput struct {
	Name               string              `json:"name"`
	LicenseNumber      string              `json:"licenseNumber"`
	LicenseExpiry      time.Time           `json:"licenseExpiry"`
	LicenseClass       string              `json:"licenseClass"`
	Region             string              `json:"region"`
	Status             domain.DriverStatus `json:"status"`
	SafetyScore        float64             `json:"safetyScore"`
	TripCompletionRate float64             `json:"tripCompletionRate"`
}

// CreateDriver валидирует вход и сохраняет нового водителя.
func (s *FleetService) CreateDriver(in CreateDriverInput) (domain.Driver, error) {
	if in.Status == "" {
		in.Status = domain.DriverOnDuty
	}
	if in.Name == "" || in.LicenseNumber == "" || in.LicenseClass == "" || in.Region == "" {
		return domain.Driver{}, fmt.Errorf("%w: missing required fields", ErrInvalid)
	}
	if !domain.ValidDriverStatus(in.Status) {
		return domain.Driver{}, fmt.Errorf("%w: invalid driver status", ErrInvalid)
	}
	if in.LicenseExpiry.IsZero() {
		return domain.Driver{}, fmt.Errorf("%w: invalid license expiry date", ErrInvalid)
	}

	driver := domain.Driver{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		LicenseNumber:      in.LicenseNumber,
		LicenseExpiry:      in.LicenseExpiry,
		LicenseClass:       in.LicenseClass,
		Status:             in.Status,
		SafetyScore:        in.SafetyScore,
		TripCompletionRate: in.TripCompletionRate,
		Region:             in.Region,
		CreatedAt:          s.now(),
	}
	if err := s.repo.CreateDriver(driver); err != nil {
		return domain.Driver{}, err
	}
	return driver, nil
}

// UpdateDriverStatus меняет статус водителя и публикует driver:status.
func (s *FleetService) UpdateDriverStatus(id string, status domain.DriverStatus, reason string) (domain.Driver, error) {
	if id == "" {
		return domain.Driver{}, fmt.Errorf("%w: driver id is required", ErrInvalid)
	}
	if !domain.ValidDriverStatus(status) {
		return domain.Driver{}, fmt.Errorf("%w: invalid driver status", ErrInvalid)
	}
	driver, err := s.repo.GetDriver(id)
	if err != nil {
		return domain.Driver{}, err
	}
	if driver.Status == status {
		return driver, nil
	}
	if err := s.repo.UpdateDriverStatus(id, status); err != nil {
		return domain.Driver{}, err
	}
	driver.Status = status
	s.broadcaster.Publish(domain.EventDriverStatus, map[string]any{
		"driverId": driver.ID,
		"status":   string(status),
		"reason":   reason,
	})
	return driver, nil
}

// CreateTripInput — поля формы создания рейса.
type CreateTripInput struct {
	Reference   string            `json:"reference"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	CargoWeight float64           `json:"cargoWeight"`
	DistanceKm  float64           `json:"distanceKm"`
	Revenue     float64           `json:"revenue"`
	VehicleID   string            `json:"vehicleId"`
	DriverID    string            `json:"driverId"`
	Status      domain.TripStatus `json:"status"`
}

// CreateTrip проверяет грузоподъёмность, срок лицензии и доступность,
// сохраняет рейс и при диспетчеризации занимает машину и водителя.
func (s *FleetService) CreateTrip(in CreateTripInput) (domain.Trip, error) {
	if in.Status == "" {
		in.Status = domain.TripDispatched
	}
	if in.Reference == "" || in.Origin == "" || in.Destination == "" || in.VehicleID == "" || in.DriverID == "" {
		return domain.Trip{}, fmt.Errorf("%w: missing required fields", ErrInvalid)
	}
	if !domain.ValidTripStatus(in.Status) {
		return domain.Trip{}, fmt.Errorf("%w: invalid trip status", ErrInvalid)
	}
	if in.CargoWeight <= 0 {
		return domain.Trip{}, fmt.Errorf("%w: cargo weight must be greater than 0", ErrInvalid)
	}

	vehicle, err := s.repo.GetVehicle(in.VehicleID)
	if err != nil {
		return domain.Trip{}, err
	}
	driver, err := s.repo.GetDriver(in.DriverID)
	if err != nil {
		return domain.Trip{}, err
	}

	if in.CargoWeight > vehicle.MaxLoad {
		return domain.Trip{}, fmt.Errorf("%w: cargo exceeds vehicle capacity", ErrInvalid)
	}
	if driver.LicenseExpiry.Before(s.now()) {
		return domain.Trip{}, fmt.Errorf("%w: driver license is expired", ErrInvalid)
	}
	if in.Status == domain.TripDispatched {
		if vehicle.Status != domain.VehicleAvailable {
			return domain.Trip{}, fmt.Errorf("%w: vehicle is not available", ErrInvalid)
		}
		if driver.Status != domain.DriverOnDuty {
			return domain.Trip{}, fmt.Errorf("%w: driver is not available", ErrInvalid)
		}
	}

	trip := domain.Trip{
		ID:          uuid.NewString(),
		Reference:   in.Reference,
		Origin:      in.Origin,
		Destination: in.Destination,
		CargoWeight: in.CargoWeight,
		Status:      in.Status,
		DistanceKm:  in.DistanceKm,
		Revenue:     in.Revenue,
		VehicleID:   in.VehicleID,
		DriverID:    in.DriverID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	if in.Status == domain.TripDispatched {
		vehicle.Status = domain.VehicleOnTrip
		if err := s.repo.UpdateVehicle(vehicle); err != nil {
			return domain.Trip{}, err
		}
		if err := s.repo.UpdateDriverStatus(driver.ID, domain.DriverOnTrip); err != nil {
			return domain.Trip{}, err
		}
		s.broadcaster.Publish(domain.EventTripDispatched, map[string]any{
			"tripId":    trip.ID,
			"reference": trip.Reference,
			"vehicleId": trip.VehicleID,
			"driverId":  trip.DriverID,
		})
	}
	return trip, nil
}

// UpdateTripStatus переводит рейс в новый статус. Завершение возвращает
// машину и водителя в строй и накручивает одометр, отмена — без одометра.
func (s *FleetService) UpdateTripStatus(id string, status domain.TripStatus) (domain.Trip, error) {
	if id == "" || !domain.ValidTripStatus(status) {
		return domain.Trip{}, fmt.Errorf("%w: trip id and status are required", ErrInvalid)
	}
	trip, err := s.repo.GetTrip(id)
	if err != nil {
		return domain.Trip{}, err
	}

	trip.Status = status
	if status == domain.TripCompleted {
		completedAt := s.now()
		trip.CompletedAt = &completedAt
	}
	if err := s.repo.UpdateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	if status == domain.TripCompleted || status == domain.TripCancelled {
		vehicle, err := s.repo.GetVehicle(trip.VehicleID)
		if err != nil {
			return domain.Trip{}, err
		}
		vehicle.Status = domain.VehicleAvailable
		if status == domain.TripCompleted {
			vehicle.Odometer += trip.DistanceKm
		}
		if err := s.repo.UpdateVehicle(vehicle); err != nil {
			return domain.Trip{}, err
		}
		if err := s.repo.UpdateDriverStatus(trip.DriverID, domain.DriverOnDuty); err != nil {
			return domain.Trip{}, err
		}
	}

	switch status {
	case domain.TripDispatched:
		s.broadcaster.Publish(domain.EventTripDispatched, map[string]any{
			"tripId": trip.ID, "reference": trip.Reference,
			"vehicleId": trip.VehicleID, "driverId": trip.DriverID,
		})
	case domain.TripCompleted:
		s.broadcaster.Publish(domain.EventTripCompleted, map[string]any{
			"tripId": trip.ID, "reference": trip.Reference,
			"vehicleId": trip.VehicleID, "driverId": trip.DriverID,
		})
	case domain.TripCancelled:
		s.broadcaster.Publish(domain.EventTripCancelled, map[string]any{
			"tripId": trip.ID, "reference": trip.Reference,
			"vehicleId": trip.VehicleID, "driverId": trip.DriverID,
		})
	}
	return trip, nil
}

// LogMaintenanceInput — поля формы записи ТО.
type LogMaintenanceInput struct {
	VehicleID   string    `json:"vehicleId"`
	Description string    `json:"description"`
	Cost        float64   `json:"cost"`
	ServicedAt  time.Time `json:"servicedAt"`
}

// LogMaintenance создаёт запись ТО, ставит машину в ремонт
// и публикует maintenance:logged.
func (s *FleetService) LogMaintenance(in LogMaintenanceInput) (domain.MaintenanceLog, error) {
	if in.VehicleID == "" || in.Description == "" {
		return domain.MaintenanceLog{}, fmt.Errorf("%w: missing required fields", ErrInvalid)
	}
	if in.ServicedAt.IsZero() {
		return domain.MaintenanceLog{}, fmt.Errorf("%w: invalid service date", ErrInvalid)
	}
	vehicle, err := s.repo.GetVehicle(in.VehicleID)
	if err != nil {
		return domain.MaintenanceLog{}, err
	}

	log := domain.MaintenanceLog{
		ID:          uuid.NewString(),
		VehicleID:   in.VehicleID,
		Description: in.Description,
		Cost:        in.Cost,
		ServicedAt:  in.ServicedAt,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateMaintenanceLog(log); err != nil {
		return domain.MaintenanceLog{}, err
	}
	vehicle.Status = domain.VehicleInShop
	if err := s.repo.UpdateVehicle(vehicle); err != nil {
		return domain.MaintenanceLog{}, err
	}

	s.broadcaster.Publish(domain.EventMaintenanceLogged, map[string]any{
		"maintenanceId": log.ID,
		"vehicleId":     log.VehicleID,
		"description":   log.Description,
	})
	return log, nil
}

// ResolveMaintenance закрывает запись ТО и возвращает машину в строй.
func (s *FleetService) ResolveMaintenance(id string) (domain.MaintenanceLog, error) {
	if id == "" {
		return domain.MaintenanceLog{}, fmt.Errorf("%w: maintenance id is required", ErrInvalid)
	}
	log, err := s.repo.ResolveMaintenanceLog(id)
	if err != nil {
		return domain.MaintenanceLog{}, err
	}
	vehicle, err := s.repo.GetVehicle(log.VehicleID)
	if err != nil {
		return domain.MaintenanceLog{}, err
	}
	vehicle.Status = domain.VehicleAvailable
	if err := s.repo.UpdateVehicle(vehicle); err != nil {
		return domain.MaintenanceLog{}, err
	}

	s.broadcaster.Publish(domain.EventMaintenanceLogged, map[string]any{
		"maintenanceId": log.ID,
		"vehicleId":     log.VehicleID,
		"resolved":      true,
	})
	return log, nil
}

// RecordExpenseInput — поля формы расхода.
type RecordExpenseInput struct {
	VehicleID   string             `json:"vehicleId"`
	TripID      string             `json:"tripId"`
	Type        domain.ExpenseType `json:"type"`
	Liters      float64            `json:"liters"`
	Cost        float64            `json:"cost"`
	ExpenseDate time.Time          `json:"expenseDate"`
}

// RecordExpense сохраняет расход и публикует expense:recorded.
func (s *FleetService) RecordExpense(in RecordExpenseInput) (domain.Expense, error) {
	if in.Type == "" {
		in.Type = domain.ExpenseFuel
	}
	if in.VehicleID == "" {
		return domain.Expense{}, fmt.Errorf("%w: missing required fields", ErrInvalid)
	}
	if !domain.ValidExpenseType(in.Type) {
		return domain.Expense{}, fmt.Errorf("%w: invalid expense type", ErrInvalid)
	}
	if in.ExpenseDate.IsZero() {
		return domain.Expense{}, fmt.Errorf("%w: invalid expense date", ErrInvalid)
	}
	if _, err := s.repo.GetVehicle(in.VehicleID); err != nil {
		return domain.Expense{}, err
	}

	expense := domain.Expense{
		ID:          uuid.NewString(),
		VehicleID:   in.VehicleID,
		TripID:      in.TripID,
		Type:        in.Type,
		Liters:      in.Liters,
		Cost:        in.Cost,
		ExpenseDate: in.ExpenseDate,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateExpense(expense); err != nil {
		return domain.Expense{}, err
	}

	s.broadcaster.Publish(domain.EventExpenseRecorded, map[string]any{
		"expenseId": expense.ID,
		"vehicleId": expense.VehicleID,
		"cost":      expense.Cost,
	})
	return expense, nil
}

// StartLicenseSweep запускает ежедневную проверку сроков лицензий:
// водители с истёкшей лицензией снимаются с линии.
func (s *FleetService) StartLicenseSweep() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@daily", s.SweepExpiredLicenses); err != nil {
		return err
	}
	s.cron.Start()
	// Первый проход сразу при старте, не дожидаясь полуночи.
	go s.SweepExpiredLicenses()
	return nil
}

// StopLicenseSweep останавливает планировщик.
func (s *FleetService) StopLicenseSweep() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// SweepExpiredLicenses снимает с линии водителей с истёкшей лицензией.
func (s *FleetService) SweepExpiredLicenses() {
	drivers, err := s.repo.ListDrivers()
	if err != nil {
		s.logger.Error("License sweep failed", "error", err)
		return
	}
	for _, d := range drivers {
		if d.Status == domain.DriverOffDuty || !d.LicenseExpiry.Before(s.now()) {
			continue
		}
		if _, err := s.UpdateDriverStatus(d.ID, domain.DriverOffDuty, "license-expired"); err != nil {
			s.logger.Error("Failed to bench driver with expired license", "driver", d.ID, "error", err)
		}
	}
}
