package service

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/fleetsync/internal/domain"
	"github.com/fleetflow/fleetsync/internal/events"
	"github.com/fleetflow/fleetsync/internal/repository"
)

func newTestFleetService(t *testing.T) (*FleetService, *[]domain.FleetEvent) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "fleet.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewFleetRepository(db)
	require.NoError(t, repo.Init())

	broadcaster := events.NewBroadcaster(0, logger)
	published := &[]domain.FleetEvent{}
	broadcaster.Subscribe(func(e domain.FleetEvent) {
		*published = append(*published, e)
	})

	return NewFleetService(repo, broadcaster, logger), published
}

func createTestVehicle(t *testing.T, s *FleetService, status domain.VehicleStatus) domain.Vehicle {
	t.Helper()
	vehicle, err := s.CreateVehicle(CreateVehicleInput{
		Name:         "Van-01",
		Model:        "Sprinter",
		LicensePlate: "TT-" + uuid.NewString(),
		MaxLoad:      500,
		Region:       "East",
		Status:       status,
		Type:         domain.VehicleTypeVan,
	})
	require.NoError(t, err)
	return vehicle
}

func createTestDriver(t *testing.T, s *FleetService, status domain.DriverStatus, expiry time.Time) domain.Driver {
	t.Helper()
	driver, err := s.CreateDriver(CreateDriverInput{
		Name:          "Test Driver",
		LicenseNumber: "DL-" + uuid.NewString(),
		LicenseExpiry: expiry,
		LicenseClass:  "Van",
		Region:        "East",
		Status:        status,
	})
	require.NoError(t, err)
	return driver
}

func TestCreateTripDispatchSideEffects(t *testing.T) {
	s, published := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)
	driver := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(1, 0, 0))

	trip, err := s.CreateTrip(CreateTripInput{
		Reference:   "TRIP-1",
		Origin:      "A",
		Destination: "B",
		CargoWeight: 100,
		DistanceKm:  40,
		VehicleID:   vehicle.ID,
		DriverID:    driver.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripDispatched, trip.Status)

	// Машина и водитель заняты рейсом.
	gotVehicle, err := s.repo.GetVehicle(vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleOnTrip, gotVehicle.Status)

	gotDriver, err := s.repo.GetDriver(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DriverOnTrip, gotDriver.Status)

	require.Len(t, *published, 1)
	event := (*published)[0]
	assert.Equal(t, domain.EventTripDispatched, event.Type)
	assert.Equal(t, trip.ID, event.Data["tripId"])
}

func TestCreateTripValidation(t *testing.T) {
	s, _ := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)
	driver := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(1, 0, 0))

	base := CreateTripInput{
		Reference:   "TRIP-2",
		Origin:      "A",
		Destination: "B",
		CargoWeight: 100,
		VehicleID:   vehicle.ID,
		DriverID:    driver.ID,
	}

	t.Run("cargo exceeds capacity", func(t *testing.T) {
		in := base
		in.CargoWeight = 9000
		_, err := s.CreateTrip(in)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("expired license", func(t *testing.T) {
		expired := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(0, 0, -1))
		in := base
		in.DriverID = expired.ID
		_, err := s.CreateTrip(in)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("vehicle not available", func(t *testing.T) {
		busy := createTestVehicle(t, s, domain.VehicleInShop)
		in := base
		in.VehicleID = busy.ID
		_, err := s.CreateTrip(in)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		in := base
		in.VehicleID = "missing"
		_, err := s.CreateTrip(in)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCompleteTripReleasesVehicleAndDriver(t *testing.T) {
	s, published := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)
	driver := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(1, 0, 0))

	trip, err := s.CreateTrip(CreateTripInput{
		Reference:   "TRIP-3",
		Origin:      "A",
		Destination: "B",
		CargoWeight: 100,
		DistanceKm:  40,
		VehicleID:   vehicle.ID,
		DriverID:    driver.ID,
	})
	require.NoError(t, err)

	completed, err := s.UpdateTripStatus(trip.ID, domain.TripCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	gotVehicle, err := s.repo.GetVehicle(vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleAvailable, gotVehicle.Status)
	assert.Equal(t, vehicle.Odometer+40, gotVehicle.Odometer)

	gotDriver, err := s.repo.GetDriver(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DriverOnDuty, gotDriver.Status)

	require.Len(t, *published, 2)
	assert.Equal(t, domain.EventTripCompleted, (*published)[1].Type)
}

func TestCancelTripKeepsOdometer(t *testing.T) {
	s, _ := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)
	driver := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(1, 0, 0))

	trip, err := s.CreateTrip(CreateTripInput{
		Reference:   "TRIP-4",
		Origin:      "A",
		Destination: "B",
		CargoWeight: 100,
		DistanceKm:  40,
		VehicleID:   vehicle.ID,
		DriverID:    driver.ID,
	})
	require.NoError(t, err)

	_, err = s.UpdateTripStatus(trip.ID, domain.TripCancelled)
	require.NoError(t, err)

	gotVehicle, err := s.repo.GetVehicle(vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleAvailable, gotVehicle.Status)
	assert.Equal(t, vehicle.Odometer, gotVehicle.Odometer)
}

func TestLogMaintenanceMovesVehicleToShop(t *testing.T) {
	s, published := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)

	log, err := s.LogMaintenance(LogMaintenanceInput{
		VehicleID:   vehicle.ID,
		Description: "Oil change",
		Cost:        120,
		ServicedAt:  time.Now(),
	})
	require.NoError(t, err)

	gotVehicle, err := s.repo.GetVehicle(vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleInShop, gotVehicle.Status)

	require.Len(t, *published, 1)
	assert.Equal(t, domain.EventMaintenanceLogged, (*published)[0].Type)
	assert.Equal(t, log.ID, (*published)[0].Data["maintenanceId"])

	// Закрытие записи возвращает машину в строй.
	_, err = s.ResolveMaintenance(log.ID)
	require.NoError(t, err)
	gotVehicle, err = s.repo.GetVehicle(vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleAvailable, gotVehicle.Status)
}

func TestUpdateVehicleStatusPublishesEvent(t *testing.T) {
	s, published := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)

	_, err := s.UpdateVehicle(UpdateVehicleInput{
		ID:     vehicle.ID,
		Status: domain.VehicleOutOfService,
		Reason: "engine failure",
	})
	require.NoError(t, err)

	require.Len(t, *published, 1)
	event := (*published)[0]
	assert.Equal(t, domain.EventVehicleStatus, event.Type)
	assert.Equal(t, vehicle.ID, event.Data["vehicleId"])
	assert.Equal(t, string(domain.VehicleOutOfService), event.Data["status"])

	// Повторная установка того же статуса события не публикует.
	_, err = s.UpdateVehicle(UpdateVehicleInput{ID: vehicle.ID, Status: domain.VehicleOutOfService})
	require.NoError(t, err)
	assert.Len(t, *published, 1)
}

func TestSweepExpiredLicenses(t *testing.T) {
	s, published := newTestFleetService(t)
	expired := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(0, 0, -10))
	valid := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(1, 0, 0))

	s.SweepExpiredLicenses()

	gotExpired, err := s.repo.GetDriver(expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DriverOffDuty, gotExpired.Status)

	gotValid, err := s.repo.GetDriver(valid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DriverOnDuty, gotValid.Status)

	require.Len(t, *published, 1)
	event := (*published)[0]
	assert.Equal(t, domain.EventDriverStatus, event.Type)
	assert.Equal(t, "license-expired", event.Data["reason"])
}

func TestAnalyticsSummary(t *testing.T) {
	s, _ := newTestFleetService(t)
	vehicle := createTestVehicle(t, s, domain.VehicleAvailable)
	driver := createTestDriver(t, s, domain.DriverOnDuty, time.Now().AddDate(1, 0, 0))

	trip, err := s.CreateTrip(CreateTripInput{
		Reference:   "TRIP-5",
		Origin:      "A",
		Destination: "B",
		CargoWeight: 100,
		DistanceKm:  100,
		Revenue:     500,
		VehicleID:   vehicle.ID,
		DriverID:    driver.ID,
	})
	require.NoError(t, err)
	_, err = s.UpdateTripStatus(trip.ID, domain.TripCompleted)
	require.NoError(t, err)

	_, err = s.RecordExpense(RecordExpenseInput{
		VehicleID:   vehicle.ID,
		TripID:      trip.ID,
		Type:        domain.ExpenseFuel,
		Liters:      20,
		Cost:        50,
		ExpenseDate: time.Now(),
	})
	require.NoError(t, err)

	summary, err := s.Analytics()
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ActiveFleet)
	assert.InDelta(t, 5.0, summary.FuelEfficiency, 0.001)
	require.Len(t, summary.VehicleROI, 1)
	assert.InDelta(t, 50.0, summary.VehicleROI[0].OperationalCost, 0.001)
}
