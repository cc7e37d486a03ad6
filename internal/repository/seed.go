package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// Seed заполняет пустую базу демонстрационными данными.
// Если машины уже есть, ничего не делает.
func (repo *FleetRepository) Seed() error {
	count, err := repo.CountVehicles()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	daysAgo := func(days int) time.Time { return now.AddDate(0, 0, -days) }

	vehicles := []domain.Vehicle{
		{ID: uuid.NewString(), Name: "Van-05", Model: "Sprinter 2500", LicensePlate: "FF-1023",
			MaxLoad: 500, Odometer: 18240, AcquisitionCost: 42000, Region: "East",
			Status: domain.VehicleOnTrip, Type: domain.VehicleTypeVan, CreatedAt: now},
		{ID: uuid.NewString(), Name: "Truck-12", Model: "Freightliner M2", LicensePlate: "FF-7831",
			MaxLoad: 4500, Odometer: 65480, AcquisitionCost: 98000, Region: "Central",
			Status: domain.VehicleOnTrip, Type: domain.VehicleTypeTruck, CreatedAt: now},
		{ID: uuid.NewString(), Name: "Bike-07", Model: "CargoPro", LicensePlate: "FF-2201",
			MaxLoad: 80, Odometer: 3240, AcquisitionCost: 1800, Region: "Metro",
			Status: domain.VehicleAvailable, Type: domain.VehicleTypeBike, CreatedAt: now},
		{ID: uuid.NewString(), Name: "Van-11", Model: "Transit 350", LicensePlate: "FF-4419",
			MaxLoad: 750, Odometer: 29120, AcquisitionCost: 47000, Region: "East",
			Status: domain.VehicleInShop, Type: domain.VehicleTypeVan, CreatedAt: now},
		{ID: uuid.NewString(), Name: "Truck-03", Model: "Isuzu NQR", LicensePlate: "FF-3306",
			MaxLoad: 3200, Odometer: 81220, AcquisitionCost: 76000, Region: "West",
			Status: domain.VehicleOutOfService, Type: domain.VehicleTypeTruck, CreatedAt: now},
	}
	for _, v := range vehicles {
		if err := repo.CreateVehicle(v); err != nil {
			return err
		}
	}

	drivers := []domain.Driver{
		{ID: uuid.NewString(), Name: "Alex Monroe", LicenseNumber: "DL-8821", LicenseExpiry: daysAgo(-120),
			LicenseClass: "Van", Status: domain.DriverOnTrip, SafetyScore: 92.5, TripCompletionRate: 96.2,
			Region: "East", CreatedAt: now},
		{ID: uuid.NewString(), Name: "Nia Santos", LicenseNumber: "DL-5520", LicenseExpiry: daysAgo(20),
			LicenseClass: "Truck", Status: domain.DriverOffDuty, SafetyScore: 88.1, TripCompletionRate: 90.4,
			Region: "Central", CreatedAt: now},
		{ID: uuid.NewString(), Name: "Rohan Patel", LicenseNumber: "DL-1093", LicenseExpiry: daysAgo(260),
			LicenseClass: "Bike", Status: domain.DriverOnDuty, SafetyScore: 94.7, TripCompletionRate: 98.1,
			Region: "Metro", CreatedAt: now},
		{ID: uuid.NewString(), Name: "Keisha Ward", LicenseNumber: "DL-6634", LicenseExpiry: daysAgo(-30),
			LicenseClass: "Truck", Status: domain.DriverOnTrip, SafetyScore: 85.2, TripCompletionRate: 89.3,
			Region: "Central", CreatedAt: now},
		{ID: uuid.NewString(), Name: "Tariq Aziz", LicenseNumber: "DL-2290", LicenseExpiry: daysAgo(-210),
			LicenseClass: "Van", Status: domain.DriverOffDuty, SafetyScore: 90.9, TripCompletionRate: 93.0,
			Region: "East", CreatedAt: now},
	}
	for _, d := range drivers {
		if err := repo.CreateDriver(d); err != nil {
			return err
		}
	}

	completedAt := daysAgo(2)
	trips := []domain.Trip{
		{ID: uuid.NewString(), Reference: "TRIP-2045", Origin: "Harbor Depot", Destination: "North Market",
			CargoWeight: 420, Status: domain.TripDispatched, DistanceKm: 38, Revenue: 640,
			VehicleID: vehicles[0].ID, DriverID: drivers[0].ID, CreatedAt: now},
		{ID: uuid.NewString(), Reference: "TRIP-1912", Origin: "Central Hub", Destination: "West Crossdock",
			CargoWeight: 3200, Status: domain.TripDispatched, DistanceKm: 120, Revenue: 1850,
			VehicleID: vehicles[1].ID, DriverID: drivers[3].ID, CreatedAt: now},
		{ID: uuid.NewString(), Reference: "TRIP-2108", Origin: "Metro Dispatch", Destination: "Old Town",
			CargoWeight: 40, Status: domain.TripCompleted, DistanceKm: 16, Revenue: 120,
			VehicleID: vehicles[2].ID, DriverID: drivers[2].ID, CompletedAt: &completedAt, CreatedAt: now},
	}
	for _, t := range trips {
		if err := repo.CreateTrip(t); err != nil {
			return err
		}
	}

	maintenance := domain.MaintenanceLog{
		ID:          uuid.NewString(),
		VehicleID:   vehicles[3].ID,
		Description: "Oil change and brake inspection",
		Cost:        420,
		ServicedAt:  daysAgo(1),
		CreatedAt:   now,
	}
	if err := repo.CreateMaintenanceLog(maintenance); err != nil {
		return err
	}

	expense := domain.Expense{
		ID:          uuid.NewString(),
		VehicleID:   vehicles[2].ID,
		Type:        domain.ExpenseOther,
		Liters:      0,
		Cost:        18,
		ExpenseDate: daysAgo(3),
		CreatedAt:   now,
	}
	return repo.CreateExpense(expense)
}
