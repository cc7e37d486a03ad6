package domain

import "time"

// Статусы и типы сущностей автопарка.
type (
	VehicleStatus string
	VehicleType   string
	DriverStatus  string
	TripStatus    string
	ExpenseType   string
)

const (
	VehicleAvailable    VehicleStatus = "AVAILABLE"
	VehicleOnTrip       VehicleStatus = "ON_TRIP"
	VehicleInShop       VehicleStatus = "IN_SHOP"
	VehicleOutOfService VehicleStatus = "OUT_OF_SERVICE"

	VehicleTypeVan   VehicleType = "VAN"
	VehicleTypeTruck VehicleType = "TRUCK"
	VehicleTypeBike  VehicleType = "BIKE"

	DriverOnDuty  DriverStatus = "ON_DUTY"
	DriverOnTrip  DriverStatus = "ON_TRIP"
	DriverOffDuty DriverStatus = "OFF_DUTY"

	TripDraft      TripStatus = "DRAFT"
	TripDispatched TripStatus = "DISPATCHED"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"

	ExpenseFuel    ExpenseType = "FUEL"
	ExpenseToll    ExpenseType = "TOLL"
	ExpenseParking ExpenseType = "PARKING"
	ExpenseOther   ExpenseType = "OTHER"
)

// ValidVehicleStatus проверяет значение статуса машины.
func ValidVehicleStatus(s VehicleStatus) bool {
	switch s {
	case VehicleAvailable, VehicleOnTrip, VehicleInShop, VehicleOutOfService:
		return true
	}
	return false
}

// ValidVehicleType проверяет тип машины.
func ValidVehicleType(t VehicleType) bool {
	switch t {
	case VehicleTypeVan, VehicleTypeTruck, VehicleTypeBike:
		return true
	}
	return false
}

// ValidDriverStatus проверяет статус водителя.
func ValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverOnDuty, DriverOnTrip, DriverOffDuty:
		return true
	}
	return false
}

// ValidTripStatus проверяет статус рейса.
func ValidTripStatus(s TripStatus) bool {
	switch s {
	case TripDraft, TripDispatched, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// ValidExpenseType проверяет тип расхода.
func ValidExpenseType(t ExpenseType) bool {
	switch t {
	case ExpenseFuel, ExpenseToll, ExpenseParking, ExpenseOther:
		return true
	}
	return false
}

// Vehicle — транспортное средство автопарка.
type Vehicle struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Model           string        `json:"model"`
	LicensePlate    string        `json:"licensePlate"`
	MaxLoad         float64       `json:"maxLoad"`
	Odometer        float64       `json:"odometer"`
	AcquisitionCost float64       `json:"acquisitionCost"`
	Region          string        `json:"region"`
	Status          VehicleStatus `json:"status"`
	Type            VehicleType   `json:"type"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Driver — водитель.
type Driver struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	LicenseNumber      string       `json:"licenseNumber"`
	LicenseExpiry      time.Time    `json:"licenseExpiry"`
	LicenseClass       string       `json:"licenseClass"`
	Status             DriverStatus `json:"status"`
	SafetyScore        float64      `json:"safetyScore"`
	TripCompletionRate float64      `json:"tripCompletionRate"`
	Region             string       `json:"region"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// Trip — рейс с привязкой к машине и водителю.
type Trip struct {
	ID          string     `json:"id"`
	Reference   string     `json:"reference"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	CargoWeight float64    `json:"cargoWeight"`
	Status      TripStatus `json:"status"`
	DistanceKm  float64    `json:"distanceKm"`
	Revenue     float64    `json:"revenue"`
	VehicleID   string     `json:"vehicleId"`
	DriverID    string     `json:"driverId"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MaintenanceLog — запись о техобслуживании машины.
type MaintenanceLog struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicleId"`
	Description string    `json:"description"`
	Cost        float64   `json:"cost"`
	ServicedAt  time.Time `json:"servicedAt"`
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Expense — расход, опционально привязанный к рейсу.
type Expense struct {
	ID          string      `json:"id"`
	VehicleID   string      `json:"vehicleId"`
	TripID      string      `json:"tripId,omitempty"`
	Type        ExpenseType `json:"type"`
	Liters      float64     `json:"liters"`
	Cost        float64     `json:"cost"`
	ExpenseDate time.Time   `json:"expenseDate"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// VehicleROI — строка сводки окупаемости по машине.
type VehicleROI struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Region          string  `json:"region"`
	ROI             float64 `json:"roi"`
	OperationalCost float64 `json:"operationalCost"`
}

// AnalyticsSummary — агрегированная сводка по автопарку.
type AnalyticsSummary struct {
	ActiveFleet       int          `json:"activeFleet"`
	MaintenanceAlerts int          `json:"maintenanceAlerts"`
	UtilizationRate   float64      `json:"utilizationRate"`
	PendingCargo      int          `json:"pendingCargo"`
	FuelEfficiency    float64      `json:"fuelEfficiency"`
	VehicleROI        []VehicleROI `json:"vehicleRoi"`
}
