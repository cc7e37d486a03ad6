package repository

import (
	"database/sql"
	"fmt"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// FleetRepository хранит сущности автопарка в SQLite.
type FleetRepository struct {
	DB *sql.DB
}

// NewFleetRepository создаёт репозиторий поверх открытого подключения.
func NewFleetRepository(db *sql.DB) *FleetRepository {
	return &FleetRepository{DB: db}
}

// Init создаёт таблицы, если их ещё нет.
func (repo *FleetRepository) Init() error {
	query := `
        CREATE TABLE IF NOT EXISTS vehicles (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            model TEXT NOT NULL,
            license_plate TEXT NOT NULL UNIQUE,
            max_load REAL NOT NULL,
            odometer REAL NOT NULL DEFAULT 0,
            acquisition_cost REAL NOT NULL DEFAULT 0,
            region TEXT NOT NULL,
            status TEXT NOT NULL,
            type TEXT NOT NULL,
            created_at DATETIME NOT NULL
        );
        CREATE TABLE IF NOT EXISTS drivers (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            license_number TEXT NOT NULL UNIQUE,
            license_expiry DATETIME NOT NULL,
            license_class TEXT NOT NULL,
            status TEXT NOT NULL,
            safety_score REAL NOT NULL DEFAULT 0,
            trip_completion_rate REAL NOT NULL DEFAULT 0,
            region TEXT NOT NULL,
            created_at DATETIME NOT NULL
        );
        CREATE TABLE IF NOT EXISTS trips (
            id TEXT PRIMARY KEY,
            reference TEXT NOT NULL,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            cargo_weight REAL NOT NULL,
            status TEXT NOT NULL,
            distance_km REAL NOT NULL DEFAULT 0,
            revenue REAL NOT NULL DEFAULT 0,
            vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
            driver_id TEXT NOT NULL REFERENCES drivers(id),
            completed_at DATETIME,
            created_at DATETIME NOT NULL
        );
        CREATE TABLE IF NOT EXISTS maintenance_logs (
            id TEXT PRIMARY KEY,
            vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
            description TEXT NOT NULL,
            cost REAL NOT NULL DEFAULT 0,
            serviced_at DATETIME NOT NULL,
            resolved INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL
        );
        CREATE TABLE IF NOT EXISTS expenses (
            id TEXT PRIMARY KEY,
            vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
            trip_id TEXT,
            type TEXT NOT NULL,
            liters REAL NOT NULL DEFAULT 0,
            cost REAL NOT NULL DEFAULT 0,
            expense_date DATETIME NOT NULL,
            created_at DATETIME NOT NULL
        );
    `
	_, err := repo.DB.Exec(query)
	return err
}

// CreateVehicle сохраняет новую машину.
func (repo *FleetRepository) CreateVehicle(v domain.Vehicle) error {
	query := `INSERT INTO vehicles (id, name, model, license_plate, max_load, odometer,
        acquisition_cost, region, status, type, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := repo.DB.Exec(query, v.ID, v.Name, v.Model, v.LicensePlate, v.MaxLoad,
		v.Odometer, v.AcquisitionCost, v.Region, v.Status, v.Type, v.CreatedAt)
	return err
}

// UpdateVehicle обновляет статус и одометр машины.
func (repo *FleetRepository) UpdateVehicle(v domain.Vehicle) error {
	query := `UPDATE vehicles SET status = ?, odometer = ? WHERE id = ?;`
	res, err := repo.DB.Exec(query, v.Status, v.Odometer, v.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "vehicle", v.ID)
}

// GetVehicle возвращает машину по идентификатору.
func (repo *FleetRepository) GetVehicle(id string) (domain.Vehicle, error) {
	row := repo.DB.QueryRow(`SELECT id, name, model, license_plate, max_load, odometer,
        acquisition_cost, region, status, type, created_at FROM vehicles WHERE id = ?;`, id)
	return scanVehicle(row)
}

// ListVehicles возвращает все машины, новые первыми.
func (repo *FleetRepository) ListVehicles() ([]domain.Vehicle, error) {
	rows, err := repo.DB.Query(`SELECT id, name, model, license_plate, max_load, odometer,
        acquisition_cost, region, status, type, created_at FROM vehicles ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := []domain.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// CreateDriver сохраняет нового водителя.
func (repo *FleetRepository) CreateDriver(d domain.Driver) error {
	query := `INSERT INTO drivers (id, name, license_number, license_expiry, license_class,
        status, safety_score, trip_completion_rate, region, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := repo.DB.Exec(query, d.ID, d.Name, d.LicenseNumber, d.LicenseExpiry,
		d.LicenseClass, d.Status, d.SafetyScore, d.TripCompletionRate, d.Region, d.CreatedAt)
	return err
}

// UpdateDriverStatus меняет статус водителя.
func (repo *FleetRepository) UpdateDriverStatus(id string, status domain.DriverStatus) error {
	res, err := repo.DB.Exec(`UPDATE drivers SET status = ? WHERE id = ?;`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res, "driver", id)
}

// GetDriver возвращает водителя по идентификатору.
func (repo *FleetRepository) GetDriver(id string) (domain.Driver, error) {
	row := repo.DB.QueryRow(`SELECT id, name, license_number, license_expiry, license_class,
        status, safety_score, trip_completion_rate, region, created_at FROM drivers WHERE id = ?;`, id)
	return scanDriver(row)
}

// ListDrivers возвращает всех водителей, новые первыми.
func (repo *FleetRepository) ListDrivers() ([]domain.Driver, error) {
	rows, err := repo.DB.Query(`SELECT id, name, license_number, license_expiry, license_class,
        status, safety_score, trip_completion_rate, region, created_at FROM drivers ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := []domain.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// CreateTrip сохраняет новый рейс.
func (repo *FleetRepository) CreateTrip(t domain.Trip) error {
	query := `INSERT INTO trips (id, reference, origin, destination, cargo_weight, status,
        distance_km, revenue, vehicle_id, driver_id, completed_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := repo.DB.Exec(query, t.ID, t.Reference, t.Origin, t.Destination, t.CargoWeight,
		t.Status, t.DistanceKm, t.Revenue, t.VehicleID, t.DriverID, t.CompletedAt, t.CreatedAt)
	return err
}

// UpdateTrip обновляет статус рейса и время завершения.
func (repo *FleetRepository) UpdateTrip(t domain.Trip) error {
	res, err := repo.DB.Exec(`UPDATE trips SET status = ?, completed_at = ? WHERE id = ?;`,
		t.Status, t.CompletedAt, t.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "trip", t.ID)
}

// GetTrip возвращает рейс по идентификатору.
func (repo *FleetRepository) GetTrip(id string) (domain.Trip, error) {
	row := repo.DB.QueryRow(`SELECT id, reference, origin, destination, cargo_weight, status,
        distance_km, revenue, vehicle_id, driver_id, completed_at, created_at FROM trips WHERE id = ?;`, id)
	return scanTrip(row)
}

// ListTrips возвращает все рейсы, новые первыми.
func (repo *FleetRepository) ListTrips() ([]domain.Trip, error) {
	rows, err := repo.DB.Query(`SELECT id, reference, origin, destination, cargo_weight, status,
        distance_km, revenue, vehicle_id, driver_id, completed_at, created_at FROM trips ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// CreateMaintenanceLog сохраняет запись ТО.
func (repo *FleetRepository) CreateMaintenanceLog(m domain.MaintenanceLog) error {
	query := `INSERT INTO maintenance_logs (id, vehicle_id, description, cost, serviced_at, resolved, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?);`
	_, err := repo.DB.Exec(query, m.ID, m.VehicleID, m.Description, m.Cost, m.ServicedAt, m.Resolved, m.CreatedAt)
	return err
}

// ResolveMaintenanceLog помечает запись ТО завершённой и возвращает её.
func (repo *FleetRepository) ResolveMaintenanceLog(id string) (domain.MaintenanceLog, error) {
	res, err := repo.DB.Exec(`UPDATE maintenance_logs SET resolved = 1 WHERE id = ?;`, id)
	if err != nil {
		return domain.MaintenanceLog{}, err
	}
	if err := requireRow(res, "maintenance log", id); err != nil {
		return domain.MaintenanceLog{}, err
	}
	row := repo.DB.QueryRow(`SELECT id, vehicle_id, description, cost, serviced_at, resolved, created_at
        FROM maintenance_logs WHERE id = ?;`, id)
	return scanMaintenanceLog(row)
}

// ListMaintenanceLogs возвращает записи ТО, свежие первыми.
func (repo *FleetRepository) ListMaintenanceLogs() ([]domain.MaintenanceLog, error) {
	rows, err := repo.DB.Query(`SELECT id, vehicle_id, description, cost, serviced_at, resolved, created_at
        FROM maintenance_logs ORDER BY serviced_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []domain.MaintenanceLog{}
	for rows.Next() {
		m, err := scanMaintenanceLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, m)
	}
	return logs, rows.Err()
}

// CreateExpense сохраняет расход.
func (repo *FleetRepository) CreateExpense(e domain.Expense) error {
	tripID := sql.NullString{String: e.TripID, Valid: e.TripID != ""}
	query := `INSERT INTO expenses (id, vehicle_id, trip_id, type, liters, cost, expense_date, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := repo.DB.Exec(query, e.ID, e.VehicleID, tripID, e.Type, e.Liters, e.Cost, e.ExpenseDate, e.CreatedAt)
	return err
}

// ListExpenses возвращает расходы, свежие первыми.
func (repo *FleetRepository) ListExpenses() ([]domain.Expense, error) {
	rows, err := repo.DB.Query(`SELECT id, vehicle_id, trip_id, type, liters, cost, expense_date, created_at
        FROM expenses ORDER BY expense_date DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// CountVehicles возвращает общее число машин.
func (repo *FleetRepository) CountVehicles() (int, error) {
	var count int
	err := repo.DB.QueryRow(`SELECT COUNT(*) FROM vehicles;`).Scan(&count)
	return count, err
}

// ErrNotFound возвращается, когда сущность с данным идентификатором отсутствует.
var ErrNotFound = sql.ErrNoRows

type rowScanner interface {
	Scan(dest ...any) error
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

func scanVehicle(row rowScanner) (domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(&v.ID, &v.Name, &v.Model, &v.LicensePlate, &v.MaxLoad, &v.Odometer,
		&v.AcquisitionCost, &v.Region, &v.Status, &v.Type, &v.CreatedAt)
	return v, err
}

func scanDriver(row rowScanner) (domain.Driver, error) {
	var d domain.Driver
	err := row.Scan(&d.ID, &d.Name, &d.LicenseNumber, &d.LicenseExpiry, &d.LicenseClass,
		&d.Status, &d.SafetyScore, &d.TripCompletionRate, &d.Region, &d.CreatedAt)
	return d, err
}

func scanTrip(row rowScanner) (domain.Trip, error) {
	var t domain.Trip
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Reference, &t.Origin, &t.Destination, &t.CargoWeight, &t.Status,
		&t.DistanceKm, &t.Revenue, &t.VehicleID, &t.DriverID, &completedAt, &t.CreatedAt)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, err
}

func scanMaintenanceLog(row rowScanner) (domain.MaintenanceLog, error) {
	var m domain.MaintenanceLog
	err := row.Scan(&m.ID, &m.VehicleID, &m.Description, &m.Cost, &m.ServicedAt, &m.Resolved, &m.CreatedAt)
	return m, err
}

func scanExpense(row rowScanner) (domain.Expense, error) {
	var e domain.Expense
	var tripID sql.NullString
	err := row.Scan(&e.ID, &e.VehicleID, &tripID, &e.Type, &e.Liters, &e.Cost, &e.ExpenseDate, &e.CreatedAt)
	e.TripID = tripID.String
	return e, err
}
