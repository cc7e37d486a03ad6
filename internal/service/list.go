package service

import "github.com/fleetflow/fleetsync/internal/domain"

// Чтение коллекций для REST-слоя.

func (s *FleetService) ListVehicles() ([]domain.Vehicle, error) { return s.repo.ListVehicles() }

func (s *FleetService) ListDrivers() ([]domain.Driver, error) { return s.repo.ListDrivers() }

func (s *FleetService) ListTrips() ([]domain.Trip, error) { return s.repo.ListTrips() }

func (s *FleetService) ListMaintenanceLogs() ([]domain.MaintenanceLog, error) {
	return s.repo.ListMaintenanceLogs()
}

func (s *FleetService) ListExpenses() ([]domain.Expense, error) { return s.repo.ListExpenses() }
