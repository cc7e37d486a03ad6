package service

import (
	"math"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// Analytics агрегирует сводку по автопарку: загрузка, предупреждения по ТО,
// топливная эффективность и окупаемость каждой машины.
func (s *FleetService) Analytics() (domain.AnalyticsSummary, error) {
	vehicles, err := s.repo.ListVehicles()
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	trips, err := s.repo.ListTrips()
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	expenses, err := s.repo.ListExpenses()
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	logs, err := s.repo.ListMaintenanceLogs()
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}

	summary := domain.AnalyticsSummary{VehicleROI: []domain.VehicleROI{}}

	var totalDistance, totalFuel float64
	for _, t := range trips {
		if t.Status == domain.TripDraft {
			summary.PendingCargo++
		}
		if t.Status == domain.TripCompleted {
			totalDistance += t.DistanceKm
		}
	}
	for _, e := range expenses {
		if e.Type == domain.ExpenseFuel {
			totalFuel += e.Liters
		}
	}
	if totalFuel > 0 {
		summary.FuelEfficiency = round(totalDistance/totalFuel, 2)
	}

	for _, v := range vehicles {
		switch v.Status {
		case domain.VehicleOnTrip:
			summary.ActiveFleet++
		case domain.VehicleInShop:
			summary.MaintenanceAlerts++
		}

		var expenseCost, maintenanceCost, revenue float64
		for _, e := range expenses {
			if e.VehicleID == v.ID {
				expenseCost += e.Cost
			}
		}
		for _, m := range logs {
			if m.VehicleID == v.ID {
				maintenanceCost += m.Cost
			}
		}
		for _, t := range trips {
			if t.VehicleID == v.ID {
				revenue += t.Revenue
			}
		}
		roiBase := v.AcquisitionCost
		if roiBase == 0 {
			roiBase = 1
		}
		summary.VehicleROI = append(summary.VehicleROI, domain.VehicleROI{
			ID:              v.ID,
			Name:            v.Name,
			Region:          v.Region,
			ROI:             round((revenue-(expenseCost+maintenanceCost))/roiBase, 2),
			OperationalCost: round(expenseCost+maintenanceCost, 2),
		})
	}

	if len(vehicles) > 0 {
		summary.UtilizationRate = round(float64(summary.ActiveFleet)/float64(len(vehicles))*100, 1)
	}
	return summary, nil
}

func round(x float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(x*pow) / pow
}
