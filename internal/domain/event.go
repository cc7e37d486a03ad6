package domain

// EventType задаёт тип доменного события автопарка.
type EventType string

const (
	EventTripDispatched    EventType = "trip:dispatched"
	EventTripCompleted     EventType = "trip:completed"
	EventTripCancelled     EventType = "trip:cancelled"
	EventVehicleStatus     EventType = "vehicle:status"
	EventDriverStatus      EventType = "driver:status"
	EventMaintenanceLogged EventType = "maintenance:logged"
	EventExpenseRecorded   EventType = "expense:recorded"
)

// FleetEvent представляет уведомление об одной доменной мутации.
// Timestamp (epoch в миллисекундах) проставляется брокером в момент публикации.
type FleetEvent struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// Collection — имя логической коллекции ресурсов, снимки которой кэширует клиент.
type Collection string

const (
	CollectionVehicles    Collection = "vehicles"
	CollectionTrips       Collection = "trips"
	CollectionDrivers     Collection = "drivers"
	CollectionMaintenance Collection = "maintenance"
	CollectionExpenses    Collection = "expenses"
	CollectionAnalytics   Collection = "analytics"
)

// Collections перечисляет все известные коллекции.
func Collections() []Collection {
	return []Collection{
		CollectionVehicles,
		CollectionTrips,
		CollectionDrivers,
		CollectionMaintenance,
		CollectionExpenses,
		CollectionAnalytics,
	}
}

// ValidCollection сообщает, известно ли имя коллекции.
func ValidCollection(name Collection) bool {
	for _, c := range Collections() {
		if c == name {
			return true
		}
	}
	return false
}

// AffectedCollections возвращает коллекции, которые клиенту нужно перечитать
// после события данного типа. Соответствует побочным эффектам мутаций:
// диспетчеризация рейса меняет и статус машины, и статус водителя.
func (t EventType) AffectedCollections() []Collection {
	switch t {
	case EventTripDispatched, EventTripCompleted, EventTripCancelled:
		return []Collection{CollectionTrips, CollectionVehicles, CollectionDrivers, CollectionAnalytics}
	case EventVehicleStatus:
		return []Collection{CollectionVehicles, CollectionAnalytics}
	case EventDriverStatus:
		return []Collection{CollectionDrivers}
	case EventMaintenanceLogged:
		return []Collection{CollectionMaintenance, CollectionVehicles, CollectionAnalytics}
	case EventExpenseRecorded:
		return []Collection{CollectionExpenses, CollectionAnalytics}
	default:
		return nil
	}
}
