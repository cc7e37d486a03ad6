package events

import (
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/fleetsync/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := NewBroadcaster(0, testLogger())
	// Не должно паниковать и блокироваться.
	b.Publish(domain.EventTripCompleted, map[string]any{"tripId": "T1"})
}

func TestDeliveryCompleteness(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	var got []domain.FleetEvent
	unsubscribe := b.Subscribe(func(e domain.FleetEvent) {
		got = append(got, e)
	})
	defer unsubscribe()

	before := time.Now().UnixMilli()
	b.Publish(domain.EventTripDispatched, map[string]any{"tripId": "T1"})
	b.Publish(domain.EventTripCompleted, map[string]any{"tripId": "T1"})

	require.Len(t, got, 2)
	assert.Equal(t, domain.EventTripDispatched, got[0].Type)
	assert.Equal(t, domain.EventTripCompleted, got[1].Type)
	assert.Equal(t, "T1", got[0].Data["tripId"])
	assert.GreaterOrEqual(t, got[0].Timestamp, before)
	assert.LessOrEqual(t, got[0].Timestamp, got[1].Timestamp)
}

func TestNoReplay(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	b.Publish(domain.EventVehicleStatus, map[string]any{"vehicleId": "V1"})

	var got []domain.FleetEvent
	unsubscribe := b.Subscribe(func(e domain.FleetEvent) {
		got = append(got, e)
	})
	defer unsubscribe()

	b.Publish(domain.EventDriverStatus, map[string]any{"driverId": "D1"})

	// Подписка не видит событий, опубликованных до её регистрации.
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventDriverStatus, got[0].Type)
}

func TestDeliveryIsolation(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	unsub1 := b.Subscribe(func(domain.FleetEvent) {
		panic("subscriber failure")
	})
	defer unsub1()

	var got []domain.FleetEvent
	unsub2 := b.Subscribe(func(e domain.FleetEvent) {
		got = append(got, e)
	})
	defer unsub2()

	b.Publish(domain.EventExpenseRecorded, map[string]any{"expenseId": "E1"})

	// Паника одного подписчика не мешает доставке остальным.
	require.Len(t, got, 1)
	assert.Equal(t, "E1", got[0].Data["expenseId"])
}

func TestIdempotentUnsubscribe(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	var got int
	unsubA := b.Subscribe(func(domain.FleetEvent) { got++ })
	unsubB := b.Subscribe(func(domain.FleetEvent) {})

	unsubB()
	unsubB() // повторный вызов — no-op

	b.Publish(domain.EventMaintenanceLogged, nil)

	assert.Equal(t, 1, got)
	assert.Equal(t, 1, b.Subscribers())
	unsubA()
	assert.Equal(t, 0, b.Subscribers())
}

func TestSubscriptionLimitIsSoft(t *testing.T) {
	b := NewBroadcaster(1, testLogger())

	var first, second int
	unsub1 := b.Subscribe(func(domain.FleetEvent) { first++ })
	defer unsub1()
	// Сверх предела: регистрация всё равно проходит, отказа нет.
	unsub2 := b.Subscribe(func(domain.FleetEvent) { second++ })
	defer unsub2()

	b.Publish(domain.EventTripCancelled, nil)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestCallbackCanUnsubscribeItself(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	var got int
	var unsubscribe func()
	unsubscribe = b.Subscribe(func(domain.FleetEvent) {
		got++
		unsubscribe()
	})

	// Отписка изнутри собственного callback не блокируется
	// и действует со следующей публикации.
	b.Publish(domain.EventTripDispatched, nil)
	b.Publish(domain.EventTripCompleted, nil)

	assert.Equal(t, 1, got)
	assert.Equal(t, 0, b.Subscribers())
}

func TestCallbackCanSubscribeDuringDelivery(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	var late []domain.FleetEvent
	unsub1 := b.Subscribe(func(domain.FleetEvent) {
		if b.Subscribers() == 1 {
			unsub2 := b.Subscribe(func(e domain.FleetEvent) {
				late = append(late, e)
			})
			t.Cleanup(unsub2)
		}
	})
	defer unsub1()

	b.Publish(domain.EventVehicleStatus, nil)
	b.Publish(domain.EventDriverStatus, nil)

	// Подписка, созданная во время доставки, текущее событие не видит,
	// но получает все последующие.
	require.Len(t, late, 1)
	assert.Equal(t, domain.EventDriverStatus, late[0].Type)
}

func TestTimestampsNeverDecrease(t *testing.T) {
	b := NewBroadcaster(0, testLogger())

	// Часы, идущие назад: метки публикаций всё равно не убывают.
	times := []time.Time{
		time.UnixMilli(2000),
		time.UnixMilli(1000),
		time.UnixMilli(3000),
	}
	i := 0
	b.now = func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	var got []int64
	unsubscribe := b.Subscribe(func(e domain.FleetEvent) {
		got = append(got, e.Timestamp)
	})
	defer unsubscribe()

	for range times {
		b.Publish(domain.EventVehicleStatus, nil)
	}

	require.Equal(t, []int64{2000, 2000, 3000}, got)
}
