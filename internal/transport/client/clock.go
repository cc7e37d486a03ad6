package client

import "time"

// Clock абстрагирует таймер переподключения, чтобы тесты
// не ждали реального времени.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer — отменяемый отложенный вызов.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
