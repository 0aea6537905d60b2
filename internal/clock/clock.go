// Пакет clock изолирует источник времени: обратные отсчёты и одноразовые
// таймеры берут время только через Clock, чтобы тесты могли продвигать
// виртуальные часы детерминированно.
package clock

import "time"

// Ticker — повторяющийся тик с фиксированным интервалом.
type Ticker interface {
	// C возвращает канал тиков.
	C() <-chan time.Time
	// Stop останавливает тикер; канал не закрывается.
	Stop()
}

// Timer — одноразовый отложенный вызов.
type Timer interface {
	// Stop отменяет вызов; false, если он уже сработал.
	Stop() bool
}

// Clock — способность узнавать время и планировать тики/отложенные вызовы.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, fn func()) Timer
}

// systemClock делегирует стандартному пакету time.
type systemClock struct{}

// System возвращает часы, привязанные к реальному времени процесса.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return &systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

type systemTimer struct {
	t *time.Timer
}

func (s *systemTimer) Stop() bool { return s.t.Stop() }
