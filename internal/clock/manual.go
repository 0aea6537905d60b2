package clock

import (
	"sync"
	"time"
)

// Manual — управляемые вручную часы для тестов: время стоит на месте,
// пока его не продвинут Advance. Отложенные вызовы срабатывают синхронно
// внутри Advance, тики доставляются в буферизованный канал без блокировки.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
	timers  []*manualTimer
}

// NewManual создаёт часы, стоящие на отметке start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now возвращает текущее виртуальное время.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTicker регистрирует повторяющийся тик с интервалом d.
func (m *Manual) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTicker{
		interval: d,
		next:     m.now.Add(d),
		ch:       make(chan time.Time, 1),
		owner:    m,
	}
	m.tickers = append(m.tickers, t)
	return t
}

// AfterFunc регистрирует одноразовый вызов fn через d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{
		at:    m.now.Add(d),
		fn:    fn,
		owner: m,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance продвигает время на d, срабатывая все события в порядке их наступления.
// Функции таймеров вызываются синхронно, без удерживаемого мьютекса.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var (
			earliest   time.Time
			dueTicker  *manualTicker
			dueTimer   *manualTimer
			foundEvent bool
		)
		for _, t := range m.tickers {
			if t.stopped || t.next.After(target) {
				continue
			}
			if !foundEvent || t.next.Before(earliest) {
				earliest, dueTicker, dueTimer, foundEvent = t.next, t, nil, true
			}
		}
		for _, t := range m.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if !foundEvent || t.at.Before(earliest) {
				earliest, dueTicker, dueTimer, foundEvent = t.at, nil, t, true
			}
		}
		if !foundEvent {
			m.now = target
			m.mu.Unlock()
			return
		}

		m.now = earliest
		var fn func()
		if dueTicker != nil {
			dueTicker.next = dueTicker.next.Add(dueTicker.interval)
			// Недоставленный тик теряется, как у time.Ticker.
			select {
			case dueTicker.ch <- earliest:
			default:
			}
		} else {
			dueTimer.fired = true
			fn = dueTimer.fn
		}
		m.mu.Unlock()

		if fn != nil {
			fn()
		}
	}
}

type manualTicker struct {
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
	owner    *Manual
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.stopped = true
}

type manualTimer struct {
	at      time.Time
	fn      func()
	fired   bool
	stopped bool
	owner   *Manual
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
