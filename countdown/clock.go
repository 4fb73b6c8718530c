package countdown

import (
	"sync"
	"time"
)

// Clock creates tickers. Production code uses RealClock; tests drive a
// ManualClock so every tick is delivered on demand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is backed by time.Ticker.
type RealClock struct{}

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// ManualClock hands out tickers whose channel is unbuffered. Tick blocks
// until the owning loop receives the value, so a test knows the tick has
// been consumed before it issues its next command.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ManualTicker
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (m *ManualClock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &ManualTicker{
		period: d,
		c:      make(chan time.Time),
		done:   make(chan struct{}),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Tick advances the clock by one period of the most recent live ticker and
// delivers the tick. It reports false when no live ticker exists, or when
// the ticker is stopped before the tick was received.
func (m *ManualClock) Tick() bool {
	m.mu.Lock()
	var live *ManualTicker
	for i := len(m.tickers) - 1; i >= 0; i-- {
		if !m.tickers[i].stopped() {
			live = m.tickers[i]
			break
		}
	}
	if live == nil {
		m.mu.Unlock()
		return false
	}
	m.now = m.now.Add(live.period)
	now := m.now
	m.mu.Unlock()

	select {
	case live.c <- now:
		return true
	case <-live.done:
		return false
	}
}

// Live reports how many tickers have not been stopped.
func (m *ManualClock) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.stopped() {
			n++
		}
	}
	return n
}

type ManualTicker struct {
	period time.Duration
	c      chan time.Time
	once   sync.Once
	done   chan struct{}
}

func (t *ManualTicker) C() <-chan time.Time { return t.c }

func (t *ManualTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *ManualTicker) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
