package countdown

import "time"

type state int

const (
	idle state = iota
	running
	expired
	cancelled
)

// Timer is a one-shot countdown stepped by its owner. It never spawns a
// goroutine: the owner selects on C() and calls Step for every value it
// receives, so Step and Cancel always run on the same goroutine and a
// cancelled timer can never deliver another tick or expire.
type Timer struct {
	clock     Clock
	ticker    Ticker
	state     state
	remaining int

	onTick   func(remaining int)
	onExpire func()
}

func New(clock Clock) *Timer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Timer{clock: clock}
}

// Start begins a countdown of seconds ticks, one per second. A timer can
// only be started once.
func (t *Timer) Start(seconds int, onTick func(remaining int), onExpire func()) {
	if t.state != idle {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	t.remaining = seconds
	t.onTick = onTick
	t.onExpire = onExpire
	t.ticker = t.clock.NewTicker(time.Second)
	t.state = running
}

// C is the channel the owner selects on. It is nil once the timer is no
// longer running; a nil channel is never ready in a select.
func (t *Timer) C() <-chan time.Time {
	if t.state != running || t.ticker == nil {
		return nil
	}
	return t.ticker.C()
}

// Step consumes one tick. At zero it fires onExpire exactly once and stops.
func (t *Timer) Step() {
	if t.state != running {
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
	// onTick may have cancelled us.
	if t.state != running {
		return
	}
	if t.remaining == 0 {
		t.stop(expired)
		if t.onExpire != nil {
			t.onExpire()
		}
	}
}

// Cancel stops the countdown. Safe to call repeatedly and after expiry.
func (t *Timer) Cancel() {
	switch t.state {
	case running:
		t.stop(cancelled)
	case idle:
		t.state = cancelled
	}
}

func (t *Timer) stop(s state) {
	t.state = s
	if t.ticker != nil {
		t.ticker.Stop()
	}
}

func (t *Timer) Remaining() int { return t.remaining }
func (t *Timer) Running() bool  { return t.state == running }
func (t *Timer) Expired() bool  { return t.state == expired }
