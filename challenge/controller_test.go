package challenge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"impactx/countdown"
	"impactx/leaderboard"
	"impactx/simulator"
	"impactx/strategy"
)

type notification struct {
	ev Event
	st State
}

type harness struct {
	t      *testing.T
	c      *Controller
	clock  *countdown.ManualClock
	sim    *spySim
	events chan notification
	cancel context.CancelFunc
}

func newHarness(t *testing.T, draw float64, sim *spySim, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  countdown.NewManualClock(time.Unix(0, 0)),
		sim:    sim,
		events: make(chan notification, 256),
	}
	n := 0
	cfg := Config{
		Scenario:  DefaultScenario(),
		Clock:     h.clock,
		Simulator: sim,
		Rand:      FixedDraw(draw),
		Observer: ObserverFunc(func(ev Event, st State) {
			h.events <- notification{ev, st}
		}),
		NewID: func() string { n++; return fmt.Sprintf("session-%d", n) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.c = NewController(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.c.Done()
	})
	h.waitFor(EventStarted)
	return h
}

func (h *harness) waitFor(ev Event) State {
	h.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-h.events:
			if n.ev == ev {
				return n.st
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for %s", ev)
		}
	}
}

func (h *harness) state() State {
	h.t.Helper()
	st, err := h.c.State(context.Background())
	if err != nil {
		h.t.Fatalf("State: %v", err)
	}
	return st
}

func TestControllerCommitWithoutSelection(t *testing.T) {
	h := newHarness(t, 0.5, &spySim{}, nil)
	err := h.c.Commit(context.Background())
	if !errors.Is(err, ErrNoStrategySelected) {
		t.Fatalf("got %v, want ErrNoStrategySelected", err)
	}
	if st := h.state(); st.Status != Selecting {
		t.Fatalf("got status %s, want selecting", st.Status)
	}
}

func TestControllerKineticSuccess(t *testing.T) {
	sim := &spySim{result: simulator.Result{BlastRadius: 210.5, AffectedPopulation: 30_000_000}}
	h := newHarness(t, 0.5, sim, nil)
	ctx := context.Background()

	if err := h.c.Select(ctx, strategy.Kinetic); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := h.c.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	st := h.waitFor(EventResolved)

	if st.Status != Resolved || st.Outcome == nil {
		t.Fatalf("unexpected state %+v", st)
	}
	if !st.Outcome.Succeeded || st.Outcome.Score != 70_000_000 {
		t.Fatalf("got %+v", st.Outcome)
	}
	calls := sim.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d simulator calls, want 1", len(calls))
	}
	if calls[0].Speed != 30 || calls[0].Size != 2500 || calls[0].Angle != 45 {
		t.Fatalf("request %+v", calls[0])
	}
}

func TestControllerNuclearFailure(t *testing.T) {
	sim := &spySim{result: simulator.Result{BlastRadius: 400, AffectedPopulation: 2}}
	h := newHarness(t, 0.99, sim, nil)
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Nuclear)
	if err := h.c.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	st := h.waitFor(EventResolved)
	if st.Outcome.Succeeded || st.Outcome.Score != 0 {
		t.Fatalf("got %+v", st.Outcome)
	}
	if c := sim.Calls()[0]; c.Speed != 35 || c.Size != 2500 {
		t.Fatalf("failed defense must send the baseline threat, got %+v", c)
	}
}

func TestControllerSimulatorFailureStillResolves(t *testing.T) {
	recorded := make(chan State, 1)
	sim := &spySim{err: fmt.Errorf("%w: connection refused", simulator.ErrUnavailable)}
	h := newHarness(t, 0.1, sim, func(cfg *Config) {
		cfg.Recorder = recorderFunc(func(ctx context.Context, st State) { recorded <- st })
	})
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Kinetic)
	_ = h.c.Commit(ctx)
	st := h.waitFor(EventResolved)
	if st.Outcome.Succeeded || st.Outcome.Score != 0 {
		t.Fatalf("got %+v", st.Outcome)
	}
	select {
	case <-recorded:
		t.Fatal("zero score must not reach the leaderboard")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestControllerTimeoutSkipsSimulator(t *testing.T) {
	sim := &spySim{}
	h := newHarness(t, 0.5, sim, func(cfg *Config) { cfg.Countdown = 3 })
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Gravity)
	for i := 0; i < 3; i++ {
		if !h.clock.Tick() {
			t.Fatalf("tick %d not delivered", i+1)
		}
	}
	st := h.state()
	if st.Status != Resolved || st.TimeRemaining != 0 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Outcome.Succeeded || st.Outcome.Score != 0 || !st.Outcome.TimedOut {
		t.Fatalf("unexpected outcome %+v", st.Outcome)
	}
	if n := len(sim.Calls()); n != 0 {
		t.Fatalf("simulator called %d times on timeout", n)
	}
	if h.clock.Tick() {
		t.Fatal("tick delivered after expiry")
	}

	if err := h.c.Select(ctx, strategy.Kinetic); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("select after timeout: got %v", err)
	}
	if err := h.c.Commit(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("commit after timeout: got %v", err)
	}
}

func TestControllerTicksCountDown(t *testing.T) {
	h := newHarness(t, 0.5, &spySim{}, nil)
	h.clock.Tick()
	h.clock.Tick()
	if got := h.waitFor(EventTick).TimeRemaining; got != 59 {
		t.Fatalf("first tick got %d, want 59", got)
	}
	if got := h.state().TimeRemaining; got != 58 {
		t.Fatalf("got %d, want 58", got)
	}
}

func TestControllerCommitStopsTimerAndLocksSession(t *testing.T) {
	sim := &spySim{gate: make(chan struct{}), result: simulator.Result{AffectedPopulation: 10}}
	h := newHarness(t, 0.5, sim, func(cfg *Config) { cfg.Countdown = 1 })
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Kinetic)
	if err := h.c.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if st := h.waitFor(EventCommitted); st.Status != Committed {
		t.Fatalf("got %s, want committed", st.Status)
	}

	// The one remaining tick would have expired the session.
	if h.clock.Tick() {
		t.Fatal("tick delivered after commit")
	}
	if err := h.c.Select(ctx, strategy.Nuclear); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("select while committed: got %v", err)
	}
	if err := h.c.Commit(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("commit while committed: got %v", err)
	}
	if st := h.state(); st.Status != Committed || st.Outcome != nil {
		t.Fatalf("state changed while awaiting simulator: %+v", st)
	}

	close(sim.gate)
	st := h.waitFor(EventResolved)
	if st.Outcome.TimedOut || !st.Outcome.Succeeded {
		t.Fatalf("got %+v", st.Outcome)
	}
}

func TestControllerReselectionWins(t *testing.T) {
	sim := &spySim{result: simulator.Result{AffectedPopulation: 1}}
	h := newHarness(t, 0.5, sim, nil)
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Gravity)
	_ = h.c.Select(ctx, strategy.Nuclear)
	_ = h.c.Commit(ctx)
	st := h.waitFor(EventResolved)
	if st.Outcome.Strategy != strategy.Nuclear {
		t.Fatalf("got %s, want nuclear", st.Outcome.Strategy)
	}
	if c := sim.Calls()[0]; c.Speed != 25 || c.Size != 2000 {
		t.Fatalf("request %+v, want nuclear modifiers", c)
	}
}

func TestControllerSelectUnknown(t *testing.T) {
	h := newHarness(t, 0.5, &spySim{}, nil)
	err := h.c.Select(context.Background(), "laser")
	if Code(err) != CodeUnknownStrategy {
		t.Fatalf("got %v", err)
	}
}

func TestControllerNewSessionDiscardsInFlightResolution(t *testing.T) {
	sim := &spySim{gate: make(chan struct{}), result: simulator.Result{AffectedPopulation: 1}}
	h := newHarness(t, 0.5, sim, nil)
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Kinetic)
	_ = h.c.Commit(ctx)
	old := h.waitFor(EventCommitted)

	fresh, err := h.c.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if fresh.SessionID == old.SessionID {
		t.Fatal("new session reused the old id")
	}
	if fresh.Status != Selecting || fresh.TimeRemaining != 60 || fresh.Selected != "" {
		t.Fatalf("new session carried state: %+v", fresh)
	}

	// The abandoned call returns once its context is cancelled; its result
	// must not land on the new session.
	time.Sleep(50 * time.Millisecond)
	if st := h.state(); st.Status != Selecting || st.Outcome != nil {
		t.Fatalf("stale resolution applied: %+v", st)
	}

	// Only the new session's ticker is live.
	if h.clock.Live() != 1 {
		t.Fatalf("got %d live tickers, want 1", h.clock.Live())
	}
}

func TestControllerRecordsPositiveScores(t *testing.T) {
	board := leaderboard.New(leaderboard.NewMemoryStore())
	recorded := make(chan []leaderboard.Entry, 1)
	sim := &spySim{result: simulator.Result{BlastRadius: 90, AffectedPopulation: 30_000_000}}
	h := newHarness(t, 0.5, sim, func(cfg *Config) {
		cfg.Recorder = recorderFunc(func(ctx context.Context, st State) {
			names := leaderboard.NameFunc(func(context.Context, int64) (string, error) { return "Ada", nil })
			entries, _, err := board.Record(ctx, names, st.Outcome.Score)
			if err != nil {
				t.Errorf("Record: %v", err)
			}
			recorded <- entries
		})
	})
	ctx := context.Background()

	_ = h.c.Select(ctx, strategy.Kinetic)
	_ = h.c.Commit(ctx)

	select {
	case entries := <-recorded:
		if len(entries) != 1 || entries[0] != (leaderboard.Entry{Name: "Ada", Score: 70_000_000}) {
			t.Fatalf("got %+v", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("score never recorded")
	}
}

func TestControllerStopped(t *testing.T) {
	h := newHarness(t, 0.5, &spySim{}, nil)
	h.cancel()
	<-h.c.Done()
	if err := h.c.Select(context.Background(), strategy.Kinetic); !errors.Is(err, ErrStopped) {
		t.Fatalf("got %v, want ErrStopped", err)
	}
	if h.clock.Live() != 0 {
		t.Fatal("timer still live after shutdown")
	}
}

// Whatever order commit and the final tick arrive in, exactly one of the
// two terminal paths runs.
func TestControllerCommitRacesExpiry(t *testing.T) {
	for i := 0; i < 50; i++ {
		sim := &spySim{result: simulator.Result{AffectedPopulation: 1}}
		h := newHarness(t, 0.5, sim, func(cfg *Config) { cfg.Countdown = 1 })
		ctx := context.Background()
		_ = h.c.Select(ctx, strategy.Kinetic)

		commitErr := make(chan error, 1)
		go func() { commitErr <- h.c.Commit(ctx) }()
		ticked := h.clock.Tick()
		err := <-commitErr

		st := h.waitFor(EventResolved)
		switch {
		case err == nil:
			if st.Outcome.TimedOut || len(sim.Calls()) != 1 {
				t.Fatalf("iteration %d: commit won but outcome %+v, calls %d", i, st.Outcome, len(sim.Calls()))
			}
		case errors.Is(err, ErrInvalidTransition):
			if !ticked || !st.Outcome.TimedOut || len(sim.Calls()) != 0 {
				t.Fatalf("iteration %d: expiry won but outcome %+v, calls %d", i, st.Outcome, len(sim.Calls()))
			}
		default:
			t.Fatalf("iteration %d: unexpected commit error %v", i, err)
		}
		h.cancel()
		<-h.c.Done()
	}
}

type recorderFunc func(ctx context.Context, st State)

func (f recorderFunc) Record(ctx context.Context, st State) { f(ctx, st) }
