package challenge

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"impactx/countdown"
	"impactx/metrics"
	"impactx/simulator"
	"impactx/strategy"
)

const DefaultCountdown = 60

type Event int

const (
	EventStarted Event = iota
	EventTick
	EventCommitted
	EventResolved
)

func (e Event) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventTick:
		return "tick"
	case EventCommitted:
		return "committed"
	case EventResolved:
		return "resolved"
	}
	return "unknown"
}

// Observer is told about every state change. It runs on the controller
// goroutine and must not block.
type Observer interface {
	Notify(ev Event, st State)
}

type ObserverFunc func(ev Event, st State)

func (f ObserverFunc) Notify(ev Event, st State) { f(ev, st) }

// Recorder receives outcomes with a positive score. It is called on its own
// goroutine after the session has resolved.
type Recorder interface {
	Record(ctx context.Context, st State)
}

type Config struct {
	Scenario  Scenario
	Countdown int // seconds; DefaultCountdown when zero
	Clock     countdown.Clock
	Simulator simulator.Simulator
	Rand      Random
	Observer  Observer
	Recorder  Recorder
	NewID     func() string
}

// Controller owns one challenge session at a time and serializes every
// trigger (player commands, countdown ticks, simulator results) through a
// single loop. Whichever trigger the loop handles first while the session
// is Selecting wins; the other then finds the session in another state.
type Controller struct {
	cfg      Config
	resolver *Resolver
	inbox    chan any
	done     chan struct{}

	// owned by the loop goroutine
	runCtx    context.Context
	session   *Session
	timer     *countdown.Timer
	cancelRes context.CancelFunc
	observer  Observer
}

func NewController(cfg Config) *Controller {
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Clock == nil {
		cfg.Clock = countdown.RealClock{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Simulator == nil {
		cfg.Simulator = simulator.Local{}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Controller{
		cfg: cfg,
		resolver: &Resolver{
			Scenario:  cfg.Scenario,
			Simulator: cfg.Simulator,
			Rand:      cfg.Rand,
		},
		inbox:    make(chan any, 16),
		done:     make(chan struct{}),
		observer: cfg.Observer,
	}
}

type (
	selectCmd struct {
		kind  strategy.Kind
		reply chan error
	}
	commitCmd struct {
		reply chan error
	}
	newSessionCmd struct {
		reply chan State
	}
	stateCmd struct {
		reply chan State
	}
	observeCmd struct {
		obs   Observer
		reply chan State
	}
	resolvedMsg struct {
		sessionID string
		outcome   Outcome
	}
)

// Run starts the first session and processes triggers until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	c.runCtx = ctx
	c.startSession()

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return
		case cmd := <-c.inbox:
			c.handle(cmd)
		case <-c.timer.C():
			c.timer.Step()
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) Select(ctx context.Context, k strategy.Kind) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, selectCmd{kind: k, reply: reply}); err != nil {
		return err
	}
	return c.awaitErr(ctx, reply)
}

// Commit locks in the selection. A nil error means resolution has started;
// the outcome arrives through the observer and State.
func (c *Controller) Commit(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, commitCmd{reply: reply}); err != nil {
		return err
	}
	return c.awaitErr(ctx, reply)
}

// NewSession discards the current session, whatever its state, and starts
// a fresh one.
func (c *Controller) NewSession(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := c.send(ctx, newSessionCmd{reply: reply}); err != nil {
		return State{}, err
	}
	return c.awaitState(ctx, reply)
}

func (c *Controller) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := c.send(ctx, stateCmd{reply: reply}); err != nil {
		return State{}, err
	}
	return c.awaitState(ctx, reply)
}

// Observe swaps the observer and returns the current state so the new
// observer starts from a known snapshot. A nil observer detaches.
func (c *Controller) Observe(ctx context.Context, obs Observer) (State, error) {
	reply := make(chan State, 1)
	if err := c.send(ctx, observeCmd{obs: obs, reply: reply}); err != nil {
		return State{}, err
	}
	return c.awaitState(ctx, reply)
}

func (c *Controller) send(ctx context.Context, cmd any) error {
	select {
	case c.inbox <- cmd:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) awaitErr(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) awaitState(ctx context.Context, reply chan State) (State, error) {
	select {
	case st := <-reply:
		return st, nil
	case <-c.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (c *Controller) handle(cmd any) {
	switch m := cmd.(type) {
	case selectCmd:
		err := c.session.Select(m.kind)
		if err != nil {
			metrics.RejectedTransitions.WithLabelValues("select", Code(err)).Inc()
		}
		m.reply <- err
	case commitCmd:
		m.reply <- c.commit()
	case newSessionCmd:
		c.teardown()
		c.startSession()
		m.reply <- c.session.State()
	case stateCmd:
		m.reply <- c.session.State()
	case observeCmd:
		c.observer = m.obs
		m.reply <- c.session.State()
	case resolvedMsg:
		c.finishCommit(m)
	}
}

func (c *Controller) startSession() {
	c.session = NewSession(c.cfg.NewID(), c.cfg.Countdown)
	c.timer = countdown.New(c.cfg.Clock)
	sess := c.session
	c.timer.Start(c.cfg.Countdown,
		func(remaining int) {
			sess.Tick(remaining)
			c.notify(EventTick)
		},
		func() { c.expire(sess) },
	)
	metrics.ChallengesStarted.WithLabelValues().Inc()
	log.Printf("CHALLENGE: session %s started (%ds)", sess.ID(), c.cfg.Countdown)
	c.notify(EventStarted)
}

// teardown stops the timer and abandons any in-flight resolution so a
// discarded session can never be mutated again.
func (c *Controller) teardown() {
	if c.timer != nil {
		c.timer.Cancel()
	}
	if c.cancelRes != nil {
		c.cancelRes()
		c.cancelRes = nil
	}
}

func (c *Controller) expire(sess *Session) {
	if sess != c.session {
		return
	}
	if err := sess.Expire(TimeoutOutcome(c.cfg.Scenario)); err != nil {
		return
	}
	metrics.ChallengeTimeouts.WithLabelValues().Inc()
	metrics.ChallengeResolved.WithLabelValues("timeout").Inc()
	log.Printf("CHALLENGE: session %s timed out", sess.ID())
	c.notify(EventResolved)
}

func (c *Controller) commit() error {
	kind, err := c.session.BeginCommit()
	if err != nil {
		metrics.RejectedTransitions.WithLabelValues("commit", Code(err)).Inc()
		return err
	}
	c.timer.Cancel()
	metrics.ChallengeCommits.WithLabelValues(string(kind)).Inc()

	sessionID := c.session.ID()
	succeeded, req, err := c.resolver.Trial(kind)
	if err != nil {
		// Select validated the kind already; keep the session moving anyway.
		log.Printf("CHALLENGE: session %s trial failed: %v", sessionID, err)
		c.finishCommit(resolvedMsg{sessionID: sessionID, outcome: Outcome{
			Strategy: kind,
			Message:  "Simulation error occurred.",
			Impact:   c.cfg.Scenario.Request(),
		}})
		return nil
	}
	log.Printf("CHALLENGE: session %s committed %s (deflected=%v)", sessionID, kind, succeeded)
	c.notify(EventCommitted)

	ctx, cancel := context.WithCancel(c.runCtx)
	c.cancelRes = cancel
	go func() {
		out := c.resolver.Complete(ctx, kind, succeeded, req)
		select {
		case c.inbox <- resolvedMsg{sessionID: sessionID, outcome: out}:
		case <-c.done:
		}
	}()
	return nil
}

func (c *Controller) finishCommit(m resolvedMsg) {
	if m.sessionID != c.session.ID() {
		return
	}
	if err := c.session.Resolve(m.outcome); err != nil {
		return
	}
	if c.cancelRes != nil {
		c.cancelRes()
		c.cancelRes = nil
	}
	result := "failure"
	if m.outcome.Succeeded {
		result = "success"
	}
	metrics.ChallengeResolved.WithLabelValues(result).Inc()
	log.Printf("CHALLENGE: session %s resolved %s score=%d", m.sessionID, result, m.outcome.Score)
	c.notify(EventResolved)

	if m.outcome.Score > 0 && c.cfg.Recorder != nil {
		st := c.session.State()
		go c.cfg.Recorder.Record(c.runCtx, st)
	}
}

func (c *Controller) notify(ev Event) {
	if c.observer == nil {
		return
	}
	c.observer.Notify(ev, c.session.State())
}
