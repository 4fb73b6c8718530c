package challenge

import (
	"fmt"
	"strings"

	"impactx/simulator"
	"impactx/strategy"
)

type Status int

const (
	Selecting Status = iota
	Committed
	Resolved
)

func (s Status) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Committed:
		return "committed"
	case Resolved:
		return "resolved"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "selecting":
		*s = Selecting
	case "committed":
		*s = Committed
	case "resolved":
		*s = Resolved
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// Outcome is produced exactly once per session.
type Outcome struct {
	Strategy           strategy.Kind     `json:"strategy,omitempty"`
	Succeeded          bool              `json:"succeeded"`
	TimedOut           bool              `json:"timed_out,omitempty"`
	BlastRadiusKm      float64           `json:"blast_radius_km"`
	AffectedPopulation int64             `json:"affected_population"`
	Score              int64             `json:"score"`
	Message            string            `json:"message"`
	Impact             simulator.Request `json:"impact"`
}

// State is a copy of a session safe to hand to other goroutines.
type State struct {
	SessionID     string        `json:"session_id"`
	Status        Status        `json:"status"`
	TimeRemaining int           `json:"time_remaining"`
	Selected      strategy.Kind `json:"selected,omitempty"`
	Outcome       *Outcome      `json:"outcome,omitempty"`
}

// Session is the mutable unit of play. It is not safe for concurrent use;
// a Controller owns it and touches it from a single goroutine.
type Session struct {
	id        string
	status    Status
	remaining int
	selected  strategy.Kind
	outcome   *Outcome
}

func NewSession(id string, seconds int) *Session {
	return &Session{id: id, status: Selecting, remaining: seconds}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Status() Status { return s.status }

// Select records the chosen strategy, replacing any earlier choice.
func (s *Session) Select(k strategy.Kind) error {
	if s.status != Selecting {
		return invalidTransition("select a strategy", s.status)
	}
	if _, err := strategy.ProfileOf(k); err != nil {
		return err
	}
	s.selected = k
	return nil
}

// BeginCommit locks in the selection and leaves Selecting.
func (s *Session) BeginCommit() (strategy.Kind, error) {
	if s.status != Selecting {
		return "", invalidTransition("commit", s.status)
	}
	if s.selected == "" {
		return "", ErrNoStrategySelected
	}
	s.status = Committed
	return s.selected, nil
}

// Tick mirrors the countdown while the player is still choosing.
func (s *Session) Tick(remaining int) {
	if s.status != Selecting {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	s.remaining = remaining
}

// Expire ends the session on timeout. Only valid while Selecting.
func (s *Session) Expire(o Outcome) error {
	if s.status != Selecting {
		return invalidTransition("expire", s.status)
	}
	s.remaining = 0
	return s.finish(o)
}

// Resolve ends a committed session with the resolver's outcome.
func (s *Session) Resolve(o Outcome) error {
	if s.status != Committed {
		return invalidTransition("resolve", s.status)
	}
	return s.finish(o)
}

func (s *Session) finish(o Outcome) error {
	if o.Score < 0 {
		o.Score = 0
	}
	s.outcome = &o
	s.status = Resolved
	return nil
}

func (s *Session) State() State {
	st := State{
		SessionID:     s.id,
		Status:        s.status,
		TimeRemaining: s.remaining,
		Selected:      s.selected,
	}
	if s.outcome != nil {
		o := *s.outcome
		st.Outcome = &o
	}
	return st
}
