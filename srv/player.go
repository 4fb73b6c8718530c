package srv

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"impactx/challenge"
	"impactx/leaderboard"
	"impactx/metrics"
	"impactx/protocol"
)

// player binds one challenge controller to whichever connection currently
// holds its resume token.
type player struct {
	id     string
	hub    *Hub
	ctrl   *challenge.Controller
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	client     *client
	detachedAt time.Time
	status     challenge.Status
	prompts    map[string]chan string // open name prompts by session id
}

func newPlayer(h *Hub) *player {
	ctx, cancel := context.WithCancel(context.Background())
	p := &player{
		id:      uuid.NewString(),
		hub:     h,
		ctx:     ctx,
		cancel:  cancel,
		prompts: make(map[string]chan string),
	}
	var rnd challenge.Random
	if h.cfg.NewRand != nil {
		rnd = h.cfg.NewRand()
	}
	p.ctrl = challenge.NewController(challenge.Config{
		Scenario:  h.cfg.Scenario,
		Countdown: h.cfg.Countdown,
		Clock:     h.cfg.Clock,
		Simulator: h.cfg.Simulator,
		Rand:      rnd,
		Observer:  p,
		Recorder:  p,
	})
	return p
}

// attach makes c the live connection and returns the one it replaced.
func (p *player) attach(c *client) *client {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.client
	p.client = c
	p.detachedAt = time.Time{}
	return old
}

func (p *player) detach(c *client, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != c {
		return
	}
	p.client = nil
	p.detachedAt = now
}

func (p *player) attached() *client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

func (p *player) abandoned(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return false
	}
	return p.status == challenge.Resolved || now.Sub(p.detachedAt) > protocol.ResumeGrace
}

func (p *player) stop() {
	p.cancel()
}

// Notify runs on the controller goroutine.
func (p *player) Notify(ev challenge.Event, st challenge.State) {
	p.mu.Lock()
	p.status = st.Status
	c := p.client
	p.mu.Unlock()
	if c == nil {
		return
	}

	switch ev {
	case challenge.EventTick:
		sendJSON(c, protocol.TypeTick, protocol.Tick{SessionID: st.SessionID, Remaining: st.TimeRemaining})
	case challenge.EventResolved:
		sendJSON(c, protocol.TypeChallengeState, stateMsg(st))
		if st.Outcome != nil {
			sendJSON(c, protocol.TypeOutcome, outcomeMsg(st.SessionID, st.Outcome))
		}
	default:
		sendJSON(c, protocol.TypeChallengeState, stateMsg(st))
	}
}

// Record asks the attached player for a name and enters the score.
func (p *player) Record(ctx context.Context, st challenge.State) {
	if st.Outcome == nil {
		return
	}
	names := leaderboard.NameFunc(func(ctx context.Context, score int64) (string, error) {
		return p.requestName(ctx, st.SessionID, score)
	})
	entries, changed, err := p.hub.cfg.Board.Record(ctx, names, st.Outcome.Score)
	if err != nil {
		log.Printf("HUB: session %s leaderboard write failed: %v", p.id, err)
		return
	}
	if !changed {
		return
	}
	metrics.LeaderboardRecords.WithLabelValues().Inc()
	p.hub.broadcastLeaderboard(entries)
}

// requestName prompts over the wire for the given session's score. No
// client, a timeout, or a disconnect all yield an empty name.
func (p *player) requestName(ctx context.Context, sessionID string, score int64) (string, error) {
	c := p.attached()
	if c == nil {
		return "", nil
	}

	ch := make(chan string, 1)
	p.mu.Lock()
	p.prompts[sessionID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.prompts[sessionID] == ch {
			delete(p.prompts, sessionID)
		}
		p.mu.Unlock()
	}()

	timeout := p.hub.cfg.NameTimeout
	sendJSON(c, protocol.TypeNamePrompt, protocol.NamePrompt{
		SessionID: sessionID,
		Score:     score,
		TimeoutMs: timeout.Milliseconds(),
	})

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case name := <-ch:
		return name, nil
	case <-c.gone:
		return "", nil
	case <-t.C:
		log.Printf("HUB: session %s name prompt timed out", sessionID)
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// submitName answers the prompt opened for sessionID. An empty id answers
// the only open prompt. It reports false when nothing matched.
func (p *player) submitName(sessionID, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.prompts[sessionID]
	if !ok && sessionID == "" && len(p.prompts) == 1 {
		for _, only := range p.prompts {
			ch, ok = only, true
		}
	}
	if !ok {
		return false
	}
	select {
	case ch <- name:
		return true
	default:
		return false
	}
}
