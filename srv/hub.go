package srv

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"impactx/auth"
	"impactx/challenge"
	"impactx/countdown"
	"impactx/leaderboard"
	"impactx/protocol"
	"impactx/simulator"
	"impactx/strategy"
)

// cmdTimeout bounds a single controller round trip from the reader.
const cmdTimeout = 5 * time.Second

type HubConfig struct {
	Scenario    challenge.Scenario
	Countdown   int
	Simulator   simulator.Simulator
	Board       *leaderboard.Board
	Auth        *auth.Auth
	Clock       countdown.Clock
	NewRand     func() challenge.Random // nil: each controller seeds its own
	NameTimeout time.Duration
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	gone chan struct{} // closed when the reader exits
}

type Hub struct {
	cfg HubConfig

	mu      sync.Mutex
	clients map[*client]struct{}
	players map[string]*player

	now func() time.Time
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.NameTimeout <= 0 {
		cfg.NameTimeout = 30 * time.Second
	}
	if cfg.Simulator == nil {
		cfg.Simulator = simulator.Local{}
	}
	return &Hub{
		cfg:     cfg,
		clients: make(map[*client]struct{}),
		players: make(map[string]*player),
		now:     time.Now,
	}
}

// Run prunes abandoned sessions until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(protocol.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-ticker.C:
			h.Prune()
		}
	}
}

// Prune stops controllers whose client is gone and that either resolved or
// outlived the resume grace period.
func (h *Hub) Prune() int {
	now := h.now()
	var stale []*player

	h.mu.Lock()
	for id, p := range h.players {
		if p.abandoned(now) {
			delete(h.players, id)
			stale = append(stale, p)
		}
	}
	h.mu.Unlock()

	for _, p := range stale {
		p.stop()
		log.Printf("HUB: pruned session %s", p.id)
	}
	return len(stale)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	players := h.players
	h.players = make(map[string]*player)
	h.mu.Unlock()
	for _, p := range players {
		p.stop()
	}
}

// Sessions reports how many controllers the hub is holding.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.players)
}

// HandleWS serves one connection. A valid resume token reattaches the
// client to its detached session; otherwise a new session starts.
func (h *Hub) HandleWS(conn *websocket.Conn, token string) {
	c := &client{
		conn: conn,
		send: make(chan []byte, protocol.SendBuffer),
		gone: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writer()

	p := h.resume(token)
	resumed := p != nil
	if !resumed {
		p = h.newPlayer()
	}
	if old := p.attach(c); old != nil {
		log.Printf("HUB: session %s taken over by a new connection", p.id)
		_ = old.conn.Close()
	}

	tok, err := h.cfg.Auth.IssueSession(p.id)
	if err != nil {
		log.Printf("HUB: sign token for %s: %v", p.id, err)
	}
	sendJSON(c, protocol.TypeSession, protocol.Session{SessionID: p.id, Token: tok})

	if resumed {
		log.Printf("HUB: session %s resumed", p.id)
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		if st, err := p.ctrl.State(ctx); err == nil {
			sendJSON(c, protocol.TypeChallengeState, stateMsg(st))
		}
		cancel()
	} else {
		go p.ctrl.Run(p.ctx)
	}

	c.reader(h, p)
}

func (h *Hub) resume(token string) *player {
	if token == "" {
		return nil
	}
	id, err := h.cfg.Auth.ParseSession(token)
	if err != nil {
		log.Printf("HUB: resume rejected: %v", err)
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.players[id]
}

func (h *Hub) newPlayer() *player {
	p := newPlayer(h)
	h.mu.Lock()
	h.players[p.id] = p
	h.mu.Unlock()
	return p
}

func (c *client) reader(h *Hub, p *player) {
	defer func() {
		close(c.gone)
		_ = c.conn.Close()
		p.detach(c, h.now())
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("HUB: session %s read error: %v", p.id, err)
			}
			return
		}
		var env protocol.MsgEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			sendError(c, "", "malformed message")
			continue
		}
		h.dispatch(c, p, env)
	}
}

func (h *Hub) dispatch(c *client, p *player, env protocol.MsgEnvelope) {
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	switch env.Type {
	case protocol.TypeSelectStrategy:
		var msg protocol.SelectStrategy
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			sendError(c, "", "bad SelectStrategy payload")
			return
		}
		kind, err := strategy.Parse(msg.Strategy)
		if err != nil {
			sendError(c, challenge.Code(err), err.Error())
			return
		}
		if err := p.ctrl.Select(ctx, kind); err != nil {
			sendError(c, challenge.Code(err), err.Error())
			return
		}
		if st, err := p.ctrl.State(ctx); err == nil {
			sendJSON(c, protocol.TypeChallengeState, stateMsg(st))
		}

	case protocol.TypeCommit:
		// Commit and resolution are reported through the observer.
		if err := p.ctrl.Commit(ctx); err != nil {
			sendError(c, challenge.Code(err), err.Error())
		}

	case protocol.TypeNewChallenge:
		if _, err := p.ctrl.NewSession(ctx); err != nil {
			sendError(c, challenge.Code(err), err.Error())
		}

	case protocol.TypeGetState:
		st, err := p.ctrl.State(ctx)
		if err != nil {
			sendError(c, challenge.Code(err), err.Error())
			return
		}
		sendJSON(c, protocol.TypeChallengeState, stateMsg(st))

	case protocol.TypeGetLeaderboard:
		sendJSON(c, protocol.TypeLeaderboard, buildLeaderboard(h.cfg.Board.Load()))

	case protocol.TypeSubmitName:
		var msg protocol.SubmitName
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			sendError(c, "", "bad SubmitName payload")
			return
		}
		if !p.submitName(msg.SessionID, msg.Name) {
			sendError(c, "", "no name prompt pending")
		}

	default:
		sendError(c, "", "Unknown message type: "+env.Type)
	}
}

// broadcastLeaderboard pushes the board to every connected client.
func (h *Hub) broadcastLeaderboard(entries []leaderboard.Entry) {
	lb := buildLeaderboard(entries)
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()
	for _, c := range targets {
		sendJSON(c, protocol.TypeLeaderboard, lb)
	}
}

func (c *client) writer() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.gone:
			return
		}
	}
}

// sendJSON never blocks; a client that stops reading loses messages.
func sendJSON(c *client, typ string, v any) {
	out, err := protocol.Encode(typ, v)
	if err != nil {
		log.Printf("HUB: encode %s: %v", typ, err)
		return
	}
	select {
	case c.send <- out:
	default:
	}
}

func sendError(c *client, code, msg string) {
	sendJSON(c, protocol.TypeError, protocol.ErrorMsg{Code: code, Message: msg})
}
