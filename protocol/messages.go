package protocol

import "encoding/json"

// Envelope
type MsgEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message types. The same string goes in MsgEnvelope.Type.
const (
	// C -> S
	TypeSelectStrategy = "SelectStrategy"
	TypeCommit         = "Commit"
	TypeNewChallenge   = "NewChallenge"
	TypeGetState       = "GetState"
	TypeGetLeaderboard = "GetLeaderboard"
	TypeSubmitName     = "SubmitName"

	// S -> C
	TypeSession        = "Session"
	TypeChallengeState = "ChallengeState"
	TypeTick           = "Tick"
	TypeOutcome        = "Outcome"
	TypeNamePrompt     = "NamePrompt"
	TypeLeaderboard    = "Leaderboard"
	TypeError          = "Error"
)

// ================= C -> S =================

type SelectStrategy struct {
	Strategy string `json:"strategy"` // wire kind or display name
}

type Commit struct{}

// Discards the current challenge and starts over.
type NewChallenge struct{}

type GetState struct{}

// SessionID names the prompt being answered. It may be left empty while
// only one prompt is open.
type SubmitName struct {
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name"`
}

// ================= S -> C =================

// Session carries the token a client presents to resume after reconnecting.
type Session struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type ChallengeState struct {
	SessionID     string   `json:"session_id"`
	Status        string   `json:"status"` // selecting | committed | resolved
	TimeRemaining int      `json:"time_remaining"`
	Selected      string   `json:"selected,omitempty"`
	Outcome       *Outcome `json:"outcome,omitempty"`
}

type Tick struct {
	SessionID string `json:"session_id"`
	Remaining int    `json:"remaining"`
}

type Outcome struct {
	SessionID          string  `json:"session_id"`
	Strategy           string  `json:"strategy,omitempty"`
	Succeeded          bool    `json:"succeeded"`
	TimedOut           bool    `json:"timed_out,omitempty"`
	BlastRadiusKm      float64 `json:"blast_radius_km"`
	AffectedPopulation int64   `json:"affected_population"`
	Score              int64   `json:"score"`
	Message            string  `json:"message"`
}

// Asks the player for a leaderboard name. Answer with SubmitName.
type NamePrompt struct {
	SessionID string `json:"session_id"`
	Score     int64  `json:"score"`
	TimeoutMs int64  `json:"timeout_ms"`
}

type ErrorMsg struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Encode wraps v in an envelope of the given type.
func Encode(typ string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(MsgEnvelope{Type: typ, Data: b})
}
