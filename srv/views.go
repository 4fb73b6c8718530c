package srv

import (
	"time"

	"impactx/challenge"
	"impactx/leaderboard"
	"impactx/protocol"
	"impactx/strategy"
)

func stateMsg(st challenge.State) protocol.ChallengeState {
	msg := protocol.ChallengeState{
		SessionID:     st.SessionID,
		Status:        st.Status.String(),
		TimeRemaining: st.TimeRemaining,
		Selected:      string(st.Selected),
	}
	if st.Outcome != nil {
		o := outcomeMsg(st.SessionID, st.Outcome)
		msg.Outcome = &o
	}
	return msg
}

func outcomeMsg(sessionID string, o *challenge.Outcome) protocol.Outcome {
	return protocol.Outcome{
		SessionID:          sessionID,
		Strategy:           string(o.Strategy),
		Succeeded:          o.Succeeded,
		TimedOut:           o.TimedOut,
		BlastRadiusKm:      o.BlastRadiusKm,
		AffectedPopulation: o.AffectedPopulation,
		Score:              o.Score,
		Message:            o.Message,
	}
}

// buildLeaderboard ranks an already ordered snapshot.
func buildLeaderboard(entries []leaderboard.Entry) protocol.Leaderboard {
	items := make([]protocol.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		items = append(items, protocol.LeaderboardEntry{
			Rank:  i + 1,
			Name:  e.Name,
			Score: e.Score,
			Title: leaderboard.Title(e.Score),
		})
	}
	return protocol.Leaderboard{
		Items:       items,
		GeneratedAt: time.Now().UnixMilli(),
	}
}

func strategyList() protocol.Strategies {
	profiles := strategy.Profiles()
	items := make([]protocol.StrategyInfo, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, protocol.StrategyInfo{
			Kind:          string(p.Kind),
			Name:          p.Name,
			Desc:          p.Desc,
			SuccessChance: p.SuccessChance,
		})
	}
	return protocol.Strategies{Items: items}
}
