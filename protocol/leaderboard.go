package protocol

type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
	Title string `json:"title"`
}

type Leaderboard struct {
	Items       []LeaderboardEntry `json:"items"`
	GeneratedAt int64              `json:"generated_at"` // Unix ms (optional, for cache/debug)
}

// Catalog view for strategy pickers.
type StrategyInfo struct {
	Kind          string  `json:"kind"`
	Name          string  `json:"name"`
	Desc          string  `json:"desc"`
	SuccessChance float64 `json:"success_chance"`
}

type Strategies struct {
	Items []StrategyInfo `json:"items"`
}
