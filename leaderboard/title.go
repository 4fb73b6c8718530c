package leaderboard

// Title is a display tier for a score. It is never persisted.
func Title(score int64) string {
	switch {
	case score >= 70_000_000:
		return "Planetary Guardian"
	case score >= 60_000_000:
		return "Admiral"
	case score >= 50_000_000:
		return "Commander"
	case score >= 35_000_000:
		return "Captain"
	case score >= 20_000_000:
		return "Lieutenant"
	case score >= 10_000_000:
		return "Ensign"
	default:
		return "Cadet"
	}
}
