// Package metrics holds the Prometheus counters for the challenge lifecycle.
// They register with the default registry and are scraped through Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChallengesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_started_total",
		Help: "Challenge sessions started.",
	}, nil)

	ChallengeCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_commits_total",
		Help: "Strategies committed, by strategy kind.",
	}, []string{"strategy"})

	ChallengeTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_timeouts_total",
		Help: "Sessions that ran out of time.",
	}, nil)

	ChallengeResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_resolutions_total",
		Help: "Resolved sessions, by result (success, failure, timeout).",
	}, []string{"result"})

	SimulatorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_failures_total",
		Help: "Impact simulator calls that failed and were recovered.",
	}, nil)

	LeaderboardRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaderboard_records_total",
		Help: "Scores written to the leaderboard.",
	}, nil)

	RejectedTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_rejected_total",
		Help: "Player commands refused by the state machine, by operation and error code.",
	}, []string{"op", "code"})
)

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
