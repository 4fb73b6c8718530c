package challenge

import (
	"context"
	"fmt"
	"log"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"impactx/metrics"
	"impactx/simulator"
	"impactx/strategy"
)

// Baseline is the population a perfect defense saves. Scores are measured
// against it and clamped at zero.
const Baseline int64 = 100_000_000

// figures prints counts with thousands separators.
var figures = message.NewPrinter(language.English)

const (
	minSpeedKmS = 5.0
	minSizeM    = 10.0
)

// Random is the uniform [0,1) source behind the deflection trial. A
// *math/rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// FixedDraw always returns the same sample.
type FixedDraw float64

func (f FixedDraw) Float64() float64 { return float64(f) }

type Resolver struct {
	Scenario  Scenario
	Simulator simulator.Simulator
	Rand      Random
}

// Trial draws one sample and builds the request the simulator will see.
// Strategy modifiers only apply when the deflection succeeded.
func (r *Resolver) Trial(kind strategy.Kind) (bool, simulator.Request, error) {
	profile, err := strategy.ProfileOf(kind)
	if err != nil {
		return false, simulator.Request{}, err
	}
	succeeded := r.Rand.Float64() < profile.SuccessChance

	req := r.Scenario.Request()
	if succeeded {
		req.Speed = math.Max(minSpeedKmS, r.Scenario.SpeedKmS+profile.SpeedDelta)
		req.Size = math.Max(minSizeM, r.Scenario.SizeM+profile.SizeDelta)
	}
	return succeeded, req, nil
}

// Complete calls the simulator and scores the result. Simulator failures
// are recovered into a failed outcome with a zero score.
func (r *Resolver) Complete(ctx context.Context, kind strategy.Kind, succeeded bool, req simulator.Request) Outcome {
	res, err := r.Simulator.Simulate(ctx, req)
	if err != nil {
		log.Printf("CHALLENGE: simulator call failed for %s: %v", kind, err)
		metrics.SimulatorFailures.WithLabelValues().Inc()
		return Outcome{
			Strategy: kind,
			Message:  "Simulation error occurred.",
			Impact:   req,
		}
	}

	affected := res.AffectedPopulation
	if affected < 0 {
		affected = 0
	}
	score := Score(succeeded, affected)

	var msg string
	if succeeded {
		msg = fmt.Sprintf("You altered the trajectory! Blast radius reduced to %.2f km. Estimated lives saved: %s.",
			res.BlastRadius, figures.Sprintf("%d", score))
	} else {
		msg = fmt.Sprintf("Strategy failed. Blast radius %.2f km with affected population %s.",
			res.BlastRadius, figures.Sprintf("%d", affected))
	}
	return Outcome{
		Strategy:           kind,
		Succeeded:          succeeded,
		BlastRadiusKm:      res.BlastRadius,
		AffectedPopulation: affected,
		Score:              score,
		Message:            msg,
		Impact:             req,
	}
}

// Resolve runs the trial and the simulator call back to back.
func (r *Resolver) Resolve(ctx context.Context, kind strategy.Kind) (Outcome, error) {
	succeeded, req, err := r.Trial(kind)
	if err != nil {
		return Outcome{}, err
	}
	return r.Complete(ctx, kind, succeeded, req), nil
}

// TimeoutOutcome is the result when the countdown runs out: the threat hits
// unmodified and the simulator is not consulted.
func TimeoutOutcome(sc Scenario) Outcome {
	return Outcome{
		TimedOut: true,
		Message:  "You ran out of time! The asteroid hit with full force.",
		Impact:   sc.Request(),
	}
}

// Score is the number of people saved relative to Baseline, or zero when
// the defense failed.
func Score(succeeded bool, affected int64) int64 {
	if !succeeded {
		return 0
	}
	if affected < 0 {
		affected = 0
	}
	if s := Baseline - affected; s > 0 {
		return s
	}
	return 0
}
