package challenge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"impactx/simulator"
	"impactx/strategy"
)

type spySim struct {
	mu     sync.Mutex
	calls  []simulator.Request
	result simulator.Result
	err    error
	gate   chan struct{}
}

func (s *spySim) Simulate(ctx context.Context, req simulator.Request) (simulator.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return simulator.Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func (s *spySim) Calls() []simulator.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]simulator.Request(nil), s.calls...)
}

func TestTrialKineticSuccess(t *testing.T) {
	r := &Resolver{Scenario: DefaultScenario(), Rand: FixedDraw(0.5)}
	ok, req, err := r.Trial(strategy.Kinetic)
	if err != nil {
		t.Fatalf("Trial: %v", err)
	}
	if !ok {
		t.Fatal("0.5 < 0.7 should succeed")
	}
	if req.Speed != 30 || req.Size != 2500 {
		t.Fatalf("got speed=%v size=%v, want 30 and 2500", req.Speed, req.Size)
	}
	if req.Angle != 45 || req.Lat != 34.0522 || req.Lng != -118.2437 {
		t.Fatalf("angle or coordinates modified: %+v", req)
	}
}

func TestTrialNuclearFailureUsesBaseline(t *testing.T) {
	r := &Resolver{Scenario: DefaultScenario(), Rand: FixedDraw(0.99)}
	ok, req, err := r.Trial(strategy.Nuclear)
	if err != nil {
		t.Fatalf("Trial: %v", err)
	}
	if ok {
		t.Fatal("0.99 >= 0.95 should fail")
	}
	if req.Speed != 35 || req.Size != 2500 {
		t.Fatalf("got speed=%v size=%v, want unmodified 35 and 2500", req.Speed, req.Size)
	}
}

func TestTrialBoundaryDrawFails(t *testing.T) {
	r := &Resolver{Scenario: DefaultScenario(), Rand: FixedDraw(0.7)}
	if ok, _, _ := r.Trial(strategy.Kinetic); ok {
		t.Fatal("draw equal to success chance must fail")
	}
}

func TestTrialClampsSpeedAndSize(t *testing.T) {
	sc := DefaultScenario()
	sc.SpeedKmS = 8
	sc.SizeM = 300
	r := &Resolver{Scenario: sc, Rand: FixedDraw(0)}
	_, req, _ := r.Trial(strategy.Nuclear)
	if req.Speed != 5 || req.Size != 10 {
		t.Fatalf("got speed=%v size=%v, want 5 and 10", req.Speed, req.Size)
	}
}

func TestTrialUnknownStrategy(t *testing.T) {
	r := &Resolver{Scenario: DefaultScenario(), Rand: FixedDraw(0)}
	if _, _, err := r.Trial("laser"); !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Fatalf("got %v, want ErrUnknownStrategy", err)
	}
}

func TestResolveSuccessScore(t *testing.T) {
	sim := &spySim{result: simulator.Result{BlastRadius: 123.456, AffectedPopulation: 30_000_000}}
	r := &Resolver{Scenario: DefaultScenario(), Simulator: sim, Rand: FixedDraw(0.5)}
	out, err := r.Resolve(context.Background(), strategy.Kinetic)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !out.Succeeded || out.Score != 70_000_000 {
		t.Fatalf("got %+v, want success with 70,000,000", out)
	}
	if !strings.Contains(out.Message, "123.46 km") || !strings.Contains(out.Message, "70,000,000") {
		t.Fatalf("message %q missing figures", out.Message)
	}
}

func TestResolveFailureScoresZeroWhateverTheSimulatorSays(t *testing.T) {
	sim := &spySim{result: simulator.Result{BlastRadius: 1, AffectedPopulation: 1}}
	r := &Resolver{Scenario: DefaultScenario(), Simulator: sim, Rand: FixedDraw(0.99)}
	out, _ := r.Resolve(context.Background(), strategy.Nuclear)
	if out.Succeeded || out.Score != 0 {
		t.Fatalf("got %+v", out)
	}
	if !strings.HasPrefix(out.Message, "Strategy failed.") {
		t.Fatalf("message %q", out.Message)
	}
}

func TestResolveSimulatorErrorRecovered(t *testing.T) {
	sim := &spySim{err: simulator.ErrUnavailable}
	r := &Resolver{Scenario: DefaultScenario(), Simulator: sim, Rand: FixedDraw(0.1)}
	out, err := r.Resolve(context.Background(), strategy.Kinetic)
	if err != nil {
		t.Fatalf("simulator failure must not propagate: %v", err)
	}
	if out.Succeeded || out.Score != 0 || out.Message != "Simulation error occurred." {
		t.Fatalf("got %+v", out)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	for _, affected := range []int64{-1, 0, 1, 99_999_999, 100_000_000, 100_000_001, 5_000_000_000} {
		for _, ok := range []bool{true, false} {
			s := Score(ok, affected)
			if s < 0 {
				t.Fatalf("Score(%v, %d) = %d", ok, affected, s)
			}
			if !ok && s != 0 {
				t.Fatalf("failed defense scored %d", s)
			}
		}
	}
	if got := Score(true, 30_000_000); got != 70_000_000 {
		t.Fatalf("got %d, want 70000000", got)
	}
	if got := Score(true, 0); got != Baseline {
		t.Fatalf("got %d, want %d", got, Baseline)
	}
}

func TestNarrativeGroupsThousands(t *testing.T) {
	cases := []struct {
		draw     float64
		affected int64
		want     string
	}{
		{0.1, 98_766_000, "Estimated lives saved: 1,234,000."},
		{0.1, 99_999_001, "Estimated lives saved: 999."},
		{0.99, 12_345_678, "affected population 12,345,678."},
		{0.99, 0, "affected population 0."},
	}
	for _, tc := range cases {
		sim := &spySim{result: simulator.Result{BlastRadius: 10, AffectedPopulation: tc.affected}}
		r := &Resolver{Scenario: DefaultScenario(), Simulator: sim, Rand: FixedDraw(tc.draw)}
		out, err := r.Resolve(context.Background(), strategy.Kinetic)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !strings.HasSuffix(out.Message, tc.want) {
			t.Errorf("got %q, want suffix %q", out.Message, tc.want)
		}
	}
}
