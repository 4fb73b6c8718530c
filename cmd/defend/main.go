// Command defend plays one Planetary Defense Challenge in the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"

	"impactx/challenge"
	"impactx/config"
	"impactx/leaderboard"
	"impactx/simulator"
	"impactx/strategy"
)

var errQuit = errors.New("quit")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("SYSTEM: config: %v", err)
	}
	// Keep engine logs out of the player's way.
	if os.Getenv("IMPACTX_VERBOSE") == "" {
		log.SetOutput(io.Discard)
	}

	store, err := leaderboard.NewFileStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "leaderboard:", err)
		os.Exit(1)
	}
	board := leaderboard.New(store)

	var sim simulator.Simulator = simulator.Local{}
	if cfg.SimulatorURL != "" {
		sim = simulator.NewClient(cfg.SimulatorURL, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resolved := make(chan challenge.State, 1)
	ctrl := challenge.NewController(challenge.Config{
		Scenario:  cfg.Scenario,
		Countdown: cfg.Countdown,
		Simulator: sim,
		Observer:  terminalObserver(os.Stdout, resolved),
	})
	go ctrl.Run(ctx)

	fmt.Print(renderBriefing(cfg.Scenario, cfg.Countdown))

	lines := readLines(os.Stdin)
	st, lines, err := play(ctx, ctrl, lines, resolved, os.Stdout)
	if err != nil {
		if !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}
	fmt.Println(renderOutcome(*st.Outcome))

	names := leaderboard.Anonymous
	if term.IsTerminal(int(os.Stdin.Fd())) {
		names = promptName(lines, cfg.NameTimeout, os.Stdout)
	}
	entries, _, err := board.Record(ctx, names, st.Outcome.Score)
	if err != nil {
		fmt.Fprintln(os.Stderr, "leaderboard:", err)
		entries = board.Load()
	}
	fmt.Println(renderLeaderboard(entries))
}

// terminalObserver prints the countdown and hands the resolved state to
// the main goroutine.
func terminalObserver(w io.Writer, resolved chan<- challenge.State) challenge.Observer {
	return challenge.ObserverFunc(func(ev challenge.Event, st challenge.State) {
		switch ev {
		case challenge.EventTick:
			if st.TimeRemaining%10 == 0 || st.TimeRemaining <= 5 {
				fmt.Fprintln(w, dim.Render(fmt.Sprintf("T-minus %d", st.TimeRemaining)))
			}
		case challenge.EventCommitted:
			fmt.Fprintln(w, amber.Render("Deploying "+string(st.Selected)+"..."))
		case challenge.EventResolved:
			select {
			case resolved <- st:
			default:
			}
		}
	})
}

func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- strings.TrimSpace(sc.Text())
		}
	}()
	return out
}

// play feeds typed strategies to the controller until the session
// resolves. It returns the line channel, nil once input is exhausted.
func play(ctx context.Context, ctrl *challenge.Controller, lines <-chan string, resolved <-chan challenge.State, w io.Writer) (challenge.State, <-chan string, error) {
	for {
		select {
		case st := <-resolved:
			return st, lines, nil
		case <-ctx.Done():
			return challenge.State{}, lines, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// Out of input; let the countdown run out.
				lines = nil
				continue
			}
			if line == "" {
				continue
			}
			if strings.EqualFold(line, "quit") {
				return challenge.State{}, lines, errQuit
			}
			kind, err := strategy.Parse(line)
			if err != nil {
				fmt.Fprintln(w, red.Render("Unknown strategy: "+line))
				continue
			}
			if err := ctrl.Select(ctx, kind); err != nil {
				fmt.Fprintln(w, red.Render(err.Error()))
				continue
			}
			if err := ctrl.Commit(ctx); err != nil {
				fmt.Fprintln(w, red.Render(err.Error()))
			}
		}
	}
}

func promptName(lines <-chan string, timeout time.Duration, w io.Writer) leaderboard.NameSource {
	return leaderboard.NameFunc(func(ctx context.Context, score int64) (string, error) {
		if lines == nil {
			return "", nil
		}
		fmt.Fprintf(w, "Score %d! Enter your name for the leaderboard: ", score)
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case name, ok := <-lines:
			if !ok {
				return "", nil
			}
			return name, nil
		case <-t.C:
			fmt.Fprintln(w)
			return "", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}
