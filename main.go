package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"

	"impactx/auth"
	"impactx/challenge"
	"impactx/config"
	"impactx/leaderboard"
	"impactx/simulator"
	"impactx/srv"
)

func main() {
	hashPassword := flag.Bool("hash-password", false, "read a password from stdin and print its bcrypt hash for IMPACTX_ADMIN_HASH")
	flag.Parse()

	if *hashPassword {
		if err := printHash(); err != nil {
			log.Fatalf("SYSTEM: %v", err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("SYSTEM: config: %v", err)
	}

	a, err := auth.NewAuth(cfg.DataDir, cfg.AdminHash)
	if err != nil {
		log.Fatalf("SYSTEM: auth: %v", err)
	}
	store, err := leaderboard.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("SYSTEM: leaderboard store: %v", err)
	}

	var sim simulator.Simulator = simulator.Local{}
	if cfg.SimulatorURL != "" {
		sim = simulator.NewClient(cfg.SimulatorURL, nil)
		log.Printf("SYSTEM: using remote simulator at %s", cfg.SimulatorURL)
	}

	hub := srv.NewHub(srv.HubConfig{
		Scenario:    cfg.Scenario,
		Countdown:   cfg.Countdown,
		Simulator:   sim,
		Board:       leaderboard.New(store),
		Auth:        a,
		NewRand:     randSource(cfg.Seed),
		NameTimeout: cfg.NameTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	s := &http.Server{
		Addr:         cfg.Addr,
		Handler:      hub.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if !a.AdminEnabled() {
		log.Println("SYSTEM: IMPACTX_ADMIN_HASH not set, admin routes disabled")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	log.Println("SYSTEM: server listening on", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// randSource gives each controller its own generator. A non-zero seed makes
// a run reproducible.
func randSource(seed int64) func() challenge.Random {
	if seed == 0 {
		return nil
	}
	var n atomic.Int64
	return func() challenge.Random {
		return rand.New(rand.NewSource(seed + n.Add(1)))
	}
}

func printHash() error {
	var pw string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		pw = string(b)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
