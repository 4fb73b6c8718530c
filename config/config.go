package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"impactx/challenge"
)

type Config struct {
	Addr         string
	DataDir      string
	SimulatorURL string // empty: in-process estimator
	AdminHash    string
	NameTimeout  time.Duration
	Seed         int64 // 0: seeded from the clock

	Scenario  challenge.Scenario
	Countdown int
}

// file is the optional YAML overlay.
type file struct {
	Scenario  challenge.Scenario `yaml:"scenario"`
	Countdown int                `yaml:"countdown_seconds"`
}

func Default() Config {
	return Config{
		Addr:        ":8080",
		DataDir:     "data",
		NameTimeout: 30 * time.Second,
		Scenario:    challenge.DefaultScenario(),
		Countdown:   challenge.DefaultCountdown,
	}
}

// Load reads .env (if present), the IMPACTX_* environment, and the YAML
// file named by IMPACTX_CONFIG.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("IMPACTX_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("IMPACTX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.SimulatorURL = getenv("IMPACTX_SIMULATOR_URL")
	cfg.AdminHash = getenv("IMPACTX_ADMIN_HASH")

	if v := getenv("IMPACTX_NAME_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("IMPACTX_NAME_TIMEOUT: invalid duration %q", v)
		}
		cfg.NameTimeout = d
	}
	if v := getenv("IMPACTX_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("IMPACTX_SEED: %w", err)
		}
		cfg.Seed = n
	}

	if path := getenv("IMPACTX_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
		log.Printf("CONFIG: loaded %s", path)
	}

	if err := cfg.Scenario.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Countdown <= 0 {
		return Config{}, fmt.Errorf("countdown_seconds must be positive, got %d", cfg.Countdown)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	// Start from current values so omitted keys keep their defaults.
	f := file{Scenario: c.Scenario, Countdown: c.Countdown}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Scenario = f.Scenario
	c.Countdown = f.Countdown
	return nil
}
