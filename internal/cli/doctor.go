package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atlasos/atlas/internal/config"
	"github.com/atlasos/atlas/internal/scheduler"
	"github.com/atlasos/atlas/internal/store"
	"github.com/spf13/cobra"
)

type doctorCheck struct {
	Name    string
	Status  string // PASS, WARN, FAIL
	Message string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run config and setup diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		checks := runDoctorChecks()

		failures := 0
		for _, check := range checks {
			if check.Status == "FAIL" {
				failures++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", check.Status, check.Name, check.Message)
		}
		if failures > 0 {
			return fmt.Errorf("doctor found %d failing check(s)", failures)
		}
		return nil
	},
}

func runDoctorChecks() []doctorCheck {
	var checks []doctorCheck
	add := func(name, status, message string) {
		checks = append(checks, doctorCheck{Name: name, Status: status, Message: message})
	}

	cfg, err := config.Load()
	if err != nil {
		add("config", "FAIL", err.Error())
		return checks
	}
	add("config", "PASS", "loaded")

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		add("data-dir", "FAIL", fmt.Sprintf("%s not writable: %v", cfg.Paths.DataDir, err))
	} else {
		add("data-dir", "PASS", cfg.Paths.DataDir)
	}

	st, err := store.Open(store.Options{Driver: cfg.Store.Driver, Path: cfg.Store.Path, DSN: cfg.Store.DSN})
	if err != nil {
		add("store", "FAIL", err.Error())
	} else {
		st.Close()
		add("store", "PASS", cfg.Store.Driver)
	}

	if hasProviderKey(cfg) {
		add("provider", "PASS", "API key present")
	} else {
		add("provider", "WARN", "no provider API key configured")
	}

	if cfg.Gateway.AuthToken == "" {
		if cfg.Gateway.Host == "127.0.0.1" || cfg.Gateway.Host == "localhost" {
			add("gateway-auth", "WARN", "no auth token (loopback only)")
		} else {
			add("gateway-auth", "FAIL", "no auth token on non-loopback host")
		}
	} else {
		add("gateway-auth", "PASS", "token configured")
	}

	if cfg.Group.Enabled && cfg.Group.KafkaBrokers == "" {
		add("group", "FAIL", "group sync enabled but no Kafka brokers configured")
	} else if cfg.Group.Enabled {
		add("group", "PASS", cfg.Group.KafkaBrokers)
	}

	if cfg.Scheduler.Enabled {
		lockPath := filepath.Join(cfg.Paths.DataDir, "scheduler.lock")
		lock := scheduler.NewFileLock(lockPath)
		if ok, err := lock.TryLock(); err != nil {
			add("scheduler-lock", "FAIL", err.Error())
		} else if !ok {
			add("scheduler-lock", "WARN", "lock held (gateway running?)")
		} else {
			_ = lock.Unlock()
			add("scheduler-lock", "PASS", lockPath)
		}
	}

	return checks
}
