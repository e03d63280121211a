package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"omnisearch/internal/adapter/cache"
	"omnisearch/internal/adapter/engine"
	"omnisearch/internal/domain"
	"omnisearch/internal/infra/config"
	"omnisearch/internal/infra/logger"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	flags, err := parseFlags(os.Args[2:])
	if err != nil {
		return err
	}

	cfg, cfgErr := config.Load(flags.ConfigPath)

	checks := []Check{
		{Name: "Config", Fn: checkConfig(flags.ConfigPath, cfgErr)},
		{Name: "Continuity cache", Fn: checkCache},
		{Name: "Backend registry", Fn: checkRegistry},
		{Name: "Backend init", Fn: checkBackendInit},
		{Name: "Network", Fn: checkNetwork},
	}

	fmt.Println("omnisearch doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  [%s] %s: %s\n", result.Status, result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("         Fix: %s\n", result.Fix)
		}
		if result.Status == StatusFail {
			fail++
		}
	}

	fmt.Println()
	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkConfig(path string, cfgErr error) func(*config.Config) CheckResult {
	return func(*config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: cfgErr.Error(),
				Fix:     "fix " + path + " or remove it to use built-in defaults",
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return CheckResult{Status: StatusPass, Message: "no config file, using built-in defaults"}
		}
		return CheckResult{Status: StatusPass, Message: path + " loaded"}
	}
}

func checkCache(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped, config unavailable"}
	}
	log, closer, err := logger.New(config.LoggerConfig{Level: "error", Output: "stderr"})
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	defer closer()

	store, err := cache.New(cfg.Cache.Path, nil, log)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "check that " + cfg.Cache.Path + " is on a writable filesystem",
		}
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Set(ctx, "doctor:probe", []byte("ok"), time.Minute); err != nil {
		return CheckResult{Status: StatusFail, Message: "write probe failed: " + err.Error()}
	}
	return CheckResult{Status: StatusPass, Message: cfg.Cache.Path + " is writable"}
}

func checkRegistry(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped, config unavailable"}
	}
	log, closer, err := logger.New(config.LoggerConfig{Level: "error", Output: "stderr"})
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	defer closer()

	r, err := engine.BuildRegistry(cfg, log)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "remove or correct the offending engines entry",
		}
	}
	n := len(r.Adapters())
	if n == 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "no backends configured",
			Fix:     "add entries under engines: in the config",
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%d backend(s) configured", n)}
}

func checkBackendInit(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped, config unavailable"}
	}
	log, closer, err := logger.New(config.LoggerConfig{Level: "error", Output: "stderr"})
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}
	defer closer()

	r, err := engine.BuildRegistry(cfg, log)
	if err != nil {
		return CheckResult{Status: StatusWarn, Message: "skipped, registry unavailable"}
	}
	before := len(r.Adapters())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.Init(ctx, nil)

	after := len(r.Adapters())
	if after < before {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d backend(s) failed init and would be excluded", before-after),
		}
	}
	return CheckResult{Status: StatusPass, Message: "all backends initialized"}
}

func checkNetwork(cfg *config.Config) CheckResult {
	hasOnline := cfg == nil
	if cfg != nil {
		log, closer, err := logger.New(config.LoggerConfig{Level: "error", Output: "stderr"})
		if err == nil {
			if r, err := engine.BuildRegistry(cfg, log); err == nil {
				for _, a := range r.Adapters() {
					if a.Descriptor().Kind != domain.KindOffline {
						hasOnline = true
						break
					}
				}
			}
			closer()
		}
	}
	if !hasOnline {
		return CheckResult{Status: StatusPass, Message: "only offline backends configured"}
	}

	conn, err := net.DialTimeout("tcp", "api.duckduckgo.com:443", 5*time.Second)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: "no outbound connectivity: " + err.Error(),
			Fix:     "online backends will suspend; offline backends keep working",
		}
	}
	conn.Close()
	return CheckResult{Status: StatusPass, Message: "outbound connectivity ok"}
}
