package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"omnisearch/internal/adapter/cache"
	"omnisearch/internal/adapter/engine"
	"omnisearch/internal/domain"
	"omnisearch/internal/infra/config"
	"omnisearch/internal/infra/logger"
	"omnisearch/internal/infra/tracer"
	"omnisearch/internal/usecase/dispatch"
	"omnisearch/internal/usecase/suspend"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "doctor":
			if err := runDoctor(); err != nil {
				fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`omnisearch - metasearch aggregation engine

USAGE:
    omnisearch [COMMAND | QUERY] [FLAGS]

COMMANDS:
    doctor      Run health checks on config, cache, and backends

    (no command) - Run a one-shot search of the query terms and print
    the merged result page as JSON.

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./config.yaml)
    --category NAME    Search category (general, images, news, science,
                       files, videos; default: general)
    --locale TAG       BCP 47 locale for the request, e.g. de-AT
    --page N           1-based result page
    --backends a,b     Restrict the search to the listed backend ids

CONFIGURATION:
    Config file: ./config.yaml (built-in defaults when absent)
    Environment: OMNISEARCH_* variables override config

EXAMPLES:
    omnisearch "red panda"
    omnisearch "!w red panda"            # bang shortcut, wikipedia only
    omnisearch "100 usd to eur"
    omnisearch --locale de-AT "katzen"
    omnisearch doctor`)
}

// cliFlags holds the parsed command line. Terms are everything that is not
// a flag, joined into the query text.
type cliFlags struct {
	ConfigPath string
	Category   string
	Locale     string
	Page       int
	Backends   []string
	Terms      []string
}

// parseFlags extracts flags from os.Args; order does not matter.
func parseFlags(args []string) (cliFlags, error) {
	flags := cliFlags{ConfigPath: "config.yaml"}

	take := func(i *int, name string) (string, error) {
		arg := args[*i]
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			return arg[eq+1:], nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s needs a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch {
		case arg == "--config" || strings.HasPrefix(arg, "--config="):
			flags.ConfigPath, err = take(&i, "--config")
		case arg == "--category" || strings.HasPrefix(arg, "--category="):
			flags.Category, err = take(&i, "--category")
		case arg == "--locale" || strings.HasPrefix(arg, "--locale="):
			flags.Locale, err = take(&i, "--locale")
		case arg == "--page" || strings.HasPrefix(arg, "--page="):
			var v string
			if v, err = take(&i, "--page"); err == nil {
				flags.Page, err = strconv.Atoi(v)
			}
		case arg == "--backends" || strings.HasPrefix(arg, "--backends="):
			var v string
			if v, err = take(&i, "--backends"); err == nil {
				flags.Backends = strings.Split(v, ",")
			}
		case strings.HasPrefix(arg, "-"):
			err = fmt.Errorf("unknown flag %s", arg)
		default:
			flags.Terms = append(flags.Terms, arg)
		}
		if err != nil {
			return cliFlags{}, err
		}
	}
	return flags, nil
}

func run() error {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	if len(flags.Terms) == 0 {
		showUsage()
		return nil
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	orch, cleanup, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	q := domain.Query{
		Text:     strings.Join(flags.Terms, " "),
		Locale:   flags.Locale,
		PageNo:   flags.Page,
		Backends: flags.Backends,
	}
	if flags.Category != "" {
		c := domain.Category(flags.Category)
		if !domain.ValidCategory(c) {
			return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, flags.Category)
		}
		q.Categories = []domain.Category{c}
	}

	page, info, err := orch.Dispatch(ctx, q)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*domain.ResultPage
		Backends *dispatch.PartialFailureInfo `json:"backend_status"`
	}{page, info})
}

// buildOrchestrator wires the full dispatch stack from config. The returned
// cleanup closes the continuity cache and stops the sweep scheduler.
func buildOrchestrator(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dispatch.Orchestrator, func(), error) {
	store, err := cache.New(cfg.Cache.Path, domain.SystemClock{}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Cache.SweepSchedule, func() {
		if _, err := store.Sweep(context.Background()); err != nil {
			log.Warn("cache sweep failed", "error", err)
		}
	}); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("cache sweep schedule: %w", err)
	}
	sweeper.Start()

	cleanup := func() {
		sweeper.Stop()
		store.Close()
	}

	registry, err := engine.BuildRegistry(cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("registry: %w", err)
	}
	registry.Init(ctx, store)

	tracker := suspend.New(suspend.Params{
		Threshold: cfg.Suspension.Threshold,
		Base:      cfg.Suspension.Base,
		Max:       cfg.Suspension.Max,
	}, domain.SystemClock{}, log)

	invoker := engine.NewHTTPInvoker(0, 0)
	executor := dispatch.NewExecutor(tracker, invoker, log)
	chain := dispatch.NewHookChain(preHooks(cfg, registry), postHooks(cfg), log)

	orch := dispatch.New(registry, chain, tracker, executor, dispatch.Params{
		Deadline:         cfg.Search.Deadline,
		MaxConcurrent:    cfg.Search.MaxConcurrent,
		RankSmoothing:    cfg.Search.RankSmoothing,
		DefaultLocale:    cfg.Search.DefaultLocale,
		CategoryDisabled: cfg.Search.CategoryDisabled,
	}, log)
	return orch, cleanup, nil
}

func preHooks(cfg *config.Config, registry *engine.Registry) []domain.PreHook {
	hooks := []domain.PreHook{&dispatch.SanitizeHook{}}
	if cfg.Hooks.Shortcuts {
		hooks = append(hooks, &dispatch.ShortcutHook{Lookup: registry.Shortcut})
	}
	return hooks
}

func postHooks(cfg *config.Config) []domain.PostHook {
	hooks := []domain.PostHook{&dispatch.SuggestionTrimHook{}}
	if len(cfg.Hooks.BlockedHosts) > 0 {
		hooks = append(hooks, &dispatch.HostBlockHook{Hosts: cfg.Hooks.BlockedHosts})
	}
	return hooks
}
