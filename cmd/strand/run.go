package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/strand-rt/strand/internal/config"
	strerrors "github.com/strand-rt/strand/internal/errors"
	"github.com/strand-rt/strand/internal/inspector"
	"github.com/strand-rt/strand/pkg/clock"
	"github.com/strand-rt/strand/pkg/event"
	"github.com/strand-rt/strand/pkg/executor"
	"github.com/strand-rt/strand/pkg/gfx"
	"github.com/strand-rt/strand/pkg/metrics"
	"github.com/strand-rt/strand/pkg/runner"
	"github.com/strand-rt/strand/pkg/server"
)

func runCmd() *cobra.Command {
	var (
		configPath string
		workers    int
		inspect    bool
		runFor     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the strand runtime",
		Long: `Start the runtime: spawn the worker runners, place the audio,
draw and update servers according to strand.json, and enter the
controller event loop. Ctrl-C requests an orderly shutdown.

Examples:
  strand run
  strand run --workers=4
  strand run --inspect
  strand run --for=30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(configPath, workers, inspect, runFor)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to strand.json (default: search upward from cwd)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker runner count (default from strand.json)")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "Enable the debug inspector")
	cmd.Flags().DurationVar(&runFor, "for", 0, "Exit cleanly after this long (0 runs until interrupted)")

	return cmd
}

func runRun(configPath string, workers int, inspect bool, runFor time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if workers > 0 {
		cfg.Runtime.Workers = workers
	}
	if inspect {
		cfg.Inspector.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	var (
		registry *prometheus.Registry
		met      *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		met = metrics.New(
			metrics.WithRegistry(registry),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)
	}

	ex := executor.New(executor.Config{
		Logger:          logger,
		Metrics:         met,
		SyncCallTimeout: cfg.SyncCallTimeout(),
	})

	workerIDs := make([]runner.ID, 0, cfg.Runtime.Workers)
	for i := 0; i < cfg.Runtime.Workers; i++ {
		id, err := ex.SpawnRunner()
		if err != nil {
			return err
		}
		workerIDs = append(workerIDs, id)
	}

	channels, err := placeServers(cfg, ex, logger, workerIDs)
	if err != nil {
		ex.Stop()
		return err
	}

	if cfg.Inspector.Enabled {
		insp := inspector.New(inspector.Options{
			Addr:     cfg.InspectorAddress(),
			Logger:   logger,
			Source:   ex,
			Gatherer: registry,
		})
		if err := insp.Start(); err != nil {
			ex.Stop()
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			insp.Shutdown(ctx)
		}()
		info("Inspector on http://%s", insp.Addr())
	}

	// Ctrl-C requests an orderly exit through the event loop; a second
	// one kills the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown requested")
		ex.Proxy().Send(event.Exit{})
		<-sigCh
		os.Exit(1)
	}()

	printBanner()
	info("Running with %d workers", len(workerIDs))

	mctx := executor.NewMainContext(ex, channels)

	// A run deadline rides the same timer path applications use.
	if runFor > 0 {
		if _, _, err := mctx.SetTimeout(runFor, func(m *executor.MainContext) error {
			return m.Executor.Proxy().Send(event.Exit{})
		}); err != nil {
			ex.Stop()
			return err
		}
		info("Exiting after %s", runFor)
	}

	code, err := ex.Run(mctx.Handler())
	if err != nil {
		return err
	}
	// Returning an error (instead of exiting here) lets the deferred
	// inspector shutdown run before the process ends.
	if err := exitError(code); err != nil {
		return err
	}
	success("Shut down cleanly")
	return nil
}

// exitError converts a non-zero runtime exit code into a CLI error.
func exitError(code int) error {
	if code == 0 {
		return nil
	}
	return strerrors.Newf(strerrors.CategoryCLI, "runtime exited with code %d", code)
}

// loadConfig resolves the effective configuration: an explicit --config
// path, the nearest strand.json, or built-in defaults when none exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	cfg, err := config.LoadFromWorkingDir()
	if err == nil {
		return cfg, nil
	}

	var se *strerrors.StrandError
	if errors.As(err, &se) && se.Code == "E121" {
		warn("No strand.json found, using defaults")
		return config.New(), nil
	}
	return nil, err
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// placeServers creates the three servers and emplaces each on its
// configured runner, workers assigned round-robin. Each runner is paced at
// the highest frequency among the servers it hosts.
func placeServers(cfg *config.Config, ex *executor.Executor, logger *slog.Logger, workerIDs []runner.ID) (server.Channels, error) {
	var channels server.Channels

	gfxCtx := gfx.NewContext("main-window")
	draw, drawCh, err := server.NewDraw(logger, gfxCtx)
	if err != nil {
		return channels, err
	}
	update, updateCh := server.NewUpdate(logger, ex.Proxy(), clock.Steady{})
	audio := server.NewAudio(logger)
	channels = server.Channels{Draw: drawCh, Update: updateCh}

	next := 0
	pick := func(placement string) runner.ID {
		if placement == config.PlacementMain || len(workerIDs) == 0 {
			return runner.MainID
		}
		id := workerIDs[next%len(workerIDs)]
		next++
		return id
	}

	pacing := map[runner.ID]float64{}
	place := func(srv server.Server, sc config.ServerConfig) error {
		tr, err := srv.ToTransferable()
		if err != nil {
			return err
		}
		target := pick(sc.Placement)
		if target == runner.MainID {
			if err := ex.Main.Base.Container.EmplaceChecked(tr); err != nil {
				return err
			}
		} else {
			h, _ := ex.Handle(target)
			if err := h.EmplaceServer(tr); err != nil {
				return err
			}
		}
		if sc.Frequency > pacing[target] {
			pacing[target] = sc.Frequency
		}
		logger.Info("server placed", "kind", srv.Kind(), "runner_id", target)
		return nil
	}

	if err := place(audio, cfg.Servers.Audio); err != nil {
		return channels, err
	}
	if err := place(update, cfg.Servers.Update); err != nil {
		return channels, err
	}
	if err := place(draw, cfg.Servers.Draw); err != nil {
		return channels, err
	}

	if cfg.Runtime.MainFrequency > pacing[runner.MainID] {
		pacing[runner.MainID] = cfg.Runtime.MainFrequency
	}
	for id, freq := range pacing {
		if freq <= 0 {
			continue
		}
		if err := ex.SetFrequency(id, freq); err != nil {
			return channels, err
		}
	}
	return channels, nil
}
