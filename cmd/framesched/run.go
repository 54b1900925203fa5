package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	framescheduler "github.com/Swind/go-frame-scheduler"
	"github.com/Swind/go-frame-scheduler/core"
	"github.com/Swind/go-frame-scheduler/internal/workload"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Generate a workload and run it for a number of frames",

		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.IntFlag{Name: "systems", Value: 16, Usage: "number of generated systems"},
			&cli.IntFlag{Name: "resources", Value: 8, Usage: "number of shared resources"},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Value: 60, Usage: "frames to run"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "worker count (overrides config)"},
			&cli.StringFlag{Name: "barrier", Usage: "soft or hard (overrides config)"},
			&cli.DurationFlag{Name: "work", Value: 500 * time.Microsecond, Usage: "mean work per system"},
			&cli.Uint64Flag{Name: "seed", Usage: "workload seed; 0 picks one"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address, e.g. :2112"},
			&cli.BoolFlag{Name: "trace", Usage: "emit OpenTelemetry spans"},
			&cli.StringFlag{Name: "trace-output", Usage: "span output file (default stdout)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides config)"},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	// 1. Build config
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	seed := c.Uint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	par := workload.DefaultParams()
	par.Systems = c.Int("systems")
	par.Resources = c.Int("resources")
	par.MeanWork = c.Duration("work")
	if par.Systems < 0 || par.Resources < 0 {
		return cli.Exit("systems and resources must be >= 0", 2)
	}

	// 2. Generate workload
	gen := workload.NewGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), par)
	reg := core.NewRegistry()
	store := core.NewResourceStore()
	if err := gen.Populate(reg, store, gen.Specs()); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// 3. Wire runtime
	runID := uuid.NewString()
	promReg := prom.NewRegistry()
	rt, err := framescheduler.New(reg, cfg,
		framescheduler.WithState(store),
		framescheduler.WithRegisterer(promReg),
		framescheduler.WithName(runID),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	defer rt.Close()
	log := rt.Logger()

	if addr := c.String("metrics-addr"); addr != "" {
		server := serveMetrics(addr, promReg, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Run frames
	log.Info("run started",
		core.F("run", runID),
		core.F("seed", seed),
		core.F("systems", par.Systems),
		core.F("resources", par.Resources),
	)
	frames := c.Int("frames")
	var total time.Duration
	failures := 0
	ran := 0
	for i := range frames {
		report, err := rt.Run(ctx, i)
		if report != nil {
			total += report.Duration
			failures += len(report.Failures)
			ran++
		}
		if errors.Is(err, context.Canceled) {
			log.Warn("run interrupted", core.F("frame", i))
			break
		}
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
	}

	// 5. Format output
	printSummary(c.App.Writer, rt, ran, total, failures)
	return nil
}

func loadConfig(c *cli.Context) (*framescheduler.Config, error) {
	cfg := framescheduler.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := framescheduler.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("workers") {
		cfg.Scheduler.Workers = c.Int("workers")
	}
	if c.IsSet("barrier") {
		cfg.Scheduler.Barrier = c.String("barrier")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Enabled = true
	}
	if c.Bool("trace") {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Output = c.String("trace-output")
	}
	return cfg, cfg.Validate()
}

func serveMetrics(addr string, reg *prom.Registry, log core.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", core.F("addr", addr), core.F("error", err))
		}
	}()
	log.Info("metrics endpoint up", core.F("url", "http://"+addr+"/metrics"))
	return server
}

func printSummary(w io.Writer, rt *framescheduler.Runtime, frames int, total time.Duration, failures int) {
	stats := rt.Stats()
	fmt.Fprintf(w, "frames: %d  workers: %d  barrier: %s  failures: %d\n",
		frames, rt.WorkerCount(), stats.Barrier, failures)
	if frames > 0 {
		fmt.Fprintf(w, "mean frame: %s\n", total/time.Duration(frames))
	}

	fmt.Fprintln(w, "workers:")
	for _, ws := range stats.Workers {
		fmt.Fprintf(w, "  #%d  dispatched=%d  busy=%s\n", ws.ID, ws.Dispatched, ws.CumulativeBusy)
	}

	systems := stats.Systems
	sort.Slice(systems, func(i, j int) bool { return systems[i].LastDuration > systems[j].LastDuration })
	fmt.Fprintln(w, "slowest systems:")
	for _, s := range systems[:min(5, len(systems))] {
		pinned := ""
		if s.PreferredWorker >= 0 {
			pinned = fmt.Sprintf("  pinned=#%d", s.PreferredWorker)
		}
		fmt.Fprintf(w, "  %-12s %-5s last=%s%s\n", s.Name, s.Layer, s.LastDuration, pinned)
	}
}
