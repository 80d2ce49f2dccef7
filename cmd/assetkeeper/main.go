package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"AssetKeeper/internal/asset"
	"AssetKeeper/internal/config"
	"AssetKeeper/internal/logger"
	"AssetKeeper/internal/scheduler"
	"AssetKeeper/internal/tabular"
	"AssetKeeper/internal/telemetry"
)

const ConfigFlag = "config"

func main() {
	configFlag := &cli.StringFlag{
		Name:    ConfigFlag,
		Aliases: []string{"c"},
		Usage:   "path to config.yaml (default: $CONFIG_PATH or " + defaultConfigPath + ")",
	}

	app := &cli.App{
		Name:  "assetkeeper",
		Usage: "load price tables for named assets from a market-data API or local files",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			loadCommand(),
			demoCommand(),
			{
				Name:  "refresh",
				Usage: "retrieve every configured asset once",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String(ConfigFlag))
					if err != nil {
						return err
					}
					return runRefresh(c.Context, cfg)
				},
			},
			{
				Name:  "watch",
				Usage: "refresh configured assets on schedule and serve /metrics",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "run-on-start", EnvVars: []string{"RUN_ON_START"}},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String(ConfigFlag))
					if err != nil {
						return err
					}
					return runWatch(cfg, c.Bool("run-on-start"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.GetLogger().Fatalf("assetkeeper: %v", err)
	}
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "retrieve a single asset and print its table",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ticker"},
			&cli.StringFlag{Name: "backend", Value: "API", Usage: "API or File"},
			&cli.StringFlag{Name: "file"},
			&cli.StringFlag{Name: "sep", Usage: `field separator, "tab" or "\t" for tab`},
			&cli.StringFlag{Name: "comment"},
			&cli.IntFlag{Name: "skip-rows"},
			&cli.BoolFlag{Name: "no-header"},
			&cli.StringFlag{Name: "sheet"},
			&cli.StringFlag{Name: "start", Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "end", Usage: "YYYY-MM-DD, inclusive"},
			&cli.StringFlag{Name: "interval", Usage: "1d, 1wk or 1mo"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String(ConfigFlag))
			if err != nil {
				return err
			}
			name := c.Args().First()
			if name == "" {
				return cli.Exit("asset name is required", 2)
			}
			spec := config.AssetSpec{
				Name:     name,
				Ticker:   c.String("ticker"),
				Backend:  c.String("backend"),
				File:     c.String("file"),
				Sep:      c.String("sep"),
				Comment:  c.String("comment"),
				SkipRows: c.Int("skip-rows"),
				NoHeader: c.Bool("no-header"),
				Sheet:    c.String("sheet"),
				Start:    c.String("start"),
				End:      c.String("end"),
				Interval: c.String("interval"),
			}
			req, err := spec.Request()
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			opts := []asset.Option{asset.WithTicker(spec.Ticker)}
			if provider, _ := newProvider(cfg); provider != nil {
				opts = append(opts, asset.WithProvider(provider))
			}
			retrieveAndPrint(c.Context, c.App.Writer, asset.New(name, opts...), req)
			return nil
		},
	}
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "load Microsoft from a tab-separated file and Apple from the API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "msft.txt"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String(ConfigFlag))
			if err != nil {
				return err
			}
			provider, _ := newProvider(cfg)
			for _, job := range demoJobs(c.String("file"), provider) {
				retrieveAndPrint(c.Context, c.App.Writer, job.Asset, job.Request)
			}
			return nil
		},
	}
}

// demoJobs returns the two sample records: Microsoft from a tab-separated
// file and Apple from the remote provider.
func demoJobs(file string, provider asset.Provider) []scheduler.Job {
	apple := []asset.Option{asset.WithTicker("aapl")}
	if provider != nil {
		apple = append(apple, asset.WithProvider(provider))
	}
	return []scheduler.Job{
		{
			Asset: asset.New("Microsoft", asset.WithTicker("MSFT")),
			Request: asset.Request{
				Backend:  asset.LocalFile,
				FilePath: file,
				Options:  tabular.Options{Separator: '\t'},
			},
			Source: file,
		},
		{
			Asset: asset.New("Apple", apple...),
			Request: asset.Request{
				Backend: asset.RemoteAPI,
				Start:   time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
				End:     time.Date(2020, 9, 20, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func runRefresh(ctx context.Context, cfg *config.Config) error {
	provider, source := newProvider(cfg)
	jobs, err := buildJobs(cfg, provider, source)
	if err != nil {
		return err
	}
	rec := openRecorder(cfg)
	defer rec.Close()

	sched := scheduler.NewScheduler(ctx, jobs, rec, nil, nil)
	report := sched.RefreshAll(ctx)
	for _, f := range report.Failed {
		fmt.Fprintln(os.Stderr, "failed:", f)
	}
	if len(report.Succeeded) == 0 && len(report.Failed) > 0 {
		return cli.Exit("no asset could be loaded", 1)
	}
	return nil
}

func runWatch(cfg *config.Config, runOnStart bool) error {
	log := logger.WithComponent("main")

	provider, source := newProvider(cfg)
	jobs, err := buildJobs(cfg, provider, source)
	if err != nil {
		return err
	}
	rec := openRecorder(cfg)
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := telemetry.New()
	sched := scheduler.NewScheduler(ctx, jobs, rec, metrics, newNotifier(cfg))
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server")
			}
		}()
		log.WithField("addr", cfg.Metrics.Addr).Info("metrics server started")
	}

	if runOnStart {
		log.Info("run-on-start enabled, refreshing now")
		sched.RunAsync()
	}

	log.Info("AssetKeeper is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}
	return nil
}
