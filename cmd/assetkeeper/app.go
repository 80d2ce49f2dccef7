package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"

	"AssetKeeper/internal/asset"
	"AssetKeeper/internal/calculator"
	"AssetKeeper/internal/collector"
	"AssetKeeper/internal/config"
	"AssetKeeper/internal/logger"
	"AssetKeeper/internal/notifier"
	"AssetKeeper/internal/recorder"
	"AssetKeeper/internal/scheduler"
)

const defaultConfigPath = "configs/config.yaml"

// loadConfig reads the file named by --config, CONFIG_PATH or the default,
// in that order, and initialises logging from it.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// newProvider builds the remote provider. A misconfigured provider is
// logged and left nil so file-backed assets still load; API assets then
// fail with a configuration error.
func newProvider(cfg *config.Config) (asset.Provider, string) {
	fetcher, err := collector.NewFetcher(cfg.FetcherSettings())
	if err != nil {
		logger.WithComponent("main").WithError(err).Warn("no market-data provider")
		return nil, ""
	}
	logger.WithComponent("main").Infof("data source: %s", fetcher.Name())
	return collector.NewCollector(fetcher), fetcher.Name()
}

// buildJobs turns configured assets into refresh jobs sharing one provider.
func buildJobs(cfg *config.Config, provider asset.Provider, source string) ([]scheduler.Job, error) {
	jobs := make([]scheduler.Job, 0, len(cfg.Assets))
	for _, spec := range cfg.Assets {
		req, err := spec.Request()
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", spec.Name, err)
		}
		opts := []asset.Option{asset.WithTicker(spec.Ticker)}
		if provider != nil {
			opts = append(opts, asset.WithProvider(provider))
		}
		src := source
		if req.Backend == asset.LocalFile {
			src = spec.File
		}
		jobs = append(jobs, scheduler.Job{
			Asset:   asset.New(spec.Name, opts...),
			Request: req,
			Source:  src,
		})
	}
	return jobs, nil
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		logger.WithComponent("main").WithError(err).Warn("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newNotifier(cfg *config.Config) notifier.Notifier {
	return notifier.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
}

// retrieveAndPrint loads one asset and writes its table and summary to w.
// A failed retrieval prints the reason and is not returned as an error.
func retrieveAndPrint(ctx context.Context, w io.Writer, a *asset.Asset, req asset.Request) {
	df, err := a.Retrieve(ctx, req)
	if err != nil {
		fmt.Fprintf(w, "%s: no data (%v)\n", a.Name(), err)
		return
	}
	printTable(w, a.Name(), df)
}

func printTable(w io.Writer, name string, df *dataframe.DataFrame) {
	fmt.Fprintf(w, "== %s ==\n%v\n", name, *df)
	fmt.Fprintln(w, notifier.FormatSummary(name, calculator.Summarize(df)))
}
