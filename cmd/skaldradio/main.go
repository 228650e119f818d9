package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/db"
	"github.com/friendsincode/skald_radio/internal/engine"
	"github.com/friendsincode/skald_radio/internal/eventbus"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/logging"
	"github.com/friendsincode/skald_radio/internal/playlist"
	"github.com/friendsincode/skald_radio/internal/prober"
	"github.com/friendsincode/skald_radio/internal/scheduler"
	"github.com/friendsincode/skald_radio/internal/server"
	"github.com/friendsincode/skald_radio/internal/telemetry"
	"github.com/friendsincode/skald_radio/internal/version"
	"github.com/friendsincode/skald_radio/internal/weather"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "skaldradio",
	Short: "Skald Radio - Continuous internet radio station",
	Long:  "Skald Radio assembles an endless program of music, DJ liners, station IDs, ads, and weather/time announcements, and streams it to any number of listeners.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Skald Radio station",
	Long:  "Scan the media library, start the playback scheduler and broadcast engine, and serve the listener stream over HTTP",
	RunE:  runServe,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the media library and report pool sizes",
	Long:  "Classify and probe every file under the media root without starting the station, and print the resulting pool sizes",
	RunE:  runScan,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the Skald Radio version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("skaldradio %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

// buildCatalog opens the probe cache, scans the media root, and returns
// the populated catalog. The returned cache handle may be nil.
func buildCatalog(ctx context.Context) (*catalog.Catalog, *gorm.DB, error) {
	var cache *gorm.DB
	if cfg.ProbeCachePath != "" {
		var err error
		cache, err = db.Open(cfg.ProbeCachePath)
		if err != nil {
			logger.Warn().Err(err).Msg("probe cache unavailable, probing without cache")
			cache = nil
		}
	}

	rules, err := catalog.LoadRules(cfg.ClassifyMap)
	if err != nil {
		return nil, cache, fmt.Errorf("load classification rules: %w", err)
	}

	p := prober.New(cfg.FFprobeBin, cfg.Bitrate, cache, logger)
	cat := catalog.New(logger)
	if err := cat.Build(ctx, cfg.MediaRoot, rules, p); err != nil {
		return nil, cache, fmt.Errorf("build catalog: %w", err)
	}
	return cat, cache, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Skald Radio starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, cache, err := buildCatalog(ctx)
	if cache != nil {
		defer db.Close(cache)
	}
	if err != nil {
		return err
	}

	bus := events.NewBus()
	metrics := telemetry.New()

	var relay *eventbus.Relay
	if cfg.NATSEnabled {
		relay, err = eventbus.NewRelay(cfg.NATSURL, bus, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats relay unavailable, events stay in-process")
		} else {
			defer relay.Close()
		}
	}

	gen := playlist.New(cat, cfg.HistorySize, logger)
	eng := engine.New(cfg.FFmpegBin, cfg.Bitrate, bus, metrics, logger)
	wx := weather.New(cfg.WeatherURL, cfg.WeatherTTL, logger)

	sched := scheduler.New(gen, eng, wx, bus, metrics, scheduler.Options{
		InitialBatchSize: cfg.InitialBatchSize,
		RefillBatchSize:  cfg.RefillBatchSize,
		WeatherInterval:  cfg.WeatherInterval,
		AdInterval:       cfg.AdInterval,
		TimeHours:        cfg.TimeHours,
	}, logger)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := server.New(cfg, sched, eng, metrics, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	sched.Stop()

	logger.Info().Msg("Skald Radio stopped")
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	cat, cache, err := buildCatalog(context.Background())
	if cache != nil {
		defer db.Close(cache)
	}
	if err != nil {
		return err
	}

	sizes := cat.PoolSizes()
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("media root: %s\n", cfg.MediaRoot)
	for _, name := range names {
		fmt.Printf("  %-24s %d\n", name, sizes[name])
	}
	return nil
}
