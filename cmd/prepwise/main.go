package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepwise/internal/auth"
	"prepwise/internal/config"
	"prepwise/internal/db"
	"prepwise/internal/feeds"
	"prepwise/internal/gcal"
	"prepwise/internal/ics"
	appLog "prepwise/internal/log"
	"prepwise/internal/session"
	"prepwise/internal/store"
	"prepwise/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv(os.Getenv)

	// CLI --listen overrides config file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("prepwise starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"lookback_months", conf.LookbackMonths,
		"refresh", conf.RefreshCron,
		"calendar_id", conf.Google.CalendarID,
		"feed_count", len(conf.Feeds),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		if err := runOnce(ctx, conf); err != nil {
			appLog.Error("feed refresh failed", err)
			os.Exit(1)
		}
		return
	}

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	if err := run(ctx, conf); err != nil {
		appLog.Error("prepwise stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("prepwise exiting")
}

func run(ctx context.Context, conf *config.Config) error {
	appLog.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, conf.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	appLog.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, conf.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	scheduler, err := startFeeds(ctx, conf, rdb)
	if err != nil {
		return err
	}
	// A nil *feeds.Scheduler must not reach web.Deps as a non-nil interface.
	var feedSnaps web.FeedSnapshots
	if scheduler != nil {
		defer scheduler.Stop()
		feedSnaps = scheduler
	}

	authenticator := auth.New(conf.Google.ClientID, conf.Google.ClientSecret, conf.Google.RedirectURL)
	server := web.NewServer(web.Deps{
		Config:   conf,
		Auth:     authenticator,
		Calendar: gcal.NewClient(conf.Google.CalendarID, conf.Google.MaxResults),
		Sessions: session.NewStore(rdb, time.Duration(conf.Session.TTLHours)*time.Hour),
		Store:    st,
		Feeds:    feedSnaps,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
	return nil
}

// runOnce refreshes the shared feeds a single time and logs the result.
// Redis is optional here; without it nothing is published.
func runOnce(ctx context.Context, conf *config.Config) error {
	var pub feeds.Publisher
	if conf.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, conf.RedisURL)
		if err != nil {
			appLog.Warn("redis unavailable, sync event will not be published", "err", err)
		} else {
			defer rdb.Close()
			pub = rdb
		}
	}

	opts := schedulerOptions(conf)
	opts.Publisher = pub
	snap, err := feeds.New(opts).Refresh(ctx)
	if err != nil {
		return err
	}
	appLog.Info("feed refresh done",
		"total", snap.Total,
		"upcoming", len(snap.Upcoming),
		"past", len(snap.Past),
		"failed_feeds", snap.FailedFeeds,
	)
	return nil
}

// startFeeds starts the shared-feed scheduler. It returns nil when no feed
// has a URL, leaving the feed endpoint unconfigured.
func startFeeds(ctx context.Context, conf *config.Config, pub feeds.Publisher) (*feeds.Scheduler, error) {
	opts := schedulerOptions(conf)
	if len(opts.Sources) == 0 {
		appLog.Info("no shared feeds configured, scheduler disabled")
		return nil, nil
	}
	opts.Publisher = pub
	scheduler := feeds.New(opts)
	if err := scheduler.Start(ctx); err != nil {
		return nil, err
	}
	return scheduler, nil
}

func schedulerOptions(conf *config.Config) feeds.Options {
	return feeds.Options{
		Schedule:       conf.RefreshCron,
		Sources:        feeds.SourcesFromConfig(conf.Feeds),
		Fetcher:        ics.NewFetcher(conf.CacheDir, nil),
		Location:       resolveLocationOrUTC(conf.Timezone),
		LookbackMonths: conf.LookbackMonths,
	}
}

func resolveLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/prepwise/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.once, "once", false, "Refresh the shared interview feeds once and exit")

	flag.Parse()

	return cfg
}
