package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"polymarket-scraper/internal/aggregate"
	"polymarket-scraper/internal/alerting"
	"polymarket-scraper/internal/cache"
	"polymarket-scraper/internal/config"
	"polymarket-scraper/internal/export"
	s3export "polymarket-scraper/internal/export/s3"
	"polymarket-scraper/internal/fetcher"
	"polymarket-scraper/internal/normalize"
	"polymarket-scraper/internal/render"
	"polymarket-scraper/internal/scheduler"
	"polymarket-scraper/internal/service"
	"polymarket-scraper/internal/storage"
	"polymarket-scraper/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newFetcher() (*fetcher.Fetcher, error) {
	api := a.Config.API
	return fetcher.New(fetcher.Options{
		BaseURL:      api.BaseURL,
		UserAgent:    api.UserAgent,
		PageLimit:    api.PageLimit,
		MaxPages:     api.MaxPages,
		MaxAttempts:  api.MaxAttempts,
		RequestDelay: api.RequestDelay,
		Timeout:      api.RequestTimeout,
		BackoffBase:  api.BackoffBase,
	}, a.Logger)
}

func (a *App) newBuilder() *aggregate.Builder {
	parser := normalize.NewParser(normalize.Options{
		SiteBaseURL:     a.Config.API.SiteBaseURL,
		ExplorerBaseURL: a.Config.API.ExplorerBaseURL,
	})
	return aggregate.NewBuilder(parser)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newExporter(ctx context.Context) (*export.Exporter, error) {
	opts := export.Options{Dir: a.Config.Export.Dir}

	s3cfg := a.Config.Export.S3
	if s3cfg.Enabled {
		uploader, err := s3export.New(ctx, s3export.Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		opts.Uploader = uploader
		opts.UploadPrefix = s3cfg.Prefix
	}

	return export.New(opts, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	applied, err := storage.Migrate(ctx, pool, a.Config.Database.MigrationsPath)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if len(applied) > 0 {
		a.Logger.Debug().Strs("migrations", applied).Msg("schema up to date")
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openCache(ctx context.Context) (*cache.SnapshotCache, error) {
	rc := a.Config.Redis
	if rc.Addr == "" {
		return nil, nil
	}
	return cache.New(ctx, cache.Options{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		TTL:       rc.TTL,
		KeyPrefix: rc.KeyPrefix,
	}, a.Logger)
}

// RunOptions configure the live dashboard loop.
type RunOptions struct {
	Interval time.Duration
	Export   bool
	Category string
	MaxRows  int
}

// Run executes the long-running scrape loop with the live dashboard.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, err := a.newFetcher()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; archive disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snapshotCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	if snapshotCache != nil {
		defer snapshotCache.Close()
	}

	category := opts.Category
	if category == "" {
		category = a.Config.Dashboard.Category
	}
	dashboard := render.NewDashboard(render.Options{
		Category:    category,
		MaxRows:     a.Config.ResolveMaxRows(opts.MaxRows),
		SiteBaseURL: a.Config.API.SiteBaseURL,
		Clear:       true,
	})
	if err := dashboard.Render(a.Out, nil); err != nil {
		return err
	}

	sinks := []service.Sink{service.DashboardSink(dashboard, a.Out)}
	if opts.Export || a.Config.Export.Enabled {
		exporter, err := a.newExporter(ctx)
		if err != nil {
			return err
		}
		sinks = append(sinks, service.ExportSink(exporter, a.Config.Export.Formats))
	}
	if snapshotCache != nil {
		sinks = append(sinks, service.CacheSink(snapshotCache))
	}
	var locker storage.AdvisoryLocker
	if store != nil {
		sinks = append(sinks, service.StoreSink(store))
		locker = store
	}
	if notifier := a.newNotifier(); notifier != nil && a.Config.Alerting.Enabled {
		sinks = append(sinks, service.NotifySink(notifier, a.Config.Alerting.TopEvents))
	}

	interval := a.Config.Scheduler.Interval
	if opts.Interval > 0 {
		interval = opts.Interval
	}
	sched := scheduler.New(scheduler.Options{
		Interval:      interval,
		ErrorCooldown: a.Config.Scheduler.ErrorCooldown,
		StartupDelay:  a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(source, a.newBuilder(), sinks, locker, service.Options{
		LockKey: a.Config.Scheduler.AdvisoryLockKey,
	}, a.Logger)

	a.Logger.Info().Str("version", version.String()).Dur("interval", interval).Int("sinks", len(sinks)).Msg("starting scrape loop")
	err = svc.Run(ctx, sched)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scrape loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}
