package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/internal/config"
	"github.com/jakechorley/volunteer-booking/pkg/clients/gmailclient"
	"github.com/jakechorley/volunteer-booking/pkg/clients/sheetsclient"
	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/core/schedule"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/locks"
	"github.com/jakechorley/volunteer-booking/pkg/notify"
	"github.com/jakechorley/volunteer-booking/pkg/postgres"
	"github.com/jakechorley/volunteer-booking/pkg/sqlite"
	"github.com/jakechorley/volunteer-booking/pkg/utils"
	"github.com/jakechorley/volunteer-booking/pkg/utils/logging"
)

const emailQueueSize = 100

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env         string
	Cfg         *config.Config
	Logger      *zap.Logger
	Ctx         context.Context
	Database    db.Database
	Catalog     *schedule.Catalog
	Engine      *booking.Engine
	GmailClient *gmailclient.Client
	Redis       *redis.Client

	// ActAs books and cancels as this volunteer instead of as an administrator
	ActAs string

	cancel  context.CancelFunc
	queue   *notify.Async
	closers []func()
}

// Actor returns who the command runs as
func (app *AppContext) Actor() model.Actor {
	if app.ActAs != "" {
		return model.VolunteerActor(app.ActAs)
	}
	return model.Admin()
}

// Init sets up logger, config, clients, storage and the booking engine
func (app *AppContext) Init(env string, logOpts logging.Options) error {
	var err error
	app.Env = env
	app.Ctx, app.cancel = context.WithCancel(context.Background())

	app.Logger, err = logging.InitLogger(env, logOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Debug("Starting application", zap.String("environment", env))

	app.Cfg, err = config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded",
		zap.String("backend", app.Cfg.Storage.Backend),
		zap.String("timezone", app.Cfg.Timezone))

	var googleClient *http.Client
	if app.Cfg.UsesGoogle() {
		oauthCfg, err := config.LoadOAuthClient(env)
		if err != nil {
			return fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		googleClient, err = utils.NewGoogleHTTPClient(app.Ctx, oauthCfg, utils.RequiredScopes(app.Cfg), env, app.Logger)
		if err != nil {
			return err
		}
	}

	if app.Cfg.Notifications.Email {
		app.GmailClient, err = gmailclient.NewClient(app.Ctx, googleClient, app.Cfg.GmailUserID, app.Cfg.GmailSender)
		if err != nil {
			return fmt.Errorf("failed to create gmail client: %w", err)
		}
		app.Logger.Debug("Gmail client initialized")
	}

	app.Database, err = app.openDatabase(googleClient)
	if err != nil {
		return err
	}

	if app.Cfg.Redis != nil {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     app.Cfg.Redis.Addr,
			Password: app.Cfg.Redis.Password,
			DB:       app.Cfg.Redis.DB,
		})
		if err := app.Redis.Ping(app.Ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", app.Cfg.Redis.Addr, err)
		}
		app.closers = append(app.closers, func() { _ = app.Redis.Close() })
		app.Logger.Debug("Redis connected", zap.String("addr", app.Cfg.Redis.Addr))
	}

	app.Catalog = schedule.NewCatalog(app.Database, app.Database, app.Logger)
	app.Engine = booking.NewEngine(booking.Dependencies{
		Locations:  app.Database,
		Volunteers: app.Database,
		Bookings:   app.Database,
		Catalog:    app.Catalog,
		Locker:     app.locker(),
		Notifier:   app.notifier(),
		Logger:     app.Logger,
	}, app.engineOptions())

	return nil
}

func (app *AppContext) openDatabase(googleClient *http.Client) (db.Database, error) {
	storage := app.Cfg.Storage
	app.Logger.Info("Opening storage", zap.String("backend", storage.Backend))

	switch storage.Backend {
	case "memory":
		return db.NewMemoryDB(), nil

	case "sqlite":
		store, err := sqlite.Open(storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = store.Close() })
		return store, nil

	case "postgres":
		store, err := postgres.NewDB(app.Ctx, storage.PostgresURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, store.Close)
		if err := store.RunMigrations(app.Ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil

	case "sheets":
		sheets, err := sheetsclient.NewClient(app.Ctx, googleClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		store, err := db.NewSheetsDB(sheets, sheets, storage.DatabaseSheetID, storage.VolunteerSheetID, storage.VolunteersTab)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", storage.Backend)
}

func (app *AppContext) engineOptions() booking.Options {
	opts := booking.DefaultOptions()
	opts.CancellationWindow = app.Cfg.CancellationWindow()
	opts.Timezone = app.Cfg.Location()
	if app.Cfg.CapacitySource != "" {
		opts.CapacitySource = booking.CapacitySource(app.Cfg.CapacitySource)
	}
	if app.Cfg.StatusTransitions == "revisable" {
		opts.Transitions = model.RevisableTransitions
	}
	return opts
}

func (app *AppContext) locker() booking.Locker {
	if app.Redis != nil && app.Cfg.Redis.Locking {
		app.Logger.Debug("Using redis locks", zap.Duration("ttl", app.Cfg.Redis.LockTTL()))
		return locks.NewRedisLocker(app.Redis, app.Cfg.Redis.LockTTL(), app.Logger)
	}
	return booking.NewLocalLocker()
}

func (app *AppContext) notifier() booking.Notifier {
	var notifiers notify.Multi

	if app.Redis != nil {
		notifiers = append(notifiers, notify.NewRedisPublisher(app.Redis, app.Cfg.Redis.Channel))
	}

	if app.GmailClient != nil {
		email := notify.NewEmailNotifier(app.GmailClient, app.Database, app.Database, app.Logger)
		app.queue = notify.NewAsync(email, emailQueueSize, app.Logger)
		app.queue.Start(app.Ctx)
		notifiers = append(notifiers, app.queue)
	}

	return notifiers
}

// Close flushes queued notifications and releases connections
func (app *AppContext) Close() {
	if app.cancel != nil {
		app.cancel()
	}
	if app.queue != nil {
		app.queue.Wait()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	if app.Logger != nil {
		_ = app.Logger.Sync()
	}
}
