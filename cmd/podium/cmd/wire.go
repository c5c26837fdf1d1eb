package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quatton/podium/pkg/archive"
	"github.com/quatton/podium/pkg/db"
	"github.com/quatton/podium/pkg/events"
	"github.com/quatton/podium/pkg/kv"
	"github.com/quatton/podium/pkg/leaderboard"
	"github.com/quatton/podium/pkg/notify"
	"github.com/quatton/podium/pkg/papi/config"
	"github.com/quatton/podium/pkg/papi/services"
	"github.com/quatton/podium/pkg/papi/services/iam"
	"github.com/quatton/podium/pkg/papi/services/link"
	"github.com/quatton/podium/pkg/plog"
	"github.com/quatton/podium/pkg/scoring"
	"github.com/quatton/podium/pkg/store"
	"github.com/quatton/podium/pkg/store/memory"
	"github.com/quatton/podium/pkg/store/pg"
	"github.com/quatton/podium/pkg/strava"
	"github.com/quatton/podium/pkg/syncer"
)

// stores is the persistence layer selected by STORE_BACKEND.
type stores struct {
	users      store.Users
	activities store.Activities
	weights    store.Weights
	close      func() error
}

func openStores(ctx context.Context, cfg *config.EnvConfig) (*stores, error) {
	if cfg.StoreBackend == config.StoreMemory {
		return &stores{
			users:      memory.NewUsers(),
			activities: memory.NewActivities(),
			weights:    memory.NewWeights(),
			close:      func() error { return nil },
		}, nil
	}

	database, err := db.New(ctx, cfg.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &stores{
		users:      pg.NewUsers(database),
		activities: pg.NewActivities(database),
		weights:    pg.NewWeights(database),
		close:      database.Close,
	}, nil
}

// app holds every long-lived component of a running process.
type app struct {
	cfg      *config.EnvConfig
	logger   *plog.Logger
	stores   *stores
	kv       kv.Store
	weights  *scoring.Provider
	strava   *strava.Client
	notifier *notify.Async
	events   events.Publisher
	archive  *archive.Archive
	engine   *syncer.Engine
	queue    *syncer.Queue
	closers  []func() error
}

func loadConfig() (*config.EnvConfig, *plog.Logger, error) {
	cfg, err := config.ValidateEnv()
	if err != nil {
		return nil, nil, err
	}
	return cfg, plog.FromConfig(cfg.LogLevel, cfg.LogFormat), nil
}

func newApp(ctx context.Context, cfg *config.EnvConfig, logger *plog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.stores = st
	a.closers = append(a.closers, st.close)
	a.weights = scoring.NewProvider(st.weights, logger.With("component", "weights"))

	var locker syncer.Locker
	if cfg.RedisAddr != "" {
		valkey, err := kv.NewValkeyStore(kv.ValkeyConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to valkey: %w", err)
		}
		a.kv = valkey
		a.closers = append(a.closers, valkey.Close)
		lockLog := logger.With("component", "lock")
		locker = kv.NewLocker(valkey, time.Duration(cfg.LockTTL)*time.Second,
			kv.WithLostHandler(func(key string) { lockLog.Warn("lock expired before release", "key", key) }))
	} else {
		a.kv = kv.NewMemoryStore()
		locker = syncer.NewLocalLocker()
	}

	a.strava = strava.NewClient(strava.Config{
		ClientID:          cfg.StravaClientID,
		ClientSecret:      cfg.StravaClientSecret,
		RedirectURL:       cfg.RedirectURI(),
		Timeout:           cfg.StravaHTTPTimeout,
		RequestsPerSecond: cfg.StravaRateLimit,
		PerPage:           cfg.StravaPerPage,
	})
	fetcher := strava.NewFetcher(a.strava, st.users, cfg.StravaPerPage, logger.With("component", "fetcher"))

	var sink notify.Notifier = notify.NewLog(logger.With("component", "notify"))
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		logger.Info("telegram bot ready", "username", tg.Username())
		sink = tg
	}
	a.notifier = notify.NewAsync(sink, 10*time.Second, logger)

	a.events = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.events = kp
		a.closers = append(a.closers, kp.Close)
	}

	if cfg.S3Endpoint != "" {
		s3, err := archive.NewS3Store(archive.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare archive bucket: %w", err)
		}
		a.archive = archive.New(s3)
	}

	a.engine = syncer.New(syncer.Options{
		Window:     cfg.Window(),
		Users:      st.users,
		Activities: st.activities,
		Weights:    a.weights,
		Fetcher:    fetcher,
		Locker:     locker,
		Notifier:   a.notifier,
		Events:     a.events,
		Archive:    a.archive,
		Workers:    cfg.SyncWorkers,
		Logger:     logger.With("component", "sync"),
	})
	a.queue = syncer.NewQueue(a.engine, cfg.SyncWorkers, cfg.SyncQueueSize, logger.With("component", "queue"))

	ok = true
	return a, nil
}

func (a *app) services() *services.Services {
	var oauth link.OAuth
	if a.cfg.StravaClientID != "" {
		oauth = a.strava
	}
	return &services.Services{
		Link: link.NewService(link.Options{
			OAuth:    oauth,
			Users:    a.stores.users,
			KV:       a.kv,
			Queue:    a.queue,
			Secret:   a.cfg.AuthSecret,
			StateTTL: time.Duration(a.cfg.StateTTL) * time.Second,
			Logger:   a.logger.With("component", "link"),
		}),
		IAM:                iam.NewIAMService(a.cfg.AuthSecret, time.Duration(a.cfg.AdminTTL)*time.Second),
		Users:              a.stores.users,
		Board:              leaderboard.New(a.stores.users, a.stores.activities),
		Weights:            a.weights,
		Syncer:             a.engine,
		Queue:              a.queue,
		Archive:            a.archive,
		Notifier:           a.notifier,
		Logger:             a.logger.With("component", "api"),
		WebhookVerifyToken: a.cfg.WebhookVerifyToken,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
