package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/timecapsule/internal/adapter/httpserver"
	"github.com/pscheid92/timecapsule/internal/adapter/memory"
	"github.com/pscheid92/timecapsule/internal/adapter/notify"
	"github.com/pscheid92/timecapsule/internal/adapter/postgres"
	"github.com/pscheid92/timecapsule/internal/adapter/redis"
	"github.com/pscheid92/timecapsule/internal/adapter/sentiment"
	"github.com/pscheid92/timecapsule/internal/adapter/storage"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/config"
	"github.com/pscheid92/timecapsule/internal/platform/crypto"
	"github.com/pscheid92/timecapsule/internal/platform/logging"
	"github.com/pscheid92/timecapsule/internal/platform/version"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	capsules  domain.CapsuleRepository
	responses domain.ResponseRepository
	users     domain.UserRepository
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupCipher(cfg *config.Config) crypto.Service {
	if cfg.MessageEncryptionKey == "" {
		slog.Warn("MESSAGE_ENCRYPTION_KEY not set, capsule messages are stored as plain text")
	}
	cipher, err := crypto.New(cfg.MessageEncryptionKey)
	if err != nil {
		slog.Error("Failed to create message cipher", "error", err)
		os.Exit(1)
	}
	return cipher
}

func setupRedis(cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, running without sentiment cache and sweep leader election")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupClassifier caches only the hosted model's answers. Keyword fallback
// answers are cheap and must not outlive an outage of the hosted model.
func setupClassifier(cfg *config.Config, rdb *goredis.Client) domain.SentimentClassifier {
	if cfg.SentimentAPIKey == "" {
		slog.Info("SENTIMENT_API_KEY not set, using keyword sentiment classifier")
		return sentiment.KeywordClassifier{}
	}

	var hosted domain.SentimentClassifier = sentiment.NewHTTPClassifier(cfg.SentimentAPIURL, cfg.SentimentAPIKey)
	if rdb != nil {
		hosted = redis.NewCachingClassifier(rdb, hosted, cfg.SentimentCacheTTL)
	}
	return sentiment.NewFallbackClassifier(hosted, sentiment.KeywordClassifier{})
}

func setupNotifier(cfg *config.Config) domain.NotificationSender {
	if cfg.EmailAPIKey == "" {
		slog.Info("EMAIL_API_KEY not set, reveal notifications will be logged only")
	}
	return notify.NewSender(notify.EmailConfig{
		Endpoint: cfg.EmailAPIURL,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
		AppURL:   cfg.AppURL,
		Location: cfg.Location(),
		Retry:    notify.DefaultRetryPolicy(),
	})
}

func setupMedia(cfg *config.Config) domain.MediaStore {
	if cfg.MediaBucket == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.NewS3Storage(ctx, cfg.MediaBucket, cfg.AWSRegion, cfg.AWSEndpointURL)
	if err != nil {
		slog.Error("Failed to configure media storage", "error", err)
		os.Exit(1)
	}
	return store
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.Store, "version", version.Get().Version)

	var (
		repos        repositories
		healthChecks []httpserver.HealthCheck
	)
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.NewStore(clock.Now)
		repos = repositories{capsules: store.Capsules(), responses: store.Responses(), users: store.Users()}
		slog.Warn("Using in-memory store, data is lost on restart")
	default:
		pool := setupDB(cfg)
		defer pool.Close()
		cipher := setupCipher(cfg)
		repos = repositories{
			capsules:  postgres.NewCapsuleRepo(pool, cipher),
			responses: postgres.NewResponseRepo(pool, cipher),
			users:     postgres.NewUserRepo(pool),
		}
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	rdb := setupRedis(cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	classifier := setupClassifier(cfg, rdb)
	notifier := setupNotifier(cfg)

	capsuleSvc := app.NewCapsuleService(repos.capsules, repos.responses, repos.users, classifier, clock, cfg.RevealHorizon())
	engine := app.NewQuestionnaireEngine(repos.capsules, repos.responses, classifier, clock, cfg.Location(), cfg.RevealHorizon())
	sweeper := app.NewRevealSweeper(repos.capsules, repos.responses, repos.users, notifier, clock, cfg.SweepConcurrency)

	srv := httpserver.NewServer(cfg, httpserver.Services{
		Capsules:      capsuleSvc,
		Questionnaire: engine,
		Sweeper:       sweeper,
		Media:         setupMedia(cfg),
	}, healthChecks)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.SweepEnabled {
		var lock *app.LeaderElector
		if rdb != nil {
			// The lease outlives one interval so the leader keeps it between ticks.
			lock = app.NewLeaderElector(rdb, instanceID(), 2*cfg.SweepInterval)
		}
		ticker := newSweepTicker(sweeper, lock, clock, cfg.SweepInterval)
		g.Go(func() error {
			ticker.Run(gctx)
			return nil
		})
		slog.Info("Reveal sweep ticker started", "interval", cfg.SweepInterval, "leader_election", rdb != nil)
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

// newSweepTicker avoids handing the ticker a typed-nil lock when Redis is absent.
func newSweepTicker(sweeper *app.RevealSweeper, lock *app.LeaderElector, clock clockwork.Clock, interval time.Duration) *app.SweepTicker {
	if lock == nil {
		return app.NewSweepTicker(sweeper, nil, clock, interval)
	}
	return app.NewSweepTicker(sweeper, lock, clock, interval)
}
