package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"gorm.io/gorm"

	"linkcamp/internal/auth"
	"linkcamp/internal/comment"
	"linkcamp/internal/common"
	"linkcamp/internal/config"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/feed"
	"linkcamp/internal/logging"
	"linkcamp/internal/media"
	"linkcamp/internal/metrics"
	"linkcamp/internal/moderation"
	"linkcamp/internal/ops"
	"linkcamp/internal/realtime"
	"linkcamp/internal/server"
	"linkcamp/internal/user"
	"linkcamp/internal/vote"
)

// Application is everything the serve command runs.
type Application struct {
	Config *config.Config
	Log    *slog.Logger
	HTTP   *server.Server
	Health *ops.HealthServer
}

func ProvideConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	log, closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = closer.Close() }, nil
}

// ProvideSentry returns nil when no DSN is configured.
func ProvideSentry(cfg *config.Config, log *slog.Logger) (*sentryhttp.Handler, func(), error) {
	if cfg.Sentry.DSN == "" {
		log.Info("sentry disabled")
		return nil, func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	}); err != nil {
		return nil, nil, fmt.Errorf("sentry init: %w", err)
	}
	handler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	return handler, func() { sentry.Flush(2 * time.Second) }, nil
}

func ProvideMongo(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dbmongo.MongoClient, func(), error) {
	mc, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mc.Close(closeCtx); err != nil {
			log.Warn("mongo disconnect failed", "error", err)
		}
	}
	if err := dbmongo.EnsureIndexes(ctx, mc.Database); err != nil {
		cleanup()
		return nil, nil, err
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDB.Database)
	return mc, cleanup, nil
}

func ProvideDatabaseConnection(cfg *config.Config, log *slog.Logger) (*gorm.DB, func(), error) {
	db, err := dbmysql.NewMySQL(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvidePhotoStore(mc *dbmongo.MongoClient, cfg *config.Config) *dbmongo.PhotoStore {
	return dbmongo.NewPhotoStore(mc, cfg.Server.MediaBaseURL)
}

func ProvideJWTManager(cfg *config.Config) *common.JWTManager {
	return common.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
}

func ProvideProfileFinder(repo user.ProfileRepository) auth.ProfileFinder {
	return repo
}

// ProvidePublisher starts the fan-out dispatcher. With realtime disabled
// state changes are dropped.
func ProvidePublisher(cfg *config.Config, hub *realtime.Hub, log *slog.Logger, m *metrics.Metrics) (common.Publisher, func()) {
	if !cfg.Realtime.Enabled {
		log.Info("realtime disabled")
		return realtime.NopPublisher{}, func() {}
	}

	d := realtime.NewDispatcher(cfg.Realtime.Workers, cfg.Realtime.ChannelBufferSize, log, m)
	d.Subscribe(hub)

	var sink *realtime.KafkaSink
	if len(cfg.Kafka.Brokers) > 0 {
		sink = realtime.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		d.Subscribe(sink)
		log.Info("kafka event sink enabled", "topic", cfg.Kafka.Topic)
	}

	return d, func() {
		d.Shutdown()
		if sink != nil {
			if err := sink.Close(); err != nil {
				log.Warn("kafka sink close failed", "error", err)
			}
		}
		hub.Close()
	}
}

// ProvideRealtimeHandler returns nil when realtime is disabled.
func ProvideRealtimeHandler(cfg *config.Config, hub *realtime.Hub, a *auth.Authenticator) *realtime.Handler {
	if !cfg.Realtime.Enabled {
		return nil
	}
	return realtime.NewHandler(hub, a, cfg.Server.AllowedOrigins, cfg.Realtime.ClientBufferSize)
}

// ProvideCountCache falls back to NopCache when no Redis address is set.
func ProvideCountCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (vote.CountCache, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info("vote count cache disabled")
		return vote.NopCache{}, func() {}, nil
	}
	client, err := vote.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("vote count cache enabled", "addr", cfg.Redis.Addr)
	return vote.NewRedisCountCache(client, cfg.Redis.CountTTL), func() { _ = client.Close() }, nil
}

// ProvideCleaners lists the stores purged when an item is deleted.
func ProvideCleaners(votes vote.Service, comments comment.Service, reports moderation.Repository) []feed.Cleaner {
	return []feed.Cleaner{votes, comments, reports}
}

func ProvideUserHandler(svc user.Service, photos common.PhotoUploader, cfg *config.Config) *user.Handler {
	return user.NewHandler(svc, photos, cfg.Upload.MaxImageBytes)
}

func ProvideFeedHandler(svc feed.Service, photos common.PhotoUploader, cfg *config.Config) *feed.Handler {
	return feed.NewHandler(svc, photos, cfg.Feed, cfg.Upload.MaxImageBytes)
}

func ProvideRoutes(u *user.Handler, f *feed.Handler, v *vote.Handler, c *comment.Handler, m *moderation.Handler) server.Routes {
	return server.Routes{u, f, v, c, m}
}

func ProvideHealthServer(log *slog.Logger, mc *dbmongo.MongoClient, db *gorm.DB) *ops.HealthServer {
	return ops.NewHealthServer(log,
		ops.Check{Name: "mongo", Ping: mc.Ping},
		ops.Check{Name: "mysql", Ping: func(ctx context.Context) error { return dbmysql.Ping(ctx, db) }},
	)
}

func ProvideRouter(
	cfg *config.Config,
	log *slog.Logger,
	m *metrics.Metrics,
	a *auth.Authenticator,
	health *ops.HealthServer,
	ws *realtime.Handler,
	sentryHandler *sentryhttp.Handler,
	photos *media.Handler,
	routes server.Routes,
) http.Handler {
	return server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Auth:     a,
		Health:   health,
		Realtime: ws,
		Sentry:   sentryHandler,
		Media:    photos,
		Routes:   routes,
	})
}
