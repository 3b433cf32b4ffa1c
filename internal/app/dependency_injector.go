package app

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"github.com/svensoldin/job-curator-mono/internal/infra/cache"
	"github.com/svensoldin/job-curator-mono/internal/infra/config"
	resultstore "github.com/svensoldin/job-curator-mono/internal/infra/store/result"
	"github.com/svensoldin/job-curator-mono/internal/infra/store/snapshot"
	mio "github.com/svensoldin/job-curator-mono/internal/libs/minio"
	pgcli "github.com/svensoldin/job-curator-mono/internal/libs/postgres"
	rediscli "github.com/svensoldin/job-curator-mono/internal/libs/redis"
	"github.com/svensoldin/job-curator-mono/internal/observability"
	"github.com/svensoldin/job-curator-mono/internal/rank"
	"github.com/svensoldin/job-curator-mono/internal/scrape"
	"github.com/svensoldin/job-curator-mono/internal/taskman"
	"github.com/svensoldin/job-curator-mono/internal/transport"
	"github.com/svensoldin/job-curator-mono/internal/usecase"
)

const defaultCfgPath = "./configs/local.yaml"

type Router interface {
	MountRoutes(*http.ServeMux) *http.ServeMux
}

type dependencyInjector struct {
	cfg    *config.Config
	logger *slog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	minio *minio.Client

	resultStore *resultstore.PostgresStore
	scraper     *scrape.Orchestrator
	ranker      taskman.Ranker
	manager     *taskman.Manager

	usecase transport.Usecase
	handler transport.Handler
	router  Router
}

func newDI() *dependencyInjector {
	return &dependencyInjector{}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		path := os.Getenv("CONFIG_PATH")
		if path == "" {
			path = defaultCfgPath
		}
		di.cfg = config.MustLoad(path)
	}

	return di.cfg
}

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		di.logger = observability.NewLogger()
	}

	slog.SetDefault(di.logger)
	return di.logger
}

func (di *dependencyInjector) PostgresPool(ctx context.Context) *pgxpool.Pool {
	if di.pool == nil {
		pool, err := pgcli.NewPool(ctx, di.Config().DatabaseURL)
		if err != nil {
			log.Fatalf("Postgres: %+v", err)
		}
		di.pool = pool
		di.Logger().Info("connected to postgres")
	}

	return di.pool
}

// RedisClient is nil when no redis address is configured; the description
// cache is then simply disabled.
func (di *dependencyInjector) RedisClient(ctx context.Context) *redis.Client {
	cfg := di.Config().Redis
	if cfg.Addr == "" {
		return nil
	}

	if di.redis == nil {
		client, err := rediscli.NewClient(rediscli.Config{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			log.Fatalf("Redis: %+v", err)
		}
		di.redis = client
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
	}

	return di.redis
}

// MinIOClient is nil when no endpoint is configured; description snapshots
// are then simply disabled.
func (di *dependencyInjector) MinIOClient(ctx context.Context) *minio.Client {
	cfg := di.Config().MinIO
	if cfg.Endpoint == "" {
		return nil
	}

	if di.minio == nil {
		client, err := mio.NewClient(ctx, mio.Config{
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UseSSL:          cfg.UseSSL,
			Bucket:          cfg.Bucket,
		})
		if err != nil {
			log.Fatalf("MinIO: %+v", err)
		}
		di.minio = client
		di.Logger().Info("connected to MinIO",
			slog.String("endpoint", cfg.Endpoint),
			slog.String("bucket", cfg.Bucket),
		)
	}

	return di.minio
}

func (di *dependencyInjector) ResultStore(ctx context.Context) *resultstore.PostgresStore {
	if di.resultStore == nil {
		di.resultStore = resultstore.NewPostgresStore(di.PostgresPool(ctx))
	}

	return di.resultStore
}

func (di *dependencyInjector) Scraper(ctx context.Context) *scrape.Orchestrator {
	if di.scraper == nil {
		cfg := di.Config()

		sources := []scrape.Source{
			scrape.NewAdzunaSource(cfg.Adzuna.AppID, cfg.Adzuna.AppKey, cfg.Adzuna.Country),
			scrape.NewHHSource(cfg.HH.BaseURL),
		}

		var descCache scrape.DescriptionCache
		if rdb := di.RedisClient(ctx); rdb != nil {
			descCache = cache.NewDescriptionCache(rdb, cfg.Scrape.CacheTTL)
		}

		var snapshots scrape.SnapshotStore
		if mc := di.MinIOClient(ctx); mc != nil {
			snapshots = snapshot.NewMinIOStore(mc, cfg.MinIO.Bucket)
		}

		di.scraper = scrape.NewOrchestrator(sources, scrape.Config{
			PerSourceLimit: cfg.Scrape.PerSourceLimit,
			ListTimeout:    cfg.Scrape.ListTimeout,
			DetailTimeout:  cfg.Scrape.DetailTimeout,
			DetailDelay:    cfg.Scrape.DetailDelay,
		}, descCache, snapshots)
	}

	return di.scraper
}

func (di *dependencyInjector) Ranker(ctx context.Context) taskman.Ranker {
	if di.ranker == nil {
		cfg := di.Config()
		switch cfg.Ranker.Mode {
		case "mistral":
			di.ranker = rank.NewMistral(cfg.MistralAPIKey, cfg.Ranker.Model, cfg.Ranker.BatchSize, cfg.Ranker.BatchDelay)
		default:
			di.ranker = rank.NewRuleBased()
		}
		di.Logger().Info("ranker initialized", slog.String("mode", cfg.Ranker.Mode))
	}

	return di.ranker
}

func (di *dependencyInjector) TaskManager(ctx context.Context) *taskman.Manager {
	if di.manager == nil {
		cfg := di.Config()
		di.manager = taskman.New(ctx, taskman.Config{
			MaxResults: cfg.MaxResults,
			Retention:  cfg.TaskRetention,
		}, di.Scraper(ctx), di.Ranker(ctx), di.ResultStore(ctx))
	}

	return di.manager
}

func (di *dependencyInjector) Usecase(ctx context.Context) transport.Usecase {
	if di.usecase == nil {
		di.usecase = usecase.New(di.TaskManager(ctx), di.ResultStore(ctx))
	}

	return di.usecase
}

func (di *dependencyInjector) Handler(ctx context.Context) transport.Handler {
	if di.handler == nil {
		di.handler = transport.NewHandler(di.Usecase(ctx), di.Config().StreamInterval)
	}

	return di.handler
}

func (di *dependencyInjector) Router(ctx context.Context) Router {
	if di.router == nil {
		di.router = transport.NewRouter(di.Handler(ctx), observability.MetricsHandler())
	}

	return di.router
}

func (di *dependencyInjector) Close() {
	if di.pool != nil {
		di.pool.Close()
	}
	if di.redis != nil {
		if err := di.redis.Close(); err != nil {
			slog.Warn("redis close", slog.String("error", err.Error()))
		}
	}
}
