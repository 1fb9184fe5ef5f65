package container

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-lifecycle/config"
	pginfra "github.com/oksasatya/go-user-lifecycle/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-lifecycle/pkg/helpers"
)

// Container holds the infrastructure clients built at startup. Only the
// Postgres pool is mandatory; any other client may be nil when its backend is
// not configured or not reachable.
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	GCS       *storage.Client
	RabbitPub *helpers.RabbitPublisher
	ES        *elasticsearch.Client
}

func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.PGPool = pool

	if cfg.RedisAddr != "" {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := helpers.PingRedis(ctx, c.Redis, 2*time.Second); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limiting fails open")
		}
	}

	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		c.GCS = gcs
	} else {
		logger.Warn("GCS_BUCKET not set; photo uploads will fail")
	}

	if cfg.NotifyEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; lifecycle emails disabled")
		} else {
			c.RabbitPub = pub
		}
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch client init failed; search disabled")
	} else {
		c.ES = es
	}

	return c, nil
}

func (c *Container) Close() {
	if c == nil {
		return
	}
	c.RabbitPub.Close()
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}
