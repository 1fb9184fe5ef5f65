package router

import (
	"context"

	"github.com/sirupsen/logrus"

	appuser "github.com/oksasatya/go-user-lifecycle/internal/application"
	"github.com/oksasatya/go-user-lifecycle/internal/container"
	"github.com/oksasatya/go-user-lifecycle/internal/infrastructure/gcs"
	"github.com/oksasatya/go-user-lifecycle/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-user-lifecycle/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-lifecycle/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-user-lifecycle/internal/interface/http"
	"github.com/oksasatya/go-user-lifecycle/internal/router/modules"
	"github.com/oksasatya/go-user-lifecycle/pkg/mailer/templates"
)

type UserModuleDeps struct {
	Service *appuser.Service
	Handler *handlers.UserHandler
}

func buildUserDeps(ctx context.Context, c *container.Container) UserModuleDeps {
	cfg := c.Config
	repo := pginfra.NewUserRepository(c.PGPool)
	photos := gcs.NewPhotoStore(c.GCS, cfg.GCSBucket, c.Logger)

	var notifier appuser.Notifier
	if c.RabbitPub != nil {
		notifier = messaging.NewEmailNotifier(c.RabbitPub, templates.Brand{
			AppName:     cfg.AppName,
			CompanyName: cfg.CompanyName,
			SupportURL:  cfg.SupportURL,
		})
	}
	var indexer appuser.Indexer
	if c.ES != nil {
		idx := search.NewUserIndex(c.ES, cfg.ESUsersIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			c.Logger.WithError(err).WithField("index", cfg.ESUsersIndex).Warn("search index setup failed; indexing stays best-effort")
		}
		indexer = idx
	}

	service := appuser.NewService(repo, photos, notifier, indexer, c.Logger, cfg.PhotoFolder)
	handler := handlers.NewUserHandler(service, c.Logger, cfg.UploadTmpDir, cfg.MaxUploadBytes)
	return UserModuleDeps{Service: service, Handler: handler}
}

// InitModules wires every feature module into the registry. Call once at startup.
func InitModules(ctx context.Context, r *Registry, c *container.Container) {
	deps := buildUserDeps(ctx, c)
	r.Add(modules.NewUserModule(deps.Handler, c.Redis, c.Config.RateLimitPerMinute))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
	logModules(c.Logger, c)
}

func logModules(logger *logrus.Logger, c *container.Container) {
	logger.WithFields(logrus.Fields{
		"photos":        c.GCS != nil,
		"notifications": c.RabbitPub != nil,
		"search":        c.ES != nil,
		"rate_limit":    c.Redis != nil,
	}).Info("modules initialized")
}
