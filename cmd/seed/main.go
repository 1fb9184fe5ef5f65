package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-lifecycle/config"
	pginfra "github.com/oksasatya/go-user-lifecycle/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-lifecycle/pkg/helpers"
)

// seed creates or refreshes an admin account. SEED_EMAIL and SEED_PASSWORD
// override the defaults.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	email := envOr("SEED_EMAIL", "admin@example.com")
	password := envOr("SEED_PASSWORD", "password123")
	hash, err := helpers.HashPassword(password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}

	var id string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, is_admin, is_user, state)
		VALUES ('Admin', 'User', $1, $2, true, true, true)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, is_admin = true, is_user = true, state = true, updated_at = now()
		RETURNING id
	`, email, hash).Scan(&id)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed user")
	}
	logger.WithFields(logrus.Fields{"user_id": id, "email": email}).Info("seeded admin user")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
