package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/adapters/persistence"
	userUC "github.com/khoahotran/user-directory/internal/application/usecase/user"
	"github.com/khoahotran/user-directory/internal/config"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/password"
)

// Seeds one user from SEED_EMAIL / SEED_PASSWORD through the registration
// pipeline. No avatar, no events. Postgres only.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewZapLogger("development").Fatal("cannot load config", err)
	}
	log := logger.NewZapLogger(cfg.App.Env)

	email := os.Getenv("SEED_EMAIL")
	plain := os.Getenv("SEED_PASSWORD")
	if email == "" || plain == "" {
		log.Fatal("SEED_EMAIL and SEED_PASSWORD are required", nil)
	}

	if err := persistence.RunMigrations(cfg.DB.DSN, cfg.DB.MigrationsDir, log); err != nil {
		log.Fatal("migration failed", err)
	}
	pool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		log.Fatal("cannot connect DB", err)
	}
	defer pool.Close()

	repo := persistence.NewPostgresUserRepo(pool, log)
	register := userUC.NewRegisterUserUseCase(repo, nil, password.NewBcryptHasher(cfg.Password.BcryptCost), nil, nil, log)

	out, err := register.Execute(context.Background(), userUC.RegisterUserInput{
		FirstName: os.Getenv("SEED_FIRST_NAME"),
		LastName:  os.Getenv("SEED_LAST_NAME"),
		Email:     email,
		Password:  plain,
	})
	if errors.Is(err, apperror.ErrConflict) {
		log.Info("Seed user already exists", zap.String("email", email))
		return
	}
	if err != nil {
		log.Fatal("cannot add user", err)
	}
	log.Info("Seed user added", zap.String("user_id", out.User.ID.String()), zap.String("email", out.User.Email))
}
