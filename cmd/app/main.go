package main

import (
	"context"
	"embed"

	"marshal/internal/application"
	"marshal/internal/delivery/discord"
	"marshal/internal/repository"
	"marshal/pkg/challonge"
	"marshal/pkg/config"
	"marshal/pkg/logger"
	service "marshal/pkg/services"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}

	log := logger.NewLogger(&logger.Config{Level: cfg.LogLevel})

	db, err := repository.NewPostgresDB(&cfg.Repo)
	if err != nil {
		log.Error("failed to init db: %s", err.Error())
		return
	}
	defer db.Close()

	log.Info("running migrations...")
	if err := repository.RunMigrations(db, migrationFS); err != nil {
		log.Error("failed to run migrations: %s", err.Error())
		return
	}
	log.Info("migrations applied")

	repos := repository.NewRepository(db)
	provider := challonge.NewClient(cfg.ChallongeAPIKey)
	services := application.NewService(repos, provider, log)

	bot := discord.NewBot(&cfg, services, log)
	sweeper := application.NewSweeper(services.Sessions, repos.Session, log, cfg.AckWindow, cfg.SweepInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := service.NewManager(log)
	manager.Add(bot, sweeper)

	if err := manager.Run(ctx); err != nil {
		log.Error("failed to run services: %s", err.Error())
		return
	}
	log.Info("bot stopped")
}
