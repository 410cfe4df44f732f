package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"peerhelp/internal/config"
	"peerhelp/internal/db"
	"peerhelp/internal/logging"
	"peerhelp/internal/repository"
	"peerhelp/internal/seed"
)

func main() {
	file := flag.String("file", "", "YAML fixture to load (default: built-in demo data)")
	flag.Parse()

	cfg := config.Load()
	if err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		slog.Error("logging setup", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, *file); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, file string) error {
	slog.Info("starting seed", "db", cfg.DBDriver)

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	var fixture *seed.Fixture
	if file != "" {
		fixture, err = seed.LoadFile(file)
	} else {
		fixture, err = seed.Default()
	}
	if err != nil {
		return err
	}

	seeder := seed.NewSeeder(
		repository.NewUserRepository(gormDB),
		repository.NewQuestionRepository(gormDB),
		repository.NewAnswerRepository(gormDB),
	)
	res, err := seeder.Apply(context.Background(), fixture)
	if err != nil {
		return err
	}

	slog.Info("seed completed",
		"users_created", res.Users,
		"users_existing", res.Skipped,
		"questions", res.Questions,
		"answers", res.Answers,
	)
	return nil
}
