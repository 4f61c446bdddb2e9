package main

import (
	"flag"
	"os"

	"github.com/2beens/gymcoach/internal/config"
	"github.com/2beens/gymcoach/internal/db"
	"github.com/2beens/gymcoach/internal/logging"
	"github.com/2beens/gymcoach/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	migrationsPath := flag.String("migrations", "./migrations", "path to the SQL migrations dir")
	sslMode := flag.String("sslmode", "disable", "postgres sslmode")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	if exists, err := pkg.PathExists(*migrationsPath, true); err != nil || !exists {
		log.Fatalf("migrations dir [%s] not found: %v", *migrationsPath, err)
	}

	dsn := db.ConnString(db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBPassword: os.Getenv("GYMCOACH_POSTGRES_PASS"),
	}) + "?sslmode=" + *sslMode

	log.Infof("migrating [%s] db at %s:%s ...", cfg.PostgresDBName, cfg.PostgresHost, cfg.PostgresPort)
	if err := db.RunMigrations(dsn, *migrationsPath); err != nil {
		log.Fatalf("migrate: %s", err)
	}
}
