package main

import (
	"os"
	"strings"

	"github.com/nimasrn/lead-crm/internal/config"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/nimasrn/lead-crm/pkg/pg"
)

func main() {
	defer logger.Sync()

	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if config.Get().DBDriver != config.DriverPostgres {
		logger.Error("migrations only run against postgres; sqlite is auto-migrated by the api", "driver", config.Get().DBDriver)
		os.Exit(1)
	}

	// main.go --dir=./migrations
	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}
	err = pg.Migrate(pgConf, getMigrationPath())
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
}

func flagValue(name string) (string, bool) {
	for _, v := range os.Args {
		if strings.HasPrefix(v, name+"=") {
			return strings.TrimPrefix(v, name+"="), true
		}
	}
	return "", false
}

func getEnvPath() string {
	path, ok := flagValue("--env")
	if !ok {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("env file not found, reading the environment only", "path", path)
		return ""
	}
	return path
}

func getMigrationPath() string {
	path, ok := flagValue("--dir")
	if !ok {
		path = "./migrations"
	}
	if _, err := os.Stat(path); err != nil {
		logger.Error("failed to open the migrations dir", "path", path, "error", err)
		return ""
	}
	return path
}
