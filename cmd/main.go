package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/djq/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := defaultConfigPath
	if v, ok := os.LookupEnv("DJQ_CONFIG"); ok && v != "" {
		configPath = v
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatal("invalid configuration", "path", configPath, "error", err)
		}
		config = loaded
	}
	shared.ApplyEnv(config, os.LookupEnv)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "djq",
		Usage:    "Collect song requests and run the DJ queue",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
