// Package app wires together configuration, logging, storage, the broker,
// and the submission service into a single process-lifetime object.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/satqueue/internal/broker/redisqueue"
	"github.com/bobmcallan/satqueue/internal/common"
	"github.com/bobmcallan/satqueue/internal/interfaces"
	"github.com/bobmcallan/satqueue/internal/services/submission"
	"github.com/bobmcallan/satqueue/internal/storage/postgres"
)

// App holds all initialized dependencies shared by cmd/satqueue-server and
// cmd/satqueue-worker.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.Store
	Broker      interfaces.Broker
	Submission  *submission.Service
	StartupTime time.Time
}

func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp resolves configuration, then constructs the Store, Broker, and
// Submission service in dependency order. configPath may be empty, in which
// case the default resolution logic applies.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("SATQUEUE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "satqueue.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/satqueue.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := postgres.NewStore(logger, &config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	broker, err := redisqueue.NewBroker(logger, &config.Broker)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize broker: %w", err)
	}

	submissionSvc := submission.NewService(store, broker, &config.Solver, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Broker:      broker,
		Submission:  submissionSvc,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App, in reverse construction
// order. Safe to call multiple times.
func (a *App) Close() {
	if a.Broker != nil {
		a.Broker.Close()
		a.Broker = nil
	}
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
