package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/satqueue/internal/app"
	"github.com/bobmcallan/satqueue/internal/worker"
)

func main() {
	configPath := os.Getenv("SATQUEUE_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	pollTimeout := time.Duration(a.Config.Solver.PollTimeoutS) * time.Second
	w := worker.New(a.Store, a.Broker, a.Logger, a.Config.Solver.PathFast, pollTimeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.Logger.Info().Msg("Shutdown signal received, finishing in-flight job")
		w.Stop()
	}()

	a.Logger.Info().Msg("Worker starting")

	w.RunForever(context.Background())

	a.Logger.Info().Msg("Worker stopped")
}
