package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
	"github.com/despamly/despamly/internal/di"
	"github.com/despamly/despamly/internal/factory"
	"github.com/despamly/despamly/internal/ports"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	messageIntake ports.MessageIntake,
	estimators factory.EstimatorSet,
	counters core.CounterSink,
) error {
	defer logger.Sync()

	// Start the intake
	if err := messageIntake.Start(); err != nil {
		logger.Fatal("Failed to start message intake", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the intake
	if err := messageIntake.Stop(); err != nil {
		logger.Error("Failed to stop message intake", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := estimators.Statistical.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close statistical estimator", zap.Error(err))
		}
	}

	// Stop the counter sink if needed
	if stopper, ok := counters.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
