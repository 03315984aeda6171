package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the whole graceful stop, shared between task
// draining and the HTTP server.
const shutdownTimeout = 10 * time.Second

// Shutdown gracefully shuts down the application: running tasks are
// stopped and drained first so they can cancel their resting orders,
// then the HTTP server and storage are closed.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	a.stopRunningTasks(shutdownCtx)

	// Cancel context to signal background loops
	a.cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	err = a.store.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) stopRunningTasks(ctx context.Context) {
	running := a.supervisor.Running()
	for _, snap := range running {
		err := a.supervisor.Stop(snap.ID)
		if err != nil {
			a.logger.Warn("task-stop-failed",
				zap.String("task-id", snap.ID), zap.Error(err))
		}
	}

	for _, snap := range running {
		select {
		case <-a.supervisor.Done(snap.ID):
		case <-ctx.Done():
			a.logger.Warn("task-drain-timeout", zap.String("task-id", snap.ID))
			return
		}
	}
}
