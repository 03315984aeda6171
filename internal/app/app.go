// Package app wires the process together: configuration, storage, the
// task supervisor, the wallet tracker and the dashboard HTTP server.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/internal/venue"
	"github.com/mkarpov/opinion-mm/pkg/cache"
	"github.com/mkarpov/opinion-mm/pkg/config"
	"github.com/mkarpov/opinion-mm/pkg/healthprobe"
	"github.com/mkarpov/opinion-mm/pkg/httpserver"
	"github.com/mkarpov/opinion-mm/pkg/wallet"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	supervisor    *task.Supervisor
	store         storage.Storage
	creds         *venue.CredentialStore
	metaCache     cache.Cache
	tracker       *wallet.Tracker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
