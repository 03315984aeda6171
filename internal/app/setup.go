package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/markets"
	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/strategy"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/internal/venue"
	"github.com/mkarpov/opinion-mm/pkg/cache"
	"github.com/mkarpov/opinion-mm/pkg/config"
	"github.com/mkarpov/opinion-mm/pkg/healthprobe"
	"github.com/mkarpov/opinion-mm/pkg/httpserver"
	"github.com/mkarpov/opinion-mm/pkg/wallet"
)

// walletPollInterval spaces balance refreshes for the status endpoint.
const walletPollInterval = 30 * time.Second

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	metaCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	tracker, err := setupTracker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup wallet tracker: %w", err)
	}

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		supervisor:    task.NewSupervisor(logger),
		store:         store,
		metaCache:     metaCache,
		tracker:       tracker,
		ctx:           ctx,
		cancel:        cancel,
		creds: venue.NewCredentialStore(venue.Credentials{
			AuthToken:    cfg.AuthToken,
			WalletAddr:   cfg.WalletAddr,
			MultisigAddr: cfg.MultisigAddr,
			PrivateKey:   cfg.PrivateKey,
		}),
	}

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.healthChecker,
		Supervisor:    a.supervisor,
		Storage:       a.store,
		Credentials:   a.creds,
		NewGateway:    a.newGateway,
		Launch:        a.launchStrategy,
		Balance:       a.usdtBalance,
	})

	return a, nil
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		MaxItems: cfg.MetadataCacheSize,
		Logger:   logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// setupTracker builds the balance tracker. Without a wallet address
// the dashboard simply omits the balance, so nil is not an error.
func setupTracker(cfg *config.Config, logger *zap.Logger) (*wallet.Tracker, error) {
	if cfg.WalletAddr == "" {
		logger.Info("wallet-tracker-disabled",
			zap.String("reason", "WALLET_ADDRESS not set"))
		return nil, nil
	}
	if !common.IsHexAddress(cfg.WalletAddr) {
		return nil, fmt.Errorf("invalid wallet address %q", cfg.WalletAddr)
	}

	return wallet.New(&wallet.Config{
		RPCEndpoint:  cfg.BSCRPCURL,
		Address:      common.HexToAddress(cfg.WalletAddr),
		PollInterval: walletPollInterval,
		Logger:       logger,
	})
}

// newGateway builds a venue client from the shared credentials, with
// an optional per-request token override.
func (a *App) newGateway(tokenOverride string) (venue.Gateway, error) {
	return venue.NewClient(&venue.ClientConfig{
		BaseURL:     a.cfg.VenueBaseURL,
		Credentials: a.creds.Resolve(tokenOverride),
		Logger:      a.logger,
	})
}

// launchStrategy turns a created task into its runnable strategy,
// parsing the task config and binding a gateway with the task's own
// auth token when one was supplied.
func (a *App) launchStrategy(snap *task.Snapshot) (task.StrategyFunc, error) {
	switch snap.Type {
	case task.TypeMarketMaker:
		cfg, err := strategy.ParseMarketMakerConfig(snap.Config)
		if err != nil {
			return nil, err
		}
		deps, err := a.strategyDeps(snap.ID, cfg.AuthToken)
		if err != nil {
			return nil, err
		}
		return func(stop <-chan struct{}, log task.Logger) error {
			return strategy.RunMarketMaker(deps, cfg, stop, log)
		}, nil

	case task.TypeSellShares:
		cfg, err := strategy.ParseSellSharesConfig(snap.Config)
		if err != nil {
			return nil, err
		}
		deps, err := a.strategyDeps(snap.ID, cfg.AuthToken)
		if err != nil {
			return nil, err
		}
		return func(stop <-chan struct{}, log task.Logger) error {
			return strategy.RunSellShares(deps, cfg, stop, log)
		}, nil

	case task.TypeSplitAndSell:
		cfg, err := strategy.ParseSplitAndSellConfig(snap.Config)
		if err != nil {
			return nil, err
		}
		deps, err := a.strategyDeps(snap.ID, cfg.AuthToken)
		if err != nil {
			return nil, err
		}
		return func(stop <-chan struct{}, log task.Logger) error {
			return strategy.RunSplitAndSell(deps, cfg, stop, log)
		}, nil

	default:
		return nil, fmt.Errorf("unknown task type: %s", snap.Type)
	}
}

func (a *App) strategyDeps(taskID, tokenOverride string) (*strategy.Deps, error) {
	gateway, err := a.newGateway(tokenOverride)
	if err != nil {
		return nil, err
	}

	timings := strategy.DefaultTimings()
	timings.SettlementDelay = a.cfg.SettlementDelay

	logger := a.logger.With(zap.String("task-id", taskID))
	return &strategy.Deps{
		Gateway: gateway,
		Resolver: markets.NewResolver(&markets.ResolverConfig{
			Gateway: gateway,
			Cache:   a.metaCache,
			TTL:     a.cfg.MetadataCacheTTL,
			Logger:  logger,
		}),
		Storage: a.store,
		Timings: timings,
		TaskID:  taskID,
		Logger:  logger,
	}, nil
}

// usdtBalance exposes the tracker's latest collateral snapshot to the
// status endpoint.
func (a *App) usdtBalance() (float64, bool) {
	if a.tracker == nil {
		return 0, false
	}
	balances, _, ok := a.tracker.Latest()
	if !ok {
		return 0, false
	}
	usdt, _ := balances.USDTAmount().Float64()
	return usdt, true
}
