package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/venue"
	"github.com/mkarpov/opinion-mm/pkg/config"
)

// loadConfig reads .env when present, then the environment.
func loadConfig() (*config.Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newGateway builds a one-shot venue client from the environment
// credentials, for the account utility commands.
func newGateway(cfg *config.Config, logger *zap.Logger) (venue.Gateway, error) {
	client, err := venue.NewClient(&venue.ClientConfig{
		BaseURL: cfg.VenueBaseURL,
		Credentials: venue.Credentials{
			AuthToken:    cfg.AuthToken,
			WalletAddr:   cfg.WalletAddr,
			MultisigAddr: cfg.MultisigAddr,
			PrivateKey:   cfg.PrivateKey,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create venue client: %w", err)
	}
	return client, nil
}
