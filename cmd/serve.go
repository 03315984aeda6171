package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkarpov/opinion-mm/internal/app"
	"github.com/mkarpov/opinion-mm/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard and task supervisor",
	Long: `Starts the dashboard process, which will:
1. Serve the HTTP API for task creation, previews and trade history
2. Run trading tasks under the supervisor, one goroutine per task
3. Stream task logs over WebSocket
4. Track the wallet's BNB and USDT balances

Credentials may be absent at startup; tasks fail to start until an
auth token is provided via the environment or the Settings endpoint.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
