package main

import (
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/modern360/internal/config"
	"github.com/soaringjerry/modern360/internal/db"
	"github.com/soaringjerry/modern360/internal/utils"
)

// app is filled in before any subcommand runs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (a *app) openDB() (*sqlx.DB, error) {
	return db.Open(a.cfg.DBDriver, a.cfg.DatabaseURL)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "modern360",
		Short:         "Modern360 feedback assessment server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()
			a.logger = utils.InitLogger(utils.SafeEnv("LOG_LEVEL", "info"))
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.AddCommand(
		serve,
		newMigrateCmd(a),
		newTemplatesCmd(a),
		newQuestionsCmd(a),
		newAdminCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("modern360 failed", "err", err)
		os.Exit(1)
	}
}
