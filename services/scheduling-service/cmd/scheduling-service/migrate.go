package main

import (
	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/clinicagenda/libs/config"
	"github.com/md-rashed-zaman/clinicagenda/libs/runtime"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Applies the embedded Postgres migrations. The sqlite driver migrates its schema on open.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := runtime.NewLogger(serviceName, config.String("LOG_LEVEL", "info"))
			ctx, stop := runtime.SignalContext()
			defer stop()

			be, err := openBackend(ctx, logger, false)
			if err != nil {
				return err
			}
			defer be.close()
			if be.pool == nil {
				logger.Info("schema is up to date")
				return nil
			}
			n, err := migratePostgres(ctx, be.pool, logger)
			if err != nil {
				return err
			}
			logger.Info("migrations complete", "applied", n)
			return nil
		},
	}
}
