package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/clinicagenda/libs/config"
	"github.com/md-rashed-zaman/clinicagenda/libs/runtime"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/holidays"
)

func seedHolidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-holidays",
		Short: "Register the fixed national holidays of a year for each tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			year, _ := cmd.Flags().GetInt("year")
			tenants, _ := cmd.Flags().GetStringSlice("tenants")
			if len(tenants) == 0 {
				tenants = config.List("SEED_TENANTS")
			}
			if len(tenants) == 0 {
				return errors.New("at least one tenant is required (--tenants or SEED_TENANTS)")
			}

			logger := runtime.NewLogger(serviceName, config.String("LOG_LEVEL", "info"))
			ctx, stop := runtime.SignalContext()
			defer stop()

			be, err := openBackend(ctx, logger, config.Bool("DB_AUTO_MIGRATE", true))
			if err != nil {
				return err
			}
			defer be.close()

			n, err := holidays.NewService(be.store, nil, 0, logger).Seed(ctx, year, tenants)
			if err != nil {
				return err
			}
			logger.Info("holidays seeded", "year", year, "tenants", len(tenants), "created", n)
			return nil
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "calendar year to seed")
	cmd.Flags().StringSlice("tenants", nil, "tenant ids, comma separated")
	return cmd
}
