package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/clinicagenda/libs/config"
	"github.com/md-rashed-zaman/clinicagenda/libs/runtime"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/consumer"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/notify"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume appointment events and send patient e-mails",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := runtime.NewLogger(config.String("SERVICE_NAME", serviceName+"-worker"), config.String("LOG_LEVEL", "info"))
			brokers := config.String("KAFKA_BROKERS", "")
			if brokers == "" {
				return errors.New("KAFKA_BROKERS is required")
			}
			smtpHost, err := config.RequiredString("SMTP_HOST")
			if err != nil {
				return err
			}
			smtpPort, err := config.Port("SMTP_PORT", "25")
			if err != nil {
				return err
			}

			ctx, stop := runtime.SignalContext()
			defer stop()
			defer setupTracing(ctx, logger)()

			be, err := openBackend(ctx, logger, config.Bool("DB_AUTO_MIGRATE", true))
			if err != nil {
				return err
			}
			defer be.close()

			notifier := notify.NewNotifier(notify.NewSMTPSender(smtpHost, smtpPort, config.String("SMTP_FROM", "")), logger)
			c := consumer.New(logger, be.inbox, consumer.Config{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", "scheduling-notifier"),
				Topics:  notify.Topics,
			}, notifier.Handle)

			logger.Info("notification worker starting", "topics", notify.Topics)
			c.Run(ctx)
			logger.Info("notification worker stopped")
			return nil
		},
	}
}
