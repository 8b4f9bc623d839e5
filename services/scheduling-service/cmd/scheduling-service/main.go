package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/clinicagenda/libs/config"
)

const serviceName = "scheduling-service"

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Clinic scheduling API, outbox publisher and notification worker",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "optional config file (yaml, json, toml or .env)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedHolidaysCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
