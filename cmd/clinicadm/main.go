// Command clinicadm holds the administrative tasks of the clinic service: database migrations,
// fake data seeding and the generation of password hashes and signing keys.
package main

import (
	"os"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/database"
	"vet-clinic/internal/logging"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicadm",
		Short:         "Administrative tasks of the vet clinic service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(passgenCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		logging.PrintlnError(logging.New("info", os.Stderr), err)
		os.Exit(1)
	}
}

// connect loads the configurations and opens the database connection used by the commands.
func connect() (configs.Config, database.Connection, zerolog.Logger, error) {
	if configPath == "" {
		return nil, nil, zerolog.Nop(), errNoConfig
	}
	config, err := configs.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger := logging.New(config.LogLevel(), os.Stdout)
	log.Logger = logger
	dbConn, err := database.NewConnection(config, logger)
	if err != nil {
		return nil, nil, logger, err
	}
	return config, dbConn, logger, nil
}
