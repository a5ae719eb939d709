package main

import (
	"errors"
	"fmt"
	"vet-clinic/internal/database"
	"vet-clinic/internal/logging"

	"github.com/spf13/cobra"
)

var errNoConfig = errors.New("no config file path was given")

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	for _, direction := range []database.Direction{database.Up, database.Down} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(direction),
			Short: fmt.Sprintf("Apply every %s migration", direction),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, dbConn, logger, err := connect()
				if err != nil {
					return err
				}
				defer dbConn.Close()
				if err = database.Migrate(dbConn, direction); err != nil {
					return err
				}
				logging.PrintlnInfo(logger, "migrations applied: ", direction)
				return nil
			},
		})
	}
	return cmd
}
