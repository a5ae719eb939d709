package main

import (
	"errors"
	"fmt"
	"vet-clinic/internal/auth"

	"github.com/spf13/cobra"
)

func passgenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passgen <password>",
		Short: "Print the hash stored for the given password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("no password was given")
			}
			passHash, err := auth.EncryptPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), passHash)
			return nil
		},
	}
}
