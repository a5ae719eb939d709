package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var (
		dir  string
		bits int
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the RSA key pair used to sign the tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("no directory was given")
			}
			privateKey, err := rsa.GenerateKey(rand.Reader, bits)
			if err != nil {
				return err
			}
			publicBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
			if err != nil {
				return err
			}
			if err = writePEM(filepath.Join(dir, "private.pem"), "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey), 0o600); err != nil {
				return err
			}
			if err = writePEM(filepath.Join(dir, "public.pem"), "PUBLIC KEY", publicBytes, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "keys written to", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory where the keys will be stored")
	cmd.Flags().IntVar(&bits, "bits", 2048, "Key size")
	return cmd
}

func writePEM(filename, blockType string, bytes []byte, perm os.FileMode) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err = pem.Encode(file, &pem.Block{Type: blockType, Bytes: bytes}); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
