package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"RendaBot/internal/secret"
)

var sealUser string

var sealCmd = &cobra.Command{
	Use:   "seal <digits>",
	Short: "Encrypt a transaction signature for the filter configuration",
	Long: `Prints the ciphertext to store in the "assinatura" column. It is
encrypted with the user id, the same way the configuration page does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := sealSignature(args[0], sealUser)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ct)
		return nil
	},
}

func init() {
	sealCmd.Flags().StringVar(&sealUser, "user", "", "user id the signature belongs to")
	rootCmd.AddCommand(sealCmd)
}

func sealSignature(digits, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("--user is required")
	}
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", fmt.Errorf("signature must be digits only")
	}
	return secret.Encrypt(digits, userID)
}
