package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/secrets"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the postgres password in the OS keychain",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set-postgres-password",
	Short: "Store the postgres password (read from stdin)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, err := keyringAccount()
		if err != nil {
			return err
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		if err := secrets.SetPostgresPassword(account, strings.TrimRight(line, "\r\n")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored password for %s\n", account)
		return nil
	},
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete-postgres-password",
	Short: "Remove the postgres password from the keychain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, err := keyringAccount()
		if err != nil {
			return err
		}
		return secrets.DeletePostgresPassword(account)
	},
}

func keyringAccount() (string, error) {
	path, err := configPath()
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", err
	}
	account := cfg.KeyringAccount()
	if account == "" {
		return "", errors.New("store.postgres_url or store.keyring_account must be set")
	}
	return account, nil
}

func init() {
	secretsCmd.AddCommand(secretsSetCmd, secretsDeleteCmd)
	rootCmd.AddCommand(secretsCmd)
}
