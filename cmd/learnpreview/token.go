package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored GitHub token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store a GitHub token (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.SecretKey == "" {
			return errors.New("secret_key must be set to store a token")
		}

		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token: %w", err)
			}
			token = line
		}

		svc, err := newServices(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		kind, changed, err := svc.creds.SetToken(cmd.Context(), strings.TrimSpace(token))
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.OutOrStdout(), "token unchanged")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.ReplaceAll(kind.String(), "_", " "))
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored GitHub token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newServices(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		had, err := svc.creds.ClearToken(cmd.Context())
		if err != nil {
			return err
		}
		if had {
			fmt.Fprintln(cmd.OutOrStdout(), "token removed")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "no token stored")
		}
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a GitHub token is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newServices(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		stored, err := svc.creds.Stored(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case stored != nil:
			fmt.Fprintf(out, "token configured (stored, updated %s)\n", stored.UpdatedAt.UTC().Format(time.RFC3339))
		case svc.creds.HasToken():
			fmt.Fprintln(out, "token configured (from configuration)")
		default:
			fmt.Fprintln(out, "no token configured")
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd, tokenStatusCmd)
}
