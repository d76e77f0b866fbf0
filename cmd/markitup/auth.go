package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jonathan/markitup/internal/config"
	"github.com/jonathan/markitup/internal/server"
	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a dashboard API token signed with JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenSubject)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a dashboard password for DASHBOARD_PASSWORD_HASH",
	Long: `Reads the password from the first line of stdin and prints its bcrypt hash,
using BCRYPT_COST and PASSWORD_PEPPER from the environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		creds, err := config.NewCredentials()
		if err != nil {
			return err
		}

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			if err != nil {
				return fmt.Errorf("failed to read password from stdin: %w", err)
			}
			return fmt.Errorf("password is empty")
		}

		hash, err := creds.HashPassword(password)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", config.DefaultDashboardUsername, "Operator name carried by the token")
	rootCmd.AddCommand(tokenCmd, hashPasswordCmd)
}
