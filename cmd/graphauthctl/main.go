// Command graphauthctl operates on the delegated-token store from the
// command line: connection status per principal, explicit disconnects, and
// the maintenance sweep that refreshes tokens nearing expiry. The sweep uses
// the exact same refresh path as interactive status evaluation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	graphauth "github.com/pilr/team-summary-sub000"
	"github.com/pilr/team-summary-sub000/internal/config"
	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/provider/microsoft"
	"github.com/pilr/team-summary-sub000/storage/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "graphauthctl",
		Short:         "Manage delegated Microsoft Graph tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to the configuration file")

	root.AddCommand(
		newStatusCmd(&configPath),
		newSweepCmd(&configPath),
		newDisconnectCmd(&configPath),
		newAuthURLCmd(&configPath),
	)
	return root
}

// buildManager wires the manager and store from process configuration.
func buildManager(configPath string) (*graphauth.Manager, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := sqlite.New(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, err
	}

	msProvider, err := microsoft.NewProvider(&microsoft.Config{
		RedirectURL: cfg.Auth.RedirectURL,
	})
	if err != nil {
		return nil, nil, err
	}

	manager, err := graphauth.NewManager(msProvider, store, store, &graphauth.Config{
		DefaultCredentials: provider.Credentials{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Tenant:       cfg.Auth.Tenant,
		},
		SweepWindow:        cfg.Sweep.Window,
		SweepConcurrency:   cfg.Sweep.Concurrency,
		EnableAuditLogging: true,
		Logger:             logger,
	})
	if err != nil {
		return nil, nil, err
	}

	return manager, func() {}, nil
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <principal-id>",
		Short: "Report a principal's connection status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			status := manager.Status(ctx, args[0])
			fmt.Printf("state: %s\n", status.State)
			if !status.ExpiresAt.IsZero() {
				fmt.Printf("expires_at: %s\n", status.ExpiresAt.Format(time.RFC3339))
			}
			if status.Err != nil {
				fmt.Printf("detail: %v\n", status.Err)
			}
			return nil
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Refresh all tokens nearing expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			result, err := manager.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("candidates: %d\nrefreshed: %d\nfailed: %d\nskipped: %d\n",
				result.Candidates, result.Refreshed, result.Failed, result.Skipped)
			return nil
		},
	}
}

func newDisconnectCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <principal-id>",
		Short: "Delete a principal's delegated token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := manager.Disconnect(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("disconnected")
			return nil
		},
	}
}

func newAuthURLCmd(configPath *string) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "authurl <principal-id>",
		Short: "Print the provider consent URL for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			url, err := manager.AuthorizationURL(ctx, args[0], state)
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "anti-CSRF state parameter (required)")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}
