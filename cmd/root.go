// Package cmd implements the MasterDom command-line client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/adapter/backend"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/config"
	store "github.com/4ERNIY-LOSOS/MasterDom/internal/repository"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/service"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/session"
)

var (
	apiURL  string
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "masterdom",
	Short: "Command-line client for the MasterDom services marketplace",
	Long: `A command-line client for the MasterDom services marketplace.

Sign in once and the bearer token is kept in local credential storage;
every other command derives your identity from it.

Quick start:
  masterdom login you@example.com     # Sign in
  masterdom chats                     # List your conversations
  masterdom chat <conversation-id>    # Read a conversation
  masterdom chat <id> -m "hello"      # Send a message`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Base URL of the MasterDom API (overrides config)")
}

// app is the client stack assembled for one command invocation.
type app struct {
	cfg   *config.Config
	creds *store.SQLiteStore
	svc   *service.Service
}

func newApp() (*app, error) {
	cfg := config.Load()
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}

	creds, err := store.NewSQLiteStore(cfg.CredentialsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential storage: %w", err)
	}

	sess := session.NewStore(creds)
	client := backend.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, sess)
	return &app{
		cfg:   cfg,
		creds: creds,
		svc:   service.New(sess, client, cfg),
	}, nil
}

func (a *app) Close() {
	a.creds.Close()
}
