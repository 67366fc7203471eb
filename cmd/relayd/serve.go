package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/relaypoint/relaypoint/pkg/daemon"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the release mirror daemon",
	Long: `Start the relaypoint daemon to mirror and serve releases.

The daemon will:
  1. Load configuration from file, environment, and flags
  2. Open the local release mirror
  3. Serve the release query, download, webhook, and sync endpoints
  4. Shut down gracefully on SIGINT/SIGTERM`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "HTTP listen address")
	serveCmd.Flags().String("storage-dir", "", "release mirror storage root")
	serveCmd.Flags().String("repo-owner", "", "upstream repository owner")
	serveCmd.Flags().String("repo-name", "", "upstream repository name")

	_ = viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("storage_dir", serveCmd.Flags().Lookup("storage-dir"))
	_ = viper.BindPFlag("repo_owner", serveCmd.Flags().Lookup("repo-owner"))
	_ = viper.BindPFlag("repo_name", serveCmd.Flags().Lookup("repo-name"))
}

func runServe(cmd *cobra.Command, args []string) error {
	config := daemon.DefaultConfig()

	if v := viper.GetString("listen_addr"); v != "" {
		config.ListenAddr = v
	}
	if v := viper.GetString("storage_dir"); v != "" {
		config.StorageDir = v
	}
	if v := viper.GetString("repo_owner"); v != "" {
		config.RepoOwner = v
	}
	if v := viper.GetString("repo_name"); v != "" {
		config.RepoName = v
	}
	config.LogLevel = viper.GetString("log.level")
	config.LogFormat = viper.GetString("log.format")

	// Environment overrides win, including the secrets, which are never
	// accepted via flags.
	config.LoadFromEnv()

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	d, err := daemon.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	logger.Info("relayd running",
		zap.String("listen_addr", config.ListenAddr),
		zap.String("repo", config.RepoOwner+"/"+config.RepoName))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	return d.Stop()
}
