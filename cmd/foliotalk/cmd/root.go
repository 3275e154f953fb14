package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/foliotalk/foliotalk/internal/api"
	"github.com/foliotalk/foliotalk/internal/config"
	"github.com/foliotalk/foliotalk/internal/storage"
)

var (
	debug     bool
	configDir string
	logFile   *os.File // For cleanup
)

// Shared client state built by the root PersistentPreRunE
var (
	cfg    *config.Config
	paths  *storage.PathManager
	tokens *storage.TokenStore
	client *api.Client
)

var rootCmd = &cobra.Command{
	Use:   "foliotalk",
	Short: "FolioTalk - chat over your uploaded documents",
	Long: `FolioTalk is a terminal client for chatting over uploaded PDF documents.

It merges a conversation's message history with live broker delivery into
one stream, and renders the backing document in a paginated reader.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(debug)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if configDir != "" {
			paths = storage.NewPathManagerAt(configDir)
		} else {
			paths = storage.NewPathManager()
		}

		if err := setupLogging(paths, debug); err != nil {
			return err
		}

		tokens, err = storage.NewTokenStore(paths)
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}

		client = api.NewClient(cfg.API.BaseURL, tokens, api.WithTimeout(cfg.API.Timeout))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cleanupLogging()
	},
}

// setupLogging redirects verbose output to the log file so it never tears
// the TUI. Debug mode keeps logging on stderr.
func setupLogging(pm *storage.PathManager, debug bool) error {
	if debug {
		return nil
	}

	logPath, err := pm.LogPath()
	if err != nil {
		return fmt.Errorf("failed to resolve log path: %w", err)
	}

	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(logFile)
	return nil
}

func cleanupLogging() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log to stderr instead of the log file")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "override the configuration directory")
}
