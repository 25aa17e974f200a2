package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/refixhq/refix-cli/internal/backend"
	"github.com/refixhq/refix-cli/internal/config"
	"github.com/refixhq/refix-cli/internal/output"
	"github.com/refixhq/refix-cli/internal/prefs"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	cfg       config.Config
	apiClient *backend.Client
	prefStore prefs.Store

	verbose bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "refix",
	Short: "Refix - AI-assisted code review from your terminal",
	Long: `refix submits code to the Refix review service, where multiple AI models
review it in parallel. It renders their suggestions, applies fixes, generates
and runs tests for them, and manages your review projects.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/refix/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "refix")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REFIX")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "refix")

	viper.SetDefault("api.base_url", "https://api.refix.dev")
	viper.SetDefault("api.key", "")
	viper.SetDefault("api.timeout", 60*time.Second)
	viper.SetDefault("auth.token", "")
	viper.SetDefault("auth.user_id", "")
	viper.SetDefault("workbench.detect_quiet", 400*time.Millisecond)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "refix.db"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	cfg = config.FromViper()
	apiClient = backend.New(cfg)
}

// getPrefs returns the local preferences store, initializing it on first call.
// It is lazy so config/version commands run without touching the db.
func getPrefs() (prefs.Store, error) {
	if prefStore != nil {
		return prefStore, nil
	}

	s, err := prefs.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	prefStore = s
	return prefStore, nil
}
