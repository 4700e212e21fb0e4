// Package cmd implements the ugcreel command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/internal/config"
	"github.com/3leaps/ugcreel/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

var (
	cfgFile  string
	logLevel string

	stateMu     sync.RWMutex
	appIdentity *config.Identity
	appConfig   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ugcreel",
	Short: "Compose UGC videos from avatar and demo clips",
	Long: `ugcreel turns a stored avatar clip, an optional product demo clip, and a
caption into one playable video on Mux.

Run the HTTP service with 'ugcreel serve', or drive single jobs from the
command line with 'ugcreel jobs submit --run' and 'ugcreel compose'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./ugcreel.yaml or ~/.config/ugcreel/ugcreel.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")
}

// SetVersionInfo records build metadata injected by main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the identity loaded by the root command, or nil.
func GetAppIdentity() *config.Identity {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return appIdentity
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	observability.Sync()
	if err == nil {
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(exitCodeOf(err))
}

func initApp(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		if err := os.Setenv(config.DefaultIdentity.EnvPrefix+"_CONFIG", cfgFile); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid --config", err)
		}
	}

	var overrides []map[string]any
	if logLevel != "" {
		overrides = append(overrides, map[string]any{"logging": map[string]any{"level": logLevel}})
	}

	cfg, err := config.Load(cmd.Context(), overrides...)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
	}
	if err := observability.Init(cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	stateMu.Lock()
	appConfig = cfg
	appIdentity = config.GetIdentity()
	stateMu.Unlock()

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("storage_mode", cfg.Storage.Mode),
		zap.String("log_level", cfg.Logging.Level))
	return nil
}

// loadedConfig returns the configuration loaded by initApp.
func loadedConfig() (*config.Config, error) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if appConfig == nil {
		return nil, errors.New("configuration not loaded")
	}
	return appConfig, nil
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}

var exitCodePattern = regexp.MustCompile(`\(exit code (\d+)\)$`)

// exitCodeOf extracts the code attached by exitError. Other errors exit 1.
func exitCodeOf(err error) int {
	if m := exitCodePattern.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 1
}

// ExitWithCode logs err and terminates the process.
func ExitWithCode(logger *zap.Logger, code int, message string, err error) {
	if logger == nil {
		logger = observability.CLILogger
	}
	logger.Error(message, zap.Int("exit_code", code), zap.Error(err))
	observability.Sync()
	os.Exit(code)
}
