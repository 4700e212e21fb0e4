package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/internal/observability"
	"github.com/3leaps/ugcreel/pkg/compose"
	"github.com/3leaps/ugcreel/pkg/job"
	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/pkg/provider"
)

var composeTimeout time.Duration

var composeCmd = &cobra.Command{
	Use:   "compose <video-id>",
	Short: "Run the composition workflow for one job",
	Long: `Run the composition workflow for an existing job and record its terminal
state. The result is printed as JSON on stdout.

Examples:
  ugcreel compose 5b7c1e2a-...
  ugcreel compose 5b7c1e2a-... --timeout 10m`,
	Args: cobra.ExactArgs(1),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)
	composeCmd.Flags().DurationVar(&composeTimeout, "timeout", 0, "Bound the run (default: server.compose_timeout)")
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to open job store", err)
	}
	defer func() { _ = store.Close() }()

	orch, err := newOrchestrator(cmd.Context(), cfg, store, observability.CLILogger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to build orchestrator", err)
	}

	timeout := composeTimeout
	if timeout <= 0 {
		timeout = cfg.Server.ComposeTimeout
	}
	return runComposition(cmd.Context(), orch, args[0], timeout, cmd.OutOrStdout())
}

// runComposition runs one job and prints the result.
func runComposition(ctx context.Context, runner compose.Runner, jobID string, timeout time.Duration, out io.Writer) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := runner.Run(ctx, jobID)
	if err != nil {
		observability.CLILogger.Error("Composition failed",
			zap.String("job_id", jobID),
			zap.String("stage", string(compose.FailedStage(err))),
			zap.Error(err))
		return exitError(composeExitCode(err), "Composition failed", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// composeExitCode maps workflow errors onto foundry exit codes.
func composeExitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return foundry.ExitSignalInt
	case job.IsNotFound(err), objectstore.IsSourceUnresolvable(err):
		return foundry.ExitFileNotFound
	case compose.IsPersistenceError(err):
		return foundry.ExitFileWriteError
	case provider.IsRemoteProviderError(err), provider.IsAssetProcessingFailed(err), provider.IsAssetTimeout(err),
		errors.Is(err, context.DeadlineExceeded):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitInvalidArgument
	}
}
