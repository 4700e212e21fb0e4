package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/internal/observability"
	"github.com/3leaps/ugcreel/internal/server/handlers"
)

var hookPrompt string

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Generate caption hook text for a product",
	Long: `Generate a short opening line for a video from a product or service
description.

Examples:
  ugcreel hook --prompt "a standing desk that folds into a wall panel"`,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.Flags().StringVarP(&hookPrompt, "prompt", "p", "", "Product or service description (required)")
	_ = hookCmd.MarkFlagRequired("prompt")
}

func runHook(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}
	gen, err := newHookGenerator(cfg, observability.CLILogger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Hook generation unavailable", err)
	}
	return generateHook(cmd.Context(), gen, hookPrompt, cmd.OutOrStdout())
}

func generateHook(ctx context.Context, gen handlers.HookGenerator, prompt string, out io.Writer) error {
	if strings.TrimSpace(prompt) == "" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --prompt", errors.New("prompt is required"))
	}
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		observability.CLILogger.Error("Hook generation failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Hook generation failed", err)
	}
	_, err = fmt.Fprintln(out, text)
	return err
}
