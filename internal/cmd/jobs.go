package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/internal/observability"
	"github.com/3leaps/ugcreel/pkg/job"
)

var (
	jobsJSON       bool
	jobsRun        bool
	jobsStatus     string
	jobsLimit      int
	jobsRunTimeout time.Duration
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Create and inspect video jobs",
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit <request-file>",
	Short: "Create a processing job from a YAML or JSON request",
	Long: `Create a processing job from a video request file.

Request file:
  avatar_path: user-1/avatar.mp4     # required, in the avatar bucket
  demo_path: user-1/demo.mp4         # optional, in the demo bucket
  caption:
    text: "You won't believe this"
    position: bottom                 # top|middle|bottom
    font: sans                       # sans|serif|mono

Examples:
  ugcreel jobs submit request.yaml
  ugcreel jobs submit request.yaml --run`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsSubmit,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <video-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <video-id>",
	Short: "Delete one job record",
	Long: `Delete a job record from the job store. Mux assets and stored source clips
are not removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsDelete,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsSubmitCmd, jobsListCmd, jobsShowCmd, jobsDeleteCmd)
	jobsCmd.PersistentFlags().BoolVar(&jobsJSON, "json", false, "Output as JSON")

	jobsSubmitCmd.Flags().BoolVar(&jobsRun, "run", false, "Run the composition immediately after creating the job")
	jobsSubmitCmd.Flags().DurationVar(&jobsRunTimeout, "timeout", 0, "Bound the --run composition (default: server.compose_timeout)")

	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status (processing|completed|failed)")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum jobs to show (0 for all)")
}

func runJobsSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}

	req, err := job.LoadRequest(args[0])
	if err != nil {
		observability.CLILogger.Error("Failed to load video request", zap.String("path", args[0]), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid video request", err)
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to open job store", err)
	}
	defer func() { _ = store.Close() }()

	j := req.NewJob(uuid.NewString(), time.Now())
	if err := store.Create(ctx, j); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create job", err)
	}
	observability.CLILogger.Info("Job created", zap.String("job_id", j.ID))

	if !jobsRun {
		return printJob(cmd.OutOrStdout(), j, jobsJSON)
	}

	orch, err := newOrchestrator(ctx, cfg, store, observability.CLILogger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to build orchestrator", err)
	}
	timeout := jobsRunTimeout
	if timeout <= 0 {
		timeout = cfg.Server.ComposeTimeout
	}
	return runComposition(ctx, orch, j.ID, timeout, cmd.OutOrStdout())
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}

	opts := job.ListOptions{Status: job.Status(strings.ToLower(jobsStatus)), Limit: jobsLimit}
	if opts.Status != "" && !opts.Status.Valid() {
		return exitError(foundry.ExitInvalidArgument, "Invalid --status", fmt.Errorf("unknown status %q", jobsStatus))
	}
	if opts.Limit < 0 {
		return exitError(foundry.ExitInvalidArgument, "Invalid --limit", fmt.Errorf("limit must not be negative"))
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to open job store", err)
	}
	defer func() { _ = store.Close() }()

	jobs, err := store.List(cmd.Context(), opts)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to list jobs", err)
	}
	return printJobList(cmd.OutOrStdout(), jobs, jobsJSON)
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to open job store", err)
	}
	defer func() { _ = store.Close() }()

	j, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		if job.IsNotFound(err) {
			return exitError(foundry.ExitFileNotFound, "Job not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to read job", err)
	}
	return printJob(cmd.OutOrStdout(), j, jobsJSON)
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to open job store", err)
	}
	defer func() { _ = store.Close() }()

	return deleteJob(cmd.Context(), store, args[0], cmd.OutOrStdout(), jobsJSON)
}

func deleteJob(ctx context.Context, store job.Store, id string, w io.Writer, asJSON bool) error {
	if err := store.Delete(ctx, id); err != nil {
		switch {
		case job.IsNotFound(err):
			return exitError(foundry.ExitFileNotFound, "Job not found", err)
		case errors.Is(err, job.ErrInvalidJob):
			return exitError(foundry.ExitInvalidArgument, "Invalid job id", err)
		}
		return exitError(foundry.ExitFileWriteError, "Failed to delete job", err)
	}
	observability.CLILogger.Info("Job deleted", zap.String("job_id", id))

	if asJSON {
		return json.NewEncoder(w).Encode(map[string]any{"id": id, "deleted": true})
	}
	_, err := fmt.Fprintln(w, jobsMutedStyle.Render("Deleted job ")+id)
	return err
}

var (
	jobsTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	jobsMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	jobsOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	jobsErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	jobsBusyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	jobsPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusBadge(s job.Status) string {
	switch s {
	case job.StatusCompleted:
		return jobsOKStyle.Render(string(s))
	case job.StatusFailed:
		return jobsErrorStyle.Render(string(s))
	default:
		return jobsBusyStyle.Render(string(s))
	}
}

func printJob(w io.Writer, j *job.Job, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(j)
	}

	rows := [][2]string{
		{"Status", statusBadge(j.Status)},
		{"Avatar", j.AvatarPath},
		{"Demo", valueOr(j.DemoPath, "-")},
		{"Caption", valueOr(j.CaptionText, "-")},
		{"Position", string(j.CaptionPosition)},
		{"Font", string(j.CaptionFont)},
		{"Output", valueOr(j.OutputReference, "-")},
		{"Created", j.CreatedAt.Format(time.RFC3339)},
		{"Updated", j.UpdatedAt.Format(time.RFC3339)},
	}
	if j.ErrorMessage != "" {
		rows = append(rows, [2]string{"Error", jobsErrorStyle.Render(j.ErrorMessage)})
	}

	var b strings.Builder
	b.WriteString(jobsTitleStyle.Render("Job " + j.ID))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(jobsMutedStyle.Render(fmt.Sprintf("%-9s", r[0])))
		b.WriteString(r[1])
	}
	_, err := fmt.Fprintln(w, jobsPanelStyle.Render(b.String()))
	return err
}

func printJobList(w io.Writer, jobs []job.Job, asJSON bool) error {
	if asJSON {
		if jobs == nil {
			jobs = []job.Job{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, jobsMutedStyle.Render("No jobs found"))
		return err
	}

	const idWidth, statusWidth = 36, 10
	header := fmt.Sprintf("%-*s  %-*s  %-20s  %s", idWidth, "ID", statusWidth, "STATUS", "CREATED", "OUTPUT")
	if _, err := fmt.Fprintln(w, jobsTitleStyle.Render(header)); err != nil {
		return err
	}
	for _, j := range jobs {
		status := statusBadge(j.Status)
		pad := statusWidth - lipgloss.Width(status)
		if pad < 0 {
			pad = 0
		}
		line := fmt.Sprintf("%-*s  %s%s  %-20s  %s",
			idWidth, j.ID,
			status, strings.Repeat(" ", pad),
			j.CreatedAt.Format("2006-01-02 15:04:05"),
			valueOr(j.OutputReference, valueOr(j.ErrorMessage, "-")))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
