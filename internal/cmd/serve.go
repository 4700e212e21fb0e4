package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/ugcreel/internal/observability"
	"github.com/3leaps/ugcreel/internal/server"
	"github.com/3leaps/ugcreel/internal/server/handlers"
	"github.com/3leaps/ugcreel/pkg/job"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the HTTP service exposing the composition trigger, hook generation,
the video job API, and health endpoints.

Endpoints whose provider credentials are missing are not mounted; the rest
of the service still starts.

Examples:
  ugcreel serve
  ugcreel serve --port 9000
  UGCREEL_STORE_BACKEND=file ugcreel serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override server.host")
	serveCmd.Flags().IntVar(&servePort, "port", -1, "Override server.port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration unavailable", err)
	}
	host, port := cfg.Server.Host, cfg.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort >= 0 {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := observability.ServerLogger
	store, err := openStore(ctx, cfg)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to open job store", err)
	}
	defer func() { _ = store.Close() }()

	opts := []server.Option{
		server.WithJobStore(store),
		server.WithLogger(log),
		server.WithVersion(handlers.NewVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	}

	orch, err := newOrchestrator(ctx, cfg, store, log)
	switch {
	case err == nil:
		opts = append(opts, server.WithComposer(orch, cfg.Server.ComposeTimeout))
	case errors.Is(err, errMissingCredentials):
		log.Warn("Composition endpoint disabled", zap.Error(err))
	default:
		return exitError(foundry.ExitInvalidArgument, "Failed to build orchestrator", err)
	}

	gen, err := newHookGenerator(cfg, log)
	switch {
	case err == nil:
		opts = append(opts, server.WithHookGenerator(gen))
	case errors.Is(err, errMissingCredentials):
		log.Warn("Hook endpoint disabled", zap.Error(err))
	default:
		return exitError(foundry.ExitInvalidArgument, "Failed to build hook generator", err)
	}

	health := handlers.InitHealthManager(versionInfo.Version)
	if id := GetAppIdentity(); id != nil {
		health.RegisterChecker("identity", identityHealthChecker{
			binaryName: id.BinaryName,
			envPrefix:  id.EnvPrefix,
			configName: id.ConfigName,
		})
	}
	health.RegisterChecker("job_store", storeHealthChecker{store: store})

	srv := server.New(host, port, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	log.Info("Server starting",
		zap.String("addr", srv.Addr()),
		zap.String("version", versionInfo.Version),
		zap.Duration("compose_timeout", cfg.Server.ComposeTimeout))

	if err := g.Wait(); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	log.Info("Server stopped")
	return nil
}

// identityHealthChecker verifies the app identity is complete.
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (c identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case c.binaryName == "":
		return errors.New("app identity missing binary name")
	case c.envPrefix == "":
		return errors.New("app identity missing env prefix")
	case c.configName == "":
		return errors.New("app identity missing config name")
	}
	return nil
}

// storeHealthChecker pings the job store.
type storeHealthChecker struct {
	store job.Store
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	if c.store == nil {
		return errors.New("job store not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.store.Ping(pingCtx)
}
