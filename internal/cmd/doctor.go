package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/internal/config"
	errwrap "github.com/3leaps/ugcreel/internal/errors"
	"github.com/3leaps/ugcreel/internal/observability"
)

var doctorStorage bool

// imdsProbeTimeout keeps the metadata probe short off EC2.
const imdsProbeTimeout = 2 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment, configuration, job store, and
provider credentials, and suggest fixes for common issues.

Examples:
  ugcreel doctor             # Environment and configuration checks
  ugcreel doctor --storage   # Add S3 credential and region checks`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorStorage, "storage", false, "Run S3 storage checks")
}

func runDoctor(cmd *cobra.Command, args []string) {
	identity := GetAppIdentity()
	bannerName := "doctor"
	if identity != nil && identity.BinaryName != "" {
		bannerName = identity.BinaryName + " doctor"
	}
	observability.CLILogger.Info("=== " + bannerName + " ===")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Running diagnostic checks...")
	observability.CLILogger.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 8
	if doctorStorage {
		totalChecks = 11
	}

	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Go version... ✅ %s", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
		allChecks = false
	}
	checkNum++

	version := crucible.GetVersion()
	if version.Crucible != "" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Crucible access... ✅ v%s", checkNum, totalChecks, version.Crucible),
			zap.String("crucible_version", version.Crucible))
	} else {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking Crucible access... ❌ Cannot access Crucible", checkNum, totalChecks))
		ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible",
			errwrap.NewExternalServiceError("Crucible service unavailable"))
		allChecks = false
	}
	checkNum++

	configDir, err := os.UserConfigDir()
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking config directory... ❌ Cannot find config directory", checkNum, totalChecks),
			zap.Error(err))
		ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot find config directory",
			errwrap.WrapInternal(cmd.Context(), err, "Cannot find config directory"))
		allChecks = false
	} else {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking config directory... ✅ %s", checkNum, totalChecks, configDir),
			zap.String("config_dir", configDir))
	}
	checkNum++

	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))
	checkNum++

	cfg, err := loadedConfig()
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking configuration... ❌ %v", checkNum, totalChecks, err))
		ExitWithCode(observability.CLILogger, foundry.ExitInvalidArgument, "Configuration unavailable", err)
		return
	}
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ store=%s storage=%s", checkNum, totalChecks, cfg.Store.Backend, cfg.Storage.Mode))
	checkNum++

	if !checkJobStore(cmd.Context(), cfg, checkNum, totalChecks) {
		allChecks = false
	}
	checkNum++

	if cfg.Mux.TokenID != "" && cfg.Mux.TokenSecret != "" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Mux credentials... ✅ token %s", checkNum, totalChecks, maskAccessKey(cfg.Mux.TokenID)))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking Mux credentials... ⚠️  not set (MUX_TOKEN_ID, MUX_TOKEN_SECRET); composition is disabled", checkNum, totalChecks))
		allChecks = false
	}
	checkNum++

	if cfg.Hook.APIKey != "" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking hook API key... ✅ %s", checkNum, totalChecks, maskAccessKey(cfg.Hook.APIKey)))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking hook API key... ⚠️  not set (REPLICATE_API_KEY); hook generation is disabled", checkNum, totalChecks))
	}
	checkNum++

	if doctorStorage {
		allChecks = runStorageChecks(cmd.Context(), cfg, checkNum, totalChecks, allChecks)
	}

	observability.CLILogger.Info("")
	if allChecks {
		observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", bannerName))
	} else {
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")
}

func checkJobStore(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) bool {
	store, err := openStore(ctx, cfg)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking job store... ❌ Cannot open %s store", checkNum, totalChecks, cfg.Store.Backend),
			zap.Error(err))
		return false
	}
	defer func() { _ = store.Close() }()

	if err := store.Ping(ctx); err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking job store... ❌ Ping failed", checkNum, totalChecks),
			zap.Error(err))
		return false
	}
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking job store... ✅ %s", checkNum, totalChecks, cfg.Store.Backend))
	return true
}

// runStorageChecks runs S3 credential and region checks.
func runStorageChecks(ctx context.Context, cfg *config.Config, checkNum, totalChecks int, allChecks bool) bool {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("S3 Storage Checks:")

	if !strings.EqualFold(cfg.Storage.Mode, "s3") {
		observability.CLILogger.Info(fmt.Sprintf("storage.mode is %q; S3 checks are informational", cfg.Storage.Mode))
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if p := cfg.Storage.S3.Profile; p != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(p))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot load AWS config", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	accessKey, source := cfg.Storage.S3.AccessKeyID, "ugcreel config"
	if accessKey == "" {
		creds, err := awsCfg.Credentials.Retrieve(ctx)
		if err != nil {
			observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot retrieve credentials", checkNum, totalChecks),
				zap.Error(err))
			printAWSCredentialsHelp()
			return false
		}
		accessKey, source = creds.AccessKeyID, creds.Source
	}
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking AWS credentials... ✅ Found credentials", checkNum, totalChecks),
		zap.String("access_key", maskAccessKey(accessKey)),
		zap.String("source", source))
	checkNum++

	if source == "" {
		source = "unknown"
	}
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking credential source... ✅ %s", checkNum, totalChecks, source),
		zap.String("credential_source", source))
	checkNum++

	region, origin := resolveDoctorRegion(ctx, cfg.Storage.S3.Region, awsCfg.Region, func(ctx context.Context) (string, error) {
		out, err := imds.NewFromConfig(awsCfg).GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return "", err
		}
		return out.Region, nil
	})
	if region == "" {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking region... ⚠️  not set; presigned URLs fall back to us-east-1", checkNum, totalChecks))
	} else {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking region... ✅ %s (%s)", checkNum, totalChecks, region, origin),
			zap.String("region", region))
	}

	return allChecks
}

// resolveDoctorRegion prefers explicit config, then the SDK chain, then EC2
// instance metadata.
func resolveDoctorRegion(ctx context.Context, configured, sdk string, fromIMDS func(context.Context) (string, error)) (string, string) {
	if configured != "" {
		return configured, "storage.s3.region"
	}
	if sdk != "" {
		return sdk, "aws config"
	}
	if fromIMDS == nil {
		return "", ""
	}
	probeCtx, cancel := context.WithTimeout(ctx, imdsProbeTimeout)
	defer cancel()
	region, err := fromIMDS(probeCtx)
	if err != nil || region == "" {
		observability.CLILogger.Debug("Instance metadata region unavailable", zap.Error(err))
		return "", ""
	}
	return region, "instance metadata"
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To configure AWS credentials:")
	observability.CLILogger.Info("  1. Set UGCREEL_S3_ACCESS_KEY_ID and UGCREEL_S3_SECRET_ACCESS_KEY, or")
	observability.CLILogger.Info("  2. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or")
	observability.CLILogger.Info("  3. Run 'aws configure' and set UGCREEL_S3_PROFILE")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("For S3-compatible storage (MinIO, Supabase storage), also set:")
	observability.CLILogger.Info("  - UGCREEL_S3_ENDPOINT and UGCREEL_S3_FORCE_PATH_STYLE=true")
	observability.CLILogger.Info("")
}
