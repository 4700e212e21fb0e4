package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Identity names the application for env and config file lookup.
type Identity struct {
	BinaryName string
	EnvPrefix  string
	ConfigName string
}

// DefaultIdentity is the ugcreel identity.
var DefaultIdentity = Identity{BinaryName: "ugcreel", EnvPrefix: "UGCREEL", ConfigName: "ugcreel"}

// EnvSpec maps one environment variable onto a config path.
type EnvSpec struct {
	Name    string
	Path    string
	Aliases []string
}

var (
	configMu    sync.RWMutex
	appConfig   *Config
	appIdentity *Identity
)

// Load builds configuration. Precedence: overrides > env > file > defaults.
//
// The config file is read from $UGCREEL_CONFIG when set, otherwise
// ugcreel.yaml in the working directory or the user config directory.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configMu.Lock()
	if appIdentity == nil {
		id := DefaultIdentity
		appIdentity = &id
	}
	configMu.Unlock()

	v := viper.New()
	SetDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	for _, spec := range getEnvSpecs() {
		names := append([]string{spec.Name}, spec.Aliases...)
		if err := v.BindEnv(append([]string{spec.Path}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, value := range flatten("", o) {
			v.Set(key, value)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// GetIdentity returns the active identity, or nil before Load.
func GetIdentity() *Identity {
	configMu.RLock()
	defer configMu.RUnlock()
	return appIdentity
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.compose_timeout", "4m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("health.enabled", true)

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.dir", defaultDataPath("jobs"))
	v.SetDefault("store.path", defaultDataPath("ugcreel.db"))
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("storage.mode", "public")
	v.SetDefault("storage.public_base_url", "http://localhost:54321/storage/v1/object/public")
	v.SetDefault("storage.avatar_bucket", "aiugcavatars")
	v.SetDefault("storage.demo_bucket", "demo_videos")
	v.SetDefault("storage.allowed_paths", []string{})
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.profile", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.force_path_style", false)
	v.SetDefault("storage.s3.check_exists", true)
	v.SetDefault("storage.s3.public", false)
	v.SetDefault("storage.s3.presign_ttl", "1h")

	v.SetDefault("mux.token_id", "")
	v.SetDefault("mux.token_secret", "")
	v.SetDefault("mux.base_url", "https://api.mux.com")
	v.SetDefault("mux.timeout", "30s")
	v.SetDefault("mux.playback_policy", "public")
	v.SetDefault("mux.test", false)

	v.SetDefault("poll.interval", "2s")
	v.SetDefault("poll.max_attempts", 30)

	v.SetDefault("hook.api_key", "")
	v.SetDefault("hook.base_url", "https://api.replicate.com")
	v.SetDefault("hook.model", "deepseek-ai/deepseek-r1")
	v.SetDefault("hook.timeout", "30s")
}

// getEnvSpecs lists every supported environment variable. Empty before an
// identity is set.
func getEnvSpecs() []EnvSpec {
	configMu.RLock()
	id := appIdentity
	configMu.RUnlock()
	if id == nil {
		return nil
	}

	p := id.EnvPrefix + "_"
	return []EnvSpec{
		{Name: p + "HOST", Path: "server.host"},
		{Name: p + "PORT", Path: "server.port"},
		{Name: p + "READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: p + "WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: p + "IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: p + "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: p + "COMPOSE_TIMEOUT", Path: "server.compose_timeout"},
		{Name: p + "LOG_LEVEL", Path: "logging.level"},
		{Name: p + "LOG_PROFILE", Path: "logging.profile"},
		{Name: p + "HEALTH_ENABLED", Path: "health.enabled"},
		{Name: p + "STORE_BACKEND", Path: "store.backend"},
		{Name: p + "STORE_DIR", Path: "store.dir"},
		{Name: p + "STORE_PATH", Path: "store.path"},
		{Name: p + "STORE_URL", Path: "store.url"},
		{Name: p + "STORE_AUTH_TOKEN", Path: "store.auth_token"},
		{Name: p + "STORAGE_MODE", Path: "storage.mode"},
		{Name: p + "STORAGE_PUBLIC_BASE_URL", Path: "storage.public_base_url"},
		{Name: p + "AVATAR_BUCKET", Path: "storage.avatar_bucket"},
		{Name: p + "DEMO_BUCKET", Path: "storage.demo_bucket"},
		{Name: p + "ALLOWED_PATHS", Path: "storage.allowed_paths"},
		{Name: p + "S3_REGION", Path: "storage.s3.region"},
		{Name: p + "S3_ENDPOINT", Path: "storage.s3.endpoint"},
		{Name: p + "S3_PROFILE", Path: "storage.s3.profile"},
		{Name: p + "S3_ACCESS_KEY_ID", Path: "storage.s3.access_key_id"},
		{Name: p + "S3_SECRET_ACCESS_KEY", Path: "storage.s3.secret_access_key"},
		{Name: p + "S3_FORCE_PATH_STYLE", Path: "storage.s3.force_path_style"},
		{Name: p + "S3_CHECK_EXISTS", Path: "storage.s3.check_exists"},
		{Name: p + "S3_PUBLIC", Path: "storage.s3.public"},
		{Name: p + "S3_PRESIGN_TTL", Path: "storage.s3.presign_ttl"},
		{Name: p + "MUX_TOKEN_ID", Path: "mux.token_id", Aliases: []string{"MUX_TOKEN_ID"}},
		{Name: p + "MUX_TOKEN_SECRET", Path: "mux.token_secret", Aliases: []string{"MUX_TOKEN_SECRET"}},
		{Name: p + "MUX_BASE_URL", Path: "mux.base_url"},
		{Name: p + "MUX_TIMEOUT", Path: "mux.timeout"},
		{Name: p + "MUX_PLAYBACK_POLICY", Path: "mux.playback_policy"},
		{Name: p + "MUX_TEST", Path: "mux.test"},
		{Name: p + "POLL_INTERVAL", Path: "poll.interval"},
		{Name: p + "POLL_MAX_ATTEMPTS", Path: "poll.max_attempts"},
		{Name: p + "HOOK_API_KEY", Path: "hook.api_key", Aliases: []string{"REPLICATE_API_KEY"}},
		{Name: p + "HOOK_BASE_URL", Path: "hook.base_url"},
		{Name: p + "HOOK_MODEL", Path: "hook.model"},
		{Name: p + "HOOK_TIMEOUT", Path: "hook.timeout"},
	}
}

func readConfigFile(v *viper.Viper) error {
	configMu.RLock()
	id := appIdentity
	configMu.RUnlock()

	if explicit := strings.TrimSpace(os.Getenv(id.EnvPrefix + "_CONFIG")); explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName(id.ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range getUserConfigPaths() {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// getUserConfigPaths returns per-user config directories. Empty before an
// identity is set.
func getUserConfigPaths() []string {
	configMu.RLock()
	id := appIdentity
	configMu.RUnlock()
	if id == nil {
		return nil
	}

	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, id.ConfigName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", id.ConfigName))
	}
	return paths
}

func defaultDataPath(name string) string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ugcreel", name)
	}
	return filepath.Join(".ugcreel", name)
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := map[string]any{}
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
