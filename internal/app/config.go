// Package app wires C1–C10 into a runnable service: configuration,
// component construction, and the HTTP surface. Grounded on
// internal/app/config.go's env-var-with-defaults + Validate() pattern,
// retargeted from tokenhub's routing knobs to mtcore's throttle/TM/provider
// knobs.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ProviderConfig describes one configured provider adapter instance.
type ProviderConfig struct {
	Name    string // registry name, e.g. "qwenmt-a", "deepl-free"
	Kind    string // adapter family: qwenmt|googlenmt|googlellm|deepl
	Model   string // logical model id used for cost-table lookup
	APIKey  string
	BaseURL string
	Free    bool // deepl only: registers the zero-cost tier
}

// Config is mtcore's full runtime configuration, loaded from MTCORE_* env
// vars with defaults, per SPEC_FULL.md's AMBIENT STACK section.
type Config struct {
	ListenAddr string
	LogLevel   string

	DBDSN string

	VaultEnabled  bool
	VaultPassword string

	LocalKVPath string // buntdb path for the "local" store; ":memory:" for ephemeral
	SyncURL     string // empty = "sync" store absent

	RequestLimit   int64
	TokenLimit     int64
	ThrottleWindow time.Duration

	TMMaxEntries int
	TMTTLMs      int64
	TMSync       bool

	RequestThreshold int64
	TokenThreshold   int64

	AutoTranslate bool

	ProviderTimeoutSecs int
	Providers           []ProviderConfig
	Rotation            []string

	AdminToken     string
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int

	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string

	TemporalEnabled   bool
	TemporalHostPort  string
	TemporalNamespace string
	TemporalTaskQueue string

	CredentialsFile string
}

// LoadConfig reads MTCORE_* environment variables, applying spec.md §6's
// defaults (providers/providerOrder/requestLimit/tokenLimit/tmMaxEntries/
// tmTTLms/tmSync/autoTranslate/requestThreshold/tokenThreshold).
func LoadConfig() (Config, error) {
	cfg := Config{
		ListenAddr: getEnv("MTCORE_LISTEN_ADDR", ":8090"),
		LogLevel:   getEnv("MTCORE_LOG_LEVEL", "info"),
		DBDSN:      getEnv("MTCORE_DB_DSN", "file:/data/mtcore.sqlite"),

		VaultEnabled:  getEnvBool("MTCORE_VAULT_ENABLED", true),
		VaultPassword: getEnv("MTCORE_VAULT_PASSWORD", ""),

		LocalKVPath: getEnv("MTCORE_LOCAL_KV_PATH", "/data/mtcore-local.db"),
		SyncURL:     getEnv("MTCORE_SYNC_URL", ""),

		RequestLimit:   int64(getEnvInt("MTCORE_REQUEST_LIMIT", 60)),
		TokenLimit:     int64(getEnvInt("MTCORE_TOKEN_LIMIT", 100000)),
		ThrottleWindow: time.Duration(getEnvInt("MTCORE_THROTTLE_WINDOW_SECS", 60)) * time.Second,

		TMMaxEntries: getEnvInt("MTCORE_TM_MAX_ENTRIES", 5000),
		TMTTLMs:      int64(getEnvInt("MTCORE_TM_TTL_MS", 0)),
		TMSync:       getEnvBool("MTCORE_TM_SYNC", false),

		RequestThreshold: int64(getEnvInt("MTCORE_REQUEST_THRESHOLD", 5)),
		TokenThreshold:   int64(getEnvInt("MTCORE_TOKEN_THRESHOLD", 1000)),

		AutoTranslate: getEnvBool("MTCORE_AUTO_TRANSLATE", false),

		ProviderTimeoutSecs: getEnvInt("MTCORE_PROVIDER_TIMEOUT_SECS", 30),

		AdminToken:     getEnv("MTCORE_ADMIN_TOKEN", ""),
		CORSOrigins:    getEnvStringSlice("MTCORE_CORS_ORIGINS", nil),
		RateLimitRPS:   getEnvInt("MTCORE_RATE_LIMIT_RPS", 60),
		RateLimitBurst: getEnvInt("MTCORE_RATE_LIMIT_BURST", 120),

		OTelEnabled:     getEnvBool("MTCORE_OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("MTCORE_OTEL_ENDPOINT", "localhost:4318"),
		OTelServiceName: getEnv("MTCORE_OTEL_SERVICE_NAME", "mtcore"),

		TemporalEnabled:   getEnvBool("MTCORE_TEMPORAL_ENABLED", false),
		TemporalHostPort:  getEnv("MTCORE_TEMPORAL_HOST", "localhost:7233"),
		TemporalNamespace: getEnv("MTCORE_TEMPORAL_NAMESPACE", "mtcore"),
		TemporalTaskQueue: getEnv("MTCORE_TEMPORAL_TASK_QUEUE", "mtcore-tasks"),

		CredentialsFile: getEnv("MTCORE_CREDENTIALS_FILE", defaultCredentialsPath()),
	}

	cfg.Providers = defaultProviders()
	cfg.Rotation = getEnvStringSlice("MTCORE_PROVIDER_ORDER", providerNames(cfg.Providers))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// defaultProviders constructs the canonical rotation from per-provider
// MTCORE_<NAME>_API_KEY env vars; a provider with no key configured is
// still registered (api_key_present=false in its ProviderSnapshot) so
// quota/cost reporting names it explicitly, matching the deepl-free
// always-zero-row convention in core.DefaultCostTable.
func defaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: "qwenmt", Kind: "qwenmt", Model: "qwen-mt-turbo",
			APIKey: getEnv("MTCORE_QWEN_API_KEY", ""), BaseURL: getEnv("MTCORE_QWEN_BASE_URL", "https://dashscope.aliyuncs.com/api")},
		{Name: "google-nmt", Kind: "googlenmt", Model: "google-nmt",
			APIKey: getEnv("MTCORE_GOOGLE_NMT_API_KEY", ""), BaseURL: getEnv("MTCORE_GOOGLE_NMT_BASE_URL", "https://translation.googleapis.com")},
		{Name: "google-llm", Kind: "googlellm", Model: "google-llm",
			APIKey: getEnv("MTCORE_GOOGLE_LLM_API_KEY", ""), BaseURL: getEnv("MTCORE_GOOGLE_LLM_BASE_URL", "https://generativelanguage.googleapis.com")},
		{Name: "deepl-pro", Kind: "deepl", Model: "deepl-pro", Free: false,
			APIKey: getEnv("MTCORE_DEEPL_API_KEY", ""), BaseURL: getEnv("MTCORE_DEEPL_BASE_URL", "https://api.deepl.com")},
		{Name: "deepl-free", Kind: "deepl", Model: "deepl-free", Free: true,
			APIKey: getEnv("MTCORE_DEEPL_API_KEY", ""), BaseURL: getEnv("MTCORE_DEEPL_FREE_BASE_URL", "https://api-free.deepl.com")},
	}
}

func providerNames(pcs []ProviderConfig) []string {
	out := make([]string, 0, len(pcs))
	for _, p := range pcs {
		out = append(out, p.Name)
	}
	return out
}

// Validate checks config values for obviously invalid settings, mirroring
// internal/app/config.go's Validate().
func (c Config) Validate() error {
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("MTCORE_RATE_LIMIT_RPS must be > 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("MTCORE_RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	}
	if c.ProviderTimeoutSecs <= 0 {
		return fmt.Errorf("MTCORE_PROVIDER_TIMEOUT_SECS must be > 0, got %d", c.ProviderTimeoutSecs)
	}
	if c.RequestLimit < 0 {
		return fmt.Errorf("MTCORE_REQUEST_LIMIT must be >= 0, got %d", c.RequestLimit)
	}
	if c.TokenLimit < 0 {
		return fmt.Errorf("MTCORE_TOKEN_LIMIT must be >= 0, got %d", c.TokenLimit)
	}
	if c.TMMaxEntries < 0 {
		return fmt.Errorf("MTCORE_TM_MAX_ENTRIES must be >= 0, got %d", c.TMMaxEntries)
	}
	if c.TMTTLMs < 0 {
		return fmt.Errorf("MTCORE_TM_TTL_MS must be >= 0, got %d", c.TMTTLMs)
	}
	if len(c.Rotation) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}

func defaultCredentialsPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".mtcore", "credentials")
	}
	return ""
}
