package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultWizardSessionTTL     = 24 * time.Hour
	defaultUploadMaxBytes       = 10 << 20
	defaultProcessingTimeout    = 60 * time.Second
	defaultProxyTimeout         = 15 * time.Second
	defaultProxyMaxBytes        = 15 << 20
	defaultAdminTokenTTL        = 12 * time.Hour
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultSignedURLTTL         = 15 * time.Minute
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	PubSub      PubSubConfig
	Wizard      WizardConfig
	Processing  ProcessingConfig
	Proxy       ProxyConfig
	Admin       AdminConfig
	Share       ShareConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ProjectID    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig lists bucket names used by the application.
type StorageConfig struct {
	UploadsBucket string
	RendersBucket string
	// SignerKeyFile points at a service account JSON key used to mint
	// signed download URLs. Signed URLs are disabled when unset.
	SignerKeyFile string
	SignedURLTTL  time.Duration
}

// PubSubConfig names the topics events are published to.
type PubSubConfig struct {
	ProjectID       string
	OrderTopic      string
	PublishDisabled bool
}

// WizardConfig controls wizard session behaviour.
type WizardConfig struct {
	SessionTTL     time.Duration
	UploadMaxBytes int64
}

// ProcessingConfig points at the upstream image-processing service.
type ProcessingConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

// ProxyConfig bounds the same-origin image proxy.
type ProxyConfig struct {
	AllowedHosts []string
	Timeout      time.Duration
	MaxBytes     int64
}

// AdminConfig holds admin authentication settings.
type AdminConfig struct {
	TokenSecret    string
	TokenTTL       time.Duration
	BootstrapEmail string
}

// ShareConfig configures generated share links.
type ShareConfig struct {
	PublicBaseURL string
	ShareText     string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "VATIKA_SERVER_PORT", defaultPort),
			ProjectID:    stringWithDefault(lookup, "VATIKA_PROJECT_ID", ""),
			ReadTimeout:  durationWithDefault(lookup, "VATIKA_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "VATIKA_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "VATIKA_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "VATIKA_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "VATIKA_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			UploadsBucket: stringWithDefault(lookup, "VATIKA_STORAGE_UPLOADS_BUCKET", ""),
			RendersBucket: stringWithDefault(lookup, "VATIKA_STORAGE_RENDERS_BUCKET", ""),
			SignerKeyFile: stringWithDefault(lookup, "VATIKA_STORAGE_SIGNER_KEY_FILE", ""),
			SignedURLTTL:  durationWithDefault(lookup, "VATIKA_STORAGE_SIGNED_URL_TTL", defaultSignedURLTTL),
		},
		PubSub: PubSubConfig{
			ProjectID:       stringWithDefault(lookup, "VATIKA_PUBSUB_PROJECT_ID", ""),
			OrderTopic:      stringWithDefault(lookup, "VATIKA_PUBSUB_ORDER_TOPIC", "order-created"),
			PublishDisabled: boolWithDefault(lookup, "VATIKA_PUBSUB_DISABLED", false),
		},
		Wizard: WizardConfig{
			SessionTTL:     durationWithDefault(lookup, "VATIKA_WIZARD_SESSION_TTL", defaultWizardSessionTTL),
			UploadMaxBytes: int64WithDefault(lookup, "VATIKA_WIZARD_UPLOAD_MAX_BYTES", defaultUploadMaxBytes),
		},
		Processing: ProcessingConfig{
			Endpoint:  stringWithDefault(lookup, "VATIKA_PROCESSING_ENDPOINT", ""),
			AuthToken: stringWithDefault(lookup, "VATIKA_PROCESSING_AUTH_TOKEN", ""),
			Timeout:   durationWithDefault(lookup, "VATIKA_PROCESSING_TIMEOUT", defaultProcessingTimeout),
		},
		Proxy: ProxyConfig{
			AllowedHosts: csvWithDefault(lookup, "VATIKA_PROXY_ALLOWED_HOSTS"),
			Timeout:      durationWithDefault(lookup, "VATIKA_PROXY_TIMEOUT", defaultProxyTimeout),
			MaxBytes:     int64WithDefault(lookup, "VATIKA_PROXY_MAX_BYTES", defaultProxyMaxBytes),
		},
		Admin: AdminConfig{
			TokenSecret:    stringWithDefault(lookup, "VATIKA_ADMIN_TOKEN_SECRET", ""),
			TokenTTL:       durationWithDefault(lookup, "VATIKA_ADMIN_TOKEN_TTL", defaultAdminTokenTTL),
			BootstrapEmail: stringWithDefault(lookup, "VATIKA_ADMIN_BOOTSTRAP_EMAIL", ""),
		},
		Share: ShareConfig{
			PublicBaseURL: stringWithDefault(lookup, "VATIKA_SHARE_PUBLIC_BASE_URL", ""),
			ShareText:     stringWithDefault(lookup, "VATIKA_SHARE_TEXT", "I just made my Vatika Bestie Bottle!"),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "VATIKA_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "VATIKA_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "VATIKA_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "VATIKA_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	// Firestore and Pub/Sub projects default to the server project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Server.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Server.ProjectID
	}
	if cfg.Storage.RendersBucket == "" {
		cfg.Storage.RendersBucket = cfg.Storage.UploadsBucket
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Storage.UploadsBucket == "" {
		missing = append(missing, "Storage.UploadsBucket")
	}
	if strings.TrimSpace(cfg.Admin.TokenSecret) == "" {
		missing = append(missing, "Admin.TokenSecret")
	}
	if cfg.Wizard.SessionTTL <= 0 {
		missing = append(missing, "Wizard.SessionTTL")
	}
	if cfg.Wizard.UploadMaxBytes <= 0 {
		missing = append(missing, "Wizard.UploadMaxBytes")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
