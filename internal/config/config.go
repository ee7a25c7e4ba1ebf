package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "CLEVERKIT_CONFIG_FILE"

const maxConfigFileSize = 1024 * 1024

// Config holds all configuration for the server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	AI        AIConfig
	Scraper   ScraperConfig
	Dispatch  DispatchConfig
	Google    GoogleConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	AppBaseURL      string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

// AuthConfig describes how session tokens from the hosted auth provider are verified.
type AuthConfig struct {
	JWTSecret     string
	JWTAudience   string
	SessionCookie string
}

type AIConfig struct {
	Provider          string
	InferenceTimeout  time.Duration
	RequestsPerSecond float64
	Burst             int
	Ollama            OllamaConfig
	VLLM              VLLMConfig
	OpenAI            OpenAIConfig
	Anthropic         AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type ScraperConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

type DispatchConfig struct {
	Mode           string
	QueueName      string
	EmbeddedWorker bool
	PollTimeout    time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// TokenKey is the 32-byte key used to encrypt refresh tokens at rest.
	TokenKey []byte
}

// Enabled reports whether Google Docs export is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Enabled reports whether generated documents should be archived to object storage.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

var validProviders = map[string]bool{
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

var validDispatchModes = map[string]bool{
	"inprocess": true,
	"queue":     true,
}

// Load reads configuration from an optional YAML file (CLEVERKIT_CONFIG_FILE)
// overridden by environment variables, and returns a validated Config.
// Keys are the environment variable names lowercased, e.g. database_url.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	return fromKoanf(k)
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	tokenKey, err := decodeKey(k.String("google_token_key"))
	if err != nil {
		return nil, fmt.Errorf("GOOGLE_TOKEN_KEY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            intVal(k, "cleverkit_port", 8080),
			Env:             stringVal(k, "cleverkit_env", "development"),
			AppBaseURL:      strings.TrimRight(stringVal(k, "app_base_url", "http://localhost:3000"), "/"),
			AllowedOrigins:  listVal(k, "allowed_origins", []string{"http://localhost:3000"}),
			ShutdownTimeout: durationVal(k, "shutdown_timeout", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             k.String("database_url"),
			MaxOpenConns:    intVal(k, "database_max_open_conns", 25),
			MaxIdleConns:    intVal(k, "database_max_idle_conns", 5),
			ConnMaxLifetime: durationVal(k, "database_conn_max_lifetime", 5*time.Minute),
			MigrationsDir:   stringVal(k, "database_migrations_dir", "migrations"),
		},
		Redis: RedisConfig{
			URL: k.String("redis_url"),
		},
		Auth: AuthConfig{
			JWTSecret:     k.String("auth_jwt_secret"),
			JWTAudience:   stringVal(k, "auth_jwt_audience", "authenticated"),
			SessionCookie: stringVal(k, "auth_session_cookie", "session"),
		},
		AI: AIConfig{
			Provider:          k.String("ai_provider"),
			InferenceTimeout:  durationSecsVal(k, "ai_inference_timeout_secs", 90*time.Second),
			RequestsPerSecond: floatVal(k, "ai_requests_per_second", 2),
			Burst:             intVal(k, "ai_burst", 3),
			Ollama: OllamaConfig{
				BaseURL: stringVal(k, "ollama_base_url", "http://localhost:11434"),
				Model:   stringVal(k, "ollama_model", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: stringVal(k, "vllm_base_url", "http://localhost:8000"),
				Model:   stringVal(k, "vllm_model", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey:  k.String("openai_api_key"),
				Model:   stringVal(k, "openai_model", "gpt-4o-mini"),
				BaseURL: k.String("openai_base_url"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  k.String("anthropic_api_key"),
				Model:   stringVal(k, "anthropic_model", "claude-sonnet-4-5-20250929"),
				BaseURL: stringVal(k, "anthropic_base_url", "https://api.anthropic.com"),
			},
		},
		Scraper: ScraperConfig{
			Timeout:      durationVal(k, "scraper_timeout", 20*time.Second),
			MaxBodyBytes: int64(intVal(k, "scraper_max_body_bytes", 2<<20)),
			UserAgent:    stringVal(k, "scraper_user_agent", "CleverKitBot/1.0 (+https://thecleverkit.com)"),
		},
		Dispatch: DispatchConfig{
			Mode:           stringVal(k, "dispatch_mode", "inprocess"),
			QueueName:      stringVal(k, "dispatch_queue_name", "analysis"),
			EmbeddedWorker: boolVal(k, "dispatch_embedded_worker", true),
			PollTimeout:    durationVal(k, "dispatch_poll_timeout", 5*time.Second),
		},
		Google: GoogleConfig{
			ClientID:     k.String("google_client_id"),
			ClientSecret: k.String("google_client_secret"),
			RedirectURL:  k.String("google_redirect_url"),
			TokenKey:     tokenKey,
		},
		Storage: StorageConfig{
			Endpoint:  k.String("storage_endpoint"),
			Region:    stringVal(k, "storage_region", "us-east-1"),
			Bucket:    stringVal(k, "storage_bucket", "generated-docs"),
			AccessKey: k.String("storage_access_key"),
			SecretKey: k.String("storage_secret_key"),
			UseSSL:    boolVal(k, "storage_use_ssl", true),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: intVal(k, "rate_limit_per_minute", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	if !strings.HasPrefix(c.Server.AppBaseURL, "http://") && !strings.HasPrefix(c.Server.AppBaseURL, "https://") {
		return fmt.Errorf("APP_BASE_URL must start with http:// or https://, got %q", c.Server.AppBaseURL)
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, vllm, openai, anthropic, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "vllm" && c.AI.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
	}
	if c.AI.RequestsPerSecond <= 0 {
		return fmt.Errorf("AI_REQUESTS_PER_SECOND must be positive, got %v", c.AI.RequestsPerSecond)
	}

	if !validDispatchModes[c.Dispatch.Mode] {
		return fmt.Errorf("DISPATCH_MODE must be one of inprocess, queue; got %q", c.Dispatch.Mode)
	}

	if c.Google.ClientID != "" || c.Google.ClientSecret != "" {
		if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
		}
		if c.Google.RedirectURL == "" {
			return fmt.Errorf("GOOGLE_REDIRECT_URL is required when Google export is enabled")
		}
		if len(c.Google.TokenKey) != 32 {
			return fmt.Errorf("GOOGLE_TOKEN_KEY must decode to 32 bytes when Google export is enabled")
		}
	}

	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_ENDPOINT is set")
	}

	return nil
}

// decodeKey accepts a base64 (std or url) encoded key. Empty input yields nil.
func decodeKey(v string) ([]byte, error) {
	if v == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("must be base64 encoded")
	}
	return b, nil
}

func stringVal(k *koanf.Koanf, key, defaultVal string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return defaultVal
}

func intVal(k *koanf.Koanf, key string, defaultVal int) int {
	v := k.String(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func floatVal(k *koanf.Koanf, key string, defaultVal float64) float64 {
	v := k.String(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func boolVal(k *koanf.Koanf, key string, defaultVal bool) bool {
	v := k.String(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func durationVal(k *koanf.Koanf, key string, defaultVal time.Duration) time.Duration {
	v := k.String(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func durationSecsVal(k *koanf.Koanf, key string, defaultVal time.Duration) time.Duration {
	v := k.String(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func listVal(k *koanf.Koanf, key string, defaultVal []string) []string {
	v := k.String(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
