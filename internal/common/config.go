package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Extraction ExtractionConfig
	Anthropic  AnthropicConfig
	Vertex     VertexConfig
	Pipeline   PipelineConfig
	Ingest     IngestConfig
}

// ServerConfig holds listener configuration for the tool surfaces
type ServerConfig struct {
	GRPCAddr    string
	HTTPAddr    string
	CORSOrigins []string
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Driver string // memory | sqlite
}

// ExtractionConfig selects the extraction adapter and bounds its runtime
type ExtractionConfig struct {
	Adapter string // stub | rules | anthropic | vertex
	Timeout time.Duration
}

// AnthropicConfig holds settings for the Anthropic messages adapter
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// VertexConfig holds settings for the Gemini adapter on Vertex AI
type VertexConfig struct {
	Project string
	Region  string
	Model   string
}

// PipelineConfig holds processing behaviour
type PipelineConfig struct {
	// StrictValidation blocks processing when any document has validation errors.
	StrictValidation bool
}

// IngestConfig holds the optional inbox watcher settings
type IngestConfig struct {
	// InboxDir is watched for new text documents when set.
	InboxDir string
	Debounce time.Duration
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	ExtractorStub      = "stub"
	ExtractorRules     = "rules"
	ExtractorAnthropic = "anthropic"
	ExtractorVertex    = "vertex"
)

// LoadConfig loads configuration from environment variables. A .env file
// (or the file named by ENV_FILE) is read first when present; variables
// already set in the environment win.
func LoadConfig() *Config {
	loadDotEnv(getEnv("ENV_FILE", ".env"))

	return &Config{
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:    getEnv("HTTP_ADDR", ":8081"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		},
		Extraction: ExtractionConfig{
			Adapter: strings.ToLower(getEnv("EXTRACTOR", ExtractorRules)),
			Timeout: getEnvAsDuration("EXTRACT_TIMEOUT", 60*time.Second),
		},
		Anthropic: AnthropicConfig{
			APIKey:      getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:     getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			Model:       getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			Temperature: getEnvAsFloat32("ANTHROPIC_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("ANTHROPIC_MAX_TOKENS", 4000),
		},
		Vertex: VertexConfig{
			Project: getEnv("VERTEX_PROJECT", ""),
			Region:  getEnv("VERTEX_REGION", "us-central1"),
			Model:   getEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		},
		Pipeline: PipelineConfig{
			StrictValidation: getEnvAsBool("STRICT_VALIDATION", true),
		},
		Ingest: IngestConfig{
			InboxDir: getEnv("INBOX_DIR", ""),
			Debounce: getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
		},
	}
}

func loadDotEnv(path string) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("config.dotenv.load_failed", "path", path, "error", err)
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	default:
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be memory or sqlite", ErrInvalidInput)
	}
	if c.Extraction.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_TIMEOUT must be positive", ErrInvalidInput)
	}
	switch c.Extraction.Adapter {
	case ExtractorStub, ExtractorRules:
	case ExtractorAnthropic:
		if c.Anthropic.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
		}
		if c.Anthropic.MaxTokens <= 0 {
			return NewAppError("CONFIG_ERROR", "ANTHROPIC_MAX_TOKENS must be positive", ErrInvalidInput)
		}
	case ExtractorVertex:
		if c.Vertex.Project == "" || c.Vertex.Region == "" {
			return NewAppError("CONFIG_ERROR", "VERTEX_PROJECT and VERTEX_REGION are required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACTOR must be one of stub, rules, anthropic, vertex", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
