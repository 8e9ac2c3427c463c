package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"

	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Config holds every setting read from the environment.
type Config struct {
	Port           string
	DataDir        string
	MaxUploadBytes int64
	MaxDocuments   int
	AllowedOrigins []string

	ModelProvider string
	ModelTimeout  time.Duration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	ProjectID     string
	VertexRegion  string
	VertexModel   string

	StorageBackend string
	ArtifactBucket string
	RenderPDF      bool
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds and validates a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           GetEnv("PORT", "8000"),
		DataDir:        GetEnv("DATA_DIR", "data"),
		ModelProvider:  strings.ToLower(GetEnv("MODEL_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:   GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    GetEnv("OPENAI_MODEL", "gpt-4o"),
		ProjectID:      GetEnv("PROJECT_ID", ""),
		VertexRegion:   GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:    GetEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		StorageBackend: strings.ToLower(GetEnv("STORAGE_BACKEND", StorageLocal)),
		ArtifactBucket: GetEnv("ARTIFACT_BUCKET", ""),
		AllowedOrigins: splitList(GetEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	maxUploadMB, err := parseInt("MAX_UPLOAD_MB", 25)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	maxDocs, err := parseInt("MAX_DOCUMENTS", 7)
	if err != nil {
		return nil, err
	}
	cfg.MaxDocuments = int(maxDocs)

	timeout, err := time.ParseDuration(GetEnv("MODEL_TIMEOUT", "120s"))
	if err != nil {
		return nil, errors.Wrap(err, "parse MODEL_TIMEOUT")
	}
	cfg.ModelTimeout = timeout

	renderPDF, err := strconv.ParseBool(GetEnv("RENDER_PDF", "false"))
	if err != nil {
		return nil, errors.Wrap(err, "parse RENDER_PDF")
	}
	cfg.RenderPDF = renderPDF

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve data dir")
	}
	cfg.DataDir = absDataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that cannot work at runtime. Missing model
// credentials are not checked here: they are reported per submission.
func (c *Config) Validate() error {
	switch c.ModelProvider {
	case ProviderOpenAI, ProviderVertex:
	default:
		return errors.Newf("unknown MODEL_PROVIDER %q (valid: openai, vertex)", c.ModelProvider)
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageGCS:
		if c.ArtifactBucket == "" {
			return errors.New("ARTIFACT_BUCKET must be set when STORAGE_BACKEND=gcs")
		}
	default:
		return errors.Newf("unknown STORAGE_BACKEND %q (valid: local, gcs)", c.StorageBackend)
	}
	if c.MaxDocuments < 1 {
		return errors.Newf("MAX_DOCUMENTS must be positive, got %d", c.MaxDocuments)
	}
	if c.ModelTimeout <= 0 {
		return errors.New("MODEL_TIMEOUT must be positive")
	}
	return nil
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func parseInt(key string, fallback int64) (int64, error) {
	value := GetEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return num, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
