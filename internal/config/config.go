package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	Environment    string
	LogFilePath    string
	AllowedOrigins []string
	PostgresDSN    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	SessionTTL     time.Duration

	Pipeline Pipeline
}

// Pipeline holds the settings shared by the server and the CLI: where
// completions go and the limits applied to documents and prompts.
type Pipeline struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
	ExcerptChars      int           `yaml:"excerpt_chars"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	MaxQuizQuestions  int           `yaml:"max_quiz_questions"`
	RecentSearches    int           `yaml:"recent_searches"`
	StorePath         string        `yaml:"store_path"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

func Load() *Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	return &Config{
		Port:           getenv("PORT", "8080"),
		Environment:    getenv("GO_ENV", "development"),
		LogFilePath:    getenv("LOG_FILE_PATH", "docmind.log"),
		AllowedOrigins: getenvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		MongoURI:       getenv("MONGO_URI", ""),
		MongoDB:        getenv("MONGO_DB", "docmind"),
		RedisAddr:      getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "documents"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
		SessionTTL:     getenvDuration("SESSION_TTL", 24*time.Hour),
		Pipeline:       LoadPipeline(),
	}
}

// LoadPipeline reads only the pipeline settings from the environment.
func LoadPipeline() Pipeline {
	return Pipeline{
		Provider:          getenv("COMPLETION_PROVIDER", ProviderOpenAI),
		BaseURL:           getenv("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
		APIKey:            getenv("COMPLETION_API_KEY", ""),
		Model:             getenv("COMPLETION_MODEL", "gpt-3.5-turbo-0125"),
		CompletionTimeout: getenvDuration("COMPLETION_TIMEOUT", 60*time.Second),
		ExcerptChars:      getenvInt("EXCERPT_CHARS", 6000),
		MaxUploadBytes:    getenvInt64("MAX_UPLOAD_BYTES", 25<<20),
		AllowedExtensions: extensions(getenvList("ALLOWED_EXTENSIONS", []string{".pdf", ".doc", ".docx", ".ppt", ".pptx"})),
		MaxQuizQuestions:  getenvInt("MAX_QUIZ_QUESTIONS", 10),
		RecentSearches:    getenvInt("RECENT_SEARCHES", 5),
		StorePath:         getenv("DOCMIND_STORE", "docmind.db"),
	}
}

// Overlay replaces pipeline settings with any non-zero values found in the
// YAML file at path.
func (p *Pipeline) Overlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var file Pipeline
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if file.Provider != "" {
		p.Provider = file.Provider
	}
	if file.BaseURL != "" {
		p.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		p.APIKey = file.APIKey
	}
	if file.Model != "" {
		p.Model = file.Model
	}
	if file.CompletionTimeout != 0 {
		p.CompletionTimeout = file.CompletionTimeout
	}
	if file.ExcerptChars != 0 {
		p.ExcerptChars = file.ExcerptChars
	}
	if file.MaxUploadBytes != 0 {
		p.MaxUploadBytes = file.MaxUploadBytes
	}
	if len(file.AllowedExtensions) > 0 {
		p.AllowedExtensions = extensions(file.AllowedExtensions)
	}
	if file.MaxQuizQuestions != 0 {
		p.MaxQuizQuestions = file.MaxQuizQuestions
	}
	if file.RecentSearches != 0 {
		p.RecentSearches = file.RecentSearches
	}
	if file.StorePath != "" {
		p.StorePath = file.StorePath
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (p Pipeline) Validate() error {
	switch p.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown completion provider %q", p.Provider)
	}
	if p.CompletionTimeout <= 0 {
		return errors.New("completion timeout must be positive")
	}
	if p.ExcerptChars <= 0 {
		return errors.New("excerpt budget must be positive")
	}
	if p.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	if p.MaxQuizQuestions <= 0 {
		return errors.New("max quiz questions must be positive")
	}
	if p.RecentSearches <= 0 {
		return errors.New("recent search capacity must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// extensions lowercases each entry and gives it a leading dot.
func extensions(list []string) []string {
	out := make([]string, 0, len(list))
	for _, ext := range list {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
