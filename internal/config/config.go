package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// app config, loaded from environment variables
type Config struct {
	Port   string
	AppEnv string

	// completion provider; see llm registry
	Provider string

	DBDriver   string
	SQLitePath string
	Postgres   PostgresConfig

	RedisAddr string

	JWTSecret    string
	AuthRequired bool

	STT    SpeechConfig
	TTS    SpeechConfig
	Voice  string
	Assets AssetConfig

	ScratchDir string

	// resume sources: local paths must sit under ResumeDir; empty hosts means any public host
	ResumeDir          string
	ResumeAllowedHosts []string

	InterviewDuration   time.Duration
	CompletionGrace     time.Duration
	EndGrace            time.Duration
	ExternalCallTimeout time.Duration

	MaintenanceSchedule string
	AllowedOrigins      []string
}

type PostgresConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     string
	SSLMode  string
}

// DSN builds the postgres connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}

// speech-to-text / text-to-speech endpoint settings (OpenAI compatible APIs)
type SpeechConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AssetConfig struct {
	Store           string // "local" | "s3"
	Dir             string
	BaseURL         string
	S3Bucket        string
	S3PublicBaseURL string
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	openAIKey := os.Getenv("OPENAI_API_KEY")

	config := &Config{
		Port:       getEnvOrDefault("PORT", "8080"),
		AppEnv:     getEnvOrDefault("APP_ENV", "production"),
		Provider:   getEnvOrDefault("AI_PROVIDER", "gemini"),
		DBDriver:   getEnvOrDefault("DB_DRIVER", "postgres"),
		SQLitePath: getEnvOrDefault("SQLITE_PATH", "interview.db"),
		Postgres: PostgresConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("POSTGRES_DB", "postgres"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		AuthRequired: getEnvBool("AUTH_REQUIRED", false),
		STT: SpeechConfig{
			APIKey:  getEnvOrDefault("STT_API_KEY", openAIKey),
			BaseURL: getEnvOrDefault("STT_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnvOrDefault("STT_MODEL", "whisper-1"),
		},
		TTS: SpeechConfig{
			APIKey:  getEnvOrDefault("TTS_API_KEY", openAIKey),
			BaseURL: getEnvOrDefault("TTS_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnvOrDefault("TTS_MODEL", "tts-1"),
		},
		Voice: getEnvOrDefault("TTS_VOICE", "alloy"),
		Assets: AssetConfig{
			Store:           getEnvOrDefault("ASSET_STORE", "local"),
			Dir:             getEnvOrDefault("ASSET_DIR", "./uploads"),
			BaseURL:         getEnvOrDefault("ASSET_BASE_URL", "/uploads"),
			S3Bucket:        os.Getenv("S3_BUCKET"),
			S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		ScratchDir:          getEnvOrDefault("SCRATCH_DIR", os.TempDir()),
		ResumeDir:           os.Getenv("RESUME_DIR"),
		ResumeAllowedHosts:  splitList(os.Getenv("RESUME_ALLOWED_HOSTS")),
		InterviewDuration:   getEnvDuration("INTERVIEW_DURATION", 10*time.Minute),
		CompletionGrace:     getEnvDuration("COMPLETION_GRACE", 8*time.Second),
		EndGrace:            getEnvDuration("END_GRACE", 3*time.Second),
		ExternalCallTimeout: getEnvDuration("EXTERNAL_CALL_TIMEOUT", 30*time.Second),
		MaintenanceSchedule: getEnvOrDefault("MAINTENANCE_SCHEDULE", "*/15 * * * *"),
		AllowedOrigins:      splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" && config.Provider != "openai" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini, openai")
	}
	if config.DBDriver != "postgres" && config.DBDriver != "sqlite" {
		return errors.New("unsupported DB_DRIVER: " + config.DBDriver)
	}
	if config.Assets.Store != "local" && config.Assets.Store != "s3" {
		return errors.New("unsupported ASSET_STORE: " + config.Assets.Store)
	}
	if config.Assets.Store == "s3" && config.Assets.S3Bucket == "" {
		return errors.New("S3_BUCKET is required when ASSET_STORE=s3")
	}
	if config.AuthRequired && config.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_REQUIRED=true")
	}
	if config.InterviewDuration <= 0 {
		return errors.New("INTERVIEW_DURATION must be positive")
	}
	// provider key validation is handled by the provider constructors
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
