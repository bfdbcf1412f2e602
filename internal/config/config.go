package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB        DBConfig
	MinIO     MinIOConfig
	JWT       JWTConfig
	Server    ServerConfig
	Redis     RedisConfig
	Limits    LimitsConfig
	Discord   DiscordConfig
	Editor    EditorConfig
	Audit     AuditConfig
	Telemetry TelemetryConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// ServerConfig covers the HTTP server. EncryptionSecret seals linked-account
// OAuth tokens at rest and VisitTokenSecret signs public visit tokens; both
// fall back to the JWT secret.
type ServerConfig struct {
	Port             string
	AllowedOrigins   string
	FrontendURL      string
	EncryptionSecret string
	VisitTokenSecret string
	LogLevel         string
}

// RedisConfig is optional. With no address the asset cache and the visit
// ledger stay in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type LimitsConfig struct {
	FreeUploads      int
	PremiumUploads   int
	MaxUploadBytes   int64
	FreeLinks        int
	PremiumLinks     int
	AssetPageSize    int
	AssetCacheTTL    time.Duration
	TemplatesPerUser int
}

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BotToken     string
	APIBaseURL   string
	Timeout      time.Duration
}

func (d DiscordConfig) OAuthEnabled() bool {
	return d.ClientID != "" && d.ClientSecret != ""
}

type EditorConfig struct {
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration
}

type AuditConfig struct {
	ExportInterval time.Duration
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	Insecure     bool
}

// Load reads .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "change-me-in-production")

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "persona"),
			Password: getEnv("DB_PASSWORD", "persona_secret"),
			Name:     getEnv("DB_NAME", "persona"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "persona"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "persona_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "persona-vault"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          jwtSecret,
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", "8080"),
			AllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			FrontendURL:      strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
			EncryptionSecret: getEnv("ENCRYPTION_SECRET", jwtSecret),
			VisitTokenSecret: getEnv("VISIT_TOKEN_SECRET", jwtSecret),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Limits: LimitsConfig{
			FreeUploads:      getEnvAsInt("LIMIT_FREE_UPLOADS", 10),
			PremiumUploads:   getEnvAsInt("LIMIT_PREMIUM_UPLOADS", 50),
			MaxUploadBytes:   int64(getEnvAsInt("LIMIT_MAX_UPLOAD_MB", 25)) << 20,
			FreeLinks:        getEnvAsInt("LIMIT_FREE_LINKS", 5),
			PremiumLinks:     getEnvAsInt("LIMIT_PREMIUM_LINKS", 15),
			AssetPageSize:    getEnvAsInt("ASSET_PAGE_SIZE", 8),
			AssetCacheTTL:    getEnvAsDuration("ASSET_CACHE_TTL", 5*time.Minute),
			TemplatesPerUser: getEnvAsInt("LIMIT_TEMPLATES", 20),
		},
		Discord: DiscordConfig{
			ClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			ClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("DISCORD_REDIRECT_URL", "http://localhost:8080/api/platform/discord/callback"),
			BotToken:     getEnv("DISCORD_BOT_TOKEN", ""),
			APIBaseURL:   strings.TrimRight(getEnv("DISCORD_API_BASE_URL", "https://discord.com/api/v10"), "/"),
			Timeout:      getEnvAsDuration("DISCORD_TIMEOUT", 10*time.Second),
		},
		Editor: EditorConfig{
			SessionIdleTTL: getEnvAsDuration("EDITOR_SESSION_IDLE_TTL", 30*time.Minute),
			SweepInterval:  getEnvAsDuration("EDITOR_SWEEP_INTERVAL", 5*time.Minute),
		},
		Audit: AuditConfig{
			ExportInterval: getEnvAsDuration("AUDIT_EXPORT_INTERVAL", 1*time.Hour),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "persona-api"),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
