package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string
	// Store selects the credential store backend: "postgres" or "memory".
	Store string

	JWTSecret       string
	JWTTTLMinutes   int
	RequireVerified bool

	MailDelivery  string // "log" | "smtp"
	MailAPIKey    string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	MailFrom      string
	PublicBaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AvatarStore    string // "local" | "s3"
	AvatarDir      string
	UploadTmpDir   string
	MaxUploadBytes int64
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	OTLPEndpoint string
	CORSOrigins  []string
	SeedEmail    string
	SeedPassword string

	WorkerPollInterval time.Duration
	WorkerConcurrency  int
	WorkerHealthPort   int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 3000),
		DBURL: getEnv("DATABASE_URL", buildDBURL()),
		Store: getEnv("STORE", "postgres"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTTTLMinutes:   getEnvInt("JWT_TTL_MINUTES", 60),
		RequireVerified: getEnvBool("AUTH_REQUIRE_VERIFIED", true),

		MailDelivery:  getEnv("MAIL_DELIVERY", "log"),
		MailAPIKey:    os.Getenv("MAIL_API_KEY"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.sendgrid.net"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", "apikey"),
		MailFrom:      getEnv("MAIL_FROM", "no-reply@contacthub.local"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AvatarStore:    getEnv("AVATAR_STORE", "local"),
		AvatarDir:      getEnv("AVATAR_DIR", "public/avatars"),
		UploadTmpDir:   getEnv("UPLOAD_TMP_DIR", "tmp"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:    strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SeedEmail:    os.Getenv("SEED_EMAIL"),
		SeedPassword: os.Getenv("SEED_PASSWORD"),

		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerHealthPort:   getEnvInt("WORKER_HEALTH_PORT", 8081),
	}
}

// Validate rejects configurations the API cannot run safely with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		if c.Env != "dev" && c.Env != "test" {
			return errors.New("JWT_SECRET is required")
		}
	}

	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.AvatarStore {
	case "local":
	case "s3":
		if c.S3Bucket == "" || c.S3PublicURL == "" {
			return errors.New("S3_BUCKET and S3_PUBLIC_URL are required when AVATAR_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown AVATAR_STORE %q", c.AvatarStore)
	}

	if c.MailDelivery == "smtp" && c.MailAPIKey == "" {
		return errors.New("MAIL_API_KEY is required when MAIL_DELIVERY=smtp")
	}

	return nil
}

// SigningSecret returns the JWT secret, falling back to a fixed development
// value so `APP_ENV=dev` works without a .env file.
func (c Config) SigningSecret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return "dev-only-insecure-secret"
}

func (c Config) TokenTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "contacthub")
	pass := getEnv("DB_PASSWORD", "contacthub")
	name := getEnv("DB_NAME", "contacthub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fallback
		}
		return d
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
