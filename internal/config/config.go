package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	// Role-scoped session signing secrets. Each actor type gets its own
	// cookie and secret so a leaked doctor token cannot be replayed as a
	// patient session.
	DoctorJWTSecret     string
	PatientJWTSecret    string
	PharmacistJWTSecret string
	SessionTTL          time.Duration

	// Google Sign-In for the patient login flow.
	GoogleClientID string

	// Patient document storage (S3).
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	FilesBucket         string
	FilesPublicBaseURL  string
	FileSizeLimitBytes  int64

	// Session revocation store.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Bearer token guarding the /admin surface.
	AdminToken string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		DoctorJWTSecret:     getEnv("JWT_DOCTOR_SECRET", ""),
		PatientJWTSecret:    getEnv("JWT_PATIENT_SECRET", ""),
		PharmacistJWTSecret: getEnv("JWT_PHARMACIST_SECRET", ""),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		FilesBucket:         getEnv("FILES_BUCKET", "prescriptions"),
		FilesPublicBaseURL:  getEnv("FILES_PUBLIC_BASE_URL", ""),
		FileSizeLimitBytes:  int64(getEnvAsInt("FILE_SIZE_LIMIT_BYTES", 10*1024*1024)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}
}

// IsProduction reports whether the app runs with production hardening
// (secure cookies, strict CORS).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
