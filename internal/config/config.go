package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var (
	instance *Config
	once     sync.Once
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	AppURL      string
	// Public base URL providers deliver webhooks to
	ApiURL string

	AppName          string
	ProductionDomain string
	LogLevel         string

	// Encryption key for OAuth tokens at rest (must be exactly 32 bytes for AES-256)
	EncryptionKey string

	// Import policy and display defaults
	DefaultPrivacyLevel  string
	DefaultUserAvatarURL string
	DefaultOrgAvatarURL  string
	BuildStatusName      string

	// Provider API endpoints (overridable for self-hosted instances)
	BitbucketAPIURL string
	GitLabURL       string
	GitHubAPIURL    string

	// OAuth applications
	BitbucketClientID     string
	BitbucketClientSecret string
	GitLabClientID        string
	GitLabClientSecret    string
	GitHubClientID        string
	GitHubClientSecret    string

	// Outbound HTTP
	HTTPRetryMax int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string

	// Per-account sync lock TTL
	SyncLockTTLSeconds int

	// CORS
	CorsOrigins string
}

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		instance = &Config{
			Port:                  getEnv("PORT", "8080"),
			DatabaseURL:           getEnv("DATABASE_URL", ""),
			JWTSecret:             getEnv("JWT_SECRET", ""),
			AppURL:                getEnv("APP_URL", "http://localhost:3000"),
			ApiURL:                getEnv("API_URL", "http://localhost:8080"),
			AppName:               getEnv("APP_NAME", "docsync"),
			ProductionDomain:      getEnv("PRODUCTION_DOMAIN", "localhost:8080"),
			LogLevel:              getEnv("LOG_LEVEL", "info"),
			EncryptionKey:         getEnv("ENCRYPTION_KEY", ""),
			DefaultPrivacyLevel:   getEnv("DEFAULT_PRIVACY_LEVEL", "public"),
			DefaultUserAvatarURL:  getEnv("DEFAULT_USER_AVATAR_URL", "http://localhost:3000/static/images/silhouette.png"),
			DefaultOrgAvatarURL:   getEnv("DEFAULT_ORG_AVATAR_URL", "http://localhost:3000/static/images/organization.png"),
			BuildStatusName:       getEnv("BUILD_STATUS_NAME", "docs/build"),
			BitbucketAPIURL:       getEnv("BITBUCKET_API_URL", "https://api.bitbucket.org"),
			GitLabURL:             getEnv("GITLAB_URL", "https://gitlab.com"),
			GitHubAPIURL:          getEnv("GITHUB_API_URL", "https://api.github.com"),
			BitbucketClientID:     getEnv("BITBUCKET_CLIENT_ID", ""),
			BitbucketClientSecret: getEnv("BITBUCKET_CLIENT_SECRET", ""),
			GitLabClientID:        getEnv("GITLAB_CLIENT_ID", ""),
			GitLabClientSecret:    getEnv("GITLAB_CLIENT_SECRET", ""),
			GitHubClientID:        getEnv("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret:    getEnv("GITHUB_CLIENT_SECRET", ""),
			HTTPRetryMax:          getEnvInt("HTTP_RETRY_MAX", 2),
			RedisHost:             getEnv("REDIS_HOST", "localhost"),
			RedisPort:             getEnv("REDIS_PORT", "6379"),
			RedisUsername:         getEnv("REDIS_USERNAME", ""),
			RedisPassword:         getEnv("REDIS_PASSWORD", ""),
			SyncLockTTLSeconds:    getEnvInt("SYNC_LOCK_TTL_SECONDS", 900),
			CorsOrigins:           getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		}
	})
	return instance
}

// Get returns the loaded config instance
func Get() *Config {
	return instance
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
