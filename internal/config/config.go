package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"taskhive/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string

	// Token signing. Access and refresh secrets must differ so one kind of
	// token can never be verified as the other.
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	BcryptCost int

	AllowedOrigins []string

	// Rate limits
	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Redis (optional; limiter falls back to in-process when unset)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment (.env honored in dev).
// Missing database or signing secrets are fatal: a silently defaulted
// secret would make every token forgeable.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	if accessSecret == "" {
		logger.Fatal("JWT_ACCESS_SECRET is not set")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		logger.Fatal("JWT_REFRESH_SECRET is not set")
	}
	if accessSecret == refreshSecret {
		logger.Fatal("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	var origins []string
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		JWTAccessSecret:  accessSecret,
		JWTRefreshSecret: refreshSecret,
		AccessTokenTTL:   envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  envDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:       envInt("BCRYPT_COST", 10),
		AllowedOrigins:   origins,
		APIRateLimit:     envInt("API_RATE_LIMIT", 100),
		APIRateWindow:    envDuration("API_RATE_WINDOW", time.Minute),
		AuthRateLimit:    envInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:   envDuration("AUTH_RATE_WINDOW", time.Minute),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
