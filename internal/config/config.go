package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Gateway  GatewayConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

// BackendConfig points at the upstream storefront API that owns the
// catalog, payment orders and bookings.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GatewayConfig carries the hosted checkout widget credentials. Only the
// public key id ever leaves the process; the secret stays server-side.
type GatewayConfig struct {
	KeyID       string
	Currency    string
	CallbackURL string
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	StaleAfter time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080"
	}

	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT: %w", op, err)
	}

	var corsOrigins []string
	if s := os.Getenv("CORS_ORIGINS"); s != "" {
		for _, origin := range strings.Split(s, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				corsOrigins = append(corsOrigins, origin)
			}
		}
	}

	serverCfg := ServerConfig{
		Host:        serverHost,
		Port:        serverPort,
		CORSOrigins: corsOrigins,
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPortStr := os.Getenv("POSTGRES_PORT")
	if postgresPortStr == "" {
		postgresPortStr = "5432"
	}

	postgresPort, err := strconv.Atoi(postgresPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid POSTGRES_PORT: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
	}

	backendURL := os.Getenv("BACKEND_BASE_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("%s: missing BACKEND_BASE_URL", op)
	}

	backendTimeout := 15 * time.Second
	if s := os.Getenv("BACKEND_TIMEOUT_SEC"); s != "" {
		sec, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid BACKEND_TIMEOUT_SEC: %w", op, err)
		}
		backendTimeout = time.Duration(sec) * time.Second
	}

	backendCfg := BackendConfig{
		BaseURL: backendURL,
		Timeout: backendTimeout,
	}

	gatewayKey := os.Getenv("GATEWAY_KEY_ID")
	if gatewayKey == "" {
		return nil, fmt.Errorf("%s: missing GATEWAY_KEY_ID", op)
	}

	gatewayCurrency := os.Getenv("GATEWAY_CURRENCY")
	if gatewayCurrency == "" {
		gatewayCurrency = "INR"
	}

	gatewayCfg := GatewayConfig{
		KeyID:       gatewayKey,
		Currency:    gatewayCurrency,
		CallbackURL: os.Getenv("GATEWAY_CALLBACK_URL"),
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("%s: missing SESSION_SECRET", op)
	}

	sessionTTL := 12 * time.Hour
	if s := os.Getenv("SESSION_TTL_HOURS"); s != "" {
		h, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid SESSION_TTL_HOURS: %w", op, err)
		}
		sessionTTL = time.Duration(h) * time.Hour
	}

	authStaleAfter := 5 * time.Minute
	if s := os.Getenv("AUTH_STALE_AFTER_SEC"); s != "" {
		sec, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid AUTH_STALE_AFTER_SEC: %w", op, err)
		}
		authStaleAfter = time.Duration(sec) * time.Second
	}

	sessionCfg := SessionConfig{
		Secret:     sessionSecret,
		TTL:        sessionTTL,
		StaleAfter: authStaleAfter,
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Backend:  backendCfg,
		Gateway:  gatewayCfg,
		Session:  sessionCfg,
	}, nil
}
