package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               int      `envconfig:"PORT" default:"8080"`
	Env                string   `envconfig:"ENV" default:"development"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"debug"`
	GatewayBasePath    string   `envconfig:"GATEWAY_BASE_PATH" default:"/api"`
	GatewayKey         string   `envconfig:"GATEWAY_KEY" default:"default"`
	GatewayServices    []string `envconfig:"GATEWAY_SERVICES" default:""`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,PATCH,HEAD,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Origin,Content-Type,Accept,Authorization,X-Request-ID"`

	AdminJWTPublicKey  string        `envconfig:"ADMIN_JWT_PUBLIC_KEY"`
	AdminJWTPrivateKey string        `envconfig:"ADMIN_JWT_PRIVATE_KEY"`
	AdminJWTIssuer     string        `envconfig:"ADMIN_JWT_ISSUER" default:"mosaic"`
	AdminJWTTTL        time.Duration `envconfig:"ADMIN_JWT_TTL" default:"5m"`

	RedisURL         string `envconfig:"REDIS_URL" default:""`
	RateLimitEnabled bool   `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	RateLimitIPRPM   int    `envconfig:"RATE_LIMIT_IP_RPM" default:"60"`

	TraceExporter     string `envconfig:"TRACE_EXPORTER" default:""`
	TraceOTLPEndpoint string `envconfig:"TRACE_OTLP_ENDPOINT" default:""`
	TraceServiceName  string `envconfig:"TRACE_SERVICE_NAME" default:"mosaic"`

	Version, Commit, BuildDate string
}

func Load(version, commit, buildDate string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.Version, cfg.Commit, cfg.BuildDate = version, commit, buildDate
	return &cfg, nil
}
