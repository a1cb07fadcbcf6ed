// Package config assembles the runtime settings of a portal function from the
// SSM parameters under /certification and a few environment overrides.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"certification/lib/constants"
)

type Config struct {
	Environment    string
	Region         string
	IsLocal        bool
	LogLevel       string
	AllowedOrigins []string

	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string
	SSLMode          string

	FilesBucket  string
	UserPoolID   string
	SignedURLTTL time.Duration
}

// Region returns the AWS region to use before any parameter has been read.
func Region(getenv func(string) string) string {
	if region := strings.TrimSpace(getenv("AWS_REGION")); region != "" {
		return region
	}
	return constants.DefaultRegion
}

// IsLocal reports whether the function runs against LocalStack.
func IsLocal(getenv func(string) string) bool {
	isLocal, _ := strconv.ParseBool(getenv("IS_LOCAL"))
	return isLocal
}

// Load builds a Config. Database settings are required; everything else has a default.
func Load(params map[string]string, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:      firstNonEmpty(getenv("ENVIRONMENT"), params[constants.ENVIRONMENT], constants.DefaultEnvironment),
		Region:           Region(getenv),
		IsLocal:          IsLocal(getenv),
		LogLevel:         getenv("LOG_LEVEL"),
		AllowedOrigins:   splitList(params[constants.ALLOWED_ORIGINS]),
		DatabaseHost:     firstNonEmpty(params[constants.DATABASE_RDS_PROXY_URL], params[constants.DATABASE_RDS_ENDPOINT]),
		DatabasePort:     firstNonEmpty(params[constants.DATABASE_PORT], "5432"),
		DatabaseName:     params[constants.DATABASE_NAME],
		DatabaseUser:     params[constants.DATABASE_USERNAME],
		DatabasePassword: params[constants.DATABASE_PASSWORD],
		SSLMode:          firstNonEmpty(params[constants.SSL_MODE], "require"),
		FilesBucket:      firstNonEmpty(getenv("BUCKET_NAME"), params[constants.FILES_BUCKET]),
		UserPoolID:       params[constants.COGNITO_USER_POOL_ID],
		SignedURLTTL:     constants.DefaultSignedURLTTL,
	}

	if raw := strings.TrimSpace(params[constants.SIGNED_URL_TTL_MINUTES]); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 {
			return nil, fmt.Errorf("%s must be a positive number of minutes", constants.SIGNED_URL_TTL_MINUTES)
		}
		cfg.SignedURLTTL = time.Duration(minutes) * time.Minute
	}

	var missing []string
	for name, value := range map[string]string{
		constants.DATABASE_RDS_ENDPOINT: cfg.DatabaseHost,
		constants.DATABASE_NAME:         cfg.DatabaseName,
		constants.DATABASE_USERNAME:     cfg.DatabaseUser,
		constants.DATABASE_PASSWORD:     cfg.DatabasePassword,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// IsProduction reports whether error detail must be hidden from callers.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, constants.ProductionEnv)
}

// OriginAllowed reports whether a browser origin may call the API.
func (c *Config) OriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
