package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// HMAC secret for the local token issuer.
	AuthSecret string

	// Optional bearer token guarding the cron release endpoint; empty
	// leaves it open (trusted-network deployments).
	CronToken string

	SeedDefaults bool

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		DBDriver:     envOr("DB_DRIVER", "sqlite"),
		DBDSN:        envOr("DB_DSN", ""),
		AuthSecret:   envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		CronToken:    os.Getenv("CRON_TOKEN"),
		SeedDefaults: envBool("SEED_DEFAULT_EXAMS", true),
		CORSOrigins:  csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
