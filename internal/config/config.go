package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB run registry connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Default input locations
	GraphPath    string
	CorrPath     string
	ReactomePath string
	OntologyPath string

	// Default artifact destination, a directory or s3://bucket/prefix
	OutputBase string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		// SurrealDB
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "corrx"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "runs"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		// Inputs
		GraphPath:    getEnv("CORRX_GRAPH", ""),
		CorrPath:     getEnv("CORRX_Z_SCORE", ""),
		ReactomePath: getEnv("CORRX_REACTOME", ""),
		OntologyPath: getEnv("CORRX_ONTOLOGY", ""),

		// Output
		OutputBase: getEnv("CORRX_OUTPUT", "."),

		// Logging
		LogFile:  getEnv("CORRX_LOG_FILE", "/tmp/corrx.log"),
		LogLevel: parseLogLevel(getEnv("CORRX_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
