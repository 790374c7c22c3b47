// Package config holds process-level configuration for a SmartInspect
// client: where its metrics/health endpoints listen and the defaults fed
// into protocol connection strings when none is supplied.
package config

import (
	"os"
	"path/filepath"
)

// Config holds a client process's configuration.
type Config struct {
	MetricsAddress string
	HealthAddress  string

	TLSCertDirectory string

	DefaultConnectionsString string

	EventBufferSize int
	WorkerCount     int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	certDir := filepath.Join(homeDir, ".local", "share", "smartinspect", "certs")

	return &Config{
		MetricsAddress:            "127.0.0.1:9090",
		HealthAddress:             "127.0.0.1:8080",
		TLSCertDirectory:          certDir,
		DefaultConnectionsString:  "tcp()",
		EventBufferSize:           100,
		WorkerCount:               1,
	}
}

// LoadConfig loads configuration from file (simplified - just returns
// default). A production deployment would parse YAML here; SmartInspect's
// configuration surface is entirely the connection string passed in by
// the caller, not file-based daemon config.
func LoadConfig(configPath string) (*Config, error) {
	return DefaultConfig(), nil
}
