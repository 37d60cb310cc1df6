package worker

import (
	"fmt"

	pkgconfig "github.com/Br0ck25/kynews-sub003/pkg/config"
)

// Config holds the operational settings of the worker process: the
// ports its health and metrics servers listen on. The pipeline tunables
// live in internal/config; this only covers the process surface.
type Config struct {
	// HealthPort is the port for the liveness/readiness server.
	HealthPort int

	// MetricsPort is the port for the Prometheus /metrics server.
	MetricsPort int
}

// DefaultConfig returns the standard ports: 9091 for health probes and
// 9090 for metrics.
func DefaultConfig() Config {
	return Config{
		HealthPort:  9091,
		MetricsPort: 9090,
	}
}

// LoadConfigFromEnv reads WORKER_HEALTH_PORT and METRICS_PORT. Invalid
// values fall back to the defaults; the worker must come up even with a
// broken environment.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.HealthPort = envPort("WORKER_HEALTH_PORT", cfg.HealthPort)
	cfg.MetricsPort = envPort("METRICS_PORT", cfg.MetricsPort)
	return cfg
}

// Validate checks the port assignments.
func (c Config) Validate() error {
	if err := validatePort(c.HealthPort); err != nil {
		return fmt.Errorf("health port: %w", err)
	}
	if err := validatePort(c.MetricsPort); err != nil {
		return fmt.Errorf("metrics port: %w", err)
	}
	if c.HealthPort == c.MetricsPort {
		return fmt.Errorf("health and metrics ports collide on %d", c.HealthPort)
	}
	return nil
}

func envPort(key string, fallback int) int {
	port := pkgconfig.GetEnvInt(key, fallback)
	if validatePort(port) != nil {
		return fallback
	}
	return port
}

// validatePort rejects privileged and out-of-range ports.
func validatePort(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("port %d outside 1024-65535", port)
	}
	return nil
}
