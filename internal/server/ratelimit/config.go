package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string  // Endpoint path pattern (supports prefix matching)
	Method string  // HTTP method (GET, POST, etc.)
	Rate   float64 // Tokens per second; 0 means unlimited
	Burst  int     // Bucket size (defaults to ceil(Rate) if 0)
}

// LoadConfig builds the limiter configuration. The default rate and burst come
// from the service config; switches and client lists from RATE_LIMIT_* variables.
func LoadConfig(defaultRate float64, defaultBurst int) *Config {
	enabled := getEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultRate:     defaultRate,
		DefaultBurst:    defaultBurst,
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	perMinute := func(n float64) float64 { return n / 60 }
	return []EndpointConfig{
		// Batch recalculation touches every stored request
		{Path: "/requests/recalculate", Method: "POST", Rate: perMinute(2), Burst: 1},

		// Password hashing is deliberately slow
		{Path: "/auth/register", Method: "POST", Rate: perMinute(5), Burst: 3},
		{Path: "/auth/login", Method: "POST", Rate: perMinute(10), Burst: 5},

		// Writes
		{Path: "/requests", Method: "POST", Rate: perMinute(100), Burst: 10},
		{Path: "/requests/", Method: "POST", Rate: perMinute(100), Burst: 10},
		{Path: "/requests/", Method: "PUT", Rate: perMinute(100), Burst: 10},
		{Path: "/requests/", Method: "DELETE", Rate: perMinute(100), Burst: 10},
		{Path: "/scoring-configs/", Method: "PUT", Rate: perMinute(30), Burst: 5},
		{Path: "/scoring-configs/", Method: "DELETE", Rate: perMinute(30), Burst: 5},

		// Reads and stateless scoring use the default rate; /health is unlimited
	}
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
