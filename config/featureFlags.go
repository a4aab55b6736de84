package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultMetricsTimezone = "America/Guayaquil"

// MetricsDefaultTimezone is the zone used for "today" counters when the
// business has no timezone of its own.
//
// Set via env:
// - METRICS_DEFAULT_TIMEZONE=America/Guayaquil
func MetricsDefaultTimezone() string {
	if v := strings.TrimSpace(os.Getenv("METRICS_DEFAULT_TIMEZONE")); v != "" {
		return v
	}
	return defaultMetricsTimezone
}

// MetricsCacheEnabled turns on short-lived Redis caching of campaign dashboards.
//
// Set via env:
// - ENABLE_METRICS_CACHE=true
// - METRICS_CACHE_TTL_SECONDS=30
func MetricsCacheEnabled() bool {
	return EnvBool("ENABLE_METRICS_CACHE", false)
}

func MetricsCacheTTL() time.Duration {
	return time.Duration(IntFromEnv("METRICS_CACHE_TTL_SECONDS", 30)) * time.Second
}

// TokenCacheTTL bounds how long a resolved access token stays in Redis.
func TokenCacheTTL() time.Duration {
	return time.Duration(IntFromEnv("TOKEN_CACHE_SECONDS", 300)) * time.Second
}

func EnvBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func IntFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
