// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// GeocodeConfig provides settings for the geocoding service and its cache.
type GeocodeConfig interface {
	GetRedisURL() string
	GetGeocodeCacheTTL() time.Duration
	GetGeocodeCountryCodes() string
}

// ProximityConfig provides settings for the door-knock proximity gate.
type ProximityConfig interface {
	GetProximityRadiusMeters() float64
	GetProximityGatedRoles() []string
	GetGPSAcquireTimeout() time.Duration
}

// TerritoryConfig provides settings for bulk territory operations.
type TerritoryConfig interface {
	GetBulkBatchSize() int
	GetBulkBatchDelay() time.Duration
	GetBulkBatchConcurrency() int
	GetPolygonMinSpacingMeters() float64
}

// RoutingConfig provides settings for the external route optimization service.
type RoutingConfig interface {
	GetRoutingServiceURL() string
	GetRoutingServiceAPIKey() string
	IsRoutingServiceEnabled() bool
}

// RegistryConfig provides settings for the disposition registry.
type RegistryConfig interface {
	GetRegistrySeedPath() string
	GetRegistryCacheTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	GeocodeCacheTTL     time.Duration
	GeocodeCountryCodes string

	ProximityRadiusMeters float64
	ProximityGatedRoles   []string
	GPSAcquireTimeout     time.Duration

	BulkBatchSize           int
	BulkBatchDelay          time.Duration
	BulkBatchConcurrency    int
	PolygonMinSpacingMeters float64

	RoutingServiceURL    string
	RoutingServiceAPIKey string

	RegistrySeedPath string
	RegistryCacheTTL time.Duration
}

// Load reads configuration from the environment, with .env support for development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:     splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "fieldops"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		GeocodeCacheTTL:     mustDuration(getEnv("GEOCODE_CACHE_TTL", "720h")),
		GeocodeCountryCodes: getEnv("GEOCODE_COUNTRY_CODES", "us"),

		ProximityRadiusMeters: mustFloat(getEnv("PROXIMITY_RADIUS_METERS", "50")),
		ProximityGatedRoles:   splitCSV(getEnv("PROXIMITY_GATED_ROLES", "setter,manager,sales")),
		GPSAcquireTimeout:     mustDuration(getEnv("GPS_ACQUIRE_TIMEOUT", "5s")),

		BulkBatchSize:           mustInt(getEnv("BULK_BATCH_SIZE", "30")),
		BulkBatchDelay:          mustDuration(getEnv("BULK_BATCH_DELAY", "500ms")),
		BulkBatchConcurrency:    mustInt(getEnv("BULK_BATCH_CONCURRENCY", "5")),
		PolygonMinSpacingMeters: mustFloat(getEnv("POLYGON_MIN_SPACING_METERS", "10")),

		RoutingServiceURL:    getEnv("ROUTING_SERVICE_URL", ""),
		RoutingServiceAPIKey: getEnv("ROUTING_SERVICE_API_KEY", ""),

		RegistrySeedPath: getEnv("REGISTRY_SEED_PATH", "seeds/dispositions.yaml"),
		RegistryCacheTTL: mustDuration(getEnv("REGISTRY_CACHE_TTL", "5m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetGeocodeCacheTTL() time.Duration { return c.GeocodeCacheTTL }
func (c *Config) GetGeocodeCountryCodes() string    { return c.GeocodeCountryCodes }

func (c *Config) GetProximityRadiusMeters() float64   { return c.ProximityRadiusMeters }
func (c *Config) GetProximityGatedRoles() []string    { return c.ProximityGatedRoles }
func (c *Config) GetGPSAcquireTimeout() time.Duration { return c.GPSAcquireTimeout }

func (c *Config) GetBulkBatchSize() int               { return c.BulkBatchSize }
func (c *Config) GetBulkBatchDelay() time.Duration    { return c.BulkBatchDelay }
func (c *Config) GetBulkBatchConcurrency() int        { return c.BulkBatchConcurrency }
func (c *Config) GetPolygonMinSpacingMeters() float64 { return c.PolygonMinSpacingMeters }

func (c *Config) GetRoutingServiceURL() string    { return c.RoutingServiceURL }
func (c *Config) GetRoutingServiceAPIKey() string { return c.RoutingServiceAPIKey }
func (c *Config) IsRoutingServiceEnabled() bool   { return c.RoutingServiceURL != "" }

func (c *Config) GetRegistrySeedPath() string        { return c.RegistrySeedPath }
func (c *Config) GetRegistryCacheTTL() time.Duration { return c.RegistryCacheTTL }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
