package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                 string
	AppEnv                  string
	AppPort                 string
	DatabaseURL             string
	DatabaseMaxOpenConns    int
	DatabaseMaxIdleConns    int
	DatabaseConnMaxLifetime time.Duration
	RedisURL                string
	NATSURL                 string
	JWTSecret               string
	StudentSessionSecret    string
	StudentSessionTTL       time.Duration
	StatisticsCacheTTL      time.Duration
	ExpirySweepInterval     time.Duration
	RealtimeChannel         string
	PublicFormRateLimit     int
	PublicFormRateWindow    time.Duration
	AllowOrigins            string
	SeedDefaultTemplates    bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Survey API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("student.session_ttl", "12h")
	v.SetDefault("statistics.cache_ttl", "5m")
	v.SetDefault("survey.expiry_sweep_interval", "10m")
	v.SetDefault("realtime.channel", "gema")
	v.SetDefault("public_form.rate_limit", 20)
	v.SetDefault("public_form.rate_window", "1m")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("survey.seed_defaults", true)

	connLifetime, err := parseDuration(v, "database.conn_max_lifetime")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "student.session_ttl")
	if err != nil {
		return Config{}, err
	}
	statsTTL, err := parseDuration(v, "statistics.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	sweep, err := parseDuration(v, "survey.expiry_sweep_interval")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "public_form.rate_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		DatabaseMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DatabaseMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DatabaseConnMaxLifetime: connLifetime,
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		JWTSecret:               v.GetString("jwt.secret"),
		StudentSessionSecret:    v.GetString("student.session_secret"),
		StudentSessionTTL:       sessionTTL,
		StatisticsCacheTTL:      statsTTL,
		ExpirySweepInterval:     sweep,
		RealtimeChannel:         v.GetString("realtime.channel"),
		PublicFormRateLimit:     v.GetInt("public_form.rate_limit"),
		PublicFormRateWindow:    rateWindow,
		AllowOrigins:            v.GetString("cors.allow_origins"),
		SeedDefaultTemplates:    v.GetBool("survey.seed_defaults"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.StudentSessionSecret == "" {
		cfg.StudentSessionSecret = cfg.JWTSecret
	}
	if cfg.PublicFormRateLimit <= 0 {
		cfg.PublicFormRateLimit = 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
