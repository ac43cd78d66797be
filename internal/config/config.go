package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting. Keys map one-to-one onto upper-case
// environment variables (database_url -> DATABASE_URL).
type Config struct {
	Port          string `mapstructure:"port"`
	GinMode       string `mapstructure:"gin_mode"`
	DatabaseURL   string `mapstructure:"database_url"`
	RedisURL      string `mapstructure:"redis_url"`
	SessionSecret string `mapstructure:"session_secret"`
	CookieSecure  bool   `mapstructure:"cookie_secure"`

	CampusEmailDomain  string  `mapstructure:"campus_email_domain"`
	CampusLat          float64 `mapstructure:"campus_lat"`
	CampusLng          float64 `mapstructure:"campus_lng"`
	CampusRadiusMeters float64 `mapstructure:"campus_radius_meters"`

	UploadEndpoint string `mapstructure:"upload_endpoint"`
	UploadPreset   string `mapstructure:"upload_preset"`
	UploadMaxBytes int64  `mapstructure:"upload_max_bytes"`

	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user"`
	SMTPPass string `mapstructure:"smtp_pass"`
	SMTPFrom string `mapstructure:"smtp_from"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// GeofenceEnabled reports whether gate pass actions must happen on campus.
func (c *Config) GeofenceEnabled() bool {
	return c.CampusRadiusMeters > 0
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

var (
	current *Config
	mu      sync.RWMutex
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CampusEmailDomain = strings.TrimPrefix(strings.ToLower(cfg.CampusEmailDomain), "@")

	mu.Lock()
	current = &cfg
	mu.Unlock()
	return &cfg, nil
}

// Get returns the last loaded configuration, or defaults when Load was never called.
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}
	v := viper.New()
	setDefaults(v)
	var def Config
	_ = v.Unmarshal(&def)
	return &def
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("database_url", "host=localhost user=postgres password=postgres dbname=campusdesk port=5432 sslmode=disable TimeZone=Asia/Kolkata")
	v.SetDefault("redis_url", "")
	v.SetDefault("session_secret", "secret")
	v.SetDefault("cookie_secure", false)

	v.SetDefault("campus_email_domain", "nitp.ac.in")
	v.SetDefault("campus_lat", 25.581587)
	v.SetDefault("campus_lng", 84.832701)
	// 0 disables the gate geofence
	v.SetDefault("campus_radius_meters", 0)

	v.SetDefault("upload_endpoint", "")
	v.SetDefault("upload_preset", "")
	v.SetDefault("upload_max_bytes", 10<<20)

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_pass", "")
	v.SetDefault("smtp_from", "noreply@campusdesk.local")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}
