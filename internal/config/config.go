package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Identity IdentityConfig `yaml:"identity"`
	Redis    RedisConfig    `yaml:"redis"`
	Digest   DigestConfig   `yaml:"digest"`
	Review   ReviewConfig   `yaml:"review"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

// Init modes for a store that already holds data. Selecting one is an
// operator decision; an empty mode against an existing store aborts startup.
const (
	InitModeReset  = "reset"
	InitModeResume = "resume"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite, mysql, postgres
	DSN      string `yaml:"dsn"`
	InitMode string `yaml:"init_mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// IdentityConfig names the browser cookie carrying the per-browser id and the
// header that changes on every page load.
type IdentityConfig struct {
	CookieName    string `yaml:"cookie_name"`
	SessionHeader string `yaml:"session_header"`
}

// RedisConfig for the optional draft store
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Country string `yaml:"country"` // CN, US, DE, ..., NONE for weekdays only
}

// ReviewConfig is the static roster and metric set seeded into the store.
type ReviewConfig struct {
	Roster    []RosterEntry       `yaml:"roster" validate:"required,min=1,dive"`
	Metrics   []MetricEntry       `yaml:"metrics" validate:"required,min=1,dive"`
	Overrides map[string][]string `yaml:"overrides"`
}

type RosterEntry struct {
	Name     string `yaml:"name" validate:"required"`
	Username string `yaml:"username" validate:"required"`
}

type MetricEntry struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		fileCfg.Review = ReviewConfig{}
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		if len(fileCfg.Review.Roster) == 0 && len(fileCfg.Review.Metrics) == 0 {
			fileCfg.Review = DefaultConfig().Review
		}
		cfg = fileCfg
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "peerreview.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Identity: IdentityConfig{
			CookieName:    "ajs_anonymous_id",
			SessionHeader: "X-Session-Key",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Digest: DigestConfig{
			Enabled: false,
			Cron:    "0 18 * * *",
			Country: "NONE",
		},
		Review: ReviewConfig{
			Roster: []RosterEntry{
				{Name: "Biltu Dey", Username: "biltu"},
				{Name: "Hardik Singh", Username: "hardik"},
				{Name: "Laxman Gaikwad", Username: "laxman"},
				{Name: "Prateek Kumar", Username: "prateek"},
				{Name: "Rohan Chinchkar", Username: "rohan"},
				{Name: "Tanish Goyal", Username: "tanish"},
				{Name: "Nischey Badyal", Username: "nischey"},
				{Name: "Vivek Tripathi", Username: "vivek"},
			},
			Metrics: []MetricEntry{
				{Name: "• Code Quality Metrics"},
				{Name: "• Development Efficiency"},
				{Name: "• Collaboration & Communication"},
				{Name: "• Learning and Growth"},
				{Name: "• Task and Time Management"},
				{Name: "• Customer/End-User Focus"},
				{Name: "• Innovation and Initiative"},
				{Name: "• Consistency and Reliability"},
				{Name: "• Team Support & Mentorship"},
				{Name: "• Work-Life Balance"},
			},
			Overrides: map[string][]string{
				"nischey": {"rohan"},
			},
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if mode := os.Getenv("INIT_MODE"); mode != "" {
		c.Database.InitMode = strings.ToLower(mode)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}
