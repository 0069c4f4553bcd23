package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PortalStorefront = "storefront"
	PortalAdmin      = "admin"

	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config contains application configuration parameters
type Config struct {
	// Server configuration
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`

	// Which app this process backs: storefront or admin
	Portal string `json:"portal"`

	// Backend API configuration
	APIBaseURL   string        `json:"api_base_url"`
	APITimeout   time.Duration `json:"api_timeout"`
	BypassHeader string        `json:"bypass_header"`

	// Durable storage configuration
	StorageBackend  string        `json:"storage_backend"` // sqlite, redis, memory
	StoragePrefix   string        `json:"storage_prefix"`
	DBName          string        `json:"db_name"`
	DBPath          string        `json:"db_path"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	RedisAddr       string        `json:"redis_addr"`
	RedisPassword   string        `json:"-"`
	RedisDB         int           `json:"redis_db"`

	// Storage keys, one per store
	SessionKey string `json:"session_key"`
	CartKey    string `json:"cart_key"`
	ThemeKey   string `json:"theme_key"`

	// Device reported color scheme: light, dark or empty when unknown
	DeviceScheme string `json:"device_scheme"`

	// Notifications
	NotificationPollInterval time.Duration `json:"notification_poll_interval"`
	TelegramToken            string        `json:"-"`
	TelegramAdminChatID      int64         `json:"telegram_admin_chat_id"`

	// App configuration
	Environment    string `json:"environment"` // development, production
	LogLevel       string `json:"log_level"`   // debug, info, warn, error
	MetricsEnabled bool   `json:"metrics_enabled"`
}

// NewConfig creates and returns a new configuration instance
func NewConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		// Server defaults
		Port:         ":8081",
		Host:         "127.0.0.1",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,

		Portal: PortalStorefront,

		// Backend defaults
		APIBaseURL:   "http://localhost:8000",
		APITimeout:   15 * time.Second,
		BypassHeader: "bypass-tunnel-reminder",

		// Storage defaults
		StorageBackend:  StorageSQLite,
		DBName:          "alpha.db",
		DBPath:          "./data/",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		RedisAddr:       "localhost:6379",

		CartKey:  "@alpha_smart_cart",
		ThemeKey: "user-theme-preference",

		NotificationPollInterval: 30 * time.Second,

		// App defaults
		Environment:    "development",
		LogLevel:       "info",
		MetricsEnabled: true,
	}

	// Override with environment variables if set
	if port := os.Getenv("PORT"); port != "" {
		if port[0] != ':' {
			cfg.Port = ":" + port
		} else {
			cfg.Port = port
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}

	if portal := os.Getenv("PORTAL"); portal != "" {
		cfg.Portal = strings.ToLower(portal)
	}

	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		cfg.APIBaseURL = strings.TrimRight(baseURL, "/")
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		cfg.StorageBackend = strings.ToLower(backend)
	}

	if prefix := os.Getenv("STORAGE_PREFIX"); prefix != "" {
		cfg.StoragePrefix = prefix
	}

	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.DBName = dbName
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}

	if scheme := os.Getenv("DEVICE_SCHEME"); scheme != "" {
		cfg.DeviceScheme = strings.ToLower(scheme)
	}

	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Parse numeric environment variables
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.RedisDB = db
		}
	}

	if chatID := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); chatID != "" {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.TelegramAdminChatID = id
		}
	}

	if maxOpenConns := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenConns != "" {
		if conns, err := strconv.Atoi(maxOpenConns); err == nil {
			cfg.MaxOpenConns = conns
		}
	}

	if metrics := os.Getenv("METRICS_ENABLED"); metrics != "" {
		if enabled, err := strconv.ParseBool(metrics); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	// Parse duration environment variables
	if apiTimeout := os.Getenv("API_TIMEOUT"); apiTimeout != "" {
		if timeout, err := time.ParseDuration(apiTimeout); err == nil {
			cfg.APITimeout = timeout
		}
	}

	if readTimeout := os.Getenv("READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			cfg.ReadTimeout = timeout
		}
	}

	if writeTimeout := os.Getenv("WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if pollInterval := os.Getenv("NOTIFICATION_POLL_INTERVAL"); pollInterval != "" {
		if interval, err := time.ParseDuration(pollInterval); err == nil {
			cfg.NotificationPollInterval = interval
		}
	}

	cfg.SessionKey = cfg.defaultSessionKey()
	if sessionKey := os.Getenv("SESSION_KEY"); sessionKey != "" {
		cfg.SessionKey = sessionKey
	}

	return cfg, nil
}

// defaultSessionKey keeps the two portals from sharing a session record
func (c *Config) defaultSessionKey() string {
	if c.Portal == PortalAdmin {
		return "adminAuthData"
	}
	return "user_session"
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsAdminPortal reports whether this process backs the admin portal
func (c *Config) IsAdminPortal() bool {
	return c.Portal == PortalAdmin
}

// GetDatabasePath returns the full path to the database file
func (c *Config) GetDatabasePath() string {
	return c.DBPath + c.DBName
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return c.Host + c.Port
}

// TelegramEnabled reports whether admin relays should go to Telegram
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramAdminChatID != 0
}

// ValidateConfig validates the configuration
func (c *Config) ValidateConfig() error {
	if c.Portal != PortalStorefront && c.Portal != PortalAdmin {
		return fmt.Errorf("portal must be %q or %q, got %q", PortalStorefront, PortalAdmin, c.Portal)
	}

	if c.APIBaseURL == "" {
		return fmt.Errorf("api base URL is required")
	}

	switch c.StorageBackend {
	case StorageSQLite:
		if c.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.SessionKey == "" || c.CartKey == "" || c.ThemeKey == "" {
		return fmt.Errorf("storage keys must not be empty")
	}

	if c.SessionKey == c.CartKey || c.SessionKey == c.ThemeKey || c.CartKey == c.ThemeKey {
		return fmt.Errorf("each store needs its own storage key")
	}

	switch c.DeviceScheme {
	case "", "light", "dark":
	default:
		return fmt.Errorf("device scheme must be light, dark or empty, got %q", c.DeviceScheme)
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}

	if c.NotificationPollInterval <= 0 {
		return fmt.Errorf("notification poll interval must be positive")
	}

	return nil
}
