package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Hub     HubConfig     `mapstructure:"hub"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Bidding BiddingConfig `mapstructure:"bidding"`
}

// APIConfig points the client at the product offer REST API.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type HubConfig struct {
	URL             string          `mapstructure:"url"`
	Path            string          `mapstructure:"path"`
	Event           string          `mapstructure:"event"`
	ReconnectDelays []time.Duration `mapstructure:"reconnect_delays"`
	KeepAlive       time.Duration   `mapstructure:"keep_alive"`
	ServerTimeout   time.Duration   `mapstructure:"server_timeout"`
}

type HTTPConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// CatalogConfig drives the optional periodic refresh on the client and the
// seed products on the server.
type CatalogConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Seed            []SeedProduct `mapstructure:"seed"`
}

type SeedProduct struct {
	ID         int    `mapstructure:"id"`
	Title      string `mapstructure:"title"`
	CurrentBid string `mapstructure:"current_bid"`
}

// ServerConfig configures the bid server listener. AllowedOrigins enables
// credentialed CORS for the listed origins only.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	CertFile       string   `mapstructure:"cert_file"`
	KeyFile        string   `mapstructure:"key_file"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type BiddingConfig struct {
	MinIncrement float64 `mapstructure:"min_increment"`
}

var envBindings = map[string]string{
	"api.base_url":              "API_BASE_URL",
	"hub.url":                   "HUB_URL",
	"hub.event":                 "HUB_EVENT",
	"hub.keep_alive":            "HUB_KEEP_ALIVE",
	"hub.server_timeout":        "HUB_SERVER_TIMEOUT",
	"http.timeout":              "HTTP_TIMEOUT",
	"http.insecure_skip_verify": "HTTP_INSECURE_SKIP_VERIFY",
	"log.level":                 "LOG_LEVEL",
	"log.file":                  "LOG_FILE",
	"catalog.refresh_interval":  "CATALOG_REFRESH_INTERVAL",
	"server.port":               "SERVER_PORT",
	"server.host":               "SERVER_HOST",
	"server.cert_file":          "SERVER_CERT_FILE",
	"server.key_file":           "SERVER_KEY_FILE",
	"server.allowed_origins":    "SERVER_ALLOWED_ORIGINS",
	"redis.address":             "REDIS_ADDRESS",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"mysql.dsn":                 "MYSQL_DSN",
	"bidding.min_increment":     "BIDDING_MIN_INCREMENT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://localhost:7111")
	v.SetDefault("hub.url", "https://localhost:7111/messageHub")
	v.SetDefault("hub.path", "/messageHub")
	v.SetDefault("hub.event", "ReceiveNotification")
	v.SetDefault("hub.reconnect_delays", []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second})
	v.SetDefault("hub.keep_alive", 15*time.Second)
	v.SetDefault("hub.server_timeout", 30*time.Second)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("catalog.refresh_interval", time.Duration(0))
	v.SetDefault("catalog.seed", []map[string]interface{}{
		{"id": 1, "title": "Vintage Pocket Watch", "current_bid": "$120.00"},
		{"id": 2, "title": "Signed First Edition", "current_bid": "$250.00"},
		{"id": 3, "title": "Mid-Century Armchair", "current_bid": "$75.50"},
	})
	v.SetDefault("server.port", 7111)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "bid_events")
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("bidding.min_increment", 0.01)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads defaults, an optional config.yaml from the usual locations and
// the environment.
func Load() (*Config, error) {
	v := newViper()

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bidding-app/")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Hub.Event == "" {
		return errors.New("hub.event must not be empty")
	}
	if c.Bidding.MinIncrement < 0 {
		return errors.New("bidding.min_increment must not be negative")
	}
	for _, d := range c.Hub.ReconnectDelays {
		if d < 0 {
			return fmt.Errorf("hub.reconnect_delays: negative delay %s", d)
		}
	}
	return nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"API: %s, Hub: %s (%s), Server: %s:%d, Allowed origins: %v, Redis: %q, MySQL configured: %t",
		c.API.BaseURL,
		c.Hub.URL,
		c.Hub.Event,
		c.Server.Host,
		c.Server.Port,
		c.Server.AllowedOrigins,
		c.Redis.Address,
		c.MySQL.DSN != "",
	)
}
