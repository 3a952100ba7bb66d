package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/Mariodrm17/Practica1/pkg/config"
	"github.com/Mariodrm17/Practica1/pkg/database"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	Redis     RedisConfig
	Inventory InventoryConfig
	Catalog   CatalogConfig
	Chat      ChatConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Log       log.Config
}

type ServerConfig struct {
	Host            string
	Port            int           `validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// InventoryConfig selects the stock ledger backend.
type InventoryConfig struct {
	Driver    string `mapstructure:"driver" validate:"oneof=memory redis database"`
	KeyPrefix string `mapstructure:"key_prefix"`
	SeedFile  string `mapstructure:"seed_file"`
}

type CatalogConfig struct {
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CachePrefix  string        `mapstructure:"cache_prefix"`
}

type ChatConfig struct {
	HistoryLimit   int    `mapstructure:"history_limit" validate:"min=1,max=200"`
	AppendAttempts int    `mapstructure:"append_attempts" validate:"min=1,max=10"`
	LogDriver      string `mapstructure:"log_driver" validate:"oneof=database badger memory"`
	BadgerPath     string `mapstructure:"badger_path"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer" validate:"min=1"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Load reads ./config/config.yaml, the environment and a local .env file.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.Catalog.CacheTTL = parseDuration(v, "catalog.cache_ttl", 5*time.Minute)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Auth.TokenTTL = parseDuration(v, "auth.token_ttl", 24*time.Hour)

	if err := pkgconfig.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "storefront")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/storefront.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("inventory.driver", "database")
	v.SetDefault("inventory.key_prefix", "stock")
	v.SetDefault("inventory.seed_file", "")
	v.SetDefault("catalog.cache_enabled", false)
	v.SetDefault("catalog.cache_ttl", "5m")
	v.SetDefault("catalog.cache_prefix", "catalog:product")
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.append_attempts", 3)
	v.SetDefault("chat.log_driver", "database")
	v.SetDefault("chat.badger_path", "./data/chatlog")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("auth.issuer", "storefront")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "storefront")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("inventory.driver", "INVENTORY_DRIVER")
	v.BindEnv("chat.log_driver", "CHAT_LOG_DRIVER")
	v.BindEnv("chat.history_limit", "CHAT_HISTORY_LIMIT")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
