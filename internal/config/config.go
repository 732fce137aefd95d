package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Rooms      RoomsConfig      `mapstructure:"rooms"`
	PriceFeed  PriceFeedConfig  `mapstructure:"price_feed"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	BearerToken string `mapstructure:"bearer_token"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RoomsConfig struct {
	MaxDurationMinutes int `mapstructure:"max_duration_minutes"`
}

type PriceFeedConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	WSURL           string        `mapstructure:"ws_url"`
	Symbols         []string      `mapstructure:"symbols"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxStaleness    time.Duration `mapstructure:"max_staleness"`
}

type ChainConfig struct {
	RPCURL        string        `mapstructure:"rpc_url"`
	RouterAddress string        `mapstructure:"router_address"`
	ExecutorKey   string        `mapstructure:"executor_key"`
	GasLimit      uint64        `mapstructure:"gas_limit"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
}

type ReconcilerConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type AuditConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.bearer_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("rooms.max_duration_minutes", 1440)
	v.SetDefault("price_feed.base_url", "https://api.binance.com")
	v.SetDefault("price_feed.timeout", "10s")
	v.SetDefault("price_feed.ws_url", "wss://stream.binance.com:9443/stream")
	v.SetDefault("price_feed.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("price_feed.refresh_interval", "30s")
	v.SetDefault("price_feed.max_staleness", "2m")
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.router_address", "")
	v.SetDefault("chain.executor_key", "")
	v.SetDefault("chain.gas_limit", 300000)
	v.SetDefault("chain.call_timeout", "15s")
	v.SetDefault("reconciler.scan_interval", "15s")
	v.SetDefault("reconciler.batch_size", 100)
	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.api_key", "")
	v.SetDefault("audit.timeout", "10s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
