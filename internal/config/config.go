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
	Redis      RedisConfig      `mapstructure:"redis"`
	Cron       CronConfig       `mapstructure:"cron"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Fetch      FetchConfig      `mapstructure:"fetch"`

	// Pipeline tuning.
	FIFO       FIFOConfig       `mapstructure:"fifo"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Rug        RugConfig        `mapstructure:"rug"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Overview   OverviewConfig   `mapstructure:"overview"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	// AuthToken, when set, is required as a Bearer token on /api routes.
	AuthToken       string        `mapstructure:"auth_token"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// DBConfig with an empty DSN disables score persistence.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	TrackerRefresh string `mapstructure:"tracker_refresh"`
	RetentionPurge string `mapstructure:"retention_purge"`
}

type MarketDataConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FetchConfig struct {
	PageLimit int `mapstructure:"page_limit"`
	MaxPages  int `mapstructure:"max_pages"`
}

type FIFOConfig struct {
	// UnmatchedSellPolicy is "drop" or "zero_cost_basis".
	UnmatchedSellPolicy string  `mapstructure:"unmatched_sell_policy"`
	DustQuantity        float64 `mapstructure:"dust_quantity"`
}

type EnrichmentConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	PostExitWindow time.Duration `mapstructure:"post_exit_window"`
}

type RugConfig struct {
	LiquidityFloorUSD       float64 `mapstructure:"liquidity_floor_usd"`
	MarketCapMaterialityUSD float64 `mapstructure:"market_cap_materiality_usd"`
	ScamLiquidityFloorUSD   float64 `mapstructure:"scam_liquidity_floor_usd"`
}

type MetricsConfig struct {
	EntryReferenceHours   float64 `mapstructure:"entry_reference_hours"`
	EarlyExitPenalty      float64 `mapstructure:"early_exit_penalty"`
	EarlyExitThresholdPct float64 `mapstructure:"early_exit_threshold_pct"`
	Timezone              string  `mapstructure:"timezone"`
}

type OverviewConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

type CacheConfig struct {
	// Backend is "redis" or "memory".
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type TrackerConfig struct {
	Wallets []string `mapstructure:"wallets"`
	// Interval drives the in-process refresh loop used when cron is disabled.
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.tracker_refresh", "@every 30m")
	v.SetDefault("cron.retention_purge", "@every 6h")
	v.SetDefault("market_data.base_url", "http://localhost:9100")
	v.SetDefault("market_data.api_key", "")
	v.SetDefault("market_data.timeout", "15s")
	v.SetDefault("fetch.page_limit", 100)
	v.SetDefault("fetch.max_pages", 20)

	v.SetDefault("fifo.unmatched_sell_policy", "drop")
	v.SetDefault("fifo.dust_quantity", 1e-6)
	v.SetDefault("enrichment.batch_size", 4)
	v.SetDefault("enrichment.batch_delay", "500ms")
	v.SetDefault("enrichment.fetch_timeout", "10s")
	v.SetDefault("enrichment.post_exit_window", "24h")
	v.SetDefault("rug.liquidity_floor_usd", 1000)
	v.SetDefault("rug.market_cap_materiality_usd", 10000)
	v.SetDefault("rug.scam_liquidity_floor_usd", 1000)
	v.SetDefault("metrics.entry_reference_hours", 24)
	v.SetDefault("metrics.early_exit_penalty", 20)
	v.SetDefault("metrics.early_exit_threshold_pct", 50)
	v.SetDefault("metrics.timezone", "UTC")
	v.SetDefault("overview.window_days", 7)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.key_prefix", "walletscope:analysis:")
	v.SetDefault("tracker.wallets", []string{})
	v.SetDefault("tracker.interval", "30m")
	v.SetDefault("tracker.retention", "720h")

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
