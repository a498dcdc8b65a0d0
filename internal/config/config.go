package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

/*
設定來源優先序: 環境變數 > .env 檔 > 預設值
.env 存在時會 watch 並在變更後重新載入
讀取端一律經過 GetConfig, 拿到的是當下的快照
*/
var (
	configSingleton *ConfigSingleton
	muOnce          sync.Once
)

type ConfigSingleton struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	Env             string `mapstructure:"ENV"`
	ServerPort      string `mapstructure:"SERVER_PORT"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogKafkaTopic   string `mapstructure:"LOG_KAFKA_TOPIC"`
	DbName          string `mapstructure:"POSTGRES_DB"`
	DbHost          string `mapstructure:"POSTGRES_HOST"`
	DbPort          string `mapstructure:"POSTGRES_PORT"`
	DbUser          string `mapstructure:"POSTGRES_USER"`
	DbPas           string `mapstructure:"POSTGRES_PASSWORD"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic string `mapstructure:"KAFKA_ORDER_TOPIC"`
	EsdbConnection  string `mapstructure:"ESDB_CONNECTION"`
	JwtSecret       string `mapstructure:"JWT_SECRET"`

	PaymentProvider        string `mapstructure:"PAYMENT_PROVIDER"`
	FintocBaseURL          string `mapstructure:"FINTOC_BASE_URL"`
	FintocSecretKey        string `mapstructure:"FINTOC_SECRET_KEY"`
	FintocPublicKey        string `mapstructure:"FINTOC_PUBLIC_KEY"`
	FintocContract         string `mapstructure:"FINTOC_CONTRACT"`
	FintocCurrency         string `mapstructure:"FINTOC_CURRENCY"`
	FintocSuccessURL       string `mapstructure:"FINTOC_SUCCESS_URL"`
	FintocCancelURL        string `mapstructure:"FINTOC_CANCEL_URL"`
	FintocReturnURL        string `mapstructure:"FINTOC_RETURN_URL"`
	FintocRecipientAccount string `mapstructure:"FINTOC_RECIPIENT_ACCOUNT"`
	StripeSecretKey        string `mapstructure:"STRIPE_SECRET_KEY"`

	GatewayTimeout         time.Duration `mapstructure:"GATEWAY_TIMEOUT"`
	GatewayBreakerFailures uint32        `mapstructure:"GATEWAY_BREAKER_FAILURES"`
	GatewayBreakerCooldown time.Duration `mapstructure:"GATEWAY_BREAKER_COOLDOWN"`
	ProductCacheTTL        time.Duration `mapstructure:"PRODUCT_CACHE_TTL"`
	CartCASRetries         uint64        `mapstructure:"CART_CAS_RETRIES"`
	CheckoutRateCapacity   int           `mapstructure:"CHECKOUT_RATE_CAPACITY"`
	CheckoutRatePerSec     float64       `mapstructure:"CHECKOUT_RATE_PER_SEC"`
}

var defaults = map[string]any{
	"ENV":                      "development",
	"SERVER_PORT":              "5000",
	"LOG_LEVEL":                "info",
	"LOG_KAFKA_TOPIC":          "",
	"POSTGRES_DB":              "storefront",
	"POSTGRES_HOST":            "localhost",
	"POSTGRES_PORT":            "5432",
	"POSTGRES_USER":            "postgres",
	"POSTGRES_PASSWORD":        "postgres",
	"REDIS_ADDR":               "localhost:6379",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"KAFKA_BROKERS":            "",
	"KAFKA_ORDER_TOPIC":        "order-events",
	"ESDB_CONNECTION":          "",
	"JWT_SECRET":               "",
	"PAYMENT_PROVIDER":         "fintoc",
	"FINTOC_BASE_URL":          "https://api.fintoc.com/v1",
	"FINTOC_SECRET_KEY":        "",
	"FINTOC_PUBLIC_KEY":        "",
	"FINTOC_CONTRACT":          "checkout_session",
	"FINTOC_CURRENCY":          "CLP",
	"FINTOC_SUCCESS_URL":       "",
	"FINTOC_CANCEL_URL":        "",
	"FINTOC_RETURN_URL":        "",
	"FINTOC_RECIPIENT_ACCOUNT": "",
	"STRIPE_SECRET_KEY":        "",
	"GATEWAY_TIMEOUT":          "10s",
	"GATEWAY_BREAKER_FAILURES": 5,
	"GATEWAY_BREAKER_COOLDOWN": "30s",
	"PRODUCT_CACHE_TTL":        "30s",
	"CART_CAS_RETRIES":         5,
	"CHECKOUT_RATE_CAPACITY":   5,
	"CHECKOUT_RATE_PER_SEC":    1.0,
}

// GetConfig loads the configuration once from CONFIG_FILE (default .env)
// and the environment, then serves the latest snapshot.
func GetConfig() *Config {
	initConfig()
	configSingleton.mu.RLock()
	defer configSingleton.mu.RUnlock()
	return configSingleton.Config
}

func initConfig() {
	muOnce.Do(func() {
		path := os.Getenv("CONFIG_FILE")
		if path == "" {
			path = ".env"
		}
		v := viper.New()
		cf, err := load(v, path)
		if err != nil {
			panic(fmt.Sprintf("load config: %v", err))
		}
		configSingleton = &ConfigSingleton{Config: cf}

		if v.ConfigFileUsed() == "" {
			return
		}
		v.OnConfigChange(func(e fsnotify.Event) {
			cf := &Config{}
			if err := v.Unmarshal(cf); err != nil {
				return
			}
			configSingleton.mu.Lock()
			configSingleton.Config = cf
			configSingleton.mu.Unlock()
		})
		v.WatchConfig()
	})
}

// Load reads path (may be absent) on top of defaults and the environment.
// 單純回傳錯誤, 由外部決定要不要中止
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		} else if err != nil {
			v.SetConfigFile("")
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cf, nil
}

func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "debug"
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JwtSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.PaymentProvider {
	case "fintoc":
		if c.FintocSecretKey == "" {
			errs = append(errs, errors.New("FINTOC_SECRET_KEY is required for the fintoc provider"))
		}
		if c.FintocContract != "checkout_session" && c.FintocContract != "payment_intent" {
			errs = append(errs, fmt.Errorf("FINTOC_CONTRACT %q is not checkout_session or payment_intent", c.FintocContract))
		}
	case "stripe":
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required for the stripe provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_PROVIDER %q is not fintoc or stripe", c.PaymentProvider))
	}
	return errors.Join(errs...)
}
