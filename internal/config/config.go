package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfg     *Config
	loadErr error
	once    sync.Once
	mu      sync.RWMutex
)

// Config is the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Freshdesk FreshdeskConfig `mapstructure:"freshdesk"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Export    ExportConfig    `mapstructure:"export"`
}

type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TemplateDir     string        `mapstructure:"template_dir"`
}

type FreshdeskConfig struct {
	Domain       string        `mapstructure:"domain"`
	APIKey       string        `mapstructure:"api_key"`
	TicketTTL    time.Duration `mapstructure:"ticket_ttl"`
	DirectoryTTL time.Duration `mapstructure:"directory_ttl"`
}

type ContractsConfig struct {
	WorkbookPath string `mapstructure:"workbook_path"`
}

// BillingConfig overrides the default rule sets. Empty slices keep the
// built-in defaults.
type BillingConfig struct {
	SaaSProducts       []string `mapstructure:"saas_products"`
	UnbillableStatuses []string `mapstructure:"unbillable_statuses"`
}

type CacheConfig struct {
	Backend string      `mapstructure:"backend"` // "local" or "redis"
	MaxSize int         `mapstructure:"max_size"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Users     []UserConfig  `mapstructure:"users"`
}

type UserConfig struct {
	Username     string `mapstructure:"username"`
	Name         string `mapstructure:"name"`
	PasswordHash string `mapstructure:"password_hash"`
	ClientCode   string `mapstructure:"client_code"`
	Role         string `mapstructure:"role"`
}

type ExportConfig struct {
	Territories []string `mapstructure:"territories"`
}

// Load reads config.yaml from configPath with BILLDESK_* environment
// overrides and watches the file for changes. Only the first call does
// any work; a failed first load is remembered so retries keep reporting
// the error instead of returning nil with no config behind Get.
func Load(configPath string) error {
	once.Do(func() {
		v := viper.New()
		v.SetConfigType("yaml")
		v.SetConfigName("config")
		v.AddConfigPath(configPath)

		setDefaults(v)

		if err := v.ReadInConfig(); err != nil {
			loadErr = fmt.Errorf("read config: %w", err)
			return
		}

		v.SetEnvPrefix("BILLDESK")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		loaded := &Config{}
		if err := v.Unmarshal(loaded); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}
		if err := loaded.Validate(); err != nil {
			loadErr = err
			return
		}
		cfg = loaded

		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Printf("config: %s changed, reloading", e.Name)

			reloaded := &Config{}
			if err := v.Unmarshal(reloaded); err != nil {
				log.Printf("config: reload failed: %v", err)
				return
			}
			if err := reloaded.Validate(); err != nil {
				log.Printf("config: reload rejected: %v", err)
				return
			}

			mu.Lock()
			cfg = reloaded
			mu.Unlock()
			log.Printf("config: reloaded")
		})
	})

	return loadErr
}

// LoadFromFile loads one specific config file, without watching. Mainly
// for tests.
func LoadFromFile(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = loaded
	return nil
}

// Get returns the current configuration. Safe across reloads.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "billdesk")
	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.template_dir", "templates")
	v.SetDefault("freshdesk.ticket_ttl", "1h")
	v.SetDefault("freshdesk.directory_ttl", "168h")
	v.SetDefault("cache.backend", "local")
	v.SetDefault("cache.max_size", 10000)
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("export.territories", []string{"Made Media Inc.", "Made Media Ltd."})
}

// GetServerAddr returns the listen address.
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the app runs in production mode.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
