package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hemaweb/featmock/pkg/mock"
)

// Environment names understood by the mock switches.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Default server address, matching MOCK_HOST / MOCK_PORT defaults.
const (
	DefaultHost = "localhost"
	DefaultPort = 3001
	DefaultBase = "/api"
)

// Config is the resolved featmock configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Mock   MockConfig   `mapstructure:"mock" yaml:"mock"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ServerConfig configures the standalone server.
type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// MockConfig configures route collection and dispatch.
type MockConfig struct {
	// Enabled is derived: VITE_USE_MOCK == "true" or a non-production environment.
	Enabled bool     `mapstructure:"-" yaml:"-"`
	Base    string   `mapstructure:"base" yaml:"base"`
	Root    string   `mapstructure:"root" yaml:"root"`
	Globs   []string `mapstructure:"globs" yaml:"globs"`
	Include []string `mapstructure:"include" yaml:"include"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	Log     bool     `mapstructure:"log" yaml:"log"`
	Verbose bool     `mapstructure:"verbose" yaml:"verbose"`
	Watch   bool     `mapstructure:"watch" yaml:"watch"`
	NoDelay bool     `mapstructure:"no_delay" yaml:"no_delay"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// Addr returns host:port for the standalone server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// IsProduction reports whether NODE_ENV (or server.environment) is production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// envBindings maps config keys to the plain environment variables the
// frontend tooling already uses. FEATMOCK_<KEY> works for every key as well.
var envBindings = map[string][]string{
	"server.port":        {"MOCK_PORT"},
	"server.host":        {"MOCK_HOST"},
	"server.environment": {"NODE_ENV"},
	"mock.include":       {"VITE_MOCK_INCLUDE"},
	"mock.exclude":       {"VITE_MOCK_EXCLUDE"},
	"mock.use_mock":      {"VITE_USE_MOCK"},
}

// flagBindings maps cobra flag names to config keys.
var flagBindings = map[string]string{
	"host":       "server.host",
	"port":       "server.port",
	"base":       "mock.base",
	"root":       "mock.root",
	"glob":       "mock.globs",
	"include":    "mock.include",
	"exclude":    "mock.exclude",
	"watch":      "mock.watch",
	"no-delay":   "mock.no_delay",
	"verbose":    "mock.verbose",
	"log":        "mock.log",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
}

// New returns a viper instance with featmock defaults and environment
// bindings applied.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.environment", EnvDevelopment)
	v.SetDefault("mock.base", DefaultBase)
	v.SetDefault("mock.root", ".")
	v.SetDefault("mock.log", true)
	v.SetDefault("mock.watch", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("FEATMOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		// Plain names win over FEATMOCK_ ones.
		_ = v.BindEnv(append([]string{key}, append(names, "FEATMOCK_"+envKey(key))...)...)
	}
	return v
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// BindFlags binds the known flags present in fs onto v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagBindings {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file and resolves the configuration. With an
// empty path, featmock.yaml is looked up in the working directory and a
// missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("featmock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Mock.Globs = normalizeList(cfg.Mock.Globs)
	cfg.Mock.Include = normalizeList(cfg.Mock.Include)
	cfg.Mock.Exclude = normalizeList(cfg.Mock.Exclude)
	cfg.Mock.Enabled = v.GetString("mock.use_mock") == "true" || !cfg.IsProduction()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Host == "" {
		return errors.New("server.host is empty")
	}
	if c.Mock.Base != "" && !strings.HasPrefix(c.Mock.Base, "/") {
		return fmt.Errorf("mock.base %q must start with /", c.Mock.Base)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// normalizeList flattens comma-separated entries, so a YAML list, a flag
// slice and an env string like "feat-users, feat-roles" all end up alike.
func normalizeList(in []string) []string {
	return mock.ParseList(strings.Join(in, ","))
}
