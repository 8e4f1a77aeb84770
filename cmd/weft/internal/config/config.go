// Package config loads and writes weft.yaml. Values resolve in the
// usual order: defaults, then the config file, then WEFT_* environment
// variables. The struct stays plain data; commands translate it into
// compiler and cache options themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file commands look for at the project root.
const FileName = "weft.yaml"

// Config is the project configuration.
type Config struct {
	// Name is the project name, used by scaffolding and the dev page
	Name string `mapstructure:"name" yaml:"name"`

	// Src is the directory walked for .wx modules
	Src string `mapstructure:"src" yaml:"src"`

	// Out is the directory compiled .js and .js.map files land in
	Out string `mapstructure:"out" yaml:"out"`

	// SourceMap toggles .js.map emission
	SourceMap bool `mapstructure:"sourcemap" yaml:"sourcemap"`

	Dev   Dev   `mapstructure:"dev" yaml:"dev"`
	Cache Cache `mapstructure:"cache" yaml:"cache"`
}

// Dev configures the development server.
type Dev struct {
	Port int    `mapstructure:"port" yaml:"port"`
	Host string `mapstructure:"host" yaml:"host"`

	// Open requests a browser tab once the server is listening
	Open bool `mapstructure:"open" yaml:"open"`
}

// Cache configures the build artifact cache. MaxAge holds a
// time.ParseDuration string so the YAML stays readable.
type Cache struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir,omitempty"`
	MaxSize int64  `mapstructure:"max_size" yaml:"max_size"`
	MaxAge  string `mapstructure:"max_age" yaml:"max_age"`
	Policy  string `mapstructure:"policy" yaml:"policy"`
}

// Default returns the configuration weft create writes for a new
// project.
func Default(name string) *Config {
	return &Config{
		Name:      name,
		Src:       "src",
		Out:       "dist",
		SourceMap: true,
		Dev: Dev{
			Port: 8080,
			Host: "localhost",
		},
		Cache: Cache{
			Enabled: true,
			MaxSize: 1 << 30,
			MaxAge:  "168h",
			Policy:  "lru",
		},
	}
}

// Load reads the configuration for the project rooted at dir. A missing
// weft.yaml is not an error; defaults and environment variables apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("weft")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("WEFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default("")
	v.SetDefault("src", d.Src)
	v.SetDefault("out", d.Out)
	v.SetDefault("sourcemap", d.SourceMap)
	v.SetDefault("dev.port", d.Dev.Port)
	v.SetDefault("dev.host", d.Dev.Host)
	v.SetDefault("dev.open", d.Dev.Open)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.max_size", d.Cache.MaxSize)
	v.SetDefault("cache.max_age", d.Cache.MaxAge)
	v.SetDefault("cache.policy", d.Cache.Policy)
}

// Save writes the configuration as weft.yaml under dir.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", FileName, err)
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0644)
}
