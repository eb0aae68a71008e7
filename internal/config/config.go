// Package config loads process configuration from defaults, an optional
// YAML file and SUBCONVERTER_* environment variables, in increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SUBCONVERTER"

type Config struct {
	Server struct {
		Listen            string        `mapstructure:"listen"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
		ConvertTimeout    time.Duration `mapstructure:"convert_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
		// Token guards publishing and published documents; empty disables
		// the check.
		Token string `mapstructure:"token"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Fetch struct {
		Timeout      time.Duration `mapstructure:"timeout"`
		MaxBytes     int64         `mapstructure:"max_bytes"`
		MaxRedirects int           `mapstructure:"max_redirects"`
		UserAgent    string        `mapstructure:"user_agent"`
		Proxy        string        `mapstructure:"proxy"`
	} `mapstructure:"fetch"`
	Convert struct {
		Parallel    int `mapstructure:"parallel"`
		MaxRulesets int `mapstructure:"max_rulesets"`
	} `mapstructure:"convert"`
	Publish struct {
		Enabled bool   `mapstructure:"enabled"`
		DBPath  string `mapstructure:"db_path"`
	} `mapstructure:"publish"`
	Settings struct {
		// Path is pref.yml; empty uses built-in defaults.
		Path string `mapstructure:"path"`
	} `mapstructure:"settings"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:25500")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.convert_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_bytes", 0)
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.user_agent", "subconverter-go")
	v.SetDefault("fetch.proxy", "")
	v.SetDefault("convert.parallel", 4)
	v.SetDefault("convert.max_rulesets", 64)
	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.db_path", filepath.Join("data", "published.db"))
	v.SetDefault("settings.path", "")
}

// Init builds a Config. An explicit cfgFile must exist; without one,
// ./subconverter.yaml is read when present.
func Init(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("subconverter")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfgFile == "" && errors.As(err, &notFound):
		case cfgFile != "" && errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("配置文件不存在：%s: %w", cfgFile, err)
		default:
			return nil, fmt.Errorf("配置文件读取失败：%w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("配置解码失败：%w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen 不能为空")
	}
	if c.Convert.Parallel < 1 {
		c.Convert.Parallel = 1
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout 必须为正数：%s", c.Fetch.Timeout)
	}
	return nil
}
