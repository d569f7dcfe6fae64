// Package config loads the plugin-wide defaults: built-in values, overridden
// by an optional config file, overridden by NAGPROBE_* environment variables.
// Per-invocation settings come from command line flags and are not handled
// here.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "NAGPROBE"

type Config struct {
	// TempDir is the scratch directory for scanner output.
	TempDir  string   `mapstructure:"temp_dir" validate:"required"`
	Nmap     Nmap     `mapstructure:"nmap"`
	PCP      PCP      `mapstructure:"pcp"`
	Asterisk Asterisk `mapstructure:"asterisk"`
}

type Nmap struct {
	// Command is the scanner invocation the port range and host are appended
	// to. From the environment it is comma separated. Only the executable must
	// be non-empty; arguments may be empty strings.
	Command      []string      `mapstructure:"command" validate:"min=1"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

type PCP struct {
	Pmval        string        `mapstructure:"pmval" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

type Asterisk struct {
	Host    string        `mapstructure:"host" validate:"required"`
	Port    int           `mapstructure:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("temp_dir", os.TempDir())

	v.SetDefault("nmap.command", []string{"nmap", "-Pn"})
	v.SetDefault("nmap.timeout", 10*time.Second)
	v.SetDefault("nmap.poll_interval", time.Second)

	v.SetDefault("pcp.pmval", "/usr/bin/pmval")
	v.SetDefault("pcp.timeout", 10*time.Second)
	v.SetDefault("pcp.poll_interval", 100*time.Millisecond)

	v.SetDefault("asterisk.host", "127.0.0.1")
	v.SetDefault("asterisk.port", 5038)
	v.SetDefault("asterisk.timeout", 10*time.Second)
}

// Load reads the configuration. If path is empty, nagprobe.{yaml,toml,json}
// is looked up in /etc/nagprobe and $HOME/.config/nagprobe, and a missing file
// is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	} else {
		v.SetConfigName("nagprobe")
		v.AddConfigPath("/etc/nagprobe")
		v.AddConfigPath("$HOME/.config/nagprobe")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := validator.New().Struct(c); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &c, nil
}
