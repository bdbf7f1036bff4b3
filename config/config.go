package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lucasjlepore/fit-intervals/merge"
	"github.com/lucasjlepore/fit-intervals/metric"
	"github.com/lucasjlepore/fit-intervals/summary"
)

// EnvPrefix prefixes every environment override, e.g. FIT_INTERVALS_UNITS.
const EnvPrefix = "FIT_INTERVALS"

type ZonesConfig struct {
	FTPWatts float64 `mapstructure:"ftp_w" json:"ftp_w,omitempty"`
	MaxHR    float64 `mapstructure:"max_hr" json:"max_hr,omitempty"`
}

type LogConfig struct {
	File        string `mapstructure:"file" json:"file,omitempty"`
	Development bool   `mapstructure:"development" json:"development,omitempty"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr,omitempty"`
}

type Config struct {
	IntervalMetrics   string       `mapstructure:"interval_metrics" json:"interval_metrics"`
	Units             string       `mapstructure:"units" json:"units"`
	MultiIntervalMode string       `mapstructure:"multi_interval_mode" json:"multi_interval_mode"`
	DerivedFields     string       `mapstructure:"derived_fields" json:"derived_fields"`
	Language          string       `mapstructure:"language" json:"language"`
	Zones             ZonesConfig  `mapstructure:"zones" json:"zones"`
	ZonesFile         string       `mapstructure:"zones_file" json:"zones_file,omitempty"`
	CachePath         string       `mapstructure:"cache_path" json:"cache_path,omitempty"`
	Log               LogConfig    `mapstructure:"log" json:"log"`
	Server            ServerConfig `mapstructure:"server" json:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval_metrics", metric.DefaultSymbols)
	v.SetDefault("units", "metric")
	v.SetDefault("multi_interval_mode", "aggregate")
	v.SetDefault("derived_fields", "copy")
	v.SetDefault("language", "en")
	v.SetDefault("zones.ftp_w", 0)
	v.SetDefault("zones.max_hr", 0)
	v.SetDefault("zones_file", "")
	v.SetDefault("cache_path", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)
	v.SetDefault("server.addr", ":8080")
}

// Default returns the configuration with no file and no environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Load reads defaults, then the optional config file at path, then
// FIT_INTERVALS_* environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := cfg.Settings(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from the given files. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Symbols returns the configured display list in order.
func (c Config) Symbols() []metric.Symbol {
	return metric.ParseSymbols(c.IntervalMetrics)
}

// Settings validates the configuration and converts it to display settings.
func (c Config) Settings() (summary.Settings, error) {
	units, err := metric.ParseUnitSystem(c.Units)
	if err != nil {
		return summary.Settings{}, fmt.Errorf("config units: %w", err)
	}
	mode, err := summary.ParseMode(c.MultiIntervalMode)
	if err != nil {
		return summary.Settings{}, fmt.Errorf("config multi_interval_mode: %w", err)
	}
	derived, err := merge.ParseDerivedPolicy(c.DerivedFields)
	if err != nil {
		return summary.Settings{}, fmt.Errorf("config derived_fields: %w", err)
	}
	tag := language.English
	if c.Language != "" {
		if tag, err = language.Parse(c.Language); err != nil {
			return summary.Settings{}, fmt.Errorf("config language: %w", err)
		}
	}

	zones := metric.DefaultZones()
	if c.ZonesFile != "" {
		if zones, err = LoadZones(c.ZonesFile); err != nil {
			return summary.Settings{}, err
		}
	}
	if c.Zones.FTPWatts > 0 {
		zones.FTPWatts = c.Zones.FTPWatts
	}
	if c.Zones.MaxHR > 0 {
		zones.MaxHR = c.Zones.MaxHR
	}

	return summary.Settings{
		Symbols:  c.Symbols(),
		Units:    units,
		Mode:     mode,
		Derived:  derived,
		Language: tag,
		Zones:    zones,
	}, nil
}

// LoadZones reads a YAML zone file. Missing zone tables fall back to the
// defaults.
func LoadZones(path string) (metric.Zones, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metric.Zones{}, fmt.Errorf("read zones file: %w", err)
	}
	var zones metric.Zones
	if err := yaml.Unmarshal(data, &zones); err != nil {
		return metric.Zones{}, fmt.Errorf("parse zones file %s: %w", path, err)
	}
	for _, table := range [][]metric.Zone{zones.Power, zones.HeartRate} {
		for _, z := range table {
			if z.High <= z.Low {
				return metric.Zones{}, fmt.Errorf("zones file %s: zone %q has high <= low", path, z.Name)
			}
		}
	}
	return zones.WithDefaults(), nil
}
