package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimezone    = "America/Montreal"
	DefaultLatitude    = 42.38055 // Union Sq, Somerville, MA
	DefaultLongitude   = -71.0952
	DefaultUnits       = "imperial"
	DefaultGeocodeURL  = "http://api.openweathermap.org/geo/1.0/direct"
	DefaultForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
)

type Config struct {
	Context  ContextConfig `yaml:"context"`
	Server   ServerConfig  `yaml:"server"`
	AI       AIConfig      `yaml:"ai"`
	Schedule string        `yaml:"schedule"`
}

// ContextConfig holds the settings of the context filter. Values are used
// as provided; a bad timezone only fails when the current time is rendered.
type ContextConfig struct {
	Timezone          string  `yaml:"timezone" env:"CONTEXT_TIMEZONE"`
	Latitude          float64 `yaml:"latitude"`
	Longitude         float64 `yaml:"longitude"`
	OpenWeatherAPIKey string  `yaml:"openweather_api_key" env:"OPENWEATHER_API_KEY"`
	Units             string  `yaml:"units"` // imperial, metric or standard
	GeocodeURL        string  `yaml:"geocode_url"`
	ForecastURL       string  `yaml:"forecast_url"`
}

type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Every setting is optional
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if cfg.Context.OpenWeatherAPIKey == "" {
		cfg.Context.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	}
	if tz := os.Getenv("CONTEXT_TIMEZONE"); tz != "" && cfg.Context.Timezone == "" {
		cfg.Context.Timezone = tz
	}
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Server.Port == 0 {
		if port := os.Getenv("PORT"); port != "" {
			p, err := strconv.Atoi(port)
			if err != nil {
				return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
			}
			cfg.Server.Port = p
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Context.Timezone == "" {
		c.Context.Timezone = DefaultTimezone
	}
	// Zero coordinates are indistinguishable from unset ones in YAML
	if c.Context.Latitude == 0 && c.Context.Longitude == 0 {
		c.Context.Latitude = DefaultLatitude
		c.Context.Longitude = DefaultLongitude
	}
	if c.Context.Units == "" {
		c.Context.Units = DefaultUnits
	}
	if c.Context.GeocodeURL == "" {
		c.Context.GeocodeURL = DefaultGeocodeURL
	}
	if c.Context.ForecastURL == "" {
		c.Context.ForecastURL = DefaultForecastURL
	}

	if c.Server.Port == 0 {
		c.Server.Port = 9099
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Schedule == "" {
		c.Schedule = "0 */30 * * * *" // Every 30 minutes (cron with seconds)
	}
}

// ValidateChat checks the settings needed to run a model round trip
func (c *Config) ValidateChat() error {
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	return nil
}
