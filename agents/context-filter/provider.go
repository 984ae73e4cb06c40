package contextfilter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"context-stack/internal/models"
	"context-stack/shared/config"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxForecastEntries is the number of upcoming forecast samples rendered
const MaxForecastEntries = 5

const (
	currentDateLayout  = "Monday, January 02, 2006"
	currentClockLayout = "15:04:05"
	forecastDateLayout = "Monday, January 02, 2006, 03:04 PM"
)

// ConfigurationError reports a configuration value that cannot be used
type ConfigurationError struct {
	Setting string
	Value   string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Setting, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ContextProvider renders the context injected into conversations: the
// current time, and weather forecasts from OpenWeatherMap.
//
// Upstream failures never surface as errors; they become user-facing text.
type ContextProvider struct {
	config  *config.ContextConfig
	weather *WeatherClient
	now     func() time.Time
}

func NewContextProvider(cfg *config.ContextConfig) *ContextProvider {
	return &ContextProvider{
		config:  cfg,
		weather: NewWeatherClient(cfg),
		now:     time.Now,
	}
}

// CurrentTime renders now in the configured timezone
func (p *ContextProvider) CurrentTime() (string, error) {
	location, err := time.LoadLocation(p.config.Timezone)
	if err != nil {
		return "", &ConfigurationError{Setting: "timezone", Value: p.config.Timezone, Err: err}
	}

	now := p.now().In(location)
	return fmt.Sprintf("Current Date is %s, current time is %s.",
		now.Format(currentDateLayout), now.Format(currentClockLayout)), nil
}

// Geocode returns the coordinates for city, or the configured default when
// city is empty. It returns nil when the location cannot be resolved.
func (p *ContextProvider) Geocode(ctx context.Context, city string) *models.GeoCoordinate {
	if city == "" {
		return &models.GeoCoordinate{
			Latitude:  p.config.Latitude,
			Longitude: p.config.Longitude,
		}
	}

	loc, err := p.weather.Geocode(ctx, city)
	if err != nil {
		if !errors.Is(err, ErrAPIKeyMissing) {
			log.Printf("Error fetching location data: %v", err)
		}
		return nil
	}
	return loc
}

// Forecast returns a readable forecast of the next few samples for city
// (or the default location), or a message describing why none is available.
func (p *ContextProvider) Forecast(ctx context.Context, city string) string {
	loc := p.Geocode(ctx, city)
	if loc == nil {
		return fmt.Sprintf("Could not find the location for %s. Please try again.", city)
	}

	if p.config.OpenWeatherAPIKey == "" {
		return "API key is not set in the environment variable 'OPENWEATHER_API_KEY'."
	}

	forecast, err := p.weather.GetForecast(ctx, *loc)
	if err != nil {
		log.Printf("Warning: Failed to fetch forecast: %v", err)
		return fmt.Sprintf("Error fetching weather forecast: %v", err)
	}

	if cod, ok := forecast.Cod.(string); !ok || cod != "200" {
		return strings.TrimSpace(fmt.Sprintf("Error fetching weather forecast: %s %s",
			payloadValue(forecast.Message), payloadValue(forecast.Cod)))
	}

	entries := forecast.List
	if len(entries) > MaxForecastEntries {
		entries = entries[:MaxForecastEntries]
	}

	readable := make([]string, 0, len(entries))
	for _, entry := range entries {
		readable = append(readable, FormatForecastEntry(entry))
	}

	return strings.Join(readable, "\n\n")
}

// FormatForecastEntry renders one forecast sample as a sentence. Units are
// always labelled °F and mph whatever unit system was requested.
func FormatForecastEntry(entry models.ForecastEntry) string {
	return fmt.Sprintf("At %s, the weather will be %s with a temperature of %s°F. Humidity will be %s%%, and wind speed will be %s mph.",
		FormatTimestamp(entry.Timestamp),
		capitalize(entry.Description()),
		entry.Main.Temp,
		entry.Main.Humidity,
		entry.Wind.Speed,
	)
}

// FormatTimestamp renders epoch seconds in UTC on a 12-hour clock
func FormatTimestamp(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(forecastDateLayout)
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(string(r)) + cases.Lower(language.Und).String(s[size:])
}

func payloadValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
