package contextfilter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"context-stack/internal/models"
	"context-stack/shared/config"
	"context-stack/shared/scheduler"
)

// ProbeMetrics represents what a probe run managed to check
type ProbeMetrics struct {
	TimeRendered    bool `json:"time_rendered"`
	ForecastFetched bool `json:"forecast_fetched"`
	Entries         int  `json:"entries"`
}

// GetSummary implements the scheduler.Metrics interface
func (m ProbeMetrics) GetSummary() string {
	if m.ForecastFetched {
		return fmt.Sprintf("context available, forecast returned %d entries", m.Entries)
	} else if m.TimeRendered {
		return "context available, weather not configured"
	}
	return "context unavailable"
}

// ForecastProbe implements the scheduler.Agent interface. It exercises the
// same configuration and upstream APIs the hooks rely on so /health reflects
// whether weather context can currently be served.
type ForecastProbe struct {
	config        *config.ContextConfig
	provider      *ContextProvider
	weatherClient *WeatherClient
}

func NewForecastProbe(cfg *config.ContextConfig) *ForecastProbe {
	return &ForecastProbe{
		config: cfg,
	}
}

func (f *ForecastProbe) Name() string {
	return "Forecast Probe"
}

func (f *ForecastProbe) Initialize() error {
	log.Printf("Initializing %s...", f.Name())

	if f.provider == nil {
		f.provider = NewContextProvider(f.config)
	}
	if f.weatherClient == nil {
		f.weatherClient = f.provider.weather
	}

	if f.config.OpenWeatherAPIKey == "" {
		log.Println("Warning: OPENWEATHER_API_KEY is not set, weather context will be unavailable")
	}

	log.Printf("Configured for %.4f, %.4f in %s (%s units)",
		f.config.Latitude, f.config.Longitude, f.config.Timezone, f.config.Units)

	return nil
}

func (f *ForecastProbe) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := ProbeMetrics{}

	currentTime, err := f.provider.CurrentTime()
	if err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(startTime))
		}
		return err
	}
	metrics.TimeRendered = true
	log.Println(currentTime)

	loc := models.GeoCoordinate{Latitude: f.config.Latitude, Longitude: f.config.Longitude}
	forecast, err := f.weatherClient.GetForecast(ctx, loc)
	switch {
	case errors.Is(err, ErrAPIKeyMissing):
		// Time context still works without weather
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
	case err != nil:
		err = fmt.Errorf("failed to fetch forecast: %w", err)
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(startTime))
		}
		return err
	default:
		if cod, ok := forecast.Cod.(string); !ok || cod != "200" {
			err = fmt.Errorf("forecast API reported %v: %v", forecast.Cod, forecast.Message)
			if events != nil && events.OnCriticalFailure != nil {
				events.OnCriticalFailure(err, time.Since(startTime))
			}
			return err
		}
		metrics.ForecastFetched = true
		metrics.Entries = len(forecast.List)
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}

	log.Printf("Forecast probe complete: time=%t, forecast=%t", metrics.TimeRendered, metrics.ForecastFetched)

	return nil
}
