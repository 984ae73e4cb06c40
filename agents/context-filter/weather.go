package contextfilter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"context-stack/internal/models"
	"context-stack/shared/config"
)

var (
	// ErrAPIKeyMissing is returned when no OpenWeatherMap API key is configured
	ErrAPIKeyMissing = errors.New("OpenWeatherMap API key is not configured")
	// ErrLocationNotFound is returned when geocoding yields no result
	ErrLocationNotFound = errors.New("location not found")
)

// WeatherClient handles interactions with the OpenWeatherMap geocoding and forecast APIs
type WeatherClient struct {
	config *config.ContextConfig
	client *http.Client
}

func NewWeatherClient(cfg *config.ContextConfig) *WeatherClient {
	return &WeatherClient{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Geocode resolves a city name to the coordinates of the first match
func (w *WeatherClient) Geocode(ctx context.Context, city string) (*models.GeoCoordinate, error) {
	if w.config.OpenWeatherAPIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", w.config.OpenWeatherAPIKey)
	params.Set("limit", "1")

	log.Printf("Geocoding %q", city)

	var results []models.GeocodeResult
	if err := w.getJSON(ctx, w.config.GeocodeURL, params, &results); err != nil {
		return nil, fmt.Errorf("failed to fetch location data: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%q: %w", city, ErrLocationNotFound)
	}

	return &models.GeoCoordinate{
		Latitude:  results[0].Latitude,
		Longitude: results[0].Longitude,
	}, nil
}

// GetForecast fetches the 5 day / 3 hour forecast for the given coordinates.
// The payload status (Cod) is left for the caller to interpret.
func (w *WeatherClient) GetForecast(ctx context.Context, loc models.GeoCoordinate) (*models.ForecastResponse, error) {
	if w.config.OpenWeatherAPIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	params.Set("appid", w.config.OpenWeatherAPIKey)
	params.Set("units", w.config.Units)

	log.Printf("Fetching forecast for %.4f, %.4f (%s)", loc.Latitude, loc.Longitude, w.config.Units)

	var forecast models.ForecastResponse
	if err := w.getJSON(ctx, w.config.ForecastURL, params, &forecast); err != nil {
		return nil, err
	}

	return &forecast, nil
}

func (w *WeatherClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		// url.Error repeats the full URL, API key included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("request to %s failed: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned status %s", u.Host+u.Path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
