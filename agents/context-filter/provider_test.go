package contextfilter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"context-stack/internal/models"
	"context-stack/shared/config"
)

// fakeOpenWeather serves canned geocoding and forecast responses
type fakeOpenWeather struct {
	mu             sync.Mutex
	geocodeCalls   int
	forecastCalls  int
	geocodeQuery   url.Values
	forecastQuery  url.Values
	geocodeStatus  int
	geocodeBody    string
	forecastStatus int
	forecastBody   string
}

func (f *fakeOpenWeather) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status, body := http.StatusOK, ""
	switch r.URL.Path {
	case "/geo/1.0/direct":
		f.geocodeCalls++
		f.geocodeQuery = r.URL.Query()
		status, body = f.geocodeStatus, f.geocodeBody
	case "/data/2.5/forecast":
		f.forecastCalls++
		f.forecastQuery = r.URL.Query()
		status, body = f.forecastStatus, f.forecastBody
	default:
		status = http.StatusNotFound
	}

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *fakeOpenWeather) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geocodeCalls, f.forecastCalls
}

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func newTestProvider(t *testing.T, fake *fakeOpenWeather, apiKey string) *ContextProvider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.ContextConfig{
		Timezone:          "America/Montreal",
		Latitude:          42.38055,
		Longitude:         -71.0952,
		OpenWeatherAPIKey: apiKey,
		Units:             "imperial",
		GeocodeURL:        srv.URL + "/geo/1.0/direct",
		ForecastURL:       srv.URL + "/data/2.5/forecast",
	}

	p := NewContextProvider(cfg)
	p.now = func() time.Time { return fixedNow }
	return p
}

func forecastJSON(count int) string {
	entries := make([]string, count)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"dt": %d, "main": {"temp": %s, "humidity": %d}, "weather": [{"main": "Rain", "description": "light rain"}], "wind": {"speed": 5.75}}`,
			1700000000+i*10800, []string{"45.5", "44", "43.12", "42.0", "41", "40"}[i%6], 80+i)
	}
	return fmt.Sprintf(`{"cod": "200", "message": 0, "cnt": %d, "list": [%s]}`, count, strings.Join(entries, ","))
}

func TestCurrentTime(t *testing.T) {
	p := newTestProvider(t, &fakeOpenWeather{}, "")

	got, err := p.CurrentTime()
	if err != nil {
		t.Fatalf("CurrentTime() error = %v", err)
	}

	want := "Current Date is Tuesday, March 05, 2024, current time is 09:07:09."
	if got != want {
		t.Errorf("CurrentTime() = %q, want %q", got, want)
	}
}

func TestCurrentTimeUnknownTimezone(t *testing.T) {
	p := newTestProvider(t, &fakeOpenWeather{}, "")
	p.config.Timezone = "Mars/Olympus_Mons"

	_, err := p.CurrentTime()

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfgErr.Setting != "timezone" || cfgErr.Value != "Mars/Olympus_Mons" {
		t.Errorf("Unexpected configuration error %+v", cfgErr)
	}
}

func TestGeocode(t *testing.T) {
	tests := []struct {
		name         string
		city         string
		apiKey       string
		status       int
		body         string
		want         *models.GeoCoordinate
		wantRequests int
	}{
		{
			name:         "Empty city uses default without network",
			city:         "",
			apiKey:       "key",
			want:         &models.GeoCoordinate{Latitude: 42.38055, Longitude: -71.0952},
			wantRequests: 0,
		},
		{
			name:         "Empty city uses default without API key",
			city:         "",
			apiKey:       "",
			want:         &models.GeoCoordinate{Latitude: 42.38055, Longitude: -71.0952},
			wantRequests: 0,
		},
		{
			name:         "Missing API key returns nil without network",
			city:         "Paris",
			apiKey:       "",
			want:         nil,
			wantRequests: 0,
		},
		{
			name:         "First result is returned as supplied",
			city:         "Paris",
			apiKey:       "key",
			body:         `[{"name": "Paris", "lat": 48.8588897, "lon": 2.3200410217200766, "country": "FR"}]`,
			want:         &models.GeoCoordinate{Latitude: 48.8588897, Longitude: 2.3200410217200766},
			wantRequests: 1,
		},
		{
			name:         "City not found",
			city:         "Atlantis",
			apiKey:       "key",
			body:         `[]`,
			want:         nil,
			wantRequests: 1,
		},
		{
			name:         "Upstream error status",
			city:         "Paris",
			apiKey:       "key",
			status:       http.StatusUnauthorized,
			body:         `{"cod": 401, "message": "Invalid API key"}`,
			want:         nil,
			wantRequests: 1,
		},
		{
			name:         "Malformed payload",
			city:         "Paris",
			apiKey:       "key",
			body:         `{"unexpected": true}`,
			want:         nil,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOpenWeather{geocodeStatus: tt.status, geocodeBody: tt.body}
			p := newTestProvider(t, fake, tt.apiKey)

			got := p.Geocode(context.Background(), tt.city)

			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Geocode(%q) = %+v, want %+v", tt.city, got, tt.want)
			}
			if geocodeCalls, _ := fake.calls(); geocodeCalls != tt.wantRequests {
				t.Errorf("Expected %d geocoding requests, got %d", tt.wantRequests, geocodeCalls)
			}
		})
	}
}

func TestGeocodeQuery(t *testing.T) {
	fake := &fakeOpenWeather{geocodeBody: `[{"lat": 1, "lon": 2}]`}
	p := newTestProvider(t, fake, "secret")

	p.Geocode(context.Background(), "Somerville, MA")

	if q := fake.geocodeQuery; q.Get("q") != "Somerville, MA" || q.Get("appid") != "secret" || q.Get("limit") != "1" {
		t.Errorf("Unexpected geocoding query %v", q)
	}
}

func TestForecast(t *testing.T) {
	fake := &fakeOpenWeather{forecastBody: forecastJSON(6)}
	p := newTestProvider(t, fake, "secret")

	got := p.Forecast(context.Background(), "")

	want := strings.Join([]string{
		"At Tuesday, November 14, 2023, 10:13 PM, the weather will be Light rain with a temperature of 45.5°F. Humidity will be 80%, and wind speed will be 5.75 mph.",
		"At Wednesday, November 15, 2023, 01:13 AM, the weather will be Light rain with a temperature of 44°F. Humidity will be 81%, and wind speed will be 5.75 mph.",
		"At Wednesday, November 15, 2023, 04:13 AM, the weather will be Light rain with a temperature of 43.12°F. Humidity will be 82%, and wind speed will be 5.75 mph.",
		"At Wednesday, November 15, 2023, 07:13 AM, the weather will be Light rain with a temperature of 42.0°F. Humidity will be 83%, and wind speed will be 5.75 mph.",
		"At Wednesday, November 15, 2023, 10:13 AM, the weather will be Light rain with a temperature of 41°F. Humidity will be 84%, and wind speed will be 5.75 mph.",
	}, "\n\n")

	if got != want {
		t.Errorf("Forecast() =\n%s\nwant\n%s", got, want)
	}

	if geocodeCalls, forecastCalls := fake.calls(); geocodeCalls != 0 || forecastCalls != 1 {
		t.Errorf("Expected 0 geocoding and 1 forecast request, got %d and %d", geocodeCalls, forecastCalls)
	}

	q := fake.forecastQuery
	if q.Get("lat") != "42.38055" || q.Get("lon") != "-71.0952" || q.Get("appid") != "secret" || q.Get("units") != "imperial" {
		t.Errorf("Unexpected forecast query %v", q)
	}
}

func TestForecastFewerThanFiveEntries(t *testing.T) {
	fake := &fakeOpenWeather{forecastBody: forecastJSON(2)}
	p := newTestProvider(t, fake, "secret")

	got := p.Forecast(context.Background(), "")

	if n := strings.Count(got, "At "); n != 2 {
		t.Errorf("Expected 2 entries, got %d in %q", n, got)
	}
	if strings.Count(got, "\n\n") != 1 {
		t.Errorf("Expected exactly one blank line separator, got %q", got)
	}
}

func TestForecastUsesGeocodedCity(t *testing.T) {
	fake := &fakeOpenWeather{
		geocodeBody:  `[{"lat": 48.8566, "lon": 2.3522}]`,
		forecastBody: forecastJSON(1),
	}
	p := newTestProvider(t, fake, "secret")
	p.config.Units = "metric"

	p.Forecast(context.Background(), "Paris")

	q := fake.forecastQuery
	if q.Get("lat") != "48.8566" || q.Get("lon") != "2.3522" || q.Get("units") != "metric" {
		t.Errorf("Unexpected forecast query %v", q)
	}
}

func TestForecastMessages(t *testing.T) {
	tests := []struct {
		name           string
		city           string
		apiKey         string
		geocodeBody    string
		forecastStatus int
		forecastBody   string
		want           string
		wantPrefix     string
	}{
		{
			name:   "Unknown city without API key",
			city:   "Paris",
			apiKey: "",
			want:   "Could not find the location for Paris. Please try again.",
		},
		{
			name:        "City not found",
			city:        "Atlantis",
			apiKey:      "key",
			geocodeBody: `[]`,
			want:        "Could not find the location for Atlantis. Please try again.",
		},
		{
			name:   "Default location without API key",
			city:   "",
			apiKey: "",
			want:   "API key is not set in the environment variable 'OPENWEATHER_API_KEY'.",
		},
		{
			name:           "Transport error status",
			apiKey:         "key",
			forecastStatus: http.StatusInternalServerError,
			wantPrefix:     "Error fetching weather forecast: ",
		},
		{
			name:         "Payload status not 200",
			apiKey:       "key",
			forecastBody: `{"cod": "400", "message": "wrong latitude"}`,
			want:         "Error fetching weather forecast: wrong latitude 400",
		},
		{
			name:         "Numeric payload status",
			apiKey:       "key",
			forecastBody: `{"cod": 200, "message": 0, "list": []}`,
			want:         "Error fetching weather forecast: 0 200",
		},
		{
			name:         "Undecodable payload",
			apiKey:       "key",
			forecastBody: `not json`,
			wantPrefix:   "Error fetching weather forecast: failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOpenWeather{
				geocodeBody:    tt.geocodeBody,
				forecastStatus: tt.forecastStatus,
				forecastBody:   tt.forecastBody,
			}
			p := newTestProvider(t, fake, tt.apiKey)

			got := p.Forecast(context.Background(), tt.city)

			if tt.want != "" && got != tt.want {
				t.Errorf("Forecast() = %q, want %q", got, tt.want)
			}
			if tt.wantPrefix != "" && !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Forecast() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if strings.Contains(got, "appid") {
				t.Errorf("Forecast() leaked the request URL: %q", got)
			}
		})
	}
}

func TestForecastTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	unreachable := srv.URL
	srv.Close()

	p := NewContextProvider(&config.ContextConfig{
		Timezone:          "UTC",
		OpenWeatherAPIKey: "secret",
		Units:             "imperial",
		ForecastURL:       unreachable,
	})

	got := p.Forecast(context.Background(), "")

	if !strings.HasPrefix(got, "Error fetching weather forecast: ") {
		t.Errorf("Unexpected message %q", got)
	}
	if strings.Contains(got, "secret") {
		t.Errorf("Message leaked the API key: %q", got)
	}
}

func TestFormatForecastEntry(t *testing.T) {
	var entry models.ForecastEntry
	entry.Timestamp = 1709647629
	entry.Main.Temp = "71"
	entry.Main.Humidity = "55"
	entry.Wind.Speed = "3.2"

	got := FormatForecastEntry(entry)
	want := "At Tuesday, March 05, 2024, 02:07 PM, the weather will be  with a temperature of 71°F. Humidity will be 55%, and wind speed will be 3.2 mph."
	if got != want {
		t.Errorf("FormatForecastEntry() = %q, want %q", got, want)
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"clear sky", "Clear sky"},
		{"lIGHT RAIN", "Light rain"},
		{"éclaircies", "Éclaircies"},
	}

	for _, tt := range tests {
		if got := capitalize(tt.in); got != tt.want {
			t.Errorf("capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
