package models

import "encoding/json"

// GeoCoordinate is a latitude/longitude pair, either configured or resolved by geocoding
type GeoCoordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// GeocodeResult represents one entry of the OpenWeatherMap direct geocoding response
type GeocodeResult struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Country   string  `json:"country"`
	State     string  `json:"state"`
}

// ForecastResponse represents the OpenWeatherMap 5 day / 3 hour forecast response.
// Cod is a string on success but the API sends a number for some errors.
type ForecastResponse struct {
	Cod     any             `json:"cod"`
	Message any             `json:"message"`
	List    []ForecastEntry `json:"list"`
}

// ForecastEntry is one forecast sample. Numeric fields keep the upstream
// text so they render exactly as received.
type ForecastEntry struct {
	Timestamp int64 `json:"dt"`
	Main      struct {
		Temp     json.Number `json:"temp"`
		Humidity json.Number `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed json.Number `json:"speed"`
	} `json:"wind"`
}

// Description returns the first weather condition's description, or "" when upstream sent none
func (e ForecastEntry) Description() string {
	if len(e.Weather) == 0 {
		return ""
	}
	return e.Weather[0].Description
}
