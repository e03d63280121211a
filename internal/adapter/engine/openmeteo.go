package engine

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"omnisearch/internal/domain"
)

const defaultOpenMeteoURL = "https://api.open-meteo.com"

// place is one gazetteer entry for the weather adapter.
type place struct {
	name string
	lat  float64
	lon  float64
}

// weatherPlaces covers major cities. Geocoding arbitrary locations would
// need a second round trip per query, which the one-request adapter
// contract does not allow.
var weatherPlaces = map[string]place{
	"berlin":    {"Berlin", 52.52, 13.41},
	"london":    {"London", 51.51, -0.13},
	"paris":     {"Paris", 48.85, 2.35},
	"madrid":    {"Madrid", 40.42, -3.70},
	"rome":      {"Rome", 41.89, 12.48},
	"vienna":    {"Vienna", 48.21, 16.37},
	"amsterdam": {"Amsterdam", 52.37, 4.89},
	"new york":  {"New York", 40.71, -74.01},
	"tokyo":     {"Tokyo", 35.69, 139.69},
	"sydney":    {"Sydney", -33.87, 151.21},
	"moscow":    {"Moscow", 55.75, 37.62},
	"beijing":   {"Beijing", 39.91, 116.40},
	"sao paulo": {"São Paulo", -23.55, -46.63},
	"cairo":     {"Cairo", 30.04, 31.24},
	"mumbai":    {"Mumbai", 19.08, 72.88},
}

// wmoConditions maps WMO weather interpretation codes to display text.
var wmoConditions = map[int]string{
	0: "clear sky", 1: "mainly clear", 2: "partly cloudy", 3: "overcast",
	45: "fog", 48: "depositing rime fog",
	51: "light drizzle", 53: "drizzle", 55: "dense drizzle",
	61: "light rain", 63: "rain", 65: "heavy rain",
	71: "light snow", 73: "snow", 75: "heavy snow",
	80: "rain showers", 81: "heavy rain showers", 82: "violent rain showers",
	95: "thunderstorm", 96: "thunderstorm with hail", 99: "thunderstorm with heavy hail",
}

// OpenMeteo answers weather queries with current conditions. Queries
// without weather intent or an unknown place yield no results.
type OpenMeteo struct {
	desc    domain.Descriptor
	baseURL string
}

// NewOpenMeteo creates the adapter. An empty baseURL uses the public API.
func NewOpenMeteo(desc domain.Descriptor, baseURL string) *OpenMeteo {
	if baseURL == "" {
		baseURL = defaultOpenMeteoURL
	}
	desc.Kind = domain.KindSpecialized
	return &OpenMeteo{desc: desc, baseURL: baseURL}
}

func (o *OpenMeteo) Descriptor() domain.Descriptor { return o.desc }

func (o *OpenMeteo) BuildRequest(q domain.Query, _ string) (*domain.RequestSpec, error) {
	p, ok := parseWeatherQuery(q.Normalized())
	if !ok {
		return &domain.RequestSpec{}, nil
	}

	params := url.Values{
		"latitude":        {strconv.FormatFloat(p.lat, 'f', 2, 64)},
		"longitude":       {strconv.FormatFloat(p.lon, 'f', 2, 64)},
		"current_weather": {"true"},
	}
	return &domain.RequestSpec{
		Method: "GET",
		URL:    o.baseURL + "/v1/forecast?" + params.Encode(),
	}, nil
}

type meteoResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

func (o *OpenMeteo) ParseResponse(raw *domain.RawResponse) ([]domain.Result, error) {
	if len(raw.Body) == 0 {
		return nil, nil
	}
	var body meteoResponse
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		return nil, domain.WrapOp("openmeteo", domain.ErrParse)
	}

	cw := body.CurrentWeather
	condition, ok := wmoConditions[cw.WeatherCode]
	if !ok {
		condition = "unknown"
	}

	return []domain.Result{&domain.Structured{
		Meta: domain.Meta{
			Title:    "Current weather",
			Template: "weather",
		},
		Fields: []domain.KV{
			{Key: "condition", Value: condition},
			{Key: "temperature", Value: fmt.Sprintf("%.1f °C", cw.Temperature)},
			{Key: "wind", Value: fmt.Sprintf("%.1f km/h", cw.WindSpeed)},
		},
	}}, nil
}

// parseWeatherQuery recognizes "weather <place>" and "weather in <place>".
func parseWeatherQuery(text string) (place, bool) {
	lower := strings.ToLower(text)
	rest, ok := strings.CutPrefix(lower, "weather ")
	if !ok {
		return place{}, false
	}
	rest = strings.TrimPrefix(rest, "in ")
	rest = strings.TrimSpace(rest)

	p, ok := weatherPlaces[rest]
	return p, ok
}
