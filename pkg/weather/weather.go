// Package weather looks up current conditions for the cities shown on the
// marketplace home screen, using the OpenWeatherMap current-weather API.
//
//	c := weather.New()
//	reports := c.LookupAll(ctx, weather.DefaultCities)
//	cond, err := c.Lookup(ctx, "Nashik") // weather.ErrCityNotFound for unknown names
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/kisanbazaar/config"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

// DefaultCities are looked up when no city is given.
var DefaultCities = []string{"Delhi", "Pune", "Nagpur", "Lucknow", "Indore"}

var (
	ErrNoAPIKey     = errors.New("weather: WEATHER_API_KEY is not set")
	ErrCityNotFound = errors.New("weather: city not found")
)

// Conditions is the current weather for one city.
type Conditions struct {
	City        string
	TempC       int // rounded
	Description string
	Humidity    int     // percent
	WindSpeed   float64 // m/s
	Icon        string
}

// IconURL is the provider's image for c.Icon.
func (c Conditions) IconURL() string {
	return "https://openweathermap.org/img/wn/" + c.Icon + "@2x.png"
}

// Report is the outcome of one lookup in LookupAll.
type Report struct {
	City       string
	Conditions *Conditions
	Err        error
}

// KelvinToCelsius rounds to the nearest whole degree.
func KelvinToCelsius(k float64) int {
	return int(math.Round(k - 273.15))
}

// Client talks to the weather provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides WEATHER_BASE_URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey overrides WEATHER_API_KEY.
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// New builds a client from configuration and opts.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: config.WeatherBaseURL(),
		apiKey:  config.WeatherAPIKey(),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: metrics.InstrumentTransport(nil),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire shape of /data/2.5/weather
type currentResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Lookup returns the current conditions for city.
func (c *Client) Lookup(ctx context.Context, city string) (*Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityNotFound
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	q := url.Values{"q": {city}, "appid": {c.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error would echo the key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("weather: lookup %s: %w", city, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("weather: lookup %s: status %d: %s", city, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode %s: %w", city, err)
	}

	cond := &Conditions{
		City:      body.Name,
		TempC:     KelvinToCelsius(body.Main.Temp),
		Humidity:  body.Main.Humidity,
		WindSpeed: body.Wind.Speed,
	}
	if cond.City == "" {
		cond.City = city
	}
	if len(body.Weather) > 0 {
		cond.Description = body.Weather[0].Description
		cond.Icon = body.Weather[0].Icon
	}
	return cond, nil
}

// LookupAll queries every city in parallel. A failed city is reported in its
// slot rather than failing the others.
func (c *Client) LookupAll(ctx context.Context, cities []string) []Report {
	reports := make([]Report, len(cities))
	var g errgroup.Group
	g.SetLimit(5)
	for i, city := range cities {
		g.Go(func() error {
			cond, err := c.Lookup(ctx, city)
			if err != nil {
				logger.WithCtx(ctx).Warn("weather: lookup failed", "city", city, "error", err)
			}
			reports[i] = Report{City: city, Conditions: cond, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return reports
}
