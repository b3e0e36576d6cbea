package testkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// WeatherKey is the only API key FakeWeather accepts.
const WeatherKey = "test-weather-key"

// City is one city known to FakeWeather. Temp is in Kelvin, as the real
// provider reports it.
type City struct {
	Name        string
	Temp        float64
	Humidity    int
	Wind        float64
	Description string
	Icon        string
}

// FakeWeather emulates the current-weather endpoint of the weather provider.
type FakeWeather struct {
	*httptest.Server

	mu     sync.Mutex
	cities map[string]City
	calls  int
}

// NewFakeWeather starts the server. Callers must Close it.
func NewFakeWeather() *FakeWeather {
	f := &FakeWeather{cities: map[string]City{}}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/data/2.5/weather", f.current)
	f.Server = httptest.NewServer(r)
	return f
}

// AddCity makes c known, matched case-insensitively by name.
func (f *FakeWeather) AddCity(c City) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities[strings.ToLower(c.Name)] = c
}

// Calls is the number of lookups served.
func (f *FakeWeather) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeWeather) current(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	c, ok := f.cities[strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))]
	f.mu.Unlock()

	if r.URL.Query().Get("appid") != WeatherKey {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"cod": 401, "message": "Invalid API key."})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"cod": "404", "message": "city not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name": c.Name,
		"main": map[string]interface{}{"temp": c.Temp, "humidity": c.Humidity},
		"weather": []map[string]string{
			{"description": c.Description, "icon": c.Icon},
		},
		"wind": map[string]float64{"speed": c.Wind},
	})
}
