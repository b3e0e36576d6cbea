package weather_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kisanbazaar/pkg/testkit"
	"github.com/shashiranjanraj/kisanbazaar/pkg/weather"
)

func newWeather(t *testing.T) (*testkit.FakeWeather, *weather.Client) {
	t.Helper()
	fake := testkit.NewFakeWeather()
	t.Cleanup(fake.Close)
	fake.AddCity(testkit.City{Name: "Pune", Temp: 300.95, Humidity: 62, Wind: 3.6, Description: "scattered clouds", Icon: "03d"})
	fake.AddCity(testkit.City{Name: "Delhi", Temp: 308.4, Humidity: 30, Wind: 2.1, Description: "haze", Icon: "50d"})
	return fake, weather.New(weather.WithBaseURL(fake.URL), weather.WithAPIKey(testkit.WeatherKey))
}

func TestKelvinToCelsius(t *testing.T) {
	assert.Equal(t, 0, weather.KelvinToCelsius(273.15))
	assert.Equal(t, 28, weather.KelvinToCelsius(300.95))
	assert.Equal(t, 35, weather.KelvinToCelsius(308.4))
	assert.Equal(t, -10, weather.KelvinToCelsius(263.15))
}

func TestLookup(t *testing.T) {
	_, c := newWeather(t)

	got, err := c.Lookup(context.Background(), "  pune ")
	require.NoError(t, err)
	assert.Equal(t, weather.Conditions{
		City:        "Pune",
		TempC:       28,
		Description: "scattered clouds",
		Humidity:    62,
		WindSpeed:   3.6,
		Icon:        "03d",
	}, *got)
	assert.Equal(t, "https://openweathermap.org/img/wn/03d@2x.png", got.IconURL())
}

func TestLookupUnknownCity(t *testing.T) {
	_, c := newWeather(t)

	_, err := c.Lookup(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
}

func TestLookupBlankCityMakesNoCall(t *testing.T) {
	fake, c := newWeather(t)

	_, err := c.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
	assert.Equal(t, 0, fake.Calls())
}

func TestLookupWithoutKey(t *testing.T) {
	fake := testkit.NewFakeWeather()
	defer fake.Close()

	_, err := weather.New(weather.WithBaseURL(fake.URL), weather.WithAPIKey("")).Lookup(context.Background(), "Pune")
	assert.ErrorIs(t, err, weather.ErrNoAPIKey)
	assert.Equal(t, 0, fake.Calls())
}

func TestLookupWithWrongKey(t *testing.T) {
	fake, _ := newWeather(t)

	_, err := weather.New(weather.WithBaseURL(fake.URL), weather.WithAPIKey("nope")).Lookup(context.Background(), "Pune")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.NotContains(t, err.Error(), "nope")
}

func TestLookupAllKeepsOrderAndIsolatesFailures(t *testing.T) {
	_, c := newWeather(t)

	reports := c.LookupAll(context.Background(), []string{"Delhi", "Atlantis", "Pune"})
	require.Len(t, reports, 3)

	assert.Equal(t, "Delhi", reports[0].City)
	require.NoError(t, reports[0].Err)
	assert.Equal(t, 35, reports[0].Conditions.TempC)

	assert.Equal(t, "Atlantis", reports[1].City)
	assert.ErrorIs(t, reports[1].Err, weather.ErrCityNotFound)
	assert.Nil(t, reports[1].Conditions)

	require.NoError(t, reports[2].Err)
	assert.Equal(t, "Pune", reports[2].Conditions.City)
}
