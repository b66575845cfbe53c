package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWeatherClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "40.7128", r.URL.Query().Get("lat"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"New York","main":{"temp":31.5,"humidity":72},"wind":{"speed":3.1},"weather":[{"description":"clear sky"}]}`))
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, "key", time.Second, zap.NewNop())
	w := c.CurrentWeather(context.Background(), DefaultLatitude, DefaultLongitude)

	require.NotNil(t, w)
	assert.Equal(t, 31.5, w.Temperature)
	assert.Equal(t, 72.0, w.Humidity)
	assert.Equal(t, 3.1, w.WindSpeed)
	assert.Equal(t, "clear sky", w.Description)
	assert.Equal(t, "New York", w.Location)
}

func TestWeatherClient_ServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, "key", time.Second, zap.NewNop())
	env := NewEnvironmentService(c, 0, 0, func() time.Time { return fixedNow }, zap.NewNop())

	w := env.Weather(context.Background())

	assert.Nil(t, w)
	assert.Equal(t, 1.0, EnvironmentalMultiplier(w))
	a := env.Analyze(w)
	assert.Equal(t, domain.ContextNormal, a.EnvironmentalContext)
	assert.Equal(t, 1.0, a.EnvironmentalMultiplier)
	assert.False(t, a.WeatherAvailable)
}

func TestWeatherClient_NoAPIKeySkipsCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, "", time.Second, zap.NewNop())

	assert.Nil(t, c.CurrentWeather(context.Background(), 1, 2))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestWeatherClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewWeatherClient(url, "key", 200*time.Millisecond, zap.NewNop())
	assert.Nil(t, c.CurrentWeather(context.Background(), 1, 2))
}

func TestAnalyzeEnvironment(t *testing.T) {
	harsh := AnalyzeEnvironment(&domain.Weather{Temperature: 36, Humidity: 85})
	assert.Equal(t, domain.ContextHarsh, harsh.EnvironmentalContext)
	assert.InDelta(t, 0.7, harsh.RiskScore, 1e-9)

	moderate := AnalyzeEnvironment(&domain.Weather{Temperature: 31, Humidity: 50})
	assert.Equal(t, domain.ContextModerate, moderate.EnvironmentalContext)

	normal := AnalyzeEnvironment(&domain.Weather{Temperature: 20, Humidity: 65})
	assert.Equal(t, domain.ContextNormal, normal.EnvironmentalContext)
	assert.True(t, normal.WeatherAvailable)
}

func TestMultipliers(t *testing.T) {
	assert.Equal(t, 1.0, EnvironmentalMultiplier(&domain.Weather{Temperature: 20, Humidity: 50}))
	assert.Equal(t, 1.15, EnvironmentalMultiplier(&domain.Weather{Temperature: 26}))
	assert.InDelta(t, 1.4, EnvironmentalMultiplier(&domain.Weather{Temperature: 31, Humidity: 75}), 1e-9)

	assert.Equal(t, 1.0, ActivityMultiplier(5000))
	assert.Equal(t, 1.2, ActivityMultiplier(5001))
	assert.Equal(t, 1.4, ActivityMultiplier(10001))

	assert.Equal(t, 0.7, TimeMultiplier(5))
	assert.Equal(t, 1.1, TimeMultiplier(6))
	assert.Equal(t, 1.2, TimeMultiplier(12))
	assert.Equal(t, 0.9, TimeMultiplier(18))
	assert.Equal(t, 0.7, TimeMultiplier(22))
}

func TestHydrationTarget(t *testing.T) {
	env := NewEnvironmentService(nil, 0, 0, func() time.Time { return fixedNow }, zap.NewNop())

	target := env.HydrationTarget(domain.Metrics{Steps: 12000}, &domain.Weather{Temperature: 32, Humidity: 75})

	// 2.0 × 1.4 × 1.2 × 1.4
	assert.Equal(t, 4.7, target.DailyTarget)
	assert.Equal(t, 0.29, target.HourlyTarget)

	plain := env.HydrationTarget(domain.Metrics{}, nil)
	assert.Equal(t, 2.4, plain.DailyTarget)
	assert.Equal(t, 1.0, plain.EnvironmentalMultiplier)
}
