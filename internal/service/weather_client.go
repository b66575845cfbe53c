package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WeatherProvider 外部天气数据源；失败时返回 nil
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lon float64) *domain.Weather
}

// openWeatherResponse OpenWeatherMap /data/2.5/weather 响应（只取用到的字段）
type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// WeatherClient OpenWeatherMap 客户端
type WeatherClient struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

// NewWeatherClient 创建天气客户端（同步调用，超时有上限）
func NewWeatherClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *WeatherClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &WeatherClient{
		httpClient: client,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// CurrentWeather 未配置 API key、请求失败或非 200 时返回 nil
func (c *WeatherClient) CurrentWeather(ctx context.Context, lat, lon float64) *domain.Weather {
	if c.apiKey == "" {
		return nil
	}

	var body openWeatherResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lon, 'f', -1, 64),
			"appid": c.apiKey,
			"units": "metric",
		}).
		SetResult(&body).
		Get("/data/2.5/weather")
	if err != nil {
		c.logger.Warn("Weather API call failed", zap.Error(err))
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("Weather API returned non-200",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil
	}

	w := &domain.Weather{
		Temperature: body.Main.Temp,
		Humidity:    body.Main.Humidity,
		WindSpeed:   body.Wind.Speed,
		Location:    body.Name,
	}
	if len(body.Weather) > 0 {
		w.Description = body.Weather[0].Description
	}
	return w
}
