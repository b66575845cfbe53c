package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/divakargaba/Dehydration/common/config"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config hydration-api / hydration-retrainer 配置
type Config struct {
	HTTP struct {
		Addr string `validate:"required"`
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	// RedisEnabled=false 时缓存与样本缓冲区使用进程内存储
	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	Log          struct {
		Level  string `validate:"oneof=debug info warn error"`
		Format string `validate:"oneof=json console"`
	}
	Model         ModelConfig
	Weather       WeatherConfig
	MQTT          MQTTConfig
	Retrain       commoncfg.RetrainConfig
	DefaultUserID string `validate:"required"`
}

// ModelConfig 模型文件位置
type ModelConfig struct {
	Dir              string `validate:"required"` // 个人模型 / 集成模型目录
	GlobalModelPath  string // 共享 ANN（JSON），为空或缺失时使用兜底概率
	GlobalScalerPath string
}

// WeatherConfig 天气服务配置
type WeatherConfig struct {
	BaseURL   string        `validate:"required,url"`
	APIKey    string        // 为空时不请求天气
	Latitude  float64       `validate:"gte=-90,lte=90"`
	Longitude float64       `validate:"gte=-180,lte=180"`
	Timeout   time.Duration `validate:"gt=0"`
}

// MQTTConfig 可穿戴设备 MQTT 接入（默认禁用）
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
	Topic string `validate:"required"`
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")

	// 数据库不可用时退回内存仓库
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "hydration",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", "json"))

	cfg.Model.Dir = getEnv("MODEL_DIR", "models")
	cfg.Model.GlobalModelPath = getEnv("GLOBAL_MODEL_PATH", "models/global_ann.json")
	cfg.Model.GlobalScalerPath = getEnv("GLOBAL_SCALER_PATH", "models/global_scaler.json")

	cfg.Weather.BaseURL = getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org")
	cfg.Weather.APIKey = getEnv("WEATHER_API_KEY", "")
	cfg.Weather.Latitude = parseFloat(getEnv("WEATHER_LAT", "40.7128"), 40.7128)
	cfg.Weather.Longitude = parseFloat(getEnv("WEATHER_LON", "-74.0060"), -74.0060)
	cfg.Weather.Timeout = parseDuration(getEnv("WEATHER_TIMEOUT", "5s"), 5*time.Second)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "hydration-api"
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "hydration/+/metrics")

	cfg.Retrain = commoncfg.DefaultRetrainConfig()
	cfg.Retrain.LoadFromEnv("RETRAIN")

	cfg.DefaultUserID = getEnv("DEFAULT_USER_ID", "default_user")
	return cfg
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Retrain.Mode == "stream" && !c.RedisEnabled {
		return fmt.Errorf("invalid config: RETRAIN_MODE=stream requires REDIS_ENABLED=true")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
