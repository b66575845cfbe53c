package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTP.Addr != ":5000" {
		t.Fatalf("expected :5000, got %s", cfg.HTTP.Addr)
	}
	if cfg.Retrain.Mode != "inline" || cfg.Retrain.MinRecords != 50 {
		t.Fatalf("unexpected retrain defaults: %+v", cfg.Retrain)
	}
	if cfg.Retrain.Stream != "hydration:retrain" {
		t.Fatalf("unexpected stream: %s", cfg.Retrain.Stream)
	}
	if cfg.MQTT.Enabled {
		t.Fatalf("mqtt should be disabled by default")
	}
	if cfg.DefaultUserID != "default_user" {
		t.Fatalf("unexpected default user: %s", cfg.DefaultUserID)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")
	t.Setenv("REDIS_POOL_SIZE", "20")
	t.Setenv("REDIS_DIAL_TIMEOUT", "1s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WEATHER_LAT", "51.5")
	t.Setenv("WEATHER_TIMEOUT", "2s")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_QOS", "0")
	t.Setenv("RETRAIN_MODE", "stream")
	t.Setenv("RETRAIN_WORKERS", "4")
	t.Setenv("RETRAIN_BLOCK_TIMEOUT", "250ms")

	cfg := Load()
	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("HTTP.Addr = %s", cfg.HTTP.Addr)
	}
	if cfg.Database.Port != 6543 || cfg.Database.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Redis.PoolSize != 20 || cfg.Redis.DialTimeout != time.Second {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s", cfg.Log.Level)
	}
	if cfg.Weather.Latitude != 51.5 || cfg.Weather.Timeout != 2*time.Second {
		t.Errorf("Weather = %+v", cfg.Weather)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.QoS != 0 {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.Retrain.Mode != "stream" || cfg.Retrain.Workers != 4 || cfg.Retrain.BlockTimeout != 250*time.Millisecond {
		t.Errorf("Retrain = %+v", cfg.Retrain)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "abc")
	t.Setenv("WEATHER_LON", "west")
	cfg := Load()
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d", cfg.Database.Port)
	}
	if cfg.Weather.Longitude != -74.0060 {
		t.Errorf("Weather.Longitude = %f", cfg.Weather.Longitude)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"log level":     func(c *Config) { c.Log.Level = "verbose" },
		"retrain mode":  func(c *Config) { c.Retrain.Mode = "cron" },
		"latitude":      func(c *Config) { c.Weather.Latitude = 120 },
		"weather url":   func(c *Config) { c.Weather.BaseURL = "not a url" },
		"stream/redis":  func(c *Config) { c.Retrain.Mode = "stream"; c.RedisEnabled = false },
		"model dir":     func(c *Config) { c.Model.Dir = "" },
		"retrain queue": func(c *Config) { c.Retrain.QueueSize = 0 },
	}
	for name, mutate := range cases {
		cfg := Load()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
