package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int

	ConnMaxLifetime time.Duration // 0 表示不限制
	ConnectTimeout  time.Duration // 启动时 ping 的超时，0 使用默认值
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize    int           // 0 使用 go-redis 默认值
	DialTimeout time.Duration // 同时作为启动 ping 的超时
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 从环境变量加载配置
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		if n, err := strconv.Atoi(maxConns); err == nil {
			c.MaxConns = n
		}
	}
	if maxIdle := os.Getenv(prefix + "_MAX_IDLE"); maxIdle != "" {
		if n, err := strconv.Atoi(maxIdle); err == nil {
			c.MaxIdle = n
		}
	}
	if lifetime := os.Getenv(prefix + "_CONN_MAX_LIFETIME"); lifetime != "" {
		if d, err := time.ParseDuration(lifetime); err == nil {
			c.ConnMaxLifetime = d
		}
	}
	if timeout := os.Getenv(prefix + "_CONNECT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.ConnectTimeout = d
		}
	}
}

// LoadFromEnv 从环境变量加载Redis配置
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.DB = n
		}
	}
	if poolSize := os.Getenv(prefix + "_POOL_SIZE"); poolSize != "" {
		if n, err := strconv.Atoi(poolSize); err == nil {
			c.PoolSize = n
		}
	}
	if timeout := os.Getenv(prefix + "_DIAL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.DialTimeout = d
		}
	}
}

// LoadFromEnv 从环境变量加载MQTT配置
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if qos := os.Getenv(prefix + "_QOS"); qos != "" {
		if n, err := strconv.Atoi(qos); err == nil && n >= 0 && n <= 2 {
			c.QoS = byte(n)
		}
	}
}

// RetrainConfig 个人模型重训练配置（多个服务共用）
type RetrainConfig struct {
	Mode          string        `validate:"oneof=inline stream"` // "inline"（进程内队列）或 "stream"（Redis Streams）
	MinRecords    int           `validate:"gte=1"`               // 训练所需最少记录数，默认 50
	Workers       int           `validate:"gte=1"`               // 进程内 worker 数量
	QueueSize     int           `validate:"gte=1"`               // 进程内队列长度
	Stream        string        `validate:"required"`            // Redis Stream 名称
	ConsumerGroup string        `validate:"required"`            // 消费者组
	ConsumerName  string        `validate:"required"`            // 消费者名称
	BatchSize     int64         `validate:"gte=1"`               // 每次读取的消息数
	BlockTimeout  time.Duration // XREADGROUP 阻塞时间；负数表示不阻塞
}

// DefaultRetrainConfig 默认重训练配置
func DefaultRetrainConfig() RetrainConfig {
	return RetrainConfig{
		Mode:          "inline",
		MinRecords:    50,
		Workers:       2,
		QueueSize:     64,
		Stream:        "hydration:retrain",
		ConsumerGroup: "hydration-retrainer",
		ConsumerName:  "retrainer-1",
		BatchSize:     10,
		BlockTimeout:  5 * time.Second,
	}
}

// LoadFromEnv 从环境变量加载重训练配置
func (c *RetrainConfig) LoadFromEnv(prefix string) {
	if mode := os.Getenv(prefix + "_MODE"); mode != "" {
		c.Mode = mode
	}
	if n, err := strconv.Atoi(os.Getenv(prefix + "_MIN_RECORDS")); err == nil {
		c.MinRecords = n
	}
	if n, err := strconv.Atoi(os.Getenv(prefix + "_WORKERS")); err == nil {
		c.Workers = n
	}
	if n, err := strconv.Atoi(os.Getenv(prefix + "_QUEUE_SIZE")); err == nil {
		c.QueueSize = n
	}
	if stream := os.Getenv(prefix + "_STREAM"); stream != "" {
		c.Stream = stream
	}
	if group := os.Getenv(prefix + "_CONSUMER_GROUP"); group != "" {
		c.ConsumerGroup = group
	}
	if name := os.Getenv(prefix + "_CONSUMER_NAME"); name != "" {
		c.ConsumerName = name
	}
	if n, err := strconv.ParseInt(os.Getenv(prefix+"_BATCH_SIZE"), 10, 64); err == nil {
		c.BatchSize = n
	}
	if d, err := time.ParseDuration(os.Getenv(prefix + "_BLOCK_TIMEOUT")); err == nil {
		c.BlockTimeout = d
	}
}
