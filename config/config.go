package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"farewatch"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"farewatch"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"fw"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// 任务队列配置
	QueueDriver          string        `env:"QUEUE_DRIVER" envDefault:"rabbitmq"` // rabbitmq, memory
	QueueDelayedExchange string        `env:"QUEUE_DELAYED_EXCHANGE" envDefault:"farewatch.delayed"`
	QueueDedupTTL        time.Duration `env:"QUEUE_DEDUP_TTL" envDefault:"1h"`

	PriceCheckConcurrency int           `env:"PRICE_CHECK_CONCURRENCY" envDefault:"3"`
	PriceCheckAttempts    int           `env:"PRICE_CHECK_ATTEMPTS" envDefault:"3"`
	PriceCheckBackoff     time.Duration `env:"PRICE_CHECK_BACKOFF" envDefault:"1m"`
	PriceCheckMaxBackoff  time.Duration `env:"PRICE_CHECK_MAX_BACKOFF" envDefault:"15m"`

	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"60s"`

	// worker 单独暴露 /metrics
	WorkerMetricsPort string `env:"WORKER_METRICS_PORT" envDefault:"9464"`

	// Amadeus 配置
	AmadeusBaseURL      string        `env:"AMADEUS_BASE_URL" envDefault:"https://test.api.amadeus.com"`
	AmadeusAPIKey       string        `env:"AMADEUS_API_KEY"`
	AmadeusAPISecret    string        `env:"AMADEUS_API_SECRET"`
	AmadeusMonthlyLimit int64         `env:"AMADEUS_MONTHLY_CALL_LIMIT" envDefault:"2000"` // 0 表示不限
	AmadeusCurrency     string        `env:"AMADEUS_CURRENCY" envDefault:"BRL"`
	AmadeusMaxResults   int           `env:"AMADEUS_MAX_RESULTS" envDefault:"50"`
	AmadeusTimeout      time.Duration `env:"AMADEUS_TIMEOUT" envDefault:"15s"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"0.1.0"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.AmadeusAPIKey == "" || Cfg.AmadeusAPISecret == "" {
		log.Printf("WARN: AMADEUS_API_KEY / AMADEUS_API_SECRET not set, flight searches will fail")
	}

	if Cfg.AmadeusMonthlyLimit < 0 {
		log.Printf("WARN: AMADEUS_MONTHLY_CALL_LIMIT is negative, treating as disabled")
		Cfg.AmadeusMonthlyLimit = 0
	}

	if Cfg.PriceCheckConcurrency <= 0 {
		Cfg.PriceCheckConcurrency = 3
	}
	if Cfg.PriceCheckAttempts <= 0 {
		Cfg.PriceCheckAttempts = 1
	}

	if Cfg.QueueDriver != "rabbitmq" && Cfg.QueueDriver != "memory" {
		log.Printf("WARN: unknown QUEUE_DRIVER %q, falling back to rabbitmq", Cfg.QueueDriver)
		Cfg.QueueDriver = "rabbitmq"
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesMemoryQueue 单进程模式：队列在进程内，server/worker/scheduler 需要跑在同一个进程里
func (c *Config) UsesMemoryQueue() bool {
	return c.QueueDriver == "memory"
}
