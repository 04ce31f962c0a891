package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"storyboard-server/logger"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "config/config.yaml"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	Redis      RedisConfig      `yaml:"redis"`
	Worker     WorkerConfig     `yaml:"worker"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Generation GenerationConfig `yaml:"generation"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Log        logger.Config    `yaml:"log"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" env:"SERVER_PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-separator:","` // empty allows any origin
}

type MySQLConfig struct {
	DSN string `yaml:"dsn" env:"MYSQL_DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// WorkerConfig points at the remote model worker used by the worker provider.
type WorkerConfig struct {
	Addr           string `yaml:"addr" env:"WORKER_ADDR"`
	PollIntervalMS int    `yaml:"poll_interval_ms" env:"WORKER_POLL_INTERVAL_MS"`
	TimeoutSec     int    `yaml:"timeout_sec" env:"WORKER_TIMEOUT_SEC"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL"`
	Domain    string `yaml:"domain" env:"MINIO_DOMAIN"`
}

// GenerationConfig controls how images and videos are produced.
type GenerationConfig struct {
	Provider     string `yaml:"provider" env:"GENERATION_PROVIDER"` // mock or worker
	ImageDelayMS int    `yaml:"image_delay_ms" env:"GENERATION_IMAGE_DELAY_MS"` // mock latency
	VideoDelayMS int    `yaml:"video_delay_ms" env:"GENERATION_VIDEO_DELAY_MS"` // mock latency
	BatchDelayMS int    `yaml:"batch_delay_ms" env:"GENERATION_BATCH_DELAY_MS"` // wait before each call
	Seed         int64  `yaml:"seed" env:"GENERATION_SEED"`                     // 0 seeds from the clock
	Concurrency  int    `yaml:"concurrency" env:"GENERATION_CONCURRENCY"` // tasks handled at once; 1 keeps generation sequential
	Mirror       bool   `yaml:"mirror" env:"GENERATION_MIRROR"` // copy results into MinIO
}

// TracingConfig selects the span exporter. An empty endpoint writes spans
// to stdout.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"TRACING_ENABLED"`
	ServiceName string  `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACING_SAMPLE_RATIO"`
}

// Load reads the YAML file at path, then applies .env and environment
// overrides on top of it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "mock"
	}
	if c.Generation.ImageDelayMS <= 0 {
		c.Generation.ImageDelayMS = 1000
	}
	if c.Generation.VideoDelayMS <= 0 {
		c.Generation.VideoDelayMS = 2000
	}
	if c.Generation.BatchDelayMS <= 0 {
		c.Generation.BatchDelayMS = 1000
	}
	if c.Generation.Concurrency <= 0 {
		c.Generation.Concurrency = 1
	}
	if c.Worker.PollIntervalMS <= 0 {
		c.Worker.PollIntervalMS = 2000
	}
	if c.Worker.TimeoutSec <= 0 {
		c.Worker.TimeoutSec = 300
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "storyboard-server"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
}
