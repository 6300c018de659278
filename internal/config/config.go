package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App       App       `yaml:"app"`
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Store     Store     `yaml:"store"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Messenger Messenger `yaml:"messenger"`
	Messages  Messages  `yaml:"messages"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"pinable"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"5000"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Store selects the correlation store backend. "file" keeps the whole map
// in a single JSON file; "postgres" uses the order_correlations table.
type Store struct {
	Backend string `yaml:"backend" env:"STORE_BACKEND" env-default:"file"`
	Path    string `yaml:"path" env:"STORE_PATH" env-default:"./customer_phones.json"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"pinable_db"`
}

type Redis struct {
	// Empty addr disables the webhook idempotency middleware.
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:""`
}

type Kafka struct {
	// Empty broker list disables the kafka audit sink.
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:""`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"notification-audit"`
}

type Messenger struct {
	BaseURL string `yaml:"base_url" env:"MESSENGER_BASE_URL" env-default:"http://localhost:3000"`
	Token   string `yaml:"token" env:"MESSENGER_TOKEN" env-default:""`
}

type Messages struct {
	StoreName       string `yaml:"store_name" env:"MESSAGES_STORE_NAME" env-default:"Pineapple EG"`
	TrackingBaseURL string `yaml:"tracking_base_url" env:"MESSAGES_TRACKING_BASE_URL" env-default:"https://bosta.co/tracking/"`
	SurveyURL       string `yaml:"survey_url" env:"MESSAGES_SURVEY_URL" env-default:"https://pineappleeg.com"`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
