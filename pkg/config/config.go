package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	MongoURI    string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDBName string `envconfig:"MONGO_DB_NAME" default:"cartdb"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDBName   string `envconfig:"POSTGRES_DB_NAME" default:"submissions"`
	MigrationsPath   string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`

	SnelstartBaseURL        string `envconfig:"SNELSTART_BASE_URL" default:"https://b2bapi.snelstart.nl"`
	SnelstartTokenURL       string `envconfig:"SNELSTART_TOKEN_URL" default:"https://auth.snelstart.nl/b2b/token"`
	SnelstartIntegrationKey string `envconfig:"SNELSTART_INTEGRATION_KEY" required:"true"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
