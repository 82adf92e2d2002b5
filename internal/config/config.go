package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var config *Config

// Config holds every configuration value the services read. Only this struct
// must be used to hold configuration, no direct access to env or any other
// config source should be made
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=lead_crm"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`

	HttpListenAddr      string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpRequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=5s"`
	HttpCorsAllowOrigin string        `env:"HTTP_CORS_ALLOW_ORIGIN,default=*"`

	DBDriver   string `env:"DB_DRIVER,default=postgres"`
	SQLitePath string `env:"SQLITE_PATH,default=lead_crm.db"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	AuthJWTSecret string        `env:"AUTH_JWT_SECRET,required=true"`
	AuthJWTIssuer string        `env:"AUTH_JWT_ISSUER,default=lead-crm"`
	AuthTokenTTL  time.Duration `env:"AUTH_TOKEN_TTL,default=12h"`

	CrmPageSize      int           `env:"CRM_PAGE_SIZE,default=10"`
	CrmMaxPageSize   int           `env:"CRM_MAX_PAGE_SIZE,default=100"`
	CrmHistoryLimit  int           `env:"CRM_HISTORY_LIMIT,default=50"`
	CrmStatsCacheTTL time.Duration `env:"CRM_STATS_CACHE_TTL,default=60s"`
	CrmEventsStream  string        `env:"CRM_EVENTS_STREAM,default=crm:lead-events"`
	CrmEventsMaxLen  int64         `env:"CRM_EVENTS_MAX_LEN,default=10000"`

	PromNamespace string `env:"PROM_NAMESPACE,default=lead_crm"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	if err = c.validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.CrmPageSize < 1 || c.CrmMaxPageSize < c.CrmPageSize {
		return errors.Errorf("invalid page sizes: CRM_PAGE_SIZE=%d CRM_MAX_PAGE_SIZE=%d", c.CrmPageSize, c.CrmMaxPageSize)
	}
	if c.CrmHistoryLimit < 1 {
		return errors.Errorf("CRM_HISTORY_LIMIT must be positive, got %d", c.CrmHistoryLimit)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
