package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	DeliveryCode DeliveryCodeConfig
	Paystack     PaystackConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOKONI_APP_ENV" required:"true"`
	Port         string `envconfig:"SOKONI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOKONI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOKONI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOKONI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOKONI_DB_DSN"`
	Driver string `envconfig:"SOKONI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOKONI_DB_HOST"`
	LegacyPort     int    `envconfig:"SOKONI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOKONI_DB_USER"`
	LegacyPassword string `envconfig:"SOKONI_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOKONI_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOKONI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOKONI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOKONI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOKONI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOKONI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOKONI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOKONI_REDIS_ADDR"`
	Password     string        `envconfig:"SOKONI_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOKONI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOKONI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOKONI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOKONI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOKONI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOKONI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOKONI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOKONI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOKONI_JWT_EXPIRATION_MINUTES" required:"true"`
}

// DeliveryCodeConfig tunes the delivery confirmation code protocol: argon2id
// hashing parameters, validity window and the redis attempt limiter.
type DeliveryCodeConfig struct {
	TTL            time.Duration `envconfig:"SOKONI_DELIVERY_CODE_TTL" default:"168h"`
	AttemptLimit   int64         `envconfig:"SOKONI_DELIVERY_CODE_ATTEMPT_LIMIT" default:"5"`
	AttemptWindow  time.Duration `envconfig:"SOKONI_DELIVERY_CODE_ATTEMPT_WINDOW" default:"15m"`
	ArgonMemoryKB  int           `envconfig:"SOKONI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime      int           `envconfig:"SOKONI_ARGON_TIME" default:"3"`
	ArgonThreads   int           `envconfig:"SOKONI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen   int           `envconfig:"SOKONI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen    int           `envconfig:"SOKONI_ARGON_KEY_LEN" default:"32"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"SOKONI_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"SOKONI_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"SOKONI_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"SOKONI_PAYSTACK_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOKONI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOKONI_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"SOKONI_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOKONI_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SOKONI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOKONI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SOKONI_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"SOKONI_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOKONI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOKONI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOKONI_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
