package config

// EnvPrefix is passed to envconfig.Process; individual fields carry explicit
// SOKONI_-prefixed tags so the prefix only matters for untagged additions.
const EnvPrefix = "SOKONI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Canonical env var names referenced outside struct tags (tests, error text).
const (
	EnvAppEnv = "SOKONI_APP_ENV"
	EnvPort   = "SOKONI_APP_PORT"

	EnvDBDSN  = "SOKONI_DB_DSN"
	EnvDBHost = "SOKONI_DB_HOST"
	EnvDBUser = "SOKONI_DB_USER"
	EnvDBName = "SOKONI_DB_NAME"

	EnvRedisURL = "SOKONI_REDIS_URL"

	EnvJWTSecret  = "SOKONI_JWT_SECRET"
	EnvJWTIssuer  = "SOKONI_JWT_ISSUER"
	EnvJWTExpMins = "SOKONI_JWT_EXPIRATION_MINUTES"

	EnvPaystackSecretKey = "SOKONI_PAYSTACK_SECRET_KEY"

	EnvGCPProjectID      = "SOKONI_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "SOKONI_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "SOKONI_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
