package config

const EnvPrefix = "CARTSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreBackendMemory    = "memory"
	StoreBackendPostgres  = "postgres"
	StoreBackendSQLite    = "sqlite"
	StoreBackendFirestore = "firestore"
	StoreBackendMongo     = "mongo"
)

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

const (
	EnvAppEnv             = "CARTSYNC_APP_ENV"
	EnvPort               = "CARTSYNC_APP_PORT"
	EnvStoreBackend       = "CARTSYNC_STORE_BACKEND"
	EnvDBDSN              = "CARTSYNC_DB_DSN"
	EnvDBHost             = "CARTSYNC_DB_HOST"
	EnvDBUser             = "CARTSYNC_DB_USER"
	EnvDBName             = "CARTSYNC_DB_NAME"
	EnvRedisURL           = "CARTSYNC_REDIS_URL"
	EnvRedisAddr          = "CARTSYNC_REDIS_ADDR"
	EnvFirestoreProjectID = "CARTSYNC_FIRESTORE_PROJECT_ID"
	EnvMongoURI           = "CARTSYNC_MONGO_URI"
	EnvLockBackend        = "CARTSYNC_LOCK_BACKEND"
	EnvLockTTL            = "CARTSYNC_LOCK_TTL"
	EnvOperationTimeout   = "CARTSYNC_OPERATION_TIMEOUT"
	EnvRefreshInterval    = "CARTSYNC_REFRESH_INTERVAL"
	EnvAuthTokenSecret    = "CARTSYNC_AUTH_TOKEN_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
