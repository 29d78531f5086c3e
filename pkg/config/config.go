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
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Firestore    FirestoreConfig
	Mongo        MongoConfig
	Sync         SyncConfig
	Auth         AuthConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	case StoreBackendSQLite:
		if c.DB.DSN == "" {
			c.DB.DSN = "file:cartsync.db?cache=shared"
		}
	case StoreBackendFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("%s is required for the firestore backend", EnvFirestoreProjectID)
		}
	case StoreBackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("%s is required for the mongo backend", EnvMongoURI)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStoreBackend, c.Store.Backend)
	}

	switch c.Sync.LockBackend {
	case LockBackendLocal:
	case LockBackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or %s is required for the redis lock backend", EnvRedisURL, EnvRedisAddr)
		}
		// The redis lock is never renewed, so it must outlive every operation.
		if c.Sync.OperationTimeout <= 0 || c.Sync.LockTTL <= c.Sync.OperationTimeout {
			return fmt.Errorf("%s (%s) must be greater than a positive %s (%s) for the redis lock backend",
				EnvLockTTL, c.Sync.LockTTL, EnvOperationTimeout, c.Sync.OperationTimeout)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvLockBackend, c.Sync.LockBackend)
	}
	return nil
}

type AppConfig struct {
	Env            string   `envconfig:"CARTSYNC_APP_ENV" required:"true"`
	Port           string   `envconfig:"CARTSYNC_APP_PORT" default:"8080"`
	LogLevel       string   `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"CARTSYNC_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the document store adapter the engines talk to.
type StoreConfig struct {
	Backend string `envconfig:"CARTSYNC_STORE_BACKEND" default:"memory"`
}

type DBConfig struct {
	DSN string `envconfig:"CARTSYNC_DB_DSN"`

	LegacyHost     string `envconfig:"CARTSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTSYNC_DB_USER"`
	LegacyPassword string `envconfig:"CARTSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTSYNC_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"CARTSYNC_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FirestoreConfig struct {
	ProjectID       string `envconfig:"CARTSYNC_FIRESTORE_PROJECT_ID"`
	CredentialsFile string `envconfig:"CARTSYNC_FIRESTORE_CREDENTIALS_FILE"`
}

type MongoConfig struct {
	URI            string        `envconfig:"CARTSYNC_MONGO_URI"`
	Database       string        `envconfig:"CARTSYNC_MONGO_DATABASE" default:"cartsync"`
	ConnectTimeout time.Duration `envconfig:"CARTSYNC_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

// SyncConfig tunes the cart and wishlist engines.
type SyncConfig struct {
	LockBackend        string        `envconfig:"CARTSYNC_LOCK_BACKEND" default:"local"`
	LockTTL            time.Duration `envconfig:"CARTSYNC_LOCK_TTL" default:"30s"`
	LockRetryInterval  time.Duration `envconfig:"CARTSYNC_LOCK_RETRY_INTERVAL" default:"50ms"`
	OperationTimeout   time.Duration `envconfig:"CARTSYNC_OPERATION_TIMEOUT" default:"15s"`
	RefreshInterval    time.Duration `envconfig:"CARTSYNC_REFRESH_INTERVAL" default:"0s"`
	CartCollection     string        `envconfig:"CARTSYNC_CART_COLLECTION" default:"cart"`
	WishlistCollection string        `envconfig:"CARTSYNC_WISHLIST_COLLECTION" default:"wishlist"`
}

// RefreshEnabled reports whether periodic reconciliation fetches are on.
func (s SyncConfig) RefreshEnabled() bool {
	return s.RefreshInterval > 0
}

type AuthConfig struct {
	TokenSecret string        `envconfig:"CARTSYNC_AUTH_TOKEN_SECRET"`
	TokenIssuer string        `envconfig:"CARTSYNC_AUTH_TOKEN_ISSUER" default:"cartsync"`
	TokenTTL    time.Duration `envconfig:"CARTSYNC_AUTH_TOKEN_TTL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTSYNC_AUTO_MIGRATE" default:"false"`
	HTTPBridge  bool `envconfig:"CARTSYNC_HTTP_BRIDGE" default:"true"`
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
