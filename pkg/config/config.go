package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "DESIGNVAULT"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "DESIGNVAULT_DB_DSN"
	EnvDBHost = "DESIGNVAULT_DB_HOST"
	EnvDBUser = "DESIGNVAULT_DB_USER"
	EnvDBName = "DESIGNVAULT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Storage       StorageConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"DESIGNVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"DESIGNVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DESIGNVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DESIGNVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DESIGNVAULT_DB_DSN"`
	Driver string `envconfig:"DESIGNVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DESIGNVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"DESIGNVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DESIGNVAULT_DB_USER"`
	LegacyPassword string `envconfig:"DESIGNVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"DESIGNVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"DESIGNVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DESIGNVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DESIGNVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DESIGNVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DESIGNVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DESIGNVAULT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"DESIGNVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"DESIGNVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DESIGNVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DESIGNVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DESIGNVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DESIGNVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DESIGNVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DESIGNVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DESIGNVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DESIGNVAULT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DESIGNVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DESIGNVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DESIGNVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DESIGNVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DESIGNVAULT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DESIGNVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DESIGNVAULT_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"DESIGNVAULT_STRIPE_API_KEY"`
	WebhookSecret string        `envconfig:"DESIGNVAULT_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"DESIGNVAULT_STRIPE_ENV" default:"test"`
	EventTTL      time.Duration `envconfig:"DESIGNVAULT_STRIPE_EVENT_TTL" default:"720h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"DESIGNVAULT_AUTH_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"DESIGNVAULT_AUTH_RL_LOGIN_IP_LIMIT" default:"10"`
	LoginEmailLimit    int           `envconfig:"DESIGNVAULT_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"DESIGNVAULT_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"DESIGNVAULT_AUTH_RL_REGISTER_IP_LIMIT" default:"20"`
	RegisterEmailLimit int           `envconfig:"DESIGNVAULT_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

type StorageConfig struct {
	BucketName      string `envconfig:"DESIGNVAULT_STORAGE_BUCKET" required:"true"`
	CredentialsJSON string `envconfig:"DESIGNVAULT_STORAGE_CREDENTIALS_JSON"`
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
