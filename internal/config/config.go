package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Nested structs group the settings of one
// collaborator (storage, webhook, logger) so they can be handed to its
// constructor without dragging the whole Config along.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DB           DBConfig
	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	Storage      StorageConfig
	Webhook      WebhookConfig
	Logger       LoggerConfig
	BreakGlass   BreakGlassConfig
	RabbitURL    string // broker used for catalog event audit; empty disables publishing
}

// DBConfig selects and addresses the SQL database.  Driver is either
// "mysql" (the deployment database) or "sqlite" (local development).
type DBConfig struct {
	Driver string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	Path   string // sqlite file path
}

// StorageConfig configures the remote file store used for product photos,
// logos and the settings document.
//
// PublicURL is the base of the folder and file links stored in drive_url
// and web_view_link.  With the local driver those links are opaque ids that
// this service parses back but never serves; for s3 point it at the
// bucket's public endpoint or a CDN.
type StorageConfig struct {
	Driver         string // "s3" or "local"
	RootFolder     string // folder that holds product folders and logos
	SettingsFolder string // folder that holds app_settings.json
	PublicURL      string // base of folder/file links; see above
	LocalRoot      string // directory of the local driver
	S3Bucket       string
	S3Region       string
	S3Key          string
	S3Secret       string
	S3Endpoint     string // leave empty for AWS; set for MinIO / R2 / GCS interop
}

// WebhookConfig configures the outbound publication webhook.
type WebhookConfig struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	RatePerSec float64
}

// LoggerConfig mirrors the zap options exposed through the environment.
type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// BreakGlassConfig describes the optional emergency identity.  Both fields
// must be set for it to be active.
type BreakGlassConfig struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether the break-glass identity is configured.
func (b BreakGlassConfig) Enabled() bool {
	return b.Username != "" && b.PasswordHash != ""
}

// Load reads configuration values from environment variables (after
// loading an optional .env file) and returns a Config.  Required variables
// are enforced by must() and missing values cause the program to exit with
// a fatal log message.
func Load() Config {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         envStr("APP_PORT", "8080"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60*24),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		DB:           loadDB(),
		Storage:      loadStorage(),
		Webhook: WebhookConfig{
			URL:        os.Getenv("WEBHOOK_URL"),
			Secret:     os.Getenv("WEBHOOK_SECRET"),
			Timeout:    envDur("WEBHOOK_TIMEOUT", 10*time.Second),
			RatePerSec: envFloat("WEBHOOK_RATE_PER_SEC", 5),
		},
		Logger: LoggerConfig{
			Level:             envStr("LOGGER_LEVEL", "info"),
			Encoding:          envStr("LOGGER_ENCODING", "json"),
			DisableCaller:     envBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: envBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		BreakGlass: BreakGlassConfig{
			Username:     os.Getenv("BREAKGLASS_USERNAME"),
			PasswordHash: os.Getenv("BREAKGLASS_PASSWORD_HASH"),
		},
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// Validate checks cross-field constraints that must() cannot express.  An
// incomplete configuration is rejected instead of being patched with
// defaults.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "mysql":
		if c.DB.User == "" || c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("mysql requires DB_USER, DB_HOST and DB_NAME")
		}
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("sqlite requires DB_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Storage.Driver {
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("s3 storage requires S3_BUCKET")
		}
	case "local":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.AccessTTLMin <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if (c.BreakGlass.Username == "") != (c.BreakGlass.PasswordHash == "") {
		return fmt.Errorf("BREAKGLASS_USERNAME and BREAKGLASS_PASSWORD_HASH must be set together")
	}
	return nil
}

func loadDB() DBConfig {
	return DBConfig{
		Driver: strings.ToLower(must("DB_DRIVER")),
		User:   os.Getenv("DB_USER"),
		Pass:   os.Getenv("DB_PASS"),
		Host:   os.Getenv("DB_HOST"),
		Port:   envStr("DB_PORT", "3306"),
		Name:   os.Getenv("DB_NAME"),
		Path:   os.Getenv("DB_PATH"),
	}
}

func loadStorage() StorageConfig {
	root := envStr("STORAGE_ROOT_FOLDER", "inventory")
	return StorageConfig{
		Driver:         strings.ToLower(envStr("STORAGE_DRIVER", "s3")),
		RootFolder:     root,
		SettingsFolder: envStr("SETTINGS_FOLDER", root),
		PublicURL:      strings.TrimRight(envStr("STORAGE_PUBLIC_URL", "http://localhost:8080/files"), "/"),
		LocalRoot:      envStr("STORAGE_LOCAL_ROOT", "storage"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       envStr("S3_REGION", "us-east-1"),
		S3Key:          os.Getenv("S3_KEY"),
		S3Secret:       os.Getenv("S3_SECRET"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
