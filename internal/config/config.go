// Package config loads programhub settings from an optional YAML file, built
// in defaults and PROGRAMHUB_* environment variables (key `storage.driver`
// maps to PROGRAMHUB_STORAGE_DRIVER). Environment wins over the file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"programhub/internal/blob"
	"programhub/internal/core"
	"programhub/internal/infra/persistence/mongo"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROGRAMHUB"

// Config is the full application configuration.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Events  EventsConfig  `mapstructure:"events"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Leeway time.Duration `mapstructure:"leeway"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type StorageConfig struct {
	Driver      string      `mapstructure:"driver"`
	SQLitePath  string      `mapstructure:"sqlite_path"`
	PostgresDSN string      `mapstructure:"postgres_dsn"`
	Mongo       MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type BlobConfig struct {
	Driver  string   `mapstructure:"driver"`
	FSRoot  string   `mapstructure:"fs_root"`
	BaseURL string   `mapstructure:"base_url"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// EventsConfig enables the activity sinks. Empty addresses disable a sink.
type EventsConfig struct {
	AMQPURL       string `mapstructure:"amqp_url"`
	AMQPExchange  string `mapstructure:"amqp_exchange"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisKey      string `mapstructure:"redis_key"`
	RedisLimit    int    `mapstructure:"redis_limit"`
}

var defaults = map[string]any{
	"http.addr":                 ":8080",
	"http.read_timeout":         "15s",
	"http.write_timeout":        "30s",
	"http.shutdown_timeout":     "10s",
	"auth.secret":               "",
	"auth.issuer":               "",
	"auth.leeway":               "30s",
	"log.level":                 "info",
	"log.development":           false,
	"storage.driver":            string(core.StorageSQLite),
	"storage.sqlite_path":       "programhub.db",
	"storage.postgres_dsn":      "",
	"storage.mongo.uri":         "",
	"storage.mongo.database":    "",
	"storage.mongo.collection":  "",
	"storage.mongo.timeout":     "10s",
	"blob.driver":               string(blob.DriverFilesystem),
	"blob.fs_root":              "./data/files",
	"blob.base_url":             blob.DefaultBaseURL,
	"blob.s3.bucket":            "",
	"blob.s3.region":            "",
	"blob.s3.endpoint":          "",
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"blob.s3.path_style":        false,
	"upload.max_bytes":          blob.DefaultMaxUploadSize,
	"events.amqp_url":           "",
	"events.amqp_exchange":      "programhub.activity",
	"events.redis_addr":         "",
	"events.redis_password":     "",
	"events.redis_db":           0,
	"events.redis_key":          "programhub:activity",
	"events.redis_limit":        500,
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path when given and decodes the result. A missing path is an
// error; an empty path means defaults plus environment only.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode unmarshals v and validates the result.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	var errs []error
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageMongo:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres, mongo", c.Storage.Driver))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver %q is not one of fs, s3, memory", c.Blob.Driver))
	}
	if c.Storage.Driver == string(core.StorageMongo) && c.Storage.Mongo.URI == "" {
		errs = append(errs, errors.New("storage.mongo.uri is required for the mongo driver"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}
	return errors.Join(errs...)
}

// StorageSettings converts the storage section for core.OpenPersistentStore.
func (c Config) StorageSettings() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		Mongo: mongo.Config{
			URI:        c.Storage.Mongo.URI,
			Database:   c.Storage.Mongo.Database,
			Collection: c.Storage.Mongo.Collection,
			Timeout:    c.Storage.Mongo.Timeout,
		},
	}
}

// BlobSettings converts the blob section for blob.Open.
func (c Config) BlobSettings() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}
