// Package config loads coordinator and worker configuration from the
// environment and assembles the concrete repository, blob store, and event
// bus implementations. All wiring is explicit: components receive their
// collaborators at construction.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	eventmemory "github.com/tendant/simple-upload/pkg/simpleupload/event/memory"
	natsbus "github.com/tendant/simple-upload/pkg/simpleupload/event/nats"
	repomemory "github.com/tendant/simple-upload/pkg/simpleupload/repo/memory"
	repopg "github.com/tendant/simple-upload/pkg/simpleupload/repo/postgres"
	storagememory "github.com/tendant/simple-upload/pkg/simpleupload/storage/memory"
	storages3 "github.com/tendant/simple-upload/pkg/simpleupload/storage/s3"
)

// EventBus combines both sides of the event channel
type EventBus interface {
	simpleupload.Publisher
	simpleupload.Subscriber
}

// ServerConfig represents configuration for the upload coordinator server
type ServerConfig struct {
	Port              string `env:"PORT" env-default:"8080"`
	Environment       string `env:"ENVIRONMENT" env-default:"development"`
	PresignTTLSeconds int    `env:"UPLOAD_PRESIGN_TTL_SECONDS" env-default:"900"`

	DB      DbConfig
	Storage StorageConfig
	Events  EventsConfig
}

// WorkerConfig represents configuration for the derivative worker
type WorkerConfig struct {
	Group       string `env:"UPLOAD_CONSUMER_GROUP" env-default:"thumbnail-workers"`
	ThumbWidth  uint   `env:"THUMBNAIL_WIDTH" env-default:"256"`
	ThumbHeight uint   `env:"THUMBNAIL_HEIGHT" env-default:"256"`
	JPEGQuality int    `env:"THUMBNAIL_JPEG_QUALITY" env-default:"80"`
	CallbackURL string `env:"CALLBACK_URL" env-default:"http://localhost:8080/api/thumbnails/callback"`

	DB      DbConfig
	Storage StorageConfig
	Events  EventsConfig
}

// DbConfig represents metadata store configuration
type DbConfig struct {
	Type     string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	Host     string `env:"UPLOAD_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"UPLOAD_PG_PORT" env-default:"5432"`
	Name     string `env:"UPLOAD_PG_NAME" env-default:"upload_db"`
	User     string `env:"UPLOAD_PG_USER" env-default:"upload"`
	Password string `env:"UPLOAD_PG_PASSWORD" env-default:"pwd"`
}

// StorageConfig represents object store configuration
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" env-default:"memory"` // "memory", "s3"

	S3Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Bucket          string `env:"AWS_S3_BUCKET" env-default:"upload-bucket"`
	S3Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	S3UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	S3CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
	S3PresignSeconds  int    `env:"AWS_S3_PRESIGN_DURATION" env-default:"900"`
}

// EventsConfig represents event channel configuration
type EventsConfig struct {
	Transport string `env:"EVENT_TRANSPORT" env-default:"nats"` // "nats", "memory"
	NatsURL   string `env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	Subject   string `env:"UPLOAD_EVENT_SUBJECT" env-default:"upload.events"`
}

// LoadServerConfig reads coordinator configuration from the environment
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWorkerConfig reads worker configuration from the environment
func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.PresignTTLSeconds <= 0 {
		return errors.New("presign TTL must be positive")
	}
	if err := c.DB.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	return c.Events.validate()
}

// Validate validates the worker configuration
func (c *WorkerConfig) Validate() error {
	if c.Group == "" {
		return errors.New("consumer group is required")
	}
	if c.ThumbWidth == 0 || c.ThumbHeight == 0 {
		return errors.New("thumbnail dimensions must be positive")
	}
	if err := c.DB.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	return c.Events.validate()
}

func (c DbConfig) validate() error {
	if c.Type != "memory" && c.Type != "postgres" {
		return errors.New("database type must be 'memory' or 'postgres'")
	}
	return nil
}

func (c StorageConfig) validate() error {
	if c.Backend != "memory" && c.Backend != "s3" {
		return errors.New("storage backend must be 'memory' or 's3'")
	}
	if c.Backend == "s3" && c.S3Bucket == "" {
		return errors.New("s3 bucket is required when using the s3 backend")
	}
	return nil
}

func (c EventsConfig) validate() error {
	if c.Transport != "nats" && c.Transport != "memory" {
		return errors.New("event transport must be 'nats' or 'memory'")
	}
	if c.Transport == "nats" && c.Subject == "" {
		return errors.New("event subject is required when using nats")
	}
	return nil
}

func (c DbConfig) toDatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

// BuildRepository constructs the configured repository. The returned
// cleanup function closes the underlying pool when one was opened.
func (c DbConfig) BuildRepository(ctx context.Context) (simpleupload.Repository, func(), error) {
	switch c.Type {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.toDatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	default:
		return repomemory.New(), func() {}, nil
	}
}

// BuildBlobStore constructs the configured object store backend
func (c StorageConfig) BuildBlobStore() (simpleupload.BlobStore, error) {
	switch c.Backend {
	case "s3":
		return storages3.New(storages3.Config{
			Region:                 c.S3Region,
			Bucket:                 c.S3Bucket,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               c.S3Endpoint,
			UsePathStyle:           c.S3UsePathStyle,
			PresignDuration:        c.S3PresignSeconds,
			CreateBucketIfNotExist: c.S3CreateBucket,
		})
	default:
		return storagememory.New(), nil
	}
}

// BuildBus constructs the configured event bus. The returned cleanup
// function drains the NATS connection when one was opened.
func (c EventsConfig) BuildBus(name string) (EventBus, func(), error) {
	switch c.Transport {
	case "nats":
		bus, err := natsbus.New(natsbus.Config{
			URL:     c.NatsURL,
			Subject: c.Subject,
			Name:    name,
		})
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	default:
		return eventmemory.New(), func() {}, nil
	}
}

// BuildService assembles the coordinator service from the configuration.
// The returned cleanup function releases the pool and event connections.
func (c *ServerConfig) BuildService(ctx context.Context) (simpleupload.Service, func(), error) {
	repo, closeRepo, err := c.DB.BuildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := c.Storage.BuildBlobStore()
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	bus, closeBus, err := c.Events.BuildBus("simple-upload-server")
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	svc, err := simpleupload.New(
		simpleupload.WithRepository(repo),
		simpleupload.WithBlobStore(store),
		simpleupload.WithPublisher(bus),
		simpleupload.WithPresignTTL(time.Duration(c.PresignTTLSeconds)*time.Second),
	)
	if err != nil {
		closeBus()
		closeRepo()
		return nil, nil, err
	}

	cleanup := func() {
		closeBus()
		closeRepo()
	}
	return svc, cleanup, nil
}
