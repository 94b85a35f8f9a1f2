// Package lib assembles a ready-to-use client: one credential store, one
// refresh coordinator and one pipeline shared by every service.
package lib

import (
	"context"
	"errors"
	"fmt"

	"github.com/octabyte/sentimind-session/auth"
	"github.com/octabyte/sentimind-session/config"
	"github.com/octabyte/sentimind-session/credentials"
	"github.com/octabyte/sentimind-session/db/bolt"
	"github.com/octabyte/sentimind-session/db/redis"
	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/otel"
	"github.com/octabyte/sentimind-session/otel/metrics"
	"github.com/octabyte/sentimind-session/pipeline"
	"github.com/octabyte/sentimind-session/posts"
	"github.com/octabyte/sentimind-session/refresh"
	"github.com/octabyte/sentimind-session/session"
	"github.com/octabyte/sentimind-session/utils/logger"
)

type Client struct {
	Store    credentials.Store
	Pipeline *pipeline.Pipeline
	Auth     *auth.Service
	Posts    *posts.Service
	Session  *session.Manager

	closers []func() error
}

// NewClient wires the client described by cfg. The session starts in
// Bootstrapping; call Session.Bootstrap to resolve it.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	c := &Client{}

	shutdown, err := otel.InitOpenTelemetry(ctx, cfg.Otel)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	c.closers = append(c.closers, func() error { shutdown(); return nil })

	if err := metrics.Init(cfg.API.ServiceName); err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	store, closeStore, err := NewStore(ctx, cfg.Store)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeStore)

	client := pipeline.NewRestyClient(cfg.API)
	c.Store = store
	c.Pipeline = pipeline.New(client, store, refresh.New(client, store), cfg.API.ServiceName)
	c.Auth = auth.New(c.Pipeline, store)
	c.Posts = posts.New(c.Pipeline)
	c.Session = session.New(c.Auth, store)
	c.Pipeline.OnRenewalFailure(c.Session.Expire)

	logger.LogDebugf("client ready: api=%s store=%s", cfg.API.BaseURL, cfg.Store.Driver)
	return c, nil
}

// NewStore opens the credential store selected by cfg.Driver. The returned
// func releases the underlying connection.
func NewStore(ctx context.Context, cfg config.StoreConfig) (credentials.Store, func() error, error) {
	switch cfg.Driver {
	case enums.StoreDriverMemory:
		return credentials.NewMemoryStore(), func() error { return nil }, nil
	case enums.StoreDriverBolt, "":
		db, err := bolt.Open(cfg.Bolt)
		if err != nil {
			return nil, nil, err
		}
		store, err := credentials.NewBoltStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case enums.StoreDriverRedis:
		client, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return credentials.NewRedisStore(client, cfg.RedisKey), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Close releases the store and flushes telemetry.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
