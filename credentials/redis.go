package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	redisdb "github.com/octabyte/sentimind-session/db/redis"
	"github.com/octabyte/sentimind-session/models"
)

const DefaultRedisKey = "sentimind:credentials"

// RedisStore keeps the pair in one Redis hash, which lets several client
// processes share a session.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (*models.CredentialPair, error) {
	fields, err := redisdb.HGetAll(ctx, s.client, s.key)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	pair := pairFromFields(fields)
	if pair == nil {
		return nil, ErrNoCredentials
	}
	return pair, nil
}

func (s *RedisStore) Set(ctx context.Context, pair models.CredentialPair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	if err := redisdb.HSetFields(ctx, s.client, s.key, fieldsFromPair(pair)); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) CompareAndSet(ctx context.Context, expectedRefresh string, pair models.CredentialPair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	err := s.whenRefreshIs(ctx, expectedRefresh, func(pipe redis.Pipeliner) error {
		return redisdb.HSetFields(ctx, pipe, s.key, fieldsFromPair(pair))
	})
	if err != nil && !errors.Is(err, ErrStale) {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return err
}

func (s *RedisStore) CompareAndClear(ctx context.Context, expectedRefresh string) error {
	err := s.whenRefreshIs(ctx, expectedRefresh, func(pipe redis.Pipeliner) error {
		return redisdb.Del(ctx, pipe, s.key)
	})
	if err != nil && !errors.Is(err, ErrStale) {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return err
}

// whenRefreshIs runs write in a MULTI block if the stored refresh token
// equals expected, under WATCH on the key. A concurrent change of the key
// is reported as ErrStale.
func (s *RedisStore) whenRefreshIs(ctx context.Context, expected string, write func(redis.Pipeliner) error) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, s.key, RefreshTokenKey).Result()
		if errors.Is(err, redis.Nil) || (err == nil && current != expected) {
			return ErrStale
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, write)
		return err
	}, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := redisdb.Del(ctx, s.client, s.key); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

func pairFromFields(fields map[string]string) *models.CredentialPair {
	pair := models.CredentialPair{Access: fields[AccessTokenKey], Refresh: fields[RefreshTokenKey]}
	if !pair.Valid() {
		return nil
	}
	return &pair
}

func fieldsFromPair(pair models.CredentialPair) map[string]string {
	return map[string]string{
		AccessTokenKey:  pair.Access,
		RefreshTokenKey: pair.Refresh,
	}
}
