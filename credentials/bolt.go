package credentials

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/octabyte/sentimind-session/models"
)

var credentialsBucket = []byte("credentials")

// BoltStore persists the pair in a local bbolt file so it survives restarts.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating credentials bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying BBolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(_ context.Context) (*models.CredentialPair, error) {
	var pair *models.CredentialPair
	err := s.db.View(func(tx *bbolt.Tx) error {
		pair = readPair(tx.Bucket(credentialsBucket))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrNoCredentials
	}
	return pair, nil
}

func (s *BoltStore) Set(_ context.Context, pair models.CredentialPair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return writePair(tx.Bucket(credentialsBucket), pair)
	})
}

func (s *BoltStore) CompareAndSet(_ context.Context, expectedRefresh string, pair models.CredentialPair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		current := readPair(b)
		if current == nil || current.Refresh != expectedRefresh {
			return ErrStale
		}
		return writePair(b, pair)
	})
}

func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deletePair(tx.Bucket(credentialsBucket))
	})
}

func (s *BoltStore) CompareAndClear(_ context.Context, expectedRefresh string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		current := readPair(b)
		if current == nil || current.Refresh != expectedRefresh {
			return ErrStale
		}
		return deletePair(b)
	})
}

func readPair(b *bbolt.Bucket) *models.CredentialPair {
	if b == nil {
		return nil
	}
	access := b.Get([]byte(AccessTokenKey))
	refresh := b.Get([]byte(RefreshTokenKey))
	if len(access) == 0 || len(refresh) == 0 {
		return nil
	}
	// bbolt values are only valid inside the transaction.
	return &models.CredentialPair{Access: string(access), Refresh: string(refresh)}
}

func deletePair(b *bbolt.Bucket) error {
	if err := b.Delete([]byte(AccessTokenKey)); err != nil {
		return err
	}
	return b.Delete([]byte(RefreshTokenKey))
}

func writePair(b *bbolt.Bucket, pair models.CredentialPair) error {
	if err := b.Put([]byte(AccessTokenKey), []byte(pair.Access)); err != nil {
		return err
	}
	return b.Put([]byte(RefreshTokenKey), []byte(pair.Refresh))
}
