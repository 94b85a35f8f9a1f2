package credentials

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/octabyte/sentimind-session/models"
)

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)

		access, err := AccessToken(ctx, s)
		require.NoError(t, err)
		assert.Empty(t, access)
	})

	t.Run("set get clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, models.CredentialPair{Access: "A1", Refresh: "R1"}))

		pair, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.CredentialPair{Access: "A1", Refresh: "R1"}, *pair)

		require.NoError(t, s.Clear(ctx))
		_, err = s.Get(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)

		require.NoError(t, s.Clear(ctx), "clearing twice is not an error")
	})

	t.Run("rejects incomplete pair", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Set(ctx, models.CredentialPair{Access: "A1"}), ErrIncompletePair)
		assert.ErrorIs(t, s.Set(ctx, models.CredentialPair{Refresh: "R1"}), ErrIncompletePair)
		_, err := s.Get(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("compare and set", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, models.CredentialPair{Access: "A1", Refresh: "R1"}))

		require.NoError(t, s.CompareAndSet(ctx, "R1", models.CredentialPair{Access: "A2", Refresh: "R1"}))
		pair, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A2", pair.Access)

		err = s.CompareAndSet(ctx, "R0", models.CredentialPair{Access: "A3", Refresh: "R3"})
		assert.ErrorIs(t, err, ErrStale)

		require.NoError(t, s.Clear(ctx))
		err = s.CompareAndSet(ctx, "R1", models.CredentialPair{Access: "A4", Refresh: "R1"})
		assert.ErrorIs(t, err, ErrStale, "a cleared store must not be resurrected")
	})

	t.Run("compare and clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, models.CredentialPair{Access: "A1", Refresh: "R1"}))

		assert.ErrorIs(t, s.CompareAndClear(ctx, "R0"), ErrStale)
		pair, err := s.Get(ctx)
		require.NoError(t, err, "a mismatched refresh token must leave the pair alone")
		assert.Equal(t, "R1", pair.Refresh)

		require.NoError(t, s.CompareAndClear(ctx, "R1"))
		_, err = s.Get(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)

		assert.ErrorIs(t, s.CompareAndClear(ctx, "R1"), ErrStale)
	})

	t.Run("concurrent writers never expose a mixed pair", func(t *testing.T) {
		s := newStore(t)
		const writers = 8
		var wg sync.WaitGroup
		wg.Add(writers * 2)

		for i := 0; i < writers; i++ {
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					n := fmt.Sprintf("%d-%d", i, j)
					_ = s.Set(ctx, models.CredentialPair{Access: "A" + n, Refresh: "R" + n})
				}
			}(i)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					pair, err := s.Get(ctx)
					if err != nil {
						continue
					}
					assert.Equal(t, pair.Access[1:], pair.Refresh[1:], "pair halves diverged")
				}
			}()
		}
		wg.Wait()
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(context.Background(), models.CredentialPair{Access: "A1", Refresh: "R1"}))

	pair, err := s.Get(context.Background())
	require.NoError(t, err)
	pair.Access = "mutated"

	again, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A1", again.Access)
}

func newTestBoltDB(t *testing.T, path string) *bbolt.DB {
	t.Helper()
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	return db
}

func TestBoltStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		db := newTestBoltDB(t, filepath.Join(t.TempDir(), "session.db"))
		t.Cleanup(func() { db.Close() })
		s, err := NewBoltStore(db)
		require.NoError(t, err)
		return s
	})
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewBoltStore(newTestBoltDB(t, path))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, models.CredentialPair{Access: "A1", Refresh: "R1"}))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(newTestBoltDB(t, path))
	require.NoError(t, err)
	defer reopened.Close()

	pair, err := reopened.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CredentialPair{Access: "A1", Refresh: "R1"}, *pair)
}

func TestBoltStoreUsesFixedKeys(t *testing.T) {
	ctx := context.Background()
	db := newTestBoltDB(t, filepath.Join(t.TempDir(), "session.db"))
	defer db.Close()

	s, err := NewBoltStore(db)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, models.CredentialPair{Access: "A1", Refresh: "R1"}))

	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		assert.Equal(t, "A1", string(b.Get([]byte(AccessTokenKey))))
		assert.Equal(t, "R1", string(b.Get([]byte(RefreshTokenKey))))
		return nil
	})
	require.NoError(t, err)
}
