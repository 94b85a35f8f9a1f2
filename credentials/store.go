// Package credentials holds the access/refresh token pair of the current session.
//
// Every implementation writes both tokens as one unit, so a reader never sees
// an access token without its refresh token or the other way round.
package credentials

import (
	"context"
	"errors"

	"github.com/octabyte/sentimind-session/models"
)

const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

var (
	ErrNoCredentials  = errors.New("credentials: no stored credentials")
	ErrIncompletePair = errors.New("credentials: access and refresh tokens must both be set")
	ErrStale          = errors.New("credentials: stored refresh token changed")
)

type Store interface {
	// Get returns the stored pair or ErrNoCredentials.
	Get(ctx context.Context) (*models.CredentialPair, error)
	// Set replaces the stored pair.
	Set(ctx context.Context, pair models.CredentialPair) error
	// CompareAndSet replaces the stored pair only if the stored refresh token
	// still equals expectedRefresh. It returns ErrStale otherwise.
	CompareAndSet(ctx context.Context, expectedRefresh string, pair models.CredentialPair) error
	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	// CompareAndClear removes both tokens only if the stored refresh token
	// still equals expectedRefresh. It returns ErrStale otherwise.
	CompareAndClear(ctx context.Context, expectedRefresh string) error
}

// AccessToken returns the stored access token, or "" when none is stored.
func AccessToken(ctx context.Context, s Store) (string, error) {
	pair, err := s.Get(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pair.Access, nil
}
