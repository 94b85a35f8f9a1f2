// Package refresh renews the access token with at most one refresh call in
// flight. Concurrent callers share the outcome of the pending call.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/octabyte/sentimind-session/credentials"
	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/models"
	"github.com/octabyte/sentimind-session/otel/logger"
	"github.com/octabyte/sentimind-session/otel/metrics"
	"github.com/octabyte/sentimind-session/pipeline"
	"github.com/octabyte/sentimind-session/utils"
)

const flightKey = "renew"

var (
	// ErrRenewalFailed is re-exported so callers need not import pipeline.
	ErrRenewalFailed = pipeline.ErrRenewalFailed

	ErrNoRefreshToken = errors.New("refresh: no refresh token stored")
	ErrEmptyAccess    = errors.New("refresh: response carried no access token")
)

type Coordinator struct {
	client *resty.Client
	store  credentials.Store
	group  singleflight.Group
}

var _ pipeline.Renewer = (*Coordinator)(nil)

func New(client *resty.Client, store credentials.Store) *Coordinator {
	return &Coordinator{client: client, store: store}
}

// Renew returns a usable access token. If a renewal is already running the
// caller joins it instead of starting another. The renewal itself is detached
// from ctx; cancelling ctx only stops this caller from waiting.
//
// Errors from a failed renewal wrap pipeline.ErrRenewalFailed, and by then
// the stored credentials have been cleared. If the stored pair was replaced
// while the refresh call was out, the error wraps credentials.ErrStale instead
// and the store is left untouched.
func (c *Coordinator) Renew(ctx context.Context, staleAccess string) (string, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		return c.renew(flightCtx, staleAccess)
	})

	select {
	case res := <-ch:
		metrics.RecordRenewalWaiter(ctx, res.Shared)
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) renew(ctx context.Context, staleAccess string) (string, error) {
	pair, err := c.store.Get(ctx)
	if errors.Is(err, credentials.ErrNoCredentials) {
		return "", c.fail(ctx, "", ErrNoRefreshToken, 0)
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading credentials: %w", pipeline.ErrRenewalFailed, err)
	}

	// A renewal that finished before this caller arrived already replaced the
	// token it was sent with.
	if pair.Access != staleAccess {
		metrics.RecordRenewal(ctx, metrics.RenewalOutcomeReused, 0)
		return pair.Access, nil
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(models.RefreshRequest{Refresh: pair.Refresh}).
		Post(enums.PathTokenRefresh)
	if err != nil {
		return "", c.fail(ctx, pair.Refresh, err, time.Since(start))
	}
	if !resp.IsSuccess() {
		return "", c.fail(ctx, pair.Refresh, pipeline.NewResponseError(resp, nil), time.Since(start))
	}

	body := resp.Body()
	access := gjson.GetBytes(body, "access").String()
	if access == "" {
		return "", c.fail(ctx, pair.Refresh, ErrEmptyAccess, time.Since(start))
	}
	next := models.CredentialPair{Access: access, Refresh: pair.Refresh}
	if rotated := gjson.GetBytes(body, "refresh").String(); rotated != "" {
		next.Refresh = rotated
	}

	if err := c.store.CompareAndSet(ctx, pair.Refresh, next); err != nil {
		// A logout or a new login replaced the pair while the call was out.
		return "", c.fail(ctx, pair.Refresh, err, time.Since(start))
	}

	metrics.RecordRenewal(ctx, metrics.RenewalOutcomeSuccess, time.Since(start))
	logger.InfoCtx(ctx, "access token renewed",
		zap.String("access", utils.Mask(access)),
		zap.Bool("refresh_rotated", next.Refresh != pair.Refresh),
	)
	return access, nil
}

// fail records a failed renewal. The stored pair is cleared only while it
// still carries expectedRefresh; a pair replaced by a logout or a newer login
// is left alone and the error wraps credentials.ErrStale instead of
// ErrRenewalFailed, so the session is not expired.
func (c *Coordinator) fail(ctx context.Context, expectedRefresh string, cause error, took time.Duration) error {
	metrics.RecordRenewal(ctx, metrics.RenewalOutcomeFailure, took)
	if errors.Is(cause, credentials.ErrStale) {
		logger.WarnCtx(ctx, "credentials changed during renewal", zap.Error(cause))
		return fmt.Errorf("refresh: %w", cause)
	}

	if expectedRefresh != "" {
		err := c.store.CompareAndClear(ctx, expectedRefresh)
		if errors.Is(err, credentials.ErrStale) {
			logger.WarnCtx(ctx, "credentials changed during failed renewal", zap.Error(cause))
			return fmt.Errorf("refresh: %w: %w", credentials.ErrStale, cause)
		}
		if err != nil {
			logger.ErrorCtx(ctx, "clearing credentials after failed renewal", err)
		}
	}
	logger.WarnCtx(ctx, "access token renewal failed", zap.Error(cause))
	return fmt.Errorf("%w: %w", pipeline.ErrRenewalFailed, cause)
}
