// Package pipeline sends authenticated requests to the backend.
//
// Each request carries the stored access token as a bearer header. A 401 on
// the first attempt triggers one renewal through the Renewer and exactly one
// retry with the renewed token; every other outcome is returned as is.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/octabyte/sentimind-session/credentials"
	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/otel"
	"github.com/octabyte/sentimind-session/otel/logger"
	"github.com/octabyte/sentimind-session/otel/metrics"
	"github.com/octabyte/sentimind-session/utils"
	reqctx "github.com/octabyte/sentimind-session/utils/context"
)

const RequestIDHeader = "X-Request-ID"

// Renewer exchanges the stored refresh token for a new access token.
// staleAccess is the token the failed request was sent with.
type Renewer interface {
	Renew(ctx context.Context, staleAccess string) (string, error)
}

// Request describes one backend call. It is rebuilt into a fresh resty
// request on every attempt, so it can be safely retried.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   interface{}
	// Result receives the decoded body of a 2xx response when non-nil.
	Result interface{}
}

type Pipeline struct {
	client      *resty.Client
	store       credentials.Store
	renewer     Renewer
	serviceName string

	mu           sync.RWMutex
	failureHooks []func(context.Context, error)
}

func New(client *resty.Client, store credentials.Store, renewer Renewer, serviceName string) *Pipeline {
	return &Pipeline{
		client:      client,
		store:       store,
		renewer:     renewer,
		serviceName: serviceName,
	}
}

// OnRenewalFailure registers fn to run whenever a renewal fails during Send.
// Hooks run on the goroutine of the failing request.
func (p *Pipeline) OnRenewalFailure(fn func(ctx context.Context, err error)) {
	p.mu.Lock()
	p.failureHooks = append(p.failureHooks, fn)
	p.mu.Unlock()
}

// Send performs req. Non-2xx responses come back together with a *ResponseError.
func (p *Pipeline) Send(ctx context.Context, req *Request) (*resty.Response, error) {
	if reqctx.GetRequestIDFromContext(ctx) == "" {
		ctx = reqctx.WithRequestID(ctx, "")
	}

	access, err := credentials.AccessToken(ctx, p.store)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading credentials: %w", err)
	}

	resp, err := p.attempt(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusUnauthorized || req.Path == enums.PathTokenRefresh {
		return p.complete(resp, req)
	}

	// From here on the request has used its single retry.
	if _, err := p.store.Get(ctx); err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return resp, NewResponseError(resp, nil)
		}
		return resp, fmt.Errorf("pipeline: reading credentials: %w", err)
	}

	renewed, err := p.renewer.Renew(ctx, access)
	if err != nil {
		if errors.Is(err, ErrRenewalFailed) {
			logger.WarnCtx(ctx, "credential renewal failed, ending session",
				zap.String("method", req.Method), zap.String("path", req.Path), zap.Error(err))
			p.notifyRenewalFailure(ctx, err)
		}
		return resp, NewResponseError(resp, err)
	}

	metrics.RecordRetry(ctx, req.Method, req.Path)
	resp, err = p.attempt(ctx, req, renewed)
	if err != nil {
		return nil, err
	}
	return p.complete(resp, req)
}

func (p *Pipeline) attempt(ctx context.Context, req *Request, access string) (*resty.Response, error) {
	ctx, finish := otel.StartHTTPSpan(ctx, p.serviceName, "pipeline", req.Method+" "+req.Path, req.Method, p.client.BaseURL, req.Path)

	r := p.client.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, reqctx.GetRequestIDFromContext(ctx))
	if access != "" {
		r.SetHeader(utils.AuthorizationHeader, utils.BearerToken(access))
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	status := 0
	if err == nil {
		status = resp.StatusCode()
	}
	finish(status, err)
	metrics.RecordHTTPRequest(ctx, req.Method, req.Path, status, time.Since(start))

	if err != nil {
		logger.ErrorCtx(ctx, "backend request failed", err, zap.String("method", req.Method), zap.String("path", req.Path))
		return nil, fmt.Errorf("pipeline: %s %s: %w", req.Method, req.Path, err)
	}

	logger.DebugCtx(ctx, "backend request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", status),
		zap.Bool("authenticated", access != ""),
	)
	return resp, nil
}

func (p *Pipeline) complete(resp *resty.Response, req *Request) (*resty.Response, error) {
	if !resp.IsSuccess() {
		return resp, NewResponseError(resp, nil)
	}
	if req.Result != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), req.Result); err != nil {
			return resp, fmt.Errorf("pipeline: decoding %s %s response: %w", req.Method, req.Path, err)
		}
	}
	return resp, nil
}

func (p *Pipeline) notifyRenewalFailure(ctx context.Context, err error) {
	p.mu.RLock()
	hooks := append([]func(context.Context, error){}, p.failureHooks...)
	p.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, err)
	}
}
