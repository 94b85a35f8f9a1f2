// Package auth wraps the backend's account endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/octabyte/sentimind-session/credentials"
	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/models"
	"github.com/octabyte/sentimind-session/otel/logger"
	"github.com/octabyte/sentimind-session/pipeline"
	"github.com/octabyte/sentimind-session/utils"
)

var (
	ErrInvalidInput      = errors.New("auth: invalid input")
	ErrMalformedResponse = errors.New("auth: malformed response")
)

type Service struct {
	pipeline *pipeline.Pipeline
	store    credentials.Store
	validate *validator.Validate
}

func New(p *pipeline.Pipeline, store credentials.Store) *Service {
	return &Service{
		pipeline: p,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	req := models.LoginRequest{Username: username, Password: password}
	if err := s.validateInput(req); err != nil {
		return nil, err
	}

	var resp models.LoginResponse
	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodPost,
		Path:   enums.PathLogin,
		Body:   req,
		Result: &resp,
	}); err != nil {
		return nil, err
	}
	if !resp.Pair().Valid() {
		return nil, fmt.Errorf("%w: login response without tokens", ErrMalformedResponse)
	}
	return &resp, nil
}

func (s *Service) Register(ctx context.Context, data models.RegisterData) (*models.RegisterResponse, error) {
	if err := s.validateInput(data); err != nil {
		return nil, err
	}

	var resp models.RegisterResponse
	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodPost,
		Path:   enums.PathRegister,
		Body:   data,
		Result: &resp,
	}); err != nil {
		return nil, err
	}
	if !resp.Tokens.Valid() {
		return nil, fmt.Errorf("%w: register response without tokens", ErrMalformedResponse)
	}
	return &resp, nil
}

// Logout asks the backend to revoke the stored refresh token. It never
// fails: local state is cleared by the caller whatever the backend says.
func (s *Service) Logout(ctx context.Context) {
	pair, err := s.store.Get(ctx)
	if err != nil {
		logger.DebugCtx(ctx, "logout without stored credentials", zap.Error(err))
		return
	}

	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodPost,
		Path:   enums.PathLogout,
		Body:   models.LogoutRequest{Refresh: pair.Refresh},
	}); err != nil {
		logger.DebugCtx(ctx, "backend logout failed", zap.String("refresh", utils.Mask(pair.Refresh)), zap.Error(err))
	}
}

// Profile fetches the user the stored access token belongs to.
func (s *Service) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodGet,
		Path:   enums.PathProfile,
		Result: &user,
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*models.PasswordResetResponse, error) {
	req := models.PasswordResetRequest{Email: email}
	if err := s.validateInput(req); err != nil {
		return nil, err
	}

	var resp models.PasswordResetResponse
	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodPost,
		Path:   enums.PathPasswordReset,
		Body:   req,
		Result: &resp,
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) validateInput(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
