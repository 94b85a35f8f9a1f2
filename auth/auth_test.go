package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/octabyte/sentimind-session/credentials"
	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/internal/testbackend"
	"github.com/octabyte/sentimind-session/models"
	"github.com/octabyte/sentimind-session/pipeline"
	"github.com/octabyte/sentimind-session/refresh"
)

type AuthServiceTestSuite struct {
	suite.Suite
	backend *testbackend.Backend
	store   *credentials.MemoryStore
	service *Service
	ctx     context.Context
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = testbackend.New(s.T())
	s.backend.AddUser("alice", "pw", "alice@example.com")

	s.store = credentials.NewMemoryStore()
	client := pipeline.NewRestyClient(pipeline.Config{BaseURL: s.backend.URL, Timeout: 5 * time.Second})
	p := pipeline.New(client, s.store, refresh.New(client, s.store), "auth-test")
	s.service = New(p, s.store)
}

func (s *AuthServiceTestSuite) TestLogin() {
	resp, err := s.service.Login(s.ctx, "alice", "pw")
	s.Require().NoError(err)

	s.NotEmpty(resp.Access)
	s.NotEmpty(resp.Refresh)
	s.Equal("alice", resp.User.Username)
	s.EqualValues(1, resp.User.ID)
}

func (s *AuthServiceTestSuite) TestLoginWrongPassword() {
	_, err := s.service.Login(s.ctx, "alice", "nope")
	s.Require().Error(err)

	var respErr *pipeline.ResponseError
	s.Require().ErrorAs(err, &respErr)
	s.Equal(http.StatusUnauthorized, respErr.Status)
	s.Equal("No active account found with the given credentials", respErr.Message)
	s.EqualValues(0, s.backend.RefreshCalls())
}

func (s *AuthServiceTestSuite) TestLoginValidatesBeforeSending() {
	_, err := s.service.Login(s.ctx, "", "pw")

	s.ErrorIs(err, ErrInvalidInput)
	var verrs validator.ValidationErrors
	s.ErrorAs(err, &verrs)
	s.Equal(0, s.backend.Hits(http.MethodPost, enums.PathLogin))
}

func (s *AuthServiceTestSuite) TestRegister() {
	resp, err := s.service.Register(s.ctx, models.RegisterData{
		Username:  "bob",
		Email:     "bob@example.com",
		Password:  "secret",
		Password2: "secret",
		FirstName: "Bob",
	})
	s.Require().NoError(err)

	s.Equal("bob", resp.User.Username)
	s.Equal("Bob", resp.User.FirstName)
	s.True(resp.Tokens.Valid())
	s.NotEmpty(resp.Message)
}

func (s *AuthServiceTestSuite) TestRegisterFieldErrors() {
	_, err := s.service.Register(s.ctx, models.RegisterData{
		Username: "alice", Email: "other@example.com", Password: "x", Password2: "x",
	})

	s.Equal(http.StatusBadRequest, pipeline.StatusOf(err))
	s.Contains(err.Error(), "username: A user with that username already exists.")
}

func (s *AuthServiceTestSuite) TestRegisterPasswordMismatch() {
	_, err := s.service.Register(s.ctx, models.RegisterData{
		Username: "bob", Email: "bob@example.com", Password: "a", Password2: "b",
	})

	s.ErrorIs(err, ErrInvalidInput)
	s.Equal(0, s.backend.Hits(http.MethodPost, enums.PathRegister))
}

func (s *AuthServiceTestSuite) TestProfile() {
	s.Require().NoError(s.store.Set(s.ctx, s.backend.IssuePair("alice")))

	user, err := s.service.Profile(s.ctx)
	s.Require().NoError(err)
	s.Equal("alice@example.com", user.Email)
}

func (s *AuthServiceTestSuite) TestLogoutBlacklistsRefreshToken() {
	pair := s.backend.IssuePair("alice")
	s.Require().NoError(s.store.Set(s.ctx, pair))

	s.service.Logout(s.ctx)

	s.True(s.backend.IsBlacklisted(pair.Refresh))
}

func (s *AuthServiceTestSuite) TestLogoutSwallowsBackendFailure() {
	s.Require().NoError(s.store.Set(s.ctx, s.backend.IssuePair("alice")))
	s.backend.FailPath(http.MethodPost, enums.PathLogout, http.StatusInternalServerError)

	s.NotPanics(func() { s.service.Logout(s.ctx) })
	s.Equal(1, s.backend.Hits(http.MethodPost, enums.PathLogout))
}

func (s *AuthServiceTestSuite) TestLogoutWithoutCredentialsSkipsBackend() {
	s.service.Logout(s.ctx)

	s.Equal(0, s.backend.Hits(http.MethodPost, enums.PathLogout))
}

func (s *AuthServiceTestSuite) TestRequestPasswordReset() {
	resp, err := s.service.RequestPasswordReset(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.NotEmpty(resp.Message)

	_, err = s.service.RequestPasswordReset(s.ctx, "nobody@example.com")
	s.Equal(http.StatusBadRequest, pipeline.StatusOf(err))

	_, err = s.service.RequestPasswordReset(s.ctx, "not-an-email")
	s.ErrorIs(err, ErrInvalidInput)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestLoginRejectsResponseWithoutTokens(t *testing.T) {
	backend := testbackend.New(t)
	backend.FailPath(http.MethodPost, enums.PathLogin, http.StatusOK)

	store := credentials.NewMemoryStore()
	client := pipeline.NewRestyClient(pipeline.Config{BaseURL: backend.URL, Timeout: 5 * time.Second})
	service := New(pipeline.New(client, store, refresh.New(client, store), "auth-test"), store)

	_, err := service.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
