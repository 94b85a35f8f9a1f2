// Package testbackend is an in-process stand-in for the Sentimind REST API.
// It issues real HS256 tokens and lets tests expire, revoke and delay them.
package testbackend

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/internal/middleware"
	"github.com/octabyte/sentimind-session/models"
)

var Categories = []string{
	"Alegría", "Tristeza", "Enojo", "Miedo", "Sorpresa", "Asco",
	"Amor", "Humor", "Inspiración", "Queja", "Reflexión", "Sarcasmo",
}

type account struct {
	user     models.User
	password string
}

type Backend struct {
	URL    string
	server *httptest.Server
	secret []byte

	mu             sync.Mutex
	accounts       map[string]*account
	blacklist      map[string]bool
	posts          []models.Post
	failures       map[string]int
	refreshStatus  int
	refreshDelay   time.Duration
	rotateRefresh  bool
	accessGen      int64
	refreshGen     int64
	authHeaders    map[string][]string
	hits           map[string]int
	refreshRelease chan struct{}

	refreshCalls atomic.Int64
}

// New starts a backend that is shut down when t finishes.
func New(t testing.TB) *Backend {
	b := &Backend{
		secret:      []byte("testbackend-" + uuid.NewString()),
		accounts:    make(map[string]*account),
		blacklist:   make(map[string]bool),
		failures:    make(map[string]int),
		authHeaders: make(map[string][]string),
		hits:        make(map[string]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)
	e.Use(b.record, b.injectFailures, middleware.SetTokenInContext())

	auth := middleware.RequireAccessToken(b.secret, b.validateAccess)

	e.POST(enums.PathLogin, b.login)
	e.POST(enums.PathRegister, b.register)
	e.POST(enums.PathLogout, b.logout, auth)
	e.GET(enums.PathProfile, b.profile, auth)
	e.POST(enums.PathPasswordReset, b.passwordReset)
	e.POST(enums.PathTokenRefresh, b.refresh)
	e.GET(enums.PathPosts, b.listPosts, auth)
	e.POST(enums.PathPosts, b.createPost, auth)
	e.GET(enums.PathCategories, b.categories)

	b.server = httptest.NewServer(e)
	b.URL = b.server.URL
	t.Cleanup(b.server.Close)
	return b
}

// AddUser registers an account directly, bypassing the register endpoint.
func (b *Backend) AddUser(username, password, email string) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, password, email, "", "")
}

func (b *Backend) addUserLocked(username, password, email, first, last string) models.User {
	user := models.User{
		ID:        int64(len(b.accounts) + 1),
		Username:  username,
		Email:     email,
		FirstName: first,
		LastName:  last,
	}
	b.accounts[username] = &account{user: user, password: password}
	return user
}

// IssuePair mints a fresh credential pair for username.
func (b *Backend) IssuePair(username string) models.CredentialPair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issuePairLocked(b.accounts[username].user.ID)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	b.accessGen++
	b.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	b.refreshGen++
	b.mu.Unlock()
}

// SetRefreshStatus forces the refresh endpoint to answer with status; 0 restores normal behaviour.
func (b *Backend) SetRefreshStatus(status int) {
	b.mu.Lock()
	b.refreshStatus = status
	b.mu.Unlock()
}

func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	b.refreshDelay = d
	b.mu.Unlock()
}

// HoldRefresh blocks refresh calls until the returned func is called.
func (b *Backend) HoldRefresh() (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.refreshRelease = ch
	b.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// RotateRefresh makes the refresh endpoint issue a new refresh token and blacklist the old one.
func (b *Backend) RotateRefresh(on bool) {
	b.mu.Lock()
	b.rotateRefresh = on
	b.mu.Unlock()
}

// FailPath makes every request to "METHOD path" answer with status.
func (b *Backend) FailPath(method, path string, status int) {
	b.mu.Lock()
	b.failures[method+" "+path] = status
	b.mu.Unlock()
}

func (b *Backend) RefreshCalls() int64 {
	return b.refreshCalls.Load()
}

// Hits counts requests for "METHOD path".
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// AuthHeaders lists the Authorization headers seen for "METHOD path", in arrival order.
func (b *Backend) AuthHeaders(method, path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders[method+" "+path]...)
}

// IsBlacklisted reports whether a refresh token was revoked by logout or rotation.
func (b *Backend) IsBlacklisted(refresh string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blacklist[refresh]
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + c.Request().URL.Path
		b.mu.Lock()
		b.hits[key]++
		b.authHeaders[key] = append(b.authHeaders[key], c.Request().Header.Get(middleware.Authorization))
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		status := b.failures[c.Request().Method+" "+c.Request().URL.Path]
		b.mu.Unlock()
		if status != 0 {
			return c.JSON(status, map[string]string{"error": http.StatusText(status)})
		}
		return next(c)
	}
}

func (b *Backend) issuePairLocked(userID int64) models.CredentialPair {
	return models.CredentialPair{
		Access:  b.signLocked(middleware.TokenTypeAccess, userID, b.accessGen, 5*time.Minute),
		Refresh: b.signLocked(middleware.TokenTypeRefresh, userID, b.refreshGen, 24*time.Hour),
	}
}

func (b *Backend) signLocked(tokenType string, userID, gen int64, ttl time.Duration) string {
	now := time.Now()
	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType:  tokenType,
		UserID:     userID,
		Generation: gen,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return raw
}

func (b *Backend) validateAccess(claims *middleware.Claims) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if claims.Generation != b.accessGen {
		return jwt.ErrTokenExpired
	}
	return nil
}

func (b *Backend) userByIDLocked(id int64) *models.User {
	for _, acc := range b.accounts {
		if acc.user.ID == id {
			u := acc.user
			return &u
		}
	}
	return nil
}

func (b *Backend) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "malformed body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[req.Username]
	if !ok || acc.password != req.Password {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
	}
	pair := b.issuePairLocked(acc.user.ID)
	return c.JSON(http.StatusOK, models.LoginResponse{Access: pair.Access, Refresh: pair.Refresh, User: acc.user})
}

func (b *Backend) register(c echo.Context) error {
	var req models.RegisterData
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "malformed body"})
	}
	if req.Password != req.Password2 {
		return c.JSON(http.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Username]; exists {
		return c.JSON(http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
	}
	user := b.addUserLocked(req.Username, req.Password, req.Email, req.FirstName, req.LastName)
	return c.JSON(http.StatusCreated, models.RegisterResponse{
		Message: "Usuario registrado exitosamente",
		User:    user,
		Tokens:  b.issuePairLocked(user.ID),
	})
}

func (b *Backend) logout(c echo.Context) error {
	var req models.LogoutRequest
	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Token invalido"})
	}
	b.mu.Lock()
	b.blacklist[req.Refresh] = true
	b.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"message": "Sesion cerrada exitosamente"})
}

func (b *Backend) profile(c echo.Context) error {
	claims := middleware.GetClaimsFromContext(c)
	b.mu.Lock()
	user := b.userByIDLocked(claims.UserID)
	b.mu.Unlock()
	if user == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
	return c.JSON(http.StatusOK, user)
}

func (b *Backend) passwordReset(c echo.Context) error {
	var req models.PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "malformed body"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		if strings.EqualFold(acc.user.Email, req.Email) {
			return c.JSON(http.StatusOK, models.PasswordResetResponse{
				Message: "Se ha enviado un enlace de recuperacion a tu email",
			})
		}
	}
	return c.JSON(http.StatusBadRequest, map[string][]string{"email": {"No existe un usuario con este email."}})
}

func (b *Backend) refresh(c echo.Context) error {
	b.refreshCalls.Add(1)

	b.mu.Lock()
	delay, forced, release := b.refreshDelay, b.refreshStatus, b.refreshRelease
	b.mu.Unlock()
	if release != nil {
		<-release
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != 0 {
		return c.JSON(forced, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
	}

	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
	}
	claims, err := middleware.ParseToken(b.secret, req.Refresh, middleware.TokenTypeRefresh)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil || claims.Generation != b.refreshGen || b.blacklist[req.Refresh] {
		return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
	}

	resp := map[string]string{
		"access": b.signLocked(middleware.TokenTypeAccess, claims.UserID, b.accessGen, 5*time.Minute),
	}
	if b.rotateRefresh {
		b.blacklist[req.Refresh] = true
		resp["refresh"] = b.signLocked(middleware.TokenTypeRefresh, claims.UserID, b.refreshGen, 24*time.Hour)
	}
	return c.JSON(http.StatusOK, resp)
}

func (b *Backend) listPosts(c echo.Context) error {
	category := c.QueryParam("category")
	b.mu.Lock()
	defer b.mu.Unlock()
	posts := make([]models.Post, 0, len(b.posts))
	for _, p := range b.posts {
		if category == "" || p.Category == category {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return c.JSON(http.StatusOK, posts)
}

func (b *Backend) createPost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil || len([]rune(req.Content)) < 3 {
		return c.JSON(http.StatusBadRequest, map[string][]string{"content": {"Ensure this field has at least 3 characters."}})
	}
	claims := middleware.GetClaimsFromContext(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	user := b.userByIDLocked(claims.UserID)
	category := Categories[len(b.posts)%len(Categories)]
	post := models.Post{
		ID:                int64(len(b.posts) + 1),
		Content:           req.Content,
		Author:            &models.Author{ID: user.ID, Username: user.Username},
		Category:          category,
		Confidence:        0.9,
		PrimaryCategory:   category,
		PrimaryConfidence: 0.9,
		Categories:        []models.DetectedCategory{{Name: category, Confidence: 0.9}},
		CreatedAt:         time.Now().UTC().Truncate(time.Second),
	}
	b.posts = append(b.posts, post)
	return c.JSON(http.StatusCreated, post)
}

func (b *Backend) categories(c echo.Context) error {
	return c.JSON(http.StatusOK, models.CategoriesResponse{Categories: Categories})
}
