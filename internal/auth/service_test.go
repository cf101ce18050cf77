package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/bucketlist/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         4,
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "User@Example.com ",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if result.User.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from response")
	}
	if result.User.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", result.User.Email)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued")
	}
	if result.Tokens.SessionID == uuid.Nil {
		t.Fatalf("expected a session id")
	}
	if len(store.users) != 1 {
		t.Fatalf("expected user stored; got %d", len(store.users))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("initial registration returned error: %v", err)
	}

	_, err = service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "AnotherPass2!",
	})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	registered, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	result, err := service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	if result.Tokens.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if result.Tokens.SessionID == registered.Tokens.SessionID {
		t.Fatalf("expected login to open a new session")
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	_, err = service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "WrongPass",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	_, err := service.Login(context.Background(), LoginInput{
		Email:    "ghost@example.com",
		Password: "StrongPass1!",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccessTokenCarriesSession(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	claims, err := service.Authenticate(context.Background(), result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate returned error: %v", err)
	}
	if claims.UserID != result.User.ID {
		t.Fatalf("expected user %s, got %s", result.User.ID, claims.UserID)
	}
	if claims.SessionID != result.Tokens.SessionID {
		t.Fatalf("expected session %s, got %s", result.Tokens.SessionID, claims.SessionID)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("unexpected email claim %q", claims.Email)
	}
}

func TestValidateAccessTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewService(newMemoryStore(), testAuthConfig())
	result, err := issuer.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	cfg := testAuthConfig()
	cfg.AccessTokenSecret = "another-secret"
	verifier := NewService(newMemoryStore(), cfg)
	if _, err := verifier.ValidateAccessToken(result.Tokens.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	issuedAt := time.Now().Add(-time.Hour)
	service.nowFunc = func() time.Time { return issuedAt }

	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	service.nowFunc = time.Now
	if _, err := service.ValidateAccessToken(result.Tokens.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestSignOutRevokesOnlyThatSession(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	first, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	second, err := service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	claims, err := service.Authenticate(context.Background(), first.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate returned error: %v", err)
	}
	if err := service.SignOut(context.Background(), claims); err != nil {
		t.Fatalf("sign out returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), first.Tokens.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected signed out session to be rejected, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), second.Tokens.AccessToken); err != nil {
		t.Fatalf("expected other session to stay active, got %v", err)
	}
}

func TestSignOutRequiresSession(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	err := service.SignOut(context.Background(), UserClaims{UserID: uuid.New()})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := NewService(newMemoryStore(), testAuthConfig())
	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	router := gin.New()
	router.GET("/whoami", AuthMiddleware(service), func(c *gin.Context) {
		id, user, ok := RequireUser(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "session": user.SessionID})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: result.Tokens.AccessToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"":              "",
		"Bearerabc":     "",
	}
	for header, want := range cases {
		if got := extractBearerToken(header); got != want {
			t.Fatalf("extractBearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

// memoryStore implements userStore for tests.
type memoryStore struct {
	users    map[string]User
	sessions map[uuid.UUID]memorySession
}

type memorySession struct {
	userID    uuid.UUID
	tokenHash string
	expiresAt time.Time
	revoked   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[string]User),
		sessions: make(map[uuid.UUID]memorySession),
	}
}

func (m *memoryStore) CreateUser(ctx context.Context, email, passwordHash string, displayName *string) (User, error) {
	if _, ok := m.users[email]; ok {
		return User{}, ErrEmailAlreadyExists
	}
	user := User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[email] = user
	return user, nil
}

func (m *memoryStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	user, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *memoryStore) StoreRefreshToken(ctx context.Context, userID, sessionID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.sessions[sessionID] = memorySession{userID: userID, tokenHash: tokenHash, expiresAt: expiresAt}
	return nil
}

func (m *memoryStore) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, ok := m.sessions[sessionID]
	if !ok || session.userID != userID {
		return nil
	}
	session.revoked = true
	m.sessions[sessionID] = session
	return nil
}

func (m *memoryStore) SessionActive(ctx context.Context, userID, sessionID uuid.UUID) (bool, error) {
	session, ok := m.sessions[sessionID]
	if !ok || session.userID != userID {
		return false, nil
	}
	return !session.revoked && session.expiresAt.After(time.Now()), nil
}
