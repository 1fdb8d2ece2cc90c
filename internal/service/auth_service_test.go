package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken
	revoked      []string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[string]*models.User),
		tokens:       make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthRepo) addUser(user *models.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func newAuthFixture() (*AuthService, *mockAuthRepo) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "tutorhub-api",
	})
	return svc, repo
}

func TestAuthRegister(t *testing.T) {
	svc, repo := newAuthFixture()

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "Jane@Example.com", Password: "password123", FirstName: "Jane", LastName: "Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotNil(t, repo.usersByEmail["jane@example.com"])
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture()
	repo.addUser(&models.User{ID: "u1", Email: "jane@example.com"})

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "jane@example.com", Password: "password123", FirstName: "Jane", LastName: "Doe",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Email is already taken.", appErr.Message)
}

func TestAuthLoginAndValidate(t *testing.T) {
	svc, repo := newAuthFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo.addUser(&models.User{ID: "u1", Email: "jane@example.com", PasswordHash: string(hash), Role: models.RoleStudent})

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo.addUser(&models.User{ID: "u1", Email: "jane@example.com", PasswordHash: string(hash)})

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo.addUser(&models.User{ID: "u1", Email: "jane@example.com", PasswordHash: string(hash)})

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
}

func TestAuthRefreshRevokedToken(t *testing.T) {
	svc, repo := newAuthFixture()
	repo.addUser(&models.User{ID: "u1", Email: "jane@example.com"})
	repo.tokens["stale"] = &models.RefreshToken{
		ID: "rt1", UserID: "u1", Token: "stale", Revoked: true,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogout(t *testing.T) {
	svc, repo := newAuthFixture()
	repo.tokens["tok"] = &models.RefreshToken{ID: "rt1", UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	require.NoError(t, svc.Logout(context.Background(), "tok", "u1"))
	assert.True(t, repo.tokens["tok"].Revoked)

	err := svc.Logout(context.Background(), "tok2", "u1")
	require.Error(t, err)
}

func TestAuthLogoutForeignToken(t *testing.T) {
	svc, repo := newAuthFixture()
	repo.tokens["tok"] = &models.RefreshToken{ID: "rt1", UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	err := svc.Logout(context.Background(), "tok", "u2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
