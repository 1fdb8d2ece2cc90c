package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

type mockUserRepo struct {
	usersByID    map[string]*models.User
	usersByEmail map[string]*models.User
	emails       map[string]string
	passwords    map[string]string
	revoked      []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]*models.User),
		usersByEmail: make(map[string]*models.User),
		emails:       make(map[string]string),
		passwords:    make(map[string]string),
	}
}

func (m *mockUserRepo) addUser(user *models.User) {
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateEmail(ctx context.Context, id, email string) error {
	m.emails[id] = email
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func newUserFixture(t *testing.T) (*UserService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo.addUser(&models.User{ID: "u1", Email: "jane@example.com", PasswordHash: string(hash), FirstName: "Jane", LastName: "Doe", Role: models.RoleStudent})
	return NewUserService(repo, validator.New(), zap.NewNop()), repo
}

func TestUserGetMissing(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "User does not exist.", appErr.Message)
}

func TestUserUpdateProfile(t *testing.T) {
	svc, _ := newUserFixture(t)

	degree := "MSc"
	user, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		FirstName: "Janet", LastName: "Doe", Degree: &degree,
	})
	require.NoError(t, err)
	assert.Equal(t, "Janet", user.FirstName)
	require.NotNil(t, user.Degree)
	assert.Equal(t, "MSc", *user.Degree)
}

func TestUserChangeEmail(t *testing.T) {
	svc, repo := newUserFixture(t)

	err := svc.ChangeEmail(context.Background(), "u1", ChangeEmailRequest{
		NewEmail: "janet@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "janet@example.com", repo.emails["u1"])
}

func TestUserChangeEmailSameEmail(t *testing.T) {
	svc, _ := newUserFixture(t)

	err := svc.ChangeEmail(context.Background(), "u1", ChangeEmailRequest{
		NewEmail: "Jane@Example.com", Password: "password123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Equal(t, "New email is equal to actual email.", appErr.Message)
}

func TestUserChangeEmailWrongPassword(t *testing.T) {
	svc, _ := newUserFixture(t)

	err := svc.ChangeEmail(context.Background(), "u1", ChangeEmailRequest{
		NewEmail: "janet@example.com", Password: "nope",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "Password is incorrect.", appErr.Message)
}

func TestUserChangeEmailTaken(t *testing.T) {
	svc, repo := newUserFixture(t)
	repo.addUser(&models.User{ID: "u2", Email: "taken@example.com"})

	err := svc.ChangeEmail(context.Background(), "u1", ChangeEmailRequest{
		NewEmail: "taken@example.com", Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserChangePassword(t *testing.T) {
	svc, repo := newUserFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		OldPassword: "password123", NewPassword: "newpassword1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwords["u1"])
	assert.Contains(t, repo.revoked, "u1")
}

func TestUserChangePasswordWrongOld(t *testing.T) {
	svc, _ := newUserFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		OldPassword: "nope", NewPassword: "newpassword1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
