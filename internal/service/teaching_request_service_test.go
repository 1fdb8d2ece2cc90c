package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[string]models.TeachingRequest
	created  *models.TeachingRequest
	updateOK bool
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[string]models.TeachingRequest), updateOK: true}
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.TeachingRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) FindAll(ctx context.Context) ([]models.TeachingRequestDetail, error) {
	var out []models.TeachingRequestDetail
	for _, r := range m.requests {
		out = append(out, models.TeachingRequestDetail{TeachingRequest: r})
	}
	return out, nil
}

func (m *mockRequestRepo) ExistsForUser(ctx context.Context, userID string, statuses ...models.TeachingRequestStatus) (bool, error) {
	for _, r := range m.requests {
		if r.UserID != userID {
			continue
		}
		if len(statuses) == 0 {
			return true, nil
		}
		for _, st := range statuses {
			if r.Status == st {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.TeachingRequest) error {
	if request.ID == "" {
		request.ID = "new-request"
	}
	m.requests[request.ID] = *request
	m.created = request
	return nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id string, status models.TeachingRequestStatus, decidedAt time.Time) (bool, error) {
	if !m.updateOK {
		return false, nil
	}
	r, ok := m.requests[id]
	if !ok || r.Status != models.TeachingRequestPending {
		return false, nil
	}
	r.Status = status
	r.DecidedAt = &decidedAt
	m.requests[id] = r
	return true, nil
}

type mockUserReader struct {
	users map[string]*models.User
	roles map[string]models.Role
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserReader) UpdateRoleByEmail(ctx context.Context, email string, role models.Role) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			if m.roles == nil {
				m.roles = make(map[string]models.Role)
			}
			m.roles[email] = role
			u.Role = role
			return true, nil
		}
	}
	return false, nil
}

func adminUser(id string) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", Role: models.RoleAdmin}
}

type requestFixture struct {
	svc     *TeachingRequestService
	repo    *mockRequestRepo
	users   *mockUserReader
	courses *mockCourseRepo
}

func newRequestFixture(cfg TeachingRequestConfig) *requestFixture {
	repo := newMockRequestRepo()
	users := &mockUserReader{users: map[string]*models.User{
		"s1": studentUser("s1"),
		"t1": teacherUser("t1"),
	}}
	courses := newMockCourseRepo()
	svc := NewTeachingRequestService(repo, users, courses, users, nil, cfg, zap.NewNop())
	return &requestFixture{svc: svc, repo: repo, users: users, courses: courses}
}

func TestTeachingRequestApply(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})

	request, err := f.svc.Apply(context.Background(), f.users.users["s1"])
	require.NoError(t, err)
	assert.Equal(t, models.TeachingRequestPending, request.Status)
	assert.Equal(t, "s1", request.UserID)
}

func TestTeachingRequestApplyTwice(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})

	_, err := f.svc.Apply(context.Background(), f.users.users["s1"])
	require.NoError(t, err)

	_, err = f.svc.Apply(context.Background(), f.users.users["s1"])
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Teaching request already exists.", appErr.Message)
}

func TestTeachingRequestApplyAfterRejectionBlockedByDefault(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	decided := time.Now().UTC()
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestRejected, DecidedAt: &decided}

	_, err := f.svc.Apply(context.Background(), f.users.users["s1"])
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeachingRequestApplyAfterRejectionAllowedWhenConfigured(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{ReapplyAfterRejection: true})
	decided := time.Now().UTC()
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestRejected, DecidedAt: &decided}

	request, err := f.svc.Apply(context.Background(), f.users.users["s1"])
	require.NoError(t, err)
	assert.Equal(t, models.TeachingRequestPending, request.Status)
}

func TestTeachingRequestApplyRequiresStudent(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})

	_, err := f.svc.Apply(context.Background(), f.users.users["t1"])
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)
}

func TestTeachingRequestListRequiresAdmin(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})

	_, err := f.svc.List(context.Background(), f.users.users["s1"])
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)

	_, err = f.svc.List(context.Background(), adminUser("a1"))
	require.NoError(t, err)
}

func TestTeachingRequestApprovePromotes(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	teacherID := "t9"
	f.courses.courses["c1"] = models.Course{ID: "c1", Name: "Algebra", TeacherID: &teacherID}
	f.courses.members["c1"] = map[string]bool{"s1": true}
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestPending}

	request, err := f.svc.Decide(context.Background(), "r1", adminUser("a1"), models.TeachingRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.TeachingRequestApproved, request.Status)
	assert.NotNil(t, request.DecidedAt)
	assert.Contains(t, f.courses.removed, "c1/s1")
	assert.Equal(t, models.RoleTeacher, f.users.roles["s1@example.com"])
}

func TestTeachingRequestRejectDemotes(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	f.courses.courses["c1"] = models.Course{ID: "c1", Name: "Algebra", TeacherID: &f.users.users["t1"].ID}
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "t1", Status: models.TeachingRequestPending}

	request, err := f.svc.Decide(context.Background(), "r1", adminUser("a1"), models.TeachingRequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.TeachingRequestRejected, request.Status)
	assert.Contains(t, f.courses.deleted, "c1")
	assert.Equal(t, models.RoleStudent, f.users.roles["t1@example.com"])
}

func TestTeachingRequestDecideTwice(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestPending}

	_, err := f.svc.Decide(context.Background(), "r1", adminUser("a1"), models.TeachingRequestApproved)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), "r1", adminUser("a1"), models.TeachingRequestRejected)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Teaching request already approved.", appErr.Message)
}

func TestTeachingRequestDecideLosesRace(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestPending}
	f.repo.updateOK = false

	_, err := f.svc.Decide(context.Background(), "r1", adminUser("a1"), models.TeachingRequestApproved)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeachingRequestDecideInvalidDecision(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestPending}

	_, err := f.svc.Decide(context.Background(), "r1", adminUser("a1"), models.TeachingRequestPending)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestTeachingRequestDecideRequiresAdmin(t *testing.T) {
	f := newRequestFixture(TeachingRequestConfig{})
	f.repo.requests["r1"] = models.TeachingRequest{ID: "r1", UserID: "s1", Status: models.TeachingRequestPending}

	_, err := f.svc.Decide(context.Background(), "r1", f.users.users["t1"], models.TeachingRequestApproved)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)
}
