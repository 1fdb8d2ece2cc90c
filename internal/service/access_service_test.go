package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

func TestAccessRequireUser(t *testing.T) {
	access := NewAccessService()

	require.NoError(t, access.RequireUser(studentUser("s1")))

	err := access.RequireUser(nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "User does not exist.", appErr.Message)
}

func TestAccessRequireRole(t *testing.T) {
	access := NewAccessService()

	require.NoError(t, access.RequireRole(teacherUser("t1"), models.RoleTeacher))

	err := access.RequireRole(studentUser("s1"), models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = access.RequireRole(nil, models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAccessRequireSelf(t *testing.T) {
	access := NewAccessService()

	require.NoError(t, access.RequireSelf(studentUser("s1"), "s1"))

	err := access.RequireSelf(studentUser("s1"), "s2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessRequireSelfByEmail(t *testing.T) {
	access := NewAccessService()

	require.NoError(t, access.RequireSelfByEmail(studentUser("s1"), "S1@Example.com"))

	err := access.RequireSelfByEmail(studentUser("s1"), "s2@example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
