package service

import (
	"strings"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

// AccessService holds the pure access predicates shared by the managers and
// the route guards. No side effects, no persistence.
type AccessService struct{}

// NewAccessService constructs an AccessService.
func NewAccessService() *AccessService {
	return &AccessService{}
}

// RequireUser fails when the caller could not be resolved to an account.
func (s *AccessService) RequireUser(user *models.User) error {
	if user == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	return nil
}

// RequireRole fails Forbidden unless the caller holds the given role.
func (s *AccessService) RequireRole(user *models.User, role models.Role) error {
	if err := s.RequireUser(user); err != nil {
		return err
	}
	if user.Role != role {
		return appErrors.CloneWithLog(appErrors.ErrForbidden,
			"Operation requires the "+strings.ToLower(string(role))+" role.",
			"require role: user "+user.ID+" has role "+string(user.Role)+", needs "+string(role))
	}
	return nil
}

// RequireSelf fails Forbidden unless the caller is the identified user.
func (s *AccessService) RequireSelf(user *models.User, id string) error {
	if err := s.RequireUser(user); err != nil {
		return err
	}
	if user.ID != id {
		return appErrors.CloneWithLog(appErrors.ErrForbidden,
			"You may only access your own resources.",
			"require self: user "+user.ID+" attempted to act as "+id)
	}
	return nil
}

// RequireSelfByEmail fails Forbidden unless the caller owns the email.
func (s *AccessService) RequireSelfByEmail(user *models.User, email string) error {
	if err := s.RequireUser(user); err != nil {
		return err
	}
	if !strings.EqualFold(user.Email, email) {
		return appErrors.CloneWithLog(appErrors.ErrForbidden,
			"You may only access your own resources.",
			"require self: user "+user.Email+" attempted to act as "+email)
	}
	return nil
}
