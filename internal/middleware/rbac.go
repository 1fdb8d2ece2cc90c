package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/avramart/tutorhub-api/internal/models"
	"github.com/avramart/tutorhub-api/internal/service"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
	"github.com/avramart/tutorhub-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. The caller
// passes when it holds any of the given roles. Expects LoadUser to have run.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	access := service.NewAccessService()
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		var err error
		for _, role := range roles {
			if err = access.RequireRole(user, role); err == nil {
				c.Next()
				return
			}
		}
		response.Error(c, err)
		c.Abort()
	}
}
