package handlers

import (
	"net/http"
	"strings"

	"github.com/examshield/exam-service/internal/models"
	"github.com/gin-gonic/gin"
)

// IdentityMiddleware reads the identity asserted by the API gateway. The
// gateway terminates authentication; this service only trusts its headers.
// Requests arriving without an identity are rejected before any handler runs.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}

		role := strings.TrimSpace(c.GetHeader("X-User-Role"))
		if role == "" {
			role = string(models.RoleStudent)
		}

		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Admin always passes.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles)+1)
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
	}
	allowed[string(models.RoleAdmin)] = struct{}{}

	return func(c *gin.Context) {
		role := c.GetString("user_role")
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Details: "insufficient role",
			})
			return
		}
		c.Next()
	}
}
