package middleware

import (
	"net/http"

	"panchayat-connect/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only for the given roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "UNAUTHORIZED"})
			return
		}
		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "code": "FORBIDDEN"})
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// TeamOnly also requires the session to carry a team.
func TeamOnly() gin.HandlerFunc {
	check := RequireRole(models.RoleTeam)
	return func(c *gin.Context) {
		if session := SessionFrom(c); session != nil && session.Role == models.RoleTeam && session.TeamID == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is not linked to a team", "code": "FORBIDDEN"})
			return
		}
		check(c)
	}
}
