package middleware

import (
	"net/http"
	"strings"

	"imis/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// ScopeNotifyPublish lets a service token enqueue notification intents
const ScopeNotifyPublish = "notify:publish"

const (
	keyUserID = "userID"
	keyScopes = "scopes"
)

// AuthMiddleware validates the bearer token and records its subject and scopes.
// Inbox routes read the subject through CurrentUserID.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		switch {
		case scheme == "" && token == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		case !ok || !strings.EqualFold(scheme, "Bearer") || token == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(keyUserID, claims.UserID)
		c.Set(keyScopes, claims.Scopes)
		c.Next()
	}
}

// RequireNotifyPublisher guards the intent intake used by other services
func RequireNotifyPublisher() gin.HandlerFunc {
	return RequireScopes(ScopeNotifyPublish)
}

// RequireScopes rejects tokens missing any of required. "*" and "admin:*" grant
// everything, "notify:*" grants every notify scope.
func RequireScopes(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted := CurrentScopes(c)
		if !hasAllScopes(granted, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "insufficient scopes",
				"required": required,
			})
			return
		}
		c.Next()
	}
}

func hasAllScopes(granted, required []string) bool {
	if lo.Contains(granted, "*") || lo.Contains(granted, "admin:*") {
		return true
	}
	return lo.EveryBy(required, func(want string) bool {
		return lo.SomeBy(granted, func(have string) bool {
			if prefix, ok := strings.CutSuffix(have, "*"); ok {
				return strings.HasPrefix(want, prefix)
			}
			return have == want
		})
	})
}

// CurrentUserID returns the token subject set by AuthMiddleware
func CurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(keyUserID)
	return id, id != ""
}

func CurrentScopes(c *gin.Context) []string {
	return c.GetStringSlice(keyScopes)
}
