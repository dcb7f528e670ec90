package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// OptionalAuth resolves the bearer token when present and never rejects the
// request: a missing or invalid token leaves the caller Anonymous.
func OptionalAuth(provider Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Anonymous()
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token != "" {
				if resolved, err := provider.Resolve(c.Request.Context(), token); err == nil {
					identity = resolved
				}
			}
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by OptionalAuth, or Anonymous.
func IdentityFrom(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Anonymous()
}
