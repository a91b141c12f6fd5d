package middleware

import (
	"context"
	"strings"

	"feasto-api/auth"
	"feasto-api/policy"

	"github.com/gin-gonic/gin"
)

const (
	callerKey = "caller"
	claimsKey = "claims"
)

// CallerResolver maps a bearer token to the identity behind it.
type CallerResolver interface {
	Resolve(ctx context.Context, token string) (policy.Caller, *auth.Claims)
}

// Authenticate resolves the bearer token into a caller. It never rejects a
// request: a missing or bad token simply leaves the caller anonymous and
// the service layer decides what that caller may do.
func Authenticate(resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := policy.Anonymous
		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			var claims *auth.Claims
			caller, claims = resolver.Resolve(c.Request.Context(), token)
			if claims != nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// CurrentCaller extracts the caller set by Authenticate.
func CurrentCaller(c *gin.Context) policy.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(policy.Caller); ok {
			return caller
		}
	}
	return policy.Anonymous
}

// CurrentClaims returns the verified token claims, or nil for anonymous requests.
func CurrentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
