package middleware

import (
	"context"
	"strings"

	"codejudge/internal/common/auth"
	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const userInfoKey = "auth_user"

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(raw string) (auth.UserInfo, error)
}

// AuthPolicy restricts a route group. Mode "public" skips verification.
type AuthPolicy struct {
	Mode  string
	Roles []string
}

// AuthMiddleware enforces JWT validation and role checks for protected routes.
func AuthMiddleware(authenticator Authenticator, policy AuthPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(policy.Mode, "public") {
			c.Next()
			return
		}
		if authenticator == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth service unavailable")
			return
		}

		info, err := authenticator.Authenticate(extractBearerToken(c.GetHeader("Authorization")))
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if len(policy.Roles) > 0 && !hasRole(info.Role, policy.Roles) {
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
			return
		}

		c.Set(userInfoKey, info)
		c.Set(string(contextkey.UserID), info.ID)
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, info.ID)
		ctx = context.WithValue(ctx, contextkey.Role, info.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CurrentUser returns the identity set by AuthMiddleware.
func CurrentUser(c *gin.Context) (auth.UserInfo, bool) {
	v, ok := c.Get(userInfoKey)
	if !ok {
		return auth.UserInfo{}, false
	}
	info, ok := v.(auth.UserInfo)
	return info, ok
}

func extractBearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hasRole(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
