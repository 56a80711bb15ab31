package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront-api/internal/apperr"
	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/token"
)

const principalKey = "principal"

var (
	errMissingToken = apperr.Auth("missing bearer token")
	errInvalidToken = apperr.Forbidden("invalid or expired token")
	errAdminOnly    = apperr.Forbidden("admin privileges required")
)

// Auth requires a bearer token. A missing token is 401; a token that fails
// verification is 403.
func Auth(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abort(c, errMissingToken)
			return
		}

		principal, err := tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			abort(c, errInvalidToken)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil || !p.IsAdmin() {
			abort(c, errAdminOnly)
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) *token.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(*token.Principal)
	return p
}

func GetUserID(c *gin.Context) int64 {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return 0
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus(), dto.Envelope{
		Success: false,
		Message: err.Message,
		Code:    err.Kind.Code(),
	})
}
