package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tkodaira/melodeon/internal/domain/user"
)

// identityKey is the gin context key carrying the resolved caller identity.
const identityKey = "melodeon.identity"

// AuthConfig configures bearer-token verification. Token issuance belongs to
// the external identity provider; this server only verifies.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RequireAuth verifies the Authorization bearer token and stores the
// resolved identity in the request context. Missing or invalid credentials
// abort with 401.
func RequireAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			abortAuth(c, "missing bearer token")
			return
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
		if cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(cfg.Issuer))
		}
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			return []byte(cfg.JWTSecret), nil
		}, opts...)
		if err != nil || !token.Valid {
			abortAuth(c, "invalid token")
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			abortAuth(c, "token has no subject")
			return
		}
		verified, _ := claims["email_verified"].(bool)

		c.Set(identityKey, user.Identity{ID: sub, EmailVerified: verified})
		c.Next()
	}
}

func abortAuth(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// identityFrom returns the identity stored by RequireAuth. The zero value
// means the middleware did not run.
func identityFrom(c *gin.Context) user.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return user.Identity{}
	}
	ident, _ := v.(user.Identity)
	return ident
}
