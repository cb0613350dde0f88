package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"listing-generator/internal/config"
	"listing-generator/internal/models"
	"listing-generator/internal/session"
)

const (
	UserIDKey = "user_id"
	ClaimsKey = "session_claims"
)

// AuthMiddleware verifies Supabase access tokens signed with the project JWT secret.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	validator := session.NewValidator(session.Expectation{
		Issuer:     session.IssuerFor(cfg.SupabaseURL),
		ProjectRef: cfg.SupabaseProjectRef,
	})
	return NewAuthMiddleware(validator, []byte(cfg.SupabaseJWTSecret))
}

func NewAuthMiddleware(validator *session.Validator, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortUnauthorized(c, "empty token")
			return
		}

		// Some clients URL-encode the token
		if decoded, err := url.QueryUnescape(tokenString); err == nil {
			tokenString = decoded
		}

		claims, err := validator.Verify(tokenString, secret)
		if err != nil {
			reason, _ := session.ReasonOf(err)
			log.Warn().
				Str("reason", string(reason)).
				Str("path", c.FullPath()).
				Msg("rejected session credential")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: session.ErrSessionInvalidated.Error(),
			})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   session.ErrSessionInvalidated.Error(),
		Message: message,
	})
}
