package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mabletask/admin/apperrors"
	"mabletask/admin/utils"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserName  = "user_name"

	TokenCookie  = "jwt_token"
	APIKeyHeader = "X-API-KEY"
)

// AuthRequired accepts a JWT from the jwt_token cookie or an
// "Authorization: Bearer" header. When apiKey is non-empty, a matching
// X-API-KEY header is accepted as well (service-to-service ingestion).
func AuthRequired(issuer *utils.TokenIssuer, apiKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey != "" {
			if key := c.GetHeader(APIKeyHeader); key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				c.Next()
				return
			}
		}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie(TokenCookie); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			logger.Debug("AuthRequired: no token in header or cookie", zap.String("path", c.Request.URL.Path))
			apperrors.Respond(c, apperrors.Unauthorized("Unauthorized: No token provided"))
			return
		}

		claims, err := issuer.Validate(tokenString)
		if err != nil {
			logger.Info("AuthRequired: invalid token", zap.Error(err))
			apperrors.Respond(c, apperrors.Unauthorized("Unauthorized: Invalid or expired token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserName, claims.Name)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
