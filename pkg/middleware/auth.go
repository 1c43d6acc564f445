package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"shop-api/pkg/errors"
)

const (
	// UserIDKey is the context key for the authenticated user id
	UserIDKey = "user_id"
	// IsAdminKey is the context key for the admin claim
	IsAdminKey = "is_admin"
)

// RequireAuth validates the Bearer token and extracts identity claims.
// Token issuance belongs to the external identity provider; this only
// verifies the HMAC signature and expiry.
func RequireAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Error(errors.NewUnauthorized("missing bearer token"))
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.Error(errors.NewUnauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.Error(errors.NewUnauthorized("malformed token claims"))
			c.Abort()
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			c.Error(errors.NewUnauthorized("token missing user_id claim"))
			c.Abort()
			return
		}
		isAdmin, _ := claims["is_admin"].(bool)

		c.Set(UserIDKey, userID)
		c.Set(IsAdminKey, isAdmin)

		c.Next()
	}
}

// RequireAdmin rejects callers without the admin claim. Must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(IsAdminKey) {
			c.Error(errors.NewForbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireAuth
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
