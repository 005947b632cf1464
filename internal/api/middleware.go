package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/lease-contract-server/internal/models"
)

// IssueToken signs an HS256 bearer token for a user id
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
	c.Abort()
}

// AuthMiddleware returns a Gin middleware for authentication. The acting
// user id is stored under "userId"; the secret is read from "jwtSecret".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authentication required")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || tokenString == "" {
			unauthorized(c, "Invalid token format")
			return
		}

		jwtSecret := c.MustGet("jwtSecret").([]byte)

		var claims jwt.RegisteredClaims
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
			return jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.ExpiresAt == nil {
			unauthorized(c, "Invalid token")
			return
		}

		if claims.Subject == "" {
			unauthorized(c, "Invalid user ID in token")
			return
		}

		c.Set("userId", claims.Subject)
		c.Next()
	}
}
