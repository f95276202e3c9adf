package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"live-session-service/dto"
)

const identityKey = "identity"

type claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// AuthMiddleware resolves the caller from the bearer token; every
// orchestrator and capture operation requires one.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		parsed := &claims{}
		_, err := jwt.ParseWithClaims(parts[1], parsed, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		userId, err := uuid.Parse(parsed.Subject)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid subject claim"})
			c.Abort()
			return
		}

		c.Set(identityKey, dto.Identity{
			UserId:      userId,
			DisplayName: parsed.Name,
			Roles:       parsed.Roles,
		})
		c.Next()
	}
}

func identityFrom(c *gin.Context) dto.Identity {
	identity, _ := c.MustGet(identityKey).(dto.Identity)
	return identity
}
