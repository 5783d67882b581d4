package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const authMethodKey = "authMethod"

// AuthMiddleware creates a Gin middleware handler that validates JWT tokens.
// Requests already authenticated by ServiceTokenAuth pass through.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := loggerOrDefault(c.Request.Context())
		// if auth is already done, skip this middleware
		if authMethod, exists := c.Get(authMethodKey); exists {
			logger.Debug("Auth already done", slog.Any("authMethod", authMethod))
			c.Next()
			return
		}
		if isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			// Check the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			logger.Warn("Invalid token", slog.String("error", err.Error()))
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || !token.Valid || claims.Subject == "" {
			logger.Warn("Invalid token claims or token is not valid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		c.Set(authMethodKey, "jwt")
		setCaller(c, claims.Subject, logger)
		c.Next()
	}
}

// setCaller records the authenticated caller in both contexts and enriches the request logger.
func setCaller(c *gin.Context, callerID string, logger *slog.Logger) {
	c.Set(string(callerIDKey), callerID)
	enriched := logger.With(slog.String("caller_id", callerID))
	c.Set(string(loggerKey), enriched)
	ctx := context.WithValue(c.Request.Context(), callerIDKey, callerID)
	c.Request = c.Request.WithContext(WithLogger(ctx, enriched))
}

func loggerOrDefault(ctx context.Context) *slog.Logger {
	if logger := GetLoggerFromCtx(ctx); logger != nil {
		return logger
	}
	return slog.Default()
}
