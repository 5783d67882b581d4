package middleware

import (
	"github.com/SscSPs/fund_ledger/internal/utils"
	"github.com/gin-gonic/gin"
)

// ServiceCallerID identifies requests authenticated with the shared service token.
const ServiceCallerID = "service"

// ServiceTokenAuth authenticates machine callers (donation intake, spending workflow) by
// comparing the x-api-key header against a bcrypt hash. Requests without a valid key fall
// through to AuthMiddleware.
func ServiceTokenAuth(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("x-api-key")
		if tokenHash == "" || apiKey == "" || isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		if !utils.CheckServiceToken(apiKey, tokenHash) {
			loggerOrDefault(c.Request.Context()).Warn("Service token rejected")
			c.Next() // Token validation failed, let JWT auth decide
			return
		}

		c.Set(authMethodKey, "service_token")
		setCaller(c, ServiceCallerID, loggerOrDefault(c.Request.Context()))
		c.Next()
	}
}

// isPublicRoute checks if the given path is a public route that doesn't require authentication
func isPublicRoute(path string) bool {
	publicRoutes := []string{
		"/health",
		"/api/v1/health",
	}

	for _, route := range publicRoutes {
		if path == route {
			return true
		}
	}

	return false
}
