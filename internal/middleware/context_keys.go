package middleware

import "github.com/gin-gonic/gin"

// callerIDKey is the key used to store the authenticated caller's ID.
// Using a custom type prevents collisions.
const callerIDKey = contextKey("callerID")

// GetCallerIDFromContext retrieves the authenticated caller ID from the Gin context.
// It returns the caller ID and a boolean indicating if it was found.
func GetCallerIDFromContext(c *gin.Context) (string, bool) {
	callerIDVal, exists := c.Get(string(callerIDKey))
	if !exists {
		// check in the request context as well
		if v, ok := c.Request.Context().Value(callerIDKey).(string); ok {
			return v, true
		}
		return "", false
	}

	callerID, ok := callerIDVal.(string)
	return callerID, ok
}
