package respond

import (
	"github.com/gin-gonic/gin"

	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

// Context keys shared with the middleware package.
const (
	RequestIDKey = "requestId"
	UserIDKey    = "userId"
)

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Error logs the failure with request context and aborts with a standardized body.
// Callers pass a generic message for 5xx; internal error text stays in the log.
func Error(c *gin.Context, log *logger.Logger, status int, code, message string, details interface{}) {
	if log != nil {
		fields := map[string]interface{}{
			"status":     status,
			"code":       code,
			"message":    message,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString(RequestIDKey),
		}
		if uid, ok := c.Get(UserIDKey); ok {
			fields["user_id"] = uid
		}
		if status >= 500 {
			log.ErrorFields("http.error", fields)
		} else {
			log.Fields("http.error", fields)
		}
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code, Details: details})
}
