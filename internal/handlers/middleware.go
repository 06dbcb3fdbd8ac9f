package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/services"
)

const (
	HeaderRequestID     = "X-Request-ID"
	ContextKeyRequestID = "requestId"
	ContextKeyUser      = "user"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// RequestLogger logs every request except the metrics and health endpoints.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/metrics" || path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		logger.HTTPRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// Route pattern, not the raw path, to keep label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Recovery turns a panic into a 500 with the standard error body.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Get(ContextKeyRequestID)
				logger.Error("Panic recovered",
					"error", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"requestId", requestID,
				)
				abortWithError(c, apperrors.New(apperrors.CodeInternalError, "an unexpected error occurred", http.StatusInternalServerError))
			}
		}()
		c.Next()
	}
}

// AdminAuth guards admin routes with HTTP basic auth against staff accounts
// that can administer.
func AdminAuth(users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="pickpoint"`)
			abortWithError(c, apperrors.Unauthorized(""))
			return
		}

		user, err := users.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			c.Header("WWW-Authenticate", `Basic realm="pickpoint"`)
			abortWithError(c, err)
			return
		}
		if !user.Role.CanAdminister() {
			abortWithError(c, apperrors.New(apperrors.CodeUnauthorized, "insufficient permissions", http.StatusForbidden))
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}
