package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/logging"
)

type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func errorBody(c *gin.Context, appErr *apperrors.AppError) ErrorResponse {
	requestID, _ := c.Get(ContextKeyRequestID)
	reqID, _ := requestID.(string)
	return ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: reqID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

// respondError renders err as the standard error body. Server errors are
// logged with their cause; the cause never reaches the client.
func respondError(c *gin.Context, logger *logging.Logger, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).Error("Request failed",
			"code", appErr.Code,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
	}
	c.JSON(appErr.HTTPStatus, errorBody(c, appErr))
}

func abortWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, errorBody(c, appErr))
}

func bindError(err error) error {
	return apperrors.Validation("invalid request body").WithDetail("reason", err.Error())
}

// bindOptionalJSON binds a body that may be absent. Chunked requests carry
// ContentLength -1, so an empty body is detected by the decoder hitting EOF.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return bindError(err)
	}
	return nil
}
