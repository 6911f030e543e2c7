package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/helpers"
)

// Gin context keys shared with the middleware package.
const (
	RequestIDKey = "request_id"
	LoggerKey    = "logger"
)

type ErrorBody struct {
	Message   string            `json:"message"`
	Status    int               `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// ErrorResponse is the single error shape returned by every endpoint.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Success writes data as the JSON body. Payloads are not wrapped in an envelope.
func Success[T any](c *gin.Context, status int, data T) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, data)
}

// Error aborts the request with an error body.
func Error(c *gin.Context, status int, message string, details map[string]string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Message:   message,
		Status:    status,
		Details:   details,
		RequestID: c.GetString(RequestIDKey),
	}})
}

// FromError maps err onto its HTTP status and aborts. Errors that are not
// *apperror.Error become a generic 500; their text is logged, never sent.
func FromError(c *gin.Context, err error) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		ae = apperror.ErrInternal.Wrap(err)
	}
	_ = c.Error(err)

	status := ae.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		helpers.LogError(loggerFrom(c), "request failed", err, logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"path":       c.FullPath(),
			"status":     status,
		})
	}
	Error(c, status, ae.Message, ae.Details)
}

func loggerFrom(c *gin.Context) *logrus.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*logrus.Logger); ok && l != nil {
			return l
		}
	}
	return logrus.StandardLogger()
}
