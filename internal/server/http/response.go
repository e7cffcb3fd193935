package httpserver

import (
	"errors"
	"net/http"

	"github.com/and161185/filevault/internal/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgInternal = "internal server error"

type envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

type errorEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, StatusCode: status, Data: data, Message: message})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{StatusCode: status, Message: message})
}

// statusOf maps an error kind to an HTTP status.
func statusOf(kind error) int {
	switch {
	case errors.Is(kind, errs.ErrValidation), errors.Is(kind, errs.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(kind, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, errs.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// classify returns the status and client message for err. Only classified
// errors carry their message out; anything else becomes a generic 500.
func classify(err error) (int, string) {
	var e *errs.Error
	if errors.As(err, &e) {
		return statusOf(e.Kind), e.Msg
	}
	return http.StatusInternalServerError, msgInternal
}

// writeError is the only place where service errors become responses.
func (s *Server) writeError(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	fail(c, status, msg)
}
