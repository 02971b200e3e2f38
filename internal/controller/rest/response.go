package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Коды ошибок в теле ответа
const (
	codeValidation   = "VALIDATION_ERROR"
	codeInvalidSlot  = "INVALID_SLOT"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeNotFound     = "NOT_FOUND"
	codeInvalidState = "INVALID_STATE"
	codeInternal     = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Status    string    `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func newErrorResponse(code, message string, details any) *ErrorResponse {
	return &ErrorResponse{
		Status:    "error",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// errorStatus сопоставляет категорию ошибки сервиса со статусом HTTP
func errorStatus(err error) (int, string) {
	switch service.Kind(err) {
	case service.ErrValidation:
		return http.StatusBadRequest, codeValidation
	case service.ErrInvalidSlot:
		return http.StatusBadRequest, codeInvalidSlot
	case service.ErrUnauthorized:
		return http.StatusForbidden, codeForbidden
	case service.ErrNotFound:
		return http.StatusNotFound, codeNotFound
	case service.ErrInvalidState:
		return http.StatusConflict, codeInvalidState
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// fail пишет ответ с ошибкой. Детали системных ошибок остаются только в логе.
func (s *Server) fail(c echo.Context, err error) error {
	status, code := errorStatus(err)

	message := err.Error()
	var details any
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		message = "validation failed"
		details = verr
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		message = "internal server error"
	}

	return c.JSON(status, newErrorResponse(code, message, details))
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, newErrorResponse(codeUnauthorized, message, nil))
}
