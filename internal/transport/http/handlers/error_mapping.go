package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes carried in the response envelope.
const (
	ErrCodeNotFound   = "not_found"
	ErrCodeValidation = "validation_error"
	ErrCodeConflict   = "concurrency_conflict"
	ErrCodeInternal   = "internal_error"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message, cs.Code))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage, ErrCodeInternal))
}
