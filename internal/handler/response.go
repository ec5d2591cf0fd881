package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError writes err as an error response. Application errors keep
// their status, message and details; other errors become an opaque 500. The
// error is also attached to the context for the error logging middleware.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status, message := http.StatusInternalServerError, "internal server error"
	var details interface{}
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.StatusCode()
		details = appErr.Details
		if status != http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	c.AbortWithStatusJSON(status, &Response{
		Status:  "error",
		Message: message,
		Data:    details,
	})
}

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid "+name, err)
	}
	return id, nil
}

// ParseIntParam reads a path or query value as a non-negative integer.
func ParseIntParam(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, apperrors.BadRequest("invalid "+name, err)
	}
	return n, nil
}
