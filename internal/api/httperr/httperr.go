// Package httperr carries HTTP status codes on errors and renders them as JSON.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sociallink/backend/pkg/logging"
)

// ServerErrorMessage is returned for every error that is not an *Error
const ServerErrorMessage = "Server error. Try again"

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// New creates a new API error
func New(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }

// Response is the error body
type Response struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
}

// Abort records err on the request and stops the handler chain. ErrorHandler
// writes the response.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last error recorded on the request
func ErrorHandler() gin.HandlerFunc {
	logger := logging.WithComponent("http")

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		apiErr := From(c.Errors.Last().Err)
		if apiErr.Code >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(c.Errors.Last().Err))
		}

		c.JSON(apiErr.Code, Response{
			Message:    apiErr.Message,
			StatusCode: apiErr.Code,
			Status:     "error",
		})
	}
}

// From converts err into an *Error. Binding errors become 400, anything
// unknown becomes a 500 carrying ServerErrorMessage.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return BadRequest(fieldMessage(fieldErrs[0]))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return BadRequest("Invalid request body")
	}

	return New(http.StatusInternalServerError, ServerErrorMessage)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is a required field"
	case "email":
		return field + " must be valid"
	case "oneof":
		return field + " must be one of [" + strings.Join(strings.Fields(fe.Param()), ", ") + "]"
	default:
		return "Invalid " + strings.ToLower(field)
	}
}
