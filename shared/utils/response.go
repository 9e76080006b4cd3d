package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the error response envelope. Success responses carry plain
// domain JSON instead.
type ErrorBody struct {
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ErrorResponse sends an error envelope with the given status code.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// ValidationErrorResponse sends a 400 with per-field messages.
func ValidationErrorResponse(c *gin.Context, message string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ErrorBody{
		Message:   message,
		Errors:    fields,
		Timestamp: time.Now().UTC(),
	})
}

// BadRequestResponse sends a 400 Bad Request response.
func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// UnauthorizedResponse sends a 401 Unauthorized response.
func UnauthorizedResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

// ForbiddenResponse sends a 403 Forbidden response.
func ForbiddenResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, message)
}

// NotFoundResponse sends a 404 Not Found response.
func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

// ConflictResponse reports a uniqueness violation. Conflicts surface as 400,
// matching the validation-style error contract.
func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// InternalServerErrorResponse sends a 500 with a generic message; failure
// detail stays in the logs.
func InternalServerErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// OKResponse sends a 200 with a domain JSON body.
func OKResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// CreatedResponse sends a 201 with a domain JSON body.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContentResponse sends a 204.
func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
