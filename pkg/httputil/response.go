package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// StatusFor maps err onto an HTTP status. Errors that expose a
// StatusCode method choose their own; anything else is a 500.
func StatusFor(err error) int {
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return http.StatusInternalServerError
}

// MessageFor hides the detail of server errors from clients.
func MessageFor(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

// RespondWithError sends an error response and records err on the context
// for the request logger.
func RespondWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)
	AbortWithMessage(c, status, MessageFor(err, status))
}

// AbortWithMessage stops the chain with an error envelope.
func AbortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Status:    StatusError,
		Message:   message,
		RequestID: c.GetString("request_id"),
	})
}
