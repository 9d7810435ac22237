// Package response writes the API's uniform JSON envelope. Every
// endpoint answers {"success": true, "data": ...} or
// {"success": false, "error": {code, message, details?}}.
package response

import "github.com/gin-gonic/gin"

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, successEnvelope{Success: true, Data: data})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, errorEnvelope{
		Error: errorBody{Code: code, Message: message},
	})
}

// ErrorWithDetails carries a structured payload alongside the error,
// used for quota and hold-overlap conflicts.
func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, errorEnvelope{
		Error: errorBody{Code: code, Message: message, Details: details},
	})
}
