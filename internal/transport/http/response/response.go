package response

import "github.com/gin-gonic/gin"

// ErrorBody is the shape of every non-2xx JSON response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, title, message string) {
	c.JSON(httpStatus, ErrorBody{
		Error:   title,
		Message: message,
	})
}

// ErrorWithDetails attaches diagnostic details; callers only pass them in development.
func ErrorWithDetails(c *gin.Context, httpStatus int, title, message, details string) {
	c.JSON(httpStatus, ErrorBody{
		Error:   title,
		Message: message,
		Details: details,
	})
}
