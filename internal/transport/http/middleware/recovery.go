package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"medtree/internal/platform/logger"
	"medtree/internal/transport/http/response"
)

// Recovery turns a panic into the JSON 500 body every other error uses.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ContextRequestIDKey),
			"panic", recovered,
			"stack", string(debug.Stack()),
		)
		response.Error(c, http.StatusInternalServerError, "Internal server error", fmt.Sprint(recovered))
		c.Abort()
	})
}
