package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"offer-relay/internal/handler/httperr"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last public error left on the context and logs
// whatever a handler recorded without writing a body.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			resp, public := e.Meta.(httperr.Response)
			if public && resp.Status < http.StatusInternalServerError {
				continue
			}
			logger.Error("request failed",
				"request_id", GetRequestID(c),
				"path", c.FullPath(),
				"error", e.Err)
		}

		if c.Writer.Written() {
			return
		}
		for i := len(c.Errors) - 1; i >= 0; i-- {
			if resp, ok := c.Errors[i].Meta.(httperr.Response); ok && c.Errors[i].IsType(gin.ErrorTypePublic) {
				c.JSON(resp.Status, resp)
				return
			}
		}
		if status := c.Writer.Status(); status != http.StatusOK {
			c.Status(status)
			c.Writer.WriteHeaderNow()
			return
		}
		if len(c.Errors) > 0 {
			writeEnvelope(c, http.StatusInternalServerError, "Internal server error")
		}
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("recovered from panic",
					"request_id", GetRequestID(c),
					"path", c.Request.URL.Path,
					"panic", r,
					"stack", string(debug.Stack()))
				writeEnvelope(c, http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

func NoRoute(c *gin.Context) {
	writeEnvelope(c, http.StatusNotFound, "Route not found")
}

func NoMethod(c *gin.Context) {
	writeEnvelope(c, http.StatusMethodNotAllowed, "Method not allowed")
}

func writeEnvelope(c *gin.Context, status int, msg string) {
	resp := httperr.Response{Status: status, RequestID: GetRequestID(c)}
	resp.Error.Message = msg
	c.JSON(status, resp)
}
