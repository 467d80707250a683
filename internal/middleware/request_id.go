package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

const (
	RequestIDHeader = "X-Request-ID"
	loggerKey       = "Logger"
)

// RequestID tags each request with an id and a logger carrying it, and logs
// the request once it is served.
func RequestID(log hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		reqLog := log.With("request_id", id)
		c.Set(loggerKey, reqLog)

		start := time.Now()
		c.Next()

		reqLog.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// Logger returns the request logger, or a null logger outside RequestID.
func Logger(c *gin.Context) hclog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(hclog.Logger); ok {
			return l
		}
	}
	return hclog.NewNullLogger()
}
