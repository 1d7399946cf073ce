package utils

import (
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key and response header carrying the request id.
const RequestIDKey = "X-Request-ID"

// Ginzap returns a gin middleware that writes one access log line per request.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		rid := c.GetHeader(RequestIDKey)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDKey, rid)

		c.Next()

		end := time.Now()
		if utc {
			end = end.UTC()
		}
		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", end.Sub(start)),
			zap.String("time", end.Format(timeFormat)),
		}
		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				logger.Error(e, fields...)
			}
			return
		}
		logger.Info(path, fields...)
	}
}

// RecoveryWithZap recovers from panics, logs them and answers 500.
// Broken client connections are logged without a stack and left unanswered.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			var brokenPipe bool
			if ne, ok := err.(*net.OpError); ok {
				if se, ok := ne.Err.(*os.SyscallError); ok {
					msg := strings.ToLower(se.Error())
					brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
				}
			}
			dump, _ := httputil.DumpRequest(c.Request, false)
			if brokenPipe {
				logger.Error(c.Request.URL.Path, zap.Any("error", err), zap.String("request", string(dump)))
				c.Abort()
				return
			}
			fields := []zap.Field{
				zap.Time("time", time.Now()),
				zap.Any("error", err),
				zap.String("request", string(dump)),
			}
			if stack {
				fields = append(fields, zap.String("stack", string(debug.Stack())))
			}
			logger.Error("[Recovery from panic]", fields...)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}
