package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with latency and recovers from
// panics with a JSON 500.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		defer func() {
			if recovered := recover(); recovered != nil {
				log.WithFields(logrus.Fields{
					"method":    c.Request.Method,
					"path":      c.Request.URL.Path,
					"client_ip": c.ClientIP(),
					"panic":     recovered,
					"stack":     string(debug.Stack()),
				}).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INTERNAL",
						"message": "internal server error",
					},
				})
			}
		}()

		c.Next()

		fields := logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if userID := c.GetInt64("user_id"); userID != 0 {
			fields["user_id"] = userID
		}
		if orgID := c.GetInt64("org_id"); orgID != 0 {
			fields["org_id"] = orgID
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.WithFields(fields).Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			log.WithFields(fields).Warn("request")
		default:
			log.WithFields(fields).Info("request")
		}
	}
}
