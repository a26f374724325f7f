package delivery

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	sessionContextKey = "sessionID"
	sessionCookieKey  = "sessionCookie"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// SessionMiddleware makes sure every request carries a visitor session ID,
// issuing a new cookie when the request has none or an unusable one.
func SessionMiddleware(cookieName string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, id, int(sessionMaxAge.Seconds()), "/", "", false, true)
			logger.Debugf("Middleware: Issued new session %s", id)
		}
		c.Set(sessionContextKey, id)
		c.Set(sessionCookieKey, cookieName)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

// expireSession tells the browser to drop the session cookie.
func expireSession(c *gin.Context) {
	name := c.GetString(sessionCookieKey)
	if name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", false, true)
}

func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  latency.Milliseconds(),
		})
		if id := sessionID(c); id != "" {
			entry = entry.WithField("session", id)
		}

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		} else if statusCode >= 500 {
			entry.Error("Request completed with server error")
		} else if statusCode >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}
