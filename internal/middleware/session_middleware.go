package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Browser session cookie
const (
	SessionCookieName = "am_session"
	SessionContextKey = "session_id"
	sessionMaxAge     = 7 * 24 * 60 * 60
)

// BrowserSession makes sure every request carries a browser session id. The
// id keys the records the outcome pages read after the gateway redirect.
func BrowserSession(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if _, perr := uuid.Parse(id); err != nil || perr != nil {
			id = uuid.NewString()
		}

		// refreshed on every request so an active visitor never loses it
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, id, sessionMaxAge, "/", "", secure, true)

		c.Set(SessionContextKey, id)
		c.Next()
	}
}

// SessionID returns the browser session id set by BrowserSession
func SessionID(c *gin.Context) string {
	return c.GetString(SessionContextKey)
}
