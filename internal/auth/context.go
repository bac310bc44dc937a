package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID    = "userID"
	ctxUserEmail = "userEmail"
	ctxPrincipal = "principal"
)

// SetPrincipal stores p on the request context.
func SetPrincipal(c *gin.Context, p Principal, email string) {
	c.Set(ctxUserID, p.UserID)
	c.Set(ctxUserEmail, email)
	c.Set(ctxPrincipal, p)
}

// GetPrincipal returns the authenticated principal, if any.
func GetPrincipal(c *gin.Context) (Principal, bool) {
	if v, ok := c.Get(ctxPrincipal); ok {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return Principal{}, false
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ctxUserEmail)
}
