package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID      = "firebase_uid"
	CtxEmail       = "email"
	CtxDisplayName = "display_name"
)

// UserID extracts the authenticated user's Firebase UID from the Gin
// context. Empty when the request is unauthenticated.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// DisplayName extracts the user's display name, falling back to the email
// local part so public attribution never shows an empty string.
func DisplayName(c *gin.Context) string {
	if name := strings.TrimSpace(c.GetString(CtxDisplayName)); name != "" {
		return name
	}
	email := c.GetString(CtxEmail)
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
