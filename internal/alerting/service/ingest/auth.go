package ingest

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	authBasicUser string
	authBasicPass string
	authBearer    string
)

// ConfigureAuth sets the accepted credentials for the ingest endpoints. With
// no credentials configured every request is accepted.
func ConfigureAuth(user, pass, bearer string) {
	authBasicUser = user
	authBasicPass = pass
	authBearer = bearer
}

// AuthMiddleware returns false if unauthorized and writes a 401 response.
func AuthMiddleware(c *gin.Context) bool {
	if authBasicUser == "" && authBearer == "" {
		return true
	}
	if authBearer != "" {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if subtle.ConstantTimeCompare([]byte(token), []byte(authBearer)) == 1 {
				return true
			}
		}
	}
	if authBasicUser != "" {
		if user, pass, ok := c.Request.BasicAuth(); ok {
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(authBasicUser)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(authBasicPass)) == 1
			if userOK && passOK {
				return true
			}
		}
	}
	c.JSON(http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "UNAUTHORIZED", "message": "invalid credentials"}})
	return false
}
