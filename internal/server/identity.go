package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"word-guess/internal/game"
)

const (
	userHeader   = "X-User-ID"
	userCookie   = "wg_user"
	userCtxKey   = "user"
	cookieMaxAge = 30 * 24 * 60 * 60
)

var errNoIdentity = errors.New("no identity")

// resolveUser reads the caller's user id from the header, falling back to
// the cookie set at registration.
func (s *Server) resolveUser(c *gin.Context) (*game.User, error) {
	raw := strings.TrimSpace(c.GetHeader(userHeader))
	if raw == "" {
		if cookie, err := c.Cookie(userCookie); err == nil {
			raw = strings.TrimSpace(cookie)
		}
	}
	if raw == "" {
		return nil, errNoIdentity
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errNoIdentity
	}
	user, err := s.repo.GetUser(c.Request.Context(), id)
	if errors.Is(err, game.ErrNotFound) {
		return nil, errNoIdentity
	}
	return user, err
}

func (s *Server) requireUser(c *gin.Context) {
	user, err := s.resolveUser(c)
	if err != nil {
		if errors.Is(err, errNoIdentity) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in first"})
			return
		}
		writeError(c, err)
		c.Abort()
		return
	}
	c.Set(userCtxKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *game.User {
	if value, ok := c.Get(userCtxKey); ok {
		if user, ok := value.(*game.User); ok {
			return user
		}
	}
	return nil
}

func setUserCookie(c *gin.Context, user *game.User) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(userCookie, strconv.FormatInt(user.ID, 10), cookieMaxAge, "/", "", false, true)
}
