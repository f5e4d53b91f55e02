package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"word-guess/internal/game"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required,username"`
}

var createUserMessages = bindMessages{
	"Username": {
		"required": "username is required",
		"username": "username must be 1-32 letters, digits, '_', '-' or '.'",
	},
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req, createUserMessages, "invalid user payload") {
		return
	}
	name, _ := validateUsername(req.Username)
	user, err := s.repo.CreateUser(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, game.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		writeError(c, err)
		return
	}
	setUserCookie(c, user)
	c.JSON(http.StatusCreated, newUserView(user))
}
