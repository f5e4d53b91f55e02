package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// handleWebsocket attaches a connection to the game's topic. Callers without
// an identity listen as anonymous spectators.
func (s *Server) handleWebsocket(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.sched.GetGame(ctx, gameID); err != nil {
		writeError(c, err)
		return
	}
	var playerID int64
	user, err := s.resolveUser(c)
	switch {
	case err == nil:
		playerID = user.ID
	case !errors.Is(err, errNoIdentity):
		writeError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Int64("game_id", gameID).Msg("ws upgrade failed")
		return
	}
	sub := s.hub.NewSubscriber(gameID, playerID)
	s.hub.ServeConn(ctx, conn, sub, s.wsConfig)
}
