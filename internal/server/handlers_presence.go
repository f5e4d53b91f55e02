package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"word-guess/internal/game"
	"word-guess/internal/presence"
)

func (s *Server) handleHeartbeat(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "heartbeat") {
		return
	}
	user := currentUser(c)
	if err := s.tracker.Heartbeat(c.Request.Context(), gameID, user.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	snap, err := s.sched.Snapshot(c.Request.Context(), gameID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// presentMembership is the hub's view of the roster. A socket join counts as
// a sign of life, so the presence entry is written before the player becomes
// a member and a sweep can never see them without one.
type presentMembership struct {
	sched   *game.Scheduler
	tracker *presence.Tracker
}

func (m *presentMembership) Join(ctx context.Context, gameID, userID int64) (bool, error) {
	m.tracker.Touch(gameID, userID)
	joined, err := m.sched.Join(ctx, gameID, userID)
	if err != nil {
		m.tracker.Forget(gameID, userID)
		return false, err
	}
	return joined, nil
}

func (m *presentMembership) Leave(ctx context.Context, gameID, userID int64) (bool, error) {
	left, err := m.sched.Leave(ctx, gameID, userID)
	if err != nil {
		return false, err
	}
	if left {
		m.tracker.Forget(gameID, userID)
	}
	return left, nil
}
