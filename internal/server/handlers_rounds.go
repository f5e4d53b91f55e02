package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"word-guess/internal/game"
)

// roundFailure reports an unexpected round transition error. Missing games
// still map to 404.
func roundFailure(c *gin.Context, gameID int64, action string, err error) {
	if errors.Is(err, game.ErrNotFound) {
		writeError(c, err)
		return
	}
	log.Error().Err(err).Int64("game_id", gameID).Str("action", action).Msg("round transition failed")
	c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "could not " + action})
}

func (s *Server) handleNextRound(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	outcome, round, err := s.sched.ActivateNextRound(ctx, gameID)
	if err != nil {
		roundFailure(c, gameID, "start next round", err)
		return
	}
	switch outcome {
	case game.OutcomeApplied:
		c.JSON(http.StatusOK, gin.H{"success": true, "round": newRoundView(round, false)})
	case game.OutcomeAlreadyActive:
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "a round is already active"})
	case game.OutcomeExhausted:
		c.JSON(http.StatusOK, gin.H{"success": false, "game_finished": true})
	default:
		g, err := s.sched.GetGame(ctx, gameID)
		if err != nil {
			writeError(c, err)
			return
		}
		if g.Status == game.StatusFinished {
			c.JSON(http.StatusOK, gin.H{"success": false, "game_finished": true})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "game is not in progress"})
	}
}

func (s *Server) handleEndRound(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	outcome, round, err := s.sched.EndActiveRound(ctx, gameID)
	if err != nil {
		roundFailure(c, gameID, "end round", err)
		return
	}
	if outcome != game.OutcomeApplied {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no active round"})
		return
	}
	finished := false
	if g, err := s.sched.GetGame(ctx, gameID); err == nil {
		finished = g.Status == game.StatusFinished
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"round":         newRoundView(round, true),
		"game_finished": finished,
	})
}

type guessRequest struct {
	Guess string `json:"guess" binding:"required,guess"`
}

var guessMessages = bindMessages{
	"Guess": {
		"required": "guess is required",
		"guess":    "guess must be 60 characters or fewer with no unusual symbols",
	},
}

func (s *Server) handleGuess(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "guess") {
		return
	}
	var req guessRequest
	if !bindJSON(c, &req, guessMessages, "invalid guess payload") {
		return
	}
	text, _ := validateGuess(req.Guess)
	user := currentUser(c)
	result, err := s.sched.EvaluateGuess(c.Request.Context(), gameID, user.ID, text)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Outcome == game.OutcomeNoActiveRound {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no active round"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"correct": result.Correct, "round_ended": result.Correct})
}
