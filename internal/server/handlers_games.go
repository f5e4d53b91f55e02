package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"word-guess/internal/game"
)

// createGameRequest accepts words as either a comma separated string or a
// JSON array.
type createGameRequest struct {
	Words json.RawMessage `json:"words" binding:"required"`
}

var createGameMessages = bindMessages{
	"Words": {"required": "words are required"},
}

func parseWords(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return game.NormalizeWords(list), nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, game.NewValidationError("words", "must be a string or a list of strings")
	}
	return game.SplitWords(joined), nil
}

func (s *Server) handleListGames(c *gin.Context) {
	games, err := s.sched.ListGames(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	page, perPage := parsePagination(c, defaultGamesPerPage, maxGamesPerPage)
	info := buildPageInfo(page, perPage, len(games))
	start, end := paginate(info)
	summaries := make([]gameSummary, 0, end-start)
	for _, g := range games[start:end] {
		summaries = append(summaries, newSummary(g))
	}
	c.JSON(http.StatusOK, gin.H{"games": summaries, "pagination": info})
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if !bindJSON(c, &req, createGameMessages, "invalid game payload") {
		return
	}
	words, err := parseWords(req.Words)
	if err == nil {
		err = validateWords(words)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	user := currentUser(c)
	ctx := c.Request.Context()
	created, err := s.sched.CreateGame(ctx, user.ID, words)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.tracker.Heartbeat(ctx, created.ID, user.ID); err != nil {
		log.Warn().Err(err).Int64("game_id", created.ID).Msg("creator heartbeat failed")
	}
	c.JSON(http.StatusCreated, gin.H{"game_id": created.ID, "game": newGameView(created)})
}

func (s *Server) handleShowGame(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	g, err := s.sched.GetGame(c.Request.Context(), gameID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameView(g))
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	g, err := s.sched.GetGame(c.Request.Context(), gameID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.sched.DeleteGame(c.Request.Context(), gameID, user.ID); err != nil {
		writeError(c, err)
		return
	}
	s.hub.CloseTopic(gameID)
	for _, member := range g.Players {
		s.tracker.Forget(gameID, member.PlayerID)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleJoinGame(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	ctx := c.Request.Context()
	joined, err := s.sched.Join(ctx, gameID, user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.tracker.Heartbeat(ctx, gameID, user.ID); err != nil {
		log.Warn().Err(err).Int64("game_id", gameID).Int64("player_id", user.ID).Msg("initial heartbeat failed")
	}
	g, err := s.sched.GetGame(ctx, gameID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": joined, "game": newGameView(g)})
}

func (s *Server) handleStartGame(c *gin.Context) {
	gameID, ok := bindGameID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	result, err := s.sched.StartGame(c.Request.Context(), gameID, user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{"notice": "Game started!", "status": game.StatusInProgress, "round": nil, "activation_failed": false}
	if result.Game != nil {
		body["status"] = result.Game.Status
	}
	if result.ActivationErr != nil {
		log.Warn().Err(result.ActivationErr).Int64("game_id", gameID).Msg("game started without an active round")
		body["activation_failed"] = true
	}
	if result.Round != nil {
		body["round"] = newRoundView(result.Round, false)
	}
	c.JSON(http.StatusOK, body)
}
