package syncagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"word-guess/internal/game"
)

const userHeader = "X-User-ID"

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// HTTPClient talks to the game server's JSON API as one user.
type HTTPClient struct {
	baseURL string
	userID  int64
	client  *http.Client
}

func NewHTTPClient(baseURL string, userID int64) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) UserID() int64 {
	return c.userID
}

// Register creates a user and makes the client act as it.
func (c *HTTPClient) Register(ctx context.Context, username string) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/users", map[string]string{"username": username}, &out); err != nil {
		return 0, err
	}
	c.userID = out.ID
	return out.ID, nil
}

func (c *HTTPClient) CreateGame(ctx context.Context, words []string) (int64, error) {
	var out struct {
		GameID int64 `json:"game_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/games", map[string]any{"words": words}, &out); err != nil {
		return 0, err
	}
	return out.GameID, nil
}

func (c *HTTPClient) Join(ctx context.Context, gameID int64) error {
	return c.do(ctx, http.MethodPost, gamePath(gameID, "join"), nil, nil)
}

func (c *HTTPClient) Start(ctx context.Context, gameID int64) error {
	return c.do(ctx, http.MethodPost, gamePath(gameID, "start"), nil, nil)
}

func (c *HTTPClient) Guess(ctx context.Context, gameID int64, guess string) (bool, error) {
	var out struct {
		Correct bool `json:"correct"`
	}
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "guess"), map[string]string{"guess": guess}, &out); err != nil {
		return false, err
	}
	return out.Correct, nil
}

func (c *HTTPClient) Snapshot(ctx context.Context, gameID int64) (game.Snapshot, error) {
	var snap game.Snapshot
	err := c.do(ctx, http.MethodGet, gamePath(gameID, "players"), nil, &snap)
	return snap, err
}

func (c *HTTPClient) EndRound(ctx context.Context, gameID int64) error {
	err := c.do(ctx, http.MethodPost, gamePath(gameID, "end_round"), nil, nil)
	if statusIs(err, http.StatusBadRequest) {
		return fmt.Errorf("game %d: %w", gameID, ErrNoActiveRound)
	}
	return err
}

func (c *HTTPClient) NextRound(ctx context.Context, gameID int64) (NextRoundResult, error) {
	var out NextRoundResult
	err := c.do(ctx, http.MethodPost, gamePath(gameID, "next_round"), nil, &out)
	if statusIs(err, http.StatusConflict) {
		return out, fmt.Errorf("game %d: %w", gameID, ErrRoundActive)
	}
	return out, err
}

func (c *HTTPClient) Heartbeat(ctx context.Context, gameID int64) error {
	return c.do(ctx, http.MethodPost, gamePath(gameID, "heartbeat"), nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != 0 {
		req.Header.Set(userHeader, strconv.FormatInt(c.userID, 10))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusIs(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

func gamePath(gameID int64, action string) string {
	return "/games/" + strconv.FormatInt(gameID, 10) + "/" + action
}
