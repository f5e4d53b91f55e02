package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"word-guess/internal/config"
	"word-guess/internal/game"
)

func TestRoundLifecycle(t *testing.T) {
	_, ts := newTestApp(t, nil)
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple, pear")
	joinGame(t, ts, bob, gameID)

	snap := fetchSnapshot(t, ts, gameID)
	if snap["game_status"] != "waiting" || len(snap["players"].([]any)) != 2 {
		t.Fatalf("unexpected waiting snapshot %#v", snap)
	}

	resp := doRequest(t, ts, bob, http.MethodPost, "/games/"+gameID+"/start", nil)
	expectStatus(t, resp, http.StatusForbidden)

	started := startGame(t, ts, ada, gameID)
	if started["status"] != "in_progress" || started["round"] == nil {
		t.Fatalf("unexpected start response %#v", started)
	}

	snap = fetchSnapshot(t, ts, gameID)
	current, ok := snap["current_round"].(map[string]any)
	if !ok {
		t.Fatalf("expected a current round, got %#v", snap)
	}
	remaining := current["time_remaining"].(float64)
	if remaining <= 0 || remaining > 80 {
		t.Fatalf("expected time remaining in (0, 80], got %v", remaining)
	}
	if int64(current["player_id"].(float64)) != ada {
		t.Fatalf("expected ada to give the first round, got %v", current["player_id"])
	}

	resp = doRequest(t, ts, bob, http.MethodPost, "/games/"+gameID+"/next_round", nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/end_round", nil)
	expectStatus(t, resp, http.StatusOK)
	ended := decodeBody(t, resp)
	if ended["success"] != true || ended["game_finished"] != false {
		t.Fatalf("unexpected end response %#v", ended)
	}

	resp = doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/end_round", nil)
	expectStatus(t, resp, http.StatusBadRequest)

	snap = fetchSnapshot(t, ts, gameID)
	if snap["current_round"] != nil {
		t.Fatalf("expected no current round, got %#v", snap["current_round"])
	}
	next, ok := snap["next_round_info"].(map[string]any)
	if !ok || next["seconds_until_next_round"].(float64) > 5 {
		t.Fatalf("unexpected next round info %#v", snap["next_round_info"])
	}

	resp = doRequest(t, ts, bob, http.MethodPost, "/games/"+gameID+"/next_round", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	round := body["round"].(map[string]any)
	if int64(round["player_id"].(float64)) != bob {
		t.Fatalf("expected bob to give the second round, got %v", round["player_id"])
	}
	if _, leaked := round["word"]; leaked {
		t.Fatalf("expected active round word to stay hidden")
	}
}

func TestNextRoundAfterFinish(t *testing.T) {
	_, ts := newTestApp(t, func(cfg *config.Config) {
		cfg.RoundsPerGame = 1
	})
	ada := createUser(t, ts, "ada")
	gameID := createGame(t, ts, ada, "apple")

	resp := doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/next_round", nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	startGame(t, ts, ada, gameID)
	resp = doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/end_round", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["game_finished"] != true {
		t.Fatalf("expected game to finish, got %#v", body)
	}

	resp = doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/next_round", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["success"] != false || body["game_finished"] != true {
		t.Fatalf("unexpected next round response %#v", body)
	}

	snap := fetchSnapshot(t, ts, gameID)
	if snap["game_status"] != "finished" || snap["rounds_available"] != false {
		t.Fatalf("unexpected finished snapshot %#v", snap)
	}
}

func TestConcurrentNextRoundStartsOne(t *testing.T) {
	_, ts := newTestApp(t, nil)
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple")
	joinGame(t, ts, bob, gameID)
	startGame(t, ts, ada, gameID)
	resp := doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/end_round", nil)
	expectStatus(t, resp, http.StatusOK)

	const callers = 8
	statuses := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(caller int64) {
			defer wg.Done()
			resp := doRequest(t, ts, caller, http.MethodPost, "/games/"+gameID+"/next_round", nil)
			statuses <- resp.StatusCode
		}([]int64{ada, bob}[i%2])
	}
	wg.Wait()
	close(statuses)

	ok := 0
	for status := range statuses {
		switch status {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one round start, got %d", ok)
	}
}

func TestGuessEndsRound(t *testing.T) {
	_, ts := newTestApp(t, nil)
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple")
	joinGame(t, ts, bob, gameID)
	startGame(t, ts, ada, gameID)
	path := "/games/" + gameID + "/guess"

	resp := doRequest(t, ts, bob, http.MethodPost, path, map[string]string{"guess": "pear"})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["correct"] != false {
		t.Fatalf("expected wrong guess, got %#v", body)
	}

	resp = doRequest(t, ts, ada, http.MethodPost, path, map[string]string{"guess": "apple"})
	expectStatus(t, resp, http.StatusForbidden)

	resp = doRequest(t, ts, bob, http.MethodPost, path, map[string]string{"guess": "  APPLE "})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["correct"] != true || body["round_ended"] != true {
		t.Fatalf("expected correct guess, got %#v", body)
	}

	resp = doRequest(t, ts, bob, http.MethodPost, path, map[string]string{"guess": "apple"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doRequest(t, ts, 0, http.MethodGet, "/games/"+gameID, nil)
	expectStatus(t, resp, http.StatusOK)
	rounds := decodeBody(t, resp)["rounds"].([]any)
	first := rounds[0].(map[string]any)
	if first["successful"] != true || int64(first["winner_id"].(float64)) != bob || first["word"] != "apple" {
		t.Fatalf("unexpected completed round %#v", first)
	}
}

type toggleSampler struct {
	mu sync.Mutex
	on bool
}

func (s *toggleSampler) ShouldSweep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

func (s *toggleSampler) set(on bool) {
	s.mu.Lock()
	s.on = on
	s.mu.Unlock()
}

func TestStalePlayerSweptFromWaitingGame(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sampler := &toggleSampler{}
	_, ts := newTestApp(t, nil, WithClock(clock), WithSampler(sampler))
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple")
	joinGame(t, ts, bob, gameID)

	clock.Advance(61 * time.Second)
	sampler.set(true)
	resp := doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/heartbeat", nil)
	expectStatus(t, resp, http.StatusOK)

	players := fetchSnapshot(t, ts, gameID)["players"].([]any)
	if len(players) != 1 || int64(players[0].(map[string]any)["id"].(float64)) != ada {
		t.Fatalf("expected only ada to remain, got %#v", players)
	}

	resp = doRequest(t, ts, bob, http.MethodPost, "/games/"+gameID+"/heartbeat", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

// flakyRepository fails the failOn-th UpdateGame after arm is called.
type flakyRepository struct {
	*game.MemoryRepository
	mu     sync.Mutex
	armed  bool
	calls  int
	failOn int
}

func (r *flakyRepository) arm(failOn int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed, r.calls, r.failOn = true, 0, failOn
}

func (r *flakyRepository) UpdateGame(ctx context.Context, id int64, fn func(g *game.Game) ([]game.Event, error)) (*game.Game, []game.Event, error) {
	r.mu.Lock()
	fail := false
	if r.armed {
		r.calls++
		fail = r.calls == r.failOn
	}
	r.mu.Unlock()
	if fail {
		return nil, nil, errors.New("disk full")
	}
	return r.MemoryRepository.UpdateGame(ctx, id, fn)
}

func TestStartReportsFailedFirstRound(t *testing.T) {
	repo := &flakyRepository{MemoryRepository: game.NewMemoryRepository()}
	_, ts := newTestApp(t, nil, WithRepository(repo))
	ada := createUser(t, ts, "ada")
	bob := createUser(t, ts, "bob")
	gameID := createGame(t, ts, ada, "apple")
	joinGame(t, ts, bob, gameID)

	repo.arm(2)
	body := startGame(t, ts, ada, gameID)
	if body["activation_failed"] != true || body["round"] != nil || body["status"] != "in_progress" {
		t.Fatalf("unexpected start body %#v", body)
	}

	resp := doRequest(t, ts, ada, http.MethodPost, "/games/"+gameID+"/next_round", nil)
	expectStatus(t, resp, http.StatusOK)
	if next := decodeBody(t, resp); next["success"] != true {
		t.Fatalf("expected retried next_round to start a round, got %#v", next)
	}
}
