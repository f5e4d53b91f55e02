package game

import (
	"sort"
	"time"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
	// RoundSkipped is reserved; nothing transitions a round into it yet.
	RoundSkipped RoundStatus = "skipped"
)

type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Member is a player's membership in a game. Score is stored but not yet
// changed by any scoring rule.
type Member struct {
	PlayerID int64
	Username string
	Score    int
	JoinedAt time.Time
}

type Round struct {
	ID          int64
	GameID      int64
	PlayerID    int64
	Word        string
	Order       int
	Status      RoundStatus
	StartedAt   *time.Time
	EndsAt      *time.Time
	CompletedAt *time.Time
	NextRoundAt *time.Time
	Successful  bool
	WinnerID    *int64
}

type Game struct {
	ID                int64
	Status            Status
	CreatorID         int64
	CurrentRoundOrder int
	Words             []string
	Players           []Member
	Rounds            []Round
	RoundDuration     time.Duration
	RoundPause        time.Duration
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (g *Game) HasPlayer(playerID int64) bool {
	_, ok := g.Player(playerID)
	return ok
}

func (g *Game) Player(playerID int64) (*Member, bool) {
	for i := range g.Players {
		if g.Players[i].PlayerID == playerID {
			return &g.Players[i], true
		}
	}
	return nil, false
}

func (g *Game) PlayerName(playerID int64) string {
	if member, ok := g.Player(playerID); ok {
		return member.Username
	}
	return ""
}

func (g *Game) RemovePlayer(playerID int64) bool {
	for i := range g.Players {
		if g.Players[i].PlayerID == playerID {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return true
		}
	}
	return false
}

// OrderedPlayers returns members by join time, then id. Round assignment
// depends on this order being stable.
func (g *Game) OrderedPlayers() []Member {
	players := make([]Member, len(g.Players))
	copy(players, g.Players)
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].PlayerID < players[j].PlayerID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players
}

func (g *Game) ActiveRound() *Round {
	for i := range g.Rounds {
		if g.Rounds[i].Status == RoundActive {
			return &g.Rounds[i]
		}
	}
	return nil
}

func (g *Game) RoundByOrder(order int) *Round {
	for i := range g.Rounds {
		if g.Rounds[i].Order == order {
			return &g.Rounds[i]
		}
	}
	return nil
}

func (g *Game) RoundByID(id int64) *Round {
	for i := range g.Rounds {
		if g.Rounds[i].ID == id {
			return &g.Rounds[i]
		}
	}
	return nil
}

// LastCompletedRound returns the completed round with the highest order.
func (g *Game) LastCompletedRound() *Round {
	var last *Round
	for i := range g.Rounds {
		round := &g.Rounds[i]
		if round.Status != RoundCompleted {
			continue
		}
		if last == nil || round.Order > last.Order {
			last = round
		}
	}
	return last
}

// RoundsRemaining reports whether any round is ordered after the current one.
func (g *Game) RoundsRemaining() bool {
	for i := range g.Rounds {
		if g.Rounds[i].Order > g.CurrentRoundOrder {
			return true
		}
	}
	return false
}

// IsOver is the game-over rule: nothing left to play and nothing in play.
func (g *Game) IsOver() bool {
	return !g.RoundsRemaining() && g.ActiveRound() == nil
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	clone := *g
	clone.Words = append([]string(nil), g.Words...)
	clone.Players = append([]Member(nil), g.Players...)
	clone.Rounds = append([]Round(nil), g.Rounds...)
	return &clone
}
