package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"word-guess/internal/config"
	"word-guess/internal/game"
	"word-guess/internal/logging"
	"word-guess/internal/syncagent"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "game server base URL")
	gameID := flag.Int64("game", 0, "game to follow")
	userID := flag.Int64("user", 0, "act as this user id")
	name := flag.String("name", "", "register a new user with this name when -user is not set")
	join := flag.Bool("join", false, "join the game before following it")
	words := flag.String("words", "", "create a game from this comma separated word list when -game is not set")
	wordsFile := flag.String("words-file", "", "create a game from this CSV word list when -game is not set")
	start := flag.Bool("start", false, "start the game after creating it")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := syncagent.NewHTTPClient(*serverURL, *userID)
	if *userID == 0 && *name != "" {
		id, err := client.Register(ctx, *name)
		if err != nil {
			log.Fatal().Err(err).Msg("register failed")
		}
		log.Info().Int64("user_id", id).Str("username", *name).Msg("registered")
	}
	if *gameID <= 0 {
		list := game.SplitWords(*words)
		if *wordsFile != "" {
			list, err = game.ReadWordsFile(*wordsFile)
			if err != nil {
				log.Fatal().Err(err).Str("path", *wordsFile).Msg("read words")
			}
		}
		if len(list) == 0 {
			log.Fatal().Msg("-game, -words or -words-file is required")
		}
		*gameID, err = client.CreateGame(ctx, list)
		if err != nil {
			log.Fatal().Err(err).Msg("create game failed")
		}
		log.Info().Int64("game_id", *gameID).Int("words", len(list)).Msg("game created")
		if *start {
			if err := client.Start(ctx, *gameID); err != nil {
				log.Fatal().Err(err).Msg("start failed")
			}
		}
	}
	if *join {
		if err := client.Join(ctx, *gameID); err != nil {
			log.Fatal().Err(err).Msg("join failed")
		}
	}

	agent := syncagent.New(client, *gameID,
		syncagent.WithHeartbeatInterval(cfg.HeartbeatInterval()),
		syncagent.OnChange(logView),
	)

	backoff := time.Second
	for ctx.Err() == nil {
		events, err := syncagent.DialEvents(ctx, *serverURL, *gameID, client.UserID())
		if err == nil {
			backoff = time.Second
			err = agent.Run(ctx, events)
		}
		if ctx.Err() != nil {
			break
		}
		if agent.View().Status == game.StatusFinished {
			log.Info().Int64("game_id", *gameID).Msg("game finished")
			return
		}
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("event stream lost")
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func logView(view syncagent.View) {
	event := log.Info().
		Int64("game_id", view.GameID).
		Str("status", string(view.Status)).
		Int("players", len(view.Players)).
		Bool("rounds_available", view.RoundsAvailable)
	if view.Round != nil {
		event = event.Int64("round_id", view.Round.ID).Str("giver", view.Round.PlayerName).Time("ends_at", view.Round.EndsAt)
	}
	if view.NextRoundAt != nil {
		event = event.Time("next_round_at", *view.NextRoundAt)
	}
	event.Msg("game view")
}
