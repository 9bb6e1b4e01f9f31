package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/antoniostano/railbot/internal/archive"
	"github.com/antoniostano/railbot/internal/commands"
	"github.com/antoniostano/railbot/internal/config"
	"github.com/antoniostano/railbot/internal/discord"
	"github.com/antoniostano/railbot/internal/httpapi"
	"github.com/antoniostano/railbot/internal/lfg"
	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/session"
	"github.com/antoniostano/railbot/internal/supervisor"
)

const archiveWriteTimeout = 5 * time.Second

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Sessions   *session.Store
	History    archive.Store
	Bot        *discord.Bot
	LFG        *lfg.Service
	Commands   *commands.Dispatcher
	Supervisor *supervisor.Supervisor
	Metrics    *observability.Metrics

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*BuildResult, error) {
	if log == nil {
		log = observability.Discard()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	history, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTTL)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvent("expired")
		metrics.SetActiveSessions(sessions.ActiveCount())
		log.Info("session expired", "session_id", s.ID, "game", s.Game, "participants", len(s.Participants))

		writeCtx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
		defer cancel()
		if err := history.SaveExpired(writeCtx, archive.FromSession(s, time.Now().UTC())); err != nil {
			log.Warn("archive expired session", "session_id", s.ID, "err", err)
		}
	})

	bot, err := discord.New(cfg.DiscordToken, log.With("component", "discord"))
	if err != nil {
		_ = history.Close()
		return nil, err
	}

	service := lfg.NewService(sessions, bot, metrics, log.With("component", "lfg"), lfg.Config{
		MaxCapacity: cfg.MaxCapacity,
		AllowLeave:  cfg.AllowLeave,
	})

	dispatcher := commands.NewDispatcher(commands.Config{
		Prefix: cfg.CommandPrefix,
		Cooldowns: commands.Cooldowns{
			RailsTeam:   cfg.RailsTeamCooldown,
			LFG:         cfg.LFGCooldown,
			RailsUpdate: cfg.RailsUpdateCooldown,
		},
	}, bot, service, metrics, log.With("component", "commands"))

	bot.Bind(dispatcher, service, dispatcher.Names())

	sup := supervisor.New(cfg.RestartDelay, metrics, log.With("component", "supervisor"))
	api := httpapi.New(cfg, sessions, history, metrics, log.With("component", "httpapi"))

	log.Info("components ready",
		"history_mode", history.Mode(),
		"session_ttl", cfg.SessionTTL,
		"max_capacity", cfg.MaxCapacity,
		"allow_leave", cfg.AllowLeave,
	)

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Sessions:   sessions,
		History:    history,
		Bot:        bot,
		LFG:        service,
		Commands:   dispatcher,
		Supervisor: sup,
		Metrics:    metrics,
		Cleanup:    history.Close,
	}, nil
}
