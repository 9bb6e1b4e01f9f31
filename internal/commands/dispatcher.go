package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/railbot/internal/lfg"
	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/session"
)

const (
	CmdRailsTeam   = "railsteam"
	CmdLFG         = "lfg"
	CmdRailsUpdate = "railsupdate"
)

const genericFailure = "❌ An error occurred. Try again later."

var ErrUsage = errors.New("invalid command usage")

// UsageError carries the hint shown to the user. It matches ErrUsage.
type UsageError struct {
	Hint string
	Err  error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("usage: %s: %v", e.Hint, e.Err)
	}
	return "usage: " + e.Hint
}

func (e *UsageError) Unwrap() error        { return e.Err }
func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// Message is an inbound chat message.
type Message struct {
	GuildID    string
	ChannelID  string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	Content    string
}

// Member is a guild member as seen by the presence cache.
type Member struct {
	ID     string
	Bot    bool
	Online bool
}

type Platform interface {
	Send(ctx context.Context, channelID, text string) error
	SendUpdateNotice(ctx context.Context, channelID string) error
	GuildMembers(ctx context.Context, guildID string) ([]Member, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, req lfg.CreateRequest) (*session.Session, error)
}

type Cooldowns struct {
	RailsTeam   time.Duration
	LFG         time.Duration
	RailsUpdate time.Duration
}

type Config struct {
	Prefix    string
	Cooldowns Cooldowns
}

type command struct {
	cooldown time.Duration
	run      func(ctx context.Context, msg Message, args []string) error
}

// Dispatcher maps prefixed text commands to handlers.
type Dispatcher struct {
	prefix   string
	platform Platform
	sessions Sessions
	metrics  *observability.Metrics
	log      *slog.Logger
	cool     *cooldowns
	table    map[string]command
}

func NewDispatcher(cfg Config, platform Platform, sessions Sessions, metrics *observability.Metrics, log *slog.Logger) *Dispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if log == nil {
		log = observability.Discard()
	}
	d := &Dispatcher{
		prefix:   cfg.Prefix,
		platform: platform,
		sessions: sessions,
		metrics:  metrics,
		log:      log,
		cool:     newCooldowns(time.Now),
	}
	d.table = map[string]command{
		CmdRailsTeam:   {cooldown: cfg.Cooldowns.RailsTeam, run: d.railsTeam},
		CmdLFG:         {cooldown: cfg.Cooldowns.LFG, run: d.createLFG},
		CmdRailsUpdate: {cooldown: cfg.Cooldowns.RailsUpdate, run: d.railsUpdate},
	}
	return d
}

// SetClock replaces the cooldown time source. Intended for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.cool = newCooldowns(now)
}

// Names lists the recognised commands with their prefix.
func (d *Dispatcher) Names() []string {
	return []string{d.prefix + CmdRailsTeam, d.prefix + CmdLFG, d.prefix + CmdRailsUpdate}
}

// Handle runs msg if it is a known command and reports whether it was one.
// Errors never escape: they are turned into replies.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) bool {
	if msg.AuthorBot {
		return false
	}
	name, args, ok := parse(d.prefix, msg.Content)
	if !ok {
		return false
	}
	cmd, ok := d.table[name]
	if !ok {
		return false
	}

	log := d.log.With("command", name, "user_id", msg.AuthorID, "channel_id", msg.ChannelID, "invocation_id", uuid.NewString())

	if wait, ok := d.cool.take(name, msg.AuthorID, cmd.cooldown); !ok {
		cerr := &CooldownError{Command: name, RetryAfter: wait}
		d.metrics.Command(name, "cooldown")
		log.Debug("command on cooldown", "retry_after", wait)
		d.reply(ctx, log, msg.ChannelID, fmt.Sprintf("⏳ Please wait %d seconds before using this again!", cerr.Seconds()))
		return true
	}

	err := d.invoke(ctx, cmd, msg, args)
	var uerr *UsageError
	switch {
	case err == nil:
		d.metrics.Command(name, "ok")
	case errors.As(err, &uerr):
		d.cool.refund(name, msg.AuthorID)
		d.metrics.Command(name, "usage")
		log.Debug("command usage error", "err", err)
		d.reply(ctx, log, msg.ChannelID, uerr.Hint)
	default:
		d.metrics.Command(name, "error")
		log.Error("command failed", "err", err)
		d.reply(ctx, log, msg.ChannelID, genericFailure)
	}
	return true
}

func (d *Dispatcher) invoke(ctx context.Context, cmd command, msg Message, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panic: %v\n%s", r, debug.Stack())
		}
	}()
	return cmd.run(ctx, msg, args)
}

func (d *Dispatcher) reply(ctx context.Context, log *slog.Logger, channelID, text string) {
	if err := d.platform.Send(ctx, channelID, text); err != nil {
		d.metrics.NotifyError("send")
		log.Warn("reply failed", "err", err)
	}
}

func (d *Dispatcher) lfgUsage() string {
	return fmt.Sprintf("❌ Use format: `%s%s \"Game Name\" open/total`", d.prefix, CmdLFG)
}
