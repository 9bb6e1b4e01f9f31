package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/antoniostano/railbot/internal/commands"
	"github.com/antoniostano/railbot/internal/lfg"
	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/reliability"
	"github.com/antoniostano/railbot/internal/session"
)

const handlerTimeout = 15 * time.Second

var ErrDisconnected = errors.New("discord gateway disconnected")

const intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildPresences |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildMessageReactions |
	discordgo.IntentMessageContent

type CommandHandler interface {
	Handle(ctx context.Context, msg commands.Message) bool
}

type SignalHandler interface {
	HandleJoinSignal(ctx context.Context, sig lfg.Signal) error
	HandleLeaveSignal(ctx context.Context, sig lfg.Signal) error
}

// Bot adapts a discordgo session to the command surface and the join
// protocol. Events are dispatched synchronously in gateway order.
type Bot struct {
	dg  *discordgo.Session
	log *slog.Logger

	mu           sync.Mutex
	runCtx       context.Context
	disconnected chan struct{}
	commands     CommandHandler
	signals      SignalHandler
	commandNames []string
}

func New(token string, log *slog.Logger) (*Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	if log == nil {
		log = observability.Discard()
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = intents
	dg.SyncEvents = true
	// Reconnects are owned by the supervisor.
	dg.ShouldReconnectOnError = false

	b := &Bot{dg: dg, log: log, runCtx: context.Background()}
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onDisconnect)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onReactionAdd)
	dg.AddHandler(b.onReactionRemove)
	return b, nil
}

// Bind attaches the inbound handlers. It must be called before Run.
func (b *Bot) Bind(cmds CommandHandler, signals SignalHandler, commandNames []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = cmds
	b.signals = signals
	b.commandNames = commandNames
}

// Run opens the gateway and blocks until ctx is done or the connection
// drops. A drop is reported as ErrDisconnected.
func (b *Bot) Run(ctx context.Context) error {
	disconnected := make(chan struct{}, 1)
	b.mu.Lock()
	b.runCtx = ctx
	b.disconnected = disconnected
	b.mu.Unlock()

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer func() {
		if err := b.dg.Close(); err != nil {
			b.log.Warn("close discord gateway", "err", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-disconnected:
		return ErrDisconnected
	}
}

func (b *Bot) handlerContext() (context.Context, context.CancelFunc) {
	b.mu.Lock()
	parent := b.runCtx
	b.mu.Unlock()
	return context.WithTimeout(parent, handlerTimeout)
}

func (b *Bot) handlers() (CommandHandler, SignalHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commands, b.signals
}

// guard keeps a panicking handler from taking the event loop down.
func (b *Bot) guard(event string) {
	if r := recover(); r != nil {
		b.log.Error("event handler panic", "event", event, "panic", r, "stack", string(debug.Stack()))
	}
}

func (b *Bot) selfID() string {
	if b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.mu.Lock()
	names := b.commandNames
	b.mu.Unlock()
	b.log.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds), "commands", strings.Join(names, ","))
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.mu.Lock()
	ch := b.disconnected
	b.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.guard("message_create")
	cmds, _ := b.handlers()
	if cmds == nil || m.Author == nil {
		return
	}
	ctx, cancel := b.handlerContext()
	defer cancel()
	cmds.Handle(ctx, toMessage(m))
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	defer b.guard("reaction_add")
	_, signals := b.handlers()
	if signals == nil || r.MessageReaction == nil {
		return
	}
	ctx, cancel := b.handlerContext()
	defer cancel()
	sig := toSignal(b.selfID(), r.MessageReaction, r.Member)
	if err := signals.HandleJoinSignal(ctx, sig); err != nil {
		b.logSignalError("join", sig, err)
	}
}

func (b *Bot) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	defer b.guard("reaction_remove")
	_, signals := b.handlers()
	if signals == nil || r.MessageReaction == nil {
		return
	}
	ctx, cancel := b.handlerContext()
	defer cancel()
	sig := toSignal(b.selfID(), r.MessageReaction, nil)
	if err := signals.HandleLeaveSignal(ctx, sig); err != nil {
		b.logSignalError("leave", sig, err)
	}
}

func (b *Bot) logSignalError(kind string, sig lfg.Signal, err error) {
	attrs := []any{"signal", kind, "session_id", sig.MessageID, "user_id", sig.UserID, "err", err}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		attrs = append(attrs, "status", rest.Response.StatusCode,
			"retryable", reliability.IsRetryableHTTPStatus(rest.Response.StatusCode))
	}
	b.log.Warn("signal handling failed", attrs...)
}

func toMessage(m *discordgo.MessageCreate) commands.Message {
	return commands.Message{
		GuildID:    m.GuildID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m.Author, m.Member),
		AuthorBot:  m.Author.Bot,
		Content:    m.Content,
	}
}

func toSignal(selfID string, r *discordgo.MessageReaction, member *discordgo.Member) lfg.Signal {
	fromBot := selfID != "" && r.UserID == selfID
	if member != nil && member.User != nil && member.User.Bot {
		fromBot = true
	}
	return lfg.Signal{
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Marker:    r.Emoji.Name,
		FromBot:   fromBot,
	}
}

func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// PostSession implements lfg.Platform.
func (b *Bot) PostSession(ctx context.Context, draft *session.Session, ttlText string) (string, error) {
	msg, err := b.dg.ChannelMessageSendEmbed(draft.ChannelID, sessionEmbed(draft, ttlText), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) UpdateSession(ctx context.Context, s *session.Session, ttlText string) error {
	_, err := b.dg.ChannelMessageEditEmbed(s.ChannelID, s.ID, sessionEmbed(s, ttlText), discordgo.WithContext(ctx))
	return err
}

func (b *Bot) AddMarker(ctx context.Context, channelID, messageID string) error {
	return b.dg.MessageReactionAdd(channelID, messageID, lfg.JoinMarker, discordgo.WithContext(ctx))
}

func (b *Bot) RevokeMarker(ctx context.Context, channelID, messageID, userID string) error {
	return b.dg.MessageReactionRemove(channelID, messageID, lfg.JoinMarker, userID, discordgo.WithContext(ctx))
}

func (b *Bot) DeletePost(ctx context.Context, channelID, messageID string) error {
	return b.dg.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (b *Bot) NotifyFull(ctx context.Context, channelID, userID string) error {
	return b.Send(ctx, channelID, fullNotice(userID))
}

// Send implements commands.Platform.
func (b *Bot) Send(ctx context.Context, channelID, text string) error {
	_, err := b.dg.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) SendUpdateNotice(ctx context.Context, channelID string) error {
	_, err := b.dg.ChannelMessageSendEmbed(channelID, updateEmbed(), discordgo.WithContext(ctx))
	return err
}

// GuildMembers reads members and presences from the gateway state cache.
func (b *Bot) GuildMembers(_ context.Context, guildID string) ([]commands.Member, error) {
	if guildID == "" {
		return nil, errors.New("command used outside a guild")
	}
	g, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}

	b.dg.State.RLock()
	defer b.dg.State.RUnlock()
	return guildMembers(g), nil
}

func guildMembers(g *discordgo.Guild) []commands.Member {
	status := make(map[string]discordgo.Status, len(g.Presences))
	for _, p := range g.Presences {
		if p != nil && p.User != nil {
			status[p.User.ID] = p.Status
		}
	}
	out := make([]commands.Member, 0, len(g.Members))
	for _, m := range g.Members {
		if m == nil || m.User == nil {
			continue
		}
		st, ok := status[m.User.ID]
		out = append(out, commands.Member{
			ID:     m.User.ID,
			Bot:    m.User.Bot,
			Online: ok && st != "" && st != discordgo.StatusOffline,
		})
	}
	return out
}
