package lfg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/session"
)

// JoinMarker is the reaction users attach to an LFG post to take a seat.
const JoinMarker = "✅"

var ErrMissingGame = errors.New("game name is required")

// pendingRevocationTTL bounds how long a revocation waits for its removal echo.
const pendingRevocationTTL = time.Minute

// Platform is the slice of the chat platform the protocol talks to.
type Platform interface {
	// PostSession publishes a new LFG post and returns its message ID.
	PostSession(ctx context.Context, draft *session.Session, ttlText string) (string, error)
	UpdateSession(ctx context.Context, s *session.Session, ttlText string) error
	AddMarker(ctx context.Context, channelID, messageID string) error
	RevokeMarker(ctx context.Context, channelID, messageID, userID string) error
	NotifyFull(ctx context.Context, channelID, userID string) error
	DeletePost(ctx context.Context, channelID, messageID string) error
}

// Signal is a marker added to or removed from a message.
type Signal struct {
	ChannelID string
	MessageID string
	UserID    string
	Marker    string
	// FromBot is set when the acting account is this bot or any other bot.
	FromBot bool
}

type CreateRequest struct {
	ChannelID string
	HostID    string
	HostName  string
	Game      string
	Slots     string
}

type Config struct {
	MaxCapacity int
	AllowLeave  bool
}

// Service owns the join protocol. All session mutations from the outside go
// through it.
type Service struct {
	store    *session.Store
	platform Platform
	metrics  *observability.Metrics
	log      *slog.Logger
	cfg      Config

	// Removals the platform will echo back for markers we revoked ourselves.
	mu      sync.Mutex
	pending map[revocation]time.Time
	now     func() time.Time
}

type revocation struct {
	messageID string
	userID    string
}

func NewService(store *session.Store, platform Platform, metrics *observability.Metrics, log *slog.Logger, cfg Config) *Service {
	if cfg.MaxCapacity <= 0 || cfg.MaxCapacity > DefaultMaxCapacity {
		cfg.MaxCapacity = DefaultMaxCapacity
	}
	if log == nil {
		log = observability.Discard()
	}
	return &Service{
		store:    store,
		platform: platform,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		pending:  make(map[revocation]time.Time),
		now:      time.Now,
	}
}

func (s *Service) Store() *session.Store {
	return s.store
}

// CreateSession posts an LFG message and registers it under the posted
// message ID with the host already seated.
func (s *Service) CreateSession(ctx context.Context, req CreateRequest) (*session.Session, error) {
	game := strings.TrimSpace(req.Game)
	if game == "" {
		return nil, ErrMissingGame
	}
	slots, err := ParseSlots(req.Slots, s.cfg.MaxCapacity)
	if err != nil {
		return nil, err
	}

	draft := &session.Session{
		ChannelID:    req.ChannelID,
		Game:         game,
		HostID:       req.HostID,
		HostName:     req.HostName,
		Participants: []string{req.HostID},
		Capacity:     slots.Total,
	}
	ttlText := HumanTTL(s.store.TTL())
	messageID, err := s.platform.PostSession(ctx, draft, ttlText)
	if err != nil {
		return nil, fmt.Errorf("post session: %w", err)
	}

	sess, err := s.store.Create(session.CreateParams{
		ID:        messageID,
		ChannelID: req.ChannelID,
		Game:      game,
		HostID:    req.HostID,
		HostName:  req.HostName,
		Capacity:  slots.Total,
	})
	if err != nil {
		if delErr := s.platform.DeletePost(ctx, req.ChannelID, messageID); delErr != nil {
			s.metrics.NotifyError("delete_post")
			s.log.Warn("orphaned lfg post left in channel", "session_id", messageID, "channel_id", req.ChannelID, "err", delErr)
		}
		return nil, fmt.Errorf("register session: %w", err)
	}
	s.metrics.SessionEvent("created")
	s.metrics.SetActiveSessions(s.store.ActiveCount())
	s.log.Info("lfg session created",
		"session_id", sess.ID, "game", sess.Game, "host_id", sess.HostID, "capacity", sess.Capacity)

	if err := s.platform.AddMarker(ctx, sess.ChannelID, sess.ID); err != nil {
		s.metrics.NotifyError("add_marker")
		s.log.Warn("add join marker failed", "session_id", sess.ID, "err", err)
	}
	return sess, nil
}

// HandleJoinSignal processes one "marker added" event. Stale or unrelated
// messages are ignored without error.
func (s *Service) HandleJoinSignal(ctx context.Context, sig Signal) error {
	if sig.FromBot || sig.Marker != JoinMarker {
		return nil
	}
	res, err := s.store.Join(sig.MessageID, sig.UserID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	log := s.log.With("session_id", sig.MessageID, "user_id", sig.UserID)
	switch res.Outcome {
	case session.JoinAlreadyMember:
		s.metrics.SessionEvent("rejoin_revoked")
		log.Debug("duplicate join marker revoked")
		return s.revoke(ctx, sig)

	case session.JoinFull:
		s.metrics.SessionEvent("rejected_full")
		log.Info("join rejected, session full")
		var errs []error
		if err := s.platform.NotifyFull(ctx, sig.ChannelID, sig.UserID); err != nil {
			s.metrics.NotifyError("notify_full")
			errs = append(errs, fmt.Errorf("notify full: %w", err))
		}
		if err := s.revoke(ctx, sig); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)

	default:
		s.metrics.SessionEvent("joined")
		log.Info("player joined", "players", len(res.Session.Participants), "capacity", res.Session.Capacity)
		return s.render(ctx, res.Session)
	}
}

// HandleLeaveSignal processes one "marker removed" event. Only seated,
// non-host users are affected. Removals caused by our own revocations are
// consumed without touching the roster.
func (s *Service) HandleLeaveSignal(ctx context.Context, sig Signal) error {
	if sig.FromBot || sig.Marker != JoinMarker {
		return nil
	}
	if s.consumeRevocation(revocation{messageID: sig.MessageID, userID: sig.UserID}) {
		s.log.Debug("ignored removal of revoked marker", "session_id", sig.MessageID, "user_id", sig.UserID)
		return nil
	}
	if !s.cfg.AllowLeave {
		return nil
	}
	res, err := s.store.Leave(sig.MessageID, sig.UserID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if res.Outcome != session.LeaveRemoved {
		return nil
	}
	s.metrics.SessionEvent("left")
	s.log.Info("player left", "session_id", sig.MessageID, "user_id", sig.UserID)
	return s.render(ctx, res.Session)
}

func (s *Service) revoke(ctx context.Context, sig Signal) error {
	key := revocation{messageID: sig.MessageID, userID: sig.UserID}
	// Registered before the call: the removal event can arrive before it returns.
	s.expectRevocation(key)
	if err := s.platform.RevokeMarker(ctx, sig.ChannelID, sig.MessageID, sig.UserID); err != nil {
		s.consumeRevocation(key)
		s.metrics.NotifyError("revoke_marker")
		return fmt.Errorf("revoke marker: %w", err)
	}
	return nil
}

func (s *Service) expectRevocation(key revocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, at := range s.pending {
		if now.Sub(at) > pendingRevocationTTL {
			delete(s.pending, k)
		}
	}
	s.pending[key] = now
}

// consumeRevocation reports whether key was pending and clears it.
func (s *Service) consumeRevocation(key revocation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	return s.now().Sub(at) <= pendingRevocationTTL
}

func (s *Service) render(ctx context.Context, sess *session.Session) error {
	if err := s.platform.UpdateSession(ctx, sess, HumanTTL(s.store.TTL())); err != nil {
		s.metrics.NotifyError("update_session")
		return fmt.Errorf("update session post: %w", err)
	}
	return nil
}
