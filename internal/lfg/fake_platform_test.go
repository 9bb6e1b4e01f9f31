package lfg

import (
	"context"
	"fmt"
	"sync"

	"github.com/antoniostano/railbot/internal/session"
)

type call struct {
	op        string
	channelID string
	messageID string
	userID    string
	players   []string
}

type fakePlatform struct {
	mu      sync.Mutex
	nextID  int
	calls   []call
	postErr error
	// onRevoke, when set, is invoked after every RevokeMarker.
	onRevoke func(channelID, messageID, userID string)
}

func (p *fakePlatform) record(c call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

func (p *fakePlatform) PostSession(_ context.Context, draft *session.Session, _ string) (string, error) {
	if p.postErr != nil {
		return "", p.postErr
	}
	p.mu.Lock()
	p.nextID++
	id := fmt.Sprintf("msg-%d", p.nextID)
	p.mu.Unlock()
	p.record(call{op: "post", channelID: draft.ChannelID, messageID: id, players: draft.Participants})
	return id, nil
}

func (p *fakePlatform) UpdateSession(_ context.Context, s *session.Session, _ string) error {
	p.record(call{op: "update", channelID: s.ChannelID, messageID: s.ID, players: s.Participants})
	return nil
}

func (p *fakePlatform) AddMarker(_ context.Context, channelID, messageID string) error {
	p.record(call{op: "add_marker", channelID: channelID, messageID: messageID})
	return nil
}

func (p *fakePlatform) RevokeMarker(_ context.Context, channelID, messageID, userID string) error {
	p.record(call{op: "revoke", channelID: channelID, messageID: messageID, userID: userID})
	p.mu.Lock()
	echo := p.onRevoke
	p.mu.Unlock()
	if echo != nil {
		// Mirror the gateway: a revoked marker arrives back as a removal.
		echo(channelID, messageID, userID)
	}
	return nil
}

func (p *fakePlatform) DeletePost(_ context.Context, channelID, messageID string) error {
	p.record(call{op: "delete", channelID: channelID, messageID: messageID})
	return nil
}

func (p *fakePlatform) NotifyFull(_ context.Context, channelID, userID string) error {
	p.record(call{op: "notify_full", channelID: channelID, userID: userID})
	return nil
}

func (p *fakePlatform) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.op)
	}
	return out
}

func (p *fakePlatform) last() call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func (p *fakePlatform) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
