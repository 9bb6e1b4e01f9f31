package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/railbot/internal/lfg"
)

// maxMessageLen is Discord's limit for one message's content.
const maxMessageLen = 2000

const allAboard = "🚂 **ALL ABOARD!** "

func (d *Dispatcher) railsTeam(ctx context.Context, msg Message, _ []string) error {
	members, err := d.platform.GuildMembers(ctx, msg.GuildID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	var mentions []string
	for _, m := range members {
		if m.Bot || !m.Online || m.ID == msg.AuthorID {
			continue
		}
		mentions = append(mentions, Mention(m.ID))
	}
	if len(mentions) == 0 {
		return d.platform.Send(ctx, msg.ChannelID, "No one is online! 🚂")
	}
	for _, text := range splitMentions(allAboard, mentions, maxMessageLen) {
		if err := d.platform.Send(ctx, msg.ChannelID, text); err != nil {
			return err
		}
	}
	return nil
}

// splitMentions packs space-separated mentions into messages of at most
// limit bytes. Only the first message carries the prefix.
func splitMentions(prefix string, mentions []string, limit int) []string {
	var out []string
	var b strings.Builder
	b.WriteString(prefix)
	fresh := true
	for _, m := range mentions {
		sep := " "
		if fresh {
			sep = ""
		}
		if !fresh && b.Len()+len(sep)+len(m) > limit {
			out = append(out, b.String())
			b.Reset()
			sep = ""
		}
		b.WriteString(sep)
		b.WriteString(m)
		fresh = false
	}
	return append(out, b.String())
}

func (d *Dispatcher) createLFG(ctx context.Context, msg Message, args []string) error {
	if len(args) < 2 {
		return &UsageError{Hint: d.lfgUsage()}
	}
	_, err := d.sessions.CreateSession(ctx, lfg.CreateRequest{
		ChannelID: msg.ChannelID,
		HostID:    msg.AuthorID,
		HostName:  msg.AuthorName,
		Game:      args[0],
		Slots:     args[1],
	})
	if errors.Is(err, lfg.ErrInvalidSlots) || errors.Is(err, lfg.ErrMissingGame) {
		return &UsageError{Hint: d.lfgUsage(), Err: err}
	}
	return err
}

func (d *Dispatcher) railsUpdate(ctx context.Context, msg Message, _ []string) error {
	if err := d.platform.SendUpdateNotice(ctx, msg.ChannelID); err != nil {
		return fmt.Errorf("send update notice: %w", err)
	}
	return nil
}

// Mention renders a user reference the way Discord expects it.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
