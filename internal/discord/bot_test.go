package discord

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestToMessageUsesDisplayName(t *testing.T) {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   "g",
		ChannelID: "c",
		Content:   "!lfg Rails 1/2",
		Author:    &discordgo.User{ID: "u", Username: "user", GlobalName: "Global"},
		Member:    &discordgo.Member{Nick: "Nick"},
	}}
	got := toMessage(m)
	if got.AuthorName != "Nick" || got.AuthorID != "u" || got.Content != "!lfg Rails 1/2" || got.GuildID != "g" {
		t.Fatalf("unexpected message: %+v", got)
	}

	m.Member = nil
	if got := toMessage(m); got.AuthorName != "Global" {
		t.Fatalf("AuthorName = %q, want Global", got.AuthorName)
	}
	m.Author.GlobalName = ""
	if got := toMessage(m); got.AuthorName != "user" {
		t.Fatalf("AuthorName = %q, want user", got.AuthorName)
	}
}

func TestToSignalFlagsBots(t *testing.T) {
	r := &discordgo.MessageReaction{
		UserID:    "self",
		MessageID: "m",
		ChannelID: "c",
		Emoji:     discordgo.Emoji{Name: "✅"},
	}
	if sig := toSignal("self", r, nil); !sig.FromBot {
		t.Fatalf("own reaction not flagged as bot")
	}

	r.UserID = "other-bot"
	if sig := toSignal("self", r, &discordgo.Member{User: &discordgo.User{ID: "other-bot", Bot: true}}); !sig.FromBot {
		t.Fatalf("bot member not flagged as bot")
	}

	r.UserID = "human"
	sig := toSignal("self", r, nil)
	if sig.FromBot || sig.Marker != "✅" || sig.MessageID != "m" || sig.ChannelID != "c" || sig.UserID != "human" {
		t.Fatalf("unexpected signal: %+v", sig)
	}
}

func TestGuildMembersPresence(t *testing.T) {
	g := &discordgo.Guild{
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "1"}},
			{User: &discordgo.User{ID: "2"}},
			{User: &discordgo.User{ID: "3", Bot: true}},
			{User: &discordgo.User{ID: "4"}},
			nil,
		},
		Presences: []*discordgo.Presence{
			{User: &discordgo.User{ID: "1"}, Status: discordgo.StatusOnline},
			{User: &discordgo.User{ID: "2"}, Status: discordgo.StatusOffline},
			{User: &discordgo.User{ID: "3"}, Status: discordgo.StatusIdle},
		},
	}
	got := guildMembers(g)
	if want := "[{1 false true} {2 false false} {3 true true} {4 false false}]"; fmt.Sprint(got) != want {
		t.Fatalf("guildMembers() = %v, want %s", got, want)
	}
}
