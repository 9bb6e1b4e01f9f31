package discord

import (
	"fmt"
	"strings"
	"testing"

	"github.com/antoniostano/railbot/internal/lfg"
	"github.com/antoniostano/railbot/internal/session"
)

func snowflakes(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%020d", 12345678901234567890-uint64(i))
	}
	return ids
}

func TestSessionEmbed(t *testing.T) {
	s := &session.Session{
		Game:         "Dead Rails",
		HostName:     "Conductor",
		Participants: []string{"1", "2"},
		Capacity:     4,
	}
	e := sessionEmbed(s, "1 hour")

	if e.Title != "🚂 LFG: Dead Rails" {
		t.Fatalf("Title = %q", e.Title)
	}
	if e.Description != "**2/4 slots open**\nReact with ✅ to join!" {
		t.Fatalf("Description = %q", e.Description)
	}
	if e.Footer == nil || e.Footer.Text != "Hosted by Conductor | Expires in 1 hour" {
		t.Fatalf("Footer = %+v", e.Footer)
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "Players" || e.Fields[0].Value != "<@1>\n<@2>" {
		t.Fatalf("Fields = %+v", e.Fields)
	}
	if e.Color != colorLFG {
		t.Fatalf("Color = %#x, want %#x", e.Color, colorLFG)
	}
}

func TestFullNotice(t *testing.T) {
	if got := fullNotice("42"); got != "❌ <@42> Group is full!" {
		t.Fatalf("fullNotice() = %q", got)
	}
}

func TestUpdateEmbed(t *testing.T) {
	e := updateEmbed()
	if e.Title != updateTitle || e.Description != updateBody || e.Color != colorUpdate {
		t.Fatalf("unexpected update embed: %+v", e)
	}
}

func TestSessionEmbedFitsAtMaxCapacity(t *testing.T) {
	s := &session.Session{
		Game:         "Dead Rails",
		HostName:     "Conductor",
		Participants: snowflakes(lfg.DefaultMaxCapacity),
		Capacity:     lfg.DefaultMaxCapacity,
	}
	value := sessionEmbed(s, "1 hour").Fields[0].Value

	if len(value) > maxFieldValueLen {
		t.Fatalf("Players field length = %d, want <= %d", len(value), maxFieldValueLen)
	}
	if got := strings.Count(value, "<@"); got != lfg.DefaultMaxCapacity {
		t.Fatalf("Players field lists %d mentions, want %d", got, lfg.DefaultMaxCapacity)
	}
	if strings.Contains(value, "more") {
		t.Fatalf("Players field was truncated at max capacity: %q", value)
	}
}

func TestPlayerListTruncatesOverflow(t *testing.T) {
	ids := snowflakes(100)
	value := playerList(ids)

	if len(value) > maxFieldValueLen {
		t.Fatalf("playerList() length = %d, want <= %d", len(value), maxFieldValueLen)
	}
	shown := strings.Count(value, "<@")
	want := fmt.Sprintf("…and %d more", len(ids)-shown)
	if !strings.HasSuffix(value, want) {
		t.Fatalf("playerList() tail = %q, want suffix %q", value[len(value)-min(40, len(value)):], want)
	}
}
