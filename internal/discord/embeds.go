package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/antoniostano/railbot/internal/commands"
	"github.com/antoniostano/railbot/internal/lfg"
	"github.com/antoniostano/railbot/internal/session"
)

const (
	colorLFG    = 0x3498db
	colorUpdate = 0x00ff00
)

// maxFieldValueLen is Discord's limit for one embed field value.
const maxFieldValueLen = 1024

// Static release notes shown by the update command.
const (
	updateTitle = "🚂 Dead Rails v2.1.0"
	updateBody  = "**Latest Update**\n- New haunted map\n- Fixed ghost train bug"
)

func sessionEmbed(s *session.Session, ttlText string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🚂 LFG: " + s.Game,
		Description: fmt.Sprintf("**%d/%d slots open**\nReact with %s to join!", s.OpenSlots(), s.Capacity, lfg.JoinMarker),
		Color:       colorLFG,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Hosted by %s | Expires in %s", s.HostName, ttlText),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Players", Value: playerList(s.Participants)},
		},
	}
}

// playerList renders one mention per line in join order. Players that do
// not fit in one field are summarised on a last line.
func playerList(ids []string) string {
	var b strings.Builder
	for i, id := range ids {
		line := commands.Mention(id)
		if i > 0 {
			line = "\n" + line
		}
		rest := len(ids) - i - 1
		reserve := 0
		if rest > 0 {
			reserve = len(moreLine(rest))
		}
		if b.Len()+len(line)+reserve > maxFieldValueLen {
			b.WriteString(moreLine(len(ids) - i))
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func moreLine(n int) string {
	return fmt.Sprintf("\n…and %d more", n)
}

func updateEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       updateTitle,
		Description: updateBody,
		Color:       colorUpdate,
	}
}

func fullNotice(userID string) string {
	return fmt.Sprintf("❌ %s Group is full!", commands.Mention(userID))
}
