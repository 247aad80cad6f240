package general

import (
	"fmt"
	"strings"
	"time"

	"HelpMenu/bot"
	"HelpMenu/commands"

	"github.com/bwmarrin/discordgo"
)

// Ping replies with the gateway latency.
func Ping(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Pong! %s", s.HeartbeatLatency().Round(time.Millisecond)))
}

// About lists the bot version and the installed plugins.
func About(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	s.ChannelMessageSend(m.ChannelID, aboutText(b.Version, commands.Modules()))
}

func aboutText(version string, modules []*commands.ModuleInfo) string {
	if version == "" {
		version = "dev"
	}
	var lines []string
	for _, m := range modules {
		if m.Disabled {
			continue
		}
		line := m.DisplayName
		if line == "" {
			line = m.Name
		}
		if m.Version != "" {
			line += " v" + m.Version
		}
		if m.Author != "" {
			line += " by " + m.Author
		}
		lines = append(lines, "- "+line)
	}
	header := fmt.Sprintf("HelpMenu v%s with %d plugins", version, len(lines))
	if len(lines) == 0 {
		return header
	}
	return header + ":\n" + strings.Join(lines, "\n")
}

// Info is a command group; the first argument picks the subcommand.
func Info(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: `.info server` or `.info user [@user]`")
		return
	}

	switch strings.ToLower(args[1]) {
	case "server":
		guild, err := s.State.Guild(m.GuildID)
		if err != nil {
			if guild, err = s.Guild(m.GuildID); err != nil {
				b.Logger.Error("Error fetching guild", "guild", m.GuildID, "error", err)
				s.ChannelMessageSend(m.ChannelID, "Could not load server information.")
				return
			}
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("**%s**\nMembers: %d\nOwner: <@%s>", guild.Name, guild.MemberCount, guild.OwnerID))
	case "user":
		user := m.Author
		if len(m.Mentions) > 0 {
			user = m.Mentions[0]
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("**%s**\nID: %s\nBot: %t", user.Username, user.ID, user.Bot))
	default:
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Unknown subcommand `%s`.", args[1]))
	}
}
