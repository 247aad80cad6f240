package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"HelpMenu/bot"
	"HelpMenu/commands"

	"github.com/bwmarrin/discordgo"
)

const dbTimeout = 5 * time.Second

// HelpHide hides a plugin from the help menu for non-admins. Without an
// argument it lists the hidden plugins.
func HelpHide(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !requireAdmin(b, s, m) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if len(args) < 2 {
		ids, err := b.Blacklist.List(ctx)
		if err != nil {
			b.Logger.Error("Error listing help blacklist", "error", err)
			s.ChannelMessageSend(m.ChannelID, "Error loading hidden plugins.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, hiddenList(ids))
		return
	}

	id, ok := resolvePluginID(commands.Modules(), strings.Join(args[1:], " "))
	if !ok {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Unknown plugin `%s`.", strings.Join(args[1:], " ")))
		return
	}

	added, err := b.Blacklist.Add(ctx, id, m.Author.ID)
	if err != nil {
		b.Logger.Error("Error hiding plugin", "plugin", id, "error", err)
		s.ChannelMessageSend(m.ChannelID, "Error hiding plugin.")
		return
	}
	if !added {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("`%s` is already hidden.", id))
		return
	}

	menuChanged(b)
	b.Logger.Info("plugin hidden from help", "plugin", id, "by", m.Author.ID)
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Successfully hid `%s` from the help menu.", id))
}

// HelpShow removes a plugin from the runtime blacklist.
func HelpShow(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !requireAdmin(b, s, m) {
		return
	}

	if len(args) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: `.helpshow <plugin>`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	// Hidden ids may belong to plugins that are no longer installed.
	query := strings.Join(args[1:], " ")
	id, ok := resolvePluginID(commands.Modules(), query)
	if !ok {
		id = strings.ToLower(query)
	}

	removed, err := b.Blacklist.Remove(ctx, id)
	if err != nil {
		b.Logger.Error("Error showing plugin", "plugin", id, "error", err)
		s.ChannelMessageSend(m.ChannelID, "Error showing plugin.")
		return
	}
	if !removed {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("`%s` is not hidden.", id))
		return
	}

	menuChanged(b)
	b.Logger.Info("plugin shown in help", "plugin", id, "by", m.Author.ID)
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Successfully restored `%s` to the help menu.", id))
}

func requireAdmin(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) bool {
	isAdmin, err := b.IsAdmin(s, m.GuildID, m.Author.ID)
	if err != nil {
		b.Logger.Warn("Error checking admin status", "user", m.Author.ID, "error", err)
	}
	if !isAdmin {
		s.ChannelMessageSend(m.ChannelID, "You must be an administrator to use this command.")
		return false
	}
	if b.Blacklist == nil {
		s.ChannelMessageSend(m.ChannelID, "The help blacklist is not available.")
		return false
	}
	return true
}

// menuChanged drops cached images, which no longer match the menu.
func menuChanged(b *bot.Bot) {
	if b.Renderer != nil {
		b.Renderer.Purge()
	}
}

// resolvePluginID matches a module by id or display name.
func resolvePluginID(modules []*commands.ModuleInfo, query string) (string, bool) {
	query = strings.TrimSpace(query)
	for _, m := range modules {
		if strings.EqualFold(m.ID(), query) || (m.DisplayName != "" && strings.EqualFold(m.DisplayName, query)) {
			return m.ID(), true
		}
	}
	return "", false
}

func hiddenList(ids []string) string {
	if len(ids) == 0 {
		return "No plugins are hidden from the help menu."
	}
	var sb strings.Builder
	sb.WriteString("Hidden from the help menu:\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "- `%s`\n", id)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
