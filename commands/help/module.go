package help

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"HelpMenu/bot"
	"HelpMenu/commands"
	"HelpMenu/menu"
	"HelpMenu/utils"

	"github.com/bwmarrin/discordgo"
)

// ModuleID is the id of the help module; it never lists itself.
const ModuleID = "help"

func init() {
	module := &commands.ModuleInfo{
		Name:        "Help",
		Description: "Rendered help menus and paginated command lists",
		Version:     "1.0.0",
		Author:      "Bot Team",
		Reserved:    true,
		Commands: []commands.CommandInfo{
			{
				Name:        "help",
				Aliases:     []string{"h", "menu"},
				Description: "Shows the help menu, or one plugin's commands",
				Usage:       ".help [plugin] [--admin]",
			},
			{
				Name:        "commandlist",
				Aliases:     []string{"cl"},
				Description: "Lists all available commands as text",
				Usage:       ".commandlist [plugin]",
			},
		},
	}

	commands.RegisterModule(module)

	// Register command handlers
	commands.RegisterCommand("help", Help, "h", "menu")
	commands.RegisterCommand("commandlist", CommandList, "cl")
}

// FromBot builds a Router over the bot's registry and services.
func FromBot(b *bot.Bot) *Router {
	deps := Deps{
		Source:  commands.RegistrySource{},
		Assets:  utils.Assets{DataDir: b.DataDir},
		Limiter: b.Limiter,
		Prefix:  commands.WakePrefix,
		Version: b.Version,
		SelfID:  ModuleID,
		Logger:  b.Logger,
	}
	if b.Settings != nil {
		deps.Settings = b.Settings.Current
	}
	if b.Blacklist != nil {
		deps.Blacklist = b.Blacklist.List
	}
	if b.Renderer != nil {
		deps.Renderer = b.Renderer
	}
	if b.Templates != nil {
		deps.Templates = b.Templates
	}
	return NewRouter(deps)
}

func requestTimeout(b *bot.Bot) time.Duration {
	if b.Renderer != nil {
		// Room for the slot wait and the render itself.
		return b.Renderer.Timeout() + 5*time.Second
	}
	return 30 * time.Second
}

// Help handles .help, .help <plugin> and .help --admin.
func Help(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(b))
	defer cancel()

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		b.Logger.Debug("Error sending typing indicator", "error", err)
	}

	reply := FromBot(b).Handle(ctx, Request{
		UserID: m.Author.ID,
		Args:   args[1:],
		CheckAdmin: func() (bool, error) {
			return b.IsAdmin(s, m.GuildID, m.Author.ID)
		},
	})
	sendReply(b.Logger, s, m, reply)
}

func sendReply(logger *slog.Logger, s *discordgo.Session, m *discordgo.MessageCreate, reply Reply) {
	if reply.Image == nil {
		if _, err := s.ChannelMessageSend(m.ChannelID, reply.Text); err != nil {
			logger.Error("Error sending help reply", "error", err)
		}
		return
	}

	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{{
			Name:        reply.FileName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(reply.Image),
		}},
		Reference: m.Reference(),
	})
	if err != nil {
		logger.Error("Error sending help image", "view", reply.View, "error", err)
	}
}

// CommandList sends the menu as paginated text embeds. It works without the
// renderer.
func CommandList(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	// Ensure command is used in a guild
	if m.GuildID == "" {
		return // Don't respond to DMs
	}

	r := FromBot(b)
	settings := r.deps.Settings()
	if r.deps.Limiter != nil && !r.deps.Limiter.Allow(m.Author.ID, "commandlist") {
		wait := r.deps.Limiter.GetRetryAfter(m.Author.ID, "commandlist")
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Slow down! Try again in %d seconds.", wait))
		return
	}

	isAdmin := false
	if settings.AdminShowAll {
		ok, err := b.IsAdmin(s, m.GuildID, m.Author.ID)
		if err != nil {
			b.Logger.Warn("Error checking admin status", "user", m.Author.ID, "error", err)
		}
		isAdmin = ok
	}

	pages, err := r.CommandPages(context.Background(), settings, isAdmin, args[1:])
	if err != nil {
		var lookup *menu.LookupError
		if errors.As(err, &lookup) {
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("No plugin matches `%s`. Use `%scommandlist` to see all plugins.", lookup.Query, commands.WakePrefix))
			return
		}
		b.Logger.Error("Error creating command list pages", "error", err)
		if errors.Is(err, ErrBlacklistUnavailable) {
			s.ChannelMessageSend(m.ChannelID, blacklistFailureText)
			return
		}
		s.ChannelMessageSend(m.ChannelID, "Error generating command list.")
		return
	}

	// Send the first page
	msg, err := s.ChannelMessageSendEmbed(m.ChannelID, pages[0])
	if err != nil {
		b.Logger.Error("Error sending command list", "error", err)
		return
	}

	// If there's only one page, no need for pagination
	if len(pages) <= 1 {
		return
	}

	for _, emoji := range []string{pageLeft, pageRight} {
		if err := s.MessageReactionAdd(msg.ChannelID, msg.ID, emoji); err != nil {
			b.Logger.Warn("Error adding pagination reaction", "emoji", emoji, "error", err)
		}
	}

	paginationManager.AddState(&PaginationState{
		UserID:    m.Author.ID,
		MessageID: msg.ID,
		Pages:     pages,
	})
}

// HandlePagination handles pagination reactions
func HandlePagination(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	// Ignore bot reactions
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}

	page, ok := paginationManager.Turn(r.MessageID, r.UserID, r.Emoji.Name)
	if !ok {
		return
	}

	if _, err := s.ChannelMessageEditEmbed(r.ChannelID, r.MessageID, page); err != nil {
		slog.Error("Error editing paginated message", "error", err)
		return
	}

	// Remove the user's reaction
	if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.Name, r.UserID); err != nil {
		slog.Debug("Error removing reaction", "error", err)
	}
}

// Preheat warms the render cache for the bot's current settings.
func Preheat(ctx context.Context, b *bot.Bot) {
	if b.Renderer == nil {
		return
	}
	concurrency := 1
	if b.Settings != nil {
		concurrency = b.Settings.Current().RenderConcurrency
	}
	if _, err := FromBot(b).Preheat(ctx, concurrency); err != nil {
		b.Logger.Warn("Error preheating help menu", "error", err)
	}
}
