package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"HelpMenu/bot"

	"github.com/bwmarrin/discordgo"
)

// SetAdmin grants bot admin, which unlocks .help --admin. Only the guild
// owner or an existing bot admin may use it.
func SetAdmin(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: .sa <@user> [off]")
		return
	}

	allowed, err := canGrant(b, s, m.GuildID, m.Author.ID)
	if err != nil {
		b.Logger.Error("Error checking owner status", "user", m.Author.ID, "error", err)
		s.ChannelMessageSend(m.ChannelID, "An error occurred. Please try again.")
		return
	}
	if !allowed {
		s.ChannelMessageSend(m.ChannelID, "You must be the server owner to use this command.")
		return
	}

	recipient, err := mentionID(args[1])
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, "Please mention a user or give their user ID.")
		return
	}
	grant := len(args) < 3 || !strings.EqualFold(args[2], "off")

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := b.SetBotAdmin(ctx, recipient, grant); err != nil {
		b.Logger.Error("Error updating admin", "user", recipient, "error", err)
		s.ChannelMessageSend(m.ChannelID, "An error occurred. Please try again.")
		return
	}

	if grant {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Promoted <@%s> to admin.", recipient))
	} else {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Removed admin from <@%s>.", recipient))
	}
}

func canGrant(b *bot.Bot, s *discordgo.Session, guildID, userID string) (bool, error) {
	isAdmin, err := b.IsBotAdmin(userID)
	if err != nil || isAdmin {
		return isAdmin, err
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return false, err
		}
	}
	return guild.OwnerID == userID, nil
}

// mentionID strips the mention markup from <@123> and <@!123> and rejects
// anything that is not a snowflake.
func mentionID(arg string) (string, error) {
	id := strings.TrimPrefix(strings.TrimSuffix(arg, ">"), "<@")
	id = strings.TrimPrefix(id, "!")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}
