package utils

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CheckPermission checks if a user has a specific permission in a guild.
// The session state cache is consulted first, then the REST API.
func CheckPermission(s *discordgo.Session, guildID, userID string, permission int64) (bool, error) {
	if guildID == "" {
		return false, nil
	}

	member, err := s.State.Member(guildID, userID)
	if err != nil {
		member, err = s.GuildMember(guildID, userID)
		if err != nil {
			return false, fmt.Errorf("error fetching member: %v", err)
		}
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return false, fmt.Errorf("error fetching guild: %v", err)
		}
	}

	if guild.OwnerID == userID {
		return true, nil
	}

	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Permissions&permission != 0 {
				return true, nil
			}
		}
	}

	return false, nil
}

// CheckAdminPermission checks if a user has administrator permissions in a guild
func CheckAdminPermission(s *discordgo.Session, guildID, userID string) (bool, error) {
	return CheckPermission(s, guildID, userID, discordgo.PermissionAdministrator)
}

// SplitArgs splits a message into lowercase command name and raw arguments,
// stripping the wake prefix. ok is false when the message is not a command.
func SplitArgs(content, prefix string) (cmd string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields, true
}
