package admin

import (
	"HelpMenu/commands"
)

func init() {
	module := &commands.ModuleInfo{
		Name:        "Admin",
		Description: "Administrative commands for the help menu",
		Version:     "1.0.0",
		Author:      "Bot Team",
		Commands: []commands.CommandInfo{
			{
				Name:        "helphide",
				Aliases:     []string{"hh"},
				Description: "Hides a plugin from the help menu, or lists hidden plugins",
				Usage:       ".helphide [plugin]",
				AdminOnly:   true,
			},
			{
				Name:        "helpshow",
				Aliases:     []string{"hs"},
				Description: "Shows a hidden plugin in the help menu again",
				Usage:       ".helpshow <plugin>",
				AdminOnly:   true,
			},
			{
				Name:        "setadmin",
				Aliases:     []string{"sa"},
				Description: "Grants or revokes bot admin for a user",
				Usage:       ".sa <@user> [off]",
				AdminOnly:   true,
			},
		},
	}

	commands.RegisterModule(module)

	// Register command handlers
	commands.RegisterCommand("helphide", HelpHide, "hh")
	commands.RegisterCommand("helpshow", HelpShow, "hs")
	commands.RegisterCommand("setadmin", SetAdmin, "sa")
}
