package general

import (
	"HelpMenu/commands"
)

func init() {
	module := &commands.ModuleInfo{
		Name:        "General",
		Description: "General utility commands",
		Version:     "1.0.0",
		Author:      "Bot Team",
		Icon:        "icons/general.png",
		Commands: []commands.CommandInfo{
			{
				Name:        "ping",
				Aliases:     []string{"p"},
				Description: "Checks the bot's latency",
				Usage:       ".ping",
			},
			{
				Name:        "about",
				Description: "Shows the bot version and installed plugins",
				Usage:       ".about",
			},
			{
				Name: "info",
				Subcommands: []commands.CommandInfo{
					{
						Name:        "server",
						Description: "Shows information about this server",
						Usage:       ".info server",
					},
					{
						Name:        "user",
						Description: "Shows information about a user",
						Usage:       ".info user [@user]",
					},
				},
			},
		},
	}

	commands.RegisterModule(module)

	// Register command handlers
	commands.RegisterCommand("ping", Ping, "p")
	commands.RegisterCommand("about", About)
	commands.RegisterCommand("info", Info)
}
