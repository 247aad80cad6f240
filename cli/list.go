package main

import (
	"fmt"
	"io"
	"strings"

	"HelpMenu/commands"
	"HelpMenu/menu"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the plugins and commands the help menu shows",
	Long: `Display the help menu entries in menu order, after the blacklist,
overrides and custom categories from the settings file are applied.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listAdmin    bool
	listCommands bool
)

func init() {
	listCmd.Flags().BoolVar(&listAdmin, "admin", false, "Show the admin view, ignoring the blacklist")
	listCmd.Flags().BoolVar(&listCommands, "commands", false, "Also list each plugin's commands")
}

func runList(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	settings, err := loadSettings(logger)
	if err != nil {
		return err
	}
	router, err := newRouter(logger, settings, nil)
	if err != nil {
		return err
	}

	records, err := router.Records(cmd.Context(), settings, listAdmin)
	if err != nil {
		return err
	}
	displayRecords(cmd.OutOrStdout(), records, listCommands)
	return nil
}

func displayRecords(w io.Writer, records []menu.PluginRecord, withCommands bool) {
	fmt.Fprintln(w, "📦 Help Menu Entries:")
	fmt.Fprintln(w)

	shown, totalCommands := 0, 0
	for _, r := range records {
		if !r.Visible {
			continue
		}
		shown++
		totalCommands += len(r.Commands)

		kind := "plugin"
		if r.IsCategory {
			kind = "category"
		}
		fmt.Fprintf(w, "  %s [id: %s] (%s, sort %d) - %d commands\n", r.DisplayName, r.ID, kind, r.EffectiveSortKey(), len(r.Commands))
		if r.Description != "" {
			fmt.Fprintf(w, "    %s\n", r.Description)
		}
		if !withCommands {
			continue
		}
		for _, c := range r.Commands {
			fmt.Fprintf(w, "    %s", c.DisplayName(commands.WakePrefix))
			if len(c.Aliases) > 0 {
				fmt.Fprintf(w, " (%s)", strings.Join(c.Aliases, ", "))
			}
			if c.Summary != "" {
				fmt.Fprintf(w, " - %s", c.Summary)
			}
			if c.AdminOnly {
				fmt.Fprint(w, " [admin]")
			}
			fmt.Fprintln(w)
		}
	}

	if shown == 0 {
		fmt.Fprintln(w, "  No plugins to show.")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "📊 Summary: %d entries, %d commands\n", shown, totalCommands)
}
