package main

import (
	"fmt"

	"HelpMenu/render"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the headless browser used for rendering",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "Installing the Chromium render engine...")
		if err := render.Install(); err != nil {
			return fmt.Errorf("install render engine: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Render engine installed")
		return nil
	},
}
