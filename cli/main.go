package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "helpmenu",
	Short: "HelpMenu CLI - Preview and manage the bot's rendered help menu",
	Long: `A CLI tool for the help menu plugin.
List what the menu would show, render it to a PNG or HTML file, check the
settings file, and install the browser engine used for rendering.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Same .env as the bot, for HELP_CONFIG and HELP_DATA_DIR.
		_ = godotenv.Load()
		if v := os.Getenv("HELP_CONFIG"); v != "" && !cmd.Flags().Changed("config") {
			opts.configPath = v
		}
		if v := os.Getenv("HELP_DATA_DIR"); v != "" && !cmd.Flags().Changed("data-dir") {
			opts.dataDir = v
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "data/help.yaml", "Settings file")
	f.StringVarP(&opts.dataDir, "data-dir", "d", "data", "Plugin data directory (images, custom_templates)")
	f.StringVarP(&opts.manifest, "manifest", "m", "", "YAML plugin manifest to use instead of the built-in modules")
	f.StringVar(&opts.scanDir, "scan", "", "Discover plugins from module.go files under this directory")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(installCmd)
}
