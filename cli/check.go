package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"HelpMenu/config"
	"HelpMenu/menu"
	"HelpMenu/templates"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the settings file and custom templates",
	Long: `Report every settings value that would be dropped and replaced by its
default, and which views use a custom template.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	problems, err := checkSettingsFile(opts.configPath)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		fmt.Fprintf(w, "✅ %s: no problems\n", opts.configPath)
	} else {
		fmt.Fprintf(w, "⚠️  %s: %d values reset to defaults\n", opts.configPath, len(problems))
		for _, p := range problems {
			fmt.Fprintf(w, "  - %v\n", p)
		}
	}

	reportTemplates(w, templates.NewSelector(opts.dataDir, newLogger()))
	return nil
}

// checkSettingsFile resolves the settings file and returns the values that
// were dropped. A missing file has no problems.
func checkSettingsFile(path string) ([]*config.ConfigError, error) {
	raw, err := config.LoadRaw(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = config.Resolve(raw)
	return configErrors(err), nil
}

func configErrors(err error) []*config.ConfigError {
	if err == nil {
		return nil
	}
	var out []*config.ConfigError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, configErrors(e)...)
		}
		return out
	}
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		out = append(out, ce)
	}
	return out
}

func reportTemplates(w io.Writer, sel *templates.Selector) {
	fmt.Fprintln(w, "Templates:")
	for _, view := range []menu.View{menu.ViewMainCard, menu.ViewMainExpanded, menu.ViewSubDetail} {
		t, err := sel.Select(view, true)
		switch {
		case err != nil:
			fmt.Fprintf(w, "  %s: error: %v\n", view, err)
		case t.Custom:
			fmt.Fprintf(w, "  %s: custom (%s)\n", view, sel.OverridePath(view))
		default:
			fmt.Fprintf(w, "  %s: built-in\n", view)
		}
	}
}
