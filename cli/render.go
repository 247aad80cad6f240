package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"HelpMenu/commands/help"
	"HelpMenu/render"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [plugin]",
	Short: "Render the help menu to a file",
	Long: `Render the main menu, or the detail view of one plugin, exactly as the
bot would send it. With --html the filled page is written instead of a PNG,
which needs no browser.`,
	RunE: runRender,
}

var (
	renderAdmin bool
	renderHTML  bool
	renderOut   string
)

func init() {
	renderCmd.Flags().BoolVar(&renderAdmin, "admin", false, "Render the admin view")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "Write the filled HTML instead of a PNG")
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "", "Output file (default help.png or help.html)")
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := loadSettings(logger)
	if err != nil {
		return err
	}

	var renderer help.Renderer
	if !renderHTML {
		service, err := render.NewService(render.NewPlaywrightEngine("", logger),
			render.WithConcurrency(settings.RenderConcurrency),
			render.WithTimeout(settings.RenderTimeout),
			render.WithLogger(logger))
		if err != nil {
			return err
		}
		defer service.Close()
		renderer = service
	}

	router, err := newRouter(logger, settings, renderer)
	if err != nil {
		return err
	}

	rc, err := router.Context(ctx, settings, renderAdmin, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := renderOut
	var data []byte
	if renderHTML {
		if out == "" {
			out = "help.html"
		}
		data = []byte(router.Fill(settings, rc))
	} else {
		if out == "" {
			out = "help.png"
		}
		if data, err = router.Render(ctx, settings, rc); err != nil {
			if render.KindOf(err) == render.NotInstalled {
				return fmt.Errorf("%w (run `helpmenu install` first)", err)
			}
			return err
		}
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Rendered %s view to %s\n", rc.View, out)
	return nil
}
