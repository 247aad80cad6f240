package main

import (
	"fmt"
	"log/slog"
	"os"

	"HelpMenu/bot"
	"HelpMenu/commands"
	_ "HelpMenu/commands/admin"
	_ "HelpMenu/commands/general"
	"HelpMenu/commands/help"
	"HelpMenu/config"
	"HelpMenu/menu"
	"HelpMenu/templates"
	"HelpMenu/utils"

	"gopkg.in/yaml.v3"
)

type options struct {
	configPath string
	dataDir    string
	manifest   string
	scanDir    string
	logLevel   string
}

var opts options

// Manifest lists plugins for previewing a menu without the bot.
type Manifest struct {
	Plugins []ManifestPlugin `yaml:"plugins"`
}

type ManifestPlugin struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Icon        string            `yaml:"icon"`
	Reserved    bool              `yaml:"reserved"`
	Disabled    bool              `yaml:"disabled"`
	Commands    []ManifestCommand `yaml:"commands"`
}

type ManifestCommand struct {
	Name        string            `yaml:"name"`
	Aliases     []string          `yaml:"aliases"`
	Summary     string            `yaml:"summary"`
	Usage       string            `yaml:"usage"`
	AdminOnly   bool              `yaml:"admin_only"`
	Subcommands []ManifestCommand `yaml:"subcommands"`
}

func newLogger() *slog.Logger {
	return utils.NewLogger(os.Stderr, opts.logLevel)
}

func loadSettings(logger *slog.Logger) (*config.Settings, error) {
	store, err := config.NewStore(opts.configPath, config.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return store.Current(), nil
}

// pluginSource picks the manifest, the scanned directory or the modules
// compiled into this binary, in that order.
func pluginSource(logger *slog.Logger) (menu.PluginSource, error) {
	switch {
	case opts.manifest != "":
		return loadManifest(opts.manifest)
	case opts.scanDir != "":
		plugins, err := discoverModules(opts.scanDir, logger)
		if err != nil {
			return nil, err
		}
		return menu.StaticSource(plugins), nil
	default:
		return commands.RegistrySource{}, nil
	}
}

func loadManifest(path string) (menu.StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m.Source(), nil
}

// Source converts the manifest into plugin metadata.
func (m Manifest) Source() menu.StaticSource {
	out := make(menu.StaticSource, 0, len(m.Plugins))
	for _, p := range m.Plugins {
		out = append(out, menu.PluginMeta{
			ID:          p.ID,
			DisplayName: p.Name,
			Description: p.Description,
			IconPath:    p.Icon,
			Reserved:    p.Reserved,
			Activated:   !p.Disabled,
			Commands:    manifestCommands(p.Commands),
		})
	}
	return out
}

func manifestCommands(cmds []ManifestCommand) []menu.CommandMeta {
	if len(cmds) == 0 {
		return nil
	}
	out := make([]menu.CommandMeta, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, menu.CommandMeta{
			Name:        c.Name,
			Aliases:     c.Aliases,
			Summary:     c.Summary,
			Usage:       c.Usage,
			AdminOnly:   c.AdminOnly,
			Subcommands: manifestCommands(c.Subcommands),
		})
	}
	return out
}

func newRouter(logger *slog.Logger, settings *config.Settings, renderer help.Renderer) (*help.Router, error) {
	source, err := pluginSource(logger)
	if err != nil {
		return nil, err
	}
	deps := help.Deps{
		Source:    source,
		Settings:  func() *config.Settings { return settings },
		Templates: templates.NewSelector(opts.dataDir, logger),
		Assets:    utils.Assets{DataDir: opts.dataDir},
		Prefix:    commands.WakePrefix,
		Version:   bot.BuildVersion,
		SelfID:    help.ModuleID,
		Logger:    logger,
	}
	if renderer != nil {
		deps.Renderer = renderer
	}
	return help.NewRouter(deps), nil
}
