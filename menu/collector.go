package menu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// CommandMeta is a command as declared to the host. A command with
// Subcommands is a group; only its leaves are listed, as "group sub".
type CommandMeta struct {
	Name        string
	Aliases     []string
	Summary     string
	Usage       string
	AdminOnly   bool
	Subcommands []CommandMeta
}

// PluginMeta is what the host reports about one installed plugin.
type PluginMeta struct {
	ID          string
	DisplayName string
	Description string
	IconPath    string
	Reserved    bool
	Activated   bool
	Commands    []CommandMeta
}

// PluginSource enumerates the plugins installed in the host, in the order
// the host reports them.
type PluginSource interface {
	ListPlugins(ctx context.Context) ([]PluginMeta, error)
}

// Assets resolves images for the menu.
type Assets interface {
	// DataImage loads a path relative to the data directory.
	DataImage(raw string) string
	// Image loads an arbitrary image path.
	Image(path string) string
	DefaultIcon() string
	DefaultLogo() string
}

// Collector turns host plugin metadata into PluginRecords.
type Collector struct {
	Source PluginSource
	Assets Assets
	// SelfID is the help plugin's own id; it never lists itself.
	SelfID string
	Logger *slog.Logger
}

// Collect lists the active plugins. Reserved (built-in) plugins are included
// only when showBuiltin is set. A plugin whose metadata is malformed is
// skipped and logged; a failing source yields an empty list.
func (c *Collector) Collect(ctx context.Context, showBuiltin bool) []PluginRecord {
	logger := c.logger()

	metas, err := c.Source.ListPlugins(ctx)
	if err != nil {
		logger.Error("Error listing plugins", "error", err)
		return []PluginRecord{}
	}

	records := make([]PluginRecord, 0, len(metas))
	seen := make(map[string]bool, len(metas))
	for _, meta := range metas {
		if !meta.Activated || meta.ID == c.SelfID {
			continue
		}
		if meta.Reserved && !showBuiltin {
			continue
		}
		record, err := c.collectOne(meta)
		if err != nil {
			logger.Warn("skipping plugin with malformed metadata", "plugin", meta.ID, "error", err)
			continue
		}
		if seen[record.ID] {
			logger.Warn("skipping duplicate plugin id", "plugin", record.ID)
			continue
		}
		seen[record.ID] = true
		records = append(records, record)
	}
	return records
}

func (c *Collector) collectOne(meta PluginMeta) (record PluginRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("introspection panicked: %v", r)
		}
	}()

	id := strings.TrimSpace(meta.ID)
	if id == "" {
		return PluginRecord{}, fmt.Errorf("plugin has no id")
	}

	commands, err := flattenCommands(meta.Commands, "", false)
	if err != nil {
		return PluginRecord{}, err
	}

	name := strings.TrimSpace(meta.DisplayName)
	if name == "" {
		name = id
	}

	return PluginRecord{
		ID:          id,
		DisplayName: name,
		Description: strings.TrimSpace(meta.Description),
		IconURL:     c.icon(meta.IconPath),
		Commands:    commands,
		Visible:     len(commands) > 0,
	}, nil
}

func (c *Collector) icon(path string) string {
	if c.Assets == nil {
		return ""
	}
	if path != "" {
		if uri := c.Assets.Image(path); uri != "" {
			return uri
		}
	}
	return c.Assets.DefaultIcon()
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// flattenCommands walks command groups depth first, naming leaves
// "group sub". Duplicate names keep the first occurrence.
func flattenCommands(metas []CommandMeta, groupPrefix string, parentAdmin bool) ([]CommandEntry, error) {
	out := make([]CommandEntry, 0, len(metas))
	seen := make(map[string]bool, len(metas))

	var walk func(items []CommandMeta, prefix string, admin bool) error
	walk = func(items []CommandMeta, prefix string, admin bool) error {
		for _, m := range items {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				return fmt.Errorf("command without a name under %q", strings.TrimSpace(prefix))
			}
			isAdmin := admin || m.AdminOnly
			if len(m.Subcommands) > 0 {
				if err := walk(m.Subcommands, prefix+name+" ", isAdmin); err != nil {
					return err
				}
				continue
			}
			full := prefix + name
			if seen[full] {
				continue
			}
			seen[full] = true
			out = append(out, CommandEntry{
				Name:      full,
				Aliases:   append([]string(nil), m.Aliases...),
				Summary:   strings.TrimSpace(m.Summary),
				Usage:     strings.TrimSpace(m.Usage),
				AdminOnly: isAdmin,
			})
		}
		return nil
	}

	if err := walk(metas, groupPrefix, parentAdmin); err != nil {
		return nil, err
	}
	return out, nil
}

// StaticSource serves a fixed plugin list.
type StaticSource []PluginMeta

// ListPlugins returns the fixed list.
func (s StaticSource) ListPlugins(ctx context.Context) ([]PluginMeta, error) {
	return append([]PluginMeta(nil), s...), nil
}
