package commands

import (
	"context"
	"strings"
	"sync"

	"HelpMenu/bot"
	"HelpMenu/menu"
	"HelpMenu/utils"

	"github.com/bwmarrin/discordgo"
)

// WakePrefix starts every text command.
const WakePrefix = "."

// CommandFunc defines the signature for command handlers
type CommandFunc func(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string)

// CommandInfo holds detailed information about a command
type CommandInfo struct {
	Name        string        `json:"name"`
	Aliases     []string      `json:"aliases"`
	Description string        `json:"description"`
	Usage       string        `json:"usage"`
	AdminOnly   bool          `json:"admin_only"`
	Subcommands []CommandInfo `json:"subcommands,omitempty"` // Set on command groups
}

// ModuleInfo represents a complete module with its commands and metadata
type ModuleInfo struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
	Version     string        `json:"version"` // Shown by .about
	Author      string        `json:"author"`
	Icon        string        `json:"icon"`     // Image path, relative to the working dir
	Reserved    bool          `json:"reserved"` // Built-in modules, hidden from help unless configured
	Disabled    bool          `json:"disabled"`
	Commands    []CommandInfo `json:"commands"`
}

// ID is the module id used by help menu settings.
func (m *ModuleInfo) ID() string {
	return strings.ToLower(m.Name)
}

// Global registries
var (
	mu                sync.RWMutex
	RegisteredModules = make(map[string]*ModuleInfo)
	moduleOrder       []string
	CommandMap        = make(map[string]CommandFunc)
	CommandAliases    = make(map[string]string)
)

// RegisterCommand registers individual commands (used by modules)
func RegisterCommand(name string, handler CommandFunc, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()
	CommandMap[name] = handler
	for _, alias := range aliases {
		CommandAliases[alias] = name
	}
}

// RegisterModule registers a complete module. Registering a module name
// twice replaces the earlier entry in place.
func RegisterModule(module *ModuleInfo) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := RegisteredModules[module.Name]; !exists {
		moduleOrder = append(moduleOrder, module.Name)
	}
	RegisteredModules[module.Name] = module
}

// Lookup resolves a command name or alias to its handler.
func Lookup(name string) (CommandFunc, bool) {
	mu.RLock()
	defer mu.RUnlock()

	name = strings.ToLower(name)
	if actual, isAlias := CommandAliases[name]; isAlias {
		name = actual
	}
	handler, ok := CommandMap[name]
	return handler, ok
}

// Modules returns the registered modules in registration order.
func Modules() []*ModuleInfo {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]*ModuleInfo, 0, len(moduleOrder))
	for _, name := range moduleOrder {
		out = append(out, RegisteredModules[name])
	}
	return out
}

// Dispatch runs the command in m, if any.
func Dispatch(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	name, args, ok := utils.SplitArgs(m.Content, WakePrefix)
	if !ok {
		return
	}
	handler, ok := Lookup(name)
	if !ok {
		return
	}
	handler(b, s, m, args)
}

// RegistrySource lists registered modules as help menu plugins.
type RegistrySource struct{}

// ListPlugins implements menu.PluginSource.
func (RegistrySource) ListPlugins(ctx context.Context) ([]menu.PluginMeta, error) {
	modules := Modules()
	out := make([]menu.PluginMeta, 0, len(modules))
	for _, m := range modules {
		name := m.DisplayName
		if name == "" {
			name = m.Name
		}
		out = append(out, menu.PluginMeta{
			ID:          m.ID(),
			DisplayName: name,
			Description: m.Description,
			IconPath:    m.Icon,
			Reserved:    m.Reserved,
			Activated:   !m.Disabled,
			Commands:    commandMetas(m.Commands),
		})
	}
	return out, nil
}

func commandMetas(cmds []CommandInfo) []menu.CommandMeta {
	out := make([]menu.CommandMeta, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, menu.CommandMeta{
			Name:        c.Name,
			Aliases:     c.Aliases,
			Summary:     c.Description,
			Usage:       c.Usage,
			AdminOnly:   c.AdminOnly,
			Subcommands: commandMetas(c.Subcommands),
		})
	}
	return out
}
