// Package config resolves the help menu settings dictionary into a typed
// Settings value and keeps the current snapshot in sync with the settings file.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults for every recognized option.
const (
	DefaultTitle              = "Help Menu"
	DefaultAccentColor        = "#4e96f7"
	DefaultRenderConcurrency  = 3
	DefaultRenderTimeout      = 30 * time.Second
	DefaultRateLimitPerMinute = 15

	maxRenderConcurrency = 16
	maxRenderTimeout     = 5 * time.Minute
)

// Command is a command entry declared in configuration, either injected into
// an installed plugin by an override or listed under a custom category.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	Usage   string
	// Prefix replaces the bot wake prefix when set. A non-nil empty string
	// means the command is shown without any prefix.
	Prefix *string
}

// OverrideRule changes how one installed plugin is displayed.
type OverrideRule struct {
	PluginID      string
	DisplayName   string
	Description   string
	SortKey       *int
	ExtraCommands []Command
}

// CustomCategory is a menu entry that is not backed by an installed plugin.
type CustomCategory struct {
	Name        string
	Icon        string
	Description string
	SortKey     *int
	Commands    []Command
}

// Settings is the fully populated help menu configuration.
type Settings struct {
	Title       string
	Subtitle    string
	AccentColor string

	ShowBuiltinCmds  bool
	PluginBlacklist  []string
	PluginOverrides  []OverrideRule
	CustomCategories []CustomCategory

	FontURLs        []string
	FontFamily      string
	LatinFontFamily string
	MonoFontFamily  string

	BannerImage string
	HeaderLogo  string
	FooterText  string

	CustomTemplates bool
	ExpandCommands  bool
	AdminShowAll    bool
	Debug           bool
	DiskCache       bool // Keep rendered images under <data>/cache across restarts

	RenderConcurrency  int
	RenderTimeout      time.Duration
	RateLimitPerMinute int
}

// Defaults returns Settings with every option at its documented default.
func Defaults() *Settings {
	return &Settings{
		Title:              DefaultTitle,
		AccentColor:        DefaultAccentColor,
		PluginBlacklist:    []string{},
		PluginOverrides:    []OverrideRule{},
		CustomCategories:   []CustomCategory{},
		FontURLs:           []string{},
		RenderConcurrency:  DefaultRenderConcurrency,
		RenderTimeout:      DefaultRenderTimeout,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
	}
}

// Override returns the rule for pluginID, if any. Ids compare
// case-insensitively.
func (s *Settings) Override(pluginID string) (OverrideRule, bool) {
	for _, rule := range s.PluginOverrides {
		if strings.EqualFold(rule.PluginID, pluginID) {
			return rule, true
		}
	}
	return OverrideRule{}, false
}

// ConfigError reports a single option that was dropped during resolution.
// It is never fatal: the option falls back to its default.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config option %s: %s (got %T)", e.Field, e.Reason, e.Value)
}
