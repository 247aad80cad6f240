// Package menu collects plugin metadata from the host and assembles it,
// together with the resolved settings, into the view model the help
// templates are filled from.
package menu

import "fmt"

// DefaultSortKey is the sort key of cards that do not set one explicitly.
const DefaultSortKey = 99

// View selects which help menu is produced.
type View string

const (
	ViewMainCard     View = "main_card"
	ViewMainExpanded View = "main_expanded"
	ViewSubDetail    View = "sub_detail"
)

// CommandEntry is one command shown in the menu.
type CommandEntry struct {
	Name      string
	Aliases   []string
	Summary   string
	Usage     string
	AdminOnly bool
	// Prefix replaces the wake prefix when non-nil.
	Prefix *string
}

// DisplayName returns the command as a user would type it.
func (c CommandEntry) DisplayName(wakePrefix string) string {
	if c.Prefix != nil {
		return *c.Prefix + c.Name
	}
	return wakePrefix + c.Name
}

// PluginRecord is an installed plugin (or a custom category) as it will be
// shown. Records live for a single request.
type PluginRecord struct {
	ID          string
	DisplayName string
	Description string
	IconURL     string
	Commands    []CommandEntry
	SortKey     *int
	Visible     bool
	IsCategory  bool
}

// EffectiveSortKey returns the explicit sort key or DefaultSortKey.
func (p PluginRecord) EffectiveSortKey() int {
	if p.SortKey != nil {
		return *p.SortKey
	}
	return DefaultSortKey
}

func (p PluginRecord) clone() PluginRecord {
	out := p
	out.Commands = append([]CommandEntry(nil), p.Commands...)
	if p.SortKey != nil {
		k := *p.SortKey
		out.SortKey = &k
	}
	return out
}

// CommandView is a command prepared for a template.
type CommandView struct {
	Name        string
	DisplayName string
	Summary     string
	Usage       string
	Aliases     []string
	AdminOnly   bool
}

// Card is one plugin or category tile in the menu.
type Card struct {
	ID           string
	Name         string
	Description  string
	IconURL      string
	IsCategory   bool
	CommandCount int
	// Commands is filled for the expanded and detail views only.
	Commands []CommandView
}

// Fonts carries the typography settings.
type Fonts struct {
	URLs        []string
	Family      string
	LatinFamily string
	MonoFamily  string
}

// RenderContext is the immutable view model for one help image.
type RenderContext struct {
	Title       string
	Subtitle    string
	AccentColor string
	Fonts       Fonts
	FooterText  string
	BannerImage string
	HeaderLogo  string
	Prefix      string
	View        View
	IsAdmin     bool
	Cards       []Card
	// Detail is the selected plugin in the sub_detail view.
	Detail *Card
}

// Empty reports whether the menu has nothing to show.
func (rc RenderContext) Empty() bool {
	return len(rc.Cards) == 0 && rc.Detail == nil
}

// LookupError is returned when no plugin matches a detail request.
type LookupError struct {
	Query string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no plugin matches %q", e.Query)
}

// PermissionError is returned when a non-admin asks for the admin view.
type PermissionError struct {
	UserID string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not allowed to view the admin menu", e.UserID)
}
