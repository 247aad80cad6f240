package menu

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"HelpMenu/config"
)

// Options are the per-request inputs of the assembler.
type Options struct {
	IsAdmin bool
	View    View
	// Prefix is the bot wake prefix shown in front of command names.
	Prefix string
	// Blacklist is merged with the settings blacklist.
	Blacklist []string
	Version   string
	Assets    Assets
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// BuildRecords filters, overrides, extends and orders the collected plugins.
// The input slice is not modified.
func BuildRecords(plugins []PluginRecord, s *config.Settings, opts Options) []PluginRecord {
	if s == nil {
		s = config.Defaults()
	}

	blocked := make(map[string]bool, len(s.PluginBlacklist)+len(opts.Blacklist))
	if !opts.IsAdmin {
		// Ids match case-insensitively, as lookups do.
		for _, id := range s.PluginBlacklist {
			blocked[strings.ToLower(id)] = true
		}
		for _, id := range opts.Blacklist {
			blocked[strings.ToLower(id)] = true
		}
	}

	records := make([]PluginRecord, 0, len(plugins)+len(s.CustomCategories))
	known := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		id := strings.ToLower(p.ID)
		known[id] = true
		if blocked[id] {
			continue
		}
		records = append(records, p.clone())
	}

	for _, rule := range s.PluginOverrides {
		if !known[strings.ToLower(rule.PluginID)] {
			opts.logger().Debug("ignoring override for unknown plugin", "plugin", rule.PluginID)
		}
	}
	for i := range records {
		if rule, ok := s.Override(records[i].ID); ok {
			applyOverride(&records[i], rule)
		}
		records[i].Visible = len(records[i].Commands) > 0
	}

	for _, cat := range s.CustomCategories {
		records = append(records, categoryRecord(cat, opts.Assets))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EffectiveSortKey() < records[j].EffectiveSortKey()
	})
	return records
}

func applyOverride(p *PluginRecord, rule config.OverrideRule) {
	if rule.DisplayName != "" {
		p.DisplayName = rule.DisplayName
	}
	if rule.Description != "" {
		p.Description = rule.Description
	}
	if rule.SortKey != nil {
		k := *rule.SortKey
		p.SortKey = &k
	}

	have := make(map[string]bool, len(p.Commands))
	for _, c := range p.Commands {
		have[c.Name] = true
	}
	for _, extra := range rule.ExtraCommands {
		if have[extra.Name] {
			continue
		}
		have[extra.Name] = true
		p.Commands = append(p.Commands, commandEntry(extra))
	}
}

func categoryRecord(cat config.CustomCategory, assets Assets) PluginRecord {
	commands := make([]CommandEntry, 0, len(cat.Commands))
	for _, c := range cat.Commands {
		commands = append(commands, commandEntry(c))
	}

	icon := ""
	if assets != nil {
		if cat.Icon != "" {
			icon = assets.DataImage(cat.Icon)
		}
		if icon == "" {
			icon = assets.DefaultIcon()
		}
	}

	var key *int
	if cat.SortKey != nil {
		k := *cat.SortKey
		key = &k
	}

	return PluginRecord{
		ID:          cat.Name,
		DisplayName: cat.Name,
		Description: cat.Description,
		IconURL:     icon,
		Commands:    commands,
		SortKey:     key,
		Visible:     true,
		IsCategory:  true,
	}
}

func commandEntry(c config.Command) CommandEntry {
	entry := CommandEntry{
		Name:    c.Name,
		Aliases: append([]string(nil), c.Aliases...),
		Summary: c.Summary,
		Usage:   c.Usage,
	}
	if c.Prefix != nil {
		p := *c.Prefix
		entry.Prefix = &p
	}
	return entry
}

// Assemble builds the main menu (card or expanded view) for one request.
func Assemble(plugins []PluginRecord, s *config.Settings, opts Options) RenderContext {
	if s == nil {
		s = config.Defaults()
	}
	view := opts.View
	if view != ViewMainExpanded {
		view = ViewMainCard
	}

	rc := baseContext(s, opts, view)
	for _, r := range BuildRecords(plugins, s, opts) {
		if !r.Visible {
			continue
		}
		rc.Cards = append(rc.Cards, card(r, opts.Prefix, view == ViewMainExpanded))
	}
	return rc
}

// AssembleDetail builds the sub_detail view for the plugin matching query.
func AssembleDetail(plugins []PluginRecord, s *config.Settings, opts Options, query string) (RenderContext, error) {
	if s == nil {
		s = config.Defaults()
	}
	visible := make([]PluginRecord, 0, len(plugins))
	for _, r := range BuildRecords(plugins, s, opts) {
		if r.Visible {
			visible = append(visible, r)
		}
	}

	found, err := FindPlugin(visible, query)
	if err != nil {
		return RenderContext{}, err
	}

	rc := baseContext(s, opts, ViewSubDetail)
	detail := card(found, opts.Prefix, true)
	rc.Detail = &detail
	return rc, nil
}

// FindPlugin resolves a user query to a record: an exact case-insensitive
// match on id or display name wins, then the first substring match.
func FindPlugin(records []PluginRecord, query string) (PluginRecord, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return PluginRecord{}, &LookupError{Query: query}
	}

	for _, r := range records {
		if strings.ToLower(r.ID) == q || strings.ToLower(r.DisplayName) == q {
			return r, nil
		}
	}
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.ID), q) || strings.Contains(strings.ToLower(r.DisplayName), q) {
			return r, nil
		}
	}
	return PluginRecord{}, &LookupError{Query: query}
}

func baseContext(s *config.Settings, opts Options, view View) RenderContext {
	subtitle := s.Subtitle
	if subtitle == "" {
		subtitle = fmt.Sprintf("Send %shelp <plugin> for details", opts.Prefix)
	}

	footer := s.FooterText
	if footer == "" {
		footer = "HelpMenu"
		if opts.Version != "" {
			footer += " v" + opts.Version
		}
	}

	rc := RenderContext{
		Title:       s.Title,
		Subtitle:    subtitle,
		AccentColor: s.AccentColor,
		Fonts: Fonts{
			URLs:        append([]string(nil), s.FontURLs...),
			Family:      s.FontFamily,
			LatinFamily: s.LatinFontFamily,
			MonoFamily:  s.MonoFontFamily,
		},
		FooterText: footer,
		Prefix:     opts.Prefix,
		View:       view,
		IsAdmin:    opts.IsAdmin,
		Cards:      []Card{},
	}

	if opts.Assets != nil {
		if s.BannerImage != "" {
			rc.BannerImage = opts.Assets.DataImage(s.BannerImage)
		}
		if s.HeaderLogo != "" {
			rc.HeaderLogo = opts.Assets.DataImage(s.HeaderLogo)
		}
		if rc.HeaderLogo == "" {
			rc.HeaderLogo = opts.Assets.DefaultLogo()
		}
	}
	return rc
}

func card(r PluginRecord, prefix string, withCommands bool) Card {
	c := Card{
		ID:           r.ID,
		Name:         r.DisplayName,
		Description:  r.Description,
		IconURL:      r.IconURL,
		IsCategory:   r.IsCategory,
		CommandCount: len(r.Commands),
	}
	if !withCommands {
		return c
	}
	c.Commands = make([]CommandView, 0, len(r.Commands))
	for _, cmd := range r.Commands {
		c.Commands = append(c.Commands, CommandView{
			Name:        cmd.Name,
			DisplayName: cmd.DisplayName(prefix),
			Summary:     cmd.Summary,
			Usage:       cmd.Usage,
			Aliases:     append([]string(nil), cmd.Aliases...),
			AdminOnly:   cmd.AdminOnly,
		})
	}
	return c
}
