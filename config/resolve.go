package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Resolve turns a raw settings mapping into Settings. The returned Settings
// is always fully populated; the error, when non-nil, joins one *ConfigError
// per value that was dropped and replaced by its default.
func Resolve(raw map[string]any) (*Settings, error) {
	r := &resolver{raw: raw}
	s := Defaults()

	s.Title = r.str("title", DefaultTitle)
	if strings.TrimSpace(s.Title) == "" {
		s.Title = DefaultTitle
	}
	s.Subtitle = r.str("subtitle", "")
	s.AccentColor = r.color("accent_color", DefaultAccentColor)

	s.ShowBuiltinCmds = r.boolean("show_builtin_cmds", false)
	s.PluginBlacklist = r.stringList("plugin_blacklist")
	s.PluginOverrides = r.overrides("plugin_overrides")
	s.CustomCategories = r.categories("custom_categories")

	s.FontURLs = r.fontURLs()
	s.FontFamily = strings.TrimSpace(r.str("font_family", ""))
	s.LatinFontFamily = strings.TrimSpace(r.str("latin_font_family", ""))
	s.MonoFontFamily = strings.TrimSpace(r.str("mono_font_family", ""))

	s.BannerImage = strings.TrimSpace(r.str("banner_image", ""))
	s.HeaderLogo = strings.TrimSpace(r.str("header_logo", ""))
	s.FooterText = r.str("footer_text", "")

	s.CustomTemplates = r.boolean("custom_templates", false)
	s.ExpandCommands = r.boolean("expand_commands", false)
	s.AdminShowAll = r.boolean("admin_show_all", false)
	s.Debug = r.boolean("debug", false)
	s.DiskCache = r.boolean("disk_cache", false)

	s.RenderConcurrency = r.boundedInt("render_concurrency", DefaultRenderConcurrency, 1, maxRenderConcurrency)
	s.RenderTimeout = r.duration("render_timeout", DefaultRenderTimeout)
	s.RateLimitPerMinute = r.boundedInt("rate_limit_per_minute", DefaultRateLimitPerMinute, 0, math.MaxInt32)

	return s, errors.Join(r.errs...)
}

type resolver struct {
	raw  map[string]any
	errs []error
}

func (r *resolver) fail(field string, value any, reason string) {
	r.errs = append(r.errs, &ConfigError{Field: field, Value: value, Reason: reason})
}

func (r *resolver) lookup(key string) (any, bool) {
	v, ok := r.raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *resolver) str(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, v, "expected a string")
		return def
	}
	return s
}

func (r *resolver) boolean(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, ok := toBool(v)
	if !ok {
		r.fail(key, v, "expected a boolean")
		return def
	}
	return b
}

func (r *resolver) boundedInt(key string, def, lo, hi int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		r.fail(key, v, "expected an integer")
		return def
	}
	if n < lo || n > hi {
		r.fail(key, v, fmt.Sprintf("must be between %d and %d", lo, hi))
		return def
	}
	return n
}

func (r *resolver) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	var d time.Duration
	switch t := v.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(t))
		if err != nil {
			r.fail(key, v, "expected a duration such as 30s")
			return def
		}
		d = parsed
	default:
		secs, ok := toInt(v)
		if !ok {
			r.fail(key, v, "expected a duration or a number of seconds")
			return def
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 || d > maxRenderTimeout {
		r.fail(key, v, fmt.Sprintf("must be positive and at most %s", maxRenderTimeout))
		return def
	}
	return d
}

func (r *resolver) color(key, def string) string {
	s := strings.TrimSpace(r.str(key, def))
	if s == "" {
		return def
	}
	if !isHexColor(s) {
		r.fail(key, s, "expected a hex color like #4e96f7")
		return def
	}
	return s
}

// stringList reads a list of strings, dropping (and reporting) entries that
// are not strings. Entries are trimmed and deduplicated.
func (r *resolver) stringList(key string) []string {
	out := []string{}
	v, ok := r.lookup(key)
	if !ok {
		return out
	}
	items, ok := v.([]any)
	if !ok {
		r.fail(key, v, "expected a list of strings")
		return out
	}
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			r.fail(fmt.Sprintf("%s[%d]", key, i), item, "expected a string")
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (r *resolver) fontURLs() []string {
	urls := r.stringList("font_urls")
	single := strings.TrimSpace(r.str("font_url", ""))
	if single == "" {
		return urls
	}
	for _, u := range urls {
		if u == single {
			return urls
		}
	}
	return append([]string{single}, urls...)
}

func (r *resolver) overrides(key string) []OverrideRule {
	out := []OverrideRule{}
	v, ok := r.lookup(key)
	if !ok {
		return out
	}
	items, ok := v.([]any)
	if !ok {
		r.fail(key, v, "expected a list of overrides")
		return out
	}
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", key, i)
		m, ok := toMap(item)
		if !ok {
			r.fail(field, item, "expected a mapping")
			continue
		}
		sub := &resolver{raw: m}
		id := strings.TrimSpace(sub.str("plugin_id", ""))
		if id == "" {
			id = strings.TrimSpace(sub.str("plugin_name", ""))
		}
		if id == "" {
			r.fail(field+".plugin_id", m["plugin_id"], "plugin_id is required")
			continue
		}
		if seen[strings.ToLower(id)] {
			r.fail(field+".plugin_id", id, "duplicate override for plugin")
			continue
		}
		seen[strings.ToLower(id)] = true

		rule := OverrideRule{
			PluginID:    id,
			DisplayName: strings.TrimSpace(sub.str("display_name", "")),
			Description: strings.TrimSpace(sub.str("description", "")),
			SortKey:     sub.sortKey(),
		}
		rule.ExtraCommands = sub.commands("extra_commands")
		r.adopt(field, sub)
		out = append(out, rule)
	}
	return out
}

func (r *resolver) categories(key string) []CustomCategory {
	out := []CustomCategory{}
	v, ok := r.lookup(key)
	if !ok {
		return out
	}
	items, ok := v.([]any)
	if !ok {
		r.fail(key, v, "expected a list of categories")
		return out
	}
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", key, i)
		m, ok := toMap(item)
		if !ok {
			r.fail(field, item, "expected a mapping")
			continue
		}
		sub := &resolver{raw: m}
		name := strings.TrimSpace(sub.str("name", ""))
		if name == "" {
			r.fail(field+".name", m["name"], "name is required")
			continue
		}
		cat := CustomCategory{
			Name:        name,
			Icon:        strings.TrimSpace(sub.str("icon", "")),
			Description: strings.TrimSpace(sub.str("description", "")),
			SortKey:     sub.sortKey(),
			Commands:    sub.commands("commands"),
		}
		r.adopt(field, sub)
		out = append(out, cat)
	}
	return out
}

// adopt copies a nested resolver's errors, qualifying field names.
func (r *resolver) adopt(prefix string, sub *resolver) {
	for _, err := range sub.errs {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Field = prefix + "." + ce.Field
		}
		r.errs = append(r.errs, err)
	}
}

func (r *resolver) sortKey() *int {
	for _, key := range []string{"sort_key", "order"} {
		v, ok := r.lookup(key)
		if !ok {
			continue
		}
		n, ok := toInt(v)
		if !ok {
			r.fail(key, v, "expected an integer")
			return nil
		}
		return &n
	}
	return nil
}

func (r *resolver) commands(key string) []Command {
	out := []Command{}
	v, ok := r.lookup(key)
	if !ok {
		return out
	}
	items, ok := v.([]any)
	if !ok {
		r.fail(key, v, "expected a list of commands")
		return out
	}
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", key, i)
		switch t := item.(type) {
		case string:
			cmd, ok := ParsePipeCommand(t)
			if !ok {
				r.fail(field, t, "expected name|summary|prefix")
				continue
			}
			out = append(out, cmd)
		default:
			m, ok := toMap(item)
			if !ok {
				r.fail(field, item, "expected a string or a mapping")
				continue
			}
			sub := &resolver{raw: m}
			name := strings.TrimSpace(sub.str("name", ""))
			if name == "" {
				r.fail(field+".name", m["name"], "name is required")
				continue
			}
			cmd := Command{
				Name:    name,
				Aliases: sub.stringList("aliases"),
				Summary: strings.TrimSpace(sub.str("summary", sub.str("description", ""))),
				Usage:   strings.TrimSpace(sub.str("usage", "")),
			}
			if p, ok := m["prefix"].(string); ok {
				p = strings.TrimSpace(p)
				cmd.Prefix = &p
			}
			r.adopt(field, sub)
			out = append(out, cmd)
		}
	}
	return out
}

// ParsePipeCommand parses the compact "name|summary|prefix" form. The summary
// and prefix segments are optional; a present prefix segment (even empty)
// replaces the wake prefix.
func ParsePipeCommand(raw string) (Command, bool) {
	if strings.TrimSpace(raw) == "" {
		return Command{}, false
	}
	parts := strings.Split(raw, "|")
	cmd := Command{Name: strings.TrimSpace(parts[0])}
	if cmd.Name == "" {
		return Command{}, false
	}
	if len(parts) > 1 {
		cmd.Summary = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		p := strings.TrimSpace(parts[2])
		cmd.Prefix = &p
	}
	return cmd, true
}

func isHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	return false, false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case uint64:
		if t > math.MaxInt32 {
			return 0, false
		}
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func toMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}
