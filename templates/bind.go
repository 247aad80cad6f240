package templates

import (
	"html/template"
	"strings"

	"HelpMenu/menu"
)

// Bind flattens rc into the placeholder map the templates are written
// against. Image values are data URIs and are marked safe for src attributes.
func Bind(rc menu.RenderContext) map[string]any {
	data := map[string]any{
		"title":             rc.Title,
		"subtitle":          rc.Subtitle,
		"prefix":            rc.Prefix,
		"accent_color":      rc.AccentColor,
		"banner_image":      imageURL(rc.BannerImage),
		"header_logo":       imageURL(rc.HeaderLogo),
		"font_urls":         rc.Fonts.URLs,
		"font_family":       rc.Fonts.Family,
		"latin_font_family": rc.Fonts.LatinFamily,
		"mono_font_family":  rc.Fonts.MonoFamily,
		"footer":            rc.FooterText,
		"is_admin":          rc.IsAdmin,
		"view":              string(rc.View),
		"empty":             rc.Empty(),
	}

	plugins := make([]map[string]any, 0, len(rc.Cards))
	for _, c := range rc.Cards {
		plugins = append(plugins, bindCard(c))
	}
	data["plugins"] = plugins

	if rc.Detail != nil {
		data["plugin"] = bindCard(*rc.Detail)
		data["commands"] = bindCommands(rc.Detail.Commands)
	}
	return data
}

func bindCard(c menu.Card) map[string]any {
	return map[string]any{
		"id":           c.ID,
		"name":         c.ID,
		"display_name": c.Name,
		"description":  c.Description,
		"icon_url":     imageURL(c.IconURL),
		"cmd_count":    c.CommandCount,
		"is_category":  c.IsCategory,
		"commands":     bindCommands(c.Commands),
	}
}

func bindCommands(cmds []menu.CommandView) []map[string]any {
	out := make([]map[string]any, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, map[string]any{
			"name":         c.Name,
			"display_name": c.DisplayName,
			"description":  c.Summary,
			"usage":        c.Usage,
			"aliases":      c.Aliases,
			"admin_only":   c.AdminOnly,
		})
	}
	return out
}

// imageURL trusts data URIs produced by the asset loader; anything else goes
// through the normal URL sanitizer.
func imageURL(s string) any {
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return s
}
