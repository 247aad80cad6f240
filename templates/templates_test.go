package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HelpMenu/menu"
)

func sampleContext(view menu.View) menu.RenderContext {
	rc := menu.RenderContext{
		Title:       "Bot Help",
		Subtitle:    "Send .help <plugin>",
		AccentColor: "#ff8800",
		Fonts:       menu.Fonts{URLs: []string{"https://fonts.example/a.css"}, Family: "Noto Sans"},
		FooterText:  "HelpMenu v1.0.0",
		HeaderLogo:  "data:image/svg+xml;base64,PHN2Zz4=",
		Prefix:      ".",
		View:        view,
		Cards: []menu.Card{
			{ID: "music", Name: "Music", Description: "Songs", CommandCount: 2, IconURL: "data:image/png;base64,AAAA",
				Commands: []menu.CommandView{
					{Name: "play", DisplayName: ".play", Summary: "Play a song", Aliases: []string{"p"}},
					{Name: "skip", DisplayName: ".skip", AdminOnly: true},
				}},
			{ID: "Links", Name: "Links", IsCategory: true, CommandCount: 1},
		},
	}
	if view == menu.ViewSubDetail {
		detail := rc.Cards[0]
		rc.Detail = &detail
		rc.Cards = nil
	}
	return rc
}

func parseDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestFileFor(t *testing.T) {
	assert.Equal(t, MainMenuFile, FileFor(menu.ViewMainCard))
	assert.Equal(t, ExpandedMenuFile, FileFor(menu.ViewMainExpanded))
	assert.Equal(t, SubMenuFile, FileFor(menu.ViewSubDetail))
	assert.Equal(t, MainMenuFile, FileFor(menu.View("bogus")))
}

func TestFill_BuiltinMainMenu(t *testing.T) {
	sel := NewSelector(t.TempDir(), nil)
	page := sel.Fill(sampleContext(menu.ViewMainCard), false)
	doc := parseDoc(t, page)

	assert.Equal(t, "Bot Help", strings.TrimSpace(doc.Find(".header h1").Text()))
	assert.Equal(t, 2, doc.Find(".grid .card").Length())
	assert.Equal(t, 1, doc.Find(".card.category").Length())
	assert.Contains(t, doc.Find(".card .count").First().Text(), "2 commands")

	src, _ := doc.Find(".card img").First().Attr("src")
	assert.Equal(t, "data:image/png;base64,AAAA", src)

	style, _ := doc.Find("body").Attr("style")
	assert.Contains(t, style, "width")
}

func TestFill_ExpandedAndDetail(t *testing.T) {
	sel := NewSelector(t.TempDir(), nil)

	doc := parseDoc(t, sel.Fill(sampleContext(menu.ViewMainExpanded), false))
	assert.Equal(t, 2, doc.Find(".plugin .cmd").Length())
	assert.Equal(t, 1, doc.Find(".cmd .badge").Length())

	doc = parseDoc(t, sel.Fill(sampleContext(menu.ViewSubDetail), false))
	assert.Equal(t, "Music", strings.TrimSpace(doc.Find(".header h1").Text()))
	assert.Equal(t, 2, doc.Find("table tr").Length()-1)
	assert.Contains(t, doc.Find(".alias").Text(), "p")
}

func TestFill_EmptyState(t *testing.T) {
	sel := NewSelector("", nil)
	rc := menu.RenderContext{Title: "Empty", View: menu.ViewMainCard}
	doc := parseDoc(t, sel.Fill(rc, true))
	assert.Equal(t, 1, doc.Find(".empty").Length())
	assert.Equal(t, 0, doc.Find(".card").Length())
}

func TestFill_InjectsTheme(t *testing.T) {
	sel := NewSelector(t.TempDir(), nil)
	doc := parseDoc(t, sel.Fill(sampleContext(menu.ViewMainCard), false))

	assert.Equal(t, 1, doc.Find(`head link[href="https://fonts.example/a.css"]`).Length())
	css := doc.Find("style#theme-vars").Text()
	assert.Contains(t, css, "--accent: #ff8800")
	assert.Contains(t, css, "--font-family: Noto Sans")
	assert.Contains(t, css, "--mono-font-family: monospace")
}

func TestApplyTheme_KeepsExistingVarsAndLinks(t *testing.T) {
	page := `<html><head><link rel="stylesheet" href="https://fonts.example/a.css"><style id="theme-vars">:root{--accent:red}</style></head><body><p>x</p></body></html>`
	out := ApplyTheme(page, sampleContext(menu.ViewMainCard))
	doc := parseDoc(t, out)
	assert.Equal(t, 1, doc.Find("link").Length())
	assert.Equal(t, ":root{--accent:red}", doc.Find("style#theme-vars").Text())
}

func TestThemeCSS_SanitizesValues(t *testing.T) {
	rc := menu.RenderContext{Fonts: menu.Fonts{Family: "Evil; } </style><script>"}}
	css := ThemeCSS(rc)
	assert.NotContains(t, css, "</style>")
	assert.Contains(t, css, "--accent: #4e96f7")
}

func writeOverride(t *testing.T, dataDir, name, body string) {
	t.Helper()
	dir := filepath.Join(dataDir, OverrideDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestSelect_PartialOverride(t *testing.T) {
	dataDir := t.TempDir()
	writeOverride(t, dataDir, SubMenuFile, `<html><head></head><body><div id="custom">{{.plugin.display_name}}</div></body></html>`)
	sel := NewSelector(dataDir, nil)

	main, err := sel.Select(menu.ViewMainCard, true)
	require.NoError(t, err)
	assert.False(t, main.Custom)

	expanded, err := sel.Select(menu.ViewMainExpanded, true)
	require.NoError(t, err)
	assert.False(t, expanded.Custom)

	detail, err := sel.Select(menu.ViewSubDetail, true)
	require.NoError(t, err)
	assert.True(t, detail.Custom)

	doc := parseDoc(t, sel.Fill(sampleContext(menu.ViewSubDetail), true))
	assert.Equal(t, "Music", doc.Find("#custom").Text())

	off, err := sel.Select(menu.ViewSubDetail, false)
	require.NoError(t, err)
	assert.False(t, off.Custom, "overrides are ignored when custom templates are off")
}

func TestSelect_RejectsBrokenOverrides(t *testing.T) {
	dataDir := t.TempDir()
	writeOverride(t, dataDir, MainMenuFile, `<html><body>{{.title</body></html>`)
	writeOverride(t, dataDir, ExpandedMenuFile, `<html><head></head><body>just text</body></html>`)
	sel := NewSelector(dataDir, nil)

	main, err := sel.Select(menu.ViewMainCard, true)
	require.NoError(t, err)
	assert.False(t, main.Custom)

	expanded, err := sel.Select(menu.ViewMainExpanded, true)
	require.NoError(t, err)
	assert.False(t, expanded.Custom)
}

func TestFill_MissingPlaceholdersAreBlank(t *testing.T) {
	dataDir := t.TempDir()
	writeOverride(t, dataDir, MainMenuFile, `<html><head></head><body><p id="x">[{{.no_such_key}}]</p><p id="t">{{.title}}</p></body></html>`)
	sel := NewSelector(dataDir, nil)

	doc := parseDoc(t, sel.Fill(sampleContext(menu.ViewMainCard), true))
	assert.Equal(t, "[]", doc.Find("#x").Text())
	assert.Equal(t, "Bot Help", doc.Find("#t").Text())
}

func TestFill_FailingOverrideFallsBack(t *testing.T) {
	dataDir := t.TempDir()
	writeOverride(t, dataDir, MainMenuFile, `<html><head></head><body><p>{{index .plugins 99}}</p></body></html>`)
	sel := NewSelector(dataDir, nil)

	doc := parseDoc(t, sel.Fill(sampleContext(menu.ViewMainCard), true))
	assert.Equal(t, 2, doc.Find(".grid .card").Length())
}

func TestBind(t *testing.T) {
	data := Bind(sampleContext(menu.ViewSubDetail))
	plugin, ok := data["plugin"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Music", plugin["display_name"])
	cmds, ok := data["commands"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, cmds, 2)
	assert.Equal(t, "Play a song", cmds[0]["description"])
	assert.Equal(t, false, data["empty"])
}
