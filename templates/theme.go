package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"HelpMenu/menu"
)

const themeStyleID = "theme-vars"

// ApplyTheme adds the font stylesheets and the :root theme variables to the
// document head. Links already present in the page are not duplicated, and
// a page that defines its own #theme-vars block keeps it.
func ApplyTheme(page string, rc menu.RenderContext) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return page
	}
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return page
	}

	for _, u := range rc.Fonts.URLs {
		exists := false
		doc.Find("link[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if href, _ := s.Attr("href"); href == u {
				exists = true
				return false
			}
			return true
		})
		if !exists {
			head.AppendHtml(fmt.Sprintf(`<link rel="stylesheet" href="%s">`, html.EscapeString(u)))
		}
	}

	if doc.Find("style#"+themeStyleID).Length() == 0 {
		head.AppendHtml(fmt.Sprintf(`<style id="%s">%s</style>`, themeStyleID, ThemeCSS(rc)))
	}

	out, err := doc.Html()
	if err != nil {
		return page
	}
	return out
}

// ThemeCSS returns the :root block declaring the accent color and fonts.
func ThemeCSS(rc menu.RenderContext) string {
	accent := rc.AccentColor
	if accent == "" {
		accent = "#4e96f7"
	}
	family := cssValue(rc.Fonts.Family, "sans-serif")
	latin := cssValue(rc.Fonts.LatinFamily, family)
	mono := cssValue(rc.Fonts.MonoFamily, "monospace")

	return fmt.Sprintf(":root { --accent: %s; --font-family: %s; --latin-font-family: %s; --mono-font-family: %s; }",
		cssValue(accent, "#4e96f7"), family, latin, mono)
}

// cssValue strips characters that could end the declaration or the style
// element.
func cssValue(v, def string) string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\\', '\n', '\r':
			return -1
		}
		return r
	}, v)
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
