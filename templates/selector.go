// Package templates picks the HTML template for a help view and fills it
// from a menu.RenderContext.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"HelpMenu/menu"
)

// Template file names, shared by the built-ins and the override directory.
const (
	MainMenuFile     = "main_menu.html"
	ExpandedMenuFile = "expanded_menu.html"
	SubMenuFile      = "sub_menu.html"

	// OverrideDir is the directory under the data dir holding user templates.
	OverrideDir = "custom_templates"
)

//go:embed builtin/*.html
var builtinFS embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
}

// FileFor returns the template file name for a view.
func FileFor(view menu.View) string {
	switch view {
	case menu.ViewMainExpanded:
		return ExpandedMenuFile
	case menu.ViewSubDetail:
		return SubMenuFile
	default:
		return MainMenuFile
	}
}

// Template is a parsed template and where it came from.
type Template struct {
	Name   string
	Custom bool
	tmpl   *template.Template
}

// Selector resolves templates, preferring per-file user overrides.
type Selector struct {
	DataDir string
	Logger  *slog.Logger

	once     sync.Once
	builtins map[string]*template.Template
	initErr  error
}

// NewSelector creates a Selector for the given data dir.
func NewSelector(dataDir string, logger *slog.Logger) *Selector {
	return &Selector{DataDir: dataDir, Logger: logger}
}

func (s *Selector) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Selector) loadBuiltins() {
	s.builtins = make(map[string]*template.Template, 3)
	for _, name := range []string{MainMenuFile, ExpandedMenuFile, SubMenuFile} {
		raw, err := builtinFS.ReadFile("builtin/" + name)
		if err != nil {
			s.initErr = errors.Join(s.initErr, err)
			continue
		}
		t, err := parse(name, string(raw))
		if err != nil {
			s.initErr = errors.Join(s.initErr, err)
			continue
		}
		s.builtins[name] = t
	}
}

// Builtin returns the embedded template for a view.
func (s *Selector) Builtin(view menu.View) (Template, error) {
	s.once.Do(s.loadBuiltins)
	name := FileFor(view)
	t, ok := s.builtins[name]
	if !ok {
		return Template{}, fmt.Errorf("built-in template %s unavailable: %w", name, s.initErr)
	}
	return Template{Name: name, tmpl: t}, nil
}

// OverridePath is where a user override for view is looked up.
func (s *Selector) OverridePath(view menu.View) string {
	return filepath.Join(s.DataDir, OverrideDir, FileFor(view))
}

// Select returns the template for view. With custom set, a readable and
// parseable override file wins; anything else falls back to the built-in.
func (s *Selector) Select(view menu.View, custom bool) (Template, error) {
	if custom && s.DataDir != "" {
		if t, ok := s.override(view); ok {
			return t, nil
		}
	}
	return s.Builtin(view)
}

func (s *Selector) override(view menu.View) (Template, bool) {
	path := s.OverridePath(view)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger().Warn("Error reading custom template, using built-in", "path", path, "error", err)
		}
		return Template{}, false
	}

	if err := checkBody(string(raw)); err != nil {
		s.logger().Warn("Rejecting custom template, using built-in", "path", path, "error", err)
		return Template{}, false
	}

	t, err := parse(FileFor(view), string(raw))
	if err != nil {
		s.logger().Warn("Error parsing custom template, using built-in", "path", path, "error", err)
		return Template{}, false
	}
	return Template{Name: FileFor(view), Custom: true, tmpl: t}, true
}

// Fill renders rc into the selected template and injects the theme. It never
// fails: a custom template that errors during execution is replaced by the
// built-in.
func (s *Selector) Fill(rc menu.RenderContext, custom bool) string {
	data := Bind(rc)

	t, err := s.Select(rc.View, custom)
	if err == nil {
		out, execErr := execute(t, data)
		if execErr == nil {
			return ApplyTheme(out, rc)
		}
		if !t.Custom {
			err = execErr
		} else {
			s.logger().Warn("Error filling custom template, using built-in", "template", t.Name, "error", execErr)
			if t, err = s.Builtin(rc.View); err == nil {
				if out, err = execute(t, data); err == nil {
					return ApplyTheme(out, rc)
				}
			}
		}
	}

	s.logger().Error("Error filling built-in template", "view", rc.View, "error", err)
	return ApplyTheme(fallbackPage(rc), rc)
}

func parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(text)
}

func execute(t Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// checkBody rejects documents whose body has no elements.
func checkBody(raw string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	if doc.Find("body").Children().Length() == 0 {
		return errors.New("template body has no elements")
	}
	return nil
}

func fallbackPage(rc menu.RenderContext) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"></head><body style="width: 720px"><h1>%s</h1></body></html>`,
		template.HTMLEscapeString(rc.Title))
}
