package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"HelpMenu/menu"
)

// discoverModules scans dir for module.go files and reads the
// commands.ModuleInfo literals they register, without compiling them.
func discoverModules(dir string, logger *slog.Logger) ([]menu.PluginMeta, error) {
	var plugins []menu.PluginMeta

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "module.go" {
			return nil
		}

		found, err := parseModuleFile(path)
		if err != nil {
			logger.Warn("Failed to parse module file", "path", path, "error", err)
			return nil
		}
		for _, p := range found {
			if p.IconPath != "" && !filepath.IsAbs(p.IconPath) {
				p.IconPath = filepath.Join(filepath.Dir(path), p.IconPath)
			}
			plugins = append(plugins, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan modules: %w", err)
	}
	return plugins, nil
}

// parseModuleFile extracts every commands.ModuleInfo literal in a file.
func parseModuleFile(filename string) ([]menu.PluginMeta, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, nil, 0)
	if err != nil {
		return nil, err
	}

	var plugins []menu.PluginMeta
	ast.Inspect(node, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok || !isSelector(lit.Type, "commands", "ModuleInfo") {
			return true
		}
		if p := extractModuleFromLiteral(lit); p.ID != "" {
			plugins = append(plugins, p)
		}
		return false
	})
	return plugins, nil
}

// extractModuleFromLiteral reads the constant fields of a ModuleInfo
// literal. Non-constant values are left empty.
func extractModuleFromLiteral(lit *ast.CompositeLit) menu.PluginMeta {
	p := menu.PluginMeta{Activated: true}
	var name string

	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		ident, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		switch ident.Name {
		case "Name":
			name = stringValue(kv.Value)
		case "DisplayName":
			p.DisplayName = stringValue(kv.Value)
		case "Description":
			p.Description = stringValue(kv.Value)
		case "Icon":
			p.IconPath = stringValue(kv.Value)
		case "Reserved":
			p.Reserved = boolValue(kv.Value)
		case "Disabled":
			p.Activated = !boolValue(kv.Value)
		case "Commands":
			if compLit, ok := kv.Value.(*ast.CompositeLit); ok {
				p.Commands = extractCommandsFromLiteral(compLit)
			}
		}
	}

	p.ID = strings.ToLower(name)
	if p.DisplayName == "" {
		p.DisplayName = name
	}
	return p
}

// extractCommandsFromLiteral reads a []commands.CommandInfo literal.
func extractCommandsFromLiteral(lit *ast.CompositeLit) []menu.CommandMeta {
	var cmds []menu.CommandMeta

	for _, elt := range lit.Elts {
		if u, ok := elt.(*ast.UnaryExpr); ok && u.Op == token.AND {
			elt = u.X
		}
		compLit, ok := elt.(*ast.CompositeLit)
		if !ok {
			continue
		}

		var cmd menu.CommandMeta
		for _, cmdElt := range compLit.Elts {
			kv, ok := cmdElt.(*ast.KeyValueExpr)
			if !ok {
				continue
			}
			ident, ok := kv.Key.(*ast.Ident)
			if !ok {
				continue
			}
			switch ident.Name {
			case "Name":
				cmd.Name = stringValue(kv.Value)
			case "Description":
				cmd.Summary = stringValue(kv.Value)
			case "Usage":
				cmd.Usage = stringValue(kv.Value)
			case "AdminOnly":
				cmd.AdminOnly = boolValue(kv.Value)
			case "Aliases":
				if l, ok := kv.Value.(*ast.CompositeLit); ok {
					cmd.Aliases = extractStringSliceFromLiteral(l)
				}
			case "Subcommands":
				if l, ok := kv.Value.(*ast.CompositeLit); ok {
					cmd.Subcommands = extractCommandsFromLiteral(l)
				}
			}
		}
		cmds = append(cmds, cmd)
	}

	return cmds
}

// extractStringSliceFromLiteral extracts a string slice from a composite literal
func extractStringSliceFromLiteral(lit *ast.CompositeLit) []string {
	var result []string
	for _, elt := range lit.Elts {
		if s := stringValue(elt); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func stringValue(expr ast.Expr) string {
	basic, ok := expr.(*ast.BasicLit)
	if !ok || basic.Kind != token.STRING {
		return ""
	}
	s, err := strconv.Unquote(basic.Value)
	if err != nil {
		return ""
	}
	return s
}

func boolValue(expr ast.Expr) bool {
	ident, ok := expr.(*ast.Ident)
	return ok && ident.Name == "true"
}

func isSelector(expr ast.Expr, pkg, name string) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == pkg && sel.Sel.Name == name
}
