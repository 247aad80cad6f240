package utils

import (
	"embed"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed resources/default_icon.svg resources/logo.svg
var resources embed.FS

var (
	defaultIconOnce sync.Once
	defaultIconURI  string
	defaultLogoOnce sync.Once
	defaultLogoURI  string
)

// DataURI encodes raw bytes as a base64 data URI for the given file name.
func DataURI(name string, data []byte) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = "image/png"
	}
	// Drop parameters like "; charset=utf-8" that some platforms add for svg.
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ReadImageDataURI reads an image file and returns it as a data URI, or ""
// when the file is missing or unreadable.
func ReadImageDataURI(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Error reading image", "path", path, "error", err)
		return ""
	}
	return DataURI(path, data)
}

// DefaultIconURI returns the icon used for plugins that ship none.
func DefaultIconURI() string {
	defaultIconOnce.Do(func() {
		defaultIconURI = embeddedURI("resources/default_icon.svg")
	})
	return defaultIconURI
}

// DefaultLogoURI returns the header logo used when none is configured.
func DefaultLogoURI() string {
	defaultLogoOnce.Do(func() {
		defaultLogoURI = embeddedURI("resources/logo.svg")
	})
	return defaultLogoURI
}

func embeddedURI(name string) string {
	data, err := resources.ReadFile(name)
	if err != nil {
		return ""
	}
	return DataURI(name, data)
}

// ResolveDataPath resolves raw against dataDir and rejects paths that escape it.
func ResolveDataPath(dataDir, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty path")
	}
	base, err := filepath.Abs(dataDir)
	if err != nil {
		return "", err
	}
	p := raw
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the data directory", raw)
	}
	return p, nil
}

// Assets loads images for the menu: data-directory files configured by the
// operator, plugin icons, and the embedded fallbacks.
type Assets struct {
	DataDir string
}

// DataImage returns a data URI for a path relative to the data directory,
// or "" when it is empty, missing, or escapes the directory.
func (a Assets) DataImage(raw string) string {
	if raw == "" {
		return ""
	}
	p, err := ResolveDataPath(a.DataDir, raw)
	if err != nil {
		slog.Warn("rejected data path", "path", raw, "error", err)
		return ""
	}
	return ReadImageDataURI(p)
}

// Image returns a data URI for an arbitrary image path, or "".
func (a Assets) Image(path string) string {
	return ReadImageDataURI(path)
}

// DefaultIcon returns the embedded plugin icon.
func (a Assets) DefaultIcon() string {
	return DefaultIconURI()
}

// DefaultLogo returns the embedded header logo.
func (a Assets) DefaultLogo() string {
	return DefaultLogoURI()
}
