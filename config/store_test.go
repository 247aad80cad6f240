package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestStore_MissingFileUsesDefaults(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, store.Current().Title)
}

func TestStore_LoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "help.yaml")
	writeSettings(t, path, `
title: Commands
plugin_blacklist:
  - pluginA
plugin_overrides:
  - plugin_id: pluginB
    display_name: Bee
    extra_commands:
      - "buzz|Makes noise"
custom_categories:
  - name: Links
    sort_key: 1
    commands:
      - name: docs
        summary: Read the docs
        prefix: ""
`)

	store, err := NewStore(path)
	require.NoError(t, err)

	s := store.Current()
	assert.Equal(t, "Commands", s.Title)
	assert.Equal(t, []string{"pluginA"}, s.PluginBlacklist)
	require.Len(t, s.PluginOverrides, 1)
	assert.Equal(t, "Bee", s.PluginOverrides[0].DisplayName)
	require.Len(t, s.CustomCategories, 1)
	assert.Equal(t, "docs", s.CustomCategories[0].Commands[0].Name)
	assert.Equal(t, "Read the docs", s.CustomCategories[0].Commands[0].Summary)
}

func TestStore_InvalidOptionIsDefaulted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "help.yaml")
	writeSettings(t, path, "accent_color: not-a-color\ntitle: Kept\n")

	store, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAccentColor, store.Current().AccentColor)
	assert.Equal(t, "Kept", store.Current().Title)
}

func TestStore_ReloadSwapsSnapshotAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "help.yaml")
	writeSettings(t, path, "title: First\n")

	var hookCalls atomic.Int32
	store, err := NewStore(path, WithReloadHook(func(err error) {
		hookCalls.Add(1)
	}))
	require.NoError(t, err)

	before := store.Current()
	var seen *Settings
	store.OnChange(func(s *Settings) { seen = s })

	writeSettings(t, path, "title: Second\n")
	require.NoError(t, store.Reload())

	assert.Equal(t, "Second", store.Current().Title)
	assert.Equal(t, "First", before.Title, "old snapshot must not be mutated")
	require.NotNil(t, seen)
	assert.Equal(t, "Second", seen.Title)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestStore_BrokenFileKeepsPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "help.yaml")
	writeSettings(t, path, "title: Good\n")

	var lastErr error
	store, err := NewStore(path, WithReloadHook(func(err error) { lastErr = err }))
	require.NoError(t, err)

	writeSettings(t, path, "title: [unterminated\n")
	require.Error(t, store.Reload())
	assert.Error(t, lastErr)
	assert.Equal(t, "Good", store.Current().Title)
}

func TestStore_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "help.yaml")
	writeSettings(t, path, "title: Before\n")

	store, err := NewStore(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))

	writeSettings(t, path, "title: After\n")

	assert.Eventually(t, func() bool {
		return store.Current().Title == "After"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStaticStore(t *testing.T) {
	s := Defaults()
	s.Title = "Static"
	store := NewStaticStore(s)

	assert.Equal(t, "Static", store.Current().Title)
	assert.NoError(t, store.Reload())
	assert.Error(t, store.Watch(context.Background()))
}

func TestLoadRaw(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRaw(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	path := filepath.Join(dir, "help.yaml")
	writeSettings(t, path, "title: Commands\nrender_timeout: 10s\n")
	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Equal(t, "Commands", raw["title"])

	s, err := Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.RenderTimeout)

	writeSettings(t, path, "title: [unclosed")
	_, err = LoadRaw(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}
