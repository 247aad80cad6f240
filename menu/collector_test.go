package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) ListPlugins(ctx context.Context) ([]PluginMeta, error) {
	return nil, errors.New("host unavailable")
}

func TestCollector_FiltersAndFlattens(t *testing.T) {
	src := StaticSource{
		{ID: "help", Activated: true, Commands: []CommandMeta{{Name: "help"}}},
		{ID: "core", Reserved: true, Activated: true, Commands: []CommandMeta{{Name: "reload"}}},
		{ID: "off", Activated: false, Commands: []CommandMeta{{Name: "x"}}},
		{
			ID:          "music",
			DisplayName: "Music",
			Description: " Plays songs ",
			IconPath:    "music.png",
			Activated:   true,
			Commands: []CommandMeta{
				{Name: "play", Aliases: []string{"p"}, Summary: "Play a song"},
				{Name: "queue", Subcommands: []CommandMeta{
					{Name: "show"},
					{Name: "clear", AdminOnly: true},
					{Name: "admin", AdminOnly: true, Subcommands: []CommandMeta{{Name: "purge"}}},
				}},
				{Name: "play", Summary: "duplicate"},
			},
		},
		{ID: "empty", Activated: true},
	}

	c := &Collector{Source: src, SelfID: "help", Assets: fakeAssets{}}
	records := c.Collect(context.Background(), false)
	require.Len(t, records, 2)

	music := records[0]
	assert.Equal(t, "music", music.ID)
	assert.Equal(t, "Music", music.DisplayName)
	assert.Equal(t, "Plays songs", music.Description)
	assert.Equal(t, "img:music.png", music.IconURL)
	assert.True(t, music.Visible)

	var names []string
	for _, cmd := range music.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"play", "queue show", "queue clear", "queue admin purge"}, names)
	assert.False(t, music.Commands[1].AdminOnly)
	assert.True(t, music.Commands[2].AdminOnly)
	assert.True(t, music.Commands[3].AdminOnly, "admin flag is inherited by nested groups")

	empty := records[1]
	assert.Equal(t, "empty", empty.DisplayName)
	assert.Equal(t, "icon", empty.IconURL)
	assert.False(t, empty.Visible)

	withBuiltin := c.Collect(context.Background(), true)
	require.Len(t, withBuiltin, 3)
	assert.Equal(t, "core", withBuiltin[0].ID)
}

func TestCollector_SkipsMalformedPlugins(t *testing.T) {
	src := StaticSource{
		{ID: "", Activated: true, Commands: []CommandMeta{{Name: "x"}}},
		{ID: "broken", Activated: true, Commands: []CommandMeta{{Name: " "}}},
		{ID: "ok", Activated: true, Commands: []CommandMeta{{Name: "y"}}},
		{ID: "ok", Activated: true, Commands: []CommandMeta{{Name: "z"}}},
	}

	c := &Collector{Source: src}
	records := c.Collect(context.Background(), false)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].ID)
	assert.Equal(t, "y", records[0].Commands[0].Name)
	assert.Equal(t, "", records[0].IconURL)
}

type panickingAssets struct{ fakeAssets }

func (panickingAssets) Image(path string) string {
	if path == "boom" {
		panic("bad icon")
	}
	return path
}

func TestCollector_RecoversFromPanickingPlugin(t *testing.T) {
	src := StaticSource{
		{ID: "bad", IconPath: "boom", Activated: true, Commands: []CommandMeta{{Name: "x"}}},
		{ID: "good", Activated: true, Commands: []CommandMeta{{Name: "y"}}},
	}
	c := &Collector{Source: src, Assets: panickingAssets{}}
	records := c.Collect(context.Background(), false)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].ID)
}

func TestCollector_SourceErrorYieldsEmptyList(t *testing.T) {
	c := &Collector{Source: failingSource{}}
	records := c.Collect(context.Background(), false)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
