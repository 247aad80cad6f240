package help

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HelpMenu/config"
	"HelpMenu/menu"
	"HelpMenu/render"
	"HelpMenu/templates"
	"HelpMenu/utils"
)

type stubAssets struct{}

func (stubAssets) DataImage(raw string) string { return "data:" + raw }
func (stubAssets) Image(path string) string    { return "img:" + path }
func (stubAssets) DefaultIcon() string         { return "icon" }
func (stubAssets) DefaultLogo() string         { return "logo" }

type recordingFiller struct {
	mu   sync.Mutex
	seen []menu.RenderContext
}

func (f *recordingFiller) Fill(rc menu.RenderContext, custom bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, rc)
	return "<html>" + string(rc.View) + "</html>"
}

func (f *recordingFiller) last() menu.RenderContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1]
}

type stubRenderer struct {
	err   error
	calls atomic.Int32
}

func (r *stubRenderer) Render(ctx context.Context, view, html string) ([]byte, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png:" + view), nil
}

func testSource() menu.StaticSource {
	return menu.StaticSource{
		{ID: "pluginA", DisplayName: "Alpha", Activated: true, Commands: []menu.CommandMeta{{Name: "a1"}}},
		{ID: "pluginB", Activated: true, Commands: []menu.CommandMeta{{Name: "b1"}, {Name: "b2"}}},
		{ID: "pluginC", Activated: true, Commands: []menu.CommandMeta{{Name: "c1", AdminOnly: true}}},
		{ID: "help", Activated: true, Reserved: true, Commands: []menu.CommandMeta{{Name: "help"}}},
	}
}

func testSettings() *config.Settings {
	s := config.Defaults()
	s.PluginBlacklist = []string{"pluginA"}
	s.PluginOverrides = []config.OverrideRule{{PluginID: "pluginB", DisplayName: "Bee"}}
	return s
}

func newTestRouter(s *config.Settings, filler Filler, renderer Renderer) *Router {
	return NewRouter(Deps{
		Source:    testSource(),
		Settings:  func() *config.Settings { return s },
		Renderer:  renderer,
		Templates: filler,
		Assets:    stubAssets{},
		Prefix:    ".",
		Version:   "1.2.3",
	})
}

func adminCheck(isAdmin bool, calls *int) func() (bool, error) {
	return func() (bool, error) {
		*calls++
		return isAdmin, nil
	}
}

func cardNames(rc menu.RenderContext) []string {
	var names []string
	for _, c := range rc.Cards {
		names = append(names, c.Name)
	}
	return names
}

func TestHandle_UserSeesFilteredMenu(t *testing.T) {
	filler := &recordingFiller{}
	renderer := &stubRenderer{}
	r := newTestRouter(testSettings(), filler, renderer)

	calls := 0
	reply := r.Handle(context.Background(), Request{UserID: "u1", CheckAdmin: adminCheck(true, &calls)})

	require.Empty(t, reply.Text)
	assert.Equal(t, []byte("png:main_card"), reply.Image)
	assert.Equal(t, "help.png", reply.FileName)
	assert.Equal(t, menu.ViewMainCard, reply.View)
	assert.Zero(t, calls, "admin status is not needed for the plain menu")

	rc := filler.last()
	assert.False(t, rc.IsAdmin)
	assert.Equal(t, []string{"Bee", "pluginC"}, cardNames(rc))
}

func TestHandle_AdminFlag(t *testing.T) {
	filler := &recordingFiller{}
	r := newTestRouter(testSettings(), filler, &stubRenderer{})

	calls := 0
	reply := r.Handle(context.Background(), Request{UserID: "admin", Args: []string{"--admin"}, CheckAdmin: adminCheck(true, &calls)})
	require.NotNil(t, reply.Image)
	assert.Equal(t, 1, calls)

	rc := filler.last()
	assert.True(t, rc.IsAdmin)
	assert.Equal(t, []string{"Alpha", "Bee", "pluginC"}, cardNames(rc))
}

func TestHandle_AdminFlagDeniedForUsers(t *testing.T) {
	renderer := &stubRenderer{}
	r := newTestRouter(testSettings(), &recordingFiller{}, renderer)

	calls := 0
	reply := r.Handle(context.Background(), Request{UserID: "u1", Args: []string{"--ADMIN"}, CheckAdmin: adminCheck(false, &calls)})
	assert.Nil(t, reply.Image)
	assert.Equal(t, "You don't have permission to view the admin help menu.", reply.Text)
	assert.Equal(t, 1, calls)
	assert.Zero(t, renderer.calls.Load())
}

func TestHandle_AdminCheckErrorDenies(t *testing.T) {
	r := newTestRouter(testSettings(), &recordingFiller{}, &stubRenderer{})

	reply := r.Handle(context.Background(), Request{
		UserID:     "u1",
		Args:       []string{"--admin"},
		CheckAdmin: func() (bool, error) { return false, errors.New("db down") },
	})
	assert.Contains(t, reply.Text, "permission")
}

func TestHandle_AdminShowAll(t *testing.T) {
	s := testSettings()
	s.AdminShowAll = true
	filler := &recordingFiller{}
	r := newTestRouter(s, filler, &stubRenderer{})

	calls := 0
	r.Handle(context.Background(), Request{UserID: "admin", CheckAdmin: adminCheck(true, &calls)})
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"Alpha", "Bee", "pluginC"}, cardNames(filler.last()))

	r.Handle(context.Background(), Request{UserID: "u1", CheckAdmin: adminCheck(false, &calls)})
	assert.Equal(t, []string{"Bee", "pluginC"}, cardNames(filler.last()))
}

func TestHandle_ExpandedView(t *testing.T) {
	s := testSettings()
	s.ExpandCommands = true
	filler := &recordingFiller{}
	r := newTestRouter(s, filler, &stubRenderer{})

	reply := r.Handle(context.Background(), Request{UserID: "u1"})
	assert.Equal(t, menu.ViewMainExpanded, reply.View)

	rc := filler.last()
	require.Len(t, rc.Cards, 2)
	assert.Len(t, rc.Cards[0].Commands, 2)
}

func TestHandle_Detail(t *testing.T) {
	filler := &recordingFiller{}
	r := newTestRouter(testSettings(), filler, &stubRenderer{})

	reply := r.Handle(context.Background(), Request{UserID: "u1", Args: []string{"bee"}})
	assert.Equal(t, menu.ViewSubDetail, reply.View)

	rc := filler.last()
	require.NotNil(t, rc.Detail)
	assert.Equal(t, "pluginB", rc.Detail.ID)
	assert.Len(t, rc.Detail.Commands, 2)
}

func TestHandle_NotFound(t *testing.T) {
	renderer := &stubRenderer{}
	r := newTestRouter(testSettings(), &recordingFiller{}, renderer)

	want := "No plugin matches `nope`. Send `.help` to see all plugins."
	for i := 0; i < 2; i++ {
		reply := r.Handle(context.Background(), Request{UserID: "u1", Args: []string{"nope"}})
		assert.Equal(t, want, reply.Text)
	}
	assert.Zero(t, renderer.calls.Load())
}

func TestHandle_BlacklistedPluginNotFoundForUsers(t *testing.T) {
	r := newTestRouter(testSettings(), &recordingFiller{}, &stubRenderer{})

	reply := r.Handle(context.Background(), Request{UserID: "u1", Args: []string{"alpha"}})
	assert.Contains(t, reply.Text, "No plugin matches `alpha`")

	calls := 0
	reply = r.Handle(context.Background(), Request{UserID: "admin", Args: []string{"alpha", "--admin"}, CheckAdmin: adminCheck(true, &calls)})
	assert.NotNil(t, reply.Image)
}

func TestHandle_RuntimeBlacklist(t *testing.T) {
	filler := &recordingFiller{}
	r := NewRouter(Deps{
		Source:    testSource(),
		Settings:  config.Defaults,
		Blacklist: func(ctx context.Context) ([]string, error) { return []string{"pluginC"}, nil },
		Renderer:  &stubRenderer{},
		Templates: filler,
		Prefix:    ".",
	})

	r.Handle(context.Background(), Request{UserID: "u1"})
	assert.Equal(t, []string{"Alpha", "pluginB"}, cardNames(filler.last()))
}

func TestHandle_BlacklistErrorHidesMenuFromUsers(t *testing.T) {
	filler := &recordingFiller{}
	renderer := &stubRenderer{}
	r := NewRouter(Deps{
		Source:    testSource(),
		Blacklist: func(ctx context.Context) ([]string, error) { return nil, errors.New("db down") },
		Renderer:  renderer,
		Templates: filler,
	})

	reply := r.Handle(context.Background(), Request{UserID: "u1"})
	assert.Nil(t, reply.Image)
	assert.Equal(t, blacklistFailureText, reply.Text)
	assert.Zero(t, renderer.calls.Load())

	_, err := r.CommandPages(context.Background(), config.Defaults(), false, nil)
	assert.ErrorIs(t, err, ErrBlacklistUnavailable)

	// Admins see everything anyway, so the blacklist is not consulted.
	calls := 0
	reply = r.Handle(context.Background(), Request{UserID: "admin", Args: []string{"--admin"}, CheckAdmin: adminCheck(true, &calls)})
	assert.NotNil(t, reply.Image)
	assert.Len(t, filler.last().Cards, 3)
}

func TestHandle_RenderFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not installed", &render.RenderError{Kind: render.NotInstalled, Err: errors.New("no chromium")}, "helpmenu install"},
		{"timeout", &render.RenderError{Kind: render.Timeout}, "took too long"},
		{"busy", &render.RenderError{Kind: render.Busy}, "took too long"},
		{"failed", errors.New("boom"), "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(testSettings(), &recordingFiller{}, &stubRenderer{err: tt.err})
			reply := r.Handle(context.Background(), Request{UserID: "u1"})
			assert.Nil(t, reply.Image)
			assert.Contains(t, reply.Text, tt.want)
			assert.Equal(t, menu.ViewMainCard, reply.View)
		})
	}
}

func TestHandle_NoRendererIsNotInstalled(t *testing.T) {
	r := newTestRouter(testSettings(), &recordingFiller{}, nil)
	reply := r.Handle(context.Background(), Request{UserID: "u1"})
	assert.Contains(t, reply.Text, "helpmenu install")
}

func TestHandle_RateLimited(t *testing.T) {
	r := NewRouter(Deps{
		Source:    testSource(),
		Renderer:  &stubRenderer{},
		Templates: &recordingFiller{},
		Limiter:   utils.NewRateLimiter(1, time.Minute),
	})

	first := r.Handle(context.Background(), Request{UserID: "u1"})
	assert.NotNil(t, first.Image)

	second := r.Handle(context.Background(), Request{UserID: "u1"})
	assert.Nil(t, second.Image)
	assert.True(t, strings.HasPrefix(second.Text, "You're requesting help too quickly."), second.Text)

	other := r.Handle(context.Background(), Request{UserID: "u2"})
	assert.NotNil(t, other.Image)
}

func TestHandle_WithBuiltinTemplates(t *testing.T) {
	renderer := &captureRenderer{}
	r := NewRouter(Deps{
		Source:    testSource(),
		Settings:  testSettings,
		Renderer:  renderer,
		Templates: templates.NewSelector(t.TempDir(), nil),
		Assets:    stubAssets{},
		Prefix:    ".",
	})

	reply := r.Handle(context.Background(), Request{UserID: "u1"})
	require.NotNil(t, reply.Image)
	assert.Contains(t, renderer.html, "Bee")
	assert.NotContains(t, renderer.html, "Alpha")
}

type captureRenderer struct {
	html string
}

func (c *captureRenderer) Render(ctx context.Context, view, html string) ([]byte, error) {
	c.html = html
	return []byte("png"), nil
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args  []string
		query string
		admin bool
	}{
		{nil, "", false},
		{[]string{"--admin"}, "", true},
		{[]string{"music", "player"}, "music player", false},
		{[]string{"--Admin", "music"}, "music", true},
		{[]string{"music", "--admin"}, "music", true},
	}
	for _, tt := range tests {
		query, admin := parseArgs(tt.args)
		assert.Equal(t, tt.query, query, "args %v", tt.args)
		assert.Equal(t, tt.admin, admin, "args %v", tt.args)
	}
}

func TestRecords_SelfAndBuiltinHidden(t *testing.T) {
	r := newTestRouter(config.Defaults(), &recordingFiller{}, nil)
	records, err := r.Records(context.Background(), config.Defaults(), true)
	require.NoError(t, err)
	for _, rec := range records {
		assert.NotEqual(t, ModuleID, rec.ID)
	}
}

func TestCommandPages(t *testing.T) {
	r := newTestRouter(testSettings(), nil, nil)

	pages, err := r.CommandPages(context.Background(), testSettings(), false, nil)
	require.NoError(t, err)
	// Overview, Bee, pluginC.
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Fields, 2)
	assert.Equal(t, "Command List - Bee", pages[1].Title)
	assert.True(t, strings.HasPrefix(pages[2].Footer.Text, "Page 3 of 3"))

	pages, err = r.CommandPages(context.Background(), testSettings(), false, []string{"pluginc"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Fields, 1)
	assert.Contains(t, pages[0].Fields[0].Name, "[admin]")

	_, err = r.CommandPages(context.Background(), testSettings(), false, []string{"missing"})
	var lookup *menu.LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "missing", lookup.Query)
}

func TestBuildPages_ChunksLargeMenus(t *testing.T) {
	rc := menu.RenderContext{Title: "Help", Prefix: ".", AccentColor: "#fff", FooterText: "v1"}
	for i := 0; i < 25; i++ {
		rc.Cards = append(rc.Cards, menu.Card{ID: "p", Name: "P"})
	}
	big := menu.Card{ID: "big", Name: "Big"}
	for i := 0; i < 45; i++ {
		big.Commands = append(big.Commands, menu.CommandView{DisplayName: ".c"})
	}
	rc.Cards = append(rc.Cards, big)

	pages := BuildPages(rc)
	// Two overview pages, one page for each small card and three for the big one.
	require.Len(t, pages, 2+25+3)
	assert.Len(t, pages[0].Fields, commandsPerPage)
	assert.Len(t, pages[1].Fields, 6)
	assert.Equal(t, 0xffffff, pages[0].Color)
	assert.Equal(t, "Page 1 of 30 • v1", pages[0].Footer.Text)
	for _, p := range pages {
		assert.LessOrEqual(t, len(p.Fields), 25)
	}
}

func TestBuildPages_Empty(t *testing.T) {
	pages := BuildPages(menu.RenderContext{Title: "Help"})
	require.Len(t, pages, 1)
	assert.Equal(t, "No commands to show.", pages[0].Description)
	assert.Equal(t, "Page 1 of 1", pages[0].Footer.Text)
}

func TestCommandField(t *testing.T) {
	f := commandField(menu.CommandView{DisplayName: ".play", Aliases: []string{"p"}, Usage: ".play <song>"})
	assert.Equal(t, ".play (Aliases: p)", f.Name)
	assert.Equal(t, "No description available\nUsage: `.play <song>`", f.Value)
}

func TestEmbedColor(t *testing.T) {
	assert.Equal(t, 0x112233, embedColor("#112233"))
	assert.Equal(t, 0xaabbcc, embedColor("abc"))
	assert.Equal(t, 0x4e96f7, embedColor("red"))
	assert.Equal(t, 0x4e96f7, embedColor(""))
}

func TestPaginationManager(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pm := NewPaginationManager()
	pm.now = func() time.Time { return now }

	pages := []*discordgo.MessageEmbed{{Title: "1"}, {Title: "2"}, {Title: "3"}}
	pm.AddState(&PaginationState{UserID: "u1", MessageID: "m1", Pages: pages})

	page, ok := pm.Turn("m1", "u1", pageRight)
	require.True(t, ok)
	assert.Equal(t, "2", page.Title)

	page, ok = pm.Turn("m1", "u1", pageLeft)
	require.True(t, ok)
	assert.Equal(t, "1", page.Title)

	page, ok = pm.Turn("m1", "u1", pageLeft)
	require.True(t, ok)
	assert.Equal(t, "3", page.Title, "turning wraps around")

	_, ok = pm.Turn("m1", "u2", pageRight)
	assert.False(t, ok, "only the requester turns pages")
	_, ok = pm.Turn("m1", "u1", "👍")
	assert.False(t, ok)
	_, ok = pm.Turn("m2", "u1", pageRight)
	assert.False(t, ok)

	now = now.Add(paginationTTL + time.Second)
	_, ok = pm.Turn("m1", "u1", pageRight)
	assert.False(t, ok, "expired lists stop turning")
	assert.Zero(t, pm.Len())
}

func TestPaginationManager_AddPrunesExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pm := NewPaginationManager()
	pm.now = func() time.Time { return now }

	pm.AddState(&PaginationState{UserID: "u1", MessageID: "old", Pages: []*discordgo.MessageEmbed{{}}})
	now = now.Add(paginationTTL + time.Minute)
	pm.AddState(&PaginationState{UserID: "u1", MessageID: "new", Pages: []*discordgo.MessageEmbed{{}}})
	assert.Equal(t, 1, pm.Len())
}

func TestPreheat(t *testing.T) {
	renderer := &stubRenderer{}
	filler := &recordingFiller{}
	r := newTestRouter(testSettings(), filler, renderer)

	n, err := r.Preheat(context.Background(), 2)
	require.NoError(t, err)
	// User main, admin main and three admin details.
	assert.Equal(t, 5, n)
	assert.EqualValues(t, 5, renderer.calls.Load())
}

func TestPreheat_StopsOnFailure(t *testing.T) {
	renderer := &stubRenderer{err: &render.RenderError{Kind: render.NotInstalled}}
	r := newTestRouter(testSettings(), &recordingFiller{}, renderer)

	n, err := r.Preheat(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, render.NotInstalled, render.KindOf(err))
	assert.Zero(t, n)
}

type echoEngine struct{}

func (echoEngine) Render(ctx context.Context, html string) ([]byte, error) { return []byte(html), nil }
func (echoEngine) Close() error                                            { return nil }

func TestPreheat_PrunesStaleDiskImages(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "main_card_0000.png")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	svc, err := render.NewService(echoEngine{}, render.WithDiskCache(dir))
	require.NoError(t, err)
	r := newTestRouter(testSettings(), &recordingFiller{}, svc)

	_, err = r.Preheat(context.Background(), 2)
	require.NoError(t, err)
	assert.NoFileExists(t, stale)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// The filler gives every main page and every detail page the same HTML.
	assert.Len(t, names, 2)
}
