package help

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"HelpMenu/config"
	"HelpMenu/menu"
	"HelpMenu/render"
	"HelpMenu/utils"

	"github.com/google/uuid"
)

const adminFlag = "--admin"

// ErrBlacklistUnavailable is returned for non-admin menus when the runtime
// blacklist cannot be read. Such menus are refused rather than shown with
// hidden plugins exposed.
var ErrBlacklistUnavailable = errors.New("help blacklist unavailable")

// Renderer turns a filled page into an image.
type Renderer interface {
	Render(ctx context.Context, view, html string) ([]byte, error)
}

// Filler fills the template for a view.
type Filler interface {
	Fill(rc menu.RenderContext, custom bool) string
}

// Deps are the collaborators of a Router.
type Deps struct {
	Source    menu.PluginSource
	Settings  func() *config.Settings
	Blacklist func(ctx context.Context) ([]string, error)
	Renderer  Renderer
	Templates Filler
	Assets    menu.Assets
	Limiter   *utils.RateLimiter
	Prefix    string
	Version   string
	SelfID    string
	Logger    *slog.Logger
}

// Request is one help invocation.
type Request struct {
	UserID string
	// Args are the words after the command name.
	Args []string
	// CheckAdmin reports the caller's admin status. It is only called when
	// the answer matters.
	CheckAdmin func() (bool, error)
}

// Reply is what the router answers with: an image, or text when the image
// could not be produced.
type Reply struct {
	Text     string
	Image    []byte
	FileName string
	View     menu.View
}

// Router answers help requests.
type Router struct {
	deps Deps
}

// NewRouter creates a Router.
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Settings == nil {
		deps.Settings = config.Defaults
	}
	if deps.SelfID == "" {
		deps.SelfID = ModuleID
	}
	return &Router{deps: deps}
}

// Handle runs one help request. It never fails; every problem becomes a
// text reply.
func (r *Router) Handle(ctx context.Context, req Request) Reply {
	logger := r.deps.Logger.With("request_id", uuid.NewString(), "user", req.UserID)

	if r.deps.Limiter != nil && !r.deps.Limiter.Allow(req.UserID, "help") {
		wait := r.deps.Limiter.GetRetryAfter(req.UserID, "help")
		return Reply{Text: fmt.Sprintf("You're requesting help too quickly. Try again in %d seconds.", wait)}
	}

	s := r.deps.Settings()
	query, hasFlag := parseArgs(req.Args)

	isAdmin := false
	if hasFlag || s.AdminShowAll {
		isAdmin = r.checkAdmin(logger, req)
	}
	if hasFlag && !isAdmin {
		err := &menu.PermissionError{UserID: req.UserID}
		logger.Info("denied admin help menu", "error", err)
		return Reply{Text: "You don't have permission to view the admin help menu."}
	}
	showAll := isAdmin && (hasFlag || s.AdminShowAll)

	if s.Debug {
		logger.Info("help request",
			"is_admin", isAdmin,
			"admin_flag", hasFlag,
			"admin_show_all", s.AdminShowAll,
			"show_all", showAll,
			"query", query)
	}

	rc, err := r.Context(ctx, s, showAll, query)
	if err != nil {
		var lookup *menu.LookupError
		if errors.As(err, &lookup) {
			return Reply{Text: fmt.Sprintf("No plugin matches `%s`. Send `%shelp` to see all plugins.", lookup.Query, r.deps.Prefix)}
		}
		logger.Error("Error assembling help menu", "error", err)
		if errors.Is(err, ErrBlacklistUnavailable) {
			return Reply{Text: blacklistFailureText}
		}
		return Reply{Text: "Could not build the help menu."}
	}

	img, err := r.Render(ctx, s, rc)
	if err != nil {
		logger.Error("Error rendering help menu", "view", rc.View, "error", err)
		return Reply{Text: renderFailureText(err), View: rc.View}
	}
	return Reply{Image: img, FileName: "help.png", View: rc.View}
}

func (r *Router) checkAdmin(logger *slog.Logger, req Request) bool {
	if req.CheckAdmin == nil {
		return false
	}
	ok, err := req.CheckAdmin()
	if err != nil {
		logger.Warn("Error checking admin status", "error", err)
	}
	return ok
}

// Context assembles the view model: the detail view when query is set,
// otherwise the main menu in the configured layout.
func (r *Router) Context(ctx context.Context, s *config.Settings, isAdmin bool, query string) (menu.RenderContext, error) {
	plugins, opts, err := r.prepare(ctx, s, isAdmin)
	if err != nil {
		return menu.RenderContext{}, err
	}
	if query != "" {
		return menu.AssembleDetail(plugins, s, opts, query)
	}
	opts.View = mainView(s)
	return menu.Assemble(plugins, s, opts), nil
}

// Records returns the ordered records a menu would show.
func (r *Router) Records(ctx context.Context, s *config.Settings, isAdmin bool) ([]menu.PluginRecord, error) {
	plugins, opts, err := r.prepare(ctx, s, isAdmin)
	if err != nil {
		return nil, err
	}
	return menu.BuildRecords(plugins, s, opts), nil
}

func (r *Router) prepare(ctx context.Context, s *config.Settings, isAdmin bool) ([]menu.PluginRecord, menu.Options, error) {
	collector := &menu.Collector{
		Source: r.deps.Source,
		Assets: r.deps.Assets,
		SelfID: r.deps.SelfID,
		Logger: r.deps.Logger,
	}
	var plugins []menu.PluginRecord
	if r.deps.Source != nil {
		plugins = collector.Collect(ctx, s.ShowBuiltinCmds)
	}

	var blacklist []string
	if r.deps.Blacklist != nil && !isAdmin {
		ids, err := r.deps.Blacklist(ctx)
		if err != nil {
			return nil, menu.Options{}, fmt.Errorf("%w: %w", ErrBlacklistUnavailable, err)
		}
		blacklist = ids
	}

	return plugins, menu.Options{
		IsAdmin:   isAdmin,
		Prefix:    r.deps.Prefix,
		Blacklist: blacklist,
		Version:   r.deps.Version,
		Assets:    r.deps.Assets,
		Logger:    r.deps.Logger,
	}, nil
}

// Render fills the template for rc and renders it.
func (r *Router) Render(ctx context.Context, s *config.Settings, rc menu.RenderContext) ([]byte, error) {
	return r.renderPage(ctx, rc.View, r.Fill(s, rc))
}

func (r *Router) renderPage(ctx context.Context, view menu.View, html string) ([]byte, error) {
	if r.deps.Renderer == nil || r.deps.Templates == nil {
		return nil, &render.RenderError{Kind: render.NotInstalled, Err: errors.New("no renderer configured")}
	}
	return r.deps.Renderer.Render(ctx, string(view), html)
}

// Fill returns the filled page for rc, without rendering it.
func (r *Router) Fill(s *config.Settings, rc menu.RenderContext) string {
	if r.deps.Templates == nil {
		return ""
	}
	return r.deps.Templates.Fill(rc, s.CustomTemplates)
}

func mainView(s *config.Settings) menu.View {
	if s.ExpandCommands {
		return menu.ViewMainExpanded
	}
	return menu.ViewMainCard
}

// parseArgs strips the admin flag from the words after the command name.
func parseArgs(args []string) (query string, admin bool) {
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if strings.EqualFold(a, adminFlag) {
			admin = true
			continue
		}
		rest = append(rest, a)
	}
	return strings.Join(rest, " "), admin
}

const blacklistFailureText = "The help menu is temporarily unavailable. Please try again later."

func renderFailureText(err error) string {
	switch render.KindOf(err) {
	case render.NotInstalled:
		return "The help menu renderer is not installed. Ask the bot operator to run `helpmenu install` to set up the browser engine."
	case render.Timeout, render.Busy:
		return "The help menu took too long to render. Please try again in a moment."
	default:
		return "Rendering the help menu failed. Please try again later."
	}
}
