package help

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"HelpMenu/render"

	"golang.org/x/sync/errgroup"
)

// diskPruner is implemented by renderers that keep images on disk.
type diskPruner interface {
	PruneDisk(keep []string) (int, error)
}

// Preheat renders the main menu for users and admins and every detail view
// so the first requests hit the cache. It stops at the first failure and
// returns how many images were rendered. After a complete pass, images on
// disk that no current view produces are deleted.
func (r *Router) Preheat(ctx context.Context, concurrency int) (int, error) {
	s := r.deps.Settings()

	type job struct {
		isAdmin bool
		query   string
	}
	jobs := []job{{isAdmin: false}, {isAdmin: true}}

	admin, err := r.Context(ctx, s, true, "")
	if err != nil {
		return 0, fmt.Errorf("assemble admin menu: %w", err)
	}
	for _, c := range admin.Cards {
		jobs = append(jobs, job{isAdmin: true, query: c.ID})
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var (
		rendered atomic.Int32
		skipped  atomic.Bool
		keysMu   sync.Mutex
		keys     []string
	)
	for _, j := range jobs {
		g.Go(func() error {
			rc, err := r.Context(gctx, s, j.isAdmin, j.query)
			if err != nil {
				// A card can vanish between the two assemblies on reload.
				r.deps.Logger.Debug("skipping preheat", "query", j.query, "error", err)
				skipped.Store(true)
				return nil
			}
			html := r.Fill(s, rc)
			if _, err := r.renderPage(gctx, rc.View, html); err != nil {
				return fmt.Errorf("preheat %s %q: %w", rc.View, j.query, err)
			}
			keysMu.Lock()
			keys = append(keys, render.CacheKey(string(rc.View), html))
			keysMu.Unlock()
			rendered.Add(1)
			return nil
		})
	}
	err = g.Wait()
	n := int(rendered.Load())
	if err != nil {
		return n, err
	}
	r.deps.Logger.Info("help menu preheated", "images", n)

	if p, ok := r.deps.Renderer.(diskPruner); ok && !skipped.Load() {
		if _, err := p.PruneDisk(keys); err != nil {
			r.deps.Logger.Warn("Error pruning cached help images", "error", err)
		}
	}
	return n, nil
}
