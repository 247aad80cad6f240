package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Defaults for a Service.
const (
	DefaultConcurrency = 3
	DefaultTimeout     = 30 * time.Second
	DefaultCacheSize   = 64
)

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets how many renders may run at once.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.slots = n }
}

// WithTimeout bounds the wait for a slot plus the render itself.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithCacheSize sets how many images are kept.
func WithCacheSize(n int) Option {
	return func(s *Service) { s.cacheSize = n }
}

// WithMetrics records renders and cache lookups.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDiskCache keeps rendered images as PNG files in dir, so they survive
// a restart. An empty dir disables the disk layer.
func WithDiskCache(dir string) Option {
	return func(s *Service) { s.diskDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service runs renders on an Engine with bounded concurrency and caches the
// resulting images by view and page content. Identical concurrent renders
// share one engine call.
type Service struct {
	engine    Engine
	metrics   *Metrics
	logger    *slog.Logger
	cacheSize int

	mu      sync.RWMutex
	sem     *semaphore.Weighted
	slots   int
	timeout time.Duration
	diskDir string

	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewService wraps engine.
func NewService(engine Engine, opts ...Option) (*Service, error) {
	s := &Service{
		engine:    engine,
		slots:     DefaultConcurrency,
		timeout:   DefaultTimeout,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.slots < 1 {
		s.slots = 1
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.cacheSize < 1 {
		s.cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, []byte](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	s.cache = cache
	s.sem = semaphore.NewWeighted(int64(s.slots))
	if err := s.SetDiskCache(s.diskDir); err != nil {
		return nil, err
	}
	return s, nil
}

// SetDiskCache switches the disk layer to dir, creating it if needed. An
// empty dir disables it; files already written are left alone.
func (s *Service) SetDiskCache(dir string) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create image cache dir: %w", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diskDir = dir
	return nil
}

func (s *Service) disk() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diskDir
}

// Configure changes the concurrency and timeout. Renders already holding a
// slot finish against the previous limit.
func (s *Service) Configure(concurrency int, timeout time.Duration) {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if concurrency != s.slots {
		s.sem = semaphore.NewWeighted(int64(concurrency))
		s.slots = concurrency
	}
	s.timeout = timeout
}

func (s *Service) limits() (*semaphore.Weighted, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sem, s.timeout
}

// Timeout returns the current render timeout.
func (s *Service) Timeout() time.Duration {
	_, t := s.limits()
	return t
}

// Purge drops every image cached in memory. Files on disk are keyed by
// content and stay until PruneDisk.
func (s *Service) Purge() {
	s.cache.Purge()
}

// Cached reports how many images are cached.
func (s *Service) Cached() int {
	return s.cache.Len()
}

// CacheKey identifies a page for the cache.
func CacheKey(view, html string) string {
	sum := sha256.Sum256([]byte(html))
	return view + ":" + hex.EncodeToString(sum[:])
}

// Render returns the PNG for html, from the cache when possible. The
// returned slice is shared with the cache and must not be modified.
func (s *Service) Render(ctx context.Context, view, html string) ([]byte, error) {
	key := CacheKey(view, html)
	if img, ok := s.cache.Get(key); ok {
		s.metrics.recordCache(true)
		return img, nil
	}
	s.metrics.recordCache(false)

	ch := s.group.DoChan(key, func() (any, error) {
		return s.render(key, view, html)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, &RenderError{Kind: Timeout, Err: ctx.Err()}
	}
}

func (s *Service) render(key, view, html string) ([]byte, error) {
	dir := s.disk()
	if img := s.readDisk(dir, key); img != nil {
		s.metrics.recordDiskHit()
		s.cache.Add(key, img)
		return img, nil
	}

	sem, timeout := s.limits()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sem.Acquire(ctx, 1); err != nil {
		err = &RenderError{Kind: Busy, Err: fmt.Errorf("no render slot free within %s", timeout)}
		s.metrics.recordRender(view, err, 0)
		return nil, err
	}
	defer sem.Release(1)

	start := time.Now()
	img, err := s.engine.Render(ctx, html)
	took := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			err = wrap(Timeout, err)
		} else {
			err = wrap(Failed, err)
		}
		s.metrics.recordRender(view, err, took)
		s.logger.Error("Error rendering help image", "view", view, "kind", KindOf(err).String(), "error", err)
		return nil, err
	}

	s.metrics.recordRender(view, nil, took)
	s.logger.Debug("rendered help image", "view", view, "bytes", len(img), "took", took)
	s.cache.Add(key, img)
	s.writeDisk(dir, key, img)
	return img, nil
}

// diskName maps a cache key to its file name.
func diskName(key string) string {
	return strings.ReplaceAll(key, ":", "_") + ".png"
}

func (s *Service) readDisk(dir, key string) []byte {
	if dir == "" {
		return nil
	}
	img, err := os.ReadFile(filepath.Join(dir, diskName(key)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Error reading cached help image", "key", key, "error", err)
		}
		return nil
	}
	if len(img) == 0 {
		return nil
	}
	return img
}

func (s *Service) writeDisk(dir, key string, img []byte) {
	if dir == "" {
		return
	}
	tmp, err := os.CreateTemp(dir, ".render-*")
	if err != nil {
		s.logger.Warn("Error caching help image on disk", "key", key, "error", err)
		return
	}
	_, err = tmp.Write(img)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(dir, diskName(key)))
	}
	if err != nil {
		os.Remove(tmp.Name())
		s.logger.Warn("Error caching help image on disk", "key", key, "error", err)
	}
}

// PruneDisk deletes every cached image file whose key is not in keep and
// returns how many were removed. It does nothing without a disk layer.
func (s *Service) PruneDisk(keep []string) (int, error) {
	dir := s.disk()
	if dir == "" {
		return 0, nil
	}
	wanted := make(map[string]bool, len(keep))
	for _, key := range keep {
		wanted[diskName(key)] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list image cache: %w", err)
	}
	removed := 0
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".png" || wanted[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("pruned stale help images", "removed", removed, "kept", len(keep))
	}
	return removed, errors.Join(errs...)
}

// Close releases the engine.
func (s *Service) Close() error {
	return s.engine.Close()
}
