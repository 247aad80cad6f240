package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"HelpMenu/bot"
	"HelpMenu/commands"
	_ "HelpMenu/commands/admin"
	_ "HelpMenu/commands/general"
	"HelpMenu/commands/help"
	"HelpMenu/config"
	"HelpMenu/render"
	"HelpMenu/templates"
	"HelpMenu/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	logger := utils.NewLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return errors.New("DISCORD_TOKEN environment variable is required")
	}

	b, err := bot.NewBot(token, os.Getenv("DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	defer b.Close()
	b.Logger = logger
	b.DataDir = envOr("HELP_DATA_DIR", "data")
	b.Metrics = render.NewMetrics()

	store, err := config.NewStore(envOr("HELP_CONFIG", "data/help.yaml"),
		config.WithLogger(logger),
		config.WithReloadHook(b.Metrics.RecordReload))
	if err != nil {
		return err
	}
	b.Settings = store
	settings := store.Current()

	b.Renderer, err = render.NewService(render.NewPlaywrightEngine("", logger),
		render.WithConcurrency(settings.RenderConcurrency),
		render.WithTimeout(settings.RenderTimeout),
		render.WithMetrics(b.Metrics),
		render.WithDiskCache(diskCacheDir(b.DataDir, settings)),
		render.WithLogger(logger))
	if err != nil {
		return err
	}
	b.Templates = templates.NewSelector(b.DataDir, logger)
	b.Limiter = utils.NewRateLimiter(settings.RateLimitPerMinute, time.Minute)

	store.OnChange(func(s *config.Settings) {
		b.Renderer.Configure(s.RenderConcurrency, s.RenderTimeout)
		if err := b.Renderer.SetDiskCache(diskCacheDir(b.DataDir, s)); err != nil {
			logger.Warn("Help image disk cache disabled", "error", err)
			b.Renderer.SetDiskCache("")
		}
		b.Limiter.SetLimit(s.RateLimitPerMinute)
		b.Renderer.Purge()
		logger.Info("help settings reloaded")
		go help.Preheat(ctx, b)
	})
	if err := store.Watch(ctx); err != nil {
		logger.Warn("Settings hot reload disabled", "error", err)
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		srv := serveMetrics(addr, b.Metrics, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	b.Client.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("Connected to Discord", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	b.Client.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		commands.Dispatch(b, s, m)
	})
	b.Client.AddHandler(help.HandlePagination)

	if err := b.Client.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer b.Client.Close()

	go help.Preheat(ctx, b)
	go pruneLimiter(ctx, b.Limiter)

	logger.Info("Bot is running. Press Ctrl+C to exit.")
	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}

// diskCacheDir is where rendered images persist, or "" when disabled.
func diskCacheDir(dataDir string, s *config.Settings) string {
	if !s.DiskCache {
		return ""
	}
	return filepath.Join(dataDir, "cache")
}

func serveMetrics(addr string, metrics *render.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}

func pruneLimiter(ctx context.Context, rl *utils.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
