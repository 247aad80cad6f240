package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"HelpMenu/config"
	"HelpMenu/render"
	"HelpMenu/templates"
	"HelpMenu/utils"

	"github.com/bwmarrin/discordgo"
	_ "github.com/lib/pq"
)

// BuildVersion is reported in the help footer. Set it with -ldflags.
var BuildVersion = "1.0.0"

// Bot carries the shared state handed to every command handler.
type Bot struct {
	Db     *sql.DB
	Client *discordgo.Session
	Logger *slog.Logger

	Settings  *config.Store
	Renderer  *render.Service
	Metrics   *render.Metrics
	Templates *templates.Selector
	Blacklist *BlacklistStore
	Limiter   *utils.RateLimiter

	DataDir string
	Version string
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    is_admin BOOLEAN DEFAULT FALSE,
    is_mod BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS help_blacklist (
    plugin_id TEXT PRIMARY KEY,
    added_by TEXT NOT NULL,
    added_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

func NewBot(token string, dbURL string) (*Bot, error) {
	client, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	client.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Bot{
		Db:        db,
		Client:    client,
		Logger:    slog.Default(),
		Blacklist: NewBlacklistStore(db),
		Version:   BuildVersion,
	}, nil
}

// IsBotAdmin reports the users.is_admin flag.
func (b *Bot) IsBotAdmin(userID string) (bool, error) {
	if b.Db == nil {
		return false, nil
	}
	var isAdmin bool
	err := b.Db.QueryRow("SELECT is_admin FROM users WHERE user_id = $1", userID).Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil // user not found, cant be admin
		}
		return false, err
	}
	return isAdmin, nil
}

// SetBotAdmin sets the users.is_admin flag.
func (b *Bot) SetBotAdmin(ctx context.Context, userID string, isAdmin bool) error {
	_, err := b.Db.ExecContext(ctx,
		"INSERT INTO users (user_id, is_admin) VALUES ($1, $2) ON CONFLICT (user_id) DO UPDATE SET is_admin = $2",
		userID, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin %s: %w", userID, err)
	}
	return nil
}

// IsAdmin reports whether userID may see the admin help menu: either the bot
// admin flag is set or the user administers the guild.
func (b *Bot) IsAdmin(s *discordgo.Session, guildID, userID string) (bool, error) {
	isAdmin, err := b.IsBotAdmin(userID)
	if err != nil {
		b.Logger.Error("Error checking admin status", "user", userID, "error", err)
	}
	if isAdmin {
		return true, nil
	}
	if s == nil || guildID == "" {
		return false, err
	}
	isGuildAdmin, gerr := utils.CheckAdminPermission(s, guildID, userID)
	if gerr != nil {
		return false, errors.Join(err, gerr)
	}
	return isGuildAdmin, nil
}

// Close releases the renderer and the database.
func (b *Bot) Close() error {
	var errs []error
	if b.Renderer != nil {
		errs = append(errs, b.Renderer.Close())
	}
	if b.Db != nil {
		errs = append(errs, b.Db.Close())
	}
	return errors.Join(errs...)
}

// BlacklistStore keeps plugin ids hidden at runtime by admins. They are
// merged with the plugin_blacklist setting.
type BlacklistStore struct {
	db *sql.DB
}

func NewBlacklistStore(db *sql.DB) *BlacklistStore {
	return &BlacklistStore{db: db}
}

// List returns the hidden plugin ids, oldest first.
func (bs *BlacklistStore) List(ctx context.Context) ([]string, error) {
	if bs == nil || bs.db == nil {
		return nil, nil
	}
	rows, err := bs.db.QueryContext(ctx, "SELECT plugin_id FROM help_blacklist ORDER BY added_at, plugin_id")
	if err != nil {
		return nil, fmt.Errorf("query help blacklist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan help blacklist: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Add hides pluginID. It reports false when the id was already hidden.
func (bs *BlacklistStore) Add(ctx context.Context, pluginID, addedBy string) (bool, error) {
	res, err := bs.db.ExecContext(ctx,
		"INSERT INTO help_blacklist (plugin_id, added_by) VALUES ($1, $2) ON CONFLICT (plugin_id) DO NOTHING",
		pluginID, addedBy)
	if err != nil {
		return false, fmt.Errorf("hide plugin %s: %w", pluginID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remove shows pluginID again. It reports false when the id was not hidden.
func (bs *BlacklistStore) Remove(ctx context.Context, pluginID string) (bool, error) {
	res, err := bs.db.ExecContext(ctx, "DELETE FROM help_blacklist WHERE plugin_id = $1", pluginID)
	if err != nil {
		return false, fmt.Errorf("show plugin %s: %w", pluginID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
