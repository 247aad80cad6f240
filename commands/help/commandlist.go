package help

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"HelpMenu/config"
	"HelpMenu/menu"

	"github.com/bwmarrin/discordgo"
)

const (
	pageLeft  = "⬅️"
	pageRight = "➡️"

	commandsPerPage = 20
	paginationTTL   = 15 * time.Minute
)

// BuildPages lays the menu out as text embeds: an overview page followed by
// one or more pages per card.
func BuildPages(rc menu.RenderContext) []*discordgo.MessageEmbed {
	color := embedColor(rc.AccentColor)

	var pages []*discordgo.MessageEmbed
	for start := 0; ; start += commandsPerPage {
		overview := &discordgo.MessageEmbed{
			Title:       rc.Title,
			Description: rc.Subtitle + "\nUse the arrow reactions to navigate between pages.",
			Color:       color,
		}
		if len(rc.Cards) == 0 {
			overview.Description = "No commands to show."
		}
		end := min(start+commandsPerPage, len(rc.Cards))
		for _, c := range rc.Cards[start:end] {
			overview.Fields = append(overview.Fields, &discordgo.MessageEmbedField{
				Name:  c.Name,
				Value: fmt.Sprintf("%d commands (`%scl %s`)", c.CommandCount, rc.Prefix, c.ID),
			})
		}
		pages = append(pages, overview)
		if end == len(rc.Cards) {
			break
		}
	}

	for _, c := range rc.Cards {
		pages = append(pages, cardPages(c, color)...)
	}

	numberPages(pages, rc.FooterText)
	return pages
}

// CommandPages builds the text command list, or one plugin's pages when args
// name a plugin.
func (r *Router) CommandPages(ctx context.Context, s *config.Settings, isAdmin bool, args []string) ([]*discordgo.MessageEmbed, error) {
	plugins, opts, err := r.prepare(ctx, s, isAdmin)
	if err != nil {
		return nil, err
	}
	opts.View = menu.ViewMainExpanded

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return BuildPages(menu.Assemble(plugins, s, opts)), nil
	}

	rc, err := menu.AssembleDetail(plugins, s, opts, query)
	if err != nil {
		return nil, err
	}
	pages := cardPages(*rc.Detail, embedColor(rc.AccentColor))
	numberPages(pages, rc.FooterText)
	return pages, nil
}

func numberPages(pages []*discordgo.MessageEmbed, footerText string) {
	for i, page := range pages {
		footer := fmt.Sprintf("Page %d of %d", i+1, len(pages))
		if footerText != "" {
			footer += " • " + footerText
		}
		page.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}
}

func cardPages(c menu.Card, color int) []*discordgo.MessageEmbed {
	var pages []*discordgo.MessageEmbed
	for start := 0; ; start += commandsPerPage {
		page := &discordgo.MessageEmbed{
			Title:       "Command List - " + c.Name,
			Description: c.Description,
			Color:       color,
		}
		end := min(start+commandsPerPage, len(c.Commands))
		for _, cmd := range c.Commands[start:end] {
			page.Fields = append(page.Fields, commandField(cmd))
		}
		pages = append(pages, page)
		if end == len(c.Commands) {
			break
		}
	}
	return pages
}

func commandField(cmd menu.CommandView) *discordgo.MessageEmbedField {
	name := cmd.DisplayName
	if len(cmd.Aliases) > 0 {
		name += fmt.Sprintf(" (Aliases: %s)", strings.Join(cmd.Aliases, ", "))
	}
	if cmd.AdminOnly {
		name += " [admin]"
	}

	value := cmd.Summary
	if value == "" {
		value = "No description available"
	}
	if cmd.Usage != "" {
		value += fmt.Sprintf("\nUsage: `%s`", cmd.Usage)
	}
	return &discordgo.MessageEmbedField{Name: name, Value: value}
}

func embedColor(hex string) int {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	v, err := strconv.ParseInt(h, 16, 32)
	if err != nil || len(h) != 6 {
		return 0x4e96f7
	}
	return int(v)
}

// PaginationState holds the state of paginated messages
type PaginationState struct {
	UserID      string
	MessageID   string
	CurrentPage int
	Pages       []*discordgo.MessageEmbed
	CreatedAt   time.Time
}

// PaginationManager manages pagination states
type PaginationManager struct {
	states map[string]*PaginationState // messageID -> state
	now    func() time.Time
	mu     sync.Mutex
}

// NewPaginationManager creates a new pagination manager
func NewPaginationManager() *PaginationManager {
	return &PaginationManager{
		states: make(map[string]*PaginationState),
		now:    time.Now,
	}
}

// AddState adds a pagination state and drops expired ones.
func (pm *PaginationManager) AddState(state *PaginationState) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now()
	for id, st := range pm.states {
		if now.Sub(st.CreatedAt) > paginationTTL {
			delete(pm.states, id)
		}
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	pm.states[state.MessageID] = state
}

// Turn moves the page for a reaction and returns the page to show. Only the
// user who asked for the list can turn its pages.
func (pm *PaginationManager) Turn(messageID, userID, emoji string) (*discordgo.MessageEmbed, bool) {
	if emoji != pageLeft && emoji != pageRight {
		return nil, false
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	state, exists := pm.states[messageID]
	if !exists || state.UserID != userID || len(state.Pages) == 0 {
		return nil, false
	}
	if pm.now().Sub(state.CreatedAt) > paginationTTL {
		delete(pm.states, messageID)
		return nil, false
	}

	if emoji == pageRight {
		state.CurrentPage = (state.CurrentPage + 1) % len(state.Pages)
	} else {
		state.CurrentPage = (state.CurrentPage - 1 + len(state.Pages)) % len(state.Pages)
	}
	return state.Pages[state.CurrentPage], true
}

// Len reports how many lists are tracked.
func (pm *PaginationManager) Len() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.states)
}

// Global pagination manager
var paginationManager = NewPaginationManager()
