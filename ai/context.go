package ai

import (
	"fmt"
	"strings"

	"storycave/backend/internal/models"
)

// Context sentinels. Prompts always carry a well-formed context section, so
// the absence of data is spelled out instead of left as an empty string.
const (
	noMemoryContext      = "No previous memories with these characters."
	noInteractionContext = "No recent interactions in this scene."
)

// ContextOptions bounds how much history goes into a prompt. Generation cost
// and latency grow with context length, so these are deliberate control
// knobs, not incidental limits.
type ContextOptions struct {
	// RecentInteractions is how many trailing interactions feed a
	// single-character turn.
	RecentInteractions int
	// ConversationWindow is how many trailing turns feed a multi-character
	// conversation continuation.
	ConversationWindow int
	// MemoryCount is how many trailing memories of the acting character are
	// included.
	MemoryCount int
	// InteractionBudget is the per-interaction content truncation, in
	// characters.
	InteractionBudget int
	// MemoryBudget is the per-memory truncation, in characters.
	MemoryBudget int
}

// DefaultContextOptions returns the production bounds.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		RecentInteractions: 2,
		ConversationWindow: 5,
		MemoryCount:        3,
		InteractionBudget:  80,
		MemoryBudget:       100,
	}
}

// ContextBuilder assembles the bounded textual context that prompts are
// built from. It holds no state beyond its options; every call works from
// the persisted records handed to it.
type ContextBuilder struct {
	opts ContextOptions
}

// NewContextBuilder creates a builder with the given bounds, falling back to
// defaults for zero values.
func NewContextBuilder(opts ContextOptions) *ContextBuilder {
	def := DefaultContextOptions()
	if opts.RecentInteractions <= 0 {
		opts.RecentInteractions = def.RecentInteractions
	}
	if opts.ConversationWindow <= 0 {
		opts.ConversationWindow = def.ConversationWindow
	}
	if opts.MemoryCount <= 0 {
		opts.MemoryCount = def.MemoryCount
	}
	if opts.InteractionBudget <= 0 {
		opts.InteractionBudget = def.InteractionBudget
	}
	if opts.MemoryBudget <= 0 {
		opts.MemoryBudget = def.MemoryBudget
	}
	return &ContextBuilder{opts: opts}
}

// MemoryContext renders the acting character's most recent memories,
// annotated with the names of related characters that are present. memories
// must be in ascending creation order.
func (b *ContextBuilder) MemoryContext(memories []models.Memory, others []models.Character) string {
	if len(memories) == 0 {
		return noMemoryContext
	}

	nameByID := make(map[string]string, len(others))
	for _, c := range others {
		nameByID[c.ID] = c.Name
	}

	start := len(memories) - b.opts.MemoryCount
	if start < 0 {
		start = 0
	}

	var parts []string
	for _, memory := range memories[start:] {
		points := strings.Join(memory.KeyPointList(), "; ")
		points = truncate(points, b.opts.MemoryBudget)

		var related []string
		for _, id := range memory.RelatedCharacterIDs() {
			if name, ok := nameByID[id]; ok {
				related = append(related, name)
			}
		}
		if len(related) > 0 {
			parts = append(parts, fmt.Sprintf("Memory: %s (involving: %s)", points, strings.Join(related, ", ")))
		} else {
			parts = append(parts, fmt.Sprintf("Memory: %s", points))
		}
	}

	if len(parts) == 0 {
		return noMemoryContext
	}
	return "Recent memories: " + strings.Join(parts, "; ")
}

// InteractionContext renders the scene's trailing interactions for a
// single-character turn. interactions must be in ascending creation order;
// names maps character ids to display names.
func (b *ContextBuilder) InteractionContext(interactions []models.Interaction, names map[string]string) string {
	return b.renderInteractions(interactions, names, b.opts.RecentInteractions)
}

// ConversationContext renders the wider trailing window used when
// continuing a multi-character conversation.
func (b *ContextBuilder) ConversationContext(interactions []models.Interaction, names map[string]string) string {
	return b.renderInteractions(interactions, names, b.opts.ConversationWindow)
}

func (b *ContextBuilder) renderInteractions(interactions []models.Interaction, names map[string]string, window int) string {
	if len(interactions) == 0 {
		return noInteractionContext
	}

	start := len(interactions) - window
	if start < 0 {
		start = 0
	}

	var parts []string
	for _, interaction := range interactions[start:] {
		name := names[interaction.CharacterID]
		if name == "" {
			name = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, truncate(interaction.Content, b.opts.InteractionBudget)))
	}

	return "Recent scene interactions: " + strings.Join(parts, " | ")
}

// truncate cuts s to at most budget runes, marking the cut with an
// ellipsis. Cutting on runes keeps multi-byte content valid.
func truncate(s string, budget int) string {
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget]) + "..."
}
