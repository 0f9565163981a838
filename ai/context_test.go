package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"storycave/backend/internal/models"
)

func TestMemoryContextEmpty(t *testing.T) {
	b := NewContextBuilder(ContextOptions{})

	got := b.MemoryContext(nil, roster())

	assert.Equal(t, "No previous memories with these characters.", got)
}

func TestMemoryContextWindowAndTruncation(t *testing.T) {
	b := NewContextBuilder(ContextOptions{MemoryCount: 2, MemoryBudget: 20})

	var memories []models.Memory
	for _, points := range [][]string{
		{"oldest memory that should fall out of the window"},
		{"a middle memory"},
		{"the newest memory which is much longer than twenty characters"},
	} {
		var m models.Memory
		m.SetKeyPoints(points)
		memories = append(memories, m)
	}

	got := b.MemoryContext(memories, nil)

	assert.NotContains(t, got, "oldest memory")
	assert.Contains(t, got, "a middle memory")
	assert.Contains(t, got, "...")
	// Per-memory budget: no rendered memory body exceeds budget plus ellipsis.
	for _, part := range strings.Split(got, "; ") {
		assert.LessOrEqual(t, len(strings.TrimPrefix(part, "Recent memories: ")), len("Memory: ")+20+len("..."))
	}
}

func TestMemoryContextRelatedNames(t *testing.T) {
	b := NewContextBuilder(ContextOptions{})

	var m models.Memory
	m.SetKeyPoints([]string{"Kai revealed the map"})
	m.SetRelatedCharacters([]string{"c2", "c9"})

	got := b.MemoryContext([]models.Memory{m}, roster())

	assert.Contains(t, got, "involving: Kai")
	assert.NotContains(t, got, "c9")
}

func TestInteractionContextEmpty(t *testing.T) {
	b := NewContextBuilder(ContextOptions{})

	got := b.InteractionContext(nil, nil)

	assert.Equal(t, "No recent interactions in this scene.", got)
}

func TestInteractionContextWindow(t *testing.T) {
	b := NewContextBuilder(ContextOptions{RecentInteractions: 2, ConversationWindow: 5})
	names := map[string]string{"c1": "Emma Chen", "c2": "Kai"}

	interactions := []models.Interaction{
		{CharacterID: "c1", Content: "first"},
		{CharacterID: "c2", Content: "second"},
		{CharacterID: "c1", Content: "third"},
	}

	single := b.InteractionContext(interactions, names)
	assert.NotContains(t, single, "first")
	assert.Contains(t, single, "Kai: second")
	assert.Contains(t, single, "Emma Chen: third")

	// The conversation window is wider than the single-turn window.
	wide := b.ConversationContext(interactions, names)
	assert.Contains(t, wide, "first")
}

func TestInteractionContextUnknownSpeaker(t *testing.T) {
	b := NewContextBuilder(ContextOptions{})

	got := b.InteractionContext([]models.Interaction{{CharacterID: "ghost", Content: "who said this"}}, nil)

	assert.Contains(t, got, "Unknown: who said this")
}

func TestInteractionContextTruncation(t *testing.T) {
	b := NewContextBuilder(ContextOptions{InteractionBudget: 10})
	names := map[string]string{"c1": "Emma"}

	got := b.InteractionContext([]models.Interaction{{CharacterID: "c1", Content: "a deliberately long interaction body"}}, names)

	assert.Contains(t, got, "a delibera...")
	assert.NotContains(t, got, "interaction body")
}

func TestInteractionContextTruncationKeepsValidUTF8(t *testing.T) {
	b := NewContextBuilder(ContextOptions{InteractionBudget: 5})
	names := map[string]string{"c1": "Emma"}

	got := b.InteractionContext([]models.Interaction{{CharacterID: "c1", Content: "ééééééééé"}}, names)

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "ééééé...")
}

func TestContextBuilderZeroValueDefaults(t *testing.T) {
	b := NewContextBuilder(ContextOptions{})

	assert.Equal(t, DefaultContextOptions(), b.opts)
}
