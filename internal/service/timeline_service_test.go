package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storycave/backend/internal/models"
)

func TestAssembleTimelineOrdering(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t1.Add(2 * time.Minute)

	interactions := []models.InteractionView{
		{Interaction: models.Interaction{ID: "i1", CreatedAt: t2}},
	}
	memories := []models.Memory{
		{ID: "m1", CreatedAt: t1},
	}
	notes := []models.PlotNote{
		{ID: "p1", CreatedAt: t3},
	}

	events := AssembleTimeline(interactions, memories, notes)

	assert.Len(t, events, 3)
	assert.Equal(t, EventMemory, events[0].Type)
	assert.Equal(t, EventInteraction, events[1].Type)
	assert.Equal(t, EventPlotNote, events[2].Type)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].CreatedAt.Before(events[i-1].CreatedAt))
	}
}

func TestAssembleTimelineTieBreak(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	interactions := []models.InteractionView{
		{Interaction: models.Interaction{ID: "i1", CreatedAt: at}},
		{Interaction: models.Interaction{ID: "i2", CreatedAt: at}},
	}
	memories := []models.Memory{
		{ID: "m1", CreatedAt: at},
	}
	notes := []models.PlotNote{
		{ID: "p1", CreatedAt: at},
	}

	events := AssembleTimeline(interactions, memories, notes)

	// Equal timestamps keep source order: interactions (in insertion
	// order), then memories, then plot notes.
	assert.Equal(t, EventInteraction, events[0].Type)
	assert.Equal(t, "i1", events[0].Data.(models.InteractionView).ID)
	assert.Equal(t, EventInteraction, events[1].Type)
	assert.Equal(t, "i2", events[1].Data.(models.InteractionView).ID)
	assert.Equal(t, EventMemory, events[2].Type)
	assert.Equal(t, EventPlotNote, events[3].Type)
}

func TestAssembleTimelineEmpty(t *testing.T) {
	assert.Empty(t, AssembleTimeline(nil, nil, nil))
}
