package service

import (
	"sort"
	"time"

	"storycave/backend/internal/models"
)

// Timeline event types.
const (
	EventInteraction = "interaction"
	EventMemory      = "memory"
	EventPlotNote    = "plot_note"
)

// TimelineEvent is one entry of the merged scene timeline.
type TimelineEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

// SceneTimeline is the full chronological record of a scene.
type SceneTimeline struct {
	Scene    models.Scene             `json:"scene"`
	Events   []TimelineEvent          `json:"events"`
	Feelings []models.CharacterFeeling `json:"feelings"`
}

// AssembleTimeline merges interactions, memories and plot notes into one
// list in ascending creation order. The sort is stable and sources are
// appended in a fixed order, so events sharing a timestamp always come out
// interactions first, then memories, then plot notes, in their own insertion
// order.
func AssembleTimeline(interactions []models.InteractionView, memories []models.Memory, notes []models.PlotNote) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(interactions)+len(memories)+len(notes))

	for _, interaction := range interactions {
		events = append(events, TimelineEvent{
			Type:      EventInteraction,
			CreatedAt: interaction.CreatedAt,
			Data:      interaction,
		})
	}
	for _, memory := range memories {
		events = append(events, TimelineEvent{
			Type:      EventMemory,
			CreatedAt: memory.CreatedAt,
			Data:      memory,
		})
	}
	for _, note := range notes {
		events = append(events, TimelineEvent{
			Type:      EventPlotNote,
			CreatedAt: note.CreatedAt,
			Data:      note,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events
}

// TimelineService produces the merged chronological view of a scene.
type TimelineService struct {
	scenes       *SceneService
	interactions *InteractionService
	memories     *MemoryService
	notes        *PlotNoteService
	feelings     *FeelingService
}

func NewTimelineService(scenes *SceneService, interactions *InteractionService, memories *MemoryService, notes *PlotNoteService, feelings *FeelingService) *TimelineService {
	return &TimelineService{
		scenes:       scenes,
		interactions: interactions,
		memories:     memories,
		notes:        notes,
		feelings:     feelings,
	}
}

func (s *TimelineService) SceneTimeline(sceneID string) (*SceneTimeline, error) {
	scene, err := s.scenes.GetScene(sceneID)
	if err != nil {
		return nil, err
	}

	roster, err := s.scenes.SceneRoster(sceneID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roster))
	rosterIDs := make([]string, len(roster))
	for i, c := range roster {
		names[c.ID] = c.Name
		rosterIDs[i] = c.ID
	}

	interactions, err := s.interactions.ViewsByScene(sceneID, names)
	if err != nil {
		return nil, err
	}
	memories, err := s.memories.ListByScene(sceneID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByScene(sceneID)
	if err != nil {
		return nil, err
	}
	feelings, err := s.feelings.ListForCharacters(rosterIDs)
	if err != nil {
		return nil, err
	}

	return &SceneTimeline{
		Scene:    *scene,
		Events:   AssembleTimeline(interactions, memories, notes),
		Feelings: feelings,
	}, nil
}
