package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storycave/backend/ai"
	"storycave/backend/internal/models"
	apperrors "storycave/backend/pkg/errors"
	"storycave/backend/pkg/logger"
)

// In-memory fakes for the orchestrator's store contracts.

type fakeScenes struct {
	scene  models.Scene
	roster []models.Character
}

func (f *fakeScenes) GetScene(id string) (*models.Scene, error) {
	if id != f.scene.ID {
		return nil, apperrors.NewNotFoundError("scene_not_found", "Scene not found")
	}
	scene := f.scene
	return &scene, nil
}

func (f *fakeScenes) SceneRoster(string) ([]models.Character, error) {
	return f.roster, nil
}

type fakeInteractions struct {
	rows []models.Interaction
	seq  int
}

func (f *fakeInteractions) Create(interaction *models.Interaction) error {
	f.seq++
	interaction.ID = fmt.Sprintf("i%d", f.seq)
	interaction.CreatedAt = time.Now()
	f.rows = append(f.rows, *interaction)
	return nil
}

func (f *fakeInteractions) ListByScene(sceneID string) ([]models.Interaction, error) {
	var out []models.Interaction
	for _, r := range f.rows {
		if r.SceneID == sceneID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInteractions) DeleteByScene(sceneID string) (int64, error) {
	var kept []models.Interaction
	var deleted int64
	for _, r := range f.rows {
		if r.SceneID == sceneID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

type fakeMemories struct {
	rows []models.Memory
}

func (f *fakeMemories) Create(req *models.CreateMemoryRequest) (*models.Memory, error) {
	memory := models.Memory{
		ID:              fmt.Sprintf("m%d", len(f.rows)+1),
		CharacterID:     req.CharacterID,
		SceneID:         req.SceneID,
		MemoryType:      req.MemoryType,
		EmotionalImpact: req.EmotionalImpact,
		Importance:      req.Importance,
	}
	memory.SetKeyPoints(req.KeyPoints)
	memory.SetRelatedCharacters(req.RelatedCharacters)
	f.rows = append(f.rows, memory)
	return &memory, nil
}

func (f *fakeMemories) ListForCharacter(characterID, sceneID string) ([]models.Memory, error) {
	var out []models.Memory
	for _, r := range f.rows {
		if r.CharacterID == characterID && r.SceneID == sceneID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeMemories) DeleteByScene(sceneID string) (int64, error) {
	var kept []models.Memory
	var deleted int64
	for _, r := range f.rows {
		if r.SceneID == sceneID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

type fakeFeelings struct {
	rows []models.CharacterFeeling
}

func (f *fakeFeelings) Append(feelings []models.CharacterFeeling) error {
	f.rows = append(f.rows, feelings...)
	return nil
}

func (f *fakeFeelings) DeleteForCharacters(ids []string) (int64, error) {
	owned := make(map[string]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	var kept []models.CharacterFeeling
	var deleted int64
	for _, r := range f.rows {
		if owned[r.CharacterID] {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

// fakeEngine hands back canned turns and records the context it was given.
type fakeEngine struct {
	turns        map[string]ai.Turn
	conversation []ai.ConversationTurn
	memoryDraft  *ai.MemoryDraft
	feelings     []ai.FeelingDraft
	narration    string

	recentSeen [][]models.Interaction
	priorSeen  [][]ai.PriorTurn
}

func (f *fakeEngine) GenerateCharacterInteraction(_ context.Context, character models.Character, _ models.Scene, _ []models.Character, _ []models.Memory, recent []models.Interaction, _ map[string]string) ai.Turn {
	f.recentSeen = append(f.recentSeen, append([]models.Interaction(nil), recent...))
	if turn, ok := f.turns[character.ID]; ok {
		return turn
	}
	return ai.Turn{Content: character.Name + " speaks.", InteractionType: models.InteractionDialogue, EmotionalState: "calm"}
}

func (f *fakeEngine) GenerateUnifiedSceneConversation(_ context.Context, _ models.Scene, _ []models.Character, prior []ai.PriorTurn) []ai.ConversationTurn {
	f.priorSeen = append(f.priorSeen, append([]ai.PriorTurn(nil), prior...))
	return f.conversation
}

func (f *fakeEngine) GenerateMemoryFromInteraction(_ context.Context, _ models.Character, _ models.Interaction, _ models.Scene, _ []models.Character) (*ai.MemoryDraft, error) {
	return f.memoryDraft, nil
}

func (f *fakeEngine) UpdateCharacterFeelings(_ context.Context, _ models.Character, _ models.Interaction, _ []models.Character) []ai.FeelingDraft {
	return f.feelings
}

func (f *fakeEngine) GenerateSceneNarration(_ context.Context, _ models.Scene, _ []models.Character, _ []models.Interaction, _ map[string]string, _ string) string {
	return f.narration
}

type fixture struct {
	orch         *Orchestrator
	engine       *fakeEngine
	scenes       *fakeScenes
	interactions *fakeInteractions
	memories     *fakeMemories
	feelings     *fakeFeelings
}

func newFixture(engine *fakeEngine) *fixture {
	scenes := &fakeScenes{
		scene: models.Scene{ID: "s1", Title: "The Lighthouse", Environment: "Lighthouse", Context: "storm", Mood: "tense"},
		roster: []models.Character{
			{ID: "c1", Name: "Emma Chen"},
			{ID: "c2", Name: "Kai"},
		},
	}
	interactions := &fakeInteractions{}
	memories := &fakeMemories{}
	feelings := &fakeFeelings{}
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	return &fixture{
		orch:         NewOrchestrator(engine, scenes, interactions, memories, feelings, NewSceneGuard(nil, time.Minute), nil, log),
		engine:       engine,
		scenes:       scenes,
		interactions: interactions,
		memories:     memories,
		feelings:     feelings,
	}
}

func TestGenerateInteractionCommitsTurnMemoryAndFeelings(t *testing.T) {
	engine := &fakeEngine{
		turns: map[string]ai.Turn{
			"c1": {Content: "Emma spoke.", InteractionType: models.InteractionDialogue, EmotionalState: "firm"},
		},
		memoryDraft: &ai.MemoryDraft{KeyPoints: []string{"Kai listened"}, MemoryType: models.MemoryObservation, EmotionalImpact: 20, Importance: 2},
		feelings:    []ai.FeelingDraft{{TargetCharacterID: "c2", FeelingType: "trust", Intensity: 15, Reason: "listened"}},
	}
	fx := newFixture(engine)

	turn, err := fx.orch.GenerateInteraction(context.Background(), "s1", "c1")

	assert.NoError(t, err)
	assert.Equal(t, "Emma spoke.", turn.Interaction.Content)
	assert.Equal(t, "Emma Chen", turn.Interaction.CharacterName)
	assert.Len(t, fx.interactions.rows, 1)
	assert.Len(t, fx.memories.rows, 1)
	assert.Len(t, fx.feelings.rows, 1)
	assert.Equal(t, "c1", fx.feelings.rows[0].CharacterID)
	assert.Equal(t, "c2", fx.feelings.rows[0].TargetCharacterID)
}

func TestGenerateInteractionFallbackSkipsDerivation(t *testing.T) {
	engine := &fakeEngine{
		turns: map[string]ai.Turn{
			"c1": {Content: "[Emma Chen remains silent, lost in thought...]", InteractionType: models.InteractionThought, EmotionalState: "contemplative", Fallback: true},
		},
		memoryDraft: &ai.MemoryDraft{KeyPoints: []string{"should not appear"}},
		feelings:    []ai.FeelingDraft{{TargetCharacterID: "c2", FeelingType: "trust", Intensity: 5}},
	}
	fx := newFixture(engine)

	turn, err := fx.orch.GenerateInteraction(context.Background(), "s1", "c1")

	assert.NoError(t, err)
	assert.True(t, turn.Fallback)
	// The fallback turn is committed so the story stays moving, but nothing
	// derives from placeholder content.
	assert.Len(t, fx.interactions.rows, 1)
	assert.Empty(t, fx.memories.rows)
	assert.Empty(t, fx.feelings.rows)
}

func TestGenerateInteractionRequiresMembership(t *testing.T) {
	fx := newFixture(&fakeEngine{})

	_, err := fx.orch.GenerateInteraction(context.Background(), "s1", "c99")

	assert.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	if assert.True(t, ok) {
		assert.Equal(t, "character_not_in_scene", appErr.Code)
	}
	assert.Empty(t, fx.interactions.rows)
}

func TestAdvanceTimelineAccumulatesContext(t *testing.T) {
	fx := newFixture(&fakeEngine{})

	result, err := fx.orch.AdvanceSceneTimeline(context.Background(), "s1")

	assert.NoError(t, err)
	assert.Len(t, result.Interactions, 2)
	assert.Len(t, fx.interactions.rows, 2)

	// The second character's generation saw the first character's committed
	// turn in its recent-interaction context.
	if assert.Len(t, fx.engine.recentSeen, 2) {
		assert.Empty(t, fx.engine.recentSeen[0])
		if assert.Len(t, fx.engine.recentSeen[1], 1) {
			assert.Equal(t, "c1", fx.engine.recentSeen[1][0].CharacterID)
		}
	}
}

func TestStartConversationClearsStoryState(t *testing.T) {
	engine := &fakeEngine{
		conversation: []ai.ConversationTurn{
			{CharacterID: "c1", CharacterName: "Emma Chen", Content: "fresh start", InteractionType: models.InteractionDialogue, EmotionalState: "bright"},
		},
	}
	fx := newFixture(engine)

	// Pre-existing story state that the fresh start must wipe.
	fx.interactions.rows = []models.Interaction{{ID: "old", SceneID: "s1", CharacterID: "c1", Content: "stale"}}
	fx.memories.rows = []models.Memory{{ID: "old-m", SceneID: "s1", CharacterID: "c1"}}
	fx.feelings.rows = []models.CharacterFeeling{{ID: "old-f", CharacterID: "c2", TargetCharacterID: "c1"}}

	result, err := fx.orch.StartSceneConversation(context.Background(), "s1")

	assert.NoError(t, err)
	assert.Len(t, result.Interactions, 1)
	assert.Equal(t, "fresh start", result.Interactions[0].Content)
	// Only the new turn survives.
	assert.Len(t, fx.interactions.rows, 1)
	assert.Empty(t, fx.memories.rows)
	assert.Empty(t, fx.feelings.rows)
	// A fresh start passes no prior turns to the engine.
	if assert.Len(t, fx.engine.priorSeen, 1) {
		assert.Empty(t, fx.engine.priorSeen[0])
	}
}

func TestContinueConversationPassesPriorTurns(t *testing.T) {
	engine := &fakeEngine{
		conversation: []ai.ConversationTurn{
			{CharacterID: "c2", CharacterName: "Kai", Content: "and then", InteractionType: models.InteractionDialogue},
		},
	}
	fx := newFixture(engine)
	fx.interactions.rows = []models.Interaction{
		{ID: "i0", SceneID: "s1", CharacterID: "c1", Content: "it began", InteractionType: models.InteractionDialogue},
	}

	result, err := fx.orch.ContinueConversation(context.Background(), "s1")

	assert.NoError(t, err)
	assert.Len(t, result.Interactions, 1)
	if assert.Len(t, fx.engine.priorSeen, 1) && assert.Len(t, fx.engine.priorSeen[0], 1) {
		assert.Equal(t, "Emma Chen", fx.engine.priorSeen[0][0].CharacterName)
		assert.Equal(t, "it began", fx.engine.priorSeen[0][0].Content)
	}
}

func TestContinueConversationRequiresHistory(t *testing.T) {
	fx := newFixture(&fakeEngine{})

	_, err := fx.orch.ContinueConversation(context.Background(), "s1")

	appErr, ok := err.(*apperrors.AppError)
	if assert.True(t, ok) {
		assert.Equal(t, "no_conversation", appErr.Code)
	}
}

func TestDiscardConversationLeavesEntities(t *testing.T) {
	fx := newFixture(&fakeEngine{})
	fx.interactions.rows = []models.Interaction{
		{ID: "i0", SceneID: "s1", CharacterID: "c1"},
		{ID: "i1", SceneID: "other", CharacterID: "c9"},
	}
	fx.memories.rows = []models.Memory{{ID: "m0", SceneID: "s1", CharacterID: "c1"}}
	fx.feelings.rows = []models.CharacterFeeling{
		{ID: "f0", CharacterID: "c1", TargetCharacterID: "c2"},
		{ID: "f1", CharacterID: "c9", TargetCharacterID: "c1"},
	}

	result, err := fx.orch.DiscardConversation("s1")

	assert.NoError(t, err)
	assert.Equal(t, int64(1), result.InteractionsDeleted)
	assert.Equal(t, int64(1), result.MemoriesDeleted)
	assert.Equal(t, int64(1), result.FeelingsDeleted)
	// Data belonging to other scenes and non-roster characters survives.
	assert.Len(t, fx.interactions.rows, 1)
	assert.Len(t, fx.feelings.rows, 1)
}

func TestSceneGuardSerializesScene(t *testing.T) {
	guard := NewSceneGuard(nil, time.Minute)

	assert.NoError(t, guard.Acquire("s1"))

	err := guard.Acquire("s1")
	appErr, ok := err.(*apperrors.AppError)
	if assert.True(t, ok) {
		assert.Equal(t, "scene_busy", appErr.Code)
	}

	// Other scenes are unaffected.
	assert.NoError(t, guard.Acquire("s2"))

	guard.Release("s1")
	assert.NoError(t, guard.Acquire("s1"))
}
