package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"storycave/backend/internal/models"
	"storycave/backend/pkg/logger"
)

// stubClient replays canned completions in order. Once the script runs out,
// the last entry repeats.
type stubClient struct {
	script []stubResponse
	calls  []CompletionRequest
}

type stubResponse struct {
	text string
	err  error
}

func (s *stubClient) Complete(_ context.Context, req CompletionRequest) (string, error) {
	s.calls = append(s.calls, req)
	idx := len(s.calls) - 1
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	if idx < 0 {
		return "", errors.New("no scripted response")
	}
	return s.script[idx].text, s.script[idx].err
}

func testEngine(script ...stubResponse) (*Engine, *stubClient) {
	client := &stubClient{script: script}
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	return NewEngine(client, EngineOptions{}, log), client
}

func testScene() models.Scene {
	return models.Scene{
		ID:          "s1",
		Title:       "The Lighthouse",
		Environment: "Abandoned Lighthouse",
		Context:     "A storm traps the group overnight",
		Mood:        "foreboding",
	}
}

func TestGenerateCharacterInteraction(t *testing.T) {
	engine, client := testEngine(
		stubResponse{text: "Emma Chen crossed the room. 'We can't stay here,' she said to Kai."},
		stubResponse{text: `{"type": "dialogue", "emotional_state": "anxious", "target_character_id": "Kai", "thoughts": null, "relationship_insights": {"Kai": "growing trust"}}`},
	)
	chars := roster()

	turn := engine.GenerateCharacterInteraction(context.Background(), chars[0], testScene(), chars[1:], nil, nil, nil)

	assert.False(t, turn.Fallback)
	assert.Equal(t, models.InteractionDialogue, turn.InteractionType)
	assert.Equal(t, "anxious", turn.EmotionalState)
	if assert.NotNil(t, turn.TargetCharacterID) {
		assert.Equal(t, "c2", *turn.TargetCharacterID)
	}
	assert.Contains(t, turn.Content, "crossed the room")
	assert.Len(t, client.calls, 2)
}

func TestGenerateCharacterInteractionProviderFailure(t *testing.T) {
	engine, _ := testEngine(stubResponse{err: &ProviderError{StatusCode: 429, Message: "rate limited"}})
	chars := roster()

	turn := engine.GenerateCharacterInteraction(context.Background(), chars[0], testScene(), chars[1:], nil, nil, nil)

	assert.True(t, turn.Fallback)
	assert.Equal(t, "[Emma Chen remains silent, lost in thought...]", turn.Content)
	assert.Equal(t, models.InteractionThought, turn.InteractionType)
	assert.Equal(t, "contemplative", turn.EmotionalState)
	assert.Nil(t, turn.TargetCharacterID)
}

func TestGenerateCharacterInteractionAnalysisFailure(t *testing.T) {
	// Generation succeeds, analysis does not: the content survives with
	// default classification.
	engine, _ := testEngine(
		stubResponse{text: "Kai shrugged."},
		stubResponse{err: errors.New("timeout")},
	)
	chars := roster()

	turn := engine.GenerateCharacterInteraction(context.Background(), chars[1], testScene(), nil, nil, nil, nil)

	assert.False(t, turn.Fallback)
	assert.Equal(t, "Kai shrugged.", turn.Content)
	assert.Equal(t, models.InteractionDialogue, turn.InteractionType)
	assert.Equal(t, "neutral", turn.EmotionalState)
}

func TestGenerateCharacterInteractionTypeNormalization(t *testing.T) {
	cases := map[string]string{
		"environmental": models.InteractionNarration,
		"description":   models.InteractionNarration,
		"gesture":       models.InteractionAction,
		"movement":      models.InteractionAction,
		"xyz":           models.InteractionDialogue,
		"thought":       models.InteractionThought,
	}
	for raw, want := range cases {
		engine, _ := testEngine(
			stubResponse{text: "content"},
			stubResponse{text: `{"type": "` + raw + `", "emotional_state": "calm"}`},
		)
		chars := roster()

		turn := engine.GenerateCharacterInteraction(context.Background(), chars[0], testScene(), nil, nil, nil, nil)

		assert.Equal(t, want, turn.InteractionType, "raw type %q", raw)
	}
}

func TestGenerateUnifiedSceneConversation(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `[
		{"character_name": "Emma", "content": "The door is locked.", "interaction_type": "dialogue", "emotional_state": "tense", "target_character_id": "Kai"},
		{"character_name": "Kai", "content": "Kai tried the handle.", "interaction_type": "gesture", "emotional_state": "determined"},
		{"character_name": "Stranger", "content": "dropped entry", "interaction_type": "dialogue", "emotional_state": "odd"}
	]`})

	turns := engine.GenerateUnifiedSceneConversation(context.Background(), testScene(), roster(), nil)

	assert.Len(t, turns, 2)
	assert.Equal(t, "c1", turns[0].CharacterID)
	assert.Equal(t, "Emma Chen", turns[0].CharacterName)
	if assert.NotNil(t, turns[0].TargetCharacterID) {
		assert.Equal(t, "c2", *turns[0].TargetCharacterID)
	}
	assert.Equal(t, models.InteractionAction, turns[1].InteractionType)
	assert.False(t, turns[0].Fallback)
}

func TestGenerateUnifiedSceneConversationDropsSelfTarget(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `[
		{"character_name": "Emma", "content": "I should keep my head down.", "interaction_type": "thought", "emotional_state": "wary", "target_character_id": "Emma Chen"},
		{"character_name": "Kai", "content": "'Stay close,' Kai said.", "interaction_type": "dialogue", "emotional_state": "calm", "target_character_id": "Emma Chen"}
	]`})

	turns := engine.GenerateUnifiedSceneConversation(context.Background(), testScene(), roster(), nil)

	assert.Len(t, turns, 2)
	// A speaker addressing themselves keeps the turn but loses the target.
	assert.Equal(t, "c1", turns[0].CharacterID)
	assert.Nil(t, turns[0].TargetCharacterID)
	if assert.NotNil(t, turns[1].TargetCharacterID) {
		assert.Equal(t, "c1", *turns[1].TargetCharacterID)
	}
}

func TestGenerateUnifiedSceneConversationFallback(t *testing.T) {
	engine, _ := testEngine(stubResponse{err: errors.New("provider down")})

	turns := engine.GenerateUnifiedSceneConversation(context.Background(), testScene(), roster(), nil)

	assert.Len(t, turns, 1)
	assert.True(t, turns[0].Fallback)
	assert.Equal(t, "c1", turns[0].CharacterID)
	assert.Equal(t, models.InteractionDialogue, turns[0].InteractionType)
	assert.Contains(t, turns[0].Content, "abandoned lighthouse")
}

func TestGenerateUnifiedSceneConversationUnparseable(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: "I cannot write this scene."})

	turns := engine.GenerateUnifiedSceneConversation(context.Background(), testScene(), roster(), nil)

	assert.Len(t, turns, 1)
	assert.True(t, turns[0].Fallback)
}

func TestGenerateUnifiedSceneConversationEmptyRoster(t *testing.T) {
	engine, client := testEngine()

	turns := engine.GenerateUnifiedSceneConversation(context.Background(), testScene(), nil, nil)

	assert.Nil(t, turns)
	assert.Empty(t, client.calls)
}

func TestConversationPromptStagePolicy(t *testing.T) {
	fresh := buildConversationPrompt(testScene(), roster(), nil, 5)
	assert.Contains(t, fresh, "Write 3-5 natural interactions")

	prior := make([]PriorTurn, 11)
	for i := range prior {
		prior[i] = PriorTurn{CharacterName: "Emma Chen", Content: "line"}
	}
	continued := buildConversationPrompt(testScene(), roster(), prior, 5)
	assert.Contains(t, continued, "Write 2-4 natural interactions")
	assert.Contains(t, continued, "Don't repeat introductions")
}

func TestGenerateMemoryFromInteraction(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `{
		"key_points": ["Kai knows about the map", "The storm is getting worse"],
		"memory_type": "revelation",
		"emotional_impact": 45,
		"related_characters": ["Kai"],
		"importance": 4
	}`})
	chars := roster()
	interaction := models.Interaction{ID: "i1", Content: "Kai admitted he had the map all along."}

	draft, err := engine.GenerateMemoryFromInteraction(context.Background(), chars[0], interaction, testScene(), chars[1:])

	assert.NoError(t, err)
	if assert.NotNil(t, draft) {
		assert.Equal(t, []string{"Kai knows about the map", "The storm is getting worse"}, draft.KeyPoints)
		assert.Equal(t, models.MemoryRevelation, draft.MemoryType)
		assert.Equal(t, 45.0, draft.EmotionalImpact)
		assert.Equal(t, []string{"c2"}, draft.RelatedCharacterIDs)
		assert.Equal(t, 4, draft.Importance)
	}
}

func TestGenerateMemoryClamping(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `{
		"key_points": ["point"],
		"memory_type": "interaction",
		"emotional_impact": 500,
		"importance": 9
	}`})
	chars := roster()

	draft, err := engine.GenerateMemoryFromInteraction(context.Background(), chars[0], models.Interaction{Content: "x"}, testScene(), nil)

	assert.NoError(t, err)
	if assert.NotNil(t, draft) {
		assert.Equal(t, 100.0, draft.EmotionalImpact)
		assert.Equal(t, 5, draft.Importance)
	}
}

func TestGenerateMemoryStringKeyPoints(t *testing.T) {
	// Providers sometimes return the bullet list as one newline-joined
	// string instead of an array.
	engine, _ := testEngine(stubResponse{text: `{
		"key_points": "- first point\n- second point",
		"memory_type": "observation",
		"emotional_impact": -10,
		"importance": 2
	}`})
	chars := roster()

	draft, err := engine.GenerateMemoryFromInteraction(context.Background(), chars[0], models.Interaction{Content: "x"}, testScene(), nil)

	assert.NoError(t, err)
	if assert.NotNil(t, draft) {
		assert.Equal(t, []string{"first point", "second point"}, draft.KeyPoints)
	}
}

func TestGenerateMemoryInvalidType(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `{"key_points": ["p"], "memory_type": "epiphany", "emotional_impact": 0, "importance": 1}`})
	chars := roster()

	draft, err := engine.GenerateMemoryFromInteraction(context.Background(), chars[0], models.Interaction{Content: "x"}, testScene(), nil)

	assert.NoError(t, err)
	if assert.NotNil(t, draft) {
		assert.Equal(t, models.MemoryInteraction, draft.MemoryType)
	}
}

func TestGenerateMemoryUnusablePayload(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: "no structured memory here"})
	chars := roster()

	draft, err := engine.GenerateMemoryFromInteraction(context.Background(), chars[0], models.Interaction{Content: "x"}, testScene(), nil)

	assert.NoError(t, err)
	assert.Nil(t, draft)
}

func TestUpdateCharacterFeelings(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `[
		{"target_character_id": "Kai", "feeling_type": "trust", "intensity": 30, "reason": "he was honest"},
		{"target_character_id": "Emma Chen", "feeling_type": "pride", "intensity": 10, "reason": "self"},
		{"target_character_id": "Kai", "feeling_type": "anger", "intensity": -500, "reason": "he lied before"}
	]`})
	chars := roster()

	feelings := engine.UpdateCharacterFeelings(context.Background(), chars[0], models.Interaction{Content: "x"}, chars)

	// The self-referential entry is dropped; the out-of-range intensity is
	// clamped.
	assert.Len(t, feelings, 2)
	assert.Equal(t, "c2", feelings[0].TargetCharacterID)
	assert.Equal(t, "trust", feelings[0].FeelingType)
	assert.Equal(t, -100.0, feelings[1].Intensity)
}

func TestUpdateCharacterFeelingsFailure(t *testing.T) {
	engine, _ := testEngine(stubResponse{err: errors.New("provider down")})
	chars := roster()

	feelings := engine.UpdateCharacterFeelings(context.Background(), chars[0], models.Interaction{Content: "x"}, chars[1:])

	assert.Empty(t, feelings)
}

func TestGenerateSceneNarrationFallback(t *testing.T) {
	engine, _ := testEngine(stubResponse{err: errors.New("provider down")})

	got := engine.GenerateSceneNarration(context.Background(), testScene(), roster(), nil, nil, "atmospheric")

	assert.Equal(t, "The scene continues with an air of foreboding hanging in the air.", got)
}

func TestSummarizeScene(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `{
		"summary": "The group argued about the map.",
		"key_events": ["map revealed"],
		"character_developments": {"Emma Chen": "took charge"},
		"relationship_changes": ["Emma trusts Kai more"],
		"plot_advancement": "the search can begin"
	}`})

	summary := engine.SummarizeScene(context.Background(), testScene(), roster(), []string{"- Emma Chen: line"})

	assert.Equal(t, "The group argued about the map.", summary.Summary)
	assert.Equal(t, []string{"map revealed"}, summary.KeyEvents)
	assert.Equal(t, "took charge", summary.CharacterDevelopments["Emma Chen"])
}

func TestSummarizeSceneFallback(t *testing.T) {
	engine, _ := testEngine(stubResponse{err: errors.New("provider down")})
	lines := []string{"- a", "- b", "- c", "- d"}

	summary := engine.SummarizeScene(context.Background(), testScene(), roster(), lines)

	assert.Contains(t, summary.Summary, "The Lighthouse")
	assert.Len(t, summary.KeyEvents, 3)
	assert.Equal(t, "Participated in scene interactions", summary.CharacterDevelopments["Kai"])
	assert.NotEmpty(t, summary.PlotAdvancement)
}

func TestGeneratePlotInspiration(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: `["A rival group arrives", "The map is a forgery"]`})

	points := engine.GeneratePlotInspiration(context.Background(), testScene(), roster(), nil)

	assert.Equal(t, []string{"A rival group arrives", "The map is a forgery"}, points)
}

func TestGeneratePlotInspirationFallback(t *testing.T) {
	engine, _ := testEngine(stubResponse{text: "not json"})

	points := engine.GeneratePlotInspiration(context.Background(), testScene(), roster(), nil)

	assert.Len(t, points, 3)
	assert.Contains(t, points, "Explore character backstories")
}
