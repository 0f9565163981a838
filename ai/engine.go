package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storycave/backend/internal/models"
	"storycave/backend/pkg/logger"
	"storycave/backend/pkg/resilience"
)

// EngineOptions tunes generation behavior. Zero values fall back to
// production defaults.
type EngineOptions struct {
	// MaxResponseWords bounds a single-character interaction.
	MaxResponseWords int
	// Context bounds how much history prompts carry.
	Context ContextOptions
	// Breaker, when set, wraps every provider call.
	Breaker *resilience.CircuitBreaker
}

// Engine drives all narrative generation: character turns, unified
// conversations, narration, memories, feelings, and scene analysis. Methods
// that feed the main story loop never fail outward; they degrade to
// deterministic fallback content instead so a provider outage cannot stall a
// scene.
type Engine struct {
	client   Client
	breaker  *resilience.CircuitBreaker
	context  *ContextBuilder
	log      *logger.Logger
	maxWords int
}

// NewEngine creates a generation engine backed by the given provider client.
func NewEngine(client Client, opts EngineOptions, log *logger.Logger) *Engine {
	if opts.MaxResponseWords <= 0 {
		opts.MaxResponseWords = 150
	}
	return &Engine{
		client:   client,
		breaker:  opts.Breaker,
		context:  NewContextBuilder(opts.Context),
		log:      log,
		maxWords: opts.MaxResponseWords,
	}
}

// ContextBuilder exposes the engine's prompt context bounds, mainly for
// callers that need to pre-trim history queries to the same windows.
func (e *Engine) ContextBuilder() *ContextBuilder {
	return e.context
}

func (e *Engine) complete(ctx context.Context, req CompletionRequest) (string, error) {
	if e.client == nil {
		return "", errors.New("no generation provider configured")
	}
	if e.breaker == nil {
		return e.client.Complete(ctx, req)
	}
	var out string
	err := e.breaker.Execute(func() error {
		var cerr error
		out, cerr = e.client.Complete(ctx, req)
		return cerr
	})
	return out, err
}

// GenerateCharacterInteraction produces one turn for a single character.
// memories and recent must be in ascending creation order; names maps
// character ids to display names for the interaction context. The result is
// always usable: on any provider or analysis failure a fallback thought turn
// is returned with Fallback set.
func (e *Engine) GenerateCharacterInteraction(
	ctx context.Context,
	character models.Character,
	scene models.Scene,
	others []models.Character,
	memories []models.Memory,
	recent []models.Interaction,
	names map[string]string,
) Turn {
	memoryContext := e.context.MemoryContext(memories, others)
	interactionContext := e.context.InteractionContext(recent, names)

	prompt := buildInteractionPrompt(character, scene, others, memoryContext, interactionContext, e.maxWords)

	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: interactionSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    e.maxWords + 50,
		Temperature:  0.8,
	})
	if err != nil {
		e.log.Error("Interaction generation failed, substituting fallback",
			"character", character.Name,
			"scene_id", scene.ID,
			"error", err.Error(),
		)
		return Turn{
			Content:           fmt.Sprintf("[%s remains silent, lost in thought...]", character.Name),
			InteractionType:   models.InteractionThought,
			EmotionalState:    "contemplative",
			CharacterThoughts: "The character is processing recent events...",
			Fallback:          true,
		}
	}

	content := strings.TrimSpace(raw)
	analysis := e.analyzeInteraction(ctx, content, character, others)

	return Turn{
		Content:           content,
		InteractionType:   analysis.interactionType,
		EmotionalState:    analysis.emotionalState,
		TargetCharacterID: analysis.targetID,
		CharacterThoughts: analysis.thoughts,
		Insights:          analysis.insights,
	}
}

type interactionAnalysis struct {
	interactionType string
	emotionalState  string
	targetID        *string
	thoughts        string
	insights        map[string]any
}

// analyzeInteraction runs the cheap secondary call that classifies a
// generated turn. Its failure is never fatal; defaults stand in.
func (e *Engine) analyzeInteraction(ctx context.Context, content string, character models.Character, others []models.Character) interactionAnalysis {
	fallback := interactionAnalysis{
		interactionType: models.InteractionDialogue,
		emotionalState:  "neutral",
	}

	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: analysisSystemPrompt,
		UserPrompt:   buildAnalysisPrompt(content, character, others),
		MaxTokens:    150,
		Temperature:  0.3,
	})
	if err != nil {
		e.log.Warn("Interaction analysis failed, using defaults",
			"character", character.Name,
			"error", err.Error(),
		)
		return fallback
	}

	result := ParsePayload(raw)
	objects := result.Objects()
	if result.Status == ParseFailed || len(objects) == 0 {
		e.log.Warn("Interaction analysis unparseable, using defaults", "character", character.Name)
		return fallback
	}
	obj := objects[0]

	analysis := interactionAnalysis{
		interactionType: models.NormalizeInteractionType(stringField(obj, "type")),
		emotionalState:  stringField(obj, "emotional_state"),
		thoughts:        stringField(obj, "thoughts"),
	}
	if analysis.emotionalState == "" {
		analysis.emotionalState = "neutral"
	}
	if target := ResolveReference(obj["target_character_id"], others); target != nil {
		id := target.ID
		analysis.targetID = &id
	}
	if insights, ok := obj["relationship_insights"].(map[string]any); ok {
		analysis.insights = insights
	}
	return analysis
}

// GenerateUnifiedSceneConversation produces a short exchange between all
// scene characters in one provider call. prior carries already-committed
// turns when continuing a conversation. Entries attributed to names outside
// the roster are dropped; if nothing survives, a single fallback turn for
// the first roster character is returned.
func (e *Engine) GenerateUnifiedSceneConversation(
	ctx context.Context,
	scene models.Scene,
	characters []models.Character,
	prior []PriorTurn,
) []ConversationTurn {
	if len(characters) == 0 {
		return nil
	}

	prompt := buildConversationPrompt(scene, characters, prior, e.context.opts.ConversationWindow)

	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: conversationSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    800,
		Temperature:  0.8,
	})
	if err != nil {
		e.log.Error("Conversation generation failed, substituting fallback",
			"scene_id", scene.ID,
			"error", err.Error(),
		)
		return e.fallbackConversation(scene, characters)
	}

	result := ParsePayload(raw, "character_name", "content")
	if result.Status == ParseFailed {
		e.log.Error("Conversation payload unparseable, substituting fallback", "scene_id", scene.ID)
		return e.fallbackConversation(scene, characters)
	}
	if result.Status == ParsePartial {
		e.log.Warn("Conversation payload recovered partially",
			"scene_id", scene.ID,
			"dropped", result.Dropped,
		)
	}

	var turns []ConversationTurn
	for _, obj := range result.Objects() {
		speaker := ResolveCharacter(stringField(obj, "character_name"), characters)
		if speaker == nil {
			e.log.Warn("Dropping conversation entry with unknown speaker",
				"scene_id", scene.ID,
				"name", stringField(obj, "character_name"),
			)
			continue
		}

		turn := ConversationTurn{
			CharacterID:     speaker.ID,
			CharacterName:   speaker.Name,
			Content:         stringField(obj, "content"),
			InteractionType: models.NormalizeInteractionType(stringField(obj, "interaction_type")),
			EmotionalState:  stringField(obj, "emotional_state"),
		}
		// A target addressing the speaker themselves is dropped, not stored.
		if target := ResolveReference(obj["target_character_id"], characters); target != nil && target.ID != speaker.ID {
			id := target.ID
			turn.TargetCharacterID = &id
		}
		turns = append(turns, turn)
	}

	if len(turns) == 0 {
		return e.fallbackConversation(scene, characters)
	}
	return turns
}

func (e *Engine) fallbackConversation(scene models.Scene, characters []models.Character) []ConversationTurn {
	main := characters[0]
	return []ConversationTurn{{
		CharacterID:     main.ID,
		CharacterName:   main.Name,
		Content:         fmt.Sprintf("%s glanced around the %s, their curiosity piqued. 'We should investigate this mystery further.'", main.Name, strings.ToLower(scene.Environment)),
		InteractionType: models.InteractionDialogue,
		EmotionalState:  "curious",
		Fallback:        true,
	}}
}

// GenerateSceneNarration produces a short atmospheric description of the
// scene. On failure it degrades to a one-line mood sentence.
func (e *Engine) GenerateSceneNarration(
	ctx context.Context,
	scene models.Scene,
	characters []models.Character,
	recent []models.Interaction,
	names map[string]string,
	narrationType string,
) string {
	if narrationType == "" {
		narrationType = "atmospheric"
	}
	interactionContext := e.context.InteractionContext(recent, names)

	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: narrationSystemPrompt,
		UserPrompt:   buildNarrationPrompt(scene, characters, interactionContext, narrationType),
		MaxTokens:    150,
		Temperature:  0.7,
	})
	if err != nil {
		e.log.Error("Narration generation failed, substituting fallback",
			"scene_id", scene.ID,
			"error", err.Error(),
		)
		mood := scene.Mood
		if mood == "" {
			mood = "tension"
		}
		return fmt.Sprintf("The scene continues with an air of %s hanging in the air.", mood)
	}
	return strings.TrimSpace(raw)
}

// GenerateMemoryFromInteraction derives what character would remember from
// interaction. Numeric fields come back clamped to their declared ranges and
// related names are resolved against others; unresolvable names are dropped.
// A nil draft with a nil error means the provider output was unusable and no
// memory should be stored.
func (e *Engine) GenerateMemoryFromInteraction(
	ctx context.Context,
	character models.Character,
	interaction models.Interaction,
	scene models.Scene,
	others []models.Character,
) (*MemoryDraft, error) {
	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: memorySystemPrompt,
		UserPrompt:   buildMemoryPrompt(character, interaction, scene, others),
		MaxTokens:    200,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}

	result := ParsePayload(raw, "key_points")
	objects := result.Objects()
	if result.Status == ParseFailed || len(objects) == 0 {
		e.log.Warn("Memory payload unparseable, skipping",
			"character", character.Name,
			"interaction_id", interaction.ID,
		)
		return nil, nil
	}
	obj := objects[0]

	keyPoints := keyPointList(obj["key_points"])
	if len(keyPoints) == 0 {
		return nil, nil
	}

	memoryType := stringField(obj, "memory_type")
	if !models.ValidMemoryType(memoryType) {
		memoryType = models.MemoryInteraction
	}

	var relatedIDs []string
	if names, ok := obj["related_characters"].([]any); ok {
		for _, name := range names {
			if target := ResolveReference(name, others); target != nil {
				relatedIDs = append(relatedIDs, target.ID)
			}
		}
	}

	return &MemoryDraft{
		KeyPoints:           keyPoints,
		MemoryType:          memoryType,
		EmotionalImpact:     clampIntensity(floatField(obj, "emotional_impact")),
		RelatedCharacterIDs: relatedIDs,
		Importance:          clampImportance(intField(obj, "importance", 1)),
	}, nil
}

// UpdateCharacterFeelings derives directed feeling deltas from character
// toward the other characters present. Entries with unresolvable targets and
// entries pointing back at the owner are dropped; intensities are clamped.
// An empty result is normal, not an error.
func (e *Engine) UpdateCharacterFeelings(
	ctx context.Context,
	character models.Character,
	interaction models.Interaction,
	others []models.Character,
) []FeelingDraft {
	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: feelingsSystemPrompt,
		UserPrompt:   buildFeelingsPrompt(character, interaction, others),
		MaxTokens:    250,
		Temperature:  0.7,
	})
	if err != nil {
		e.log.Warn("Feelings generation failed, skipping",
			"character", character.Name,
			"error", err.Error(),
		)
		return nil
	}

	result := ParsePayload(raw, "target_character_id", "feeling_type")
	if result.Status == ParseFailed {
		e.log.Warn("Feelings payload unparseable, skipping", "character", character.Name)
		return nil
	}

	var feelings []FeelingDraft
	for _, obj := range result.Objects() {
		target := ResolveReference(obj["target_character_id"], others)
		if target == nil {
			continue
		}
		if target.ID == character.ID {
			// Providers occasionally report a character's feelings about
			// themselves; those rows are meaningless in a directed graph.
			continue
		}
		feelingType := stringField(obj, "feeling_type")
		if feelingType == "" {
			continue
		}
		feelings = append(feelings, FeelingDraft{
			TargetCharacterID: target.ID,
			FeelingType:       feelingType,
			Intensity:         clampIntensity(floatField(obj, "intensity")),
			Reason:            stringField(obj, "reason"),
		})
	}
	return feelings
}

// SummarizeScene analyzes a completed stretch of scene activity. lines are
// pre-rendered "- Name: content" interaction lines in ascending order. On
// failure a deterministic summary built from the inputs is returned.
func (e *Engine) SummarizeScene(
	ctx context.Context,
	scene models.Scene,
	characters []models.Character,
	lines []string,
) SceneSummary {
	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   buildSummaryPrompt(scene, characters, lines),
		MaxTokens:    300,
		Temperature:  0.7,
	})
	if err == nil {
		result := ParsePayload(raw)
		if objects := result.Objects(); len(objects) > 0 {
			var summary SceneSummary
			if data, merr := json.Marshal(objects[0]); merr == nil {
				if uerr := json.Unmarshal(data, &summary); uerr == nil && summary.Summary != "" {
					return summary
				}
			}
		}
		e.log.Error("Summary payload unparseable, substituting fallback", "scene_id", scene.ID)
	} else {
		e.log.Error("Summary generation failed, substituting fallback",
			"scene_id", scene.ID,
			"error", err.Error(),
		)
	}

	developments := make(map[string]string, len(characters))
	for _, c := range characters {
		developments[c.Name] = "Participated in scene interactions"
	}
	events := lines
	if len(events) > 3 {
		events = events[:3]
	}
	return SceneSummary{
		Summary:               fmt.Sprintf("Scene '%s' with %d interactions between %d characters.", scene.Title, len(lines), len(characters)),
		KeyEvents:             append([]string(nil), events...),
		CharacterDevelopments: developments,
		RelationshipChanges:   []string{"Characters interacted in the scene"},
		PlotAdvancement:       "Scene progressed the story through character interactions",
	}
}

// GeneratePlotInspiration suggests plot developments from recent scene
// activity. lines are pre-rendered "Name: content" interaction lines.
func (e *Engine) GeneratePlotInspiration(
	ctx context.Context,
	scene models.Scene,
	characters []models.Character,
	lines []string,
) []string {
	fallback := []string{
		"Continue developing character relationships",
		"Explore character backstories",
		"Introduce new conflicts",
	}

	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: inspirationSystemPrompt,
		UserPrompt:   buildInspirationPrompt(scene, characters, lines),
		MaxTokens:    400,
		Temperature:  0.8,
	})
	if err != nil {
		e.log.Error("Inspiration generation failed, substituting fallback",
			"scene_id", scene.ID,
			"error", err.Error(),
		)
		return fallback
	}

	result := ParsePayload(raw)
	items, ok := result.Value.([]any)
	if result.Status == ParseFailed || !ok {
		return fallback
	}
	var points []string
	for _, item := range items {
		if s, sok := item.(string); sok && s != "" {
			points = append(points, s)
		}
	}
	if len(points) == 0 {
		return fallback
	}
	return points
}

// AnalyzeCharacterRelationships produces free-form relationship insights for
// one character against the others.
func (e *Engine) AnalyzeCharacterRelationships(
	ctx context.Context,
	character models.Character,
	others []models.Character,
	interactionLines, memoryLines []string,
) map[string]any {
	raw, err := e.complete(ctx, CompletionRequest{
		SystemPrompt: relationshipSystemPrompt,
		UserPrompt:   buildRelationshipPrompt(character, others, interactionLines, memoryLines),
		MaxTokens:    500,
		Temperature:  0.7,
	})
	if err != nil {
		e.log.Error("Relationship analysis failed",
			"character", character.Name,
			"error", err.Error(),
		)
		return map[string]any{"error": "Could not analyze relationships"}
	}

	result := ParsePayload(raw)
	if objects := result.Objects(); len(objects) > 0 {
		return objects[0]
	}
	return map[string]any{"error": "Could not analyze relationships"}
}

// clampIntensity bounds emotional impact and feeling intensity to
// [-100, 100].
func clampIntensity(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}

// clampImportance bounds memory importance to [1, 5].
func clampImportance(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func floatField(obj map[string]any, key string) float64 {
	switch v := obj[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intField(obj map[string]any, key string, def int) int {
	switch v := obj[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// keyPointList normalizes the loosely-typed key_points field: either a JSON
// array of strings or a single string with newline-separated bullet points.
func keyPointList(v any) []string {
	switch points := v.(type) {
	case []any:
		var out []string
		for _, p := range points {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, line := range strings.Split(points, "\n") {
			line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
			if line != "" {
				out = append(out, line)
			}
		}
		return out
	}
	return nil
}
