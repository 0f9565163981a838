package service

import (
	"context"

	"storycave/backend/ai"
	"storycave/backend/internal/models"
	apperrors "storycave/backend/pkg/errors"
	"storycave/backend/pkg/logger"
)

// Narrow store contracts the orchestrator runs against. The gorm services
// satisfy them; tests substitute in-memory fakes.

type sceneStore interface {
	GetScene(id string) (*models.Scene, error)
	SceneRoster(sceneID string) ([]models.Character, error)
}

type interactionStore interface {
	Create(interaction *models.Interaction) error
	ListByScene(sceneID string) ([]models.Interaction, error)
	DeleteByScene(sceneID string) (int64, error)
}

type memoryStore interface {
	Create(req *models.CreateMemoryRequest) (*models.Memory, error)
	ListForCharacter(characterID, sceneID string) ([]models.Memory, error)
	DeleteByScene(sceneID string) (int64, error)
}

type feelingStore interface {
	Append(feelings []models.CharacterFeeling) error
	DeleteForCharacters(characterIDs []string) (int64, error)
}

// generator is the slice of the generation engine the orchestrator needs.
type generator interface {
	GenerateCharacterInteraction(ctx context.Context, character models.Character, scene models.Scene, others []models.Character, memories []models.Memory, recent []models.Interaction, names map[string]string) ai.Turn
	GenerateUnifiedSceneConversation(ctx context.Context, scene models.Scene, characters []models.Character, prior []ai.PriorTurn) []ai.ConversationTurn
	GenerateMemoryFromInteraction(ctx context.Context, character models.Character, interaction models.Interaction, scene models.Scene, others []models.Character) (*ai.MemoryDraft, error)
	UpdateCharacterFeelings(ctx context.Context, character models.Character, interaction models.Interaction, others []models.Character) []ai.FeelingDraft
	GenerateSceneNarration(ctx context.Context, scene models.Scene, characters []models.Character, recent []models.Interaction, names map[string]string, narrationType string) string
}

// broadcaster pushes scene events to connected clients. Delivery is
// best-effort; a missing or failing broadcaster never affects persistence.
type broadcaster interface {
	BroadcastToScene(sceneID, eventType string, payload any)
}

// Orchestrator drives the story loop: it serializes scene mutations, runs
// the generation engine, and commits the results in story order. Each
// character's turn is a fold: the interaction is committed first, then its
// memory and feelings derive from the committed row, and later characters
// in the same advance see the turns committed before theirs.
type Orchestrator struct {
	engine       generator
	scenes       sceneStore
	interactions interactionStore
	memories     memoryStore
	feelings     feelingStore
	guard        *SceneGuard
	events       broadcaster
	log          *logger.Logger
}

func NewOrchestrator(
	engine generator,
	scenes sceneStore,
	interactions interactionStore,
	memories memoryStore,
	feelings feelingStore,
	guard *SceneGuard,
	events broadcaster,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		engine:       engine,
		scenes:       scenes,
		interactions: interactions,
		memories:     memories,
		feelings:     feelings,
		guard:        guard,
		events:       events,
		log:          log,
	}
}

// GeneratedTurn is a committed interaction plus the generation side
// channel: the character's internal thoughts and relationship insights that
// are returned to the caller but never persisted.
type GeneratedTurn struct {
	Interaction          models.InteractionView `json:"interaction"`
	CharacterThoughts    string                 `json:"character_thoughts,omitempty"`
	RelationshipInsights map[string]any         `json:"relationship_insights,omitempty"`
	Fallback             bool                   `json:"fallback,omitempty"`
}

// AdvanceResult reports one timeline advance.
type AdvanceResult struct {
	SceneID      string                   `json:"scene_id"`
	Interactions []models.InteractionView `json:"interactions"`
}

// ConversationResult reports a conversation start or continuation.
type ConversationResult struct {
	SceneID      string                   `json:"scene_id"`
	Interactions []models.InteractionView `json:"interactions"`
}

// DiscardResult reports what a conversation discard removed.
type DiscardResult struct {
	SceneID             string `json:"scene_id"`
	InteractionsDeleted int64  `json:"interactions_deleted"`
	MemoriesDeleted     int64  `json:"memories_deleted"`
	FeelingsDeleted     int64  `json:"feelings_deleted"`
}

func (o *Orchestrator) sceneContext(sceneID string) (*models.Scene, []models.Character, map[string]string, error) {
	scene, err := o.scenes.GetScene(sceneID)
	if err != nil {
		return nil, nil, nil, err
	}
	roster, err := o.scenes.SceneRoster(sceneID)
	if err != nil {
		return nil, nil, nil, err
	}
	names := make(map[string]string, len(roster))
	for _, c := range roster {
		names[c.ID] = c.Name
	}
	return scene, roster, names, nil
}

func othersThan(roster []models.Character, characterID string) []models.Character {
	others := make([]models.Character, 0, len(roster))
	for _, c := range roster {
		if c.ID != characterID {
			others = append(others, c)
		}
	}
	return others
}

func (o *Orchestrator) view(interaction models.Interaction, names map[string]string) models.InteractionView {
	view := models.InteractionView{
		Interaction:   interaction,
		CharacterName: names[interaction.CharacterID],
	}
	if view.CharacterName == "" {
		view.CharacterName = "Unknown"
	}
	if interaction.TargetCharacterID != nil {
		if name, ok := names[*interaction.TargetCharacterID]; ok {
			view.TargetCharacterName = &name
		}
	}
	return view
}

func (o *Orchestrator) broadcast(sceneID, eventType string, payload any) {
	if o.events != nil {
		o.events.BroadcastToScene(sceneID, eventType, payload)
	}
}

// commitTurn persists one character's turn and derives its memory and
// feelings from the committed interaction. Derivation failures are logged
// and skipped; the interaction itself is already safe.
func (o *Orchestrator) commitTurn(
	ctx context.Context,
	character models.Character,
	scene models.Scene,
	others []models.Character,
	interaction *models.Interaction,
) error {
	if err := o.interactions.Create(interaction); err != nil {
		return err
	}

	if draft, err := o.engine.GenerateMemoryFromInteraction(ctx, character, *interaction, scene, others); err != nil {
		o.log.Warn("Memory derivation failed, interaction stands without one",
			"character", character.Name,
			"interaction_id", interaction.ID,
			"error", err.Error(),
		)
	} else if draft != nil {
		_, err := o.memories.Create(&models.CreateMemoryRequest{
			CharacterID:       character.ID,
			SceneID:           scene.ID,
			KeyPoints:         draft.KeyPoints,
			MemoryType:        draft.MemoryType,
			EmotionalImpact:   draft.EmotionalImpact,
			RelatedCharacters: draft.RelatedCharacterIDs,
			Importance:        draft.Importance,
		})
		if err != nil {
			o.log.Error("Storing derived memory failed",
				"character", character.Name,
				"error", err.Error(),
			)
		}
	}

	drafts := o.engine.UpdateCharacterFeelings(ctx, character, *interaction, others)
	if len(drafts) > 0 {
		feelings := make([]models.CharacterFeeling, len(drafts))
		for i, d := range drafts {
			feelings[i] = models.CharacterFeeling{
				CharacterID:       character.ID,
				TargetCharacterID: d.TargetCharacterID,
				FeelingType:       d.FeelingType,
				Intensity:         d.Intensity,
				Reason:            d.Reason,
			}
		}
		if err := o.feelings.Append(feelings); err != nil {
			o.log.Error("Storing derived feelings failed",
				"character", character.Name,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// GenerateInteraction produces and commits one turn for a single character.
func (o *Orchestrator) GenerateInteraction(ctx context.Context, sceneID, characterID string) (*GeneratedTurn, error) {
	if err := o.guard.Acquire(sceneID); err != nil {
		return nil, err
	}
	defer o.guard.Release(sceneID)

	scene, roster, names, err := o.sceneContext(sceneID)
	if err != nil {
		return nil, err
	}

	var actor *models.Character
	for i := range roster {
		if roster[i].ID == characterID {
			actor = &roster[i]
			break
		}
	}
	if actor == nil {
		return nil, apperrors.NewBadRequestError("character_not_in_scene", "Character is not part of the scene")
	}
	others := othersThan(roster, characterID)

	memories, err := o.memories.ListForCharacter(characterID, sceneID)
	if err != nil {
		return nil, err
	}
	recent, err := o.interactions.ListByScene(sceneID)
	if err != nil {
		return nil, err
	}

	turn := o.engine.GenerateCharacterInteraction(ctx, *actor, *scene, others, memories, recent, names)

	interaction := &models.Interaction{
		SceneID:           sceneID,
		CharacterID:       characterID,
		Content:           turn.Content,
		InteractionType:   turn.InteractionType,
		EmotionalState:    turn.EmotionalState,
		TargetCharacterID: turn.TargetCharacterID,
	}
	if turn.Fallback {
		// Fallback content is committed like any other turn, but no memory
		// or feelings derive from it.
		if err := o.interactions.Create(interaction); err != nil {
			return nil, err
		}
	} else if err := o.commitTurn(ctx, *actor, *scene, others, interaction); err != nil {
		return nil, err
	}

	result := &GeneratedTurn{
		Interaction:          o.view(*interaction, names),
		CharacterThoughts:    turn.CharacterThoughts,
		RelationshipInsights: turn.Insights,
		Fallback:             turn.Fallback,
	}
	o.broadcast(sceneID, "interaction", result.Interaction)
	return result, nil
}

// AdvanceTimeline generates one turn for every roster character in order.
// Each committed turn joins the recent-interaction context of the characters
// after it, so a round reads as a sequence rather than as parallel monologues.
func (o *Orchestrator) AdvanceSceneTimeline(ctx context.Context, sceneID string) (*AdvanceResult, error) {
	if err := o.guard.Acquire(sceneID); err != nil {
		return nil, err
	}
	defer o.guard.Release(sceneID)

	scene, roster, names, err := o.sceneContext(sceneID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, apperrors.NewBadRequestError("scene_roster_empty", "Scene has no characters")
	}

	recent, err := o.interactions.ListByScene(sceneID)
	if err != nil {
		return nil, err
	}

	result := &AdvanceResult{SceneID: sceneID}
	for _, character := range roster {
		others := othersThan(roster, character.ID)

		memories, err := o.memories.ListForCharacter(character.ID, sceneID)
		if err != nil {
			return nil, err
		}

		turn := o.engine.GenerateCharacterInteraction(ctx, character, *scene, others, memories, recent, names)

		interaction := &models.Interaction{
			SceneID:           sceneID,
			CharacterID:       character.ID,
			Content:           turn.Content,
			InteractionType:   turn.InteractionType,
			EmotionalState:    turn.EmotionalState,
			TargetCharacterID: turn.TargetCharacterID,
		}
		if turn.Fallback {
			if err := o.interactions.Create(interaction); err != nil {
				return nil, err
			}
		} else if err := o.commitTurn(ctx, character, *scene, others, interaction); err != nil {
			return nil, err
		}

		// The committed turn becomes context for the characters after this
		// one in the same round.
		recent = append(recent, *interaction)
		result.Interactions = append(result.Interactions, o.view(*interaction, names))
	}

	o.broadcast(sceneID, "timeline_advanced", result)
	return result, nil
}

// StartConversation wipes the scene's story state and opens a fresh unified
// conversation. Characters, scenes and plot notes survive; interactions,
// memories and the roster's feelings do not.
func (o *Orchestrator) StartSceneConversation(ctx context.Context, sceneID string) (*ConversationResult, error) {
	if err := o.guard.Acquire(sceneID); err != nil {
		return nil, err
	}
	defer o.guard.Release(sceneID)

	scene, roster, names, err := o.sceneContext(sceneID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, apperrors.NewBadRequestError("scene_roster_empty", "Scene has no characters")
	}

	if _, err := o.interactions.DeleteByScene(sceneID); err != nil {
		return nil, err
	}
	if _, err := o.memories.DeleteByScene(sceneID); err != nil {
		return nil, err
	}
	rosterIDs := make([]string, len(roster))
	for i, c := range roster {
		rosterIDs[i] = c.ID
	}
	if _, err := o.feelings.DeleteForCharacters(rosterIDs); err != nil {
		return nil, err
	}

	turns := o.engine.GenerateUnifiedSceneConversation(ctx, *scene, roster, nil)
	result, err := o.commitConversation(sceneID, names, turns)
	if err != nil {
		return nil, err
	}
	o.broadcast(sceneID, "conversation_started", result)
	return result, nil
}

// ContinueConversation extends an existing conversation. It fails when the
// scene has no interactions to continue from.
func (o *Orchestrator) ContinueConversation(ctx context.Context, sceneID string) (*ConversationResult, error) {
	if err := o.guard.Acquire(sceneID); err != nil {
		return nil, err
	}
	defer o.guard.Release(sceneID)

	scene, roster, names, err := o.sceneContext(sceneID)
	if err != nil {
		return nil, err
	}

	existing, err := o.interactions.ListByScene(sceneID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, apperrors.NewBadRequestError("no_conversation", "No existing conversation to continue")
	}

	prior := make([]ai.PriorTurn, 0, len(existing))
	for _, interaction := range existing {
		name := names[interaction.CharacterID]
		if name == "" {
			continue
		}
		prior = append(prior, ai.PriorTurn{
			CharacterName:   name,
			Content:         interaction.Content,
			InteractionType: interaction.InteractionType,
			EmotionalState:  interaction.EmotionalState,
		})
	}

	turns := o.engine.GenerateUnifiedSceneConversation(ctx, *scene, roster, prior)
	result, err := o.commitConversation(sceneID, names, turns)
	if err != nil {
		return nil, err
	}
	o.broadcast(sceneID, "conversation_continued", result)
	return result, nil
}

func (o *Orchestrator) commitConversation(sceneID string, names map[string]string, turns []ai.ConversationTurn) (*ConversationResult, error) {
	result := &ConversationResult{SceneID: sceneID}
	for _, turn := range turns {
		interaction := &models.Interaction{
			SceneID:           sceneID,
			CharacterID:       turn.CharacterID,
			Content:           turn.Content,
			InteractionType:   turn.InteractionType,
			EmotionalState:    turn.EmotionalState,
			TargetCharacterID: turn.TargetCharacterID,
		}
		if err := o.interactions.Create(interaction); err != nil {
			return nil, err
		}
		result.Interactions = append(result.Interactions, o.view(*interaction, names))
	}
	return result, nil
}

// SaveConversation confirms the current conversation. Interactions are
// already durable at commit time, so saving changes nothing; it exists so
// clients get an explicit acknowledgment with the current count.
func (o *Orchestrator) SaveConversation(sceneID string) (int, error) {
	if _, err := o.scenes.GetScene(sceneID); err != nil {
		return 0, err
	}
	interactions, err := o.interactions.ListByScene(sceneID)
	if err != nil {
		return 0, err
	}
	return len(interactions), nil
}

// DiscardConversation wipes the scene's interactions, memories and the
// roster's feelings. The scene, its characters and plot notes survive.
func (o *Orchestrator) DiscardConversation(sceneID string) (*DiscardResult, error) {
	if err := o.guard.Acquire(sceneID); err != nil {
		return nil, err
	}
	defer o.guard.Release(sceneID)

	_, roster, _, err := o.sceneContext(sceneID)
	if err != nil {
		return nil, err
	}

	result := &DiscardResult{SceneID: sceneID}
	if result.InteractionsDeleted, err = o.interactions.DeleteByScene(sceneID); err != nil {
		return nil, err
	}
	if result.MemoriesDeleted, err = o.memories.DeleteByScene(sceneID); err != nil {
		return nil, err
	}
	rosterIDs := make([]string, len(roster))
	for i, c := range roster {
		rosterIDs[i] = c.ID
	}
	if result.FeelingsDeleted, err = o.feelings.DeleteForCharacters(rosterIDs); err != nil {
		return nil, err
	}

	o.broadcast(sceneID, "conversation_discarded", result)
	return result, nil
}

// Narrate generates an atmospheric description of the scene without
// committing anything.
func (o *Orchestrator) Narrate(ctx context.Context, sceneID, narrationType string) (string, error) {
	scene, roster, names, err := o.sceneContext(sceneID)
	if err != nil {
		return "", err
	}
	recent, err := o.interactions.ListByScene(sceneID)
	if err != nil {
		return "", err
	}
	return o.engine.GenerateSceneNarration(ctx, *scene, roster, recent, names, narrationType), nil
}
