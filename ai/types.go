package ai

// Turn is one generated interaction attributed to a character, fully
// validated and ready to commit.
type Turn struct {
	Content           string         `json:"content"`
	InteractionType   string         `json:"interaction_type"`
	EmotionalState    string         `json:"emotional_state"`
	TargetCharacterID *string        `json:"target_character_id"`
	CharacterThoughts string         `json:"character_thoughts,omitempty"`
	Insights          map[string]any `json:"relationship_insights,omitempty"`
	// Fallback marks deterministic placeholder content substituted after a
	// generation or parse failure.
	Fallback bool `json:"fallback,omitempty"`
}

// ConversationTurn is one entry of a unified multi-character exchange,
// already resolved against the scene roster.
type ConversationTurn struct {
	CharacterID       string  `json:"character_id"`
	CharacterName     string  `json:"character_name"`
	Content           string  `json:"content"`
	InteractionType   string  `json:"interaction_type"`
	EmotionalState    string  `json:"emotional_state"`
	TargetCharacterID *string `json:"target_character_id"`
	Fallback          bool    `json:"fallback,omitempty"`
}

// PriorTurn is the view of an already-committed interaction handed back to
// the engine when continuing a conversation.
type PriorTurn struct {
	CharacterName   string
	Content         string
	InteractionType string
	EmotionalState  string
}

// MemoryDraft is a derived memory before persistence. All numeric fields are
// already clamped to their declared ranges.
type MemoryDraft struct {
	KeyPoints           []string
	MemoryType          string
	EmotionalImpact     float64
	RelatedCharacterIDs []string
	Importance          int
}

// FeelingDraft is a derived feeling delta before persistence. Intensity is
// already clamped and the target is guaranteed to differ from the owner.
type FeelingDraft struct {
	TargetCharacterID string
	FeelingType       string
	Intensity         float64
	Reason            string
}

// SceneSummary is the structured result of scene summarization.
type SceneSummary struct {
	Summary               string            `json:"summary"`
	KeyEvents             []string          `json:"key_events"`
	CharacterDevelopments map[string]string `json:"character_developments"`
	RelationshipChanges   []string          `json:"relationship_changes"`
	PlotAdvancement       string            `json:"plot_advancement"`
}
