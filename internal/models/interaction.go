package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interaction types form a closed set. Anything else coming back from the
// generation provider is remapped before an interaction is stored.
const (
	InteractionDialogue  = "dialogue"
	InteractionThought   = "thought"
	InteractionAction    = "action"
	InteractionNarration = "narration"
)

// ValidInteractionType reports whether t is one of the four canonical types.
func ValidInteractionType(t string) bool {
	switch t {
	case InteractionDialogue, InteractionThought, InteractionAction, InteractionNarration:
		return true
	}
	return false
}

// NormalizeInteractionType maps provider synonyms onto the canonical set.
// Unknown values fall back to dialogue.
func NormalizeInteractionType(t string) string {
	if ValidInteractionType(t) {
		return t
	}
	switch t {
	case "narrative", "description", "environmental":
		return InteractionNarration
	case "movement", "gesture", "physical":
		return InteractionAction
	}
	return InteractionDialogue
}

// Interaction is one generated turn inside a scene. CreatedAt is the
// authoritative ordering key; InteractionDate is a user-facing calendar field
// only.
type Interaction struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	SceneID           string    `json:"scene_id" gorm:"index;not null"`
	CharacterID       string    `json:"character_id" gorm:"index;not null"`
	Content           string    `json:"content" gorm:"not null"`
	InteractionType   string    `json:"interaction_type" gorm:"default:dialogue"`
	EmotionalState    string    `json:"emotional_state"`
	TargetCharacterID *string   `json:"target_character_id"`
	InteractionDate   time.Time `json:"interaction_date"`
	CreatedAt         time.Time `json:"created_at"`
}

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.InteractionDate.IsZero() {
		i.InteractionDate = time.Now()
	}
	return nil
}

type CreateInteractionRequest struct {
	SceneID           string  `json:"scene_id" binding:"required"`
	CharacterID       string  `json:"character_id" binding:"required"`
	Content           string  `json:"content" binding:"required"`
	InteractionType   string  `json:"interaction_type"`
	EmotionalState    string  `json:"emotional_state"`
	TargetCharacterID *string `json:"target_character_id"`
}

// InteractionView decorates an interaction with resolved character names for
// API responses.
type InteractionView struct {
	Interaction
	CharacterName       string  `json:"character_name"`
	TargetCharacterName *string `json:"target_character_name,omitempty"`
}
