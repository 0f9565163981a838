package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CharacterFeeling is a directed feeling edge between two characters.
// Feeling history is additive: re-generation appends new rows instead of
// overwriting earlier ones, so a pair can carry several feeling types at
// once.
type CharacterFeeling struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	CharacterID       string    `json:"character_id" gorm:"index;not null"`
	TargetCharacterID string    `json:"target_character_id" gorm:"index;not null"`
	FeelingType       string    `json:"feeling_type"`
	Intensity         float64   `json:"intensity" gorm:"default:0"`
	Reason            string    `json:"reason"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (f *CharacterFeeling) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
