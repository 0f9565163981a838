package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlotNote is scene-scoped free text produced by scene summarization or
// entered by a writer: character development beats, relationship shifts,
// plot points, inspiration.
type PlotNote struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	SceneID     string    `json:"scene_id" gorm:"index;not null"`
	CharacterID *string   `json:"character_id"`
	Content     string    `json:"content" gorm:"not null"`
	Category    string    `json:"category" gorm:"default:general"`
	Importance  int       `json:"importance" gorm:"default:1"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *PlotNote) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type CreatePlotNoteRequest struct {
	SceneID     string  `json:"scene_id" binding:"required"`
	CharacterID *string `json:"character_id"`
	Content     string  `json:"content" binding:"required"`
	Category    string  `json:"category"`
	Importance  int     `json:"importance"`
}
