package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scene is a shared setting that characters act inside. At most one scene is
// active at a time; activation is an atomic repository-level transition that
// deactivates every other scene.
type Scene struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Environment string    `json:"environment" gorm:"not null"`
	Context     string    `json:"context" gorm:"not null"`
	Weather     string    `json:"weather"`
	TimeOfDay   string    `json:"time_of_day"`
	Mood        string    `json:"mood"`
	IsActive    bool      `json:"is_active" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Scene) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SceneCharacter is the membership record joining a character to a scene.
// Roster iteration order follows membership creation order.
type SceneCharacter struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	SceneID        string    `json:"scene_id" gorm:"index;not null"`
	CharacterID    string    `json:"character_id" gorm:"index;not null"`
	RoleInScene    string    `json:"role_in_scene"`
	EmotionalState string    `json:"emotional_state" gorm:"default:neutral"`
	GoalsInScene   string    `json:"goals_in_scene"`
	CreatedAt      time.Time `json:"created_at"`
}

func (sc *SceneCharacter) BeforeCreate(tx *gorm.DB) error {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	return nil
}

type CreateSceneRequest struct {
	Title        string   `json:"title" binding:"required"`
	Environment  string   `json:"environment" binding:"required"`
	Context      string   `json:"context" binding:"required"`
	Weather      string   `json:"weather"`
	TimeOfDay    string   `json:"time_of_day"`
	Mood         string   `json:"mood"`
	CharacterIDs []string `json:"character_ids" binding:"required"`
}

type UpdateSceneRequest struct {
	Title       *string `json:"title"`
	Environment *string `json:"environment"`
	Context     *string `json:"context"`
	Weather     *string `json:"weather"`
	TimeOfDay   *string `json:"time_of_day"`
	Mood        *string `json:"mood"`
}

// SceneWithCharacters is the API shape for scene reads, which always carry
// the roster.
type SceneWithCharacters struct {
	Scene
	Characters []Character `json:"characters"`
}
