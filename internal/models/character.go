package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Character is a persistent story character. Identity is immutable once
// created; the narrative fields can be edited between scenes.
type Character struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Personality string    `json:"personality" gorm:"not null"`
	Background  string    `json:"background" gorm:"not null"`
	Appearance  string    `json:"appearance"`
	Goals       string    `json:"goals"`
	Fears       string    `json:"fears"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Character) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CreateCharacterRequest struct {
	Name        string `json:"name" binding:"required"`
	Personality string `json:"personality" binding:"required"`
	Background  string `json:"background" binding:"required"`
	Appearance  string `json:"appearance"`
	Goals       string `json:"goals"`
	Fears       string `json:"fears"`
}

type UpdateCharacterRequest struct {
	Name        *string `json:"name"`
	Personality *string `json:"personality"`
	Background  *string `json:"background"`
	Appearance  *string `json:"appearance"`
	Goals       *string `json:"goals"`
	Fears       *string `json:"fears"`
}
