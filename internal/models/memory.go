package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Memory types form a closed set.
const (
	MemoryInteraction = "interaction"
	MemoryObservation = "observation"
	MemoryFeeling     = "feeling"
	MemoryRevelation  = "revelation"
)

// ValidMemoryType reports whether t is one of the canonical memory types.
func ValidMemoryType(t string) bool {
	switch t {
	case MemoryInteraction, MemoryObservation, MemoryFeeling, MemoryRevelation:
		return true
	}
	return false
}

// Memory is what a character retains from a scene: a short ordered list of
// key points rather than free text. KeyPoints and RelatedCharacters are
// stored JSON-encoded in text columns.
type Memory struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	CharacterID       string    `json:"character_id" gorm:"index;not null"`
	SceneID           string    `json:"scene_id" gorm:"index;not null"`
	KeyPoints         string    `json:"-" gorm:"not null"`
	MemoryType        string    `json:"memory_type" gorm:"default:interaction"`
	EmotionalImpact   float64   `json:"emotional_impact" gorm:"default:0"`
	RelatedCharacters string    `json:"-"`
	Importance        int       `json:"importance" gorm:"default:1"`
	CreatedAt         time.Time `json:"created_at"`
}

func (m *Memory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// SetKeyPoints stores the ordered key-point list.
func (m *Memory) SetKeyPoints(points []string) {
	data, _ := json.Marshal(points)
	m.KeyPoints = string(data)
}

// KeyPointList decodes the stored key points. A legacy plain-text value comes
// back as a single point.
func (m *Memory) KeyPointList() []string {
	var points []string
	if err := json.Unmarshal([]byte(m.KeyPoints), &points); err != nil {
		if m.KeyPoints == "" {
			return nil
		}
		return []string{m.KeyPoints}
	}
	return points
}

// SetRelatedCharacters stores the related character id set.
func (m *Memory) SetRelatedCharacters(ids []string) {
	data, _ := json.Marshal(ids)
	m.RelatedCharacters = string(data)
}

// RelatedCharacterIDs decodes the stored related character ids.
func (m *Memory) RelatedCharacterIDs() []string {
	var ids []string
	if err := json.Unmarshal([]byte(m.RelatedCharacters), &ids); err != nil {
		return nil
	}
	return ids
}

// MarshalJSON flattens the JSON-encoded columns into proper arrays.
func (m Memory) MarshalJSON() ([]byte, error) {
	type alias Memory
	return json.Marshal(struct {
		alias
		KeyPoints         []string `json:"key_points"`
		RelatedCharacters []string `json:"related_characters"`
	}{
		alias:             alias(m),
		KeyPoints:         m.KeyPointList(),
		RelatedCharacters: m.RelatedCharacterIDs(),
	})
}

type CreateMemoryRequest struct {
	CharacterID       string   `json:"character_id" binding:"required"`
	SceneID           string   `json:"scene_id" binding:"required"`
	KeyPoints         []string `json:"key_points" binding:"required"`
	MemoryType        string   `json:"memory_type"`
	EmotionalImpact   float64  `json:"emotional_impact"`
	RelatedCharacters []string `json:"related_characters"`
	Importance        int      `json:"importance"`
}
