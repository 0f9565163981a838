package service

import (
	"gorm.io/gorm"

	"storycave/backend/internal/models"
	apperrors "storycave/backend/pkg/errors"
)

type MemoryService struct {
	db *gorm.DB
}

func NewMemoryService(db *gorm.DB) *MemoryService {
	return &MemoryService{db: db}
}

// clampEmotionalImpact bounds an impact score to [-100, 100] at write time
// so an out-of-range value can never be persisted, whatever the caller.
func clampEmotionalImpact(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}

// clampMemoryImportance bounds importance to [1, 5] at write time.
func clampMemoryImportance(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func (s *MemoryService) Create(req *models.CreateMemoryRequest) (*models.Memory, error) {
	if len(req.KeyPoints) == 0 {
		return nil, apperrors.NewBadRequestError("memory_key_points_required", "a memory needs at least one key point")
	}

	memoryType := req.MemoryType
	if !models.ValidMemoryType(memoryType) {
		memoryType = models.MemoryInteraction
	}

	memory := &models.Memory{
		CharacterID:     req.CharacterID,
		SceneID:         req.SceneID,
		MemoryType:      memoryType,
		EmotionalImpact: clampEmotionalImpact(req.EmotionalImpact),
		Importance:      clampMemoryImportance(req.Importance),
	}
	memory.SetKeyPoints(req.KeyPoints)
	memory.SetRelatedCharacters(req.RelatedCharacters)

	if result := s.db.Create(memory); result.Error != nil {
		return nil, result.Error
	}
	return memory, nil
}

// ListForCharacter returns a character's memories within a scene in
// ascending creation order.
func (s *MemoryService) ListForCharacter(characterID, sceneID string) ([]models.Memory, error) {
	var memories []models.Memory
	result := s.db.Where("character_id = ? AND scene_id = ?", characterID, sceneID).
		Order("created_at asc").Find(&memories)
	if result.Error != nil {
		return nil, result.Error
	}
	return memories, nil
}

func (s *MemoryService) ListByScene(sceneID string) ([]models.Memory, error) {
	var memories []models.Memory
	result := s.db.Where("scene_id = ?", sceneID).Order("created_at asc").Find(&memories)
	if result.Error != nil {
		return nil, result.Error
	}
	return memories, nil
}

func (s *MemoryService) ListByCharacter(characterID string) ([]models.Memory, error) {
	var memories []models.Memory
	result := s.db.Where("character_id = ?", characterID).Order("created_at asc").Find(&memories)
	if result.Error != nil {
		return nil, result.Error
	}
	return memories, nil
}

func (s *MemoryService) DeleteByScene(sceneID string) (int64, error) {
	result := s.db.Delete(&models.Memory{}, "scene_id = ?", sceneID)
	return result.RowsAffected, result.Error
}
