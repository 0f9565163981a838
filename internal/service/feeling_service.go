package service

import (
	"gorm.io/gorm"

	"storycave/backend/internal/models"
)

// FeelingService persists the directed feeling graph. Writes are additive:
// each generation appends new rows, so the full feeling history of a pair
// survives.
type FeelingService struct {
	db *gorm.DB
}

func NewFeelingService(db *gorm.DB) *FeelingService {
	return &FeelingService{db: db}
}

func (s *FeelingService) Append(feelings []models.CharacterFeeling) error {
	for i := range feelings {
		feelings[i].Intensity = clampEmotionalImpact(feelings[i].Intensity)
		// Self-referential rows are meaningless in a directed graph and are
		// never persisted.
		if feelings[i].CharacterID == feelings[i].TargetCharacterID {
			continue
		}
		if result := s.db.Create(&feelings[i]); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func (s *FeelingService) ListByCharacter(characterID string) ([]models.CharacterFeeling, error) {
	var feelings []models.CharacterFeeling
	result := s.db.Where("character_id = ?", characterID).Order("created_at asc").Find(&feelings)
	if result.Error != nil {
		return nil, result.Error
	}
	return feelings, nil
}

// ListForCharacters returns every feeling edge whose owner is in
// characterIDs, in ascending creation order.
func (s *FeelingService) ListForCharacters(characterIDs []string) ([]models.CharacterFeeling, error) {
	if len(characterIDs) == 0 {
		return nil, nil
	}
	var feelings []models.CharacterFeeling
	result := s.db.Where("character_id IN ?", characterIDs).Order("created_at asc").Find(&feelings)
	if result.Error != nil {
		return nil, result.Error
	}
	return feelings, nil
}

// DeleteForCharacters removes all feeling edges owned by the given
// characters. Used when a conversation is discarded.
func (s *FeelingService) DeleteForCharacters(characterIDs []string) (int64, error) {
	if len(characterIDs) == 0 {
		return 0, nil
	}
	result := s.db.Delete(&models.CharacterFeeling{}, "character_id IN ?", characterIDs)
	return result.RowsAffected, result.Error
}
