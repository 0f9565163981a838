package service

import (
	"gorm.io/gorm"

	"storycave/backend/internal/models"
)

type InteractionService struct {
	db *gorm.DB
}

func NewInteractionService(db *gorm.DB) *InteractionService {
	return &InteractionService{db: db}
}

func (s *InteractionService) Create(interaction *models.Interaction) error {
	interaction.InteractionType = models.NormalizeInteractionType(interaction.InteractionType)
	// An interaction never targets its own author; a self-reference is
	// nulled rather than rejected.
	if interaction.TargetCharacterID != nil && *interaction.TargetCharacterID == interaction.CharacterID {
		interaction.TargetCharacterID = nil
	}
	return s.db.Create(interaction).Error
}

// ListByScene returns the scene's interactions in ascending creation order,
// the canonical story order.
func (s *InteractionService) ListByScene(sceneID string) ([]models.Interaction, error) {
	var interactions []models.Interaction
	result := s.db.Where("scene_id = ?", sceneID).Order("created_at asc").Find(&interactions)
	if result.Error != nil {
		return nil, result.Error
	}
	return interactions, nil
}

// ViewsByScene returns interactions decorated with resolved character names.
func (s *InteractionService) ViewsByScene(sceneID string, names map[string]string) ([]models.InteractionView, error) {
	interactions, err := s.ListByScene(sceneID)
	if err != nil {
		return nil, err
	}

	views := make([]models.InteractionView, len(interactions))
	for i, interaction := range interactions {
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
		views[i] = view
	}
	return views, nil
}

// DeleteByScene removes all of a scene's interactions and reports how many
// rows went away.
func (s *InteractionService) DeleteByScene(sceneID string) (int64, error) {
	result := s.db.Delete(&models.Interaction{}, "scene_id = ?", sceneID)
	return result.RowsAffected, result.Error
}
