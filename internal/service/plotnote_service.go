package service

import (
	"gorm.io/gorm"

	"storycave/backend/internal/models"
)

// Plot note categories produced by the system itself. Writers can use any
// category they like; these two are reserved for generated notes.
const (
	PlotNoteCategorySummary     = "scene-summary"
	PlotNoteCategoryInspiration = "inspiration"
)

type PlotNoteService struct {
	db *gorm.DB
}

func NewPlotNoteService(db *gorm.DB) *PlotNoteService {
	return &PlotNoteService{db: db}
}

func (s *PlotNoteService) Create(req *models.CreatePlotNoteRequest) (*models.PlotNote, error) {
	category := req.Category
	if category == "" {
		category = "general"
	}

	note := &models.PlotNote{
		SceneID:     req.SceneID,
		CharacterID: req.CharacterID,
		Content:     req.Content,
		Category:    category,
		Importance:  clampMemoryImportance(req.Importance),
	}

	if result := s.db.Create(note); result.Error != nil {
		return nil, result.Error
	}
	return note, nil
}

func (s *PlotNoteService) ListByScene(sceneID string) ([]models.PlotNote, error) {
	var notes []models.PlotNote
	result := s.db.Where("scene_id = ?", sceneID).Order("created_at asc").Find(&notes)
	if result.Error != nil {
		return nil, result.Error
	}
	return notes, nil
}

func (s *PlotNoteService) ListByCategory(sceneID, category string) ([]models.PlotNote, error) {
	var notes []models.PlotNote
	result := s.db.Where("scene_id = ? AND category = ?", sceneID, category).
		Order("created_at asc").Find(&notes)
	if result.Error != nil {
		return nil, result.Error
	}
	return notes, nil
}
