package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storycave/backend/ai"
	"storycave/backend/internal/models"
	"storycave/backend/internal/service"
	apperrors "storycave/backend/pkg/errors"
)

type SceneHandler struct {
	scenes       *service.SceneService
	interactions *service.InteractionService
	notes        *service.PlotNoteService
	timeline     *service.TimelineService
	engine       *ai.Engine
}

func NewSceneHandler(scenes *service.SceneService, interactions *service.InteractionService, notes *service.PlotNoteService, timeline *service.TimelineService, engine *ai.Engine) *SceneHandler {
	return &SceneHandler{
		scenes:       scenes,
		interactions: interactions,
		notes:        notes,
		timeline:     timeline,
		engine:       engine,
	}
}

func (h *SceneHandler) CreateScene(c *gin.Context) {
	var req models.CreateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}

	scene, err := h.scenes.CreateScene(&req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, scene)
}

func (h *SceneHandler) GetScene(c *gin.Context) {
	scene, err := h.scenes.GetSceneWithCharacters(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *SceneHandler) ListScenes(c *gin.Context) {
	scenes, err := h.scenes.ListScenes()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scenes)
}

func (h *SceneHandler) UpdateScene(c *gin.Context) {
	var req models.UpdateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}

	scene, err := h.scenes.UpdateScene(c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *SceneHandler) DeleteScene(c *gin.Context) {
	if err := h.scenes.DeleteScene(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *SceneHandler) ActivateScene(c *gin.Context) {
	scene, err := h.scenes.ActivateScene(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *SceneHandler) GetActiveScene(c *gin.Context) {
	scene, err := h.scenes.ActiveScene()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

type addCharacterRequest struct {
	CharacterID string `json:"character_id" binding:"required"`
}

func (h *SceneHandler) AddCharacter(c *gin.Context) {
	var req addCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}
	if err := h.scenes.AddCharacterToScene(c.Param("id"), req.CharacterID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (h *SceneHandler) ListInteractions(c *gin.Context) {
	sceneID := c.Param("id")
	roster, err := h.scenes.SceneRoster(sceneID)
	if err != nil {
		c.Error(err)
		return
	}
	names := make(map[string]string, len(roster))
	for _, character := range roster {
		names[character.ID] = character.Name
	}

	views, err := h.interactions.ViewsByScene(sceneID, names)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *SceneHandler) GetTimeline(c *gin.Context) {
	timeline, err := h.timeline.SceneTimeline(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// SummarizeScene analyzes the scene's interactions and stores the result as
// a scene-summary plot note.
func (h *SceneHandler) SummarizeScene(c *gin.Context) {
	sceneID := c.Param("id")
	scene, err := h.scenes.GetSceneWithCharacters(sceneID)
	if err != nil {
		c.Error(err)
		return
	}

	names := make(map[string]string, len(scene.Characters))
	for _, character := range scene.Characters {
		names[character.ID] = character.Name
	}
	interactions, err := h.interactions.ListByScene(sceneID)
	if err != nil {
		c.Error(err)
		return
	}

	lines := make([]string, len(interactions))
	for i, interaction := range interactions {
		name := names[interaction.CharacterID]
		if name == "" {
			name = "Unknown"
		}
		lines[i] = fmt.Sprintf("- %s: %s", name, interaction.Content)
	}

	summary := h.engine.SummarizeScene(c.Request.Context(), scene.Scene, scene.Characters, lines)

	// The summary becomes part of the timeline as a high-importance plot
	// note.
	note, err := h.notes.Create(&models.CreatePlotNoteRequest{
		SceneID:    sceneID,
		Content:    summary.Summary,
		Category:   service.PlotNoteCategorySummary,
		Importance: 4,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scene_id":               sceneID,
		"summary":                summary.Summary,
		"key_events":             summary.KeyEvents,
		"character_developments": summary.CharacterDevelopments,
		"relationship_changes":   summary.RelationshipChanges,
		"plot_advancement":       summary.PlotAdvancement,
		"plot_note_id":           note.ID,
		"total_interactions":     len(interactions),
	})
}

// AnalyzeScene generates plot inspiration from the scene's interactions.
func (h *SceneHandler) AnalyzeScene(c *gin.Context) {
	sceneID := c.Param("id")
	scene, err := h.scenes.GetSceneWithCharacters(sceneID)
	if err != nil {
		c.Error(err)
		return
	}

	names := make(map[string]string, len(scene.Characters))
	for _, character := range scene.Characters {
		names[character.ID] = character.Name
	}
	interactions, err := h.interactions.ListByScene(sceneID)
	if err != nil {
		c.Error(err)
		return
	}

	start := len(interactions) - 10
	if start < 0 {
		start = 0
	}
	var lines []string
	for _, interaction := range interactions[start:] {
		name := names[interaction.CharacterID]
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, interaction.Content))
	}

	inspiration := h.engine.GeneratePlotInspiration(c.Request.Context(), scene.Scene, scene.Characters, lines)

	mood := scene.Mood
	if mood == "" {
		mood = "neutral"
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":            sceneID,
		"overall_mood":        mood,
		"plot_developments":   inspiration,
		"writing_inspiration": inspiration,
	})
}
