package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storycave/backend/internal/models"
	"storycave/backend/internal/service"
	apperrors "storycave/backend/pkg/errors"
)

// InteractionHandler covers writer-entered story data: manual interactions,
// memories, plot notes.
type InteractionHandler struct {
	scenes       *service.SceneService
	characters   *service.CharacterService
	interactions *service.InteractionService
	memories     *service.MemoryService
	notes        *service.PlotNoteService
}

func NewInteractionHandler(scenes *service.SceneService, characters *service.CharacterService, interactions *service.InteractionService, memories *service.MemoryService, notes *service.PlotNoteService) *InteractionHandler {
	return &InteractionHandler{
		scenes:       scenes,
		characters:   characters,
		interactions: interactions,
		memories:     memories,
		notes:        notes,
	}
}

func (h *InteractionHandler) CreateInteraction(c *gin.Context) {
	var req models.CreateInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}
	if _, err := h.scenes.GetScene(req.SceneID); err != nil {
		c.Error(err)
		return
	}
	if _, err := h.characters.GetCharacter(req.CharacterID); err != nil {
		c.Error(err)
		return
	}

	interaction := &models.Interaction{
		SceneID:           req.SceneID,
		CharacterID:       req.CharacterID,
		Content:           req.Content,
		InteractionType:   req.InteractionType,
		EmotionalState:    req.EmotionalState,
		TargetCharacterID: req.TargetCharacterID,
	}
	if err := h.interactions.Create(interaction); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, interaction)
}

func (h *InteractionHandler) CreateMemory(c *gin.Context) {
	var req models.CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}
	if _, err := h.characters.GetCharacter(req.CharacterID); err != nil {
		c.Error(err)
		return
	}

	memory, err := h.memories.Create(&req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, memory)
}

func (h *InteractionHandler) CreatePlotNote(c *gin.Context) {
	var req models.CreatePlotNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}
	if _, err := h.scenes.GetScene(req.SceneID); err != nil {
		c.Error(err)
		return
	}

	note, err := h.notes.Create(&req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *InteractionHandler) ListPlotNotes(c *gin.Context) {
	sceneID := c.Param("id")
	if _, err := h.scenes.GetScene(sceneID); err != nil {
		c.Error(err)
		return
	}

	if category := c.Query("category"); category != "" {
		notes, err := h.notes.ListByCategory(sceneID, category)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, notes)
		return
	}

	notes, err := h.notes.ListByScene(sceneID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, notes)
}
