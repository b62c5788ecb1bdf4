package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAISuggestions(c *gin.Context) {
	filter := models.AISuggestionFilter{
		SourceColumnId: queryInt(c, "source_column_id"),
		TableId:        queryInt(c, "table_id"),
		ModelName:      c.Query("model_name"),
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "page_size"),
	}
	suggestions, total, err := models.ListAISuggestions(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, suggestions, total, filter.Page, filter.PageSize)
}

type generateSuggestionsRequest struct {
	SourceColumnId   int    `json:"source_column_id" binding:"required"`
	NumVectorResults int    `json:"num_vector_results"`
	NumAIResults     int    `json:"num_ai_results"`
	UserFeedback     string `json:"user_feedback"`
}

func (h *Handler) GenerateSuggestions(c *gin.Context) {
	var input generateSuggestionsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	suggestions, err := models.GenerateSuggestions(c.Request.Context(), h.Gateway,
		input.SourceColumnId, input.NumVectorResults, input.NumAIResults, input.UserFeedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": suggestions})
}

func (h *Handler) AcceptSuggestion(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	mapping, err := models.AcceptSuggestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

type rejectSuggestionRequest struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) RejectSuggestion(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input rejectSuggestionRequest
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		respondError(c, err)
		return
	}
	if err := models.RejectSuggestion(c.Request.Context(), id, input.Feedback); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
