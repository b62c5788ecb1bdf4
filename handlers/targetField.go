package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListTargetFields(c *gin.Context) {
	filter := models.TargetFieldFilter{
		SchemaId: queryInt(c, "schema_id"),
		DataType: c.Query("data_type"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	fields, total, err := models.ListTargetFields(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, fields, total, filter.Page, filter.PageSize)
}

func (h *Handler) GetTargetField(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	field, err := models.GetTargetField(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (h *Handler) CreateTargetField(c *gin.Context) {
	var input models.NewTargetField
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	field, err := models.CreateTargetField(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

func (h *Handler) UpdateTargetField(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewTargetField
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	field, err := models.UpdateTargetField(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (h *Handler) DeleteTargetField(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := models.DeleteTargetField(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SemanticSearch is the manual vector search path, no model involved.
func (h *Handler) SemanticSearch(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "term is required"})
		return
	}
	limit := queryInt(c, "limit")
	fields, err := h.Gateway.SearchSemanticFields(c.Request.Context(), term, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": fields})
}
