package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListFieldMappings(c *gin.Context) {
	filter := models.FieldMappingFilter{
		SourceColumnId: queryInt(c, "source_column_id"),
		TableId:        queryInt(c, "table_id"),
		MappingType:    c.Query("mapping_type"),
		Status:         c.Query("status"),
		IsValidated:    queryBoolPtr(c, "is_validated"),
		Search:         c.Query("search"),
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "page_size"),
	}
	mappings, total, err := models.ListFieldMappings(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, mappings, total, filter.Page, filter.PageSize)
}

func (h *Handler) GetFieldMapping(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	mapping, err := models.GetFieldMapping(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

func (h *Handler) CreateFieldMapping(c *gin.Context) {
	var input models.NewFieldMapping
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	mapping, err := models.CreateFieldMapping(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

type validateMappingRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) ValidateFieldMapping(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input validateMappingRequest
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		respondError(c, err)
		return
	}
	mapping, err := models.ValidateFieldMapping(c.Request.Context(), id, input.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

// UnmapField serves DELETE /field-mappings/:id.
func (h *Handler) UnmapField(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := models.UnmapField(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type bulkCreateRequest struct {
	Mappings     []models.NewFieldMapping `json:"mappings" binding:"required"`
	AutoValidate bool                     `json:"auto_validate"`
}

func (h *Handler) BulkCreateMappings(c *gin.Context) {
	var input bulkCreateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	result, err := models.BulkCreateMappings(c.Request.Context(), input.Mappings, input.AutoValidate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) MappingStats(c *gin.Context) {
	report, err := models.MappingStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
