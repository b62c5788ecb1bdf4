package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListTargetSchemas(c *gin.Context) {
	filter := models.TargetSchemaFilter{
		SchemaType: c.Query("schema_type"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "page_size"),
	}
	schemas, total, err := models.ListTargetSchemas(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, schemas, total, filter.Page, filter.PageSize)
}

func (h *Handler) GetTargetSchema(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	schema, err := models.GetTargetSchema(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (h *Handler) CreateTargetSchema(c *gin.Context) {
	var input models.NewTargetSchema
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	schema, err := models.CreateTargetSchema(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schema)
}

func (h *Handler) UpdateTargetSchema(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewTargetSchema
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	schema, err := models.UpdateTargetSchema(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (h *Handler) DeleteTargetSchema(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := models.DeleteTargetSchema(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListSchemaFields serves GET /target-schemas/:id/fields.
func (h *Handler) ListSchemaFields(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if _, err := models.GetTargetSchema(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	filter := models.TargetFieldFilter{
		SchemaId: id,
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
