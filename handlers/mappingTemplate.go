package handlers

import (
	"fmt"
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListMappingTemplates(c *gin.Context) {
	filter := models.MappingTemplateFilter{
		TargetSchemaId: queryInt(c, "target_schema_id"),
		IsActive:       queryBoolPtr(c, "is_active"),
		Search:         c.Query("search"),
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "page_size"),
	}
	templates, total, err := models.ListMappingTemplates(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, templates, total, filter.Page, filter.PageSize)
}

func (h *Handler) GetMappingTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	template, err := models.GetMappingTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *Handler) CreateMappingTemplate(c *gin.Context) {
	var input models.NewMappingTemplate
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	template, err := models.CreateMappingTemplate(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

func (h *Handler) UpdateMappingTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewMappingTemplate
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	template, err := models.UpdateMappingTemplate(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *Handler) DeleteMappingTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := models.DeleteMappingTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type applyTemplateRequest struct {
	SourceTableId int `json:"source_table_id" binding:"required"`
}

func (h *Handler) ApplyMappingTemplate(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input applyTemplateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	result, err := models.ApplyTemplate(c.Request.Context(), id, input.SourceTableId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DownloadColumnTemplate serves GET /templates/download?table_id=&format=.
func (h *Handler) DownloadColumnTemplate(c *gin.Context) {
	tableId := queryInt(c, "table_id")
	format := c.DefaultQuery("format", "csv")

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=columns_%d.csv", tableId))
		if err := models.ExportColumnTemplateCSV(c.Request.Context(), c.Writer, tableId); err != nil {
			respondError(c, err)
		}
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=columns_%d.xlsx", tableId))
		if err := models.ExportColumnTemplateXLSX(c.Request.Context(), c.Writer, tableId); err != nil {
			respondError(c, err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
	}
}

// ImportColumnTemplate serves POST /templates/import with a multipart CSV
// upload.
func (h *Handler) ImportColumnTemplate(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	reader, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	strategy := models.MergeStrategy(c.DefaultPostForm("strategy", "merge"))
	result, err := models.ImportColumnTemplate(c.Request.Context(), reader, strategy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
