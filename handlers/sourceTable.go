package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListSourceTables(c *gin.Context) {
	filter := models.SourceTableFilter{
		CatalogName:    c.Query("catalog_name"),
		SchemaName:     c.Query("schema_name"),
		TableType:      c.Query("table_type"),
		AnalysisStatus: c.Query("analysis_status"),
		Search:         c.Query("search"),
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "page_size"),
	}
	tables, total, err := models.ListSourceTables(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, tables, total, filter.Page, filter.PageSize)
}

func (h *Handler) GetSourceTable(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	table, err := models.GetSourceTable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) CreateSourceTable(c *gin.Context) {
	var input models.NewSourceTable
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	table, err := models.CreateSourceTable(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

func (h *Handler) UpdateSourceTable(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewSourceTable
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	table, err := models.UpdateSourceTable(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) DeleteSourceTable(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := models.DeleteSourceTable(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListTableColumns serves GET /source-tables/:id/columns.
func (h *Handler) ListTableColumns(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if _, err := models.GetSourceTable(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	filter := models.SourceColumnFilter{
		TableId:  id,
		Status:   c.Query("status"),
		DataType: c.Query("data_type"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	columns, total, err := models.ListSourceColumns(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, columns, total, filter.Page, filter.PageSize)
}

// ListTableMappings serves GET /source-tables/:id/mappings.
func (h *Handler) ListTableMappings(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if _, err := models.GetSourceTable(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	filter := models.FieldMappingFilter{
		TableId:  id,
		Status:   c.Query("status"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	mappings, total, err := models.ListFieldMappings(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, mappings, total, filter.Page, filter.PageSize)
}

func (h *Handler) AnalyzeSourceTable(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	table, err := models.AnalyzeSourceTable(c.Request.Context(), h.Gateway, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

type discoverRequest struct {
	Catalogs []string `json:"catalogs"`
	Search   string   `json:"search"`
}

func (h *Handler) DiscoverSourceTables(c *gin.Context) {
	var input discoverRequest
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		respondError(c, err)
		return
	}
	stats, err := models.DiscoverSourceTables(c.Request.Context(), h.Gateway, input.Catalogs, input.Search)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) TestConnection(c *gin.Context) {
	status, err := h.Gateway.TestConnection(c.Request.Context(), "database", nil)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
