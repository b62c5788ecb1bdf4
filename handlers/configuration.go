package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListConfigurationSettings(c *gin.Context) {
	filter := models.ConfigurationFilter{
		Section:  c.Query("section"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	settings, total, err := models.ListConfigurationSettings(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, settings, total, filter.Page, filter.PageSize)
}

func (h *Handler) ConfigurationBySection(c *gin.Context) {
	section := models.ConfigSection(c.Query("section"))
	values, err := models.GetConfigSection(c.Request.Context(), section)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section, "settings": values})
}

func (h *Handler) FullConfiguration(c *gin.Context) {
	configuration, err := models.FullConfiguration(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configuration)
}

type updateSettingRequest struct {
	Section string `json:"section" binding:"required"`
	Key     string `json:"key" binding:"required"`
	Value   any    `json:"value"`
	Reason  string `json:"reason"`
}

func (h *Handler) UpdateSetting(c *gin.Context) {
	var input updateSettingRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	err := models.UpdateSetting(c.Request.Context(),
		models.ConfigSection(input.Section), input.Key, input.Value, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type bulkUpdateRequest struct {
	Settings map[string]map[string]any `json:"settings" binding:"required"`
	Reason   string                    `json:"reason"`
}

func (h *Handler) BulkUpdateConfiguration(c *gin.Context) {
	var input bulkUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	updated, err := models.BulkUpdateConfiguration(c.Request.Context(), input.Settings, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

type testConfigurationRequest struct {
	TestType string         `json:"test_type" binding:"required"`
	Settings map[string]any `json:"settings"`
}

func (h *Handler) TestConfiguration(c *gin.Context) {
	var input testConfigurationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	status, err := models.TestConfiguration(c.Request.Context(), h.Gateway, input.TestType, input.Settings)
	if err != nil {
		respondError(c, err)
		return
	}
	if !status.Success {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

type exportConfigurationRequest struct {
	Sections []string `json:"sections"`
}

func (h *Handler) ExportConfiguration(c *gin.Context) {
	var input exportConfigurationRequest
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		respondError(c, err)
		return
	}
	configuration, err := models.ExportConfiguration(c.Request.Context(), input.Sections)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configuration)
}

type importConfigurationRequest struct {
	Settings map[string]map[string]any `json:"settings" binding:"required"`
	Strategy string                    `json:"strategy"`
	Reason   string                    `json:"reason"`
}

func (h *Handler) ImportConfiguration(c *gin.Context) {
	var input importConfigurationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	imported, err := models.ImportConfiguration(c.Request.Context(), input.Settings,
		models.MergeStrategy(input.Strategy), input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imported": imported})
}

type resetDefaultsRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) ResetConfigurationDefaults(c *gin.Context) {
	var input resetDefaultsRequest
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		respondError(c, err)
		return
	}
	if err := models.ResetConfigurationDefaults(c.Request.Context(), input.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListConfigurationHistory(c *gin.Context) {
	filter := models.ConfigurationHistoryFilter{
		Section:  c.Query("section"),
		Key:      c.Query("key"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	history, total, err := models.ListConfigurationHistory(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, history, total, filter.Page, filter.PageSize)
}
