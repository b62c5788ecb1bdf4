package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListMappingSessions(c *gin.Context) {
	filter := models.MappingSessionFilter{
		UserId:   queryInt(c, "user_id"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	sessions, total, err := models.ListMappingSessions(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, sessions, total, filter.Page, filter.PageSize)
}

func (h *Handler) GetMappingSession(c *gin.Context) {
	session, err := models.GetMappingSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) CreateMappingSession(c *gin.Context) {
	var input models.NewMappingSession
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	session, err := models.CreateMappingSession(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) UpdateMappingSession(c *gin.Context) {
	var input models.NewMappingSession
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	session, err := models.UpdateMappingSession(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) DeleteMappingSession(c *gin.Context) {
	if err := models.DeleteMappingSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) UpdateSessionProgress(c *gin.Context) {
	session, err := models.UpdateSessionProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
