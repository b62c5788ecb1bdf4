package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/databricks"
	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler carries the shared collaborators; one instance serves every
// route.
type Handler struct {
	Gateway databricks.Gateway
}

func NewHandler(gateway databricks.Gateway) *Handler {
	return &Handler{Gateway: gateway}
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}

	switch {
	case errors.Is(err, utils.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorGateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		config.GetLogger().WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func paramId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	value, _ := strconv.Atoi(c.Query(name))
	return value
}

func queryBoolPtr(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true", "1":
		return utils.NewTrue()
	case "false", "0":
		return utils.NewFalse()
	}
	return nil
}

// pagedResponse is the list envelope every collection endpoint uses.
type pagedResponse struct {
	Results  any `json:"results"`
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func respondPage(c *gin.Context, results any, total, page, pageSize int) {
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, pagedResponse{
		Results:  results,
		Count:    total,
		Page:     page,
		PageSize: utils.NormalizePageSize(pageSize),
	})
}
