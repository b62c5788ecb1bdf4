package handlers

import (
	"net/http"

	"github.com/gainwell-gia/s2t_backend/middlewares"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the full REST surface onto the engine. Everything
// under /api except the auth endpoints requires a bearer token; mutating
// configuration routes additionally require the admin role.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "s2t-backend", "status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", middlewares.RequireAuth(), h.Logout)
		auth.GET("/users", middlewares.RequireAuth(), middlewares.RequireAdmin(), h.ListUsers)
	}

	mapping := api.Group("/mapping", middlewares.RequireAuth())
	{
		tables := mapping.Group("/source-tables")
		{
			tables.GET("", h.ListSourceTables)
			tables.POST("", h.CreateSourceTable)
			tables.POST("/discover", h.DiscoverSourceTables)
			tables.GET("/test-connection", h.TestConnection)
			tables.GET("/:id", h.GetSourceTable)
			tables.PUT("/:id", h.UpdateSourceTable)
			tables.DELETE("/:id", h.DeleteSourceTable)
			tables.GET("/:id/columns", h.ListTableColumns)
			tables.GET("/:id/mappings", h.ListTableMappings)
			tables.POST("/:id/analyze", h.AnalyzeSourceTable)
		}

		schemas := mapping.Group("/target-schemas")
		{
			schemas.GET("", h.ListTargetSchemas)
			schemas.POST("", h.CreateTargetSchema)
			schemas.GET("/:id", h.GetTargetSchema)
			schemas.PUT("/:id", h.UpdateTargetSchema)
			schemas.DELETE("/:id", h.DeleteTargetSchema)
			schemas.GET("/:id/fields", h.ListSchemaFields)
		}

		fields := mapping.Group("/target-fields")
		{
			fields.GET("", h.ListTargetFields)
			fields.POST("", h.CreateTargetField)
			fields.GET("/:id", h.GetTargetField)
			fields.PUT("/:id", h.UpdateTargetField)
			fields.DELETE("/:id", h.DeleteTargetField)
		}

		mapping.GET("/semantic-search", h.SemanticSearch)

		mappings := mapping.Group("/field-mappings")
		{
			mappings.GET("", h.ListFieldMappings)
			mappings.POST("", h.CreateFieldMapping)
			mappings.POST("/bulk-create", h.BulkCreateMappings)
			mappings.GET("/:id", h.GetFieldMapping)
			mappings.POST("/:id/validate", h.ValidateFieldMapping)
			mappings.DELETE("/:id", h.UnmapField)
		}

		suggestions := mapping.Group("/ai-suggestions")
		{
			suggestions.GET("", h.ListAISuggestions)
			suggestions.POST("/generate", h.GenerateSuggestions)
			suggestions.POST("/:id/accept", h.AcceptSuggestion)
			suggestions.POST("/:id/reject", h.RejectSuggestion)
		}

		templates := mapping.Group("/templates")
		{
			templates.GET("", h.ListMappingTemplates)
			templates.POST("", h.CreateMappingTemplate)
			templates.GET("/download", h.DownloadColumnTemplate)
			templates.POST("/import", h.ImportColumnTemplate)
			templates.GET("/:id", h.GetMappingTemplate)
			templates.PUT("/:id", h.UpdateMappingTemplate)
			templates.DELETE("/:id", h.DeleteMappingTemplate)
			templates.POST("/:id/apply", h.ApplyMappingTemplate)
		}

		sessions := mapping.Group("/sessions")
		{
			sessions.GET("", h.ListMappingSessions)
			sessions.POST("", h.CreateMappingSession)
			sessions.GET("/:id", h.GetMappingSession)
			sessions.PUT("/:id", h.UpdateMappingSession)
			sessions.DELETE("/:id", h.DeleteMappingSession)
			sessions.POST("/:id/update-progress", h.UpdateSessionProgress)
		}

		mapping.GET("/stats", h.MappingStats)
	}

	configGroup := api.Group("/config", middlewares.RequireAuth())
	{
		settings := configGroup.Group("/settings")
		{
			settings.GET("", h.ListConfigurationSettings)
			settings.GET("/by-section", h.ConfigurationBySection)
			settings.GET("/full", h.FullConfiguration)

			admin := settings.Group("", middlewares.RequireAdmin())
			{
				admin.POST("/update-setting", h.UpdateSetting)
				admin.POST("/bulk-update", h.BulkUpdateConfiguration)
				admin.POST("/test", h.TestConfiguration)
				admin.POST("/export", h.ExportConfiguration)
				admin.POST("/import", h.ImportConfiguration)
				admin.POST("/reset-defaults", h.ResetConfigurationDefaults)
			}
		}
		configGroup.GET("/history", middlewares.RequireAdmin(), h.ListConfigurationHistory)
	}
}
