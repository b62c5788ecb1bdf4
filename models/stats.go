package models

import (
	"context"
	"fmt"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
)

// SchemaProgress is mapping coverage for one target schema.
type SchemaProgress struct {
	Mapped   int     `json:"mapped"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
}

// ActivityEntry is one row of the recent activity feed.
type ActivityEntry struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	User        string    `json:"user"`
	Timestamp   time.Time `json:"timestamp"`
}

// MappingStatsReport is the dashboard snapshot.
type MappingStatsReport struct {
	TotalTables       int                       `json:"total_tables"`
	TotalColumns      int                       `json:"total_columns"`
	MappedColumns     int                       `json:"mapped_columns"`
	ValidatedMappings int                       `json:"validated_mappings"`
	AISuggestions     int                       `json:"ai_suggestions"`
	MappingProgress   float64                   `json:"mapping_progress"`
	AIAcceptRate      float64                   `json:"ai_accept_rate"`
	SchemaProgress    map[string]SchemaProgress `json:"schema_progress"`
	RecentActivity    []ActivityEntry           `json:"recent_activity"`
}

// MappingStats assembles the dashboard counters over the whole store.
func MappingStats(ctx context.Context) (*MappingStatsReport, error) {
	db := config.GetDB()
	report := &MappingStatsReport{
		SchemaProgress: map[string]SchemaProgress{},
		RecentActivity: []ActivityEntry{},
	}

	var totalTables, totalColumns, mappedColumns, validatedMappings, aiSuggestions int64
	if err := db.WithContext(ctx).Model(&SourceTable{}).
		Where("is_active = ?", true).Count(&totalTables).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&SourceColumn{}).Count(&totalColumns).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&SourceColumn{}).
		Where("status = ?", ColumnStatusMapped).Count(&mappedColumns).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&FieldMapping{}).
		Where("is_validated = ?", true).Count(&validatedMappings).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&AISuggestion{}).Count(&aiSuggestions).Error; err != nil {
		return nil, err
	}

	report.TotalTables = int(totalTables)
	report.TotalColumns = int(totalColumns)
	report.MappedColumns = int(mappedColumns)
	report.ValidatedMappings = int(validatedMappings)
	report.AISuggestions = int(aiSuggestions)
	if totalColumns > 0 {
		report.MappingProgress = float64(mappedColumns) / float64(totalColumns) * 100
	}

	// accept rate: accepted ai mappings over accepted plus still-open
	// suggestions, a live approximation without a separate decisions log
	var aiMappings int64
	if err := db.WithContext(ctx).Model(&FieldMapping{}).
		Where("mapping_type = ?", MappingTypeAISuggestion).Count(&aiMappings).Error; err != nil {
		return nil, err
	}
	if aiMappings+aiSuggestions > 0 {
		report.AIAcceptRate = float64(aiMappings) / float64(aiMappings+aiSuggestions) * 100
	}

	var schemas []TargetSchema
	if err := db.WithContext(ctx).Where("is_active = ?", true).Find(&schemas).Error; err != nil {
		return nil, err
	}
	for _, schema := range schemas {
		var fields, mapped int64
		if err := db.WithContext(ctx).Model(&TargetField{}).
			Where("schema_id = ?", schema.ID).Count(&fields).Error; err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Model(&FieldMapping{}).
			Where("target_field_id IN (?)",
				db.Model(&TargetField{}).Select("id").Where("schema_id = ?", schema.ID)).
			Count(&mapped).Error; err != nil {
			return nil, err
		}
		progress := SchemaProgress{Mapped: int(mapped), Total: int(fields)}
		if fields > 0 {
			progress.Progress = float64(mapped) / float64(fields) * 100
		}
		report.SchemaProgress[schema.SchemaName] = progress
	}

	var recent []FieldMapping
	err := db.WithContext(ctx).Model(&FieldMapping{}).
		Preload("SourceColumn").Preload("TargetField").
		Order("created_at DESC, id DESC").Limit(10).Find(&recent).Error
	if err != nil {
		return nil, err
	}
	for _, mapping := range recent {
		entry := ActivityEntry{
			Type:      "mapping_created",
			User:      "System",
			Timestamp: mapping.CreatedAt,
		}
		if mapping.SourceColumn != nil && mapping.TargetField != nil {
			entry.Description = fmt.Sprintf("Mapped %s to %s",
				mapping.SourceColumn.ColumnName, mapping.TargetField.FieldName)
		}
		if mapping.CreatedBy > 0 {
			var user User
			if err := db.WithContext(ctx).First(&user, mapping.CreatedBy).Error; err == nil {
				entry.User = user.Name
			}
		}
		report.RecentActivity = append(report.RecentActivity, entry)
	}
	return report, nil
}
