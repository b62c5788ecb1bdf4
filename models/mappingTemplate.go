package models

import (
	"context"
	"errors"
	"path"
	"sort"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
)

// MappingTemplate is a reusable set of column-name-pattern to target-field
// rules. Rules use shell-style patterns (path.Match) against the source
// column name, case preserved.
type MappingTemplate struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	Name                string    `gorm:"size:255;unique;not null" json:"name" binding:"required"`
	Description         string    `gorm:"type:text" json:"description"`
	SourceSchemaPattern string    `gorm:"size:255" json:"source_schema_pattern"`
	TargetSchemaId      int       `gorm:"index;not null" json:"target_schema_id" binding:"required"`
	MappingRules        JSONMap   `gorm:"type:json" json:"mapping_rules"`
	UsageCount          int       `gorm:"default:0" json:"usage_count"`
	SuccessRate         float64   `gorm:"default:0" json:"success_rate"`
	IsActive            *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedBy           int       `json:"created_by"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	TargetSchema *TargetSchema `gorm:"foreignKey:TargetSchemaId" json:"target_schema,omitempty"`
}

func (MappingTemplate) TableName() string { return "mapping_templates" }

func (t MappingTemplate) SearchText() []string {
	return []string{t.Name, t.Description, t.SourceSchemaPattern}
}

type NewMappingTemplate struct {
	Name                string  `json:"name" binding:"required"`
	Description         string  `json:"description"`
	SourceSchemaPattern string  `json:"source_schema_pattern"`
	TargetSchemaId      int     `json:"target_schema_id" binding:"required"`
	MappingRules        JSONMap `json:"mapping_rules"`
	IsActive            *bool   `json:"is_active"`
}

func (input *NewMappingTemplate) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[MappingTemplate](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[TargetSchema](ctx, input.TargetSchemaId); err != nil {
		return utils.NotFoundErrorf("target schema %d", input.TargetSchemaId)
	}
	for pattern := range input.MappingRules {
		if _, err := path.Match(pattern, "probe"); err != nil {
			return utils.ValidationErrorf("bad rule pattern %q", pattern)
		}
	}
	return nil
}

func CreateMappingTemplate(ctx context.Context, input *NewMappingTemplate) (*MappingTemplate, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	if input.IsActive == nil {
		input.IsActive = utils.NewTrue()
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	template := MappingTemplate{
		Name:                input.Name,
		Description:         input.Description,
		SourceSchemaPattern: input.SourceSchemaPattern,
		TargetSchemaId:      input.TargetSchemaId,
		MappingRules:        input.MappingRules,
		IsActive:            input.IsActive,
		CreatedBy:           userId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&template).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ValidationErrorf("duplicate name")
		}
		return nil, err
	}
	return &template, nil
}

func GetMappingTemplate(ctx context.Context, id int) (*MappingTemplate, error) {
	db := config.GetDB()
	var template MappingTemplate
	err := db.WithContext(ctx).Preload("TargetSchema").First(&template, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("mapping template %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

type MappingTemplateFilter struct {
	TargetSchemaId int
	IsActive       *bool
	Search         string
	Page           int
	PageSize       int
}

func ListMappingTemplates(ctx context.Context, filter *MappingTemplateFilter) ([]MappingTemplate, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&MappingTemplate{}).Preload("TargetSchema")

	if filter.TargetSchemaId > 0 {
		dbCtx = dbCtx.Where("target_schema_id = ?", filter.TargetSchemaId)
	}
	if filter.IsActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *filter.IsActive)
	}

	var templates []MappingTemplate
	if err := dbCtx.Order("name ASC").Limit(config.SearchLimit).Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	matched := utils.SearchFilter(templates, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func UpdateMappingTemplate(ctx context.Context, id int, input *NewMappingTemplate) (*MappingTemplate, error) {
	template, err := GetMappingTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	template.Name = input.Name
	template.Description = input.Description
	template.SourceSchemaPattern = input.SourceSchemaPattern
	template.TargetSchemaId = input.TargetSchemaId
	template.MappingRules = input.MappingRules
	if input.IsActive != nil {
		template.IsActive = input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

func DeleteMappingTemplate(ctx context.Context, id int) error {
	template, err := GetMappingTemplate(ctx, id)
	if err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(template).Update("is_active", false).Error
}

// ApplyTemplateResult reports what one application of a template did.
type ApplyTemplateResult struct {
	MatchedColumns int                `json:"matched_columns"`
	CreatedCount   int                `json:"created_count"`
	SkippedCount   int                `json:"skipped_count"`
	Mappings       []FieldMapping     `json:"mappings"`
	Errors         []BulkMappingError `json:"errors"`
}

// ApplyTemplate runs a template's rules over one source table. Columns whose
// name matches a rule pattern get a pending template mapping to the rule's
// target field; columns that already have an active mapping are skipped.
func ApplyTemplate(ctx context.Context, templateId int, tableId int) (*ApplyTemplateResult, error) {
	template, err := GetMappingTemplate(ctx, templateId)
	if err != nil {
		return nil, err
	}
	if template.IsActive != nil && !*template.IsActive {
		return nil, utils.ValidationErrorf("template %d is inactive", templateId)
	}
	table, err := GetSourceTable(ctx, tableId)
	if err != nil {
		return nil, err
	}

	result := &ApplyTemplateResult{Mappings: []FieldMapping{}, Errors: []BulkMappingError{}}
	db := config.GetDB()

	for i := range table.Columns {
		column := &table.Columns[i]
		targetName, ok := matchRule(template.MappingRules, column.ColumnName)
		if !ok {
			continue
		}
		result.MatchedColumns++

		var active int64
		if err := db.WithContext(ctx).Model(&FieldMapping{}).
			Where("source_column_id = ? AND status IN ?", column.ID,
				[]MappingStatus{MappingStatusPending, MappingStatusValidated}).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active > 0 {
			result.SkippedCount++
			continue
		}

		field, err := findTargetFieldInSchema(ctx, template.TargetSchemaId, targetName)
		if err != nil {
			result.Errors = append(result.Errors, BulkMappingError{
				Index: i, Error: utils.NotFoundErrorf("target field %q", targetName).Error(),
			})
			continue
		}

		mapping, err := CreateFieldMapping(ctx, &NewFieldMapping{
			SourceColumnId: column.ID,
			TargetFieldId:  field.ID,
			MappingType:    MappingTypeTemplate,
		})
		if err != nil {
			result.Errors = append(result.Errors, BulkMappingError{Index: i, Error: err.Error()})
			continue
		}
		result.Mappings = append(result.Mappings, *mapping)
	}
	result.CreatedCount = len(result.Mappings)

	updates := map[string]any{"usage_count": gorm.Expr("usage_count + 1")}
	if result.MatchedColumns > 0 {
		updates["success_rate"] = float64(result.CreatedCount) / float64(result.MatchedColumns)
	}
	if err := db.WithContext(ctx).Model(template).Updates(updates).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func matchRule(rules JSONMap, columnName string) (string, bool) {
	// exact rule wins over a pattern rule; patterns are tried in sorted
	// order so repeated applications pick the same rule
	if target, ok := rules[columnName]; ok {
		return target, true
	}
	patterns := make([]string, 0, len(rules))
	for pattern := range rules {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		if matched, err := path.Match(pattern, columnName); err == nil && matched {
			return rules[pattern], true
		}
	}
	return "", false
}

func findTargetFieldInSchema(ctx context.Context, schemaId int, fieldName string) (*TargetField, error) {
	db := config.GetDB()
	var field TargetField
	err := db.WithContext(ctx).
		Where("schema_id = ? AND field_name = ? AND is_active = ?", schemaId, fieldName, true).
		First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}
