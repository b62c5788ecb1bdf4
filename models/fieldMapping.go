package models

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FieldMapping links one source column to one target field. At most one
// active mapping (status pending or validated) may exist per source column;
// supersession of the previous one follows SupersedePolicyFromEnv.
type FieldMapping struct {
	ID                     int                    `gorm:"primary_key" json:"id"`
	SourceColumnId         int                    `gorm:"index;not null" json:"source_column_id" binding:"required"`
	TargetFieldId          int                    `gorm:"index;not null" json:"target_field_id" binding:"required"`
	MappingType            MappingType            `gorm:"type:enum('manual','ai_suggestion','template');default:'manual';index" json:"mapping_type"`
	TransformationLogic    string                 `gorm:"type:text" json:"transformation_logic"`
	TransformationLanguage TransformationLanguage `gorm:"type:enum('sql','python','spark','custom');default:'sql'" json:"transformation_language"`
	ConfidenceScore        *decimal.Decimal       `gorm:"type:decimal(5,4)" json:"confidence_score"`
	Status                 MappingStatus          `gorm:"type:enum('pending','validated','rejected','archived');default:'pending';index" json:"status"`
	IsValidated            *bool                  `gorm:"not null;default:false" json:"is_validated"`
	ValidationNotes        string                 `gorm:"type:text" json:"validation_notes"`
	AIReasoning            string                 `gorm:"type:text" json:"ai_reasoning"`
	AIModelVersion         string                 `gorm:"size:100" json:"ai_model_version"`
	CreatedBy              int                    `json:"created_by"`
	ValidatedBy            int                    `json:"validated_by"`
	ValidatedAt            *time.Time             `json:"validated_at"`
	CreatedAt              time.Time              `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt              time.Time              `gorm:"autoUpdateTime" json:"updated_at"`

	SourceColumn *SourceColumn `gorm:"foreignKey:SourceColumnId" json:"source_column,omitempty"`
	TargetField  *TargetField  `gorm:"foreignKey:TargetFieldId" json:"target_field,omitempty"`
}

func (FieldMapping) TableName() string { return "mapping_field_mappings" }

func (m FieldMapping) SearchText() []string {
	columnName, fieldName := "", ""
	if m.SourceColumn != nil {
		columnName = m.SourceColumn.ColumnName
	}
	if m.TargetField != nil {
		fieldName = m.TargetField.FieldName
	}
	return []string{columnName, fieldName}
}

// SupersedePolicyFromEnv reads MAPPING_SUPERSEDE_POLICY; default replace.
func SupersedePolicyFromEnv() SupersedePolicy {
	policy := SupersedePolicy(os.Getenv("MAPPING_SUPERSEDE_POLICY"))
	if !policy.Valid() {
		return SupersedeReplace
	}
	return policy
}

type NewFieldMapping struct {
	SourceColumnId         int                    `json:"source_column_id" binding:"required"`
	TargetFieldId          int                    `json:"target_field_id" binding:"required"`
	MappingType            MappingType            `json:"mapping_type"`
	TransformationLogic    string                 `json:"transformation_logic"`
	TransformationLanguage TransformationLanguage `json:"transformation_language"`
	ConfidenceScore        *decimal.Decimal       `json:"confidence_score"`
	ValidationNotes        string                 `json:"validation_notes"`
	AIReasoning            string                 `json:"ai_reasoning"`
	AIModelVersion         string                 `json:"ai_model_version"`
}

func (input *NewFieldMapping) validate(ctx context.Context) error {
	if input.MappingType == "" {
		input.MappingType = MappingTypeManual
	}
	if !input.MappingType.Valid() {
		return utils.ValidationErrorf("unknown mapping type %q", input.MappingType)
	}
	if input.TransformationLanguage == "" {
		input.TransformationLanguage = TransformationLanguageSQL
	}
	if !input.TransformationLanguage.Valid() {
		return utils.ValidationErrorf("unknown transformation language %q", input.TransformationLanguage)
	}
	if input.ConfidenceScore != nil {
		if input.ConfidenceScore.IsNegative() || input.ConfidenceScore.GreaterThan(decimal.NewFromInt(1)) {
			return utils.ValidationErrorf("confidence_score must be within [0,1]")
		}
	}
	if err := utils.ValidateResourceId[SourceColumn](ctx, input.SourceColumnId); err != nil {
		return utils.NotFoundErrorf("source column %d", input.SourceColumnId)
	}
	if err := utils.ValidateResourceId[TargetField](ctx, input.TargetFieldId); err != nil {
		return utils.NotFoundErrorf("target field %d", input.TargetFieldId)
	}
	return nil
}

// CreateFieldMapping creates a pending mapping and moves the column to
// mapped. Runs in one transaction: supersession of an existing active
// mapping, the new row, the column status update and suggestion cleanup all
// land together or not at all.
func CreateFieldMapping(ctx context.Context, input *NewFieldMapping) (*FieldMapping, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	mapping := FieldMapping{
		SourceColumnId:         input.SourceColumnId,
		TargetFieldId:          input.TargetFieldId,
		MappingType:            input.MappingType,
		TransformationLogic:    input.TransformationLogic,
		TransformationLanguage: input.TransformationLanguage,
		ConfidenceScore:        input.ConfidenceScore,
		Status:                 MappingStatusPending,
		IsValidated:            utils.NewFalse(),
		ValidationNotes:        input.ValidationNotes,
		AIReasoning:            input.AIReasoning,
		AIModelVersion:         input.AIModelVersion,
		CreatedBy:              userId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := supersedeActiveMapping(tx, input.SourceColumnId); err != nil {
			return err
		}
		if err := tx.Create(&mapping).Error; err != nil {
			return err
		}
		if err := setColumnStatus(tx, input.SourceColumnId, ColumnStatusMapped); err != nil {
			return err
		}
		// any outstanding suggestions for this column are stale now
		return deleteSuggestionsForColumn(tx, input.SourceColumnId)
	})
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// supersedeActiveMapping applies the configured policy to the column's
// current active mapping, if any. The row is locked so two concurrent
// creates serialize.
func supersedeActiveMapping(tx *gorm.DB, sourceColumnId int) error {
	var existing FieldMapping
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("source_column_id = ? AND status IN ?", sourceColumnId,
			[]MappingStatus{MappingStatusPending, MappingStatusValidated}).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch SupersedePolicyFromEnv() {
	case SupersedeRejectNew:
		return utils.ConflictErrorf("source column %d already has an active mapping", sourceColumnId)
	case SupersedeArchive:
		return tx.Model(&existing).Update("status", MappingStatusArchived).Error
	default: // replace
		return tx.Delete(&existing).Error
	}
}

func GetFieldMapping(ctx context.Context, id int) (*FieldMapping, error) {
	db := config.GetDB()
	var mapping FieldMapping
	err := db.WithContext(ctx).
		Preload("SourceColumn").Preload("SourceColumn.Table").Preload("TargetField").
		First(&mapping, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("field mapping %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

type FieldMappingFilter struct {
	SourceColumnId int
	TableId        int
	MappingType    string
	Status         string
	IsValidated    *bool
	Search         string
	Page           int
	PageSize       int
}

func ListFieldMappings(ctx context.Context, filter *FieldMappingFilter) ([]FieldMapping, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&FieldMapping{}).
		Preload("SourceColumn").Preload("TargetField")

	if filter.SourceColumnId > 0 {
		dbCtx = dbCtx.Where("source_column_id = ?", filter.SourceColumnId)
	}
	if filter.TableId > 0 {
		dbCtx = dbCtx.Where("source_column_id IN (?)",
			db.Model(&SourceColumn{}).Select("id").Where("table_id = ?", filter.TableId))
	}
	if filter.MappingType != "" {
		if !MappingType(filter.MappingType).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown mapping type %q", filter.MappingType)
		}
		dbCtx = dbCtx.Where("mapping_type = ?", filter.MappingType)
	}
	if filter.Status != "" {
		if !MappingStatus(filter.Status).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown mapping status %q", filter.Status)
		}
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.IsValidated != nil {
		dbCtx = dbCtx.Where("is_validated = ?", *filter.IsValidated)
	}

	var mappings []FieldMapping
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(config.SearchLimit).Find(&mappings).Error; err != nil {
		return nil, 0, err
	}

	matched := utils.SearchFilter(mappings, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

// ValidateFieldMapping marks a mapping validated. Idempotent: validating an
// already-validated mapping returns it unchanged.
func ValidateFieldMapping(ctx context.Context, id int, notes string) (*FieldMapping, error) {
	mapping, err := GetFieldMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	if mapping.Status == MappingStatusValidated {
		return mapping, nil
	}
	if !mapping.Status.Active() {
		return nil, utils.ConflictErrorf("mapping %d is %s and cannot be validated", id, mapping.Status)
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()
	mapping.Status = MappingStatusValidated
	mapping.IsValidated = utils.NewTrue()
	mapping.ValidatedBy = userId
	mapping.ValidatedAt = &now
	if notes != "" {
		mapping.ValidationNotes = notes
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(mapping).Error; err != nil {
		return nil, err
	}
	return mapping, nil
}

// UnmapField deletes a mapping and returns the column to unmapped when no
// other active mapping remains for it.
func UnmapField(ctx context.Context, id int) error {
	mapping, err := GetFieldMapping(ctx, id)
	if err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&FieldMapping{}, mapping.ID).Error; err != nil {
			return err
		}
		var active int64
		if err := tx.Model(&FieldMapping{}).
			Where("source_column_id = ? AND status IN ?", mapping.SourceColumnId,
				[]MappingStatus{MappingStatusPending, MappingStatusValidated}).
			Count(&active).Error; err != nil {
			return err
		}
		if active == 0 {
			return setColumnStatus(tx, mapping.SourceColumnId, ColumnStatusUnmapped)
		}
		return nil
	})
}

type BulkMappingError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type BulkMappingResult struct {
	CreatedCount int                `json:"created_count"`
	ErrorCount   int                `json:"error_count"`
	Mappings     []FieldMapping     `json:"mappings"`
	Errors       []BulkMappingError `json:"errors"`
}

// BulkCreateMappings creates mappings item by item, collecting per-index
// errors rather than aborting the batch.
func BulkCreateMappings(ctx context.Context, inputs []NewFieldMapping, autoValidate bool) (*BulkMappingResult, error) {
	result := &BulkMappingResult{
		Mappings: []FieldMapping{},
		Errors:   []BulkMappingError{},
	}
	for i := range inputs {
		mapping, err := CreateFieldMapping(ctx, &inputs[i])
		if err != nil {
			result.Errors = append(result.Errors, BulkMappingError{Index: i, Error: err.Error()})
			continue
		}
		if autoValidate {
			if mapping, err = ValidateFieldMapping(ctx, mapping.ID, ""); err != nil {
				result.Errors = append(result.Errors, BulkMappingError{Index: i, Error: err.Error()})
				continue
			}
		}
		result.Mappings = append(result.Mappings, *mapping)
	}
	result.CreatedCount = len(result.Mappings)
	result.ErrorCount = len(result.Errors)
	return result, nil
}
