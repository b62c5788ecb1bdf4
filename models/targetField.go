package models

import (
	"context"
	"errors"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
)

// TargetField is a field in the target (semantic) schema. SemanticText is the
// free-form description the vector index is built over.
type TargetField struct {
	ID               int       `gorm:"primary_key" json:"id"`
	SchemaId         int       `gorm:"uniqueIndex:idx_schema_field;index;not null" json:"schema_id" binding:"required"`
	FieldName        string    `gorm:"size:255;uniqueIndex:idx_schema_field;not null" json:"field_name" binding:"required"`
	FieldPath        string    `gorm:"size:500" json:"field_path"`
	DataType         string    `gorm:"size:100;not null" json:"data_type" binding:"required"`
	IsRequired       *bool     `gorm:"not null;default:false" json:"is_required"`
	IsPrimaryKey     *bool     `gorm:"not null;default:false" json:"is_primary_key"`
	FieldDescription string    `gorm:"type:text" json:"field_description"`
	BusinessRules    string    `gorm:"type:text" json:"business_rules"`
	SemanticText     string    `gorm:"type:text" json:"semantic_text"`
	ExampleValues    JSONList  `gorm:"type:json" json:"example_values"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Schema *TargetSchema `gorm:"foreignKey:SchemaId" json:"schema,omitempty"`
}

func (TargetField) TableName() string { return "mapping_target_fields" }

func (f TargetField) SearchText() []string {
	return []string{f.FieldName, f.FieldPath, f.DataType, f.FieldDescription, f.SemanticText}
}

type NewTargetField struct {
	SchemaId         int      `json:"schema_id" binding:"required"`
	FieldName        string   `json:"field_name" binding:"required"`
	FieldPath        string   `json:"field_path"`
	DataType         string   `json:"data_type" binding:"required"`
	IsRequired       *bool    `json:"is_required"`
	IsPrimaryKey     *bool    `json:"is_primary_key"`
	FieldDescription string   `json:"field_description"`
	BusinessRules    string   `json:"business_rules"`
	SemanticText     string   `json:"semantic_text"`
	ExampleValues    JSONList `json:"example_values"`
}

func (input *NewTargetField) validate(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[TargetSchema](ctx, input.SchemaId); err != nil {
		return err
	}
	count, err := utils.ResourceCountWhere[TargetField](ctx,
		"schema_id = ? AND field_name = ? AND NOT id = ?", input.SchemaId, input.FieldName, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.ValidationErrorf("duplicate field_name")
	}
	return nil
}

func CreateTargetField(ctx context.Context, input *NewTargetField) (*TargetField, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	if input.IsRequired == nil {
		input.IsRequired = utils.NewFalse()
	}
	if input.IsPrimaryKey == nil {
		input.IsPrimaryKey = utils.NewFalse()
	}
	field := TargetField{
		SchemaId:         input.SchemaId,
		FieldName:        input.FieldName,
		FieldPath:        input.FieldPath,
		DataType:         input.DataType,
		IsRequired:       input.IsRequired,
		IsPrimaryKey:     input.IsPrimaryKey,
		FieldDescription: input.FieldDescription,
		BusinessRules:    input.BusinessRules,
		SemanticText:     input.SemanticText,
		ExampleValues:    input.ExampleValues,
		IsActive:         utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&field).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ValidationErrorf("field %s already exists in schema %d", input.FieldName, input.SchemaId)
		}
		return nil, err
	}
	return &field, nil
}

func GetTargetField(ctx context.Context, id int) (*TargetField, error) {
	db := config.GetDB()
	var field TargetField
	err := db.WithContext(ctx).Preload("Schema").First(&field, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("target field %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

type TargetFieldFilter struct {
	SchemaId int
	DataType string
	Search   string
	Page     int
	PageSize int
}

func ListTargetFields(ctx context.Context, filter *TargetFieldFilter) ([]TargetField, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&TargetField{}).Where("is_active = ?", true)

	if filter.SchemaId > 0 {
		dbCtx = dbCtx.Where("schema_id = ?", filter.SchemaId)
	}
	if filter.DataType != "" {
		dbCtx = dbCtx.Where("data_type = ?", filter.DataType)
	}

	var fields []TargetField
	if err := dbCtx.Order("schema_id, field_name").Limit(config.SearchLimit).Find(&fields).Error; err != nil {
		return nil, 0, err
	}

	matched := utils.SearchFilter(fields, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func UpdateTargetField(ctx context.Context, id int, input *NewTargetField) (*TargetField, error) {
	field, err := GetTargetField(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	field.FieldName = input.FieldName
	field.FieldPath = input.FieldPath
	field.DataType = input.DataType
	if input.IsRequired != nil {
		field.IsRequired = input.IsRequired
	}
	if input.IsPrimaryKey != nil {
		field.IsPrimaryKey = input.IsPrimaryKey
	}
	field.FieldDescription = input.FieldDescription
	field.BusinessRules = input.BusinessRules
	field.SemanticText = input.SemanticText
	if input.ExampleValues != nil {
		field.ExampleValues = input.ExampleValues
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(field).Error; err != nil {
		return nil, err
	}
	return field, nil
}

func DeleteTargetField(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Where("id = ?", id).Delete(&TargetField{}).Error
}
