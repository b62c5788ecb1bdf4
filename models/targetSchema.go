package models

import (
	"context"
	"errors"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
)

// TargetSchema groups target fields; the default one is the semantic layer.
type TargetSchema struct {
	ID          int        `gorm:"primary_key" json:"id"`
	SchemaName  string     `gorm:"size:255;uniqueIndex;not null" json:"schema_name" binding:"required"`
	DisplayName string     `gorm:"size:255;not null" json:"display_name" binding:"required"`
	Description string     `gorm:"type:text" json:"description"`
	Version     string     `gorm:"size:50;default:'1.0'" json:"version"`
	SchemaType  SchemaType `gorm:"type:enum('semantic','dimensional','normalized','custom');default:'semantic'" json:"schema_type"`
	CreatedBy   int        `json:"created_by"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Fields []TargetField `gorm:"foreignKey:SchemaId" json:"fields,omitempty"`
}

func (TargetSchema) TableName() string { return "mapping_target_schemas" }

func (s TargetSchema) SearchText() []string {
	return []string{s.SchemaName, s.DisplayName, s.Description}
}

type NewTargetSchema struct {
	SchemaName  string     `json:"schema_name" binding:"required"`
	DisplayName string     `json:"display_name" binding:"required"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	SchemaType  SchemaType `json:"schema_type"`
}

func (input *NewTargetSchema) validate(ctx context.Context, id int) error {
	if input.SchemaType == "" {
		input.SchemaType = SchemaTypeSemantic
	}
	if !input.SchemaType.Valid() {
		return utils.ValidationErrorf("unknown schema type %q", input.SchemaType)
	}
	if input.Version == "" {
		input.Version = "1.0"
	}
	if err := utils.ValidateUnique[TargetSchema](ctx, "schema_name", input.SchemaName, id); err != nil {
		return err
	}
	return nil
}

func CreateTargetSchema(ctx context.Context, input *NewTargetSchema) (*TargetSchema, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	schema := TargetSchema{
		SchemaName:  input.SchemaName,
		DisplayName: input.DisplayName,
		Description: input.Description,
		Version:     input.Version,
		SchemaType:  input.SchemaType,
		CreatedBy:   userId,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&schema).Error; err != nil {
		return nil, err
	}
	return &schema, nil
}

func GetTargetSchema(ctx context.Context, id int) (*TargetSchema, error) {
	db := config.GetDB()
	var schema TargetSchema
	err := db.WithContext(ctx).Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ?", true).Order("field_name")
	}).First(&schema, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("target schema %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

type TargetSchemaFilter struct {
	SchemaType string
	Search     string
	Page       int
	PageSize   int
}

func ListTargetSchemas(ctx context.Context, filter *TargetSchemaFilter) ([]TargetSchema, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&TargetSchema{}).Where("is_active = ?", true)

	if filter.SchemaType != "" {
		if !SchemaType(filter.SchemaType).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown schema type %q", filter.SchemaType)
		}
		dbCtx = dbCtx.Where("schema_type = ?", filter.SchemaType)
	}

	var schemas []TargetSchema
	if err := dbCtx.Order("schema_name").Limit(config.SearchLimit).Find(&schemas).Error; err != nil {
		return nil, 0, err
	}

	matched := utils.SearchFilter(schemas, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func UpdateTargetSchema(ctx context.Context, id int, input *NewTargetSchema) (*TargetSchema, error) {
	schema, err := GetTargetSchema(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	schema.SchemaName = input.SchemaName
	schema.DisplayName = input.DisplayName
	schema.Description = input.Description
	schema.Version = input.Version
	schema.SchemaType = input.SchemaType

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(schema).Error; err != nil {
		return nil, err
	}
	return schema, nil
}

func DeleteTargetSchema(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&TargetSchema{}).Where("id = ?", id).
		Update("is_active", false).Error
}
