package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
)

// SourceColumn is a column in a discovered source table. Its status field is
// owned by the mapping transition functions in fieldMapping.go and
// aiSuggestion.go; nothing else writes it.
type SourceColumn struct {
	ID                  int          `gorm:"primary_key" json:"id"`
	TableId             int          `gorm:"uniqueIndex:idx_table_column;index;not null" json:"table_id" binding:"required"`
	ColumnName          string       `gorm:"size:255;uniqueIndex:idx_table_column;not null" json:"column_name" binding:"required"`
	PhysicalName        string       `gorm:"size:255" json:"physical_name"`
	ColumnPosition      int          `json:"column_position"`
	DataType            string       `gorm:"size:100;index;not null" json:"data_type" binding:"required"`
	PhysicalDataType    string       `gorm:"size:100" json:"physical_data_type"`
	IsNullable          *bool        `gorm:"not null;default:true" json:"is_nullable"`
	IsPrimaryKey        *bool        `gorm:"not null;default:false" json:"is_primary_key"`
	IsForeignKey        *bool        `gorm:"not null;default:false" json:"is_foreign_key"`
	NullCount           int64        `json:"null_count"`
	DistinctCount       int64        `json:"distinct_count"`
	MinValue            string       `gorm:"type:text" json:"min_value"`
	MaxValue            string       `gorm:"type:text" json:"max_value"`
	AvgLength           float64      `json:"avg_length"`
	ColumnComment       string       `gorm:"type:text" json:"column_comment"`
	BusinessDescription string       `gorm:"type:text" json:"business_description"`
	SampleValues        JSONList     `gorm:"type:json" json:"sample_values"`
	Status              ColumnStatus `gorm:"type:enum('unmapped','suggested','mapped');default:'unmapped';index" json:"status"`
	CreatedAt           time.Time    `gorm:"autoCreateTime" json:"discovered_at"`
	UpdatedAt           time.Time    `gorm:"autoUpdateTime" json:"last_updated"`

	Table *SourceTable `gorm:"foreignKey:TableId" json:"table,omitempty"`
}

func (SourceColumn) TableName() string { return "mapping_source_columns" }

func (c SourceColumn) SearchText() []string {
	nullable := "NO"
	if c.IsNullable != nil && *c.IsNullable {
		nullable = "YES"
	}
	tableName := ""
	if c.Table != nil {
		tableName = c.Table.TableName_
	}
	return []string{
		tableName,
		c.ColumnName,
		c.PhysicalName,
		c.PhysicalDataType,
		c.DataType,
		nullable,
		c.ColumnComment,
		c.BusinessDescription,
	}
}

func (c SourceColumn) FullColumnName() string {
	if c.Table != nil {
		return fmt.Sprintf("%s.%s", c.Table.FullTableName, c.ColumnName)
	}
	return c.ColumnName
}

type NewSourceColumn struct {
	TableId             int      `json:"table_id" binding:"required"`
	ColumnName          string   `json:"column_name" binding:"required"`
	PhysicalName        string   `json:"physical_name"`
	ColumnPosition      int      `json:"column_position"`
	DataType            string   `json:"data_type" binding:"required"`
	PhysicalDataType    string   `json:"physical_data_type"`
	IsNullable          *bool    `json:"is_nullable"`
	IsPrimaryKey        *bool    `json:"is_primary_key"`
	IsForeignKey        *bool    `json:"is_foreign_key"`
	ColumnComment       string   `json:"column_comment"`
	BusinessDescription string   `json:"business_description"`
	SampleValues        JSONList `json:"sample_values"`
}

func (input *NewSourceColumn) validate(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[SourceTable](ctx, input.TableId); err != nil {
		return err
	}
	// column names repeat across tables; only reject duplicates in the same table
	count, err := utils.ResourceCountWhere[SourceColumn](ctx,
		"table_id = ? AND column_name = ? AND NOT id = ?", input.TableId, input.ColumnName, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.ValidationErrorf("duplicate column_name")
	}
	return nil
}

func CreateSourceColumn(ctx context.Context, input *NewSourceColumn) (*SourceColumn, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	if input.IsNullable == nil {
		input.IsNullable = utils.NewTrue()
	}
	if input.IsPrimaryKey == nil {
		input.IsPrimaryKey = utils.NewFalse()
	}
	if input.IsForeignKey == nil {
		input.IsForeignKey = utils.NewFalse()
	}
	column := SourceColumn{
		TableId:             input.TableId,
		ColumnName:          input.ColumnName,
		PhysicalName:        input.PhysicalName,
		ColumnPosition:      input.ColumnPosition,
		DataType:            input.DataType,
		PhysicalDataType:    input.PhysicalDataType,
		IsNullable:          input.IsNullable,
		IsPrimaryKey:        input.IsPrimaryKey,
		IsForeignKey:        input.IsForeignKey,
		ColumnComment:       input.ColumnComment,
		BusinessDescription: input.BusinessDescription,
		SampleValues:        input.SampleValues,
		Status:              ColumnStatusUnmapped,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&column).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ValidationErrorf("column %s already exists in table %d", input.ColumnName, input.TableId)
		}
		return nil, err
	}
	return &column, nil
}

func GetSourceColumn(ctx context.Context, id int) (*SourceColumn, error) {
	db := config.GetDB()
	var column SourceColumn
	err := db.WithContext(ctx).Preload("Table").First(&column, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("source column %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &column, nil
}

type SourceColumnFilter struct {
	TableId  int
	Status   string
	DataType string
	Search   string
	Page     int
	PageSize int
}

func ListSourceColumns(ctx context.Context, filter *SourceColumnFilter) ([]SourceColumn, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&SourceColumn{}).Preload("Table")

	if filter.TableId > 0 {
		dbCtx = dbCtx.Where("table_id = ?", filter.TableId)
	}
	if filter.Status != "" {
		if !ColumnStatus(filter.Status).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown column status %q", filter.Status)
		}
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.DataType != "" {
		dbCtx = dbCtx.Where("data_type = ?", filter.DataType)
	}

	var columns []SourceColumn
	if err := dbCtx.Order("table_id, column_position").Limit(config.SearchLimit).Find(&columns).Error; err != nil {
		return nil, 0, err
	}

	matched := utils.SearchFilter(columns, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func UpdateSourceColumn(ctx context.Context, id int, input *NewSourceColumn) (*SourceColumn, error) {
	column, err := GetSourceColumn(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	column.PhysicalName = input.PhysicalName
	column.ColumnPosition = input.ColumnPosition
	column.DataType = input.DataType
	column.PhysicalDataType = input.PhysicalDataType
	if input.IsNullable != nil {
		column.IsNullable = input.IsNullable
	}
	column.ColumnComment = input.ColumnComment
	column.BusinessDescription = input.BusinessDescription
	if input.SampleValues != nil {
		column.SampleValues = input.SampleValues
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(column).Error; err != nil {
		return nil, err
	}
	return column, nil
}

// setColumnStatus is used by mapping transitions; tx may be a transaction.
func setColumnStatus(tx *gorm.DB, columnId int, status ColumnStatus) error {
	return tx.Model(&SourceColumn{}).Where("id = ?", columnId).
		Update("status", status).Error
}
