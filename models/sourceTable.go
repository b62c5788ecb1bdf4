package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
)

// SourceTable is a table discovered from the data platform.
type SourceTable struct {
	ID            int            `gorm:"primary_key" json:"id"`
	CatalogName   string         `gorm:"size:255;index:idx_catalog_schema;not null" json:"catalog_name" binding:"required"`
	SchemaName    string         `gorm:"size:255;index:idx_catalog_schema;not null" json:"schema_name" binding:"required"`
	TableName_    string         `gorm:"column:table_name;size:255;not null" json:"table_name" binding:"required"`
	FullTableName string         `gorm:"size:765;uniqueIndex;not null" json:"full_table_name"`
	TableType     TableType      `gorm:"type:enum('TABLE','VIEW','EXTERNAL','TEMPORARY');default:'TABLE'" json:"table_type"`
	TableFormat   string         `gorm:"size:50" json:"table_format"`
	Location      string         `gorm:"type:text" json:"location"`
	Owner         string         `gorm:"size:255" json:"owner"`
	SourceOwners  string         `gorm:"type:text" json:"source_owners"`
	RowCount      int64          `json:"row_count"`
	SizeBytes     int64          `json:"size_bytes"`
	DiscoveredBy  int            `gorm:"index" json:"discovered_by"`
	LastAnalyzed  *time.Time     `json:"last_analyzed"`
	IsActive      *bool          `gorm:"not null;default:true" json:"is_active"`
	AnalysisStatus AnalysisStatus `gorm:"type:enum('pending','analyzing','completed','failed');default:'pending'" json:"analysis_status"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"discovered_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"last_updated"`

	Columns []SourceColumn `gorm:"foreignKey:TableId" json:"columns,omitempty"`
}

func (SourceTable) TableName() string { return "mapping_source_tables" }

func (t SourceTable) SearchText() []string {
	return []string{t.TableName_, t.FullTableName, t.Owner}
}

type NewSourceTable struct {
	CatalogName  string    `json:"catalog_name" binding:"required"`
	SchemaName   string    `json:"schema_name" binding:"required"`
	TableName    string    `json:"table_name" binding:"required"`
	TableType    TableType `json:"table_type"`
	TableFormat  string    `json:"table_format"`
	Location     string    `json:"location"`
	Owner        string    `json:"owner"`
	SourceOwners string    `json:"source_owners"`
	RowCount     int64     `json:"row_count"`
	SizeBytes    int64     `json:"size_bytes"`
}

func (input *NewSourceTable) validate() error {
	if input.TableType == "" {
		input.TableType = TableTypeTable
	}
	if !input.TableType.Valid() {
		return utils.ValidationErrorf("unknown table type %q", input.TableType)
	}
	return nil
}

func (input *NewSourceTable) fullName() string {
	return fmt.Sprintf("%s.%s.%s", input.CatalogName, input.SchemaName, input.TableName)
}

func CreateSourceTable(ctx context.Context, input *NewSourceTable) (*SourceTable, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[SourceTable](ctx, "full_table_name", input.fullName(), 0); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	table := SourceTable{
		CatalogName:    input.CatalogName,
		SchemaName:     input.SchemaName,
		TableName_:     input.TableName,
		FullTableName:  input.fullName(),
		TableType:      input.TableType,
		TableFormat:    input.TableFormat,
		Location:       input.Location,
		Owner:          input.Owner,
		SourceOwners:   input.SourceOwners,
		RowCount:       input.RowCount,
		SizeBytes:      input.SizeBytes,
		DiscoveredBy:   userId,
		IsActive:       utils.NewTrue(),
		AnalysisStatus: AnalysisStatusPending,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&table).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ValidationErrorf("table %s already exists", table.FullTableName)
		}
		return nil, err
	}
	return &table, nil
}

func GetSourceTable(ctx context.Context, id int) (*SourceTable, error) {
	db := config.GetDB()
	var table SourceTable
	err := db.WithContext(ctx).Preload("Columns", func(db *gorm.DB) *gorm.DB {
		return db.Order("column_position")
	}).First(&table, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("source table %d", id)
	}
	if err != nil {
		return nil, err
	}
	if err := checkTableVisibility(ctx, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// Non-admins only see tables whose source_owners list is empty or contains
// their email.
func checkTableVisibility(ctx context.Context, table *SourceTable) error {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		return nil
	}
	if table.SourceOwners == "" {
		return nil
	}
	email, _ := utils.GetUserEmailFromContext(ctx)
	if utils.CommaSeparatedContains(table.SourceOwners, email) {
		return nil
	}
	return utils.NotFoundErrorf("source table %d", table.ID)
}

type SourceTableFilter struct {
	CatalogName    string
	SchemaName     string
	TableType      string
	AnalysisStatus string
	Search         string
	Page           int
	PageSize       int
}

// ListSourceTables applies exact filters in SQL, then the case-insensitive
// substring search and pagination in memory. Returns the page and the total
// match count.
func ListSourceTables(ctx context.Context, filter *SourceTableFilter) ([]SourceTable, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&SourceTable{}).Where("is_active = ?", true)

	if filter.CatalogName != "" {
		dbCtx = dbCtx.Where("catalog_name = ?", filter.CatalogName)
	}
	if filter.SchemaName != "" {
		dbCtx = dbCtx.Where("schema_name = ?", filter.SchemaName)
	}
	if filter.TableType != "" {
		if !TableType(filter.TableType).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown table type %q", filter.TableType)
		}
		dbCtx = dbCtx.Where("table_type = ?", filter.TableType)
	}
	if filter.AnalysisStatus != "" {
		if !AnalysisStatus(filter.AnalysisStatus).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown analysis status %q", filter.AnalysisStatus)
		}
		dbCtx = dbCtx.Where("analysis_status = ?", filter.AnalysisStatus)
	}

	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
		email, _ := utils.GetUserEmailFromContext(ctx)
		dbCtx = dbCtx.Where("source_owners = '' OR source_owners IS NULL OR source_owners LIKE ?", "%"+email+"%")
	}

	var tables []SourceTable
	if err := dbCtx.Order("catalog_name, schema_name, table_name").Limit(config.SearchLimit).Find(&tables).Error; err != nil {
		return nil, 0, err
	}

	matched := utils.SearchFilter(tables, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func UpdateSourceTable(ctx context.Context, id int, input *NewSourceTable) (*SourceTable, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	table, err := GetSourceTable(ctx, id)
	if err != nil {
		return nil, err
	}

	table.TableType = input.TableType
	table.TableFormat = input.TableFormat
	table.Location = input.Location
	table.Owner = input.Owner
	table.SourceOwners = input.SourceOwners
	table.RowCount = input.RowCount
	table.SizeBytes = input.SizeBytes

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

// DeleteSourceTable deactivates a table; absent id is a no-op at the store
// level, callers that need a 404 check existence first.
func DeleteSourceTable(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&SourceTable{}).Where("id = ?", id).
		Update("is_active", false).Error
}

func SetTableAnalysisStatus(ctx context.Context, id int, status AnalysisStatus) error {
	if !status.Valid() {
		return utils.ValidationErrorf("unknown analysis status %q", status)
	}
	db := config.GetDB()
	updates := map[string]any{"analysis_status": status}
	if status == AnalysisStatusAnalyzing || status == AnalysisStatusCompleted {
		updates["last_analyzed"] = time.Now()
	}
	return db.WithContext(ctx).Model(&SourceTable{}).Where("id = ?", id).Updates(updates).Error
}

// MappingProgress is the mapped share of the table's columns, percent with
// one decimal.
func (t *SourceTable) MappingProgress(ctx context.Context) (float64, error) {
	total, err := utils.ResourceCountWhere[SourceColumn](ctx, "table_id = ?", t.ID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	mapped, err := utils.ResourceCountWhere[SourceColumn](ctx, "table_id = ? AND status = ?", t.ID, ColumnStatusMapped)
	if err != nil {
		return 0, err
	}
	progress := float64(mapped) / float64(total) * 100
	rounded, _ := strconv.ParseFloat(fmt.Sprintf("%.1f", progress), 64)
	return rounded, nil
}
