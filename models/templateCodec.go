package models

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var csvTemplateHeader = []string{
	"src_table_name",
	"src_column_name",
	"src_column_physical_name",
	"src_nullable",
	"src_physical_datatype",
	"src_comments",
}

// csvTemplateRow is one validated row of a column template file.
type csvTemplateRow struct {
	TableName    string
	ColumnName   string
	PhysicalName string
	Nullable     bool
	DataType     string
	Comments     string
}

// ImportResult reports what a template import changed.
type ImportResult struct {
	TablesCreated  int `json:"tables_created"`
	ColumnsCreated int `json:"columns_created"`
	ColumnsUpdated int `json:"columns_updated"`
	ColumnsRemoved int `json:"columns_removed"`
	RowCount       int `json:"row_count"`
}

// ParseColumnTemplateCSV reads and validates a column template file. Every
// row is checked before any is returned; the first bad row fails the whole
// file with its 1-based line number.
func ParseColumnTemplateCSV(r io.Reader) ([]csvTemplateRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, utils.ValidationErrorf("empty file")
	}
	if err != nil {
		return nil, utils.ValidationErrorf("bad csv: %v", err)
	}
	if len(header) != len(csvTemplateHeader) {
		return nil, utils.ValidationErrorf("expected %d header fields, got %d", len(csvTemplateHeader), len(header))
	}
	for i, want := range csvTemplateHeader {
		if strings.TrimSpace(header[i]) != want {
			return nil, utils.ValidationErrorf("header field %d must be %q, got %q", i+1, want, header[i])
		}
	}

	var rows []csvTemplateRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, utils.ValidationErrorf("line %d: %v", line, err)
		}
		row, err := parseTemplateRecord(record)
		if err != nil {
			return nil, utils.ValidationErrorf("line %d: %v", line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, utils.ValidationErrorf("no data rows")
	}
	return rows, nil
}

func parseTemplateRecord(record []string) (csvTemplateRow, error) {
	row := csvTemplateRow{
		TableName:    strings.TrimSpace(record[0]),
		ColumnName:   strings.TrimSpace(record[1]),
		PhysicalName: strings.TrimSpace(record[2]),
		DataType:     strings.TrimSpace(record[4]),
		Comments:     strings.TrimSpace(record[5]),
	}
	if row.TableName == "" {
		return row, fmt.Errorf("src_table_name is required")
	}
	if row.ColumnName == "" {
		return row, fmt.Errorf("src_column_name is required")
	}
	switch strings.TrimSpace(record[3]) {
	case "YES":
		row.Nullable = true
	case "NO":
		row.Nullable = false
	default:
		return row, fmt.Errorf("src_nullable must be YES or NO, got %q", record[3])
	}
	return row, nil
}

// ImportColumnTemplate loads a template file into the store. The whole file
// is validated first; nothing is written if any row is bad. Tables named in
// the file that do not exist yet are created under the configured default
// catalog and schema. With MergeStrategyReplace, existing columns of every table the
// file touches are dropped and replaced by the file's rows; with MergeStrategyMerge
// file rows upsert by (table, column name) and other columns are kept.
func ImportColumnTemplate(ctx context.Context, r io.Reader, strategy MergeStrategy) (*ImportResult, error) {
	if strategy == "" {
		strategy = MergeStrategyMerge
	}
	if !strategy.Valid() {
		return nil, utils.ValidationErrorf("unknown merge strategy %q", strategy)
	}
	rows, err := ParseColumnTemplateCSV(r)
	if err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	catalog := os.Getenv("IMPORT_DEFAULT_CATALOG")
	if catalog == "" {
		catalog = "imported"
	}
	schema := os.Getenv("IMPORT_DEFAULT_SCHEMA")
	if schema == "" {
		schema = "default"
	}

	byTable := map[string][]csvTemplateRow{}
	tableOrder := []string{}
	for _, row := range rows {
		if _, seen := byTable[row.TableName]; !seen {
			tableOrder = append(tableOrder, row.TableName)
		}
		byTable[row.TableName] = append(byTable[row.TableName], row)
	}

	result := &ImportResult{RowCount: len(rows)}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tableName := range tableOrder {
			table, created, err := findOrCreateImportTable(tx, catalog, schema, tableName, userId)
			if err != nil {
				return err
			}
			if created {
				result.TablesCreated++
			}

			if strategy == MergeStrategyReplace {
				removed := tx.Where("table_id = ?", table.ID).Delete(&SourceColumn{})
				if removed.Error != nil {
					return removed.Error
				}
				result.ColumnsRemoved += int(removed.RowsAffected)
			}

			for position, row := range byTable[tableName] {
				created, err := upsertImportColumn(tx, table.ID, position+1, row)
				if err != nil {
					return err
				}
				if created {
					result.ColumnsCreated++
				} else {
					result.ColumnsUpdated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func findOrCreateImportTable(tx *gorm.DB, catalog, schema, tableName string, userId int) (*SourceTable, bool, error) {
	var table SourceTable
	err := tx.Where("table_name = ? AND is_active = ?", tableName, true).
		Order("id ASC").First(&table).Error
	if err == nil {
		return &table, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	table = SourceTable{
		CatalogName:    catalog,
		SchemaName:     schema,
		TableName_:     tableName,
		FullTableName:  fmt.Sprintf("%s.%s.%s", catalog, schema, tableName),
		TableType:      TableTypeTable,
		DiscoveredBy:   userId,
		IsActive:       utils.NewTrue(),
		AnalysisStatus: AnalysisStatusPending,
	}
	if err := tx.Create(&table).Error; err != nil {
		return nil, false, err
	}
	return &table, true, nil
}

func upsertImportColumn(tx *gorm.DB, tableId, position int, row csvTemplateRow) (bool, error) {
	nullable := row.Nullable
	dataType := row.DataType
	if dataType == "" {
		dataType = "string"
	}

	var existing SourceColumn
	err := tx.Where("table_id = ? AND column_name = ?", tableId, row.ColumnName).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		column := SourceColumn{
			TableId:          tableId,
			ColumnName:       row.ColumnName,
			PhysicalName:     row.PhysicalName,
			ColumnPosition:   position,
			DataType:         dataType,
			PhysicalDataType: row.DataType,
			IsNullable:       &nullable,
			IsPrimaryKey:     utils.NewFalse(),
			IsForeignKey:     utils.NewFalse(),
			ColumnComment:    row.Comments,
			Status:           ColumnStatusUnmapped,
		}
		return true, tx.Create(&column).Error
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"physical_name":      row.PhysicalName,
		"column_position":    position,
		"data_type":          dataType,
		"physical_data_type": row.DataType,
		"is_nullable":        nullable,
		"column_comment":     row.Comments,
	}
	return false, tx.Model(&existing).Updates(updates).Error
}

func columnTemplateRows(ctx context.Context, tableId int) ([][]string, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&SourceColumn{}).Preload("Table")
	if tableId > 0 {
		dbCtx = dbCtx.Where("table_id = ?", tableId)
	}
	var columns []SourceColumn
	if err := dbCtx.Order("table_id, column_position").Find(&columns).Error; err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(columns))
	for _, column := range columns {
		nullable := "NO"
		if column.IsNullable != nil && *column.IsNullable {
			nullable = "YES"
		}
		tableName := ""
		if column.Table != nil {
			tableName = column.Table.TableName_
		}
		rows = append(rows, []string{
			tableName,
			column.ColumnName,
			column.PhysicalName,
			nullable,
			column.PhysicalDataType,
			column.ColumnComment,
		})
	}
	return rows, nil
}

// ExportColumnTemplateCSV writes the column template for one table, or for
// every table when tableId is zero.
func ExportColumnTemplateCSV(ctx context.Context, w io.Writer, tableId int) error {
	rows, err := columnTemplateRows(ctx, tableId)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(csvTemplateHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportColumnTemplateXLSX writes the same template as a spreadsheet.
func ExportColumnTemplateXLSX(ctx context.Context, w io.Writer, tableId int) error {
	rows, err := columnTemplateRows(ctx, tableId)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()
	sheet := "Columns"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]any, len(csvTemplateHeader))
	for i, name := range csvTemplateHeader {
		header[i] = name
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, value := range row {
			cells[j] = value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return file.Write(w)
}
