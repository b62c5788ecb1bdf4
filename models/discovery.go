package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/databricks"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
)

const discoveryLockKey = "discovery:lock"

// DiscoveryStats summarizes one discovery sweep.
type DiscoveryStats struct {
	TablesDiscovered int      `json:"tables_discovered"`
	TablesCreated    int      `json:"tables_created"`
	TablesUpdated    int      `json:"tables_updated"`
	ColumnsCreated   int      `json:"columns_created"`
	ColumnsUpdated   int      `json:"columns_updated"`
	Errors           []string `json:"errors"`
}

// DiscoverSourceTables sweeps the platform catalog and upserts every table
// it reports. One sweep runs at a time; a second caller gets ErrConflict
// while the lock is held. Mapping state of existing columns is preserved
// across re-discovery.
func DiscoverSourceTables(ctx context.Context, gw databricks.Gateway, catalogs []string, search string) (*DiscoveryStats, error) {
	lock, err := config.ObtainLock(discoveryLockKey, 5*time.Minute)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, utils.ConflictErrorf("a discovery run is already in progress")
	}
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	result, err := gw.DiscoverTables(ctx, catalogs, search)
	if err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	stats := &DiscoveryStats{
		TablesDiscovered: len(result.Tables),
		Errors:           append([]string{}, result.Errors...),
	}

	db := config.GetDB()
	for i := range result.Tables {
		discovered := &result.Tables[i]
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return syncDiscoveredTable(tx, userId, discovered, stats)
		})
		if err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("%s: %v", discovered.FullName, err))
		}
	}
	return stats, nil
}

func syncDiscoveredTable(tx *gorm.DB, userId int, discovered *databricks.DiscoveredTable, stats *DiscoveryStats) error {
	tableType := TableType(discovered.TableType)
	if !tableType.Valid() {
		tableType = TableTypeTable
	}

	var table SourceTable
	err := tx.Where("full_table_name = ?", discovered.FullName).First(&table).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		table = SourceTable{
			CatalogName:    discovered.Catalog,
			SchemaName:     discovered.Schema,
			TableName_:     discovered.TableName,
			FullTableName:  discovered.FullName,
			TableType:      tableType,
			Owner:          discovered.Owner,
			RowCount:       discovered.RowCount,
			SizeBytes:      discovered.SizeBytes,
			DiscoveredBy:   userId,
			IsActive:       utils.NewTrue(),
			AnalysisStatus: AnalysisStatusPending,
		}
		if err := tx.Create(&table).Error; err != nil {
			return err
		}
		stats.TablesCreated++
	case err != nil:
		return err
	default:
		updates := map[string]any{
			"table_type": tableType,
			"owner":      discovered.Owner,
			"row_count":  discovered.RowCount,
			"size_bytes": discovered.SizeBytes,
			"is_active":  true,
		}
		if err := tx.Model(&table).Updates(updates).Error; err != nil {
			return err
		}
		stats.TablesUpdated++
	}

	for _, column := range discovered.Columns {
		created, err := syncDiscoveredColumn(tx, table.ID, column)
		if err != nil {
			return err
		}
		if created {
			stats.ColumnsCreated++
		} else {
			stats.ColumnsUpdated++
		}
	}
	return nil
}

func syncDiscoveredColumn(tx *gorm.DB, tableId int, discovered databricks.DiscoveredColumn) (bool, error) {
	nullable := discovered.Nullable

	var column SourceColumn
	err := tx.Where("table_id = ? AND column_name = ?", tableId, discovered.ColumnName).
		First(&column).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		column = SourceColumn{
			TableId:          tableId,
			ColumnName:       discovered.ColumnName,
			PhysicalName:     discovered.PhysicalName,
			ColumnPosition:   discovered.Position,
			DataType:         discovered.DataType,
			PhysicalDataType: discovered.PhysicalType,
			IsNullable:       &nullable,
			IsPrimaryKey:     utils.NewFalse(),
			IsForeignKey:     utils.NewFalse(),
			ColumnComment:    discovered.Comment,
			Status:           ColumnStatusUnmapped,
		}
		return true, tx.Create(&column).Error
	}
	if err != nil {
		return false, err
	}

	// status is owned by the mapping transitions and never touched here
	updates := map[string]any{
		"physical_name":      discovered.PhysicalName,
		"column_position":    discovered.Position,
		"data_type":          discovered.DataType,
		"physical_data_type": discovered.PhysicalType,
		"is_nullable":        nullable,
		"column_comment":     discovered.Comment,
	}
	return false, tx.Model(&column).Updates(updates).Error
}

// AnalyzeSourceTable refreshes one table's column statistics from the
// warehouse. The analysis status records progress and failure.
func AnalyzeSourceTable(ctx context.Context, gw databricks.Gateway, tableId int) (*SourceTable, error) {
	table, err := GetSourceTable(ctx, tableId)
	if err != nil {
		return nil, err
	}
	if err := SetTableAnalysisStatus(ctx, tableId, AnalysisStatusAnalyzing); err != nil {
		return nil, err
	}

	result, err := gw.DiscoverTables(ctx, []string{table.CatalogName}, table.TableName_)
	if err != nil {
		_ = SetTableAnalysisStatus(ctx, tableId, AnalysisStatusFailed)
		return nil, err
	}

	db := config.GetDB()
	found := false
	for i := range result.Tables {
		if result.Tables[i].FullName != table.FullTableName {
			continue
		}
		found = true
		userId, _ := utils.GetUserIdFromContext(ctx)
		stats := &DiscoveryStats{}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return syncDiscoveredTable(tx, userId, &result.Tables[i], stats)
		})
		if err != nil {
			_ = SetTableAnalysisStatus(ctx, tableId, AnalysisStatusFailed)
			return nil, err
		}
		break
	}
	if !found {
		_ = SetTableAnalysisStatus(ctx, tableId, AnalysisStatusFailed)
		return nil, utils.GatewayError(fmt.Errorf("table %s not found in catalog", table.FullTableName))
	}

	now := time.Now()
	err = db.WithContext(ctx).Model(&SourceTable{}).Where("id = ?", tableId).
		Updates(map[string]any{
			"analysis_status": AnalysisStatusCompleted,
			"last_analyzed":   now,
		}).Error
	if err != nil {
		return nil, err
	}
	return GetSourceTable(ctx, tableId)
}
