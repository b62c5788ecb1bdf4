package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/databricks"
	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AISuggestion is one ranked model candidate for a source column. Rank 1 is
// the model's best answer. Suggestions are transient: accepting or mapping
// the column removes every outstanding suggestion for it.
type AISuggestion struct {
	ID              int              `gorm:"primary_key" json:"id"`
	SourceColumnId  int              `gorm:"index;not null" json:"source_column_id"`
	SuggestedTarget string           `gorm:"size:255;not null" json:"suggested_target"`
	TargetFieldId   *int             `gorm:"index" json:"target_field_id"`
	Rank            int              `gorm:"not null;default:1" json:"rank"`
	ConfidenceScore *decimal.Decimal `gorm:"type:decimal(5,4)" json:"confidence_score"`
	Reasoning       string           `gorm:"type:text" json:"reasoning"`
	ModelName       string           `gorm:"size:100;index" json:"model_name"`
	ModelVersion    string           `gorm:"size:100" json:"model_version"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`

	SourceColumn *SourceColumn `gorm:"foreignKey:SourceColumnId" json:"source_column,omitempty"`
	TargetField  *TargetField  `gorm:"foreignKey:TargetFieldId" json:"target_field,omitempty"`
}

func (AISuggestion) TableName() string { return "mapping_ai_suggestions" }

func deleteSuggestionsForColumn(tx *gorm.DB, sourceColumnId int) error {
	return tx.Where("source_column_id = ?", sourceColumnId).Delete(&AISuggestion{}).Error
}

// GenerateSuggestions asks the gateway for ranked candidates and replaces
// the column's outstanding suggestions with them. The vector index is
// queried first and its hits are passed to the model as context. A gateway
// failure leaves the column and its previous suggestions untouched. An
// unmapped column moves to suggested; a mapped column keeps its status.
func GenerateSuggestions(ctx context.Context, gw databricks.Gateway, sourceColumnId, numVectorResults, numAIResults int, userFeedback string) ([]AISuggestion, error) {
	column, err := GetSourceColumn(ctx, sourceColumnId)
	if err != nil {
		return nil, err
	}
	if numAIResults <= 0 {
		numAIResults = 3
	}
	if numVectorResults <= 0 {
		numVectorResults = 5
	}

	semanticContext, err := gw.SearchSemanticFields(ctx,
		strings.Join([]string{column.ColumnName, column.ColumnComment}, " "), numVectorResults)
	if err != nil {
		return nil, err
	}

	req := databricks.SuggestionRequest{
		ColumnName:       column.ColumnName,
		PhysicalName:     column.PhysicalName,
		DataType:         column.DataType,
		Comments:         column.ColumnComment,
		SampleValues:     column.SampleValues,
		SemanticContext:  semanticContext,
		UserFeedback:     userFeedback,
		NumVectorResults: numVectorResults,
		NumAIResults:     numAIResults,
	}
	if column.Table != nil {
		req.TableName = column.Table.TableName_
	}

	candidates, err := gw.GenerateSuggestions(ctx, &req)
	if err != nil {
		return nil, err
	}

	suggestions := make([]AISuggestion, 0, len(candidates))
	for i, candidate := range candidates {
		score := decimal.NewFromFloat(candidate.Confidence)
		if score.IsNegative() {
			score = decimal.Zero
		}
		if score.GreaterThan(decimal.NewFromInt(1)) {
			score = decimal.NewFromInt(1)
		}
		suggestion := AISuggestion{
			SourceColumnId:  sourceColumnId,
			SuggestedTarget: candidate.TargetFieldName,
			Rank:            i + 1,
			ConfidenceScore: &score,
			Reasoning:       candidate.Reasoning,
			ModelName:       candidate.ModelName,
			ModelVersion:    candidate.ModelVersion,
		}
		if field, lookupErr := findTargetFieldByName(ctx, candidate.TargetFieldName); lookupErr == nil {
			suggestion.TargetFieldId = &field.ID
		}
		suggestions = append(suggestions, suggestion)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSuggestionsForColumn(tx, sourceColumnId); err != nil {
			return err
		}
		if len(suggestions) > 0 {
			if err := tx.Create(&suggestions).Error; err != nil {
				return err
			}
		}
		if column.Status == ColumnStatusUnmapped && len(suggestions) > 0 {
			return setColumnStatus(tx, sourceColumnId, ColumnStatusSuggested)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

func findTargetFieldByName(ctx context.Context, fieldName string) (*TargetField, error) {
	db := config.GetDB()
	var field TargetField
	err := db.WithContext(ctx).
		Where("field_name = ? AND is_active = ?", fieldName, true).
		Order("id ASC").First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

type AISuggestionFilter struct {
	SourceColumnId int
	TableId        int
	ModelName      string
	Page           int
	PageSize       int
}

func ListAISuggestions(ctx context.Context, filter *AISuggestionFilter) ([]AISuggestion, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&AISuggestion{}).
		Preload("SourceColumn").Preload("TargetField")

	if filter.SourceColumnId > 0 {
		dbCtx = dbCtx.Where("source_column_id = ?", filter.SourceColumnId)
	}
	if filter.TableId > 0 {
		dbCtx = dbCtx.Where("source_column_id IN (?)",
			db.Model(&SourceColumn{}).Select("id").Where("table_id = ?", filter.TableId))
	}
	if filter.ModelName != "" {
		dbCtx = dbCtx.Where("model_name = ?", filter.ModelName)
	}

	var suggestions []AISuggestion
	if err := dbCtx.Order("source_column_id ASC, `rank` ASC").
		Limit(config.SearchLimit).Find(&suggestions).Error; err != nil {
		return nil, 0, err
	}
	page := utils.Paginate(suggestions, filter.Page, filter.PageSize)
	return page, len(suggestions), nil
}

// AcceptSuggestion turns one suggestion into a pending ai_suggestion mapping.
// The column's other suggestions stay pending until separately rejected or
// superseded. Not idempotent: the suggestion is consumed, so a second accept
// of the same id is a not found.
func AcceptSuggestion(ctx context.Context, id int) (*FieldMapping, error) {
	db := config.GetDB()
	var mapping *FieldMapping
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var suggestion AISuggestion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&suggestion, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFoundErrorf("ai suggestion %d", id)
		}
		if err != nil {
			return err
		}
		if suggestion.TargetFieldId == nil {
			return utils.ValidationErrorf("suggestion %d has no resolvable target field %q", id, suggestion.SuggestedTarget)
		}

		if err := supersedeActiveMapping(tx, suggestion.SourceColumnId); err != nil {
			return err
		}

		userId, _ := utils.GetUserIdFromContext(ctx)
		created := FieldMapping{
			SourceColumnId:         suggestion.SourceColumnId,
			TargetFieldId:          *suggestion.TargetFieldId,
			MappingType:            MappingTypeAISuggestion,
			TransformationLanguage: TransformationLanguageSQL,
			ConfidenceScore:        suggestion.ConfidenceScore,
			Status:                 MappingStatusPending,
			IsValidated:            utils.NewFalse(),
			AIReasoning:            suggestion.Reasoning,
			AIModelVersion:         suggestion.ModelVersion,
			CreatedBy:              userId,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		if err := setColumnStatus(tx, suggestion.SourceColumnId, ColumnStatusMapped); err != nil {
			return err
		}
		if err := tx.Delete(&AISuggestion{}, suggestion.ID).Error; err != nil {
			return err
		}
		mapping = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// RejectSuggestion removes one suggestion. The column falls back to
// unmapped once no suggestions and no active mapping remain for it.
// Feedback, if given, is logged for model tuning.
func RejectSuggestion(ctx context.Context, id int, feedback string) error {
	db := config.GetDB()
	if feedback != "" {
		config.GetLogger().WithFields(map[string]any{
			"suggestion_id": id,
			"feedback":      feedback,
		}).Info("suggestion rejected with feedback")
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var suggestion AISuggestion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&suggestion, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFoundErrorf("ai suggestion %d", id)
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&suggestion).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&AISuggestion{}).
			Where("source_column_id = ?", suggestion.SourceColumnId).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		var active int64
		if err := tx.Model(&FieldMapping{}).
			Where("source_column_id = ? AND status IN ?", suggestion.SourceColumnId,
				[]MappingStatus{MappingStatusPending, MappingStatusValidated}).
			Count(&active).Error; err != nil {
			return err
		}
		if active == 0 {
			return setColumnStatus(tx, suggestion.SourceColumnId, ColumnStatusUnmapped)
		}
		return nil
	})
}
