package models

import (
	"context"
	"errors"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MappingSession groups one user's mapping work against a target schema.
// Sessions are addressed by their public uuid, not the numeric id.
type MappingSession struct {
	ID                int           `gorm:"primary_key" json:"-"`
	PublicId          string        `gorm:"size:36;uniqueIndex;not null" json:"id"`
	UserId            int           `gorm:"index;not null" json:"user_id"`
	SessionName       string        `gorm:"size:255;not null" json:"session_name" binding:"required"`
	TargetSchemaId    int           `gorm:"index" json:"target_schema_id"`
	TotalColumns      int           `gorm:"default:0" json:"total_columns"`
	MappedColumns     int           `gorm:"default:0" json:"mapped_columns"`
	ValidatedMappings int           `gorm:"default:0" json:"validated_mappings"`
	Notes             string        `gorm:"type:text" json:"notes"`
	Tags              JSONList      `gorm:"type:json" json:"tags"`
	Status            SessionStatus `gorm:"type:enum('active','paused','completed','archived');default:'active';index" json:"status"`
	CompletedAt       *time.Time    `json:"completed_at"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"started_at"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"last_activity"`

	TargetSchema *TargetSchema `gorm:"foreignKey:TargetSchemaId" json:"target_schema,omitempty"`
}

func (MappingSession) TableName() string { return "mapping_sessions" }

func (s MappingSession) SearchText() []string {
	return []string{s.SessionName, s.Notes}
}

// Progress is mapped over total, 0 when the session has no columns yet.
func (s MappingSession) Progress() float64 {
	if s.TotalColumns == 0 {
		return 0
	}
	return float64(s.MappedColumns) / float64(s.TotalColumns)
}

type NewMappingSession struct {
	SessionName    string   `json:"session_name" binding:"required"`
	TargetSchemaId int      `json:"target_schema_id"`
	Notes          string   `json:"notes"`
	Tags           JSONList `json:"tags"`
	Status         SessionStatus `json:"status"`
}

func (input *NewMappingSession) validate(ctx context.Context) error {
	if input.Status == "" {
		input.Status = SessionStatusActive
	}
	if !input.Status.Valid() {
		return utils.ValidationErrorf("unknown session status %q", input.Status)
	}
	if input.TargetSchemaId > 0 {
		if err := utils.ValidateResourceId[TargetSchema](ctx, input.TargetSchemaId); err != nil {
			return utils.NotFoundErrorf("target schema %d", input.TargetSchemaId)
		}
	}
	return nil
}

func CreateMappingSession(ctx context.Context, input *NewMappingSession) (*MappingSession, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	session := MappingSession{
		PublicId:       uuid.NewString(),
		UserId:         userId,
		SessionName:    input.SessionName,
		TargetSchemaId: input.TargetSchemaId,
		Notes:          input.Notes,
		Tags:           input.Tags,
		Status:         input.Status,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func GetMappingSession(ctx context.Context, publicId string) (*MappingSession, error) {
	db := config.GetDB()
	var session MappingSession
	err := db.WithContext(ctx).Preload("TargetSchema").
		Where("public_id = ?", publicId).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErrorf("mapping session %s", publicId)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

type MappingSessionFilter struct {
	UserId   int
	Status   string
	Search   string
	Page     int
	PageSize int
}

func ListMappingSessions(ctx context.Context, filter *MappingSessionFilter) ([]MappingSession, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&MappingSession{}).Preload("TargetSchema")

	if filter.UserId > 0 {
		dbCtx = dbCtx.Where("user_id = ?", filter.UserId)
	}
	if filter.Status != "" {
		if !SessionStatus(filter.Status).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown session status %q", filter.Status)
		}
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}

	var sessions []MappingSession
	if err := dbCtx.Order("updated_at DESC").Limit(config.SearchLimit).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	matched := utils.SearchFilter(sessions, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func UpdateMappingSession(ctx context.Context, publicId string, input *NewMappingSession) (*MappingSession, error) {
	session, err := GetMappingSession(ctx, publicId)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	session.SessionName = input.SessionName
	session.TargetSchemaId = input.TargetSchemaId
	session.Notes = input.Notes
	if input.Tags != nil {
		session.Tags = input.Tags
	}
	if input.Status != session.Status {
		session.Status = input.Status
		if input.Status == SessionStatusCompleted {
			now := time.Now()
			session.CompletedAt = &now
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func DeleteMappingSession(ctx context.Context, publicId string) error {
	session, err := GetMappingSession(ctx, publicId)
	if err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(session).Update("status", SessionStatusArchived).Error
}

// UpdateSessionProgress recomputes the session counters from live store
// state rather than trusting client-posted numbers.
func UpdateSessionProgress(ctx context.Context, publicId string) (*MappingSession, error) {
	session, err := GetMappingSession(ctx, publicId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var total, mapped, validated int64
	if err := db.WithContext(ctx).Model(&SourceColumn{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&SourceColumn{}).
		Where("status = ?", ColumnStatusMapped).Count(&mapped).Error; err != nil {
		return nil, err
	}
	validatedQuery := db.WithContext(ctx).Model(&FieldMapping{}).
		Where("status = ?", MappingStatusValidated)
	if session.TargetSchemaId > 0 {
		validatedQuery = validatedQuery.Where("target_field_id IN (?)",
			db.Model(&TargetField{}).Select("id").Where("schema_id = ?", session.TargetSchemaId))
	}
	if err := validatedQuery.Count(&validated).Error; err != nil {
		return nil, err
	}

	session.TotalColumns = int(total)
	session.MappedColumns = int(mapped)
	session.ValidatedMappings = int(validated)
	if err := db.WithContext(ctx).Save(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}
