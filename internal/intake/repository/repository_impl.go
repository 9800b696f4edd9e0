package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/intake/domain"
	"github.com/firmline/firmline/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLeadByIdempotencyKey(ctx context.Context, db *gorm.DB, firmID snowflake.ID, key string) (*domain.Lead, error) {
	var lead domain.Lead
	err := db.WithContext(ctx).
		Where("firm_id = ? AND idempotency_key = ?", firmID, key).
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

// InsertLeadIgnoreConflict inserts the lead and reports whether the
// row landed. A conflict on (firm_id, idempotency_key) is not an
// error; the caller re-reads the winning row.
func (r *repo) InsertLeadIgnoreConflict(ctx context.Context, db *gorm.DB, lead *domain.Lead) (bool, error) {
	tx := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "firm_id"}, {Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(lead)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repo) FindLeadByID(ctx context.Context, db *gorm.DB, firmID, leadID snowflake.ID) (*domain.Lead, error) {
	var lead domain.Lead
	err := db.WithContext(ctx).
		Where("firm_id = ? AND id = ?", firmID, leadID).
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

func (r *repo) ListLeads(ctx context.Context, db *gorm.DB, filter domain.ListLeadsFilter, cursor *pagination.Cursor, limit int) ([]domain.Lead, error) {
	query := db.WithContext(ctx).Where("firm_id = ?", filter.FirmID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if cursor != nil {
		query = query.Where("id < ?", cursor.ID)
	}

	var leads []domain.Lead
	err := query.
		Order("id DESC").
		Limit(limit + 1).
		Find(&leads).Error
	return leads, err
}

func (r *repo) InsertIncident(ctx context.Context, db *gorm.DB, incident *domain.Incident) error {
	return db.WithContext(ctx).Create(incident).Error
}

func (r *repo) FindIncidentByLeadID(ctx context.Context, db *gorm.DB, firmID, leadID snowflake.ID) (*domain.Incident, error) {
	var incident domain.Incident
	err := db.WithContext(ctx).
		Where("firm_id = ? AND lead_id = ?", firmID, leadID).
		First(&incident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &incident, nil
}

func (r *repo) InsertTranscript(ctx context.Context, db *gorm.DB, transcript *domain.Transcript) error {
	return db.WithContext(ctx).Create(transcript).Error
}

func (r *repo) ListTranscripts(ctx context.Context, db *gorm.DB, firmID, leadID snowflake.ID) ([]domain.Transcript, error) {
	var transcripts []domain.Transcript
	err := db.WithContext(ctx).
		Where("firm_id = ? AND lead_id = ?", firmID, leadID).
		Order("id ASC").
		Find(&transcripts).Error
	return transcripts, err
}
