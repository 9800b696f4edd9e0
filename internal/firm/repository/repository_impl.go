package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/firm/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Firm, error) {
	var firm domain.Firm
	err := db.WithContext(ctx).Where("id = ?", id).First(&firm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &firm, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, firm *domain.Firm) error {
	return db.WithContext(ctx).Create(firm).Error
}

func (r *repo) FindSettings(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*domain.FirmSettings, error) {
	var settings domain.FirmSettings
	err := db.WithContext(ctx).Where("firm_id = ?", firmID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *repo) UpsertSettings(ctx context.Context, db *gorm.DB, settings *domain.FirmSettings) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firm_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"knowledge_token", "token_updated_by", "token_updated_at",
			"agent_id", "agent_api_key", "updated_at",
		}),
	}).Create(settings).Error
}
