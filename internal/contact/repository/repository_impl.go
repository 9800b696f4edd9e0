package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/contact/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, firmID snowflake.ID, phone string) (*domain.Contact, error) {
	var contact domain.Contact
	err := db.WithContext(ctx).
		Where("firm_id = ? AND phone = ?", firmID, phone).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contact *domain.Contact) error {
	return db.WithContext(ctx).Create(contact).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, contact *domain.Contact) error {
	return db.WithContext(ctx).Save(contact).Error
}
