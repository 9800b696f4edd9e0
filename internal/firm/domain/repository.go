package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Firm, error)
	Insert(ctx context.Context, db *gorm.DB, firm *Firm) error
	FindSettings(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*FirmSettings, error)
	UpsertSettings(ctx context.Context, db *gorm.DB, settings *FirmSettings) error
}
