package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListLeadsFilter struct {
	FirmID   snowflake.ID
	Status   LeadStatus
	Category Category
}

type Repository interface {
	FindLeadByIdempotencyKey(ctx context.Context, db *gorm.DB, firmID snowflake.ID, key string) (*Lead, error)
	InsertLeadIgnoreConflict(ctx context.Context, db *gorm.DB, lead *Lead) (inserted bool, err error)
	FindLeadByID(ctx context.Context, db *gorm.DB, firmID, leadID snowflake.ID) (*Lead, error)
	ListLeads(ctx context.Context, db *gorm.DB, filter ListLeadsFilter, cursor *pagination.Cursor, limit int) ([]Lead, error)

	InsertIncident(ctx context.Context, db *gorm.DB, incident *Incident) error
	FindIncidentByLeadID(ctx context.Context, db *gorm.DB, firmID, leadID snowflake.ID) (*Incident, error)

	InsertTranscript(ctx context.Context, db *gorm.DB, transcript *Transcript) error
	ListTranscripts(ctx context.Context, db *gorm.DB, firmID, leadID snowflake.ID) ([]Transcript, error)
}
