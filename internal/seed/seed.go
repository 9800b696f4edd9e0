// Package seed provisions the default firm on startup so a fresh
// deployment can take webhook traffic without manual setup.
package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/config"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	knowledgedomain "github.com/firmline/firmline/internal/knowledge/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Firms     firmdomain.Repository
	Knowledge knowledgedomain.Service
}

// EnsureDefaultFirm creates the configured default firm when missing
// and seeds its knowledge tables from the template.
func EnsureDefaultFirm(p Params) error {
	if p.Config.DefaultFirmID == 0 {
		return nil
	}
	log := p.Log.Named("seed")
	ctx := context.Background()
	firmID := snowflake.ID(p.Config.DefaultFirmID)

	existing, err := p.Firms.FindByID(ctx, p.DB, firmID)
	if err != nil {
		return err
	}
	if existing == nil {
		now := time.Now().UTC()
		firm := firmdomain.Firm{
			ID:        firmID,
			Name:      "Default Firm",
			Slug:      "default",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := p.Firms.Insert(ctx, p.DB, &firm); err != nil {
			return err
		}
		log.Info("default firm created", zap.String("firm_id", firmID.String()))
	}

	if err := p.Knowledge.EnsureSeeded(ctx, firmID); err != nil {
		return err
	}
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(EnsureDefaultFirm),
)
