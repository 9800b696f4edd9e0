// Package migration applies the schema on startup. Postgres runs the
// embedded versioned migrations; other dialects fall back to gorm's
// auto migration, which is what local development and tests use.
package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/firmline/firmline/internal/config"
	contactdomain "github.com/firmline/firmline/internal/contact/domain"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	intakedomain "github.com/firmline/firmline/internal/intake/domain"
	knowledgedomain "github.com/firmline/firmline/internal/knowledge/domain"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func Run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if cfg.DBType != "postgres" {
		log.Info("running auto migration", zap.String("dialect", cfg.DBType))
		return autoMigrate(db)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.DBName, driver)
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&firmdomain.Firm{},
		&firmdomain.FirmSettings{},
		&contactdomain.Contact{},
		&intakedomain.Lead{},
		&intakedomain.Incident{},
		&intakedomain.Transcript{},
		&knowledgedomain.GlobalPolicy{},
		&knowledgedomain.CallFlowStep{},
		&knowledgedomain.DecisionLogic{},
		&knowledgedomain.DataModelFields{},
		&knowledgedomain.DeadlineRule{},
		&knowledgedomain.EscalationRule{},
		&knowledgedomain.Scenario{},
		&knowledgedomain.ScenarioQuestion{},
		&knowledgedomain.PracticeArea{},
		&knowledgedomain.CaseType{},
		&knowledgedomain.Script{},
		&knowledgedomain.OutputContract{},
		&knowledgedomain.KnowledgeSnapshot{},
	)
}
