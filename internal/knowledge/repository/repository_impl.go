package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/knowledge/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func firstOrNil[T any](db *gorm.DB, dest *T, query string, args ...interface{}) (*T, error) {
	err := db.Where(query, args...).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return dest, nil
}

func (r *repo) ListPolicies(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.GlobalPolicy, error) {
	var rows []domain.GlobalPolicy
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("display_order ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) UpsertPolicy(ctx context.Context, db *gorm.DB, policy *domain.GlobalPolicy) error {
	return db.WithContext(ctx).Save(policy).Error
}

func (r *repo) DeletePolicy(ctx context.Context, db *gorm.DB, firmID, policyID snowflake.ID) (bool, error) {
	tx := db.WithContext(ctx).
		Where("firm_id = ? AND id = ?", firmID, policyID).
		Delete(&domain.GlobalPolicy{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *repo) ListCallFlowSteps(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.CallFlowStep, error) {
	var rows []domain.CallFlowStep
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("display_order ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) UpsertCallFlowStep(ctx context.Context, db *gorm.DB, step *domain.CallFlowStep) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firm_id"}, {Name: "step_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"say", "collect", "conditional_collect", "validate",
			"choices", "route_by", "display_order", "updated_at",
		}),
	}).Create(step).Error
}

func (r *repo) FindDecisionLogic(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*domain.DecisionLogic, error) {
	var row domain.DecisionLogic
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ?", firmID)
}

func (r *repo) UpsertDecisionLogic(ctx context.Context, db *gorm.DB, logic *domain.DecisionLogic) error {
	return db.WithContext(ctx).Save(logic).Error
}

func (r *repo) FindDataModelFields(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*domain.DataModelFields, error) {
	var row domain.DataModelFields
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ?", firmID)
}

func (r *repo) UpsertDataModelFields(ctx context.Context, db *gorm.DB, fields *domain.DataModelFields) error {
	return db.WithContext(ctx).Save(fields).Error
}

func (r *repo) ListDeadlineRules(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.DeadlineRule, error) {
	var rows []domain.DeadlineRule
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("category ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) UpsertDeadlineRule(ctx context.Context, db *gorm.DB, rule *domain.DeadlineRule) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "firm_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"rules", "updated_at"}),
	}).Create(rule).Error
}

func (r *repo) ListEscalationRules(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.EscalationRule, error) {
	var rows []domain.EscalationRule
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("display_order ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) UpsertEscalationRule(ctx context.Context, db *gorm.DB, rule *domain.EscalationRule) error {
	return db.WithContext(ctx).Save(rule).Error
}

func (r *repo) ListPracticeAreas(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.PracticeArea, error) {
	var rows []domain.PracticeArea
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("display_order ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) FindPracticeAreaByName(ctx context.Context, db *gorm.DB, firmID snowflake.ID, name string) (*domain.PracticeArea, error) {
	var row domain.PracticeArea
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ? AND name = ?", firmID, name)
}

func (r *repo) UpsertPracticeArea(ctx context.Context, db *gorm.DB, area *domain.PracticeArea) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firm_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "display_order", "updated_at",
		}),
	}).Create(area).Error
}

func (r *repo) DeletePracticeArea(ctx context.Context, db *gorm.DB, firmID, areaID snowflake.ID) (bool, error) {
	tx := db.WithContext(ctx).
		Where("firm_id = ? AND id = ?", firmID, areaID).
		Delete(&domain.PracticeArea{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *repo) ListCaseTypes(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.CaseType, error) {
	var rows []domain.CaseType
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("display_order ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) FindCaseTypeByName(ctx context.Context, db *gorm.DB, firmID snowflake.ID, name string) (*domain.CaseType, error) {
	var row domain.CaseType
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ? AND name = ?", firmID, name)
}

func (r *repo) UpsertCaseType(ctx context.Context, db *gorm.DB, caseType *domain.CaseType) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firm_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"practice_area_id", "category", "display_order", "updated_at",
		}),
	}).Create(caseType).Error
}

func (r *repo) DeleteCaseType(ctx context.Context, db *gorm.DB, firmID, caseTypeID snowflake.ID) (bool, error) {
	tx := db.WithContext(ctx).
		Where("firm_id = ? AND id = ?", firmID, caseTypeID).
		Delete(&domain.CaseType{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *repo) ListScenarios(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.Scenario, error) {
	var rows []domain.Scenario
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) FindScenarioByName(ctx context.Context, db *gorm.DB, firmID snowflake.ID, name string) (*domain.Scenario, error) {
	var row domain.Scenario
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ? AND name = ?", firmID, name)
}

func (r *repo) UpsertScenario(ctx context.Context, db *gorm.DB, scenario *domain.Scenario) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firm_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"statute_of_limitations", "data", "updated_at",
		}),
	}).Create(scenario).Error
}

func (r *repo) ListQuestions(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.ScenarioQuestion, error) {
	var rows []domain.ScenarioQuestion
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("display_order ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) InsertQuestion(ctx context.Context, db *gorm.DB, question *domain.ScenarioQuestion) error {
	return db.WithContext(ctx).Create(question).Error
}

func (r *repo) UpdateQuestion(ctx context.Context, db *gorm.DB, question *domain.ScenarioQuestion) error {
	return db.WithContext(ctx).Save(question).Error
}

func (r *repo) FindQuestion(ctx context.Context, db *gorm.DB, firmID, questionID snowflake.ID) (*domain.ScenarioQuestion, error) {
	var row domain.ScenarioQuestion
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ? AND id = ?", firmID, questionID)
}

func (r *repo) DeleteQuestion(ctx context.Context, db *gorm.DB, firmID, questionID snowflake.ID) (bool, error) {
	tx := db.WithContext(ctx).
		Where("firm_id = ? AND id = ?", firmID, questionID).
		Delete(&domain.ScenarioQuestion{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *repo) ListScripts(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]domain.Script, error) {
	var rows []domain.Script
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) UpsertScript(ctx context.Context, db *gorm.DB, script *domain.Script) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "firm_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(script).Error
}

func (r *repo) FindOutputContract(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*domain.OutputContract, error) {
	var row domain.OutputContract
	return firstOrNil(db.WithContext(ctx), &row, "firm_id = ?", firmID)
}

func (r *repo) UpsertOutputContract(ctx context.Context, db *gorm.DB, contract *domain.OutputContract) error {
	return db.WithContext(ctx).Save(contract).Error
}

func (r *repo) CountCallFlowSteps(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.CallFlowStep{}).
		Where("firm_id = ?", firmID).
		Count(&count).Error
	return count, err
}

func (r *repo) InsertSnapshot(ctx context.Context, db *gorm.DB, snapshot *domain.KnowledgeSnapshot) error {
	return db.WithContext(ctx).Create(snapshot).Error
}

func (r *repo) FindLatestSnapshot(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*domain.KnowledgeSnapshot, error) {
	var row domain.KnowledgeSnapshot
	err := db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("version DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
