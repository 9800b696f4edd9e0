package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository loads and mutates the per-firm knowledge configuration
// tables. Listing methods return rows ordered by display order then
// id so compilation is deterministic.
type Repository interface {
	ListPolicies(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]GlobalPolicy, error)
	UpsertPolicy(ctx context.Context, db *gorm.DB, policy *GlobalPolicy) error
	DeletePolicy(ctx context.Context, db *gorm.DB, firmID, policyID snowflake.ID) (bool, error)

	ListCallFlowSteps(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]CallFlowStep, error)
	UpsertCallFlowStep(ctx context.Context, db *gorm.DB, step *CallFlowStep) error

	FindDecisionLogic(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*DecisionLogic, error)
	UpsertDecisionLogic(ctx context.Context, db *gorm.DB, logic *DecisionLogic) error

	FindDataModelFields(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*DataModelFields, error)
	UpsertDataModelFields(ctx context.Context, db *gorm.DB, fields *DataModelFields) error

	ListDeadlineRules(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]DeadlineRule, error)
	UpsertDeadlineRule(ctx context.Context, db *gorm.DB, rule *DeadlineRule) error

	ListEscalationRules(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]EscalationRule, error)
	UpsertEscalationRule(ctx context.Context, db *gorm.DB, rule *EscalationRule) error

	ListPracticeAreas(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]PracticeArea, error)
	FindPracticeAreaByName(ctx context.Context, db *gorm.DB, firmID snowflake.ID, name string) (*PracticeArea, error)
	UpsertPracticeArea(ctx context.Context, db *gorm.DB, area *PracticeArea) error
	DeletePracticeArea(ctx context.Context, db *gorm.DB, firmID, areaID snowflake.ID) (bool, error)

	ListCaseTypes(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]CaseType, error)
	FindCaseTypeByName(ctx context.Context, db *gorm.DB, firmID snowflake.ID, name string) (*CaseType, error)
	UpsertCaseType(ctx context.Context, db *gorm.DB, caseType *CaseType) error
	DeleteCaseType(ctx context.Context, db *gorm.DB, firmID, caseTypeID snowflake.ID) (bool, error)

	ListScenarios(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]Scenario, error)
	FindScenarioByName(ctx context.Context, db *gorm.DB, firmID snowflake.ID, name string) (*Scenario, error)
	UpsertScenario(ctx context.Context, db *gorm.DB, scenario *Scenario) error

	ListQuestions(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]ScenarioQuestion, error)
	InsertQuestion(ctx context.Context, db *gorm.DB, question *ScenarioQuestion) error
	UpdateQuestion(ctx context.Context, db *gorm.DB, question *ScenarioQuestion) error
	FindQuestion(ctx context.Context, db *gorm.DB, firmID, questionID snowflake.ID) (*ScenarioQuestion, error)
	DeleteQuestion(ctx context.Context, db *gorm.DB, firmID, questionID snowflake.ID) (bool, error)

	ListScripts(ctx context.Context, db *gorm.DB, firmID snowflake.ID) ([]Script, error)
	UpsertScript(ctx context.Context, db *gorm.DB, script *Script) error

	FindOutputContract(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*OutputContract, error)
	UpsertOutputContract(ctx context.Context, db *gorm.DB, contract *OutputContract) error

	CountCallFlowSteps(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (int64, error)
	InsertSnapshot(ctx context.Context, db *gorm.DB, snapshot *KnowledgeSnapshot) error
	FindLatestSnapshot(ctx context.Context, db *gorm.DB, firmID snowflake.ID) (*KnowledgeSnapshot, error)
}
