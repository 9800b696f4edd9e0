package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type UpsertPolicyRequest struct {
	FirmID       snowflake.ID
	PolicyID     snowflake.ID // zero for insert
	Group        PolicyGroup
	Text         string
	DisplayOrder int
}

type UpsertScenarioRequest struct {
	FirmID               snowflake.ID
	Name                 string
	StatuteOfLimitations string
	Data                 datatypes.JSONMap
}

type UpsertQuestionRequest struct {
	FirmID       snowflake.ID
	QuestionID   snowflake.ID // zero for insert
	ScenarioName string
	Text         string
	DisplayOrder int
}

type UpsertPracticeAreaRequest struct {
	FirmID       snowflake.ID
	Name         string
	Description  string
	DisplayOrder int
}

type UpsertCaseTypeRequest struct {
	FirmID       snowflake.ID
	Name         string
	PracticeArea string // empty leaves the case type unassigned
	Category     string
	DisplayOrder int
}

type UpsertDeadlineRuleRequest struct {
	FirmID   snowflake.ID
	Category string
	Rules    datatypes.JSON
}

// SyncResult reports where the agent platform was pointed.
type SyncResult struct {
	KnowledgeURL string `json:"knowledge_url"`
	Version      int64  `json:"version"`
}

type Service interface {
	// Compile assembles the current configuration into a document and
	// records an immutable snapshot.
	Compile(ctx context.Context, firmID snowflake.ID) (Document, error)

	// GetDocument serves the read path: seeds a blank firm, compiles,
	// and caches the result briefly.
	GetDocument(ctx context.Context, firmID snowflake.ID) (Document, error)

	// KnowledgeURL builds the public self-referential URL for a firm's
	// document, including the access token when one is configured.
	KnowledgeURL(ctx context.Context, firmID snowflake.ID) (string, error)

	// Sync compiles and pushes the knowledge URL to the agent platform.
	Sync(ctx context.Context, firmID snowflake.ID) (SyncResult, error)

	EnsureSeeded(ctx context.Context, firmID snowflake.ID) error

	UpsertPolicy(ctx context.Context, req UpsertPolicyRequest) (GlobalPolicy, error)
	DeletePolicy(ctx context.Context, firmID, policyID snowflake.ID) error
	UpsertScenario(ctx context.Context, req UpsertScenarioRequest) (Scenario, error)
	UpsertQuestion(ctx context.Context, req UpsertQuestionRequest) (ScenarioQuestion, error)
	DeleteQuestion(ctx context.Context, firmID, questionID snowflake.ID) error
	UpsertDeadlineRule(ctx context.Context, req UpsertDeadlineRuleRequest) (DeadlineRule, error)
	UpsertPracticeArea(ctx context.Context, req UpsertPracticeAreaRequest) (PracticeArea, error)
	DeletePracticeArea(ctx context.Context, firmID, areaID snowflake.ID) error
	UpsertCaseType(ctx context.Context, req UpsertCaseTypeRequest) (CaseType, error)
	DeleteCaseType(ctx context.Context, firmID, caseTypeID snowflake.ID) error

	// TriggerRecompile recompiles in the background. Failures are
	// logged, never surfaced to the caller that made the edit.
	TriggerRecompile(firmID snowflake.ID)
}

var (
	ErrInvalidPolicyGroup = errors.New("invalid_policy_group")
	ErrInvalidScenario    = errors.New("invalid_scenario")
	ErrScenarioNotFound   = errors.New("scenario_not_found")
	ErrPolicyNotFound     = errors.New("policy_not_found")
	ErrQuestionNotFound   = errors.New("question_not_found")
	ErrInvalidRule        = errors.New("invalid_deadline_rule")

	ErrInvalidPracticeArea  = errors.New("invalid_practice_area")
	ErrPracticeAreaNotFound = errors.New("practice_area_not_found")
	ErrInvalidCaseType      = errors.New("invalid_case_type")
	ErrCaseTypeNotFound     = errors.New("case_type_not_found")
)
