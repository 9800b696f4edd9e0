package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PolicyGroup names the buckets a global policy line can belong to.
type PolicyGroup string

const (
	PolicyGroupDisclaimer      PolicyGroup = "disclaimer"
	PolicyGroupPIISecurity     PolicyGroup = "pii_security"
	PolicyGroupTriagePriority  PolicyGroup = "triage_priority_rules"
	PolicyGroupHandoffCriteria PolicyGroup = "handoff_criteria"
	PolicyGroupHandoffAction   PolicyGroup = "handoff_action"
)

// ValidPolicyGroup reports whether g is a known policy group.
func ValidPolicyGroup(g PolicyGroup) bool {
	switch g {
	case PolicyGroupDisclaimer, PolicyGroupPIISecurity, PolicyGroupTriagePriority,
		PolicyGroupHandoffCriteria, PolicyGroupHandoffAction:
		return true
	}
	return false
}

// GlobalPolicy is one firm-wide policy line within a group.
type GlobalPolicy struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID       snowflake.ID `json:"firm_id" gorm:"index"`
	Group        PolicyGroup  `json:"group" gorm:"column:policy_group"`
	Text         string       `json:"text" gorm:"type:text"`
	DisplayOrder int          `json:"display_order"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (GlobalPolicy) TableName() string {
	return "global_policies"
}

// CallFlowStep is one ordered step of the firm's intake call script.
type CallFlowStep struct {
	ID                 snowflake.ID   `json:"id" gorm:"primaryKey"`
	FirmID             snowflake.ID   `json:"firm_id" gorm:"index:idx_call_flow_firm_step,unique"`
	StepKey            string         `json:"step_key" gorm:"index:idx_call_flow_firm_step,unique"`
	Say                string         `json:"say" gorm:"type:text"`
	Collect            datatypes.JSON `json:"collect,omitempty"`
	ConditionalCollect datatypes.JSON `json:"conditional_collect,omitempty"`
	Validate           datatypes.JSON `json:"validate,omitempty"`
	Choices            datatypes.JSON `json:"choices,omitempty"`
	RouteBy            string         `json:"route_by"`
	DisplayOrder       int            `json:"display_order"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (CallFlowStep) TableName() string {
	return "call_flow_steps"
}

// DecisionLogic is the per-firm triage signal configuration. One row
// per firm.
type DecisionLogic struct {
	FirmID        snowflake.ID   `json:"firm_id" gorm:"primaryKey"`
	Signals       datatypes.JSON `json:"signals,omitempty"`
	SOLCalculator datatypes.JSON `json:"sol_calculator,omitempty"`
	UrgencyIndex  datatypes.JSON `json:"urgency_index,omitempty"`
	EvidenceTags  datatypes.JSON `json:"evidence_tags,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (DecisionLogic) TableName() string {
	return "decision_logic"
}

// DataModelFields lists the fields the agent is expected to capture,
// one column per capture domain. One row per firm.
type DataModelFields struct {
	FirmID                  snowflake.ID   `json:"firm_id" gorm:"primaryKey"`
	ContactFields           datatypes.JSON `json:"contact_fields,omitempty"`
	IncidentFields          datatypes.JSON `json:"incident_fields,omitempty"`
	EmploymentFields        datatypes.JSON `json:"employment_fields,omitempty"`
	MedicalFields           datatypes.JSON `json:"medical_fields,omitempty"`
	LitigationHistoryFields datatypes.JSON `json:"litigation_history_fields,omitempty"`
	WorkLossFields          datatypes.JSON `json:"work_loss_fields,omitempty"`
	PersonalProfileFields   datatypes.JSON `json:"personal_profile_fields,omitempty"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

func (DataModelFields) TableName() string {
	return "data_model_fields"
}

// DeadlineRule holds the limitation guidance for one matter category.
type DeadlineRule struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	FirmID    snowflake.ID   `json:"firm_id" gorm:"index:idx_deadline_rules_firm_cat,unique"`
	Category  string         `json:"category" gorm:"index:idx_deadline_rules_firm_cat,unique"`
	Rules     datatypes.JSON `json:"rules"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (DeadlineRule) TableName() string {
	return "deadline_rules"
}

// EscalationRule is one reject-or-escalate condition.
type EscalationRule struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	FirmID       snowflake.ID      `json:"firm_id" gorm:"index"`
	Condition    datatypes.JSONMap `json:"condition"`
	Action       string            `json:"action" gorm:"type:text"`
	DisplayOrder int               `json:"display_order"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (EscalationRule) TableName() string {
	return "escalation_rules"
}

// PracticeArea is one area of law the firm accepts intake for, keyed
// by name within a firm.
type PracticeArea struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID       snowflake.ID `json:"firm_id" gorm:"index:idx_practice_areas_firm_name,unique"`
	Name         string       `json:"name" gorm:"index:idx_practice_areas_firm_name,unique"`
	Description  string       `json:"description" gorm:"type:text"`
	DisplayOrder int          `json:"display_order"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (PracticeArea) TableName() string {
	return "practice_areas"
}

// CaseType is one matter type offered within a practice area, keyed by
// name within a firm. PracticeAreaID is zero for unassigned types.
type CaseType struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID         snowflake.ID `json:"firm_id" gorm:"index:idx_case_types_firm_name,unique"`
	PracticeAreaID snowflake.ID `json:"practice_area_id" gorm:"index"`
	Name           string       `json:"name" gorm:"index:idx_case_types_firm_name,unique"`
	Category       string       `json:"category"`
	DisplayOrder   int          `json:"display_order"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (CaseType) TableName() string {
	return "case_types"
}

// Scenario is one matter playbook, keyed by name within a firm.
type Scenario struct {
	ID                   snowflake.ID      `json:"id" gorm:"primaryKey"`
	FirmID               snowflake.ID      `json:"firm_id" gorm:"index:idx_scenarios_firm_name,unique"`
	Name                 string            `json:"name" gorm:"index:idx_scenarios_firm_name,unique"`
	StatuteOfLimitations string            `json:"statute_of_limitations"`
	Data                 datatypes.JSONMap `json:"data,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (Scenario) TableName() string {
	return "scenarios"
}

// ScenarioQuestion is one ordered question inside a scenario.
type ScenarioQuestion struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID       snowflake.ID `json:"firm_id" gorm:"index"`
	ScenarioID   snowflake.ID `json:"scenario_id" gorm:"index"`
	Text         string       `json:"text" gorm:"type:text"`
	DisplayOrder int          `json:"display_order"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (ScenarioQuestion) TableName() string {
	return "scenario_questions"
}

// Script is a reusable spoken line keyed by purpose.
type Script struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID    snowflake.ID `json:"firm_id" gorm:"index:idx_scripts_firm_key,unique"`
	Key       string       `json:"key" gorm:"index:idx_scripts_firm_key,unique"`
	Text      string       `json:"text" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Script) TableName() string {
	return "scripts"
}

// OutputContract describes the shape of the summary the agent must
// hand back at the end of a call. One row per firm.
type OutputContract struct {
	FirmID          snowflake.ID   `json:"firm_id" gorm:"primaryKey"`
	Status          datatypes.JSON `json:"status,omitempty"`
	ReasonCodes     datatypes.JSON `json:"reason_codes,omitempty"`
	Deliverables    datatypes.JSON `json:"deliverables,omitempty"`
	SummaryTemplate string         `json:"summary_template" gorm:"type:text"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (OutputContract) TableName() string {
	return "output_contracts"
}

// KnowledgeSnapshot is one immutable compiled document. Version is a
// millisecond timestamp, strictly increasing per firm.
type KnowledgeSnapshot struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	FirmID      snowflake.ID   `json:"firm_id" gorm:"index"`
	Version     int64          `json:"version"`
	Document    datatypes.JSON `json:"document"`
	GeneratedAt time.Time      `json:"generated_at"`
}

func (KnowledgeSnapshot) TableName() string {
	return "knowledge_documents"
}
