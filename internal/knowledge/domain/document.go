package domain

import (
	"encoding/json"
)

// SchemaVersion identifies the compiled document layout served to the
// voice agent. Bump when a section's shape changes.
const SchemaVersion = "1.0"

// DocumentPurpose is embedded in every compiled document so the agent
// platform can sanity-check what it fetched.
const DocumentPurpose = "legal_intake_agent_knowledge"

// Document is one compiled knowledge document. Field order here is
// the serialization order the agent platform consumes.
type Document struct {
	SchemaVersion  string                     `json:"schema_version"`
	Version        int64                      `json:"version"`
	GeneratedAt    string                     `json:"generated_at"`
	Purpose        string                     `json:"purpose"`
	GlobalPolicies GlobalPoliciesSection      `json:"global_policies"`
	CoreCallFlow   []CallFlowStepDoc          `json:"core_call_flow"`
	DecisionLogic  *DecisionLogicDoc          `json:"decision_logic,omitempty"`
	DataModel      *DataModelDoc              `json:"data_model,omitempty"`
	SOLRules       map[string]json.RawMessage `json:"sol_rules"`
	Escalations    []EscalationDoc            `json:"reject_and_escalation_logic"`
	Scenarios      map[string]ScenarioDoc     `json:"scenarios,omitempty"`
	PracticeAreas  []PracticeAreaDoc          `json:"practice_areas,omitempty"`
	CaseTypes      []CaseTypeDoc              `json:"case_types,omitempty"`
	Scripts        map[string]string          `json:"scripts"`
	OutputContract *OutputContractDoc         `json:"output_contract,omitempty"`
}

// GlobalPoliciesSection always emits every group, empty or not, so
// the agent never has to null-check section shape.
type GlobalPoliciesSection struct {
	Disclaimer          []string        `json:"disclaimer"`
	PIISecurity         []string        `json:"pii_security"`
	TriagePriorityRules []string        `json:"triage_priority_rules"`
	HandoffProtocol     HandoffProtocol `json:"handoff_protocol"`
}

type HandoffProtocol struct {
	Criteria []string `json:"criteria"`
	Action   string   `json:"action"`
}

type CallFlowStepDoc struct {
	ID                 string          `json:"id"`
	Say                string          `json:"say,omitempty"`
	Collect            json.RawMessage `json:"collect,omitempty"`
	ConditionalCollect json.RawMessage `json:"conditional_collect,omitempty"`
	Validate           json.RawMessage `json:"validate,omitempty"`
	RouteBy            string          `json:"route_by,omitempty"`
	Choices            json.RawMessage `json:"choices,omitempty"`
}

type DecisionLogicDoc struct {
	Signals       json.RawMessage `json:"signals,omitempty"`
	SOLCalculator json.RawMessage `json:"sol_calculator,omitempty"`
	UrgencyIndex  json.RawMessage `json:"urgency_index,omitempty"`
	EvidenceTags  json.RawMessage `json:"evidence_tags,omitempty"`
}

type DataModelDoc struct {
	ContactFields           json.RawMessage `json:"contact_fields,omitempty"`
	IncidentFields          json.RawMessage `json:"incident_fields,omitempty"`
	EmploymentFields        json.RawMessage `json:"employment_fields,omitempty"`
	MedicalFields           json.RawMessage `json:"medical_fields,omitempty"`
	LitigationHistoryFields json.RawMessage `json:"litigation_history_fields,omitempty"`
	WorkLossFields          json.RawMessage `json:"work_loss_fields,omitempty"`
	PersonalProfileFields   json.RawMessage `json:"personal_profile_fields,omitempty"`
}

type EscalationDoc struct {
	If   map[string]interface{} `json:"if"`
	Then string                 `json:"then"`
}

type ScenarioDoc struct {
	StatuteOfLimitations string                 `json:"statute_of_limitations,omitempty"`
	Questions            []string               `json:"questions"`
	Details              map[string]interface{} `json:"details,omitempty"`
}

type PracticeAreaDoc struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CaseTypeDoc struct {
	Name         string `json:"name"`
	PracticeArea string `json:"practice_area,omitempty"`
	Category     string `json:"category,omitempty"`
}

type OutputContractDoc struct {
	Status          json.RawMessage `json:"status,omitempty"`
	ReasonCodes     json.RawMessage `json:"reason_codes,omitempty"`
	Deliverables    json.RawMessage `json:"deliverables,omitempty"`
	SummaryTemplate string          `json:"summary_template,omitempty"`
}
