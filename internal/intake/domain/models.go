package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Category enumerates the matter categories an intake can be filed
// under. Unknown values are coerced to CategoryOther at the edge.
type Category string

const (
	CategoryMotorVehicle Category = "MOTOR_VEHICLE"
	CategoryMedical      Category = "MEDICAL"
	CategoryEmployment   Category = "EMPLOYMENT"
	CategoryPremises     Category = "PREMISES"
	CategoryWorkLoss     Category = "WORKLOSS"
	CategoryOther        Category = "OTHER"
)

// ValidCategory reports whether v is a known category code.
func ValidCategory(v Category) bool {
	switch v {
	case CategoryMotorVehicle, CategoryMedical, CategoryEmployment,
		CategoryPremises, CategoryWorkLoss, CategoryOther:
		return true
	}
	return false
}

// LeadStatus tracks a lead through intake review.
type LeadStatus string

const (
	LeadStatusNew LeadStatus = "NEW"
)

// Lead is one ingested matter with its triage outcome. The
// (firm_id, idempotency_key) pair is unique so webhook retries
// collapse onto the first delivery.
type Lead struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID           snowflake.ID `json:"firm_id" gorm:"index:idx_leads_firm_idem,unique"`
	ContactID        snowflake.ID `json:"contact_id" gorm:"index"`
	IdempotencyKey   string       `json:"idempotency_key" gorm:"index:idx_leads_firm_idem,unique"`
	CallRef          string       `json:"call_ref"`
	Status           LeadStatus   `json:"status"`
	Category         Category     `json:"category"`
	UrgencyScore     int          `json:"urgency_score"`
	UrgencyRationale string       `json:"urgency_rationale"`
	DeadlineDate     *time.Time   `json:"sol_date,omitempty"`
	DaysToDeadline   *int         `json:"days_to_sol,omitempty"`
	WithinDeadline   bool         `json:"within_sol"`
	ReferralSource   string       `json:"referral_source"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// Incident carries the factual core of a lead.
type Incident struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	LeadID        snowflake.ID      `json:"lead_id" gorm:"index"`
	FirmID        snowflake.ID      `json:"firm_id" gorm:"index"`
	Date          *time.Time        `json:"incident_date,omitempty"`
	Location      string            `json:"location"`
	Description   string            `json:"description" gorm:"type:text"`
	Injuries      string            `json:"injuries"`
	Providers     datatypes.JSON    `json:"providers,omitempty"`
	Witnesses     datatypes.JSON    `json:"witnesses,omitempty"`
	PoliceReport  string            `json:"police_report"`
	MediaEvidence bool              `json:"photos_or_video" gorm:"column:media_evidence"`
	DefendantInfo datatypes.JSONMap `json:"defendant_info,omitempty"`
	InsuranceInfo datatypes.JSONMap `json:"insurance_info,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (Incident) TableName() string {
	return "incidents"
}

// Transcript stores the call record behind a lead. Checksum is the
// hex SHA-256 of the raw text concatenated with the structured JSON,
// so replayed deliveries with altered content are detectable.
type Transcript struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	LeadID     snowflake.ID   `json:"lead_id" gorm:"index"`
	FirmID     snowflake.ID   `json:"firm_id" gorm:"index"`
	RawText    string         `json:"raw_text" gorm:"type:text"`
	Structured datatypes.JSON `json:"structured,omitempty"`
	Checksum   string         `json:"checksum"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Transcript) TableName() string {
	return "transcripts"
}
