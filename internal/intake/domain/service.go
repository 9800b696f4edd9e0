package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/pkg/db/pagination"
	"gorm.io/datatypes"
)

// CallerInfo identifies the person behind an intake call.
type CallerInfo struct {
	FullName       string `json:"full_name"`
	Phone          string `json:"phone" binding:"required"`
	Email          string `json:"email"`
	MailingAddress string `json:"mailing_address"`
	DateOfBirth    string `json:"date_of_birth"`
}

// IncidentInput is the factual payload of an intake delivery.
type IncidentInput struct {
	Date          string            `json:"date"`
	Location      string            `json:"location"`
	Description   string            `json:"description"`
	Injuries      string            `json:"injuries"`
	Providers     datatypes.JSON    `json:"providers"`
	Witnesses     datatypes.JSON    `json:"witnesses"`
	PoliceReport  string            `json:"police_report"`
	MediaEvidence bool              `json:"photos_or_video"`
	DefendantInfo datatypes.JSONMap `json:"defendant_info"`
	InsuranceInfo datatypes.JSONMap `json:"insurance_info"`
}

// TranscriptInput is the optional call record attached to an intake.
type TranscriptInput struct {
	Raw        string         `json:"raw"`
	Structured datatypes.JSON `json:"structured"`
}

// IngestRequest is one normalized voice-intake delivery.
type IngestRequest struct {
	FirmID         snowflake.ID     `json:"-"`
	IdempotencyKey string           `json:"-"`
	CallID         string           `json:"call_id"`
	Caller         CallerInfo       `json:"caller" binding:"required"`
	Category       Category         `json:"category"`
	Incident       IncidentInput    `json:"incident"`
	SOLDate        string           `json:"sol_date"`
	UrgencyHint    *float64         `json:"urgency_hint"`
	Transcript     *TranscriptInput `json:"transcript"`
	ReferralSource string           `json:"referral_source"`
}

type IngestResponse struct {
	Status       string       `json:"status"`
	LeadID       snowflake.ID `json:"lead_id"`
	Deduplicated bool         `json:"-"`
}

type GetLeadResponse struct {
	Lead     Lead      `json:"lead"`
	Incident *Incident `json:"incident,omitempty"`
}

// LeadSummary is the list-view projection including the risk badge.
type LeadSummary struct {
	Lead
	RiskBadge string `json:"risk_badge"`
}

type ListLeadsResponse struct {
	Leads    []LeadSummary       `json:"leads"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (IngestResponse, error)
	GetLead(ctx context.Context, firmID, leadID snowflake.ID) (GetLeadResponse, error)
	ListLeads(ctx context.Context, filter ListLeadsFilter, p pagination.Pagination) (ListLeadsResponse, error)
	ListTranscripts(ctx context.Context, firmID, leadID snowflake.ID) ([]Transcript, error)
}

var (
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrMissingIdempotency = errors.New("missing_idempotency_key")
	ErrLeadNotFound       = errors.New("lead_not_found")
)
