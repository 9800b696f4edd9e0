package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	contactdomain "github.com/firmline/firmline/internal/contact/domain"
	"github.com/firmline/firmline/internal/intake/domain"
	"github.com/firmline/firmline/internal/observability/metrics"
	"github.com/firmline/firmline/internal/triage"
	"github.com/firmline/firmline/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Contacts contactdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	contacts contactdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("intake.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		contacts: p.Contacts,
		metrics:  p.Metrics,
	}
}

// Ingest records one voice-intake delivery. Contact resolution, lead
// creation, incident facts and the transcript all commit in a single
// transaction. A retry with the same idempotency key returns the
// original lead, but the contact is still resolved so retried
// deliveries can refresh caller details.
func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResponse, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(req.CallID)
	}
	if key == "" {
		return domain.IngestResponse{}, domain.ErrMissingIdempotency
	}
	if strings.TrimSpace(req.Caller.Phone) == "" {
		return domain.IngestResponse{}, fmt.Errorf("%w: caller.phone is required", domain.ErrInvalidPayload)
	}
	if !domain.ValidCategory(req.Category) {
		req.Category = domain.CategoryOther
	}

	incidentDate, err := parseDate(req.Incident.Date)
	if err != nil {
		return domain.IngestResponse{}, fmt.Errorf("%w: incident.date: %s", domain.ErrInvalidPayload, req.Incident.Date)
	}
	explicitSOL, err := parseDate(req.SOLDate)
	if err != nil {
		return domain.IngestResponse{}, fmt.Errorf("%w: sol_date: %s", domain.ErrInvalidPayload, req.SOLDate)
	}

	deadline := triage.ComputeDeadline(explicitSOL, incidentDate, time.Now().UTC())
	urgency := triage.ComputeUrgency(triage.UrgencyInput{
		Hint:           req.UrgencyHint,
		DaysToDeadline: deadline.DaysRemaining,
		Category:       string(req.Category),
	})

	var out domain.IngestResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contact, err := s.contacts.Resolve(ctx, tx, contactdomain.ResolveRequest{
			FirmID:         req.FirmID,
			Phone:          req.Caller.Phone,
			FullName:       req.Caller.FullName,
			Email:          req.Caller.Email,
			MailingAddress: req.Caller.MailingAddress,
			DateOfBirth:    req.Caller.DateOfBirth,
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		lead := domain.Lead{
			ID:               s.genID.Generate(),
			FirmID:           req.FirmID,
			ContactID:        contact.ID,
			IdempotencyKey:   key,
			CallRef:          strings.TrimSpace(req.CallID),
			Status:           domain.LeadStatusNew,
			Category:         req.Category,
			UrgencyScore:     urgency.Score,
			UrgencyRationale: urgency.Rationale,
			DeadlineDate:     deadline.Date,
			DaysToDeadline:   deadline.DaysRemaining,
			WithinDeadline:   deadline.Within,
			ReferralSource:   strings.TrimSpace(req.ReferralSource),
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		inserted, err := s.repo.InsertLeadIgnoreConflict(ctx, tx, &lead)
		if err != nil {
			return err
		}
		if !inserted {
			// The key already has a lead, either from an earlier
			// delivery or a concurrent race. That row is the answer.
			winner, err := s.repo.FindLeadByIdempotencyKey(ctx, tx, req.FirmID, key)
			if err != nil {
				return err
			}
			if winner == nil {
				return gorm.ErrRecordNotFound
			}
			out = domain.IngestResponse{Status: "ok", LeadID: winner.ID, Deduplicated: true}
			return nil
		}

		incident := domain.Incident{
			ID:            s.genID.Generate(),
			LeadID:        lead.ID,
			FirmID:        req.FirmID,
			Date:          incidentDate,
			Location:      strings.TrimSpace(req.Incident.Location),
			Description:   strings.TrimSpace(req.Incident.Description),
			Injuries:      strings.TrimSpace(req.Incident.Injuries),
			Providers:     req.Incident.Providers,
			Witnesses:     req.Incident.Witnesses,
			PoliceReport:  strings.TrimSpace(req.Incident.PoliceReport),
			MediaEvidence: req.Incident.MediaEvidence,
			DefendantInfo: req.Incident.DefendantInfo,
			InsuranceInfo: req.Incident.InsuranceInfo,
			CreatedAt:     now,
		}
		if err := s.repo.InsertIncident(ctx, tx, &incident); err != nil {
			return err
		}

		if req.Transcript != nil && (req.Transcript.Raw != "" || len(req.Transcript.Structured) > 0) {
			transcript := domain.Transcript{
				ID:         s.genID.Generate(),
				LeadID:     lead.ID,
				FirmID:     req.FirmID,
				RawText:    req.Transcript.Raw,
				Structured: req.Transcript.Structured,
				Checksum:   transcriptChecksum(req.Transcript.Raw, req.Transcript.Structured),
				CreatedAt:  now,
			}
			if err := s.repo.InsertTranscript(ctx, tx, &transcript); err != nil {
				return err
			}
		}

		out = domain.IngestResponse{Status: "ok", LeadID: lead.ID}
		return nil
	})
	if err != nil {
		return domain.IngestResponse{}, err
	}

	if out.Deduplicated {
		s.recordDeduplicated(ctx, req.FirmID, key, out.LeadID)
		return out, nil
	}

	s.metrics.RecordIntakeIngested(ctx, string(req.Category))
	s.log.Info("intake ingested",
		zap.String("firm_id", req.FirmID.String()),
		zap.String("lead_id", out.LeadID.String()),
		zap.String("category", string(req.Category)),
		zap.Int("urgency_score", urgency.Score),
	)
	return out, nil
}

func (s *Service) GetLead(ctx context.Context, firmID, leadID snowflake.ID) (domain.GetLeadResponse, error) {
	lead, err := s.repo.FindLeadByID(ctx, s.db, firmID, leadID)
	if err != nil {
		return domain.GetLeadResponse{}, err
	}
	if lead == nil {
		return domain.GetLeadResponse{}, domain.ErrLeadNotFound
	}
	incident, err := s.repo.FindIncidentByLeadID(ctx, s.db, firmID, leadID)
	if err != nil {
		return domain.GetLeadResponse{}, err
	}
	return domain.GetLeadResponse{Lead: *lead, Incident: incident}, nil
}

func (s *Service) ListLeads(ctx context.Context, filter domain.ListLeadsFilter, p pagination.Pagination) (domain.ListLeadsResponse, error) {
	var cursor *pagination.Cursor
	if p.PageToken != "" {
		c, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return domain.ListLeadsResponse{}, fmt.Errorf("%w: page_token", domain.ErrInvalidPayload)
		}
		cursor = c
	}

	limit := p.Limit()
	leads, err := s.repo.ListLeads(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return domain.ListLeadsResponse{}, err
	}

	leads, pageInfo, err := pagination.BuildCursorPageInfo(leads, limit, func(l domain.Lead) pagination.Cursor {
		return pagination.Cursor{ID: int64(l.ID)}
	})
	if err != nil {
		return domain.ListLeadsResponse{}, err
	}

	summaries := make([]domain.LeadSummary, 0, len(leads))
	for _, lead := range leads {
		summaries = append(summaries, domain.LeadSummary{
			Lead:      lead,
			RiskBadge: string(triage.Badge(lead.DaysToDeadline)),
		})
	}
	return domain.ListLeadsResponse{Leads: summaries, PageInfo: pageInfo}, nil
}

func (s *Service) ListTranscripts(ctx context.Context, firmID, leadID snowflake.ID) ([]domain.Transcript, error) {
	lead, err := s.repo.FindLeadByID(ctx, s.db, firmID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrLeadNotFound
	}
	return s.repo.ListTranscripts(ctx, s.db, firmID, leadID)
}

func (s *Service) recordDeduplicated(ctx context.Context, firmID snowflake.ID, key string, leadID snowflake.ID) {
	s.metrics.RecordIntakeDeduplicated(ctx)
	s.log.Info("intake deduplicated",
		zap.String("firm_id", firmID.String()),
		zap.String("idempotency_key", key),
		zap.String("lead_id", leadID.String()),
	)
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", raw)
}

func transcriptChecksum(raw string, structured []byte) string {
	h := sha256.New()
	h.Write([]byte(raw))
	h.Write(structured)
	return hex.EncodeToString(h.Sum(nil))
}
