package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/bwmarrin/snowflake"
	contactdomain "github.com/firmline/firmline/internal/contact/domain"
	contactrepo "github.com/firmline/firmline/internal/contact/repository"
	contactservice "github.com/firmline/firmline/internal/contact/service"
	"github.com/firmline/firmline/internal/intake/domain"
	"github.com/firmline/firmline/internal/intake/repository"
	"github.com/firmline/firmline/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&contactdomain.Contact{},
		&domain.Lead{},
		&domain.Incident{},
		&domain.Transcript{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	contacts := contactservice.New(contactservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  contactrepo.Provide(),
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Contacts: contacts,
	})
	return svc, db
}

func baseRequest(firmID snowflake.ID) domain.IngestRequest {
	return domain.IngestRequest{
		FirmID: firmID,
		CallID: "call-001",
		Caller: domain.CallerInfo{
			FullName: "Dana Whitfield",
			Phone:    "+1 (415) 555-0199",
			Email:    "dana@example.com",
		},
		Category: domain.CategoryMotorVehicle,
		Incident: domain.IncidentInput{
			Date:          "2026-01-15",
			Location:      "Mission St & 5th",
			Description:   "Rear-ended at a stop light.",
			MediaEvidence: true,
		},
		ReferralSource: "voice",
	}
}

func TestIngest_CreatesLeadIncidentAndContact(t *testing.T) {
	svc, db := newTestService(t)
	firmID := snowflake.ID(42)

	out, err := svc.Ingest(context.Background(), baseRequest(firmID))
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
	assert.False(t, out.Deduplicated)
	require.NotZero(t, out.LeadID)

	got, err := svc.GetLead(context.Background(), firmID, out.LeadID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, got.Lead.Status)
	assert.Equal(t, domain.CategoryMotorVehicle, got.Lead.Category)
	assert.Equal(t, "call-001", got.Lead.IdempotencyKey)
	assert.Equal(t, "call-001", got.Lead.CallRef)

	require.NotNil(t, got.Lead.DeadlineDate)
	assert.Equal(t, 2029, got.Lead.DeadlineDate.Year())
	assert.True(t, got.Lead.WithinDeadline)

	require.NotNil(t, got.Incident)
	assert.Equal(t, "Mission St & 5th", got.Incident.Location)
	assert.True(t, got.Incident.MediaEvidence)

	var contact contactdomain.Contact
	require.NoError(t, db.Where("firm_id = ?", firmID).First(&contact).Error)
	assert.Equal(t, "14155550199", contact.Phone)
	assert.Equal(t, contact.ID, got.Lead.ContactID)
}

func TestIngest_RetryReturnsOriginalLead(t *testing.T) {
	svc, db := newTestService(t)
	firmID := snowflake.ID(42)

	first, err := svc.Ingest(context.Background(), baseRequest(firmID))
	require.NoError(t, err)

	// Retry with the same call id but different content.
	retry := baseRequest(firmID)
	retry.Incident.Description = "Completely different story."
	second, err := svc.Ingest(context.Background(), retry)
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.LeadID, second.LeadID)

	var leadCount, incidentCount int64
	require.NoError(t, db.Model(&domain.Lead{}).Count(&leadCount).Error)
	require.NoError(t, db.Model(&domain.Incident{}).Count(&incidentCount).Error)
	assert.EqualValues(t, 1, leadCount)
	assert.EqualValues(t, 1, incidentCount)
}

func TestIngest_RetryRefreshesContactDetails(t *testing.T) {
	svc, db := newTestService(t)
	firmID := snowflake.ID(42)

	first := baseRequest(firmID)
	first.Caller.Email = ""
	_, err := svc.Ingest(context.Background(), first)
	require.NoError(t, err)

	// The retried delivery carries details missing the first time.
	retry := baseRequest(firmID)
	retry.Caller.Email = "dana@example.com"
	retry.Caller.FullName = "Dana Whitfield-Jones"
	out, err := svc.Ingest(context.Background(), retry)
	require.NoError(t, err)
	assert.True(t, out.Deduplicated)

	var contact contactdomain.Contact
	require.NoError(t, db.Where("firm_id = ?", firmID).First(&contact).Error)
	assert.Equal(t, "dana@example.com", contact.Email)
	assert.Equal(t, "Dana Whitfield-Jones", contact.FullName)

	var leadCount int64
	require.NoError(t, db.Model(&domain.Lead{}).Count(&leadCount).Error)
	assert.EqualValues(t, 1, leadCount)
}

func TestIngest_SameKeyDifferentFirms(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.Ingest(context.Background(), baseRequest(snowflake.ID(1)))
	require.NoError(t, err)
	b, err := svc.Ingest(context.Background(), baseRequest(snowflake.ID(2)))
	require.NoError(t, err)

	assert.False(t, b.Deduplicated)
	assert.NotEqual(t, a.LeadID, b.LeadID)
}

func TestIngest_IdempotencyHeaderBeatsCallID(t *testing.T) {
	svc, _ := newTestService(t)
	firmID := snowflake.ID(42)

	req := baseRequest(firmID)
	req.IdempotencyKey = "delivery-9"
	first, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	req2 := baseRequest(firmID)
	req2.IdempotencyKey = "delivery-9"
	req2.CallID = "call-other"
	second, err := svc.Ingest(context.Background(), req2)
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.LeadID, second.LeadID)
}

func TestIngest_MissingKeyRejected(t *testing.T) {
	svc, _ := newTestService(t)

	req := baseRequest(snowflake.ID(42))
	req.CallID = ""
	_, err := svc.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrMissingIdempotency)
}

func TestIngest_UnknownCategoryCoerced(t *testing.T) {
	svc, _ := newTestService(t)
	firmID := snowflake.ID(42)

	req := baseRequest(firmID)
	req.Category = "SPACE_LAW"
	out, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	got, err := svc.GetLead(context.Background(), firmID, out.LeadID)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryOther, got.Lead.Category)
}

func TestIngest_BadDateRejected(t *testing.T) {
	svc, _ := newTestService(t)

	req := baseRequest(snowflake.ID(42))
	req.Incident.Date = "last tuesday"
	_, err := svc.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestIngest_ExplicitDeadlineWins(t *testing.T) {
	svc, _ := newTestService(t)
	firmID := snowflake.ID(42)

	req := baseRequest(firmID)
	req.SOLDate = "2026-09-20"
	out, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	got, err := svc.GetLead(context.Background(), firmID, out.LeadID)
	require.NoError(t, err)
	require.NotNil(t, got.Lead.DeadlineDate)
	assert.Equal(t, "2026-09-20", got.Lead.DeadlineDate.Format("2006-01-02"))
	// A tight explicit deadline drives urgency up.
	assert.GreaterOrEqual(t, got.Lead.UrgencyScore, 4)
	assert.Contains(t, got.Lead.UrgencyRationale, "SOL in ")
}

func TestIngest_TranscriptChecksum(t *testing.T) {
	svc, _ := newTestService(t)
	firmID := snowflake.ID(42)

	structured := []byte(`{"turns":[{"role":"caller","text":"hello"}]}`)
	req := baseRequest(firmID)
	req.Transcript = &domain.TranscriptInput{
		Raw:        "caller: hello",
		Structured: structured,
	}

	out, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	transcripts, err := svc.ListTranscripts(context.Background(), firmID, out.LeadID)
	require.NoError(t, err)
	require.Len(t, transcripts, 1)

	h := sha256.New()
	h.Write([]byte("caller: hello"))
	h.Write(structured)
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), transcripts[0].Checksum)

	// Same raw, different structured payload yields a different checksum.
	other := transcriptChecksum("caller: hello", []byte(`{"turns":[]}`))
	assert.NotEqual(t, transcripts[0].Checksum, other)
}

func TestListLeads_CursorPagination(t *testing.T) {
	svc, _ := newTestService(t)
	firmID := snowflake.ID(42)

	for i := 0; i < 5; i++ {
		req := baseRequest(firmID)
		req.CallID = "call-" + string(rune('a'+i))
		_, err := svc.Ingest(context.Background(), req)
		require.NoError(t, err)
	}

	filter := domain.ListLeadsFilter{FirmID: firmID}
	page1, err := svc.ListLeads(context.Background(), filter, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1.Leads, 2)
	assert.True(t, page1.PageInfo.HasMore)
	assert.Equal(t, "LOW", page1.Leads[0].RiskBadge)

	page2, err := svc.ListLeads(context.Background(), filter, pagination.Pagination{
		PageSize:  2,
		PageToken: page1.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page2.Leads, 2)
	assert.True(t, page2.PageInfo.HasMore)

	// Newest first, no overlap across pages.
	assert.Greater(t, int64(page1.Leads[0].ID), int64(page1.Leads[1].ID))
	assert.Greater(t, int64(page1.Leads[1].ID), int64(page2.Leads[0].ID))

	page3, err := svc.ListLeads(context.Background(), filter, pagination.Pagination{
		PageSize:  2,
		PageToken: page2.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page3.Leads, 1)
	assert.False(t, page3.PageInfo.HasMore)
}
