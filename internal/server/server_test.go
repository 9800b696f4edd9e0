package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/config"
	contactdomain "github.com/firmline/firmline/internal/contact/domain"
	contactrepo "github.com/firmline/firmline/internal/contact/repository"
	contactservice "github.com/firmline/firmline/internal/contact/service"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	firmrepo "github.com/firmline/firmline/internal/firm/repository"
	firmservice "github.com/firmline/firmline/internal/firm/service"
	intakedomain "github.com/firmline/firmline/internal/intake/domain"
	intakerepo "github.com/firmline/firmline/internal/intake/repository"
	intakeservice "github.com/firmline/firmline/internal/intake/service"
	knowledgedomain "github.com/firmline/firmline/internal/knowledge/domain"
	knowledgerepo "github.com/firmline/firmline/internal/knowledge/repository"
	knowledgeservice "github.com/firmline/firmline/internal/knowledge/service"
	"github.com/firmline/firmline/internal/observability"
	"github.com/firmline/firmline/internal/providers/agent"
	"github.com/firmline/firmline/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWebhookToken = "test-webhook-secret"

func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB, firmdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	cfg := config.Config{
		PublicURL:     "https://intake.example.com",
		WebhookToken:  testWebhookToken,
		DefaultFirmID: 100,
	}
	log := zap.NewNop()

	firms := firmservice.New(firmservice.Params{DB: db, Log: log, Repo: firmrepo.Provide()})
	contacts := contactservice.New(contactservice.Params{Log: log, GenID: node, Repo: contactrepo.Provide()})
	intakes := intakeservice.New(intakeservice.Params{
		DB: db, Log: log, GenID: node, Repo: intakerepo.Provide(), Contacts: contacts,
	})
	knowledges := knowledgeservice.New(knowledgeservice.Params{
		Config: cfg, DB: db, Log: log, GenID: node,
		Repo: knowledgerepo.Provide(), Firms: firms, Agent: agent.New(cfg, log),
	})

	params := Params{
		Config:    cfg,
		ObsConfig: observability.Config{},
		Log:       log,
		Limiter:   ratelimit.NewNoop(),
		Firms:     firms,
		Intake:    intakes,
		Knowledge: knowledges,
	}
	engine := NewEngine(params, New(params))

	now := time.Now().UTC()
	require.NoError(t, db.Create(&firmdomain.Firm{
		ID: 100, Name: "Default Firm", Slug: "default", CreatedAt: now, UpdatedAt: now,
	}).Error)

	return engine, db, firms
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func intakePayload(callID string) map[string]interface{} {
	return map[string]interface{}{
		"call_id": callID,
		"caller": map[string]interface{}{
			"full_name": "Dana Whitfield",
			"phone":     "+1 (415) 555-0199",
		},
		"category": "MOTOR_VEHICLE",
		"incident": map[string]interface{}{
			"date":        "2026-02-01",
			"description": "Rear-ended at a stop light.",
		},
	}
}

func TestIntakeVoice_Unauthorized(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	w := doJSON(t, engine, http.MethodPost, "/api/intake/voice", "", intakePayload("c1"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/intake/voice", "wrong-token", intakePayload("c1"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIntakeVoice_CreatedAndDeduplicated(t *testing.T) {
	engine, db, _ := newTestEngine(t)

	w := doJSON(t, engine, http.MethodPost, "/api/intake/voice", testWebhookToken, intakePayload("c1"), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Status string `json:"status"`
		LeadID string `json:"lead_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.LeadID)

	// The same delivery again returns the same lead.
	w = doJSON(t, engine, http.MethodPost, "/api/intake/voice", testWebhookToken, intakePayload("c1"), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp2 struct {
		LeadID string `json:"lead_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp2))
	assert.Equal(t, resp.LeadID, resp2.LeadID)

	var count int64
	require.NoError(t, db.Model(&intakedomain.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestIntakeVoice_IdempotencyKeyHeader(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	headers := map[string]string{"Idempotency-Key": "delivery-1"}
	w := doJSON(t, engine, http.MethodPost, "/api/intake/voice", testWebhookToken, intakePayload("c1"), headers)
	require.Equal(t, http.StatusCreated, w.Code)
	var first struct {
		LeadID string `json:"lead_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	// Different call id, same delivery key.
	w = doJSON(t, engine, http.MethodPost, "/api/intake/voice", testWebhookToken, intakePayload("c2"), headers)
	require.Equal(t, http.StatusCreated, w.Code)
	var second struct {
		LeadID string `json:"lead_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.LeadID, second.LeadID)
}

func TestIntakeVoice_InvalidPayload(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	payload := intakePayload("c1")
	delete(payload, "caller")
	w := doJSON(t, engine, http.MethodPost, "/api/intake/voice", testWebhookToken, payload, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
}

func TestKnowledge_PublicReadAndCacheHeader(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/knowledge/100", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	var doc struct {
		SchemaVersion  string `json:"schema_version"`
		KnowledgeURL   string `json:"knowledge_url"`
		GlobalPolicies struct {
			Disclaimer []string `json:"disclaimer"`
		} `json:"global_policies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, knowledgedomain.SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "https://intake.example.com/api/knowledge/100", doc.KnowledgeURL)
	assert.NotEmpty(t, doc.GlobalPolicies.Disclaimer)
}

func TestKnowledge_TokenGating(t *testing.T) {
	engine, _, firms := newTestEngine(t)

	out, err := firms.UpdateKnowledgeToken(t.Context(), firmdomain.UpdateTokenRequest{
		FirmID: snowflake.ID(100),
		Action: firmdomain.TokenActionEnable,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.KnowledgeToken)

	w := doJSON(t, engine, http.MethodGet, "/api/knowledge/100", "", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/knowledge/100?token=wrong", "", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/knowledge/100?token="+out.KnowledgeToken, "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKnowledge_UnknownFirm(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/knowledge/999", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKnowledgeToken_Endpoint(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body := map[string]string{"action": "enable", "actor": "ops@example.com"}
	w := doJSON(t, engine, http.MethodPost, "/api/knowledge/token", testWebhookToken, body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		KnowledgeToken string `json:"knowledge_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.KnowledgeToken)

	// Disable clears it.
	body["action"] = "disable"
	w = doJSON(t, engine, http.MethodPost, "/api/knowledge/token", testWebhookToken, body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cleared struct {
		KnowledgeToken string `json:"knowledge_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cleared))
	assert.Empty(t, cleared.KnowledgeToken)
}

func TestPracticeAreaEndpoints(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body := map[string]interface{}{
		"name":        "Employment Law",
		"description": "Workplace disputes.",
	}
	w := doJSON(t, engine, http.MethodPost, "/api/knowledge/practice-areas", testWebhookToken, body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var area struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &area))
	assert.Equal(t, "Employment Law", area.Name)
	require.NotEmpty(t, area.ID)

	ct := map[string]interface{}{
		"name":          "Wage Theft",
		"practice_area": "Employment Law",
		"category":      "EMPLOYMENT",
	}
	w = doJSON(t, engine, http.MethodPost, "/api/knowledge/case-types", testWebhookToken, ct, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A case type under an unknown practice area is rejected.
	ct["name"] = "Unmoored"
	ct["practice_area"] = "does_not_exist"
	w = doJSON(t, engine, http.MethodPost, "/api/knowledge/case-types", testWebhookToken, ct, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/api/knowledge/practice-areas/"+area.ID, testWebhookToken, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/api/knowledge/practice-areas/"+area.ID, testWebhookToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeads_ReadAPI(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	w := doJSON(t, engine, http.MethodPost, "/api/intake/voice", testWebhookToken, intakePayload("c1"), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		LeadID string `json:"lead_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, engine, http.MethodGet, "/api/leads", testWebhookToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Leads []struct {
			Category  string `json:"category"`
			RiskBadge string `json:"risk_badge"`
		} `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Leads, 1)
	assert.Equal(t, "MOTOR_VEHICLE", list.Leads[0].Category)
	assert.NotEmpty(t, list.Leads[0].RiskBadge)

	w = doJSON(t, engine, http.MethodGet, "/api/leads/"+created.LeadID, testWebhookToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/leads/"+created.LeadID+"/transcripts", testWebhookToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/leads/12345", testWebhookToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
