package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/config"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	firmrepo "github.com/firmline/firmline/internal/firm/repository"
	firmservice "github.com/firmline/firmline/internal/firm/service"
	"github.com/firmline/firmline/internal/knowledge/domain"
	"github.com/firmline/firmline/internal/knowledge/repository"
	"github.com/firmline/firmline/internal/providers/agent"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   domain.Service
	firms firmdomain.Service
	db    *gorm.DB
}

func newTestEnv(t *testing.T, cfg config.Config) testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&firmdomain.Firm{},
		&firmdomain.FirmSettings{},
		&domain.GlobalPolicy{},
		&domain.CallFlowStep{},
		&domain.DecisionLogic{},
		&domain.DataModelFields{},
		&domain.DeadlineRule{},
		&domain.EscalationRule{},
		&domain.Scenario{},
		&domain.ScenarioQuestion{},
		&domain.PracticeArea{},
		&domain.CaseType{},
		&domain.Script{},
		&domain.OutputContract{},
		&domain.KnowledgeSnapshot{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	firms := firmservice.New(firmservice.Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: firmrepo.Provide(),
	})

	svc := New(Params{
		Config: cfg,
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Firms:  firms,
		Agent:  agent.New(cfg, zap.NewNop()),
	})
	return testEnv{svc: svc, firms: firms, db: db}
}

func createFirm(t *testing.T, db *gorm.DB, id snowflake.ID) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&firmdomain.Firm{
		ID:        id,
		Name:      "Hartwell & Price LLP",
		Slug:      "hartwell-price",
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func TestCompile_MissingFirm(t *testing.T) {
	env := newTestEnv(t, config.Config{})

	_, err := env.svc.Compile(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, firmdomain.ErrNotFound)
}

func TestCompile_EmptyTenantEmitsAllGroups(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(10)
	createFirm(t, env.db, firmID)

	doc, err := env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)

	// Policy groups are always present, even with no configuration.
	assert.NotNil(t, doc.GlobalPolicies.Disclaimer)
	assert.NotNil(t, doc.GlobalPolicies.PIISecurity)
	assert.NotNil(t, doc.GlobalPolicies.TriagePriorityRules)
	assert.NotNil(t, doc.GlobalPolicies.HandoffProtocol.Criteria)
	assert.Empty(t, doc.GlobalPolicies.Disclaimer)
	assert.Empty(t, doc.CoreCallFlow)
	assert.Nil(t, doc.Scenarios)
	assert.NotZero(t, doc.Version)
}

func TestGetDocument_SeedsAndCompiles(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(11)
	createFirm(t, env.db, firmID)

	doc, err := env.svc.GetDocument(context.Background(), firmID)
	require.NoError(t, err)

	assert.Equal(t, domain.SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, domain.DocumentPurpose, doc.Purpose)
	assert.NotEmpty(t, doc.GlobalPolicies.Disclaimer)
	assert.NotEmpty(t, doc.GlobalPolicies.HandoffProtocol.Action)
	assert.NotEmpty(t, doc.CoreCallFlow)
	assert.Equal(t, "greeting", doc.CoreCallFlow[0].ID)
	assert.Contains(t, doc.SOLRules, "MOTOR_VEHICLE")
	assert.NotEmpty(t, doc.Escalations)
	assert.Contains(t, doc.Scenarios, "rear_end_collision")
	assert.Len(t, doc.Scenarios["rear_end_collision"].Questions, 3)
	assert.Contains(t, doc.Scripts, "no_legal_advice")
	require.NotNil(t, doc.OutputContract)
	assert.NotEmpty(t, doc.OutputContract.SummaryTemplate)

	require.NotEmpty(t, doc.PracticeAreas)
	assert.Equal(t, "Personal Injury", doc.PracticeAreas[0].Name)
	require.NotEmpty(t, doc.CaseTypes)
	assert.Equal(t, "Car Accident", doc.CaseTypes[0].Name)
	assert.Equal(t, "Personal Injury", doc.CaseTypes[0].PracticeArea)
}

func TestSeed_PolicyOrderRestartsPerGroup(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(19)
	createFirm(t, env.db, firmID)
	require.NoError(t, env.svc.EnsureSeeded(context.Background(), firmID))

	// Each group numbers its lines from 1 independently.
	for _, group := range []domain.PolicyGroup{
		domain.PolicyGroupDisclaimer,
		domain.PolicyGroupPIISecurity,
		domain.PolicyGroupTriagePriority,
		domain.PolicyGroupHandoffCriteria,
	} {
		var first domain.GlobalPolicy
		require.NoError(t, env.db.
			Where("firm_id = ? AND policy_group = ?", firmID, group).
			Order("display_order ASC, id ASC").
			First(&first).Error, string(group))
		assert.Equal(t, 1, first.DisplayOrder, string(group))
	}
}

func TestCompile_StableModuloVersion(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(12)
	createFirm(t, env.db, firmID)
	require.NoError(t, env.svc.EnsureSeeded(context.Background(), firmID))

	a, err := env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)
	b, err := env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)

	assert.Greater(t, b.Version, a.Version)

	// Byte-stable apart from version and timestamp.
	a.Version, b.Version = 0, 0
	a.GeneratedAt, b.GeneratedAt = "", ""
	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestCompile_SnapshotsAccumulate(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(13)
	createFirm(t, env.db, firmID)

	_, err := env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)
	_, err = env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&domain.KnowledgeSnapshot{}).
		Where("firm_id = ?", firmID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestEdits_FlowIntoDocument(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(14)
	createFirm(t, env.db, firmID)
	require.NoError(t, env.svc.EnsureSeeded(context.Background(), firmID))

	_, err := env.svc.UpsertPolicy(context.Background(), domain.UpsertPolicyRequest{
		FirmID:       firmID,
		Group:        domain.PolicyGroupDisclaimer,
		Text:         "Calls may be recorded for quality review.",
		DisplayOrder: 99,
	})
	require.NoError(t, err)

	scenario, err := env.svc.UpsertScenario(context.Background(), domain.UpsertScenarioRequest{
		FirmID:               firmID,
		Name:                 "dog_bite",
		StatuteOfLimitations: "3 years from the date of the bite",
	})
	require.NoError(t, err)
	require.NotZero(t, scenario.ID)

	_, err = env.svc.UpsertQuestion(context.Background(), domain.UpsertQuestionRequest{
		FirmID:       firmID,
		ScenarioName: "dog_bite",
		Text:         "Do you know who owns the animal?",
		DisplayOrder: 1,
	})
	require.NoError(t, err)

	_, err = env.svc.UpsertDeadlineRule(context.Background(), domain.UpsertDeadlineRuleRequest{
		FirmID:   firmID,
		Category: "PREMISES",
		Rules:    []byte(`{"years":2,"notes":"Shortened by municipal notice rules."}`),
	})
	require.NoError(t, err)

	doc, err := env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)

	assert.Contains(t, doc.GlobalPolicies.Disclaimer, "Calls may be recorded for quality review.")
	require.Contains(t, doc.Scenarios, "dog_bite")
	assert.Equal(t, []string{"Do you know who owns the animal?"}, doc.Scenarios["dog_bite"].Questions)
	assert.JSONEq(t, `{"years":2,"notes":"Shortened by municipal notice rules."}`, string(doc.SOLRules["PREMISES"]))
}

func TestPracticeAreaEdits_FlowIntoDocument(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(21)
	createFirm(t, env.db, firmID)
	require.NoError(t, env.svc.EnsureSeeded(context.Background(), firmID))

	area, err := env.svc.UpsertPracticeArea(context.Background(), domain.UpsertPracticeAreaRequest{
		FirmID:       firmID,
		Name:         "Medical Malpractice",
		Description:  "Surgical and diagnostic negligence claims.",
		DisplayOrder: 3,
	})
	require.NoError(t, err)
	require.NotZero(t, area.ID)

	caseType, err := env.svc.UpsertCaseType(context.Background(), domain.UpsertCaseTypeRequest{
		FirmID:       firmID,
		Name:         "Birth Injury",
		PracticeArea: "Medical Malpractice",
		Category:     "MEDICAL",
	})
	require.NoError(t, err)

	doc, err := env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)

	areaNames := make([]string, 0, len(doc.PracticeAreas))
	for _, a := range doc.PracticeAreas {
		areaNames = append(areaNames, a.Name)
	}
	assert.Contains(t, areaNames, "Medical Malpractice")

	var birthInjury *domain.CaseTypeDoc
	for i := range doc.CaseTypes {
		if doc.CaseTypes[i].Name == "Birth Injury" {
			birthInjury = &doc.CaseTypes[i]
		}
	}
	require.NotNil(t, birthInjury)
	assert.Equal(t, "Medical Malpractice", birthInjury.PracticeArea)
	assert.Equal(t, "MEDICAL", birthInjury.Category)

	// Deleting the case type drops it from the next compile.
	require.NoError(t, env.svc.DeleteCaseType(context.Background(), firmID, caseType.ID))
	doc, err = env.svc.Compile(context.Background(), firmID)
	require.NoError(t, err)
	for _, ct := range doc.CaseTypes {
		assert.NotEqual(t, "Birth Injury", ct.Name)
	}
}

func TestUpsertCaseType_UnknownPracticeArea(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(22)
	createFirm(t, env.db, firmID)

	_, err := env.svc.UpsertCaseType(context.Background(), domain.UpsertCaseTypeRequest{
		FirmID:       firmID,
		Name:         "Orphaned",
		PracticeArea: "does_not_exist",
	})
	assert.ErrorIs(t, err, domain.ErrPracticeAreaNotFound)
}

func TestDeletePracticeArea_NotFound(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(23)
	createFirm(t, env.db, firmID)

	err := env.svc.DeletePracticeArea(context.Background(), firmID, snowflake.ID(404))
	assert.ErrorIs(t, err, domain.ErrPracticeAreaNotFound)
}

func TestUpsertQuestion_UnknownScenario(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	firmID := snowflake.ID(15)
	createFirm(t, env.db, firmID)

	_, err := env.svc.UpsertQuestion(context.Background(), domain.UpsertQuestionRequest{
		FirmID:       firmID,
		ScenarioName: "does_not_exist",
		Text:         "Anything?",
	})
	assert.ErrorIs(t, err, domain.ErrScenarioNotFound)
}

func TestKnowledgeURL_IncludesTokenWhenSet(t *testing.T) {
	env := newTestEnv(t, config.Config{PublicURL: "https://intake.example.com/"})
	firmID := snowflake.ID(16)
	createFirm(t, env.db, firmID)

	plain, err := env.svc.KnowledgeURL(context.Background(), firmID)
	require.NoError(t, err)
	assert.Equal(t, "https://intake.example.com/api/knowledge/16", plain)

	out, err := env.firms.UpdateKnowledgeToken(context.Background(), firmdomain.UpdateTokenRequest{
		FirmID: firmID,
		Action: firmdomain.TokenActionEnable,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.KnowledgeToken)

	gated, err := env.svc.KnowledgeURL(context.Background(), firmID)
	require.NoError(t, err)
	assert.Equal(t, plain+"?token="+out.KnowledgeToken, gated)
}

func TestSync_PushesKnowledgeURL(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := config.Config{
		PublicURL:       "https://intake.example.com",
		AgentAPIBaseURL: ts.URL,
		AgentAPIKey:     "default-key",
	}
	env := newTestEnv(t, cfg)
	firmID := snowflake.ID(17)
	createFirm(t, env.db, firmID)
	require.NoError(t, env.db.Create(&firmdomain.FirmSettings{
		FirmID:    firmID,
		AgentID:   "agent-123",
		UpdatedAt: time.Now().UTC(),
	}).Error)

	res, err := env.svc.Sync(context.Background(), firmID)
	require.NoError(t, err)

	assert.Equal(t, "/v1/agents/agent-123", gotPath)
	assert.Equal(t, "default-key", gotKey)
	assert.Equal(t, "https://intake.example.com/api/knowledge/17", gotBody["knowledge_url"])
	assert.Equal(t, res.KnowledgeURL, gotBody["knowledge_url"])
	assert.NotZero(t, res.Version)
}

func TestSync_AgentRejectionSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	env := newTestEnv(t, config.Config{
		PublicURL:       "https://intake.example.com",
		AgentAPIBaseURL: ts.URL,
	})
	firmID := snowflake.ID(18)
	createFirm(t, env.db, firmID)
	require.NoError(t, env.db.Create(&firmdomain.FirmSettings{
		FirmID:    firmID,
		AgentID:   "agent-456",
		UpdatedAt: time.Now().UTC(),
	}).Error)

	_, err := env.svc.Sync(context.Background(), firmID)
	assert.ErrorIs(t, err, agent.ErrAgentAPIRejected)

	// The snapshot still landed despite the failed push.
	var count int64
	require.NoError(t, env.db.Model(&domain.KnowledgeSnapshot{}).
		Where("firm_id = ?", firmID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
