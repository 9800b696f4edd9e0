package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/cache"
	"github.com/firmline/firmline/internal/config"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	"github.com/firmline/firmline/internal/knowledge/domain"
	"github.com/firmline/firmline/internal/observability/metrics"
	"github.com/firmline/firmline/internal/providers/agent"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const documentCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Firms   firmdomain.Service
	Agent   *agent.Client
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	firms   firmdomain.Service
	agent   *agent.Client
	metrics *metrics.Metrics
	cache   *cache.TTLCache[snowflake.ID, domain.Document]
}

func New(p Params) domain.Service {
	return &Service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("knowledge.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		firms:   p.Firms,
		agent:   p.Agent,
		metrics: p.Metrics,
		cache:   cache.NewTTLCache[snowflake.ID, domain.Document](documentCacheTTL),
	}
}

// Compile assembles the firm's configuration into a document and
// records an immutable snapshot. Missing sections are tolerated; only
// a missing firm is an error.
func (s *Service) Compile(ctx context.Context, firmID snowflake.ID) (domain.Document, error) {
	if _, err := s.firms.GetByID(ctx, firmID); err != nil {
		return domain.Document{}, err
	}

	doc, err := s.build(ctx, firmID)
	if err != nil {
		return domain.Document{}, err
	}

	version := time.Now().UnixMilli()
	latest, err := s.repo.FindLatestSnapshot(ctx, s.db, firmID)
	if err != nil {
		return domain.Document{}, err
	}
	if latest != nil && version <= latest.Version {
		version = latest.Version + 1
	}

	doc.Version = version
	doc.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.Document{}, err
	}
	snapshot := domain.KnowledgeSnapshot{
		ID:          s.genID.Generate(),
		FirmID:      firmID,
		Version:     version,
		Document:    raw,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertSnapshot(ctx, s.db, &snapshot); err != nil {
		return domain.Document{}, err
	}

	s.cache.Set(firmID, doc)
	s.metrics.RecordKnowledgeCompiled(ctx)
	s.log.Info("knowledge compiled",
		zap.String("firm_id", firmID.String()),
		zap.Int64("version", version),
	)
	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, firmID snowflake.ID) (domain.Document, error) {
	if doc, ok := s.cache.Get(firmID); ok {
		return doc, nil
	}
	if err := s.EnsureSeeded(ctx, firmID); err != nil {
		return domain.Document{}, err
	}
	return s.Compile(ctx, firmID)
}

func (s *Service) KnowledgeURL(ctx context.Context, firmID snowflake.ID) (string, error) {
	settings, err := s.firms.GetSettings(ctx, firmID)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(s.cfg.PublicURL, "/")
	knowledgeURL := fmt.Sprintf("%s/api/knowledge/%s", base, firmID)
	if settings.KnowledgeToken != "" {
		knowledgeURL += "?token=" + url.QueryEscape(settings.KnowledgeToken)
	}
	return knowledgeURL, nil
}

// Sync compiles the document and points the agent platform at it. The
// snapshot persists regardless of the push outcome.
func (s *Service) Sync(ctx context.Context, firmID snowflake.ID) (domain.SyncResult, error) {
	if err := s.EnsureSeeded(ctx, firmID); err != nil {
		return domain.SyncResult{}, err
	}
	doc, err := s.Compile(ctx, firmID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	knowledgeURL, err := s.KnowledgeURL(ctx, firmID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	settings, err := s.firms.GetSettings(ctx, firmID)
	if err != nil {
		return domain.SyncResult{}, err
	}

	if err := s.agent.UpdateKnowledgeURL(ctx, settings.AgentID, settings.AgentAPIKey, knowledgeURL); err != nil {
		s.metrics.RecordAgentSyncFailed(ctx)
		return domain.SyncResult{}, err
	}

	s.log.Info("knowledge synced to agent",
		zap.String("firm_id", firmID.String()),
		zap.Int64("version", doc.Version),
	)
	return domain.SyncResult{KnowledgeURL: knowledgeURL, Version: doc.Version}, nil
}

func (s *Service) EnsureSeeded(ctx context.Context, firmID snowflake.ID) error {
	if _, err := s.firms.GetByID(ctx, firmID); err != nil {
		return err
	}
	count, err := s.repo.CountCallFlowSteps(ctx, s.db, firmID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.seed(ctx, firmID)
}

func (s *Service) UpsertPolicy(ctx context.Context, req domain.UpsertPolicyRequest) (domain.GlobalPolicy, error) {
	if !domain.ValidPolicyGroup(req.Group) {
		return domain.GlobalPolicy{}, domain.ErrInvalidPolicyGroup
	}
	if strings.TrimSpace(req.Text) == "" {
		return domain.GlobalPolicy{}, domain.ErrInvalidPolicyGroup
	}

	now := time.Now().UTC()
	policy := domain.GlobalPolicy{
		ID:           req.PolicyID,
		FirmID:       req.FirmID,
		Group:        req.Group,
		Text:         strings.TrimSpace(req.Text),
		DisplayOrder: req.DisplayOrder,
		UpdatedAt:    now,
	}
	if policy.ID == 0 {
		policy.ID = s.genID.Generate()
		policy.CreatedAt = now
	}
	if err := s.repo.UpsertPolicy(ctx, s.db, &policy); err != nil {
		return domain.GlobalPolicy{}, err
	}
	s.TriggerRecompile(req.FirmID)
	return policy, nil
}

func (s *Service) DeletePolicy(ctx context.Context, firmID, policyID snowflake.ID) error {
	deleted, err := s.repo.DeletePolicy(ctx, s.db, firmID, policyID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrPolicyNotFound
	}
	s.TriggerRecompile(firmID)
	return nil
}

func (s *Service) UpsertScenario(ctx context.Context, req domain.UpsertScenarioRequest) (domain.Scenario, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Scenario{}, domain.ErrInvalidScenario
	}

	now := time.Now().UTC()
	scenario := domain.Scenario{
		ID:                   s.genID.Generate(),
		FirmID:               req.FirmID,
		Name:                 name,
		StatuteOfLimitations: strings.TrimSpace(req.StatuteOfLimitations),
		Data:                 req.Data,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.UpsertScenario(ctx, s.db, &scenario); err != nil {
		return domain.Scenario{}, err
	}
	// The upsert may have kept an earlier row; read back the winner.
	stored, err := s.repo.FindScenarioByName(ctx, s.db, req.FirmID, name)
	if err != nil {
		return domain.Scenario{}, err
	}
	if stored != nil {
		scenario = *stored
	}
	s.TriggerRecompile(req.FirmID)
	return scenario, nil
}

func (s *Service) UpsertQuestion(ctx context.Context, req domain.UpsertQuestionRequest) (domain.ScenarioQuestion, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.ScenarioQuestion{}, domain.ErrInvalidScenario
	}

	now := time.Now().UTC()
	if req.QuestionID != 0 {
		existing, err := s.repo.FindQuestion(ctx, s.db, req.FirmID, req.QuestionID)
		if err != nil {
			return domain.ScenarioQuestion{}, err
		}
		if existing == nil {
			return domain.ScenarioQuestion{}, domain.ErrQuestionNotFound
		}
		existing.Text = strings.TrimSpace(req.Text)
		existing.DisplayOrder = req.DisplayOrder
		existing.UpdatedAt = now
		if err := s.repo.UpdateQuestion(ctx, s.db, existing); err != nil {
			return domain.ScenarioQuestion{}, err
		}
		s.TriggerRecompile(req.FirmID)
		return *existing, nil
	}

	scenario, err := s.repo.FindScenarioByName(ctx, s.db, req.FirmID, strings.TrimSpace(req.ScenarioName))
	if err != nil {
		return domain.ScenarioQuestion{}, err
	}
	if scenario == nil {
		return domain.ScenarioQuestion{}, domain.ErrScenarioNotFound
	}

	question := domain.ScenarioQuestion{
		ID:           s.genID.Generate(),
		FirmID:       req.FirmID,
		ScenarioID:   scenario.ID,
		Text:         strings.TrimSpace(req.Text),
		DisplayOrder: req.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertQuestion(ctx, s.db, &question); err != nil {
		return domain.ScenarioQuestion{}, err
	}
	s.TriggerRecompile(req.FirmID)
	return question, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, firmID, questionID snowflake.ID) error {
	deleted, err := s.repo.DeleteQuestion(ctx, s.db, firmID, questionID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrQuestionNotFound
	}
	s.TriggerRecompile(firmID)
	return nil
}

func (s *Service) UpsertDeadlineRule(ctx context.Context, req domain.UpsertDeadlineRuleRequest) (domain.DeadlineRule, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" || len(req.Rules) == 0 {
		return domain.DeadlineRule{}, domain.ErrInvalidRule
	}
	if !json.Valid(req.Rules) {
		return domain.DeadlineRule{}, domain.ErrInvalidRule
	}

	now := time.Now().UTC()
	rule := domain.DeadlineRule{
		ID:        s.genID.Generate(),
		FirmID:    req.FirmID,
		Category:  category,
		Rules:     req.Rules,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertDeadlineRule(ctx, s.db, &rule); err != nil {
		return domain.DeadlineRule{}, err
	}
	s.TriggerRecompile(req.FirmID)
	return rule, nil
}

func (s *Service) UpsertPracticeArea(ctx context.Context, req domain.UpsertPracticeAreaRequest) (domain.PracticeArea, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PracticeArea{}, domain.ErrInvalidPracticeArea
	}

	now := time.Now().UTC()
	area := domain.PracticeArea{
		ID:           s.genID.Generate(),
		FirmID:       req.FirmID,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		DisplayOrder: req.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertPracticeArea(ctx, s.db, &area); err != nil {
		return domain.PracticeArea{}, err
	}
	// The upsert may have kept an earlier row; read back the winner.
	stored, err := s.repo.FindPracticeAreaByName(ctx, s.db, req.FirmID, name)
	if err != nil {
		return domain.PracticeArea{}, err
	}
	if stored != nil {
		area = *stored
	}
	s.TriggerRecompile(req.FirmID)
	return area, nil
}

func (s *Service) DeletePracticeArea(ctx context.Context, firmID, areaID snowflake.ID) error {
	deleted, err := s.repo.DeletePracticeArea(ctx, s.db, firmID, areaID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrPracticeAreaNotFound
	}
	s.TriggerRecompile(firmID)
	return nil
}

func (s *Service) UpsertCaseType(ctx context.Context, req domain.UpsertCaseTypeRequest) (domain.CaseType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CaseType{}, domain.ErrInvalidCaseType
	}

	var areaID snowflake.ID
	if areaName := strings.TrimSpace(req.PracticeArea); areaName != "" {
		area, err := s.repo.FindPracticeAreaByName(ctx, s.db, req.FirmID, areaName)
		if err != nil {
			return domain.CaseType{}, err
		}
		if area == nil {
			return domain.CaseType{}, domain.ErrPracticeAreaNotFound
		}
		areaID = area.ID
	}

	now := time.Now().UTC()
	caseType := domain.CaseType{
		ID:             s.genID.Generate(),
		FirmID:         req.FirmID,
		PracticeAreaID: areaID,
		Name:           name,
		Category:       strings.TrimSpace(req.Category),
		DisplayOrder:   req.DisplayOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.UpsertCaseType(ctx, s.db, &caseType); err != nil {
		return domain.CaseType{}, err
	}
	stored, err := s.repo.FindCaseTypeByName(ctx, s.db, req.FirmID, name)
	if err != nil {
		return domain.CaseType{}, err
	}
	if stored != nil {
		caseType = *stored
	}
	s.TriggerRecompile(req.FirmID)
	return caseType, nil
}

func (s *Service) DeleteCaseType(ctx context.Context, firmID, caseTypeID snowflake.ID) error {
	deleted, err := s.repo.DeleteCaseType(ctx, s.db, firmID, caseTypeID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrCaseTypeNotFound
	}
	s.TriggerRecompile(firmID)
	return nil
}

// TriggerRecompile invalidates the cached document and recompiles in
// the background. A failed recompile is logged and otherwise dropped;
// the edit that triggered it has already committed.
func (s *Service) TriggerRecompile(firmID snowflake.ID) {
	s.cache.Invalidate(firmID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Compile(ctx, firmID); err != nil {
			s.log.Warn("background recompile failed",
				zap.String("firm_id", firmID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) build(ctx context.Context, firmID snowflake.ID) (domain.Document, error) {
	doc := domain.Document{
		SchemaVersion: domain.SchemaVersion,
		Purpose:       domain.DocumentPurpose,
		GlobalPolicies: domain.GlobalPoliciesSection{
			Disclaimer:          []string{},
			PIISecurity:         []string{},
			TriagePriorityRules: []string{},
			HandoffProtocol:     domain.HandoffProtocol{Criteria: []string{}},
		},
		CoreCallFlow: []domain.CallFlowStepDoc{},
		SOLRules:     map[string]json.RawMessage{},
		Escalations:  []domain.EscalationDoc{},
		Scripts:      map[string]string{},
	}

	policies, err := s.repo.ListPolicies(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	for _, p := range policies {
		switch p.Group {
		case domain.PolicyGroupDisclaimer:
			doc.GlobalPolicies.Disclaimer = append(doc.GlobalPolicies.Disclaimer, p.Text)
		case domain.PolicyGroupPIISecurity:
			doc.GlobalPolicies.PIISecurity = append(doc.GlobalPolicies.PIISecurity, p.Text)
		case domain.PolicyGroupTriagePriority:
			doc.GlobalPolicies.TriagePriorityRules = append(doc.GlobalPolicies.TriagePriorityRules, p.Text)
		case domain.PolicyGroupHandoffCriteria:
			doc.GlobalPolicies.HandoffProtocol.Criteria = append(doc.GlobalPolicies.HandoffProtocol.Criteria, p.Text)
		case domain.PolicyGroupHandoffAction:
			if doc.GlobalPolicies.HandoffProtocol.Action == "" {
				doc.GlobalPolicies.HandoffProtocol.Action = p.Text
			}
		}
	}

	steps, err := s.repo.ListCallFlowSteps(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	for _, step := range steps {
		doc.CoreCallFlow = append(doc.CoreCallFlow, domain.CallFlowStepDoc{
			ID:                 step.StepKey,
			Say:                step.Say,
			Collect:            rawOrNil(step.Collect),
			ConditionalCollect: rawOrNil(step.ConditionalCollect),
			Validate:           rawOrNil(step.Validate),
			RouteBy:            step.RouteBy,
			Choices:            rawOrNil(step.Choices),
		})
	}

	logic, err := s.repo.FindDecisionLogic(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	if logic != nil {
		doc.DecisionLogic = &domain.DecisionLogicDoc{
			Signals:       rawOrNil(logic.Signals),
			SOLCalculator: rawOrNil(logic.SOLCalculator),
			UrgencyIndex:  rawOrNil(logic.UrgencyIndex),
			EvidenceTags:  rawOrNil(logic.EvidenceTags),
		}
	}

	fields, err := s.repo.FindDataModelFields(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	if fields != nil {
		doc.DataModel = &domain.DataModelDoc{
			ContactFields:           rawOrNil(fields.ContactFields),
			IncidentFields:          rawOrNil(fields.IncidentFields),
			EmploymentFields:        rawOrNil(fields.EmploymentFields),
			MedicalFields:           rawOrNil(fields.MedicalFields),
			LitigationHistoryFields: rawOrNil(fields.LitigationHistoryFields),
			WorkLossFields:          rawOrNil(fields.WorkLossFields),
			PersonalProfileFields:   rawOrNil(fields.PersonalProfileFields),
		}
	}

	rules, err := s.repo.ListDeadlineRules(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	for _, rule := range rules {
		doc.SOLRules[rule.Category] = json.RawMessage(rule.Rules)
	}

	escalations, err := s.repo.ListEscalationRules(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	for _, rule := range escalations {
		doc.Escalations = append(doc.Escalations, domain.EscalationDoc{
			If:   rule.Condition,
			Then: rule.Action,
		})
	}

	scenarios, err := s.repo.ListScenarios(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	questions, err := s.repo.ListQuestions(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	if len(scenarios) > 0 {
		byScenario := make(map[snowflake.ID][]string)
		for _, q := range questions {
			byScenario[q.ScenarioID] = append(byScenario[q.ScenarioID], q.Text)
		}
		doc.Scenarios = make(map[string]domain.ScenarioDoc, len(scenarios))
		for _, sc := range scenarios {
			qs := byScenario[sc.ID]
			if qs == nil {
				qs = []string{}
			}
			doc.Scenarios[sc.Name] = domain.ScenarioDoc{
				StatuteOfLimitations: sc.StatuteOfLimitations,
				Questions:            qs,
				Details:              sc.Data,
			}
		}
	}

	areas, err := s.repo.ListPracticeAreas(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	areaNames := make(map[snowflake.ID]string, len(areas))
	for _, area := range areas {
		areaNames[area.ID] = area.Name
		doc.PracticeAreas = append(doc.PracticeAreas, domain.PracticeAreaDoc{
			Name:        area.Name,
			Description: area.Description,
		})
	}

	caseTypes, err := s.repo.ListCaseTypes(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	for _, ct := range caseTypes {
		doc.CaseTypes = append(doc.CaseTypes, domain.CaseTypeDoc{
			Name:         ct.Name,
			PracticeArea: areaNames[ct.PracticeAreaID],
			Category:     ct.Category,
		})
	}

	scripts, err := s.repo.ListScripts(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	for _, script := range scripts {
		doc.Scripts[script.Key] = script.Text
	}

	contract, err := s.repo.FindOutputContract(ctx, s.db, firmID)
	if err != nil {
		return doc, err
	}
	if contract != nil {
		doc.OutputContract = &domain.OutputContractDoc{
			Status:          rawOrNil(contract.Status),
			ReasonCodes:     rawOrNil(contract.ReasonCodes),
			Deliverables:    rawOrNil(contract.Deliverables),
			SummaryTemplate: contract.SummaryTemplate,
		}
	}

	return doc, nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func (s *Service) loadTemplate() (domain.Document, error) {
	raw := defaultTemplate
	if path := strings.TrimSpace(s.cfg.KnowledgeTemplatePath); path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			raw = b
		case errors.Is(err, fs.ErrNotExist):
			// No override on disk; the embedded template applies.
		default:
			return domain.Document{}, fmt.Errorf("read knowledge template: %w", err)
		}
	}
	var tpl domain.Document
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return domain.Document{}, fmt.Errorf("parse knowledge template: %w", err)
	}
	return tpl, nil
}
