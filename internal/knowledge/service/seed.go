package service

import (
	"context"
	_ "embed"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/knowledge/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed template.json
var defaultTemplate []byte

// seed populates a firm's knowledge tables from the template document
// in a single transaction. Called once per firm, when the call flow is
// still empty.
func (s *Service) seed(ctx context.Context, firmID snowflake.ID) error {
	tpl, err := s.loadTemplate()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Display order restarts at 1 within each policy group.
		insertPolicies := func(group domain.PolicyGroup, lines []string) error {
			for i, line := range lines {
				policy := domain.GlobalPolicy{
					ID:           s.genID.Generate(),
					FirmID:       firmID,
					Group:        group,
					Text:         line,
					DisplayOrder: i + 1,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := s.repo.UpsertPolicy(ctx, tx, &policy); err != nil {
					return err
				}
			}
			return nil
		}
		if err := insertPolicies(domain.PolicyGroupDisclaimer, tpl.GlobalPolicies.Disclaimer); err != nil {
			return err
		}
		if err := insertPolicies(domain.PolicyGroupPIISecurity, tpl.GlobalPolicies.PIISecurity); err != nil {
			return err
		}
		if err := insertPolicies(domain.PolicyGroupTriagePriority, tpl.GlobalPolicies.TriagePriorityRules); err != nil {
			return err
		}
		if err := insertPolicies(domain.PolicyGroupHandoffCriteria, tpl.GlobalPolicies.HandoffProtocol.Criteria); err != nil {
			return err
		}
		if action := tpl.GlobalPolicies.HandoffProtocol.Action; action != "" {
			if err := insertPolicies(domain.PolicyGroupHandoffAction, []string{action}); err != nil {
				return err
			}
		}

		for i, step := range tpl.CoreCallFlow {
			row := domain.CallFlowStep{
				ID:                 s.genID.Generate(),
				FirmID:             firmID,
				StepKey:            step.ID,
				Say:                step.Say,
				Collect:            []byte(step.Collect),
				ConditionalCollect: []byte(step.ConditionalCollect),
				Validate:           []byte(step.Validate),
				Choices:            []byte(step.Choices),
				RouteBy:            step.RouteBy,
				DisplayOrder:       i + 1,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := s.repo.UpsertCallFlowStep(ctx, tx, &row); err != nil {
				return err
			}
		}

		if tpl.DecisionLogic != nil {
			logic := domain.DecisionLogic{
				FirmID:        firmID,
				Signals:       []byte(tpl.DecisionLogic.Signals),
				SOLCalculator: []byte(tpl.DecisionLogic.SOLCalculator),
				UrgencyIndex:  []byte(tpl.DecisionLogic.UrgencyIndex),
				EvidenceTags:  []byte(tpl.DecisionLogic.EvidenceTags),
				UpdatedAt:     now,
			}
			if err := s.repo.UpsertDecisionLogic(ctx, tx, &logic); err != nil {
				return err
			}
		}

		if tpl.DataModel != nil {
			fields := domain.DataModelFields{
				FirmID:                  firmID,
				ContactFields:           []byte(tpl.DataModel.ContactFields),
				IncidentFields:          []byte(tpl.DataModel.IncidentFields),
				EmploymentFields:        []byte(tpl.DataModel.EmploymentFields),
				MedicalFields:           []byte(tpl.DataModel.MedicalFields),
				LitigationHistoryFields: []byte(tpl.DataModel.LitigationHistoryFields),
				WorkLossFields:          []byte(tpl.DataModel.WorkLossFields),
				PersonalProfileFields:   []byte(tpl.DataModel.PersonalProfileFields),
				UpdatedAt:               now,
			}
			if err := s.repo.UpsertDataModelFields(ctx, tx, &fields); err != nil {
				return err
			}
		}

		for category, rules := range tpl.SOLRules {
			rule := domain.DeadlineRule{
				ID:        s.genID.Generate(),
				FirmID:    firmID,
				Category:  category,
				Rules:     []byte(rules),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.UpsertDeadlineRule(ctx, tx, &rule); err != nil {
				return err
			}
		}

		for i, esc := range tpl.Escalations {
			rule := domain.EscalationRule{
				ID:           s.genID.Generate(),
				FirmID:       firmID,
				Condition:    esc.If,
				Action:       esc.Then,
				DisplayOrder: i + 1,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repo.UpsertEscalationRule(ctx, tx, &rule); err != nil {
				return err
			}
		}

		for name, sc := range tpl.Scenarios {
			scenario := domain.Scenario{
				ID:                   s.genID.Generate(),
				FirmID:               firmID,
				Name:                 name,
				StatuteOfLimitations: sc.StatuteOfLimitations,
				Data:                 sc.Details,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if err := s.repo.UpsertScenario(ctx, tx, &scenario); err != nil {
				return err
			}
			stored, err := s.repo.FindScenarioByName(ctx, tx, firmID, name)
			if err != nil {
				return err
			}
			scenarioID := scenario.ID
			if stored != nil {
				scenarioID = stored.ID
			}
			for i, text := range sc.Questions {
				question := domain.ScenarioQuestion{
					ID:           s.genID.Generate(),
					FirmID:       firmID,
					ScenarioID:   scenarioID,
					Text:         text,
					DisplayOrder: i + 1,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := s.repo.InsertQuestion(ctx, tx, &question); err != nil {
					return err
				}
			}
		}

		areaIDs := make(map[string]snowflake.ID, len(tpl.PracticeAreas))
		for i, area := range tpl.PracticeAreas {
			row := domain.PracticeArea{
				ID:           s.genID.Generate(),
				FirmID:       firmID,
				Name:         area.Name,
				Description:  area.Description,
				DisplayOrder: i + 1,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repo.UpsertPracticeArea(ctx, tx, &row); err != nil {
				return err
			}
			areaIDs[row.Name] = row.ID
		}

		for i, ct := range tpl.CaseTypes {
			row := domain.CaseType{
				ID:             s.genID.Generate(),
				FirmID:         firmID,
				PracticeAreaID: areaIDs[ct.PracticeArea],
				Name:           ct.Name,
				Category:       ct.Category,
				DisplayOrder:   i + 1,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.repo.UpsertCaseType(ctx, tx, &row); err != nil {
				return err
			}
		}

		for key, text := range tpl.Scripts {
			script := domain.Script{
				ID:        s.genID.Generate(),
				FirmID:    firmID,
				Key:       key,
				Text:      text,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.UpsertScript(ctx, tx, &script); err != nil {
				return err
			}
		}

		if tpl.OutputContract != nil {
			contract := domain.OutputContract{
				FirmID:          firmID,
				Status:          []byte(tpl.OutputContract.Status),
				ReasonCodes:     []byte(tpl.OutputContract.ReasonCodes),
				Deliverables:    []byte(tpl.OutputContract.Deliverables),
				SummaryTemplate: tpl.OutputContract.SummaryTemplate,
				UpdatedAt:       now,
			}
			if err := s.repo.UpsertOutputContract(ctx, tx, &contract); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("knowledge seeded", zap.String("firm_id", firmID.String()))
	return nil
}
