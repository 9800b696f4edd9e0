package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	knowledgedomain "github.com/firmline/firmline/internal/knowledge/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

func (s *Server) registerKnowledgeRoutes(r *gin.Engine) {
	r.GET("/api/knowledge/:firmID", s.handleGetKnowledge)

	auth := r.Group("/api/knowledge", WebhookAuthRequired(s.cfg.WebhookToken))
	auth.POST("/sync", s.handleKnowledgeSync)
	auth.POST("/token", s.handleKnowledgeToken)
	auth.POST("/policies", s.handleUpsertPolicy)
	auth.DELETE("/policies/:id", s.handleDeletePolicy)
	auth.POST("/scenarios", s.handleUpsertScenario)
	auth.POST("/questions", s.handleUpsertQuestion)
	auth.DELETE("/questions/:id", s.handleDeleteQuestion)
	auth.POST("/deadline-rules", s.handleUpsertDeadlineRule)
	auth.POST("/practice-areas", s.handleUpsertPracticeArea)
	auth.DELETE("/practice-areas/:id", s.handleDeletePracticeArea)
	auth.POST("/case-types", s.handleUpsertCaseType)
	auth.DELETE("/case-types/:id", s.handleDeleteCaseType)
}

type knowledgeResponse struct {
	knowledgedomain.Document
	KnowledgeURL string `json:"knowledge_url"`
}

// handleGetKnowledge serves the compiled document to the voice-agent
// platform. Access is public unless the firm has a knowledge token
// configured.
func (s *Server) handleGetKnowledge(c *gin.Context) {
	firmID, err := snowflake.ParseString(c.Param("firmID"))
	if err != nil {
		AbortWithError(c, firmdomain.ErrInvalidFirm)
		return
	}
	ctx := c.Request.Context()

	settings, err := s.firms.GetSettings(ctx, firmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if settings.KnowledgeToken != "" && !TokensEqual(c.Query("token"), settings.KnowledgeToken) {
		AbortWithError(c, ErrForbidden)
		return
	}

	doc, err := s.knowledge.GetDocument(ctx, firmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	knowledgeURL, err := s.knowledge.KnowledgeURL(ctx, firmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, knowledgeResponse{Document: doc, KnowledgeURL: knowledgeURL})
}

func (s *Server) handleKnowledgeSync(c *gin.Context) {
	var body struct {
		FirmID string `json:"firm_id"`
	}
	_ = c.ShouldBindJSON(&body)

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.knowledge.Sync(c.Request.Context(), firmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleKnowledgeToken(c *gin.Context) {
	var body struct {
		FirmID string `json:"firm_id"`
		Action string `json:"action" binding:"required"`
		Actor  string `json:"actor"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, firmdomain.ErrInvalidAction)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out, err := s.firms.UpdateKnowledgeToken(c.Request.Context(), firmdomain.UpdateTokenRequest{
		FirmID:  firmID,
		Action:  firmdomain.TokenAction(body.Action),
		ActorID: body.Actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUpsertPolicy(c *gin.Context) {
	var body struct {
		FirmID       string `json:"firm_id"`
		PolicyID     string `json:"id"`
		Group        string `json:"group" binding:"required"`
		Text         string `json:"text" binding:"required"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, knowledgedomain.ErrInvalidPolicyGroup)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var policyID snowflake.ID
	if body.PolicyID != "" {
		policyID, err = snowflake.ParseString(body.PolicyID)
		if err != nil {
			AbortWithError(c, ErrInvalidParam)
			return
		}
	}

	policy, err := s.knowledge.UpsertPolicy(c.Request.Context(), knowledgedomain.UpsertPolicyRequest{
		FirmID:       firmID,
		PolicyID:     policyID,
		Group:        knowledgedomain.PolicyGroup(body.Group),
		Text:         body.Text,
		DisplayOrder: body.DisplayOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (s *Server) handleDeletePolicy(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	policyID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}
	if err := s.knowledge.DeletePolicy(c.Request.Context(), firmID, policyID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpsertScenario(c *gin.Context) {
	var body struct {
		FirmID               string            `json:"firm_id"`
		Name                 string            `json:"name" binding:"required"`
		StatuteOfLimitations string            `json:"statute_of_limitations"`
		Data                 datatypes.JSONMap `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, knowledgedomain.ErrInvalidScenario)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	scenario, err := s.knowledge.UpsertScenario(c.Request.Context(), knowledgedomain.UpsertScenarioRequest{
		FirmID:               firmID,
		Name:                 body.Name,
		StatuteOfLimitations: body.StatuteOfLimitations,
		Data:                 body.Data,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, scenario)
}

func (s *Server) handleUpsertQuestion(c *gin.Context) {
	var body struct {
		FirmID       string `json:"firm_id"`
		QuestionID   string `json:"id"`
		Scenario     string `json:"scenario"`
		Text         string `json:"text" binding:"required"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, knowledgedomain.ErrInvalidScenario)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var questionID snowflake.ID
	if body.QuestionID != "" {
		questionID, err = snowflake.ParseString(body.QuestionID)
		if err != nil {
			AbortWithError(c, ErrInvalidParam)
			return
		}
	}

	question, err := s.knowledge.UpsertQuestion(c.Request.Context(), knowledgedomain.UpsertQuestionRequest{
		FirmID:       firmID,
		QuestionID:   questionID,
		ScenarioName: body.Scenario,
		Text:         body.Text,
		DisplayOrder: body.DisplayOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (s *Server) handleDeleteQuestion(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	questionID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}
	if err := s.knowledge.DeleteQuestion(c.Request.Context(), firmID, questionID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpsertPracticeArea(c *gin.Context) {
	var body struct {
		FirmID       string `json:"firm_id"`
		Name         string `json:"name" binding:"required"`
		Description  string `json:"description"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, knowledgedomain.ErrInvalidPracticeArea)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	area, err := s.knowledge.UpsertPracticeArea(c.Request.Context(), knowledgedomain.UpsertPracticeAreaRequest{
		FirmID:       firmID,
		Name:         body.Name,
		Description:  body.Description,
		DisplayOrder: body.DisplayOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

func (s *Server) handleDeletePracticeArea(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	areaID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}
	if err := s.knowledge.DeletePracticeArea(c.Request.Context(), firmID, areaID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpsertCaseType(c *gin.Context) {
	var body struct {
		FirmID       string `json:"firm_id"`
		Name         string `json:"name" binding:"required"`
		PracticeArea string `json:"practice_area"`
		Category     string `json:"category"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, knowledgedomain.ErrInvalidCaseType)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	caseType, err := s.knowledge.UpsertCaseType(c.Request.Context(), knowledgedomain.UpsertCaseTypeRequest{
		FirmID:       firmID,
		Name:         body.Name,
		PracticeArea: body.PracticeArea,
		Category:     body.Category,
		DisplayOrder: body.DisplayOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, caseType)
}

func (s *Server) handleDeleteCaseType(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	caseTypeID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}
	if err := s.knowledge.DeleteCaseType(c.Request.Context(), firmID, caseTypeID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpsertDeadlineRule(c *gin.Context) {
	var body struct {
		FirmID   string         `json:"firm_id"`
		Category string         `json:"category" binding:"required"`
		Rules    datatypes.JSON `json:"rules" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, knowledgedomain.ErrInvalidRule)
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.knowledge.UpsertDeadlineRule(c.Request.Context(), knowledgedomain.UpsertDeadlineRuleRequest{
		FirmID:   firmID,
		Category: body.Category,
		Rules:    body.Rules,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}
