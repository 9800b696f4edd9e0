package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	intakedomain "github.com/firmline/firmline/internal/intake/domain"
	"github.com/firmline/firmline/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) registerLeadRoutes(r *gin.Engine) {
	leads := r.Group("/api/leads", WebhookAuthRequired(s.cfg.WebhookToken))
	leads.GET("", s.handleListLeads)
	leads.GET("/:id", s.handleGetLead)
	leads.GET("/:id/transcripts", s.handleListTranscripts)
}

func (s *Server) handleListLeads(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}

	out, err := s.intake.ListLeads(c.Request.Context(), intakedomain.ListLeadsFilter{
		FirmID:   firmID,
		Status:   intakedomain.LeadStatus(c.Query("status")),
		Category: intakedomain.Category(c.Query("category")),
	}, p)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetLead(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	leadID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}

	out, err := s.intake.GetLead(c.Request.Context(), firmID, leadID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListTranscripts(c *gin.Context) {
	firmID, err := s.resolveFirmID(c.Query("firm_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	leadID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidParam)
		return
	}

	transcripts, err := s.intake.ListTranscripts(c.Request.Context(), firmID, leadID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcripts": transcripts})
}
