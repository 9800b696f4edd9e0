package server

import (
	"fmt"
	"net/http"

	intakedomain "github.com/firmline/firmline/internal/intake/domain"
	obscontext "github.com/firmline/firmline/internal/observability/context"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) registerIntakeRoutes(r *gin.Engine) {
	r.POST("/api/intake/voice", WebhookAuthRequired(s.cfg.WebhookToken), s.handleIntakeVoice)
}

type intakeVoiceRequest struct {
	intakedomain.IngestRequest
	FirmID string `json:"firm_id"`
}

func (s *Server) handleIntakeVoice(c *gin.Context) {
	var body intakeVoiceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", intakedomain.ErrInvalidPayload, err))
		return
	}

	firmID, err := s.resolveFirmID(body.FirmID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := obscontext.WithFirmID(c.Request.Context(), firmID.String())

	allowed, err := s.limiter.Allow(ctx, firmID.String())
	if err != nil {
		// A broken limiter must not take intake down with it.
		s.log.Warn("rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		AbortWithError(c, ErrRateLimited)
		return
	}

	req := body.IngestRequest
	req.FirmID = firmID
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	out, err := s.intake.Ingest(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  out.Status,
		"lead_id": out.LeadID.String(),
	})
}
