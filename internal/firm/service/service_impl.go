package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/firmline/firmline/internal/firm/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("firm.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Firm, error) {
	if id == 0 {
		return domain.Firm{}, domain.ErrInvalidFirm
	}
	firm, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Firm{}, err
	}
	if firm == nil {
		return domain.Firm{}, domain.ErrNotFound
	}
	return *firm, nil
}

func (s *Service) GetSettings(ctx context.Context, firmID snowflake.ID) (domain.FirmSettings, error) {
	if _, err := s.GetByID(ctx, firmID); err != nil {
		return domain.FirmSettings{}, err
	}
	settings, err := s.repo.FindSettings(ctx, s.db, firmID)
	if err != nil {
		return domain.FirmSettings{}, err
	}
	if settings == nil {
		return domain.FirmSettings{FirmID: firmID}, nil
	}
	return *settings, nil
}

func (s *Service) UpdateKnowledgeToken(ctx context.Context, req domain.UpdateTokenRequest) (domain.UpdateTokenResponse, error) {
	settings, err := s.GetSettings(ctx, req.FirmID)
	if err != nil {
		return domain.UpdateTokenResponse{}, err
	}

	now := time.Now().UTC()
	switch req.Action {
	case domain.TokenActionEnable:
		token, err := generateToken()
		if err != nil {
			return domain.UpdateTokenResponse{}, err
		}
		settings.KnowledgeToken = token
	case domain.TokenActionDisable:
		settings.KnowledgeToken = ""
	default:
		return domain.UpdateTokenResponse{}, domain.ErrInvalidAction
	}

	settings.TokenUpdatedBy = strings.TrimSpace(req.ActorID)
	settings.TokenUpdatedAt = &now
	settings.UpdatedAt = now

	if err := s.repo.UpsertSettings(ctx, s.db, &settings); err != nil {
		return domain.UpdateTokenResponse{}, err
	}

	s.log.Info("knowledge token updated",
		zap.String("firm_id", req.FirmID.String()),
		zap.String("action", string(req.Action)),
		zap.String("actor", settings.TokenUpdatedBy),
	)

	return domain.UpdateTokenResponse{KnowledgeToken: settings.KnowledgeToken}, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
