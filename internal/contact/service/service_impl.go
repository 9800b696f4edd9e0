package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/contact/domain"
	"github.com/firmline/firmline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("contact.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Resolve finds or creates the contact for (firm, phone). Existing
// contacts take the incoming descriptive values, last write wins; an
// empty incoming field never clears a stored value.
func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, req domain.ResolveRequest) (domain.Contact, error) {
	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return domain.Contact{}, err
	}

	existing, err := s.repo.FindByPhone(ctx, tx, req.FirmID, phone)
	if err != nil {
		return domain.Contact{}, err
	}

	if existing != nil {
		changed := false
		apply := func(dst *string, incoming string) {
			incoming = strings.TrimSpace(incoming)
			if incoming != "" && incoming != *dst {
				*dst = incoming
				changed = true
			}
		}
		apply(&existing.FullName, req.FullName)
		apply(&existing.Email, req.Email)
		apply(&existing.MailingAddress, req.MailingAddress)
		apply(&existing.DateOfBirth, req.DateOfBirth)
		if changed {
			existing.UpdatedAt = time.Now().UTC()
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return domain.Contact{}, err
			}
		}
		return *existing, nil
	}

	now := time.Now().UTC()
	contact := domain.Contact{
		ID:             s.genID.Generate(),
		FirmID:         req.FirmID,
		Phone:          phone,
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.TrimSpace(req.Email),
		MailingAddress: strings.TrimSpace(req.MailingAddress),
		DateOfBirth:    strings.TrimSpace(req.DateOfBirth),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, &contact); err != nil {
		// Concurrent caller won the insert. Read the winner back.
		if db.IsDuplicateKeyErr(err) {
			winner, ferr := s.repo.FindByPhone(ctx, tx, req.FirmID, phone)
			if ferr == nil && winner != nil {
				return *winner, nil
			}
		}
		return domain.Contact{}, err
	}
	return contact, nil
}
