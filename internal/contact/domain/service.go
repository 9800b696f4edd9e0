package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ResolveRequest struct {
	FirmID         snowflake.ID
	Phone          string
	FullName       string
	Email          string
	MailingAddress string
	DateOfBirth    string
}

// Service resolves caller identities. Resolve runs inside the caller's
// transaction handle so intake ingestion stays atomic.
type Service interface {
	Resolve(ctx context.Context, tx *gorm.DB, req ResolveRequest) (Contact, error)
}

var ErrInvalidPhone = errors.New("invalid_phone")

// NormalizePhone strips everything except digits so differently
// formatted renderings of one number collapse to a single key.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if len(normalized) < 7 {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}
