package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// TokenAction enumerates knowledge token operations.
type TokenAction string

const (
	TokenActionEnable  TokenAction = "enable"
	TokenActionDisable TokenAction = "disable"
)

type UpdateTokenRequest struct {
	FirmID  snowflake.ID
	Action  TokenAction
	ActorID string
}

type UpdateTokenResponse struct {
	KnowledgeToken string `json:"knowledge_token,omitempty"`
}

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (Firm, error)
	GetSettings(ctx context.Context, firmID snowflake.ID) (FirmSettings, error)
	UpdateKnowledgeToken(ctx context.Context, req UpdateTokenRequest) (UpdateTokenResponse, error)
}

var (
	ErrInvalidFirm   = errors.New("invalid_firm")
	ErrInvalidAction = errors.New("invalid_action")
	ErrNotFound      = errors.New("firm_not_found")
)
