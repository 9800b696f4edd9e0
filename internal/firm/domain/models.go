package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Firm is an isolated customer (law firm). All intake and knowledge data is
// scoped to exactly one firm.
type Firm struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Slug      string       `gorm:"not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Firm) TableName() string { return "firms" }

// FirmSettings carries per-firm voice-agent configuration. The knowledge
// token gates public reads of the compiled document; an empty token means the
// document is intentionally public. Token changes record who and when.
type FirmSettings struct {
	FirmID         snowflake.ID `gorm:"primaryKey" json:"firm_id"`
	KnowledgeToken string       `gorm:"type:text" json:"-"`
	TokenUpdatedBy string       `gorm:"type:text" json:"token_updated_by,omitempty"`
	TokenUpdatedAt *time.Time   `json:"token_updated_at,omitempty"`
	AgentID        string       `gorm:"type:text" json:"agent_id,omitempty"`
	AgentAPIKey    string       `gorm:"type:text" json:"-"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FirmSettings) TableName() string { return "firm_settings" }
