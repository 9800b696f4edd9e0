package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Contact is a caller identity scoped to a firm. Phone numbers are
// stored in normalized digit form so repeat callers collapse onto a
// single row.
type Contact struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	FirmID         snowflake.ID `json:"firm_id" gorm:"index:idx_contacts_firm_phone,unique"`
	Phone          string       `json:"phone" gorm:"index:idx_contacts_firm_phone,unique"`
	FullName       string       `json:"full_name"`
	Email          string       `json:"email"`
	MailingAddress string       `json:"mailing_address"`
	DateOfBirth    string       `json:"date_of_birth"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
