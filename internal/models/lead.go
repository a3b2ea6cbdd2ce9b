package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead is a prospective buyer worth following up with
type Lead struct {
	gorm.Model
	LeadID       string `gorm:"uniqueIndex;not null" json:"lead_id"`
	UserID       string `gorm:"uniqueIndex;not null" json:"user_id"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `gorm:"index" json:"contact_phone"`
	Language     string `json:"language"`
	Status       string `gorm:"default:'new'" json:"status"` // new, contacted, negotiating, agreed, referred
	LastOffer    int64  `json:"last_offer"`
	AgreedPrice  int64  `json:"agreed_price"`
	Rounds       int    `json:"rounds"`
}

// Lead status constants
const (
	LeadStatusNew         = "new"
	LeadStatusContacted   = "contacted"
	LeadStatusNegotiating = "negotiating"
	LeadStatusAgreed      = "agreed"
	LeadStatusReferred    = "referred"
)

// BeforeCreate mints the public lead id
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	l.EnsureID()
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	return nil
}

// EnsureID assigns a LeadID if one is missing
func (l *Lead) EnsureID() {
	if l.LeadID == "" {
		l.LeadID = "LEAD-" + uuid.NewString()
	}
}
