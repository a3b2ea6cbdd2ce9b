package storage

import (
	"errors"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// ErrLeadNotFound is returned when no lead exists for a user
var ErrLeadNotFound = errors.New("lead not found")

// Store defines the interface for lead storage operations
type Store interface {
	// SaveLead creates the lead or updates the existing one for the same user
	SaveLead(lead *models.Lead) error
	GetLead(userID string) (*models.Lead, error)
	GetAllLeads() ([]*models.Lead, error)
}

// carryOver copies the identity of an already stored lead onto an update so
// the row keeps its primary key, public id and creation time. An update with
// no status keeps the stored one.
func carryOver(lead, existing *models.Lead) {
	lead.ID = existing.ID
	lead.LeadID = existing.LeadID
	lead.CreatedAt = existing.CreatedAt
	if lead.Status == "" {
		lead.Status = existing.Status
	}
}
