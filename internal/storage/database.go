package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// DatabaseStore persists leads with gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a gorm-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) SaveLead(lead *models.Lead) error {
	var existing models.Lead
	err := d.db.Where("user_id = ?", lead.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := d.db.Create(lead).Error; err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up lead: %w", err)
	}

	carryOver(lead, &existing)
	if err := d.db.Save(lead).Error; err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return nil
}

func (d *DatabaseStore) GetLead(userID string) (*models.Lead, error) {
	var lead models.Lead
	err := d.db.Where("user_id = ?", userID).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (d *DatabaseStore) GetAllLeads() ([]*models.Lead, error) {
	var leads []*models.Lead
	if err := d.db.Order("id").Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}
