package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

func TestCarryOver(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	existing := &models.Lead{
		UserID:      "+96899123456",
		LeadID:      "LEAD-existing",
		ContactName: "Ahmed",
		Status:      models.LeadStatusContacted,
		LastOffer:   400000,
	}
	existing.ID = 7
	existing.CreatedAt = created

	t.Run("keeps identity and takes new fields", func(t *testing.T) {
		update := &models.Lead{
			UserID:      "+96899123456",
			LeadID:      "LEAD-fresh",
			ContactName: "Ahmed Al Busaidi",
			Status:      models.LeadStatusAgreed,
			AgreedPrice: 500000,
		}
		carryOver(update, existing)

		assert.Equal(t, uint(7), update.ID)
		assert.Equal(t, "LEAD-existing", update.LeadID)
		assert.Equal(t, created, update.CreatedAt)
		assert.Equal(t, "Ahmed Al Busaidi", update.ContactName)
		assert.Equal(t, models.LeadStatusAgreed, update.Status)
		assert.Equal(t, int64(500000), update.AgreedPrice)
		assert.Zero(t, update.LastOffer)
	})

	t.Run("empty status keeps stored status", func(t *testing.T) {
		update := &models.Lead{UserID: "+96899123456"}
		carryOver(update, existing)
		assert.Equal(t, models.LeadStatusContacted, update.Status)
	})
}
