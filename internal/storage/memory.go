package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// MemoryStore holds all leads in memory for local runs and tests
type MemoryStore struct {
	leads   map[string]*models.Lead
	mu      sync.RWMutex
	counter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads: make(map[string]*models.Lead),
	}
}

func (m *MemoryStore) SaveLead(lead *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored := *lead
	if existing, ok := m.leads[lead.UserID]; ok {
		carryOver(&stored, existing)
	} else {
		m.counter++
		stored.ID = m.counter
		stored.CreatedAt = now
		stored.EnsureID()
	}
	if stored.Status == "" {
		stored.Status = models.LeadStatusNew
	}
	stored.UpdatedAt = now

	m.leads[lead.UserID] = &stored
	*lead = stored
	return nil
}

func (m *MemoryStore) GetLead(userID string) (*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lead, exists := m.leads[userID]
	if !exists {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

func (m *MemoryStore) GetAllLeads() ([]*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leads := make([]*models.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		out := *lead
		leads = append(leads, &out)
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].ID < leads[j].ID })
	return leads, nil
}
