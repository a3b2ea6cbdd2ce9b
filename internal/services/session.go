package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// Session store defaults
const (
	DefaultHistoryCap   = 10
	DefaultResetTimeout = 30 * time.Minute
	DefaultGCTimeout    = 24 * time.Hour
)

// ExpiryPolicy selects what happens to an idle session
type ExpiryPolicy int

const (
	// ExpiryReset clears history and negotiation but keeps language and contact details
	ExpiryReset ExpiryPolicy = iota
	// ExpiryEvict forgets the session entirely
	ExpiryEvict
)

func (p ExpiryPolicy) String() string {
	if p == ExpiryEvict {
		return "evict"
	}
	return "reset"
}

// NextStep is the follow-up the bot should nudge the buyer towards
type NextStep string

const (
	NextStepNone           NextStep = ""
	NextStepShareContact   NextStep = "share_contact"
	NextStepMakeOffer      NextStep = "make_offer"
	NextStepContinueOrView NextStep = "continue_or_view"
)

// StoreConfig holds the session limits and timeouts
type StoreConfig struct {
	HistoryCap   int
	ResetTimeout time.Duration
	GCTimeout    time.Duration
}

// PreferencesPatch updates buyer preferences. Nil and empty fields are left untouched.
type PreferencesPatch struct {
	Language     *models.Language
	ContactName  *string
	ContactPhone *string
	InterestTags []string
}

// NegotiationPatch updates the conversation-level negotiation view
type NegotiationPatch struct {
	Discussed       *bool
	Completed       *bool
	ReferredToOwner *bool
	AgreedPrice     *int64
	LastOffer       *int64
}

// SessionPatch is the only way to change preferences or negotiation state
type SessionPatch struct {
	Preferences *PreferencesPatch
	Negotiation *NegotiationPatch
}

// SessionStats summarises the store for monitoring
type SessionStats struct {
	TotalSessions       int `json:"total_sessions"`
	ActiveSessions      int `json:"active_sessions"`
	NegotiatingSessions int `json:"negotiating_sessions"`
	ConcludedSessions   int `json:"concluded_sessions"`
}

type sessionEntry struct {
	mu          sync.Mutex
	state       *models.ConversationState
	negotiation *models.NegotiationSession
	removed     bool
}

// SessionStore owns every ConversationState and NegotiationSession, keyed by
// sender. Work on one sender is serialized by a per-sender lock; different
// senders never contend beyond the map lookup.
type SessionStore struct {
	mu             sync.Mutex
	sessions       map[string]*sessionEntry
	cfg            StoreConfig
	newNegotiation func() *models.NegotiationSession
	now            func() time.Time
}

// NewSessionStore creates a store. Negotiations are started by the engine.
func NewSessionStore(cfg StoreConfig, engine *NegotiationEngine) *SessionStore {
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.GCTimeout <= 0 {
		cfg.GCTimeout = DefaultGCTimeout
	}
	return &SessionStore{
		sessions:       make(map[string]*sessionEntry),
		cfg:            cfg,
		newNegotiation: engine.NewSession,
		now:            time.Now,
	}
}

// SetClock overrides the time source
func (s *SessionStore) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the active limits
func (s *SessionStore) Config() StoreConfig {
	return s.cfg
}

// Acquire locks the sender's session, creating it on first contact and
// applying any overdue reset or eviction. Callers must Release it.
func (s *SessionStore) Acquire(userID string) *LockedSession {
	for {
		s.mu.Lock()
		entry, exists := s.sessions[userID]
		if !exists {
			entry = &sessionEntry{state: models.NewConversationState(userID, s.now())}
			s.sessions[userID] = entry
		}
		s.mu.Unlock()

		entry.mu.Lock()
		if entry.removed {
			// Evicted between lookup and lock
			entry.mu.Unlock()
			continue
		}

		ls := &LockedSession{store: s, entry: entry}
		ls.expireIfIdle(s.now())
		return ls
	}
}

// Get returns a snapshot of the sender's state, creating it if needed
func (s *SessionStore) Get(userID string) *models.ConversationState {
	ls := s.Acquire(userID)
	defer ls.Release()
	return ls.State()
}

// Touch marks the sender as active now
func (s *SessionStore) Touch(userID string) {
	ls := s.Acquire(userID)
	defer ls.Release()
	ls.Touch()
}

// AppendHistory records a message for the sender
func (s *SessionStore) AppendHistory(userID, text string, fromUser bool) {
	ls := s.Acquire(userID)
	defer ls.Release()
	ls.AppendHistory(text, fromUser)
}

// Update applies a patch for the sender
func (s *SessionStore) Update(userID string, patch SessionPatch) error {
	ls := s.Acquire(userID)
	defer ls.Release()
	return ls.Update(patch)
}

// SuggestNextStep returns the sender's next suggested step
func (s *SessionStore) SuggestNextStep(userID string) NextStep {
	ls := s.Acquire(userID)
	defer ls.Release()
	return ls.NextStep()
}

// ExpireStale applies policy to every session idle for longer than timeout
// and returns how many were reset or evicted. Sessions locked by an
// in-flight message are skipped; they are being used right now.
func (s *SessionStore) ExpireStale(now time.Time, timeout time.Duration, policy ExpiryPolicy) int {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, entry := range s.sessions {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	affected := 0
	for _, entry := range entries {
		if !entry.mu.TryLock() {
			continue
		}
		if !entry.removed && now.Sub(entry.state.LastInteractionAt) > timeout {
			switch policy {
			case ExpiryEvict:
				s.evict(entry)
				affected++
			default:
				if resetEntry(entry) {
					affected++
				}
			}
		}
		entry.mu.Unlock()
	}
	return affected
}

// Stats counts sessions by phase
func (s *SessionStore) Stats() SessionStats {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, entry := range s.sessions {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	now := s.now()
	stats := SessionStats{TotalSessions: len(entries)}
	for _, entry := range entries {
		if !entry.mu.TryLock() {
			// Busy with a message, so certainly active
			stats.ActiveSessions++
			continue
		}
		if now.Sub(entry.state.LastInteractionAt) <= s.cfg.ResetTimeout {
			stats.ActiveSessions++
		}
		switch entry.state.Phase {
		case models.PhaseNegotiating:
			stats.NegotiatingSessions++
		case models.PhaseConcluded:
			stats.ConcludedSessions++
		}
		entry.mu.Unlock()
	}
	return stats
}

// evict drops the entry from the map. Caller holds entry.mu.
func (s *SessionStore) evict(entry *sessionEntry) {
	s.mu.Lock()
	if current, ok := s.sessions[entry.state.UserID]; ok && current == entry {
		delete(s.sessions, entry.state.UserID)
	}
	s.mu.Unlock()
	entry.removed = true
	log.Printf("🧹 Session evicted for %s", entry.state.UserID)
}

// resetEntry clears history and negotiation, keeping preferences.
// Returns false when there was nothing to clear.
func resetEntry(entry *sessionEntry) bool {
	st := entry.state
	if len(st.History) == 0 && entry.negotiation == nil && st.Negotiation == (models.NegotiationStatus{}) {
		return false
	}
	st.History = []models.HistoryEntry{}
	st.Negotiation = models.NegotiationStatus{}
	entry.negotiation = nil
	st.Phase = derivePhase(st)
	log.Printf("🧹 Session reset for %s", st.UserID)
	return true
}

// LockedSession is exclusive access to one sender's session
type LockedSession struct {
	store    *SessionStore
	entry    *sessionEntry
	released bool
}

// Release unlocks the session. Safe to call more than once.
func (l *LockedSession) Release() {
	if l.released {
		return
	}
	l.released = true
	l.entry.mu.Unlock()
}

func (l *LockedSession) expireIfIdle(now time.Time) {
	st := l.entry.state
	idle := now.Sub(st.LastInteractionAt)
	switch {
	case idle > l.store.cfg.GCTimeout:
		log.Printf("🧹 Session for %s idle %v, starting fresh", st.UserID, idle.Round(time.Minute))
		l.entry.state = models.NewConversationState(st.UserID, now)
		l.entry.negotiation = nil
	case idle > l.store.cfg.ResetTimeout:
		resetEntry(l.entry)
	}
}

// UserID returns the sender identity
func (l *LockedSession) UserID() string {
	return l.entry.state.UserID
}

// State returns a copy of the conversation state
func (l *LockedSession) State() *models.ConversationState {
	return l.entry.state.Clone()
}

// Touch updates the last interaction time
func (l *LockedSession) Touch() {
	l.entry.state.LastInteractionAt = l.store.now()
}

// AppendHistory records a message, evicting the oldest beyond the cap
func (l *LockedSession) AppendHistory(text string, fromUser bool) {
	now := l.store.now()
	st := l.entry.state
	st.History = append(st.History, models.HistoryEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Timestamp: now,
		Text:      text,
		FromUser:  fromUser,
	})
	if over := len(st.History) - l.store.cfg.HistoryCap; over > 0 {
		st.History = append([]models.HistoryEntry(nil), st.History[over:]...)
	}
	st.LastInteractionAt = now
	st.Phase = derivePhase(st)
}

// Negotiation returns a copy of the sender's negotiation, starting one if needed.
// Hand the mutated copy back with SaveNegotiation.
func (l *LockedSession) Negotiation() *models.NegotiationSession {
	if l.entry.negotiation == nil {
		l.entry.negotiation = l.store.newNegotiation()
	}
	return l.entry.negotiation.Clone()
}

// PeekNegotiation returns a copy of the negotiation without starting one
func (l *LockedSession) PeekNegotiation() *models.NegotiationSession {
	if l.entry.negotiation == nil {
		return nil
	}
	return l.entry.negotiation.Clone()
}

// SaveNegotiation stores the negotiation back. A completed negotiation cannot be replaced.
func (l *LockedSession) SaveNegotiation(n *models.NegotiationSession) error {
	if current := l.entry.negotiation; current != nil && current.IsComplete {
		if !n.IsComplete || n.AgreedPrice != current.AgreedPrice || len(n.Offers) != len(current.Offers) {
			return fmt.Errorf("%w: negotiation already agreed at %d", ErrInvalidPatch, current.AgreedPrice)
		}
	}
	l.entry.negotiation = n.Clone()
	return nil
}

// Update validates the patch against the current state and applies it atomically
func (l *LockedSession) Update(patch SessionPatch) error {
	st := l.entry.state
	prefs := st.Preferences
	neg := st.Negotiation

	if p := patch.Preferences; p != nil {
		if p.Language != nil && *p.Language != models.LanguageUnset {
			if prefs.Language != models.LanguageUnset && prefs.Language != *p.Language {
				return fmt.Errorf("%w: language already detected as %s", ErrInvalidPatch, prefs.Language)
			}
			prefs.Language = *p.Language
		}
		if p.ContactName != nil && *p.ContactName != "" {
			prefs.ContactName = *p.ContactName
		}
		if p.ContactPhone != nil && *p.ContactPhone != "" {
			prefs.ContactPhone = *p.ContactPhone
		}
		if len(p.InterestTags) > 0 {
			tags := make(map[string]bool, len(prefs.InterestTags)+len(p.InterestTags))
			for tag := range prefs.InterestTags {
				tags[tag] = true
			}
			for _, tag := range p.InterestTags {
				tags[tag] = true
			}
			prefs.InterestTags = tags
		}
	}

	if p := patch.Negotiation; p != nil {
		if err := applyNegotiationPatch(&neg, st.Negotiation, p); err != nil {
			return err
		}
	}

	st.Preferences = prefs
	st.Negotiation = neg
	st.Phase = derivePhase(st)
	return nil
}

func applyNegotiationPatch(neg *models.NegotiationStatus, current models.NegotiationStatus, p *NegotiationPatch) error {
	if p.Discussed != nil {
		neg.Discussed = *p.Discussed
	}
	if p.Completed != nil {
		neg.Completed = *p.Completed
	}
	if p.ReferredToOwner != nil {
		neg.ReferredToOwner = *p.ReferredToOwner
	}
	if p.AgreedPrice != nil {
		neg.AgreedPrice = *p.AgreedPrice
	}
	if p.LastOffer != nil {
		neg.LastOffer = *p.LastOffer
	}

	if neg.AgreedPrice < 0 || neg.LastOffer < 0 {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidPatch)
	}
	if current.Completed && *neg != current {
		return fmt.Errorf("%w: negotiation already agreed at %d", ErrInvalidPatch, current.AgreedPrice)
	}
	if neg.AgreedPrice != 0 && !neg.Completed {
		return fmt.Errorf("%w: agreed price requires a completed negotiation", ErrInvalidPatch)
	}
	if neg.Completed && neg.AgreedPrice == 0 {
		return fmt.Errorf("%w: completed negotiation needs an agreed price", ErrInvalidPatch)
	}
	return nil
}

// NextStep suggests what to ask the buyer for next
func (l *LockedSession) NextStep() NextStep {
	st := l.entry.state
	switch {
	case !st.Preferences.HasContact():
		return NextStepShareContact
	case st.Negotiation.LastOffer == 0:
		return NextStepMakeOffer
	case !st.Negotiation.Completed:
		return NextStepContinueOrView
	default:
		return NextStepNone
	}
}

func derivePhase(st *models.ConversationState) models.ConversationPhase {
	switch {
	case st.Negotiation.Completed:
		return models.PhaseConcluded
	case st.Negotiation.Discussed:
		return models.PhaseNegotiating
	case countUserMessages(st.History) > 1 || len(st.Preferences.InterestTags) > 0 || st.Preferences.HasContact():
		return models.PhaseExploring
	default:
		return models.PhaseInitial
	}
}

func countUserMessages(history []models.HistoryEntry) int {
	n := 0
	for _, h := range history {
		if h.FromUser {
			n++
		}
	}
	return n
}
