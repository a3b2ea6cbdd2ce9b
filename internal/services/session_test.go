package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func int64Ptr(n int64) *int64 { return &n }

func TestSessionStore_GetCreatesDefaultState(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	state := store.Get("+96899000001")
	assert.Equal(t, "+96899000001", state.UserID)
	assert.Equal(t, models.LanguageUnset, state.Preferences.Language)
	assert.Empty(t, state.History)
	assert.Equal(t, models.PhaseInitial, state.Phase)
	assert.Equal(t, 1, store.Stats().TotalSessions)
}

func TestSessionStore_HistoryCap(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	for i := 1; i <= 15; i++ {
		store.AppendHistory("u", fmt.Sprintf("message %d", i), i%2 == 1)
	}

	history := store.Get("u").History
	require.Len(t, history, 10)
	for i, entry := range history {
		assert.Equal(t, fmt.Sprintf("message %d", i+6), entry.Text)
		assert.NotEmpty(t, entry.ID)
	}
}

func TestSessionStore_LanguageIsSticky(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	arabic := models.LanguageArabic
	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{Language: &arabic}}))

	english := models.LanguageEnglish
	err := store.Update("u", SessionPatch{Preferences: &PreferencesPatch{Language: &english}})
	assert.ErrorIs(t, err, ErrInvalidPatch)
	assert.Equal(t, models.LanguageArabic, store.Get("u").Preferences.Language)
}

func TestSessionStore_ContactMergeIsNonDestructive(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{ContactName: strPtr("Ahmed")}}))
	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{
		ContactName:  strPtr(""),
		ContactPhone: strPtr("96899123456"),
	}}))

	prefs := store.Get("u").Preferences
	assert.Equal(t, "Ahmed", prefs.ContactName)
	assert.Equal(t, "96899123456", prefs.ContactPhone)
}

func TestSessionStore_InterestTagsAccumulate(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{InterestTags: []string{"layouts"}}}))
	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{InterestTags: []string{"photos"}}}))

	state := store.Get("u")
	assert.True(t, state.Preferences.InterestTags["layouts"])
	assert.True(t, state.Preferences.InterestTags["photos"])
	assert.Equal(t, models.PhaseExploring, state.Phase)
}

func TestSessionStore_NegotiationPatchInvariants(t *testing.T) {
	tests := []struct {
		name  string
		patch NegotiationPatch
	}{
		{"agreed price without completion", NegotiationPatch{AgreedPrice: int64Ptr(500000)}},
		{"completion without agreed price", NegotiationPatch{Completed: boolPtr(true)}},
		{"negative offer", NegotiationPatch{LastOffer: int64Ptr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, newFakeClock())
			patch := tt.patch
			err := store.Update("u", SessionPatch{Negotiation: &patch})
			assert.ErrorIs(t, err, ErrInvalidPatch)
			assert.Equal(t, models.NegotiationStatus{}, store.Get("u").Negotiation)
		})
	}
}

func TestSessionStore_CompletedNegotiationIsImmutable(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	require.NoError(t, store.Update("u", SessionPatch{Negotiation: &NegotiationPatch{
		Discussed:   boolPtr(true),
		Completed:   boolPtr(true),
		AgreedPrice: int64Ptr(500000),
		LastOffer:   int64Ptr(500000),
	}}))
	assert.Equal(t, models.PhaseConcluded, store.Get("u").Phase)

	err := store.Update("u", SessionPatch{Negotiation: &NegotiationPatch{AgreedPrice: int64Ptr(450000)}})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	// Re-stating the same values is allowed
	require.NoError(t, store.Update("u", SessionPatch{Negotiation: &NegotiationPatch{Completed: boolPtr(true)}}))
	assert.Equal(t, int64(500000), store.Get("u").Negotiation.AgreedPrice)
}

func TestSessionStore_FailedPatchAppliesNothing(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	err := store.Update("u", SessionPatch{
		Preferences: &PreferencesPatch{ContactName: strPtr("Ahmed")},
		Negotiation: &NegotiationPatch{AgreedPrice: int64Ptr(1)},
	})
	require.ErrorIs(t, err, ErrInvalidPatch)
	assert.Empty(t, store.Get("u").Preferences.ContactName)
}

func TestSessionStore_SaveNegotiationRejectsReplacingAgreed(t *testing.T) {
	store, engine := newTestStore(t, newFakeClock())

	sess := store.Acquire("u")
	defer sess.Release()

	neg := sess.Negotiation()
	_, err := engine.EvaluateOffer(neg, 500000)
	require.NoError(t, err)
	require.NoError(t, sess.SaveNegotiation(neg))

	assert.ErrorIs(t, sess.SaveNegotiation(engine.NewSession()), ErrInvalidPatch)
	assert.True(t, sess.PeekNegotiation().IsComplete)
}

func TestSessionStore_NegotiationCopiesAreIsolated(t *testing.T) {
	store, engine := newTestStore(t, newFakeClock())

	sess := store.Acquire("u")
	defer sess.Release()

	assert.Nil(t, sess.PeekNegotiation())
	neg := sess.Negotiation()
	_, err := engine.EvaluateOffer(neg, 400000)
	require.NoError(t, err)

	// Not saved yet
	assert.Equal(t, 0, sess.PeekNegotiation().RoundsElapsed())
	require.NoError(t, sess.SaveNegotiation(neg))
	assert.Equal(t, 1, sess.PeekNegotiation().RoundsElapsed())
}

func TestSessionStore_ResetAfterIdleKeepsPreferences(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	arabic := models.LanguageArabic
	sess := store.Acquire("u")
	require.NoError(t, sess.Update(SessionPatch{Preferences: &PreferencesPatch{
		Language:     &arabic,
		ContactName:  strPtr("Ahmed"),
		ContactPhone: strPtr("96899123456"),
	}}))
	sess.AppendHistory("400000", true)
	require.NoError(t, sess.SaveNegotiation(sess.Negotiation()))
	require.NoError(t, sess.Update(SessionPatch{Negotiation: &NegotiationPatch{
		Discussed: boolPtr(true),
		LastOffer: int64Ptr(400000),
	}}))
	sess.Release()

	clock.Advance(31 * time.Minute)

	sess = store.Acquire("u")
	defer sess.Release()
	state := sess.State()
	assert.Empty(t, state.History)
	assert.Equal(t, models.NegotiationStatus{}, state.Negotiation)
	assert.Nil(t, sess.PeekNegotiation())
	assert.Equal(t, models.LanguageArabic, state.Preferences.Language)
	assert.Equal(t, "Ahmed", state.Preferences.ContactName)
	assert.Equal(t, "96899123456", state.Preferences.ContactPhone)
}

func TestSessionStore_ForgetAfterGCTimeout(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{ContactName: strPtr("Ahmed")}}))
	clock.Advance(25 * time.Hour)

	state := store.Get("u")
	assert.Empty(t, state.Preferences.ContactName)
	assert.Equal(t, clock.Now(), state.CreatedAt)
}

func TestSessionStore_ExpireStale(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	store.AppendHistory("idle", "hello", true)
	clock.Advance(40 * time.Minute)
	store.AppendHistory("fresh", "hello", true)

	reset := store.ExpireStale(clock.Now(), 30*time.Minute, ExpiryReset)
	assert.Equal(t, 1, reset)
	assert.Equal(t, 2, store.Stats().TotalSessions)

	// Nothing left to clear
	assert.Equal(t, 0, store.ExpireStale(clock.Now(), 30*time.Minute, ExpiryReset))

	evicted := store.ExpireStale(clock.Now(), 30*time.Minute, ExpiryEvict)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Stats().TotalSessions)
	assert.Len(t, store.Get("fresh").History, 1)
}

func TestSessionStore_ExpireStaleSkipsBusySessions(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	store.AppendHistory("u", "hello", true)
	clock.Advance(2 * time.Hour)

	sess := store.Acquire("u")
	assert.Equal(t, 0, store.ExpireStale(clock.Now().Add(48*time.Hour), time.Minute, ExpiryEvict))
	sess.Release()

	assert.Equal(t, 1, store.Stats().TotalSessions)
}

func TestSessionStore_AcquireAfterEvictCreatesFreshEntry(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	store.AppendHistory("u", "hello", true)
	clock.Advance(time.Hour)
	require.Equal(t, 1, store.ExpireStale(clock.Now(), time.Minute, ExpiryEvict))

	state := store.Get("u")
	assert.Empty(t, state.History)
	assert.Equal(t, clock.Now(), state.CreatedAt)
}

func TestSessionStore_SuggestNextStep(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	assert.Equal(t, NextStepShareContact, store.SuggestNextStep("u"))

	require.NoError(t, store.Update("u", SessionPatch{Preferences: &PreferencesPatch{ContactPhone: strPtr("96899123456")}}))
	assert.Equal(t, NextStepMakeOffer, store.SuggestNextStep("u"))

	require.NoError(t, store.Update("u", SessionPatch{Negotiation: &NegotiationPatch{Discussed: boolPtr(true), LastOffer: int64Ptr(400000)}}))
	assert.Equal(t, NextStepContinueOrView, store.SuggestNextStep("u"))

	require.NoError(t, store.Update("u", SessionPatch{Negotiation: &NegotiationPatch{Completed: boolPtr(true), AgreedPrice: int64Ptr(500000)}}))
	assert.Equal(t, NextStepNone, store.SuggestNextStep("u"))
}

func TestSessionStore_Stats(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	require.NoError(t, store.Update("a", SessionPatch{Negotiation: &NegotiationPatch{Discussed: boolPtr(true)}}))
	require.NoError(t, store.Update("b", SessionPatch{Negotiation: &NegotiationPatch{Completed: boolPtr(true), AgreedPrice: int64Ptr(500000)}}))
	store.Touch("c")

	stats := store.Stats()
	assert.Equal(t, SessionStats{TotalSessions: 3, ActiveSessions: 3, NegotiatingSessions: 1, ConcludedSessions: 1}, stats)

	clock.Advance(time.Hour)
	store.Touch("c")
	assert.Equal(t, 1, store.Stats().ActiveSessions)
}

func TestSessionStore_ConcurrentSameUserIsSerialized(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := store.Acquire("u")
			defer sess.Release()
			sess.AppendHistory(fmt.Sprintf("m%d", i), true)
			assert.NoError(t, sess.Update(SessionPatch{Preferences: &PreferencesPatch{InterestTags: []string{fmt.Sprintf("t%d", i)}}}))
		}(i)
	}
	wg.Wait()

	state := store.Get("u")
	assert.Len(t, state.History, 10)
	assert.Len(t, state.Preferences.InterestTags, 50)
}

func TestSessionStore_ConcurrentUsersWithSweeper(t *testing.T) {
	clock := newFakeClock()
	store, _ := newTestStore(t, clock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i%5)
			for j := 0; j < 20; j++ {
				store.AppendHistory(user, "hi", true)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			store.ExpireStale(clock.Now(), time.Hour, ExpiryEvict)
			store.Stats()
		}
	}()
	wg.Wait()

	assert.Equal(t, 5, store.Stats().TotalSessions)
}

func TestLockedSession_ReleaseTwice(t *testing.T) {
	store, _ := newTestStore(t, newFakeClock())
	sess := store.Acquire("u")
	sess.Release()
	sess.Release()

	// Lock is free again
	other := store.Acquire("u")
	other.Release()
}

func TestExpiryPolicyString(t *testing.T) {
	assert.Equal(t, "reset", ExpiryReset.String())
	assert.Equal(t, "evict", ExpiryEvict.String())
}
