package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/propertybot-backend/internal/property"
)

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeResponder records prompts and answers with a fixed reply or error
type fakeResponder struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []PromptContext
}

func (f *fakeResponder) Respond(ctx context.Context, pc PromptContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, pc)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeResponder) Name() string {
	return "fake"
}

func (f *fakeResponder) lastPrompt() PromptContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

// fakeMessenger records sends and can fail after a number of calls
type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	media     []string
	failAfter int
	calls     int
}

var errSendFailed = errors.New("send failed")

func (f *fakeMessenger) SendWhatsAppMessage(to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tick(); err != nil {
		return err
	}
	f.texts = append(f.texts, message)
	return nil
}

func (f *fakeMessenger) SendWhatsAppMedia(to, mediaURL, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tick(); err != nil {
		return err
	}
	f.media = append(f.media, mediaURL)
	return nil
}

func (f *fakeMessenger) tick() error {
	f.calls++
	if f.failAfter > 0 && f.calls > f.failAfter {
		return errSendFailed
	}
	return nil
}

func testListing(t *testing.T) *property.Listing {
	t.Helper()
	listing, err := property.Default()
	require.NoError(t, err)
	return listing
}

func newTestStore(t *testing.T, clock *fakeClock) (*SessionStore, *NegotiationEngine) {
	t.Helper()
	engine := NewNegotiationEngine(testListing(t))
	engine.SetClock(clock.Now)
	store := NewSessionStore(StoreConfig{}, engine)
	store.SetClock(clock.Now)
	return store, engine
}
