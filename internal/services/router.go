package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
	"github.com/Ananth-NQI/propertybot-backend/internal/property"
	"github.com/Ananth-NQI/propertybot-backend/internal/storage"
)

// DefaultResponderTimeout bounds a single generative call
const DefaultResponderTimeout = 20 * time.Second

// promptHistorySize is how many recent messages the responder sees
const promptHistorySize = 3

var digitRunPattern = regexp.MustCompile(`\d+`)

// ActionKind is the shape of the reply
type ActionKind string

const (
	ActionCanned    ActionKind = "canned"
	ActionGenerated ActionKind = "generated"
	ActionComposite ActionKind = "composite"
	ActionError     ActionKind = "error"
)

// CannedKind selects a fixed reply
type CannedKind string

const (
	CannedLayouts CannedKind = "layouts"
	CannedPhotos  CannedKind = "photos"
	CannedMenu    CannedKind = "menu"
)

// MediaAttachment is one image sent ahead of the closing text
type MediaAttachment struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// OutboundAction is what the router decided to send back
type OutboundAction struct {
	Kind       ActionKind        `json:"kind"`
	Canned     CannedKind        `json:"canned,omitempty"`
	Media      []MediaAttachment `json:"media,omitempty"`
	Text       string            `json:"text"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// Body is the final text message. Composite replies carry the suggestion
// after a blank line.
func (a OutboundAction) Body() string {
	if a.Suggestion == "" {
		return a.Text
	}
	if a.Text == "" {
		return a.Suggestion
	}
	return a.Text + "\n\n" + a.Suggestion
}

// RouterOptions wires the router's collaborators
type RouterOptions struct {
	Sessions         *SessionStore
	Engine           *NegotiationEngine
	Contacts         *ContactExtractor
	Classifier       Classifier
	Responder        Responder
	Listing          *property.Listing
	MediaBaseURL     string
	Leads            storage.Store
	ResponderTimeout time.Duration
}

// MessageRouter runs one inbound message through classification,
// contact capture, negotiation and reply generation.
type MessageRouter struct {
	sessions         *SessionStore
	engine           *NegotiationEngine
	contacts         *ContactExtractor
	classifier       Classifier
	responder        Responder
	listing          *property.Listing
	mediaBaseURL     string
	leads            storage.Store
	responderTimeout time.Duration
}

// NewMessageRouter creates a router. Leads is optional.
func NewMessageRouter(opts RouterOptions) (*MessageRouter, error) {
	if opts.Sessions == nil || opts.Engine == nil || opts.Responder == nil || opts.Listing == nil {
		return nil, errors.New("router needs sessions, engine, responder and listing")
	}
	if opts.Contacts == nil {
		opts.Contacts = NewContactExtractor()
	}
	if opts.Classifier == nil {
		opts.Classifier = NewKeywordClassifier()
	}
	if opts.ResponderTimeout <= 0 {
		opts.ResponderTimeout = DefaultResponderTimeout
	}

	return &MessageRouter{
		sessions:         opts.Sessions,
		engine:           opts.Engine,
		contacts:         opts.Contacts,
		classifier:       opts.Classifier,
		responder:        opts.Responder,
		listing:          opts.Listing,
		mediaBaseURL:     opts.MediaBaseURL,
		leads:            opts.Leads,
		responderTimeout: opts.ResponderTimeout,
	}, nil
}

// ResponderName reports which generative provider is wired in
func (r *MessageRouter) ResponderName() string {
	return r.responder.Name()
}

// Route handles one message from userID. It never returns an error: a
// failure after the message is recorded becomes a localized ActionError,
// while state changes made before the failure are kept.
func (r *MessageRouter) Route(ctx context.Context, text, userID string) OutboundAction {
	sess := r.sessions.Acquire(userID)
	defer sess.Release()
	defer r.recordLead(sess)

	lang := sess.State().Preferences.Language
	if lang == models.LanguageUnset {
		lang = DetectLanguage(text)
		if err := sess.Update(SessionPatch{Preferences: &PreferencesPatch{Language: &lang}}); err != nil {
			log.Printf("⚠️ Could not store language for %s: %v", userID, err)
		}
	}

	sess.AppendHistory(text, true)

	action, err := r.respond(ctx, sess, lang, text)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			log.Printf("❌ Responder failed for %s: %v", userID, err)
			return OutboundAction{Kind: ActionError, Text: Localize(lang, MsgGatewayUnavailable)}
		}
		log.Printf("❌ Error routing message from %s: %v", userID, err)
		return OutboundAction{Kind: ActionError, Text: Localize(lang, MsgProcessingError)}
	}
	return action
}

func (r *MessageRouter) respond(ctx context.Context, sess *LockedSession, lang models.Language, text string) (OutboundAction, error) {
	intent := r.classifier.ClassifyIntent(text)
	if intent != IntentNone {
		patch := SessionPatch{Preferences: &PreferencesPatch{InterestTags: []string{string(intent)}}}
		if err := sess.Update(patch); err != nil {
			return OutboundAction{}, err
		}
	}

	switch intent {
	case IntentLayouts:
		return r.cannedMedia(lang, CannedLayouts, r.listing.Media.Layouts, MsgLayoutsClosing, MsgNoLayouts)
	case IntentPhotos:
		return r.cannedMedia(lang, CannedPhotos, r.listing.Media.Photos(), MsgPhotosClosing, MsgNoPhotos)
	case IntentMenu:
		return OutboundAction{Kind: ActionCanned, Canned: CannedMenu, Text: Localize(lang, MsgMenu)}, nil
	}

	offerText := text
	if r.contacts.LooksLikeContactInfo(text) {
		if err := r.captureContact(sess, text); err != nil {
			return OutboundAction{}, err
		}
		offerText = stripPhoneNumbers(text)
	}

	if amount, ok := ExtractOffer(offerText); ok {
		if err := r.negotiate(sess, amount); err != nil {
			return OutboundAction{}, err
		}
	}

	reply, err := r.generate(ctx, sess, lang, text)
	if err != nil {
		return OutboundAction{}, err
	}
	sess.AppendHistory(reply, false)

	if sess.State().Negotiation.Completed {
		return OutboundAction{Kind: ActionGenerated, Text: reply}, nil
	}
	if suggestion := LocalizeNextStep(lang, sess.NextStep()); suggestion != "" {
		return OutboundAction{Kind: ActionComposite, Text: reply, Suggestion: suggestion}, nil
	}
	return OutboundAction{Kind: ActionGenerated, Text: reply}, nil
}

func (r *MessageRouter) cannedMedia(lang models.Language, kind CannedKind, items []property.MediaItem, closing, empty MessageKey) (OutboundAction, error) {
	if len(items) == 0 {
		return OutboundAction{Kind: ActionCanned, Canned: kind, Text: Localize(lang, empty)}, nil
	}

	media := make([]MediaAttachment, 0, len(items))
	for _, item := range items {
		url, err := property.MediaURL(r.mediaBaseURL, item.Path)
		if err != nil {
			return OutboundAction{}, fmt.Errorf("bad media path %q: %w", item.Path, err)
		}
		media = append(media, MediaAttachment{URL: url, Caption: item.Caption})
	}
	return OutboundAction{Kind: ActionCanned, Canned: kind, Media: media, Text: Localize(lang, closing)}, nil
}

// captureContact merges whatever was found. Missing fields never clear stored ones.
func (r *MessageRouter) captureContact(sess *LockedSession, text string) error {
	info := r.contacts.Extract(text)
	if info.Empty() {
		return nil
	}
	log.Printf("📇 Contact details from %s (name=%t, phone=%t)", sess.UserID(), info.Name != "", info.Phone != "")
	return sess.Update(SessionPatch{Preferences: &PreferencesPatch{
		ContactName:  &info.Name,
		ContactPhone: &info.Phone,
	}})
}

func (r *MessageRouter) negotiate(sess *LockedSession, amount int64) error {
	if sess.State().Negotiation.Completed {
		return nil
	}

	neg := sess.Negotiation()
	decision, err := r.engine.EvaluateOffer(neg, amount)
	switch {
	case errors.Is(err, ErrInvalidOffer):
		log.Printf("⚠️ Dropping offer from %s: %v", sess.UserID(), err)
		return nil
	case errors.Is(err, ErrNegotiationClosed):
		return nil
	case err != nil:
		return err
	}

	if err := sess.SaveNegotiation(neg); err != nil {
		return err
	}

	discussed := true
	patch := &NegotiationPatch{Discussed: &discussed, LastOffer: &amount}
	switch decision.Kind {
	case DecisionAccept:
		completed := true
		patch.Completed = &completed
		patch.AgreedPrice = &decision.Price
	case DecisionFinalCounter:
		referred := true
		patch.ReferredToOwner = &referred
	}

	log.Printf("💰 Offer %d from %s: %s at %d (round %d)", amount, sess.UserID(), decision.Kind, decision.Price, decision.Round)
	return sess.Update(SessionPatch{Negotiation: patch})
}

func (r *MessageRouter) generate(ctx context.Context, sess *LockedSession, lang models.Language, text string) (string, error) {
	state := sess.State()
	pc := PromptContext{
		LanguageHint:       lang,
		NegotiationSummary: r.negotiationSummary(lang, state, sess.PeekNegotiation()),
		PropertyKnowledge:  r.listing.Knowledge,
		RecentHistory:      state.RecentHistory(promptHistorySize),
		UserMessage:        text,
		PriceAgreed:        state.Negotiation.Completed,
	}

	ctx, cancel := context.WithTimeout(ctx, r.responderTimeout)
	defer cancel()

	reply, err := r.responder.Respond(ctx, pc)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			return "", err
		}
		return "", &GatewayError{Provider: r.responder.Name(), Err: err}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", &GatewayError{Provider: r.responder.Name(), Err: errEmptyCompletion}
	}
	return reply, nil
}

func (r *MessageRouter) negotiationSummary(lang models.Language, state *models.ConversationState, neg *models.NegotiationSession) string {
	price := func(amount int64) string {
		return FormatPrice(lang, r.listing.Currency, amount)
	}

	var lines []string
	lines = append(lines, "Asking price: "+price(r.listing.AskingPrice))

	switch {
	case state.Negotiation.Completed:
		lines = append(lines, "Price agreed at "+price(state.Negotiation.AgreedPrice))
	case neg == nil || neg.RoundsElapsed() == 0:
		lines = append(lines, "No offer made yet")
	default:
		lines = append(lines,
			"Client's last offer: "+price(neg.LastOffer()),
			"Our current counter: "+price(neg.CurrentCounter),
			fmt.Sprintf("Round %d of %d", neg.RoundsElapsed(), r.engine.MaxRounds()),
		)
		if state.Negotiation.ReferredToOwner {
			lines = append(lines, "This is our final price; the owner will follow up with the client directly")
		}
	}

	if state.Preferences.HasContact() {
		lines = append(lines, "Client contact details are on file")
	}
	return strings.Join(lines, "\n")
}

// recordLead upserts a lead once the buyer has shared something worth following up
func (r *MessageRouter) recordLead(sess *LockedSession) {
	if r.leads == nil {
		return
	}
	state := sess.State()
	neg := sess.PeekNegotiation()
	if !state.Preferences.HasContact() && state.Negotiation.LastOffer == 0 {
		return
	}

	lead := &models.Lead{
		UserID:       state.UserID,
		ContactName:  state.Preferences.ContactName,
		ContactPhone: state.Preferences.ContactPhone,
		Language:     string(state.Preferences.Language),
		Status:       leadStatus(state),
		LastOffer:    state.Negotiation.LastOffer,
		AgreedPrice:  state.Negotiation.AgreedPrice,
	}
	if neg != nil {
		lead.Rounds = neg.RoundsElapsed()
	}

	if err := r.leads.SaveLead(lead); err != nil {
		log.Printf("⚠️ Failed to save lead for %s: %v", state.UserID, err)
	}
}

func leadStatus(state *models.ConversationState) string {
	switch {
	case state.Negotiation.Completed:
		return models.LeadStatusAgreed
	case state.Negotiation.ReferredToOwner:
		return models.LeadStatusReferred
	case state.Negotiation.Discussed:
		return models.LeadStatusNegotiating
	case state.Preferences.HasContact():
		return models.LeadStatusContacted
	default:
		return models.LeadStatusNew
	}
}

// ExtractOffer concatenates every digit run in text and parses it as an amount.
// "500,000" and "500 000" both read as 500000.
func ExtractOffer(text string) (int64, bool) {
	runs := digitRunPattern.FindAllString(text, -1)
	if len(runs) == 0 {
		return 0, false
	}
	amount, err := strconv.ParseInt(strings.Join(runs, ""), 10, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}
