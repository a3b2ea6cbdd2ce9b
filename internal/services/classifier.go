package services

import (
	"strings"
	"unicode"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// IntentTag is the coarse intent of a message
type IntentTag string

const (
	IntentNone     IntentTag = ""
	IntentLayouts  IntentTag = "layouts"
	IntentPhotos   IntentTag = "photos"
	IntentMenu     IntentTag = "menu"
	IntentLocation IntentTag = "location"
	IntentViewing  IntentTag = "viewing"
	IntentPrice    IntentTag = "price"
)

// Classifier maps free text to an intent
type Classifier interface {
	ClassifyIntent(text string) IntentTag
}

type keywordRule struct {
	tag      IntentTag
	keywords []string
	// whole rules only match when the message is nothing but the keyword
	whole bool
}

// KeywordClassifier matches bilingual keyword lists; rules are checked in order
// and the first hit wins.
type KeywordClassifier struct {
	rules []keywordRule
}

// NewKeywordClassifier creates a classifier with the default English and Arabic keywords
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		rules: []keywordRule{
			{tag: IntentLayouts, keywords: []string{"layout", "floor", "مخطط", "طابق"}},
			{tag: IntentPhotos, keywords: []string{"photo", "picture", "image", "صور", "صورة"}},
			{tag: IntentMenu, keywords: []string{"menu", "options", "قائمة", "خيارات"}, whole: true},
			{tag: IntentLocation, keywords: []string{"location", "where", "map", "موقع", "وين"}},
			{tag: IntentViewing, keywords: []string{"viewing", "visit", "appointment", "see the property", "معاينة", "زيارة", "موعد"}},
			{tag: IntentPrice, keywords: []string{"price", "offer", "budget", "discount", "سعر", "عرض", "خصم"}},
		},
	}
}

// AddKeywords extends the keyword list for a tag, appending a new rule if needed
func (k *KeywordClassifier) AddKeywords(tag IntentTag, keywords ...string) {
	for i := range k.rules {
		if k.rules[i].tag == tag {
			k.rules[i].keywords = append(k.rules[i].keywords, keywords...)
			return
		}
	}
	k.rules = append(k.rules, keywordRule{tag: tag, keywords: keywords})
}

// ClassifyIntent returns the first matching intent, or IntentNone
func (k *KeywordClassifier) ClassifyIntent(text string) IntentTag {
	lower := strings.ToLower(text)
	bare := strings.TrimFunc(lower, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	for _, rule := range k.rules {
		for _, keyword := range rule.keywords {
			if rule.whole && bare == keyword {
				return rule.tag
			}
			if !rule.whole && strings.Contains(lower, keyword) {
				return rule.tag
			}
		}
	}
	return IntentNone
}

// DetectLanguage returns arabic if any rune is in the Arabic block (U+0600-U+06FF)
func DetectLanguage(text string) models.Language {
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			return models.LanguageArabic
		}
	}
	return models.LanguageEnglish
}
