package services

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// MessageKey names a fixed reply
type MessageKey string

const (
	MsgSuggestContact     MessageKey = "suggest_contact"
	MsgSuggestOffer       MessageKey = "suggest_offer"
	MsgSuggestContinue    MessageKey = "suggest_continue"
	MsgProcessingError    MessageKey = "processing_error"
	MsgGatewayUnavailable MessageKey = "gateway_unavailable"
	MsgLayoutsClosing     MessageKey = "layouts_closing"
	MsgNoLayouts          MessageKey = "no_layouts"
	MsgPhotosClosing      MessageKey = "photos_closing"
	MsgNoPhotos           MessageKey = "no_photos"
	MsgMenu               MessageKey = "menu"
)

// replyTemplates holds the fixed replies per language. English is the fallback.
var replyTemplates = map[models.Language]map[MessageKey]string{
	models.LanguageEnglish: {
		MsgSuggestContact:     "To facilitate communication, could you share your name and contact number?",
		MsgSuggestOffer:       "Do you have a specific price in mind for the property?",
		MsgSuggestContinue:    "Would you like to discuss the price further or arrange a viewing?",
		MsgProcessingError:    "Sorry, there was an error processing your message. Could you try again?",
		MsgGatewayUnavailable: "Sorry, I could not process your request at the moment. Could you try again?",
		MsgLayoutsClosing:     "Here are the floor plans for all three villas. Would you like to see photos as well?",
		MsgNoLayouts:          "Sorry, no floor plans are currently available.",
		MsgPhotosClosing:      "Here are some photos of the complex. Would you like to arrange a viewing?",
		MsgNoPhotos:           "Sorry, no photos are currently available.",
		MsgMenu: "I can help you with:\n" +
			"• *Layouts* - floor plans of the three villas\n" +
			"• *Photos* - exterior, interior and amenities\n" +
			"• *Price* - make an offer on the complex\n" +
			"• *Viewing* - arrange a visit\n\n" +
			"Just tell me what you are looking for.",
	},
	models.LanguageArabic: {
		MsgSuggestContact:     "لتسهيل التواصل، هل يمكنك مشاركة اسمك ورقم هاتفك؟",
		MsgSuggestOffer:       "هل لديك سعر معين في ذهنك للعقار؟",
		MsgSuggestContinue:    "هل ترغب في مناقشة السعر أكثر أو ترتيب موعد لمعاينة العقار؟",
		MsgProcessingError:    "عذراً، حدث خطأ في معالجة رسالتك. هل يمكنك المحاولة مرة أخرى؟",
		MsgGatewayUnavailable: "عذراً، حدث خطأ في معالجة طلبك. هل يمكنك المحاولة مرة أخرى؟",
		MsgLayoutsClosing:     "هذه مخططات الفلل الثلاث. هل ترغب في مشاهدة الصور أيضاً؟",
		MsgNoLayouts:          "عذراً، لا تتوفر مخططات حالياً.",
		MsgPhotosClosing:      "هذه بعض صور المجمع. هل ترغب في ترتيب موعد للمعاينة؟",
		MsgNoPhotos:           "عذراً، لا تتوفر صور حالياً.",
		MsgMenu: "يمكنني مساعدتك في:\n" +
			"• *المخططات* - مخططات الفلل الثلاث\n" +
			"• *الصور* - الواجهة والداخل والمرافق\n" +
			"• *السعر* - تقديم عرض على المجمع\n" +
			"• *المعاينة* - ترتيب زيارة\n\n" +
			"أخبرني بما تبحث عنه.",
	},
}

// nextStepMessages maps suggestions to their reply keys
var nextStepMessages = map[NextStep]MessageKey{
	NextStepShareContact:   MsgSuggestContact,
	NextStepMakeOffer:      MsgSuggestOffer,
	NextStepContinueOrView: MsgSuggestContinue,
}

// Localize returns the fixed reply for key in lang, falling back to English
func Localize(lang models.Language, key MessageKey) string {
	if msgs, ok := replyTemplates[lang]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	return replyTemplates[models.LanguageEnglish][key]
}

// LocalizeNextStep returns the suggestion text, or "" for NextStepNone
func LocalizeNextStep(lang models.Language, step NextStep) string {
	key, ok := nextStepMessages[step]
	if !ok {
		return ""
	}
	return Localize(lang, key)
}

// FormatPrice renders an amount with locale digit grouping, e.g. "OMR 550,000"
func FormatPrice(lang models.Language, currency string, amount int64) string {
	tag := language.English
	if lang == models.LanguageArabic {
		tag = language.Arabic
	}
	p := message.NewPrinter(tag)
	return fmt.Sprintf("%s %s", currency, p.Sprintf("%d", amount))
}
