package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

func TestLocalize(t *testing.T) {
	assert.Contains(t, Localize(models.LanguageEnglish, MsgSuggestOffer), "price")
	assert.Contains(t, Localize(models.LanguageArabic, MsgSuggestOffer), "سعر")

	// Unset language falls back to English
	assert.Equal(t, Localize(models.LanguageEnglish, MsgProcessingError), Localize(models.LanguageUnset, MsgProcessingError))
}

func TestEveryKeyHasBothLanguages(t *testing.T) {
	for key := range replyTemplates[models.LanguageEnglish] {
		assert.NotEmpty(t, replyTemplates[models.LanguageArabic][key], "arabic %s", key)
	}
}

func TestLocalizeNextStep(t *testing.T) {
	assert.Equal(t, Localize(models.LanguageEnglish, MsgSuggestContact), LocalizeNextStep(models.LanguageEnglish, NextStepShareContact))
	assert.Equal(t, Localize(models.LanguageArabic, MsgSuggestContinue), LocalizeNextStep(models.LanguageArabic, NextStepContinueOrView))
	assert.Empty(t, LocalizeNextStep(models.LanguageEnglish, NextStepNone))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "OMR 550,000", FormatPrice(models.LanguageEnglish, "OMR", 550000))
	assert.Equal(t, "OMR 495,000", FormatPrice(models.LanguageUnset, "OMR", 495000))
	assert.Contains(t, FormatPrice(models.LanguageArabic, "OMR", 550000), "OMR ")
}
