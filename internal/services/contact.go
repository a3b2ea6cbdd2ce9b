package services

import (
	"regexp"
	"strings"
)

var (
	contactLabelPattern  = regexp.MustCompile(`(?i)\b(?:contact|name|number|mobile|phone|details)\s*:`)
	selfReferencePattern = regexp.MustCompile(`(?i)\bmy\s+(?:name|number|mobile|phone|contact)\b.*\d`)
	contactNamePattern   = regexp.MustCompile(`(?i)\bname(?:\s+is\b)?\s*:?\s*(\p{L}[\p{L}\s'.-]*?)\s*(?:,|\band\b|\bmobile\b|\bphone\b|\bnumber\b|\d|$)`)
	phonePattern         = regexp.MustCompile(`\d{9,}`)
	phoneLikePattern     = regexp.MustCompile(`\d{8,}`)
)

// ContactInfo is what could be pulled out of a message. Empty fields were not found.
type ContactInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Empty reports whether nothing was extracted
func (c ContactInfo) Empty() bool {
	return c.Name == "" && c.Phone == ""
}

// ContactExtractor spots and extracts name/phone mentions in free text
type ContactExtractor struct{}

// NewContactExtractor creates a contact extractor
func NewContactExtractor() *ContactExtractor {
	return &ContactExtractor{}
}

// LooksLikeContactInfo flags "Name: ...", "my number is 9...", and "Name, 968..." style messages
func (c *ContactExtractor) LooksLikeContactInfo(text string) bool {
	if contactLabelPattern.MatchString(text) || selfReferencePattern.MatchString(text) {
		return true
	}
	return strings.Contains(text, ",") && phonePattern.MatchString(text)
}

// Extract returns the name following a name label and the first 9+ digit run
func (c *ContactExtractor) Extract(text string) ContactInfo {
	var info ContactInfo
	if m := contactNamePattern.FindStringSubmatch(text); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	info.Phone = phonePattern.FindString(text)
	return info
}

// stripPhoneNumbers blanks out phone-like digit runs so they are not read as offers
func stripPhoneNumbers(text string) string {
	return phoneLikePattern.ReplaceAllString(text, " ")
}
