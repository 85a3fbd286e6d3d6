package redact

import "regexp"

const (
	EmailPlaceholder = "[email]"
	PhonePlaceholder = "[phone]"
	URLPlaceholder   = "[link]"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)\bhttps?://[^\s]+|\bwww\.[^\s]+`)
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// 7+ digits, optionally grouped by spaces, dots, dashes or parentheses.
	phonePattern = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{5,}\d`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Redactor replaces emails, phone numbers and links with placeholders.
type Redactor struct{}

func New() *Redactor {
	return &Redactor{}
}

func (r *Redactor) Redact(text string) string {
	text = urlPattern.ReplaceAllString(text, URLPlaceholder)
	text = emailPattern.ReplaceAllString(text, EmailPlaceholder)
	return phonePattern.ReplaceAllStringFunc(text, func(m string) string {
		digits := 0
		for _, c := range m {
			if c >= '0' && c <= '9' {
				digits++
			}
		}
		if digits < 7 || datePattern.MatchString(m) {
			return m
		}
		return PhonePlaceholder
	})
}
