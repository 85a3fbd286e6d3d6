package profile

import (
	"strings"
	"time"
)

const (
	GranularityNormal = "normal"
	GranularityHigh   = "high"
)

// Profile holds the user's preferences passed to the generative service.
type Profile struct {
	GranularityPreference string    `yaml:"granularity_preference" json:"granularityPreference"`
	TriggersToAvoid       string    `yaml:"triggers_to_avoid" json:"triggersToAvoid"`
	SupportStyle          string    `yaml:"support_style" json:"supportStyle"`
	UpdatedAt             time.Time `yaml:"updated_at" json:"updatedAt"`
}

// IsZero reports whether no preference has been set.
func (p *Profile) IsZero() bool {
	return p == nil ||
		strings.TrimSpace(p.GranularityPreference) == "" &&
			strings.TrimSpace(p.TriggersToAvoid) == "" &&
			strings.TrimSpace(p.SupportStyle) == ""
}
