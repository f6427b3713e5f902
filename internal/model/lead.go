// Package model defines the core lead types shared across the pipeline.
package model

import "time"

// Source identifies which external channel produced a lead.
type Source string

const (
	SourceReddit     Source = "Reddit"
	SourceCraigslist Source = "Craigslist"
)

// Status tracks whether a lead has been contacted.
type Status string

const (
	StatusNotContacted Status = "Not Contacted"
	StatusContacted    Status = "Contacted"
)

// PhoneUnknown is the stored value when no phone number could be extracted.
const PhoneUnknown = "N/A"

// Lead is a candidate service inquiry pulled from an external source.
// SourceURL is the identity: the dedup key, immutable once created.
type Lead struct {
	// RecordID is assigned by the lead store; empty until persisted.
	RecordID string `json:"record_id,omitempty"`

	SourceURL   string `json:"source_url"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// PostedAt is YYYY-MM-DD, or empty when the source supplied no
	// usable date. Leads without a date are kept, not dropped.
	PostedAt string `json:"posted_at,omitempty"`

	Phone    string `json:"phone"`
	Location string `json:"location"`
	Source   Source `json:"source"`

	// Score is nil until the lead has been through the scorer.
	Score       *int   `json:"score,omitempty"`
	ScoreReason string `json:"score_reason,omitempty"`

	Outreach Status `json:"outreach_status"`
}

// Scored reports whether the lead carries a confidence score.
func (l *Lead) Scored() bool {
	return l.Score != nil
}

// ScoreValue returns the confidence score, or 0 when unscored.
func (l *Lead) ScoreValue() int {
	if l.Score == nil {
		return 0
	}
	return *l.Score
}

// OutreachLogEntry is the immutable record of one sent message. The
// presence of an entry for a post URL is the sole idempotence signal
// preventing a second outreach attempt to the same lead.
type OutreachLogEntry struct {
	PostURL   string    `json:"post_url"`
	LeadTitle string    `json:"lead_title"`
	Message   string    `json:"message"`
	Score     int       `json:"score"`
	SentAt    time.Time `json:"sent_at"`
}

// External field labels for the leads table. The adapter is the only
// place these appear; everything else works with the typed Lead.
const (
	FieldTitle       = "Full Name or Listing Title"
	FieldDescription = "Post Description / Notes"
	FieldPhone       = "Phone Number"
	FieldLocation    = "Location (city/town)"
	FieldDatePosted  = "Date Posted"
	FieldSource      = "Lead Source"
	FieldSourceURL   = "Source URL"
	FieldScore       = "Confidence Score"
	FieldScoreReason = "Confidence Reason"
	FieldOutreach    = "Outreach Status"
)

// External field labels for the outreach log table.
const (
	LogFieldPostURL   = "Post URL"
	LogFieldLeadTitle = "Lead Title"
	LogFieldMessage   = "Message Sent"
	LogFieldScore     = "Confidence Score"
	LogFieldTimestamp = "Timestamp"
)

// DateLayout is the store's date format for FieldDatePosted.
const DateLayout = "2006-01-02"
