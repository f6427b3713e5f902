// Package source defines lead sources: external channels that produce
// candidate posts for the pipeline.
package source

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/harborcare/leadgen-cli/internal/model"
)

// RawPost is one candidate post as produced by a source. URL is the
// lead identity. PostedAt may be the zero time when the source supplied
// no usable date; Location may be empty when the source carries none.
type RawPost struct {
	Title    string
	Body     string
	PostedAt time.Time
	URL      string
	Location string
}

// Source produces candidate posts from one external channel.
type Source interface {
	Name() model.Source
	Fetch(ctx context.Context) ([]RawPost, error)
}

// phonePattern matches US phone numbers like (203) 555-1234 or 203.555.1234.
var phonePattern = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

// ExtractPhone returns the first phone number found in text, or
// model.PhoneUnknown when none is present.
func ExtractPhone(text string) string {
	if m := phonePattern.FindString(text); m != "" {
		return m
	}
	return model.PhoneUnknown
}

// MatchesKeywords reports whether text contains any of the keywords,
// case-insensitively.
func MatchesKeywords(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
