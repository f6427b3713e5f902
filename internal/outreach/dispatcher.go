// Package outreach composes and sends messages to lead authors through
// the source channel, classifying channel failures for the
// coordinator's retry loop.
package outreach

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/harborcare/leadgen-cli/internal/model"
)

// Outcome classifies one send attempt.
type Outcome int

const (
	// OutcomeSent means the message was delivered.
	OutcomeSent Outcome = iota
	// OutcomeRateLimited means the channel refused with a wait hint;
	// the same lead may be retried after Result.Wait.
	OutcomeRateLimited
	// OutcomeAbandoned means a non-retryable failure; the lead is
	// given up on.
	OutcomeAbandoned
)

// Result is the classified outcome of one send attempt.
type Result struct {
	Outcome Outcome
	// Wait is how long to back off before retrying; set only for
	// OutcomeRateLimited.
	Wait time.Duration
	// Reason describes the failure for reporting.
	Reason string
}

// Replier posts a reply to a channel target. Satisfied by reddit.Client.
type Replier interface {
	Reply(ctx context.Context, postID, text string) error
}

// DefaultMessage is sent when no template is configured or the
// configured template cannot be fully substituted.
const DefaultMessage = "Hi there! I noticed your post and wanted to offer some help.\n\n" +
	"We provide Personal Care Assistant and Homemaker Companion services in New Haven County, CT, including overnight, live-in, and 12-hour shifts (minimum 4 hours).\n\n" +
	"Call or text (203) 444-6194 or our office (203) 298-4867 Mon-Fri 9am-5pm. Happy to answer questions and discuss options."

// tokenPattern matches template tokens like {title}.
var tokenPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// Dispatcher sends one message per call. It holds no per-lead state;
// the coordinator owns the retry loop.
type Dispatcher struct {
	channel  Replier
	template string
}

// NewDispatcher creates a Dispatcher. template may reference {title},
// {score}, {post_url} and {location}; empty means DefaultMessage.
func NewDispatcher(channel Replier, template string) *Dispatcher {
	return &Dispatcher{channel: channel, template: template}
}

// ResolveTarget extracts the channel post ID from a lead's source URL
// (the segment following "comments" in a Reddit permalink).
func ResolveTarget(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", eris.Wrapf(err, "outreach: parse url %s", sourceURL)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "comments" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}
	return "", eris.Errorf("outreach: no post id in url %s", sourceURL)
}

// Compose renders the outreach message for a lead. The default message
// is used when no template is configured or when substitution leaves
// unresolved tokens.
func (d *Dispatcher) Compose(lead model.Lead) string {
	if d.template == "" {
		return DefaultMessage
	}

	replacer := strings.NewReplacer(
		"{title}", lead.Title,
		"{score}", fmt.Sprint(lead.ScoreValue()),
		"{post_url}", lead.SourceURL,
		"{location}", lead.Location,
	)
	message := replacer.Replace(d.template)

	if tokenPattern.MatchString(message) {
		return DefaultMessage
	}
	return message
}

// Send delivers one message to the target and classifies the outcome.
func (d *Dispatcher) Send(ctx context.Context, target, message string) Result {
	err := d.channel.Reply(ctx, target, message)
	if err == nil {
		return Result{Outcome: OutcomeSent}
	}

	if IsRateLimited(err) {
		return Result{
			Outcome: OutcomeRateLimited,
			Wait:    ParseWait(err.Error()),
			Reason:  err.Error(),
		}
	}

	return Result{Outcome: OutcomeAbandoned, Reason: err.Error()}
}
