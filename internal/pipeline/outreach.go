package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/leadstore"
	"github.com/harborcare/leadgen-cli/internal/model"
	"github.com/harborcare/leadgen-cli/internal/outreach"
)

// OutreachOptions controls the outreach stage.
type OutreachOptions struct {
	// Threshold selects leads scoring at or above it.
	Threshold int
	// Sleep is the pause between successful sends.
	Sleep time.Duration
	// DryRun composes messages without sending, logging, or updating.
	DryRun bool
}

// Outreach contacts every eligible lead: score at or above the
// threshold and Source URL absent from the outreach log. The log is
// authoritative; the status field on the lead record is not consulted.
// Returns the number of messages sent.
func (c *Coordinator) Outreach(ctx context.Context, opts OutreachOptions) (int, error) {
	leads, err := c.store.FetchLeads(ctx, leadstore.AtLeastScore(opts.Threshold))
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: outreach fetch")
	}

	contacted, err := c.store.ContactedURLs(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: outreach log fetch")
	}

	sent := 0
	for _, lead := range leads {
		if _, done := contacted[lead.SourceURL]; done {
			continue
		}

		target, err := outreach.ResolveTarget(lead.SourceURL)
		if err != nil {
			zap.L().Warn("pipeline: outreach target unresolved",
				zap.String("url", lead.SourceURL),
				zap.Error(err),
			)
			continue
		}

		message := c.dispatcher.Compose(lead)

		if opts.DryRun {
			zap.L().Info("pipeline: outreach dry run",
				zap.String("url", lead.SourceURL),
				zap.String("target", target),
				zap.Int("message_len", len(message)),
			)
			continue
		}

		if c.contactLead(ctx, lead, target, message) {
			contacted[lead.SourceURL] = struct{}{}
			sent++
			c.sleep(opts.Sleep)
		}
	}

	zap.L().Info("pipeline: outreach done",
		zap.Int("candidates", len(leads)),
		zap.Int("sent", sent),
	)
	return sent, nil
}

// contactLead attempts one send with bounded rate-limit retries.
// Reaching the retry cap abandons the lead without a further attempt.
func (c *Coordinator) contactLead(ctx context.Context, lead model.Lead, target, message string) bool {
	rateLimited := 0
	for {
		res := c.dispatcher.Send(ctx, target, message)
		switch res.Outcome {
		case outreach.OutcomeSent:
			c.recordContact(ctx, lead, message)
			return true
		case outreach.OutcomeRateLimited:
			rateLimited++
			if rateLimited >= c.cfg.OutreachRetryCap {
				zap.L().Warn("pipeline: outreach retry cap reached",
					zap.String("url", lead.SourceURL),
					zap.Int("attempts", rateLimited),
				)
				return false
			}
			zap.L().Info("pipeline: outreach rate limited",
				zap.String("url", lead.SourceURL),
				zap.Duration("wait", res.Wait),
			)
			c.sleep(res.Wait)
		default:
			zap.L().Warn("pipeline: outreach abandoned",
				zap.String("url", lead.SourceURL),
				zap.String("reason", res.Reason),
			)
			return false
		}
	}
}

// recordContact appends the outreach log entry and flips the lead
// status. Failures are logged; the send already happened.
func (c *Coordinator) recordContact(ctx context.Context, lead model.Lead, message string) {
	entry := model.OutreachLogEntry{
		PostURL:   lead.SourceURL,
		LeadTitle: lead.Title,
		Message:   message,
		Score:     lead.ScoreValue(),
		SentAt:    time.Now().UTC(),
	}
	if err := c.store.AppendLog(ctx, entry); err != nil {
		zap.L().Warn("pipeline: outreach log append failed",
			zap.String("url", lead.SourceURL),
			zap.Error(err),
		)
	}
	if err := c.store.UpdateOutreachStatus(ctx, lead.RecordID, model.StatusContacted); err != nil {
		zap.L().Warn("pipeline: outreach status update failed",
			zap.String("record_id", lead.RecordID),
			zap.Error(err),
		)
	}
}
