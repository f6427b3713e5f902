package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/model"
	"github.com/harborcare/leadgen-cli/internal/source"
)

// Ingest pulls candidate posts from every source, drops the ones whose
// URL is already in the ledger or earlier in the same batch, and merges
// all newly observed URLs back into the ledger. "Seen" means observed:
// URLs are merged even if scoring or upload later fails for the lead.
func (c *Coordinator) Ingest(ctx context.Context) ([]model.Lead, error) {
	seen, err := c.ledger.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load ledger")
	}

	var leads []model.Lead
	observed := make(map[string]struct{})

	for _, src := range c.sources {
		posts, err := src.Fetch(ctx)
		if err != nil {
			zap.L().Warn("pipeline: source fetch failed",
				zap.String("source", string(src.Name())),
				zap.Error(err),
			)
			continue
		}

		kept := 0
		for _, post := range posts {
			if post.URL == "" {
				continue
			}
			if _, ok := seen[post.URL]; ok {
				continue
			}
			if _, ok := observed[post.URL]; ok {
				continue
			}
			observed[post.URL] = struct{}{}
			leads = append(leads, c.buildLead(post, src.Name()))
			kept++
		}

		zap.L().Info("pipeline: source ingested",
			zap.String("source", string(src.Name())),
			zap.Int("fetched", len(posts)),
			zap.Int("new", kept),
		)
	}

	if err := c.ledger.Merge(ctx, observed); err != nil {
		return leads, eris.Wrap(err, "pipeline: merge ledger")
	}

	return leads, nil
}

// buildLead converts a raw post into a Lead: URL becomes the identity,
// a phone number is extracted from the text, and missing location and
// date fall back to the region default and an empty date.
func (c *Coordinator) buildLead(post source.RawPost, src model.Source) model.Lead {
	description := post.Body
	if description == "" {
		description = post.Title
	}

	location := post.Location
	if location == "" {
		location = c.cfg.Region
	}

	postedAt := ""
	if !post.PostedAt.IsZero() {
		postedAt = post.PostedAt.UTC().Format(model.DateLayout)
	}

	return model.Lead{
		SourceURL:   post.URL,
		Title:       post.Title,
		Description: description,
		PostedAt:    postedAt,
		Phone:       source.ExtractPhone(post.Title + " " + post.Body),
		Location:    location,
		Source:      src,
		Outreach:    model.StatusNotContacted,
	}
}

// ScoreLeads assigns a confidence score to every unscored lead,
// pausing between judgment calls to respect the service's rate limits.
func (c *Coordinator) ScoreLeads(ctx context.Context, leads []model.Lead) {
	delay := time.Duration(c.cfg.ScoreDelayMs) * time.Millisecond

	scored := 0
	for i := range leads {
		if leads[i].Scored() {
			continue
		}
		if scored > 0 && delay > 0 {
			c.sleep(delay)
		}

		score, reason := c.scorer.Score(ctx, leads[i].Description)
		leads[i].Score = &score
		leads[i].ScoreReason = reason
		scored++
	}

	zap.L().Info("pipeline: scoring done", zap.Int("scored", scored))
}

// Persist uploads leads to the store. An individual upload failure is
// reported and the batch continues. Returns the uploaded count.
func (c *Coordinator) Persist(ctx context.Context, leads []model.Lead) int {
	uploaded := 0
	for _, lead := range leads {
		if err := c.store.CreateLead(ctx, lead); err != nil {
			zap.L().Warn("pipeline: upload failed",
				zap.String("source_url", lead.SourceURL),
				zap.Error(err),
			)
			continue
		}
		uploaded++
	}
	return uploaded
}
