package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/leadstore"
	"github.com/harborcare/leadgen-cli/internal/model"
)

// Rescore re-runs the scorer over every stored lead with a non-empty
// description and patches the stored score and reason. Useful after a
// rubric or model change.
func (c *Coordinator) Rescore(ctx context.Context) (int, error) {
	leads, err := c.store.FetchLeads(ctx, "")
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: rescore fetch")
	}

	delay := time.Duration(c.cfg.ScoreDelayMs) * time.Millisecond

	updated := 0
	for _, lead := range leads {
		if lead.Description == "" {
			continue
		}
		if updated > 0 && delay > 0 {
			c.sleep(delay)
		}

		score, reason := c.scorer.Score(ctx, lead.Description)
		if err := c.store.UpdateScore(ctx, lead.RecordID, score, reason); err != nil {
			zap.L().Warn("pipeline: rescore update failed",
				zap.String("record_id", lead.RecordID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	zap.L().Info("pipeline: rescore done",
		zap.Int("fetched", len(leads)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// DedupStore removes duplicate store records sharing a Source URL,
// keeping the first record per URL, and merges every observed URL into
// the ledger.
func (c *Coordinator) DedupStore(ctx context.Context) (int, error) {
	leads, err := c.store.FetchLeads(ctx, "")
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: dedup fetch")
	}

	firstByURL := make(map[string]struct{})
	observed := make(map[string]struct{})
	var duplicates []string

	for _, lead := range leads {
		if lead.SourceURL == "" {
			continue
		}
		observed[lead.SourceURL] = struct{}{}
		if _, ok := firstByURL[lead.SourceURL]; ok {
			duplicates = append(duplicates, lead.RecordID)
			continue
		}
		firstByURL[lead.SourceURL] = struct{}{}
	}

	deleted := 0
	if len(duplicates) > 0 {
		deleted, err = c.store.DeleteLeads(ctx, duplicates)
		if err != nil {
			zap.L().Warn("pipeline: dedup delete incomplete",
				zap.Int("deleted", deleted),
				zap.Int("wanted", len(duplicates)),
				zap.Error(err),
			)
		}
	}

	if err := c.ledger.Merge(ctx, observed); err != nil {
		return deleted, eris.Wrap(err, "pipeline: dedup merge ledger")
	}

	zap.L().Info("pipeline: dedup done",
		zap.Int("records", len(leads)),
		zap.Int("duplicates_deleted", deleted),
	)
	return deleted, nil
}

// PruneOptions controls the prune stage.
type PruneOptions struct {
	// Threshold deletes leads scoring strictly below it.
	Threshold int
	// Source optionally restricts pruning to one lead source.
	Source model.Source
	// DryRun reports the count without deleting.
	DryRun bool
	// Confirmed skips the interactive confirmation.
	Confirmed bool
}

// Prune deletes stored leads whose confidence score is strictly below
// the threshold. A declined confirmation is a clean no-op, not an
// error. Returns the number of records deleted.
func (c *Coordinator) Prune(ctx context.Context, opts PruneOptions) (int, error) {
	formula := leadstore.BelowScore(opts.Threshold, opts.Source)
	leads, err := c.store.FetchLeads(ctx, formula)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: prune fetch")
	}

	if len(leads) == 0 {
		zap.L().Info("pipeline: nothing to prune", zap.Int("threshold", opts.Threshold))
		return 0, nil
	}

	if opts.DryRun {
		zap.L().Info("pipeline: prune dry run",
			zap.Int("threshold", opts.Threshold),
			zap.Int("would_delete", len(leads)),
		)
		return 0, nil
	}

	if !opts.Confirmed {
		prompt := fmt.Sprintf("Delete %d records scoring below %d? [y/N]: ", len(leads), opts.Threshold)
		if !c.confirm(prompt) {
			zap.L().Info("pipeline: prune aborted by operator")
			return 0, nil
		}
	}

	ids := make([]string, len(leads))
	for i, lead := range leads {
		ids[i] = lead.RecordID
	}

	deleted, err := c.store.DeleteLeads(ctx, ids)
	if err != nil {
		return deleted, eris.Wrap(err, "pipeline: prune delete")
	}

	zap.L().Info("pipeline: prune done", zap.Int("deleted", deleted))
	return deleted, nil
}
