// Package pipeline orchestrates the lead pipeline: ingest, score,
// persist, prune, and outreach. Stages are best-effort sequential: a
// failing stage is reported and the next stage still runs; nothing
// rolls back completed work.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/config"
	"github.com/harborcare/leadgen-cli/internal/model"
	"github.com/harborcare/leadgen-cli/internal/outreach"
	"github.com/harborcare/leadgen-cli/internal/source"
)

// LeadStore is the external lead store as seen by the coordinator.
type LeadStore interface {
	FetchLeads(ctx context.Context, formula string) ([]model.Lead, error)
	CreateLead(ctx context.Context, lead model.Lead) error
	UpdateScore(ctx context.Context, recordID string, score int, reason string) error
	UpdateOutreachStatus(ctx context.Context, recordID string, status model.Status) error
	DeleteLeads(ctx context.Context, recordIDs []string) (int, error)
	ContactedURLs(ctx context.Context) (map[string]struct{}, error)
	AppendLog(ctx context.Context, entry model.OutreachLogEntry) error
}

// Ledger is the persisted seen-URL set.
type Ledger interface {
	Load(ctx context.Context) (map[string]struct{}, error)
	Merge(ctx context.Context, urls map[string]struct{}) error
}

// Scorer assigns a confidence score to lead text. It never fails; bad
// replies degrade to score 0.
type Scorer interface {
	Score(ctx context.Context, text string) (int, string)
}

// Dispatcher composes and sends one outreach message per call.
type Dispatcher interface {
	Compose(lead model.Lead) string
	Send(ctx context.Context, target, message string) outreach.Result
}

// ConfirmFunc asks the operator to confirm a destructive action.
type ConfirmFunc func(prompt string) bool

// Coordinator wires the pipeline stages together and owns all
// retry/backoff and state-transition logic.
type Coordinator struct {
	cfg        config.PipelineConfig
	sources    []source.Source
	ledger     Ledger
	scorer     Scorer
	store      LeadStore
	dispatcher Dispatcher
	confirm    ConfirmFunc

	// sleep is swapped for a recorder in tests; every timed wait in
	// the pipeline goes through it.
	sleep func(time.Duration)
}

// New creates a Coordinator. confirm may be nil, in which case
// destructive actions proceed only with an explicit yes flag.
func New(
	cfg config.PipelineConfig,
	sources []source.Source,
	ledger Ledger,
	sc Scorer,
	st LeadStore,
	dispatcher Dispatcher,
	confirm ConfirmFunc,
) *Coordinator {
	if confirm == nil {
		confirm = func(string) bool { return false }
	}
	return &Coordinator{
		cfg:        cfg,
		sources:    sources,
		ledger:     ledger,
		scorer:     sc,
		store:      st,
		dispatcher: dispatcher,
		confirm:    confirm,
		sleep:      time.Sleep,
	}
}

// RunOptions controls a full pipeline run.
type RunOptions struct {
	// DryRun applies to the prune and outreach stages.
	DryRun bool
	// Confirmed skips the interactive prune confirmation.
	Confirmed bool
}

// Run executes the full sequence: ingest, score, persist, prune,
// outreach. Each stage's failure is logged and the remaining stages
// still run.
func (c *Coordinator) Run(ctx context.Context, opts RunOptions) {
	log := zap.L().With(zap.String("run_id", uuid.New().String()))
	log.Info("pipeline: run starting")

	leads, err := c.Ingest(ctx)
	if err != nil {
		log.Error("pipeline: ingest stage failed", zap.Error(err))
	}

	c.ScoreLeads(ctx, leads)

	uploaded := c.Persist(ctx, leads)
	log.Info("pipeline: persist stage done",
		zap.Int("new_leads", len(leads)),
		zap.Int("uploaded", uploaded),
	)

	if _, err := c.Prune(ctx, PruneOptions{
		Threshold: c.cfg.DeleteThreshold,
		DryRun:    opts.DryRun,
		Confirmed: opts.Confirmed,
	}); err != nil {
		log.Error("pipeline: prune stage failed", zap.Error(err))
	}

	if _, err := c.Outreach(ctx, OutreachOptions{
		Threshold: c.cfg.OutreachThreshold,
		Sleep:     time.Duration(c.cfg.OutreachSleepSecs) * time.Second,
		DryRun:    opts.DryRun,
	}); err != nil {
		log.Error("pipeline: outreach stage failed", zap.Error(err))
	}

	log.Info("pipeline: run complete")
}
