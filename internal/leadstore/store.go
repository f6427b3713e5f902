// Package leadstore is the typed boundary over the external lead
// store. All external field-label mapping and presence checking lives
// here; the rest of the pipeline works with model.Lead.
package leadstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/model"
	"github.com/harborcare/leadgen-cli/pkg/airtable"
)

// Store reads and writes leads and the outreach log.
type Store struct {
	client     airtable.Client
	leadsTable string
	logTable   string
}

// New creates a Store over the given Airtable client.
func New(client airtable.Client, leadsTable, logTable string) *Store {
	return &Store{
		client:     client,
		leadsTable: leadsTable,
		logTable:   logTable,
	}
}

// BelowScore builds a filter for leads scoring strictly below
// threshold, optionally restricted to one source.
func BelowScore(threshold int, source model.Source) string {
	formula := fmt.Sprintf("{%s} < %d", model.FieldScore, threshold)
	if source != "" {
		formula = fmt.Sprintf("AND(%s, {%s} = '%s')", formula, model.FieldSource, source)
	}
	return formula
}

// AtLeastScore builds a filter for leads scoring at or above threshold.
func AtLeastScore(threshold int) string {
	return fmt.Sprintf("{%s} >= %d", model.FieldScore, threshold)
}

// FetchLeads returns every lead matching the filter formula. An empty
// formula fetches the whole table.
func (s *Store) FetchLeads(ctx context.Context, formula string) ([]model.Lead, error) {
	var opts []airtable.ListOption
	if formula != "" {
		opts = append(opts, airtable.WithFilterFormula(formula))
	}

	records, err := s.client.ListRecords(ctx, s.leadsTable, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: fetch leads")
	}

	leads := make([]model.Lead, 0, len(records))
	for _, rec := range records {
		leads = append(leads, leadFromRecord(rec))
	}
	return leads, nil
}

// CreateLead uploads one lead.
func (s *Store) CreateLead(ctx context.Context, lead model.Lead) error {
	_, err := s.client.CreateRecord(ctx, s.leadsTable, leadFields(lead))
	return eris.Wrapf(err, "leadstore: create lead %s", lead.SourceURL)
}

// UpdateScore patches the confidence score and reason of one record.
func (s *Store) UpdateScore(ctx context.Context, recordID string, score int, reason string) error {
	_, err := s.client.UpdateRecord(ctx, s.leadsTable, recordID, map[string]any{
		model.FieldScore:       score,
		model.FieldScoreReason: reason,
	})
	return eris.Wrapf(err, "leadstore: update score %s", recordID)
}

// UpdateOutreachStatus patches the outreach status of one record.
func (s *Store) UpdateOutreachStatus(ctx context.Context, recordID string, status model.Status) error {
	_, err := s.client.UpdateRecord(ctx, s.leadsTable, recordID, map[string]any{
		model.FieldOutreach: string(status),
	})
	return eris.Wrapf(err, "leadstore: update outreach status %s", recordID)
}

// DeleteLeads removes the given records, chunked to the store's batch
// limit. Returns the number actually deleted.
func (s *Store) DeleteLeads(ctx context.Context, recordIDs []string) (int, error) {
	return s.client.DeleteRecords(ctx, s.leadsTable, recordIDs)
}

// ContactedURLs returns the set of post URLs already present in the
// outreach log. This set, not the stored outreach status, is the
// idempotence signal for outreach.
func (s *Store) ContactedURLs(ctx context.Context) (map[string]struct{}, error) {
	records, err := s.client.ListRecords(ctx, s.logTable)
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: fetch outreach log")
	}

	urls := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if url := stringField(rec.Fields, model.LogFieldPostURL); url != "" {
			urls[url] = struct{}{}
		}
	}
	return urls, nil
}

// AppendLog records one sent message in the outreach log.
func (s *Store) AppendLog(ctx context.Context, entry model.OutreachLogEntry) error {
	_, err := s.client.CreateRecord(ctx, s.logTable, map[string]any{
		model.LogFieldPostURL:   entry.PostURL,
		model.LogFieldLeadTitle: entry.LeadTitle,
		model.LogFieldMessage:   entry.Message,
		model.LogFieldScore:     entry.Score,
		model.LogFieldTimestamp: entry.SentAt.UTC().Format(time.RFC3339),
	})
	return eris.Wrapf(err, "leadstore: append log %s", entry.PostURL)
}

// leadFields maps a Lead onto external field labels. Empty optional
// values are omitted rather than sent as zero values.
func leadFields(lead model.Lead) map[string]any {
	fields := map[string]any{
		model.FieldTitle:       lead.Title,
		model.FieldDescription: lead.Description,
		model.FieldPhone:       lead.Phone,
		model.FieldLocation:    lead.Location,
		model.FieldSource:      string(lead.Source),
		model.FieldSourceURL:   lead.SourceURL,
		model.FieldOutreach:    string(lead.Outreach),
	}

	if lead.PostedAt != "" {
		if _, err := time.Parse(model.DateLayout, lead.PostedAt); err == nil {
			fields[model.FieldDatePosted] = lead.PostedAt
		} else {
			zap.L().Warn("leadstore: dropping unparseable date",
				zap.String("source_url", lead.SourceURL),
				zap.String("date", lead.PostedAt),
			)
		}
	}

	if lead.Score != nil {
		fields[model.FieldScore] = *lead.Score
		fields[model.FieldScoreReason] = lead.ScoreReason
	}

	return fields
}

// leadFromRecord converts an external record to a Lead. Missing fields
// become zero values; a numeric score becomes a populated Score.
func leadFromRecord(rec airtable.Record) model.Lead {
	lead := model.Lead{
		RecordID:    rec.ID,
		Title:       stringField(rec.Fields, model.FieldTitle),
		Description: stringField(rec.Fields, model.FieldDescription),
		Phone:       stringField(rec.Fields, model.FieldPhone),
		Location:    stringField(rec.Fields, model.FieldLocation),
		PostedAt:    stringField(rec.Fields, model.FieldDatePosted),
		SourceURL:   stringField(rec.Fields, model.FieldSourceURL),
		Source:      model.Source(stringField(rec.Fields, model.FieldSource)),
		ScoreReason: stringField(rec.Fields, model.FieldScoreReason),
		Outreach:    model.Status(stringField(rec.Fields, model.FieldOutreach)),
	}

	if raw, ok := rec.Fields[model.FieldScore]; ok {
		if f, ok := raw.(float64); ok {
			score := int(f)
			lead.Score = &score
		}
	}

	if lead.Outreach == "" {
		lead.Outreach = model.StatusNotContacted
	}

	return lead
}

func stringField(fields map[string]any, key string) string {
	if raw, ok := fields[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}
