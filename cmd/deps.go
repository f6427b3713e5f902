package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/harborcare/leadgen-cli/internal/leadstore"
	"github.com/harborcare/leadgen-cli/internal/ledger"
	"github.com/harborcare/leadgen-cli/internal/outreach"
	"github.com/harborcare/leadgen-cli/internal/pipeline"
	"github.com/harborcare/leadgen-cli/internal/scorer"
	"github.com/harborcare/leadgen-cli/internal/source"
	"github.com/harborcare/leadgen-cli/pkg/airtable"
	anthropicpkg "github.com/harborcare/leadgen-cli/pkg/anthropic"
	"github.com/harborcare/leadgen-cli/pkg/reddit"
)

// initStore builds the Airtable-backed lead store.
func initStore() *leadstore.Store {
	client := airtable.NewClient(cfg.Airtable.APIKey, cfg.Airtable.BaseID,
		airtable.WithBaseURL(cfg.Airtable.BaseURL),
		airtable.WithDeleteBatchSize(cfg.Airtable.DeleteBatchSize),
	)
	return leadstore.New(client, cfg.Airtable.LeadsTable, cfg.Airtable.OutreachTable)
}

// initLedger opens the local seen-URL ledger. Callers own Close.
func initLedger() (*ledger.Ledger, error) {
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}
	return l, nil
}

func initScorer() *scorer.Scorer {
	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	return scorer.New(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
}

func redditClient() reddit.Client {
	return reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
	})
}

// initSources builds the requested post sources. which is "reddit",
// "craigslist", or "" for both.
func initSources(which string) ([]source.Source, error) {
	delay := time.Duration(cfg.Pipeline.SourceDelaySecs) * time.Second

	redditSrc := source.NewReddit(redditClient(), cfg.Reddit.Subreddits, cfg.Reddit.PostLimit, cfg.Pipeline.Keywords, delay)
	craigslistSrc := source.NewCraigslist(nil, cfg.Craigslist.BaseURL, cfg.Craigslist.Section, cfg.Craigslist.Query, cfg.Craigslist.Pages, cfg.Pipeline.Keywords, delay)

	switch strings.ToLower(which) {
	case "":
		return []source.Source{redditSrc, craigslistSrc}, nil
	case "reddit":
		return []source.Source{redditSrc}, nil
	case "craigslist":
		return []source.Source{craigslistSrc}, nil
	default:
		return nil, eris.Errorf("unknown source %q (want reddit or craigslist)", which)
	}
}

func initDispatcher() *outreach.Dispatcher {
	return outreach.NewDispatcher(redditClient(), cfg.Outreach.MessageTemplate)
}

// initCoordinator wires the full pipeline. The ledger it opens is
// returned so the caller can Close it.
func initCoordinator(sourceFilter string) (*pipeline.Coordinator, *ledger.Ledger, error) {
	sources, err := initSources(sourceFilter)
	if err != nil {
		return nil, nil, err
	}

	l, err := initLedger()
	if err != nil {
		return nil, nil, err
	}

	coord := pipeline.New(cfg.Pipeline, sources, l, initScorer(), initStore(), initDispatcher(), stdinConfirm)
	return coord, l, nil
}

// stdinConfirm prompts on stdout and reads a yes/no answer.
func stdinConfirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
