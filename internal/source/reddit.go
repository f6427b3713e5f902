package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/model"
	"github.com/harborcare/leadgen-cli/pkg/reddit"
)

// RedditSource pulls the newest posts from a set of subreddits and
// keeps the ones mentioning any configured keyword.
type RedditSource struct {
	client     reddit.Client
	subreddits []string
	limit      int
	keywords   []string
	delay      time.Duration

	sleep func(time.Duration)
}

// NewReddit creates a RedditSource. delay is the pause between
// subreddit requests, keeping to the listing API's informal limits.
func NewReddit(client reddit.Client, subreddits []string, limit int, keywords []string, delay time.Duration) *RedditSource {
	return &RedditSource{
		client:     client,
		subreddits: subreddits,
		limit:      limit,
		keywords:   keywords,
		delay:      delay,
		sleep:      time.Sleep,
	}
}

func (s *RedditSource) Name() model.Source {
	return model.SourceReddit
}

// Fetch lists each subreddit in turn. A failing subreddit is reported
// and skipped; the remaining subreddits are still fetched.
func (s *RedditSource) Fetch(ctx context.Context) ([]RawPost, error) {
	var posts []RawPost

	for i, sub := range s.subreddits {
		if i > 0 && s.delay > 0 {
			s.sleep(s.delay)
		}

		listed, err := s.client.ListNew(ctx, sub, s.limit)
		if err != nil {
			zap.L().Warn("source: reddit listing failed",
				zap.String("subreddit", sub),
				zap.Error(err),
			)
			continue
		}

		kept := 0
		for _, p := range listed {
			if p.URL() == "" {
				continue
			}
			if !MatchesKeywords(p.Title+" "+p.SelfText, s.keywords) {
				continue
			}
			posts = append(posts, RawPost{
				Title:    p.Title,
				Body:     p.SelfText,
				PostedAt: p.Created(),
				URL:      p.URL(),
			})
			kept++
		}

		zap.L().Info("source: subreddit fetched",
			zap.String("subreddit", sub),
			zap.Int("listed", len(listed)),
			zap.Int("kept", kept),
		)
	}

	return posts, nil
}
