package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/model"
)

// resultsPerPage is Craigslist's fixed search page size.
const resultsPerPage = 120

// craigslistUserAgent keeps the scraper from being served a bot page.
const craigslistUserAgent = "Mozilla/5.0 (compatible; leadgen-cli/1.0)"

// CraigslistSource scrapes a Craigslist search section for posts that
// mention any configured keyword.
type CraigslistSource struct {
	http     *http.Client
	baseURL  string
	section  string
	query    string
	pages    int
	keywords []string
	delay    time.Duration

	sleep func(time.Duration)
}

// NewCraigslist creates a CraigslistSource scraping the given section
// (e.g. "lss" for lessons & services). delay is the pause between page
// fetches.
func NewCraigslist(hc *http.Client, baseURL, section, query string, pages int, keywords []string, delay time.Duration) *CraigslistSource {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &CraigslistSource{
		http:     hc,
		baseURL:  strings.TrimRight(baseURL, "/"),
		section:  section,
		query:    query,
		pages:    pages,
		keywords: keywords,
		delay:    delay,
		sleep:    time.Sleep,
	}
}

func (s *CraigslistSource) Name() model.Source {
	return model.SourceCraigslist
}

// Fetch walks the search result pages. A failing page or detail fetch
// is reported and skipped; the rest of the scrape continues.
func (s *CraigslistSource) Fetch(ctx context.Context) ([]RawPost, error) {
	var posts []RawPost

	for page := 0; page < s.pages; page++ {
		if page > 0 && s.delay > 0 {
			s.sleep(s.delay)
		}

		searchURL := fmt.Sprintf("%s/search/%s?query=%s&s=%d",
			s.baseURL, s.section, url.QueryEscape(s.query), page*resultsPerPage)

		doc, err := s.fetchDocument(ctx, searchURL)
		if err != nil {
			zap.L().Warn("source: craigslist page fetch failed",
				zap.Int("page", page+1),
				zap.Error(err),
			)
			continue
		}

		results := doc.Find(".result-info")
		if results.Length() == 0 {
			break
		}

		results.Each(func(_ int, sel *goquery.Selection) {
			post, err := s.parseResult(ctx, sel)
			if err != nil {
				zap.L().Warn("source: craigslist result skipped", zap.Error(err))
				return
			}
			if post != nil {
				posts = append(posts, *post)
			}
		})

		zap.L().Info("source: craigslist page scraped",
			zap.Int("page", page+1),
			zap.Int("results", results.Length()),
		)
	}

	return posts, nil
}

// parseResult extracts one search result and fetches its detail page
// for the full description. Returns nil when the post matches no
// keyword.
func (s *CraigslistSource) parseResult(ctx context.Context, sel *goquery.Selection) (*RawPost, error) {
	titleLink := sel.Find("a.result-title")
	title := strings.TrimSpace(titleLink.Text())
	link, ok := titleLink.Attr("href")
	if !ok || link == "" {
		return nil, eris.New("craigslist: result without link")
	}

	postedAt := time.Time{}
	if raw, ok := sel.Find("time").Attr("datetime"); ok {
		postedAt = parseCraigslistTime(raw)
	}

	location := ""
	if hood := sel.Find(".result-hood"); hood.Length() > 0 {
		location = strings.Trim(strings.TrimSpace(hood.Text()), " ()")
	}

	detail, err := s.fetchDocument(ctx, link)
	if err != nil {
		return nil, eris.Wrapf(err, "craigslist: detail %s", link)
	}
	description := strings.TrimSpace(detail.Find("#postingbody").Text())

	if !MatchesKeywords(title+" "+description, s.keywords) {
		return nil, nil
	}

	return &RawPost{
		Title:    title,
		Body:     description,
		PostedAt: postedAt,
		URL:      link,
		Location: location,
	}, nil
}

func (s *CraigslistSource) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "craigslist: create request")
	}
	req.Header.Set("User-Agent", craigslistUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "craigslist: fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("craigslist: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "craigslist: parse %s", rawURL)
	}
	return doc, nil
}

// parseCraigslistTime accepts the datetime formats Craigslist has used
// in listing markup. Unparseable input yields the zero time; the lead
// is still kept, just without a date.
func parseCraigslistTime(raw string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04",
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
