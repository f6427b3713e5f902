// Package reddit provides a client for Reddit's public listing API and
// the authenticated comment endpoint used for outreach replies.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Reddit operations used by the pipeline.
type Client interface {
	// ListNew returns the newest posts in a subreddit via the public
	// JSON listing endpoint. No authentication required.
	ListNew(ctx context.Context, subreddit string, limit int) ([]Post, error)
	// Reply posts a comment on the submission with the given ID.
	// Rate-limit rejections surface as errors whose text contains
	// "RATELIMIT" plus Reddit's human-readable wait message.
	Reply(ctx context.Context, postID, text string) error
}

// Post is one submission from a listing.
type Post struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// URL returns the full reddit.com URL for the post.
func (p Post) URL() string {
	if p.Permalink == "" {
		return ""
	}
	return "https://www.reddit.com" + p.Permalink
}

// Created returns the post's creation time, or the zero time when the
// listing carried no timestamp.
func (p Post) Created() time.Time {
	if p.CreatedUTC == 0 {
		return time.Time{}
	}
	return time.Unix(int64(p.CreatedUTC), 0).UTC()
}

// Credentials holds the script-app credentials for the reply endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Option configures the Reddit client.
type Option func(*httpClient)

// WithListingBaseURL sets a custom public listing base URL (for testing).
func WithListingBaseURL(u string) Option {
	return func(c *httpClient) {
		c.listingBaseURL = u
	}
}

// WithAuthBaseURL sets a custom token endpoint base URL (for testing).
func WithAuthBaseURL(u string) Option {
	return func(c *httpClient) {
		c.authBaseURL = u
	}
}

// WithAPIBaseURL sets a custom OAuth API base URL (for testing).
func WithAPIBaseURL(u string) Option {
	return func(c *httpClient) {
		c.apiBaseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	creds          Credentials
	listingBaseURL string
	authBaseURL    string
	apiBaseURL     string
	http           *http.Client

	token       string
	tokenExpiry time.Time
}

// NewClient creates a Reddit client. Listing calls work with empty
// credentials; Reply requires all of them.
func NewClient(creds Credentials, opts ...Option) Client {
	c := &httpClient{
		creds:          creds,
		listingBaseURL: "https://www.reddit.com",
		authBaseURL:    "https://www.reddit.com",
		apiBaseURL:     "https://oauth.reddit.com",
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) userAgent() string {
	if c.creds.UserAgent != "" {
		return c.creds.UserAgent
	}
	return "leadgen-cli/1.0"
}

type listing struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *httpClient) ListNew(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 25
	}
	reqURL := fmt.Sprintf("%s/r/%s/new.json?limit=%d", c.listingBaseURL, url.PathEscape(subreddit), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create listing request")
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "reddit: list r/%s", subreddit)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, eris.Wrap(readErr, "reddit: read listing body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("reddit: list r/%s: status %d: %s", subreddit, resp.StatusCode, string(body))
	}

	var page listing
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrapf(err, "reddit: unmarshal r/%s listing", subreddit)
	}

	posts := make([]Post, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// accessToken returns a cached OAuth token, refreshing via the
// password grant when missing or near expiry.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-1*time.Minute)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authBaseURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "reddit: create token request")
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "reddit: token request")
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", eris.Wrap(readErr, "reddit: read token body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("reddit: token: status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "reddit: unmarshal token")
	}
	if tok.AccessToken == "" {
		return "", eris.New("reddit: empty access token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// commentResponse is the api_type=json envelope for /api/comment.
type commentResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
	} `json:"json"`
}

func (c *httpClient) Reply(ctx context.Context, postID, text string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", "t3_"+postID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "reddit: create comment request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "reddit: comment on %s", postID)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return eris.Wrap(readErr, "reddit: read comment body")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("reddit: comment on %s: status %d: %s", postID, resp.StatusCode, string(body))
	}

	var cr commentResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return eris.Wrap(err, "reddit: unmarshal comment response")
	}
	for _, apiErr := range cr.JSON.Errors {
		// apiErr is [code, message, field]; the rate-limit code carries
		// a human-readable wait in the message.
		code := ""
		msg := ""
		if len(apiErr) > 0 {
			code = apiErr[0]
		}
		if len(apiErr) > 1 {
			msg = apiErr[1]
		}
		return eris.Errorf("reddit: comment rejected: %s: %s", code, msg)
	}

	return nil
}
