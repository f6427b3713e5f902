package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func craigslistServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/search/lss", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") != "0" {
			// Later pages are empty; the scrape stops.
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body>
			<div class="result-info">
				<time datetime="2026-08-30 14:03"></time>
				<a class="result-title" href="%s/lss/d/caregiver-needed/111.html">Caregiver needed for elderly mother</a>
				<span class="result-hood"> (Hamden)</span>
			</div>
			<div class="result-info">
				<time datetime="2026-08-29 09:15"></time>
				<a class="result-title" href="%s/lss/d/guitar-lessons/222.html">Guitar lessons</a>
			</div>
		</body></html>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/lss/d/caregiver-needed/111.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><section id="postingbody">Looking for a part time caregiver, call (203) 555-0142.</section></body></html>`)
	})
	mux.HandleFunc("/lss/d/guitar-lessons/222.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><section id="postingbody">Beginner guitar lessons.</section></body></html>`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCraigslistFetch(t *testing.T) {
	srv := craigslistServer(t)

	src := NewCraigslist(srv.Client(), srv.URL, "lss", "caregiver", 3, []string{"caregiver"}, 0)
	posts, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)

	post := posts[0]
	assert.Equal(t, "Caregiver needed for elderly mother", post.Title)
	assert.Contains(t, post.Body, "part time caregiver")
	assert.Equal(t, "Hamden", post.Location)
	assert.Equal(t, srv.URL+"/lss/d/caregiver-needed/111.html", post.URL)
	assert.Equal(t, time.Date(2026, 8, 30, 14, 3, 0, 0, time.UTC), post.PostedAt)
}

func TestCraigslistFetch_StopsOnEmptyPage(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pages++
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer srv.Close()

	src := NewCraigslist(srv.Client(), srv.URL, "lss", "caregiver", 5, []string{"caregiver"}, 0)
	posts, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, 1, pages)
}

func TestParseCraigslistTime(t *testing.T) {
	assert.Equal(t, time.Date(2026, 8, 30, 14, 3, 0, 0, time.UTC), parseCraigslistTime("2026-08-30 14:03"))
	assert.False(t, parseCraigslistTime("2026-08-30T14:03:05Z").IsZero())
	assert.True(t, parseCraigslistTime("last tuesday").IsZero())
}
