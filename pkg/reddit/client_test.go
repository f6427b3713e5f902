package reddit

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

func TestListNew(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/caregivers/new.json", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "leadgen-cli/1.0", r.Header.Get("User-Agent"))

		fmt.Fprint(w, `{"data":{"children":[
			{"data":{"id":"1abc","title":"Need a PCA","selftext":"for my mom","permalink":"/r/caregivers/comments/1abc/need_a_pca/","created_utc":1756700000}},
			{"data":{"id":"1abd","title":"Venting","selftext":"","permalink":"/r/caregivers/comments/1abd/venting/","created_utc":1756700100}}
		]}}`)
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, WithListingBaseURL(srv.URL))
	posts, err := client.ListNew(context.Background(), "caregivers", 25)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "1abc", posts[0].ID)
	assert.Equal(t, "https://www.reddit.com/r/caregivers/comments/1abc/need_a_pca/", posts[0].URL())
	assert.Equal(t, time.Unix(1756700000, 0).UTC(), posts[0].Created())
}

func TestListNew_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, WithListingBaseURL(srv.URL))
	_, err := client.ListNew(context.Background(), "caregivers", 10)
	assert.Error(t, err)
}

func newReplyClient(t *testing.T, commentHandler http.HandlerFunc) Client {
	t.Helper()

	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/access_token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"tok123","expires_in":3600}`)
	}))
	t.Cleanup(auth.Close)

	api := httptest.NewServer(commentHandler)
	t.Cleanup(api.Close)

	return NewClient(
		Credentials{ClientID: "cid", ClientSecret: "secret", Username: "u", Password: "p"},
		WithAuthBaseURL(auth.URL),
		WithAPIBaseURL(api.URL),
	)
}

func TestReply(t *testing.T) {
	client := newReplyClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/comment", r.URL.Path)
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_1abc", r.PostForm.Get("thing_id"))
		assert.Equal(t, "hello there", r.PostForm.Get("text"))
		fmt.Fprint(w, `{"json":{"errors":[]}}`)
	})

	err := client.Reply(context.Background(), "1abc", "hello there")
	assert.NoError(t, err)
}

func TestReply_RateLimitSurfacesInError(t *testing.T) {
	client := newReplyClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"json":{"errors":[["RATELIMIT","Take a break for 7 minutes before trying again.","ratelimit"]]}}`)
	})

	err := client.Reply(context.Background(), "1abc", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATELIMIT")
	assert.Contains(t, err.Error(), "7 minutes")
}

func TestReply_TokenReused(t *testing.T) {
	tokenCalls := 0
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		tokenCalls++
		fmt.Fprint(w, `{"access_token":"tok123","expires_in":3600}`)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"json":{"errors":[]}}`)
	}))
	defer api.Close()

	client := NewClient(
		Credentials{ClientID: "cid", ClientSecret: "secret", Username: "u", Password: "p"},
		WithAuthBaseURL(auth.URL),
		WithAPIBaseURL(api.URL),
	)

	ctx := context.Background()
	require.NoError(t, client.Reply(ctx, "a", "x"))
	require.NoError(t, client.Reply(ctx, "b", "y"))
	assert.Equal(t, 1, tokenCalls)
}
