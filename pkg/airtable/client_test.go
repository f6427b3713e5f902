package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "appBASE", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestListRecords_FollowsPagination(t *testing.T) {
	var requests []string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/appBASE/Leads", r.URL.Path)

		if r.URL.Query().Get("offset") == "" {
			fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{"Full Name or Listing Title":"a"}}],"offset":"itr2"}`)
			return
		}
		assert.Equal(t, "itr2", r.URL.Query().Get("offset"))
		fmt.Fprint(w, `{"records":[{"id":"rec2","fields":{"Full Name or Listing Title":"b"}}]}`)
	}))

	records, err := client.ListRecords(context.Background(), "Leads")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID)
	assert.Equal(t, "rec2", records[1].ID)
	assert.Len(t, requests, 2)
}

func TestListRecords_PassesFilterFormula(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "{Confidence Score} < 40", r.URL.Query().Get("filterByFormula"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		fmt.Fprint(w, `{"records":[]}`)
	}))

	records, err := client.ListRecords(context.Background(), "Leads",
		WithFilterFormula("{Confidence Score} < 40"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCreateRecord(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Need a PCA", payload.Fields["Full Name or Listing Title"])

		fmt.Fprint(w, `{"id":"recNEW","fields":{"Full Name or Listing Title":"Need a PCA"}}`)
	}))

	rec, err := client.CreateRecord(context.Background(), "Leads", map[string]any{
		"Full Name or Listing Title": "Need a PCA",
	})
	require.NoError(t, err)
	assert.Equal(t, "recNEW", rec.ID)
}

func TestUpdateRecord_Patches(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/appBASE/Leads/rec42", r.URL.Path)
		fmt.Fprint(w, `{"id":"rec42","fields":{"Outreach Status":"Contacted"}}`)
	}))

	rec, err := client.UpdateRecord(context.Background(), "Leads", "rec42", map[string]any{
		"Outreach Status": "Contacted",
	})
	require.NoError(t, err)
	assert.Equal(t, "Contacted", rec.Fields["Outreach Status"])
}

func TestDeleteRecords_Chunks(t *testing.T) {
	var chunkSizes []int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		chunkSizes = append(chunkSizes, len(r.URL.Query()["records[]"]))
		fmt.Fprint(w, `{"records":[]}`)
	}))

	ids := make([]string, 23)
	for i := range ids {
		ids[i] = fmt.Sprintf("rec%d", i)
	}

	deleted, err := client.DeleteRecords(context.Background(), "Leads", ids)
	require.NoError(t, err)
	assert.Equal(t, 23, deleted)
	assert.Equal(t, []int{10, 10, 3}, chunkSizes)
}

func TestDeleteRecords_FailedChunkContinues(t *testing.T) {
	call := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 2 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"error":"INVALID_RECORDS"}`)
			return
		}
		fmt.Fprint(w, `{"records":[]}`)
	}))

	ids := make([]string, 23)
	for i := range ids {
		ids[i] = fmt.Sprintf("rec%d", i)
	}

	deleted, err := client.DeleteRecords(context.Background(), "Leads", ids)
	assert.Error(t, err)
	assert.Equal(t, 13, deleted)
	assert.Equal(t, 3, call)
}

func TestDoJSON_RetriesTransientStatus(t *testing.T) {
	call := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{}}]}`)
	}))

	records, err := client.ListRecords(context.Background(), "Leads")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, call)
}
