package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/graph"
	"github.com/prereqgraph/prereqgraph/pkg/storage"
)

func newTestServer(t *testing.T, user, pass string) *httptest.Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.UpsertCourses(context.Background(), []catalog.Course{
		{SubjectID: "CSE", CallNumber: "2221", Title: "Software I", Description: "Intro."},
		{SubjectID: "CSE", CallNumber: "2231", Title: "Software II", Description: "Prereq: 2221. Concur: Stat 3460."},
		{SubjectID: "STAT", CallNumber: "3460", Title: "Probability", Description: ""},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(db, user, pass).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestGraphEndpoint(t *testing.T) {
	srv := newTestServer(t, "", "")

	var all graph.Graph
	getJSON(t, srv.URL+"/api/graph", &all)
	require.Len(t, all.Nodes, 3)
	require.Equal(t, []graph.Link{
		{Source: "CSE 2221", Target: "CSE 2231"},
		{Source: "STAT 3460", Target: "CSE 2231", Concurrent: true},
	}, all.Links)

	var cse graph.Graph
	getJSON(t, srv.URL+"/api/graph?subjects=cse", &cse)
	require.Len(t, cse.Nodes, 2)
	require.Len(t, cse.Links, 1)
}

func TestCoursesEndpoint(t *testing.T) {
	srv := newTestServer(t, "", "")

	var courses []catalog.Course
	getJSON(t, srv.URL+"/api/courses?subject=STAT", &courses)
	require.Len(t, courses, 1)
	require.Equal(t, "Probability", courses[0].Title)

	getJSON(t, srv.URL+"/api/courses?subject=PHIL", &courses)
	require.Empty(t, courses)
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, "", "")

	var stats []storage.SubjectStats
	getJSON(t, srv.URL+"/api/stats", &stats)
	require.Len(t, stats, 2)
	require.Equal(t, "CSE", stats[0].SubjectID)
	require.Equal(t, 2, stats[0].CourseCount)
}

func TestParseEndpoint(t *testing.T) {
	srv := newTestServer(t, "", "")

	body := `{"subject": "cse", "description": "Prereq: 2221, and Stat 3460 or 3470."}`
	res, err := http.Post(srv.URL+"/api/parse", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got struct {
		Prereq     json.RawMessage `json:"prereq"`
		PrereqText string          `json:"prereqText"`
		ConcurText string          `json:"concurText"`
		Errors     []string        `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Equal(t, "(CSE 2221 and (STAT 3460 or STAT 3470))", got.PrereqText)
	require.Equal(t, "none", got.ConcurText)
	require.Empty(t, got.Errors)
	require.Contains(t, string(got.Prereq), `"operator":"and"`)
}

func TestParseEndpointRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, "", "")

	res, err := http.Post(srv.URL+"/api/parse", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = http.Post(srv.URL+"/api/parse", "application/json", strings.NewReader(`{"description": "Prereq: 2221."}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestBasicAuth(t *testing.T) {
	srv := newTestServer(t, "admin", "secret")

	res, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}
