package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refixhq/refix-cli/internal/config"
	"github.com/refixhq/refix-cli/internal/models"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(config.Config{
		APIBaseURL:     srv.URL,
		APIKey:         "test-key",
		AuthToken:      "test-token",
		RequestTimeout: 5 * time.Second,
	})
	return c, srv
}

func TestDo_SendsAuthHeaders(t *testing.T) {
	var gotKey, gotAuth string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("[]"))
	})
	defer srv.Close()

	_, err := c.InspectPublic(context.Background(), "print(1)", "python")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestInspectPublic_DecodesResults(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inspect/public", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "print(1)", body["code"])
		assert.Equal(t, "python", body["language"])

		_, _ = w.Write([]byte(`[
			{"model_name": "GPT", "review": {"overall_score": 7.5, "summary": "ok", "details": [{"category": "Bug", "line_number": 3, "description": "d"}]}},
			{"model_name": "Claude", "error": "timeout"}
		]`))
	})
	defer srv.Close()

	results, err := c.InspectPublic(context.Background(), "print(1)", "python")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "GPT", results[0].ModelName)
	require.NotNil(t, results[0].Review)
	assert.Equal(t, 7.5, *results[0].Review.OverallScore)
	assert.Nil(t, results[1].Review)
	assert.Equal(t, "timeout", results[1].Error)
}

func TestInspectPublic_RateLimited(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := c.InspectPublic(context.Background(), "x", "python")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestDo_Unauthorized(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	_, err := c.ListProjects(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDo_SurfacesDetailMessage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": "language not supported"}`))
	})
	defer srv.Close()

	_, err := c.InspectPublic(context.Background(), "x", "cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language not supported")
}

func TestDo_FallsBackToStatusCode(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("not json"))
	})
	defer srv.Close()

	_, err := c.InspectPublic(context.Background(), "x", "python")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestInspectConsolidated_UnwrapsEnvelope(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inspect/consolidated", r.URL.Path)
		_, _ = w.Write([]byte(`{"consolidated_issues": [{"issue_id": "ci-1", "line_number": 4, "title": "t", "participating_ais": ["GPT"]}]}`))
	})
	defer srv.Close()

	issues, err := c.InspectConsolidated(context.Background(), "x", "python")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "ci-1", issues[0].IssueID)
}

func TestListProjects_PassesUserID(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/", r.URL.Path)
		assert.Equal(t, "user-7", r.URL.Query().Get("user_id"))
		_, _ = w.Write([]byte(`[{"id": 1, "name": "alpha"}]`))
	})
	defer srv.Close()

	projects, err := c.ListProjects(context.Background(), "user-7")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "alpha", projects[0].Name)
}

func TestRenameProject_PatchesName(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/projects/3", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "beta", body["name"])
	})
	defer srv.Close()

	require.NoError(t, c.RenameProject(context.Background(), 3, "beta"))
}

func TestSaveProjectOrder(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/projects/order", r.URL.Path)

		var body struct {
			OrderedIDs []int  `json:"ordered_ids"`
			UserID     string `json:"user_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int{2, 1, 3}, body.OrderedIDs)
		assert.Equal(t, "user-7", body.UserID)
	})
	defer srv.Close()

	require.NoError(t, c.SaveProjectOrder(context.Background(), "user-7", []int{2, 1, 3}))
}

func TestReorderProjects(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/reorder", r.URL.Path)

		var body struct {
			SortBy string `json:"sort_by"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "name_asc", body.SortBy)

		_, _ = w.Write([]byte(`[{"id": 2}, {"id": 1}]`))
	})
	defer srv.Close()

	projects, err := c.ReorderProjects(context.Background(), "user-7", models.SortNameAsc)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, 2, projects[0].ID)
}

func TestGenerateTest_UnwrapsTestCode(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tests/generate", r.URL.Path)
		_, _ = w.Write([]byte(`{"test_code": "def test(): ..."}`))
	})
	defer srv.Close()

	code, err := c.GenerateTest(context.Background(), "a", "b", "python")
	require.NoError(t, err)
	assert.Equal(t, "def test(): ...", code)
}

func TestRunTest_DecodesResult(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tests/run", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "failed", "output": "assert failed"}`))
	})
	defer srv.Close()

	result, err := c.RunTest(context.Background(), "t", "c", "python")
	require.NoError(t, err)
	assert.Equal(t, models.TestStatusFailed, result.Status)
	assert.Equal(t, "assert failed", result.Output)
}

func TestScanDependencies_SendsFileContent(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/snyk/scan", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "requests==2.0", body["file_content"])

		_, _ = w.Write([]byte(`{"vulnerabilities": []}`))
	})
	defer srv.Close()

	result, err := c.ScanDependencies(context.Background(), "requests==2.0", "python")
	require.NoError(t, err)
	assert.Contains(t, result, "vulnerabilities")
}
