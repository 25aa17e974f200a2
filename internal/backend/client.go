// Package backend is the HTTP client for the Refix review service. All AI
// execution, aggregation, and sandboxing happens server-side; this package
// only moves JSON and maps failure statuses onto typed errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/refixhq/refix-cli/internal/config"
	"github.com/refixhq/refix-cli/internal/models"
)

// ErrRateLimited signals HTTP 429 from the public inspect route. Callers
// render it as a dedicated "limit reached" state, not a generic failure.
var ErrRateLimited = errors.New("inspection rate limit reached")

// ErrUnauthorized signals HTTP 401; the session credential is missing or stale.
var ErrUnauthorized = errors.New("unauthorized")

// Client talks to the review backend. It attaches the internal API key and,
// when present, the bearer token to every request.
type Client struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
}

// New creates a backend client from the injected configuration.
func New(cfg config.Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:  cfg.APIKey,
		token:   cfg.AuthToken,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is the backend's JSON error envelope. The detail message is
// surfaced to users verbatim when present.
type apiError struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		var ae apiError
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &ae); err == nil && ae.Detail != "" {
			return fmt.Errorf("%s %s: %s", method, path, ae.Detail)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// --- Inspection ---

type inspectRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// InspectPublic runs the unauthenticated multi-model inspection and returns
// one raw result per queried model.
func (c *Client) InspectPublic(ctx context.Context, code, language string) ([]models.RawInspectionResult, error) {
	var results []models.RawInspectionResult
	if err := c.do(ctx, http.MethodPost, "/api/inspect/public", inspectRequest{code, language}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

type consolidatedResponse struct {
	ConsolidatedIssues []models.ConsolidatedIssue `json:"consolidated_issues"`
}

// InspectConsolidated returns the server-computed merge of all models'
// findings for the given code.
func (c *Client) InspectConsolidated(ctx context.Context, code, language string) ([]models.ConsolidatedIssue, error) {
	var resp consolidatedResponse
	if err := c.do(ctx, http.MethodPost, "/api/inspect/consolidated", inspectRequest{code, language}, &resp); err != nil {
		return nil, err
	}
	return resp.ConsolidatedIssues, nil
}

// InspectProject runs the authenticated per-project inspection.
func (c *Client) InspectProject(ctx context.Context, projectID int, code, language string) ([]models.RawInspectionResult, error) {
	var results []models.RawInspectionResult
	path := fmt.Sprintf("/api/projects/%d/inspect", projectID)
	if err := c.do(ctx, http.MethodPost, path, inspectRequest{code, language}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// InspectProjectConsolidated is the authenticated consolidated variant.
func (c *Client) InspectProjectConsolidated(ctx context.Context, projectID int, code, language string) ([]models.ConsolidatedIssue, error) {
	var resp consolidatedResponse
	path := fmt.Sprintf("/api/projects/%d/inspect/consolidated", projectID)
	if err := c.do(ctx, http.MethodPost, path, inspectRequest{code, language}, &resp); err != nil {
		return nil, err
	}
	return resp.ConsolidatedIssues, nil
}

// --- Projects ---

// ListProjects fetches the user's projects in their persisted order.
func (c *Client) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	path := "/api/projects/?user_id=" + userID
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

type createProjectRequest struct {
	Name      string `json:"name"`
	GithubURL string `json:"github_url"`
	UserID    string `json:"user_id"`
}

// CreateProject registers a new repository for review.
func (c *Client) CreateProject(ctx context.Context, name, githubURL, userID string) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects/", createProjectRequest{name, githubURL, userID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RenameProject updates a project's display name.
func (c *Client) RenameProject(ctx context.Context, id int, name string) error {
	path := fmt.Sprintf("/api/projects/%d", id)
	return c.do(ctx, http.MethodPatch, path, map[string]string{"name": name}, nil)
}

// DeleteProject removes a project and all its review history.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	path := fmt.Sprintf("/api/projects/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

type orderRequest struct {
	OrderedIDs []int  `json:"ordered_ids"`
	UserID     string `json:"user_id"`
}

// SaveProjectOrder persists a manual ordering as the full ordered id list.
func (c *Client) SaveProjectOrder(ctx context.Context, userID string, orderedIDs []int) error {
	return c.do(ctx, http.MethodPatch, "/api/projects/order", orderRequest{orderedIDs, userID}, nil)
}

type reorderRequest struct {
	UserID string `json:"user_id"`
	SortBy string `json:"sort_by"`
}

// ReorderProjects asks the server to return the list in the given order.
func (c *Client) ReorderProjects(ctx context.Context, userID string, key models.SortKey) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects/reorder", reorderRequest{userID, string(key)}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// --- Tests ---

type generateTestRequest struct {
	OriginalCode string `json:"original_code"`
	RevisedCode  string `json:"revised_code"`
	Language     string `json:"language"`
}

type generateTestResponse struct {
	TestCode string `json:"test_code"`
}

// GenerateTest asks the backend to produce a test covering the revision.
func (c *Client) GenerateTest(ctx context.Context, originalCode, revisedCode, language string) (string, error) {
	var resp generateTestResponse
	if err := c.do(ctx, http.MethodPost, "/api/tests/generate", generateTestRequest{originalCode, revisedCode, language}, &resp); err != nil {
		return "", err
	}
	return resp.TestCode, nil
}

type runTestRequest struct {
	TestCode   string `json:"test_code"`
	CodeToTest string `json:"code_to_test"`
	Language   string `json:"language"`
}

// RunTest executes a generated test against the revised code in the backend
// sandbox.
func (c *Client) RunTest(ctx context.Context, testCode, codeToTest, language string) (*models.TestResult, error) {
	var result models.TestResult
	if err := c.do(ctx, http.MethodPost, "/api/tests/run", runTestRequest{testCode, codeToTest, language}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Dependency scanning ---

type scanRequest struct {
	FileContent string `json:"file_content"`
	Language    string `json:"language"`
}

// ScanDependencies submits a manifest file's content for a vulnerability
// scan. The result shape is owned by the scanner and passed through opaque.
func (c *Client) ScanDependencies(ctx context.Context, fileContent, language string) (models.SnykScanResult, error) {
	var result models.SnykScanResult
	if err := c.do(ctx, http.MethodPost, "/api/snyk/scan", scanRequest{fileContent, language}, &result); err != nil {
		return nil, err
	}
	return result, nil
}
