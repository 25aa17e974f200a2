// Package mcp exposes the review backend as MCP tools so coding agents can
// request reviews, tests, and dependency scans over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/refixhq/refix-cli/internal/backend"
	"github.com/refixhq/refix-cli/internal/models"
	"github.com/refixhq/refix-cli/internal/review"
)

// Backend is the slice of the API client the MCP tools need.
type Backend interface {
	InspectPublic(ctx context.Context, code, language string) ([]models.RawInspectionResult, error)
	InspectConsolidated(ctx context.Context, code, language string) ([]models.ConsolidatedIssue, error)
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	CreateProject(ctx context.Context, name, githubURL, userID string) (*models.Project, error)
	GenerateTest(ctx context.Context, originalCode, revisedCode, language string) (string, error)
	RunTest(ctx context.Context, testCode, codeToTest, language string) (*models.TestResult, error)
	ScanDependencies(ctx context.Context, fileContent, language string) (models.SnykScanResult, error)
}

// Server wraps the backend client and exposes it as MCP tools.
type Server struct {
	api    Backend
	userID string
}

// NewServer creates the MCP server wrapper.
func NewServer(api Backend, userID string) *Server {
	return &Server{api: api, userID: userID}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("refix", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.inspectTool())
	srv.AddTool(s.consolidatedTool())
	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.createProjectTool())
	srv.AddTool(s.generateTestTool())
	srv.AddTool(s.runTestTool())
	srv.AddTool(s.scanDependenciesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// refix_inspect
func (s *Server) inspectTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_inspect",
		mcp.WithDescription("Submit code for AI review. Returns a JSON array of suggestions with id, model, category, line, description, and replacement code, plus any per-model errors."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language of the code, e.g. python or go")),
	)
	return tool, s.handleInspect
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}
	language, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}

	results, err := s.api.InspectPublic(ctx, code, language)
	if errors.Is(err, backend.ErrRateLimited) {
		return mcp.NewToolResultError("rate limit reached for anonymous reviews; try again later"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspection failed: %v", err)), nil
	}

	out := map[string]any{
		"suggestions": review.Normalize(results),
		"errors":      review.ModelErrors(results),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal suggestions: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// refix_consolidated
func (s *Server) consolidatedTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_consolidated",
		mcp.WithDescription("Submit code for AI review and return the cross-model consolidated issue list instead of raw per-model suggestions."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language of the code")),
	)
	return tool, s.handleConsolidated
}

func (s *Server) handleConsolidated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}
	language, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}

	issues, err := s.api.InspectConsolidated(ctx, code, language)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("consolidated inspection failed: %v", err)), nil
	}

	data, err := json.Marshal(issues)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// refix_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_list_projects",
		mcp.WithDescription("List the user's projects. Returns a JSON array with id, name, github_url, language, average_score, and last_reviewed_at."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.api.ListProjects(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	data, err := json.Marshal(projects)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// refix_create_project
func (s *Server) createProjectTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_create_project",
		mcp.WithDescription("Register a new project for review tracking."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("github_url", mcp.Description("GitHub repository URL")),
	)
	return tool, s.handleCreateProject
}

func (s *Server) handleCreateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	githubURL := request.GetString("github_url", "")

	p, err := s.api.CreateProject(ctx, name, githubURL, s.userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create project: %v", err)), nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal project: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// refix_generate_test
func (s *Server) generateTestTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_generate_test",
		mcp.WithDescription("Generate a unit test that exercises a proposed code change. Returns the test code as text."),
		mcp.WithString("original_code", mcp.Required(), mcp.Description("Code before the change")),
		mcp.WithString("revised_code", mcp.Required(), mcp.Description("Code after the change")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language of the code")),
	)
	return tool, s.handleGenerateTest
}

func (s *Server) handleGenerateTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	original, err := request.RequireString("original_code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: original_code"), nil
	}
	revised, err := request.RequireString("revised_code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: revised_code"), nil
	}
	language, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}

	code, err := s.api.GenerateTest(ctx, original, revised, language)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate test: %v", err)), nil
	}
	return mcp.NewToolResultText(code), nil
}

// refix_run_test
func (s *Server) runTestTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_run_test",
		mcp.WithDescription("Run a generated test against code in the backend sandbox. Returns a JSON object with status (success, failed, error) and output."),
		mcp.WithString("test_code", mcp.Required(), mcp.Description("Test code to execute")),
		mcp.WithString("code_to_test", mcp.Required(), mcp.Description("Code under test")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language of the code")),
	)
	return tool, s.handleRunTest
}

func (s *Server) handleRunTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testCode, err := request.RequireString("test_code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_code"), nil
	}
	codeToTest, err := request.RequireString("code_to_test")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code_to_test"), nil
	}
	language, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}

	result, err := s.api.RunTest(ctx, testCode, codeToTest, language)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to run test: %v", err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// refix_scan_dependencies
func (s *Server) scanDependenciesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("refix_scan_dependencies",
		mcp.WithDescription("Scan a dependency manifest (package.json, requirements.txt, go.mod) for known vulnerabilities."),
		mcp.WithString("file_content", mcp.Required(), mcp.Description("Manifest file content")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Ecosystem of the manifest, e.g. javascript, python, go")),
	)
	return tool, s.handleScanDependencies
}

func (s *Server) handleScanDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileContent, err := request.RequireString("file_content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: file_content"), nil
	}
	language, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}

	result, err := s.api.ScanDependencies(ctx, fileContent, language)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal scan result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
