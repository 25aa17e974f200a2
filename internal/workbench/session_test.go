package workbench

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refixhq/refix-cli/internal/backend"
	"github.com/refixhq/refix-cli/internal/config"
	"github.com/refixhq/refix-cli/internal/models"
	"github.com/refixhq/refix-cli/internal/review"
)

type fakeAPI struct {
	mu sync.Mutex

	raw     []models.RawInspectionResult
	rawErr  error
	cons    []models.ConsolidatedIssue
	consErr error

	testCode string
	genErr   error
	result   *models.TestResult
	runErr   error

	runCalls int
	genCalls int

	// When non-nil, InspectPublic, GenerateTest, and RunTest wait for it to
	// close.
	block chan struct{}
}

func (f *fakeAPI) InspectPublic(ctx context.Context, code, language string) ([]models.RawInspectionResult, error) {
	if f.block != nil {
		<-f.block
	}
	return f.raw, f.rawErr
}

func (f *fakeAPI) InspectConsolidated(ctx context.Context, code, language string) ([]models.ConsolidatedIssue, error) {
	return f.cons, f.consErr
}

func (f *fakeAPI) GenerateTest(ctx context.Context, originalCode, revisedCode, language string) (string, error) {
	f.mu.Lock()
	f.genCalls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.testCode, f.genErr
}

func (f *fakeAPI) RunTest(ctx context.Context, testCode, codeToTest, language string) (*models.TestResult, error) {
	f.mu.Lock()
	f.runCalls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.result, f.runErr
}

func rawResults() []models.RawInspectionResult {
	return []models.RawInspectionResult{
		{
			ModelName: "Gemini",
			Review: &models.ReviewPayload{
				Summary: "two issues",
				Details: []models.ReviewDetail{
					{Category: "Bug", LineNumber: 21, Description: "division by zero for empty scores", Suggestion: "def average(scores):\n    if not scores:\n        return 0\n    return sum(scores) / len(scores)\n"},
					{Category: "Readability", LineNumber: 15, Description: "use enumerate", Suggestion: "for i, u in enumerate(users):"},
				},
			},
		},
	}
}

func newTestSession(api Inspector) *Session {
	s := NewSession(config.Config{DetectQuiet: 10 * time.Millisecond}, api)
	s.SetBuffer("print(1)")
	s.SetLanguage("python")
	return s
}

func TestInspectPopulatesRun(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), cons: []models.ConsolidatedIssue{{IssueID: "c1", Title: "division by zero"}}}
	s := newTestSession(api)
	defer s.Close()

	require.NoError(t, s.Inspect(context.Background()))

	assert.NotEmpty(t, s.RunID())
	assert.Len(t, s.Suggestions(), 2)
	assert.Equal(t, "Gemini-0", s.Suggestions()[0].ID)
	assert.Len(t, s.Consolidated(), 1)
	assert.False(t, s.RateLimited())
	assert.Nil(t, s.Selected())
}

func TestInspectRequiresBufferAndLanguage(t *testing.T) {
	s := NewSession(config.Config{}, &fakeAPI{})
	defer s.Close()

	assert.Error(t, s.Inspect(context.Background()))
}

func TestInspectRateLimited(t *testing.T) {
	api := &fakeAPI{rawErr: backend.ErrRateLimited}
	s := newTestSession(api)
	defer s.Close()

	require.NoError(t, s.Inspect(context.Background()))

	assert.True(t, s.RateLimited())
	assert.Empty(t, s.Suggestions())
	assert.Empty(t, s.RunID())
}

func TestInspectConsolidatedFailureKeepsRawResults(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), consErr: errors.New("boom")}
	s := newTestSession(api)
	defer s.Close()

	require.NoError(t, s.Inspect(context.Background()))

	assert.Len(t, s.Suggestions(), 2)
	assert.Empty(t, s.Consolidated())
}

func TestInspectWhileInspectingIsBusy(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), block: make(chan struct{})}
	s := newTestSession(api)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Inspect(context.Background()) }()

	// Wait until the first run is marked in flight.
	require.Eventually(t, s.Inspecting, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Inspect(context.Background()), ErrBusy)

	close(api.block)
	require.NoError(t, <-done)
	assert.Len(t, s.Suggestions(), 2)
}

func TestClearDiscardsInFlightInspection(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), block: make(chan struct{})}
	s := newTestSession(api)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Inspect(context.Background()) }()
	require.Eventually(t, s.Inspecting, time.Second, time.Millisecond)

	s.Clear()
	close(api.block)
	require.NoError(t, <-done)

	assert.Empty(t, s.Suggestions())
	assert.Empty(t, s.RunID())
	assert.Empty(t, s.Buffer())
}

func TestSelectAndBack(t *testing.T) {
	s := newTestSession(&fakeAPI{raw: rawResults()})
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))

	require.NoError(t, s.Select("Gemini-0"))
	require.NotNil(t, s.Selected())
	assert.Equal(t, "Gemini-0", s.Selected().ID)
	assert.Equal(t, 21, s.HighlightedLine())

	s.Back()
	assert.Nil(t, s.Selected())
	assert.Zero(t, s.HighlightedLine())
}

func TestSelectUnknownID(t *testing.T) {
	s := newTestSession(&fakeAPI{raw: rawResults()})
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))

	assert.Error(t, s.Select("Claude-7"))
}

func TestNewRunResetsSelection(t *testing.T) {
	s := newTestSession(&fakeAPI{raw: rawResults()})
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-1"))

	require.NoError(t, s.Inspect(context.Background()))
	assert.Nil(t, s.Selected())
	assert.Zero(t, s.HighlightedLine())
}

func TestApplyOverwritesBuffer(t *testing.T) {
	s := newTestSession(&fakeAPI{raw: rawResults()})
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-1"))

	require.NoError(t, s.Apply())
	assert.Equal(t, "for i, u in enumerate(users):", s.Buffer())
	assert.Nil(t, s.Selected())
}

func TestApplyWithoutSelection(t *testing.T) {
	s := newTestSession(&fakeAPI{})
	defer s.Close()
	assert.ErrorIs(t, s.Apply(), ErrNothingSelected)
}

func TestVisibleFollowsQuery(t *testing.T) {
	s := newTestSession(&fakeAPI{raw: rawResults()})
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))

	s.SetQuery(review.Query{Filter: review.FilterRepair})
	vis := s.Visible()
	require.Len(t, vis, 1)
	assert.Equal(t, "Gemini-0", vis[0].ID)

	counts := s.Counts()
	assert.Equal(t, 2, counts[review.FilterAll])
	assert.Equal(t, 1, counts[review.FilterRepair])
	assert.Equal(t, 1, counts[review.FilterAdvance])
}

func TestGenerateTestStoresCode(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), testCode: "def test_average(): ..."}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))

	require.NoError(t, s.GenerateTest(context.Background()))
	code, ok := s.TestCode()
	assert.True(t, ok)
	assert.Equal(t, "def test_average(): ...", code)
}

func TestGenerateTestFailureStoresInlineError(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), genErr: errors.New("model unavailable")}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))

	err := s.GenerateTest(context.Background())
	require.Error(t, err)
	code, ok := s.TestCode()
	assert.False(t, ok)
	assert.Contains(t, code, "model unavailable")
}

func TestGenerateTestRequiresSelection(t *testing.T) {
	s := newTestSession(&fakeAPI{raw: rawResults()})
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))

	assert.ErrorIs(t, s.GenerateTest(context.Background()), ErrNothingSelected)
}

func TestRunTestWithoutCodeIsNoOp(t *testing.T) {
	api := &fakeAPI{raw: rawResults()}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))

	require.NoError(t, s.RunTest(context.Background()))
	assert.Zero(t, api.runCalls)
	assert.Nil(t, s.TestResult())
}

func TestRunTestStoresResult(t *testing.T) {
	api := &fakeAPI{
		raw:      rawResults(),
		testCode: "def test(): ...",
		result:   &models.TestResult{Status: models.TestStatusSuccess, Output: "1 passed"},
	}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))
	require.NoError(t, s.GenerateTest(context.Background()))

	require.NoError(t, s.RunTest(context.Background()))
	require.NotNil(t, s.TestResult())
	assert.Equal(t, models.TestStatusSuccess, s.TestResult().Status)
}

func TestRunTestTransportFailureSynthesizesResult(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), testCode: "def test(): ...", runErr: errors.New("connection refused")}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))
	require.NoError(t, s.GenerateTest(context.Background()))

	require.Error(t, s.RunTest(context.Background()))
	require.NotNil(t, s.TestResult())
	assert.Equal(t, models.TestStatusError, s.TestResult().Status)
	assert.Contains(t, s.TestResult().Output, "connection refused")
}

func TestRunTestClearsPreviousResultWhileInFlight(t *testing.T) {
	api := &fakeAPI{
		raw:      rawResults(),
		testCode: "def test(): ...",
		result:   &models.TestResult{Status: models.TestStatusFailed, Output: "assert failed"},
	}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))
	require.NoError(t, s.GenerateTest(context.Background()))

	// First run leaves a failed verdict behind.
	require.NoError(t, s.RunTest(context.Background()))
	require.NotNil(t, s.TestResult())

	// Re-run: while the new execution is in flight the old verdict is gone.
	api.block = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.RunTest(context.Background()) }()
	require.Eventually(t, s.RunningTest, time.Second, time.Millisecond)
	assert.Nil(t, s.TestResult())

	close(api.block)
	require.NoError(t, <-done)
	require.NotNil(t, s.TestResult())
	assert.Equal(t, models.TestStatusFailed, s.TestResult().Status)
}

func TestSelectionChangeResetsTestWorkflow(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), testCode: "def test(): ...", result: &models.TestResult{Status: models.TestStatusSuccess}}
	s := newTestSession(api)
	defer s.Close()
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))
	require.NoError(t, s.GenerateTest(context.Background()))
	require.NoError(t, s.RunTest(context.Background()))

	require.NoError(t, s.Select("Gemini-1"))
	code, ok := s.TestCode()
	assert.False(t, ok)
	assert.Empty(t, code)
	assert.Nil(t, s.TestResult())
}

func TestStaleGenerateResponseDropped(t *testing.T) {
	api := &fakeAPI{raw: rawResults(), testCode: "def test(): ...", block: make(chan struct{})}
	s := newTestSession(api)
	defer s.Close()

	// Populate without blocking, then arm the block for GenerateTest.
	api.block = nil
	require.NoError(t, s.Inspect(context.Background()))
	require.NoError(t, s.Select("Gemini-0"))
	api.block = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.GenerateTest(context.Background()) }()
	require.Eventually(t, s.GeneratingTest, time.Second, time.Millisecond)

	s.Back()
	close(api.block)
	require.NoError(t, <-done)

	code, ok := s.TestCode()
	assert.False(t, ok)
	assert.Empty(t, code)
}
