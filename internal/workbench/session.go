// Package workbench holds the stateful review session behind the interactive
// editor: the code buffer, the current inspection run, the selection state
// machine, and the generate/run test workflow. All exported methods are safe
// for the timer goroutine the language debouncer fires on.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/refixhq/refix-cli/internal/backend"
	"github.com/refixhq/refix-cli/internal/config"
	"github.com/refixhq/refix-cli/internal/detect"
	"github.com/refixhq/refix-cli/internal/models"
	"github.com/refixhq/refix-cli/internal/review"
)

// ErrBusy is returned when a workflow step is triggered while the same step
// is already in flight. Triggers are disabled for the duration of their step;
// there is no queueing.
var ErrBusy = errors.New("operation already in progress")

// ErrNothingSelected is returned by suggestion-scoped actions in listing mode.
var ErrNothingSelected = errors.New("no suggestion selected")

// Inspector is the slice of the backend the session needs. The HTTP client
// satisfies it; tests substitute fakes.
type Inspector interface {
	InspectPublic(ctx context.Context, code, language string) ([]models.RawInspectionResult, error)
	InspectConsolidated(ctx context.Context, code, language string) ([]models.ConsolidatedIssue, error)
	GenerateTest(ctx context.Context, originalCode, revisedCode, language string) (string, error)
	RunTest(ctx context.Context, testCode, codeToTest, language string) (*models.TestResult, error)
}

// Session is one workbench editing session over a single code buffer.
type Session struct {
	api      Inspector
	detector *detect.Debouncer

	mu sync.Mutex

	buffer   string
	language string

	// Latest inspection run. A new run replaces everything below wholesale;
	// suggestion ids are not stable across runs.
	runID        string
	results      []models.RawInspectionResult
	consolidated []models.ConsolidatedIssue
	suggestions  []models.Suggestion
	rateLimited  bool

	query review.Query

	// Selection state: selected == nil is listing mode, otherwise detail
	// mode on that suggestion. highlightLine is derived from the selection
	// (0 = no highlight).
	selected      *models.Suggestion
	highlightLine int

	// In-flight flags; a set flag makes re-triggering the same step a no-op.
	inspecting bool
	generating bool
	executing  bool

	// Test workflow, scoped to the current selection.
	testCode    string
	hasTestCode bool
	testResult  *models.TestResult

	// Generation counters; responses from a superseded request are dropped.
	inspectGen uint64
	testGen    uint64
}

// NewSession creates a session with language auto-detection debounced by the
// configured quiet period.
func NewSession(cfg config.Config, api Inspector) *Session {
	return &Session{
		api:      api,
		detector: detect.NewDebouncer(cfg.DetectQuiet),
		query:    review.Query{Filter: review.FilterAll},
	}
}

// Close cancels any pending detection task.
func (s *Session) Close() {
	s.detector.Stop()
}

// newRunID mints a ULID for an inspection run.
func newRunID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// --- Buffer ---

// SetBuffer replaces the editor buffer and schedules language auto-detection
// after the quiet period. Detection may change the declared language but
// never the buffer content.
func (s *Session) SetBuffer(content string) {
	s.mu.Lock()
	s.buffer = content
	s.mu.Unlock()

	s.detector.Schedule(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if lang := detect.Language(s.buffer); lang != "" {
			s.language = lang
		}
	})
}

// Buffer returns the current editor content.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// SetLanguage overrides the declared language and cancels pending detection
// so a stale guess cannot clobber the explicit choice.
func (s *Session) SetLanguage(lang string) {
	s.detector.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

// Language returns the declared (or auto-detected) language.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// LoadSample fills the buffer with the demo snippet.
func (s *Session) LoadSample() {
	s.detector.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = SampleCode
	s.language = "python"
}

// Clear empties the buffer, the language, the highlight, and the current run.
func (s *Session) Clear() {
	s.detector.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = ""
	s.language = ""
	s.inspectGen++ // any in-flight inspection is now stale
	s.applyRun("", nil, nil, false)
}

// --- Inspection ---

// Inspect submits the buffer for review, fetching raw per-model results and
// the consolidated view concurrently; the two feed independent state slices,
// so no completion order is assumed. A new run discards the previous
// suggestion set and forces the selection back to listing.
func (s *Session) Inspect(ctx context.Context) error {
	s.mu.Lock()
	if s.inspecting {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.buffer == "" || s.language == "" {
		s.mu.Unlock()
		return errors.New("nothing to inspect: buffer and language are required")
	}
	s.inspecting = true
	s.inspectGen++
	gen := s.inspectGen
	code, language := s.buffer, s.language
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inspecting = false
		s.mu.Unlock()
	}()

	var (
		wg           sync.WaitGroup
		raw          []models.RawInspectionResult
		consolidated []models.ConsolidatedIssue
		rawErr       error
		consErr      error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		raw, rawErr = s.api.InspectPublic(ctx, code, language)
	}()
	go func() {
		defer wg.Done()
		consolidated, consErr = s.api.InspectConsolidated(ctx, code, language)
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.inspectGen {
		// The session moved on (cleared, re-inspected) while we were waiting.
		return nil
	}

	if errors.Is(rawErr, backend.ErrRateLimited) {
		s.applyRun("", nil, consolidated, true)
		return nil
	}
	if rawErr != nil {
		return fmt.Errorf("inspect: %w", rawErr)
	}
	if consErr != nil {
		// Raw results still render; the aggregated tab just stays empty.
		consolidated = nil
	}

	s.applyRun(newRunID(), raw, consolidated, false)
	return nil
}

// applyRun installs a new inspection run. Caller holds the lock.
func (s *Session) applyRun(runID string, raw []models.RawInspectionResult, consolidated []models.ConsolidatedIssue, rateLimited bool) {
	s.runID = runID
	s.results = raw
	s.consolidated = consolidated
	s.suggestions = review.Normalize(raw)
	s.rateLimited = rateLimited
	s.reduceSelection(nil)
}

// Inspecting reports whether an inspection is in flight.
func (s *Session) Inspecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspecting
}

// RunID identifies the latest inspection run, or "" before the first one.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// RateLimited reports whether the latest run hit the public rate limit.
func (s *Session) RateLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimited
}

// Suggestions returns the full normalized pool for the latest run.
func (s *Session) Suggestions() []models.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestions
}

// Consolidated returns the server-aggregated issues for the latest run.
func (s *Session) Consolidated() []models.ConsolidatedIssue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consolidated
}

// ModelErrors returns per-model failures from the latest run.
func (s *Session) ModelErrors() []review.ModelError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return review.ModelErrors(s.results)
}

// --- Filtering ---

// SetQuery replaces the filter inputs. The visible list is recomputed from
// scratch on every read; there is no incremental state to invalidate.
func (s *Session) SetQuery(q review.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.Filter == "" {
		q.Filter = review.FilterAll
	}
	s.query = q
}

// Query returns the active filter inputs.
func (s *Session) Query() review.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Visible computes the currently visible suggestion subset.
func (s *Session) Visible() []models.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return review.Visible(s.suggestions, s.query)
}

// Counts returns per-bucket counts scoped to the active model tab.
func (s *Session) Counts() map[review.FilterCategory]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return review.Counts(s.suggestions, s.query.Model)
}

// --- Selection ---

// reduceSelection is the single place selection transitions happen. Entering
// detail sets the highlighted line and resets the test workflow; returning to
// listing clears both; re-selecting while in detail behaves like a fresh
// entry. Caller holds the lock.
func (s *Session) reduceSelection(sug *models.Suggestion) {
	s.selected = sug
	if sug != nil {
		s.highlightLine = sug.LineNumber
	} else {
		s.highlightLine = 0
	}
	s.testGen++ // drop in-flight test responses tied to the old selection
	s.testCode = ""
	s.hasTestCode = false
	s.testResult = nil
}

// Select opens the suggestion with the given id from the latest run.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.suggestions {
		if s.suggestions[i].ID == id {
			sug := s.suggestions[i]
			s.reduceSelection(&sug)
			return nil
		}
	}
	return fmt.Errorf("no such suggestion: %s", id)
}

// Back returns to listing mode.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reduceSelection(nil)
}

// Selected returns the open suggestion, or nil in listing mode.
func (s *Session) Selected() *models.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	sug := *s.selected
	return &sug
}

// HighlightedLine returns the editor line derived from the selection, 0 when
// nothing is selected.
func (s *Session) HighlightedLine() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlightLine
}

// Apply overwrites the entire buffer with the selected suggestion's
// replacement code, verbatim, and returns to listing. There is no undo.
func (s *Session) Apply() error {
	s.detector.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return ErrNothingSelected
	}
	if s.selected.Suggestion == "" {
		return errors.New("selected suggestion has no replacement code")
	}
	s.buffer = s.selected.Suggestion
	s.reduceSelection(nil)
	return nil
}
