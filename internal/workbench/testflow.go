package workbench

import (
	"context"
	"fmt"

	"github.com/refixhq/refix-cli/internal/models"
)

// GenerateTest asks the backend for a unit test exercising the selected
// suggestion's replacement code against the current buffer. Triggering a new
// generation clears any previously generated test and its result first. On
// failure the error text is stored in place of the test code so the pane
// shows what went wrong.
func (s *Session) GenerateTest(ctx context.Context) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNothingSelected
	}
	s.generating = true
	s.testGen++
	gen := s.testGen
	s.testCode = ""
	s.hasTestCode = false
	s.testResult = nil
	original, revised, language := s.buffer, s.selected.Suggestion, s.language
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	code, err := s.api.GenerateTest(ctx, original, revised, language)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.testGen {
		return nil
	}
	if err != nil {
		s.testCode = fmt.Sprintf("# failed to generate test: %v", err)
		s.hasTestCode = false
		return fmt.Errorf("generate test: %w", err)
	}
	s.testCode = code
	s.hasTestCode = true
	return nil
}

// RunTest executes the generated test against the selected suggestion's
// replacement code. Without generated test code it is a no-op: no request,
// no state change. A transport failure is folded into a synthetic result so
// the pane always has something to show for a run that was started.
func (s *Session) RunTest(ctx context.Context) error {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.hasTestCode {
		s.mu.Unlock()
		return nil
	}
	s.executing = true
	s.testResult = nil // a stale verdict must not outlive the run that replaced it
	gen := s.testGen
	testCode, codeToTest, language := s.testCode, s.selected.Suggestion, s.language
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.executing = false
		s.mu.Unlock()
	}()

	result, err := s.api.RunTest(ctx, testCode, codeToTest, language)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.testGen {
		return nil
	}
	if err != nil {
		s.testResult = &models.TestResult{
			Status: models.TestStatusError,
			Output: fmt.Sprintf("failed to run test: %v", err),
		}
		return fmt.Errorf("run test: %w", err)
	}
	s.testResult = result
	return nil
}

// TestCode returns the generated test code pane content (which may be an
// inline error message) and whether runnable test code exists.
func (s *Session) TestCode() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testCode, s.hasTestCode
}

// TestResult returns the latest execution result, nil before the first run
// for the current selection.
func (s *Session) TestResult() *models.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testResult
}

// GeneratingTest reports whether a generation request is in flight.
func (s *Session) GeneratingTest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// RunningTest reports whether an execution request is in flight.
func (s *Session) RunningTest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executing
}
