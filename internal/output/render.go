package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aryann/difflib"
	"gopkg.in/yaml.v3"

	"github.com/refixhq/refix-cli/internal/models"
	"github.com/refixhq/refix-cli/internal/prefs"
	"github.com/refixhq/refix-cli/internal/review"
)

// Suggestions renders the visible suggestion list with the per-bucket counts
// for the current model tab.
func (u *UI) Suggestions(suggestions []models.Suggestion, counts map[review.FilterCategory]int) {
	fmt.Fprintf(u.Out, "All %d  |  Repair %d  |  Performance %d  |  Advance %d\n\n",
		counts[review.FilterAll], counts[review.FilterRepair],
		counts[review.FilterPerformance], counts[review.FilterAdvance])

	if len(suggestions) == 0 {
		u.Info("No suggestions match the current filters.")
		return
	}

	table := u.Table([]string{"ID", "LINE", "CATEGORY", "MODEL", "DESCRIPTION"})
	for _, s := range suggestions {
		table.Append([]string{
			s.ID,
			strconv.Itoa(s.LineNumber),
			CategoryColor(s.Category),
			s.ModelName,
			truncate(s.Description, 70),
		})
	}
	table.Render()
}

// SuggestionDetail renders one suggestion's full description and, when the
// suggestion carries replacement code, a diff against the current buffer.
func (u *UI) SuggestionDetail(s *models.Suggestion, buffer string) {
	fmt.Fprintf(u.Out, "%s  %s  line %d  (%s)\n\n", Cyan(s.ID), CategoryColor(s.Category), s.LineNumber, s.ModelName)
	fmt.Fprintln(u.Out, s.Description)

	if s.Suggestion != "" {
		fmt.Fprintln(u.Out)
		u.Diff(buffer, s.Suggestion)
	}
}

// Diff renders a line diff from original to revised.
func (u *UI) Diff(original, revised string) {
	records := difflib.Diff(splitLines(original), splitLines(revised))
	for _, rec := range records {
		switch rec.Delta {
		case difflib.LeftOnly:
			fmt.Fprintln(u.Out, Red("- "+rec.Payload))
		case difflib.RightOnly:
			fmt.Fprintln(u.Out, Green("+ "+rec.Payload))
		default:
			fmt.Fprintln(u.Out, "  "+rec.Payload)
		}
	}
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Consolidated renders the cross-model issue view.
func (u *UI) Consolidated(issues []models.ConsolidatedIssue) {
	if len(issues) == 0 {
		u.Info("No consolidated issues.")
		return
	}
	table := u.Table([]string{"ID", "LINE", "CATEGORY", "MODELS", "TITLE"})
	for _, iss := range issues {
		table.Append([]string{
			iss.IssueID,
			strconv.Itoa(iss.LineNumber),
			CategoryColor(iss.Category),
			strings.Join(iss.ParticipatingAIs, ", "),
			truncate(iss.Title, 60),
		})
	}
	table.Render()
}

// ModelErrors reports per-model inspection failures without hiding the
// results that did arrive.
func (u *UI) ModelErrors(errs []review.ModelError) {
	for _, e := range errs {
		u.Warning("%s: %s", e.ModelName, e.Message)
	}
}

// RateLimit renders the dedicated rate-limit notice.
func (u *UI) RateLimit() {
	u.Warning("Rate limit reached for anonymous reviews. Sign in or try again later.")
}

// TestOutcome renders the generated test pane and, if the test has been run,
// its result.
func (u *UI) TestOutcome(testCode string, hasCode bool, result *models.TestResult) {
	if testCode == "" {
		u.Info("No test generated yet.")
		return
	}
	if !hasCode {
		// Generation failed; the pane holds the error text.
		fmt.Fprintln(u.Out, Yellow(testCode))
		return
	}
	fmt.Fprintln(u.Out, testCode)
	if result != nil {
		fmt.Fprintf(u.Out, "\n%s\n%s\n", TestStatusColor(string(result.Status)), result.Output)
	}
}

// Projects renders the project dashboard. Scores for projects in hidden are
// masked.
func (u *UI) Projects(list []models.Project, hidden map[int]bool) {
	if len(list) == 0 {
		u.Info("No projects yet.")
		return
	}
	table := u.Table([]string{"ID", "NAME", "LANG", "SCORE", "LAST REVIEWED"})
	for _, p := range list {
		score := "-"
		switch {
		case hidden[p.ID]:
			score = "hidden"
		case p.AverageScore != nil:
			score = ScoreColor(*p.AverageScore)
		}
		last := "-"
		if p.LastReviewedAt != nil {
			last = p.LastReviewedAt.Format("2006-01-02 15:04")
		}
		table.Append([]string{strconv.Itoa(p.ID), p.Name, p.Language, score, last})
	}
	table.Render()
}

// Runs renders the local inspection run history.
func (u *UI) Runs(runs []*prefs.RunRecord) {
	if len(runs) == 0 {
		u.Info("No runs logged yet.")
		return
	}
	table := u.Table([]string{"WHEN", "LANG", "SUGGESTIONS", "RATE LIMITED"})
	for _, r := range runs {
		limited := ""
		if r.RateLimited {
			limited = Yellow("yes")
		}
		table.Append([]string{r.CreatedAt.Format("2006-01-02 15:04"), r.Language, strconv.Itoa(r.SuggestionCount), limited})
	}
	table.Render()
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML encodes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(v)
}
