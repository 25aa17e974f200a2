package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/refixhq/refix-cli/internal/backend"
	"github.com/refixhq/refix-cli/internal/detect"
	"github.com/refixhq/refix-cli/internal/models"
	"github.com/refixhq/refix-cli/internal/output"
	"github.com/refixhq/refix-cli/internal/prefs"
	"github.com/refixhq/refix-cli/internal/review"
)

var (
	inspectLanguage  string
	inspectProjectID int
	inspectFilter    string
	inspectModel     string
	inspectSearch    string
	inspectFormat    string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Submit code for AI review and print the suggestions",
	Long: `Submit a file (or stdin) to the review service. Raw per-model suggestions
and the consolidated cross-model view are fetched concurrently.

With --project the authenticated per-project route is used and the run counts
toward the project's review history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectRun(cmd.Context(), args)
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectLanguage, "language", "l", "", "Language of the code (auto-detected when omitted)")
	inspectCmd.Flags().IntVarP(&inspectProjectID, "project", "p", 0, "Inspect under a project (requires auth)")
	inspectCmd.Flags().StringVarP(&inspectFilter, "filter", "f", "all", "Category filter: all, repair, performance, advance")
	inspectCmd.Flags().StringVarP(&inspectModel, "model", "m", "", "Restrict to one model's suggestions")
	inspectCmd.Flags().StringVarP(&inspectSearch, "search", "s", "", "Substring filter on description and category")
	inspectCmd.Flags().StringVarP(&inspectFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(inspectCmd)
}

// readSource loads code from the named file, or stdin when no file is given.
func readSource(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func inspectRun(ctx context.Context, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	code, err := readSource(args)
	if err != nil {
		return err
	}
	if code == "" {
		return errors.New("no code to inspect")
	}

	language := inspectLanguage
	if language == "" {
		language = detect.Language(code)
	}
	if language == "" {
		return errors.New("could not detect language; pass --language")
	}
	ui.VerboseLog("language: %s", language)

	filter, ok := review.ParseFilter(inspectFilter)
	if !ok {
		return fmt.Errorf("unknown filter: %s", inspectFilter)
	}

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
		if inspectProjectID > 0 {
			raw, rawErr = apiClient.InspectProject(ctx, inspectProjectID, code, language)
		} else {
			raw, rawErr = apiClient.InspectPublic(ctx, code, language)
		}
	}()
	go func() {
		defer wg.Done()
		if inspectProjectID > 0 {
			consolidated, consErr = apiClient.InspectProjectConsolidated(ctx, inspectProjectID, code, language)
		} else {
			consolidated, consErr = apiClient.InspectConsolidated(ctx, code, language)
		}
	}()
	wg.Wait()

	if errors.Is(rawErr, backend.ErrRateLimited) {
		ui.RateLimit()
		logRun(ctx, language, 0, true)
		return nil
	}
	if rawErr != nil {
		return rawErr
	}
	if consErr != nil {
		ui.VerboseLog("consolidated view unavailable: %v", consErr)
		consolidated = nil
	}

	suggestions := review.Normalize(raw)
	query := review.Query{Model: inspectModel, Filter: filter, Search: inspectSearch}
	visible := review.Visible(suggestions, query)
	logRun(ctx, language, len(suggestions), false)

	switch inspectFormat {
	case "json":
		return output.WriteJSON(ui.Out, inspectReport(visible, consolidated, raw))
	case "yaml":
		return output.WriteYAML(ui.Out, inspectReport(visible, consolidated, raw))
	case "text":
		ui.ModelErrors(review.ModelErrors(raw))
		ui.Suggestions(visible, review.Counts(suggestions, inspectModel))
		if len(consolidated) > 0 {
			fmt.Fprintln(ui.Out)
			ui.Consolidated(consolidated)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", inspectFormat)
	}
}

func inspectReport(visible []models.Suggestion, consolidated []models.ConsolidatedIssue, raw []models.RawInspectionResult) map[string]any {
	return map[string]any{
		"suggestions":  visible,
		"consolidated": consolidated,
		"errors":       review.ModelErrors(raw),
	}
}

// logRun records the run in the local history; failures are not fatal.
func logRun(ctx context.Context, language string, count int, rateLimited bool) {
	s, err := getPrefs()
	if err != nil {
		ui.VerboseLog("run log unavailable: %v", err)
		return
	}
	rec := &prefs.RunRecord{Language: language, SuggestionCount: count, RateLimited: rateLimited}
	if err := s.LogRun(ctx, rec); err != nil {
		ui.VerboseLog("run log write failed: %v", err)
	}
}
