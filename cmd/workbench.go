package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refixhq/refix-cli/internal/output"
	"github.com/refixhq/refix-cli/internal/review"
	"github.com/refixhq/refix-cli/internal/workbench"
)

var workbenchCmd = &cobra.Command{
	Use:     "workbench [file]",
	Aliases: []string{"wb"},
	Short:   "Interactive review session",
	Long: `Open an interactive session over a code buffer. Load code, run an
inspection, browse and filter suggestions, open one for detail, apply its fix,
and generate and run a test for it.

Type 'help' inside the session for the command list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return workbenchRun(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(workbenchCmd)
}

func workbenchRun(ctx context.Context, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	session := workbench.NewSession(cfg, apiClient)
	defer session.Close()

	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		session.SetBuffer(string(data))
		ui.Info("Loaded %s (%d bytes)", args[0], len(data))
	}

	ui.Info("refix workbench - type 'help' for commands, 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(ui.Out, prompt(session))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := workbenchDispatch(ctx, session, cmd, arg); err != nil {
			ui.Error("%v", err)
		}
	}
}

// prompt shows where the session is: listing or an open suggestion.
func prompt(s *workbench.Session) string {
	if sel := s.Selected(); sel != nil {
		return fmt.Sprintf("refix(%s)> ", sel.ID)
	}
	return "refix> "
}

func workbenchDispatch(ctx context.Context, s *workbench.Session, cmd, arg string) error {
	switch cmd {
	case "help":
		workbenchHelp()
		return nil

	case "show":
		buffer := s.Buffer()
		if buffer == "" {
			ui.Info("Buffer is empty. Use 'load <file>' or 'sample'.")
			return nil
		}
		printBuffer(buffer, s.HighlightedLine())
		return nil

	case "load":
		if arg == "" {
			return errors.New("usage: load <file>")
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return fmt.Errorf("read %s: %w", arg, err)
		}
		s.SetBuffer(string(data))
		ui.Success("Loaded %s (%d bytes)", arg, len(data))
		return nil

	case "save":
		if arg == "" {
			return errors.New("usage: save <file>")
		}
		if err := os.WriteFile(arg, []byte(s.Buffer()), 0644); err != nil {
			return fmt.Errorf("write %s: %w", arg, err)
		}
		ui.Success("Saved %s", arg)
		return nil

	case "sample":
		s.LoadSample()
		ui.Success("Sample loaded (python)")
		return nil

	case "clear":
		s.Clear()
		ui.Success("Buffer cleared")
		return nil

	case "lang":
		if arg == "" {
			ui.Info("Language: %s", orUnset(s.Language()))
			return nil
		}
		s.SetLanguage(arg)
		ui.Success("Language set to %s", arg)
		return nil

	case "inspect":
		return workbenchInspect(ctx, s)

	case "list":
		showListing(s)
		return nil

	case "filter":
		filter, ok := review.ParseFilter(arg)
		if !ok {
			return fmt.Errorf("unknown filter: %s (all, repair, performance, advance)", arg)
		}
		q := s.Query()
		q.Filter = filter
		s.SetQuery(q)
		showListing(s)
		return nil

	case "model":
		q := s.Query()
		q.Model = arg // empty arg returns to the combined view
		s.SetQuery(q)
		showListing(s)
		return nil

	case "models":
		for _, m := range review.Models(s.Suggestions()) {
			fmt.Fprintln(ui.Out, m)
		}
		return nil

	case "search":
		q := s.Query()
		q.Search = arg
		s.SetQuery(q)
		showListing(s)
		return nil

	case "consolidated":
		ui.Consolidated(s.Consolidated())
		return nil

	case "open":
		if arg == "" {
			return errors.New("usage: open <suggestion-id>")
		}
		if err := s.Select(arg); err != nil {
			return err
		}
		ui.SuggestionDetail(s.Selected(), s.Buffer())
		return nil

	case "back":
		s.Back()
		return nil

	case "apply":
		if err := s.Apply(); err != nil {
			return err
		}
		ui.Success("Suggestion applied; buffer replaced")
		return nil

	case "gentest":
		if err := s.GenerateTest(ctx); err != nil {
			if errors.Is(err, workbench.ErrBusy) {
				ui.Warning("A test is already being generated")
				return nil
			}
			return err
		}
		code, _ := s.TestCode()
		fmt.Fprintln(ui.Out, code)
		return nil

	case "runtest":
		_, hasCode := s.TestCode()
		if !hasCode {
			ui.Info("No test to run. Use 'gentest' first.")
			return nil
		}
		if err := s.RunTest(ctx); err != nil {
			if errors.Is(err, workbench.ErrBusy) {
				ui.Warning("A test run is already in progress")
				return nil
			}
			// The synthesized result still renders below.
			ui.VerboseLog("%v", err)
		}
		if result := s.TestResult(); result != nil {
			fmt.Fprintf(ui.Out, "%s\n%s\n", output.TestStatusColor(string(result.Status)), result.Output)
		}
		return nil

	default:
		return fmt.Errorf("unknown command: %s (try 'help')", cmd)
	}
}

func workbenchInspect(ctx context.Context, s *workbench.Session) error {
	ui.Info("Inspecting (%s)...", orUnset(s.Language()))
	err := s.Inspect(ctx)
	if errors.Is(err, workbench.ErrBusy) {
		ui.Warning("An inspection is already running")
		return nil
	}
	if err != nil {
		return err
	}

	if s.RateLimited() {
		ui.RateLimit()
		recordWorkbenchRun(ctx, s)
		return nil
	}

	ui.ModelErrors(s.ModelErrors())
	showListing(s)
	recordWorkbenchRun(ctx, s)
	return nil
}

func showListing(s *workbench.Session) {
	ui.Suggestions(s.Visible(), s.Counts())
}

func printBuffer(buffer string, highlight int) {
	for i, line := range strings.Split(strings.TrimSuffix(buffer, "\n"), "\n") {
		n := i + 1
		if n == highlight {
			fmt.Fprintf(ui.Out, "%4d > %s\n", n, line)
		} else {
			fmt.Fprintf(ui.Out, "%4d   %s\n", n, line)
		}
	}
}

func recordWorkbenchRun(ctx context.Context, s *workbench.Session) {
	logRun(ctx, s.Language(), len(s.Suggestions()), s.RateLimited())
}

func orUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return s
}

func workbenchHelp() {
	fmt.Fprint(ui.Out, `Buffer:
  show              Print the buffer with line numbers
  load <file>       Replace the buffer with a file
  save <file>       Write the buffer to a file
  sample            Load the demo snippet
  clear             Empty the buffer and drop the current run
  lang [name]       Show or set the language

Review:
  inspect           Submit the buffer for review
  list              Show visible suggestions
  filter <name>     all | repair | performance | advance
  model [name]      Restrict to one model (no arg: all models)
  models            List models that returned suggestions
  search <text>     Substring filter
  consolidated      Show the cross-model issue view

Suggestion:
  open <id>         Open a suggestion (shows diff)
  back              Return to the listing
  apply             Replace the buffer with the suggestion's code
  gentest           Generate a test for the open suggestion
  runtest           Run the generated test

  quit              Exit
`)
}
