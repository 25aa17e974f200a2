package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refixhq/refix-cli/internal/models"
	"github.com/refixhq/refix-cli/internal/projects"
)

var (
	projectGithubURL string
	projectForce     bool
	historyLimit     int
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage review projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(cmd.Context())
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(cmd.Context())
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAddRun(cmd.Context(), args[0])
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %s", args[0])
		}
		return projectRenameRun(cmd.Context(), id, args[1])
	},
}

var projectRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a project and its review history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %s", args[0])
		}
		return projectRmRun(cmd.Context(), id)
	},
}

var projectMoveCmd = &cobra.Command{
	Use:   "move <id> <up|down>",
	Short: "Move a project one slot in the manual order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %s", args[0])
		}
		return projectMoveRun(cmd.Context(), id, args[1])
	},
}

var projectSortCmd = &cobra.Command{
	Use:   "sort <key>",
	Short: "Sort projects server-side",
	Long: `Sort the project list. Keys: newest, oldest, name_asc, name_desc.
'manual' keeps the order you arranged with 'project move' and is a no-op here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectSortRun(cmd.Context(), args[0])
	},
}

var projectScoreCmd = &cobra.Command{
	Use:   "score <id> <show|hide>",
	Short: "Toggle score visibility for a project on this machine",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %s", args[0])
		}
		return projectScoreRun(cmd.Context(), id, args[1])
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent inspection runs from this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyRun(cmd.Context())
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectGithubURL, "github-url", "", "GitHub repository URL")
	projectRmCmd.Flags().BoolVar(&projectForce, "force", false, "Skip the confirmation prompt")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectRmCmd)
	projectCmd.AddCommand(projectMoveCmd)
	projectCmd.AddCommand(projectSortCmd)
	projectCmd.AddCommand(projectScoreCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(historyCmd)
}

// newOrchestrator wires the shared client into a project orchestrator whose
// failure notices go through the UI.
func newOrchestrator() (*projects.Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UserID == "" {
		return nil, errors.New("auth.user_id is not set; project commands require a signed-in user")
	}
	notify := projects.NotifierFunc(func(msg string) {
		ui.Error("%s", msg)
	})
	return projects.New(apiClient, cfg.UserID, notify, nil), nil
}

func projectListRun(ctx context.Context) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := o.Refresh(ctx); err != nil {
		return err
	}

	hidden := map[int]bool{}
	if s, err := getPrefs(); err == nil {
		for _, p := range o.Projects() {
			if h, err := s.HideScore(ctx, p.ID); err == nil && h {
				hidden[p.ID] = true
			}
		}
	}

	ui.Projects(o.Projects(), hidden)
	return nil
}

func projectAddRun(ctx context.Context, name string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	p, err := o.Create(ctx, name, projectGithubURL)
	if err != nil {
		return err
	}
	ui.Success("Created project %d: %s", p.ID, p.Name)
	return nil
}

func projectRenameRun(ctx context.Context, id int, name string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := o.Refresh(ctx); err != nil {
		return err
	}
	if err := o.Rename(ctx, id, name); err != nil {
		return err
	}
	ui.Success("Renamed project %d to %s", id, name)
	return nil
}

func projectRmRun(ctx context.Context, id int) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := o.Refresh(ctx); err != nil {
		return err
	}

	if !projectForce {
		fmt.Fprintf(ui.Out, "Delete project %d and all its review history? [y/N] ", id)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			ui.Info("Aborted")
			return nil
		}
	}

	if err := o.Delete(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted project %d", id)
	return nil
}

func projectMoveRun(ctx context.Context, id int, direction string) error {
	var dir projects.Direction
	switch direction {
	case "up":
		dir = projects.MoveUp
	case "down":
		dir = projects.MoveDown
	default:
		return fmt.Errorf("direction must be 'up' or 'down', got %q", direction)
	}

	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := o.Refresh(ctx); err != nil {
		return err
	}
	if err := o.Move(ctx, id, dir); err != nil {
		return err
	}
	ui.Projects(o.Projects(), nil)
	return nil
}

func projectSortRun(ctx context.Context, key string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := o.Refresh(ctx); err != nil {
		return err
	}
	if err := o.AutoSort(ctx, models.SortKey(key)); err != nil {
		return err
	}
	if models.SortKey(key) == models.SortManual {
		ui.Info("Manual order kept")
	}
	ui.Projects(o.Projects(), nil)
	return nil
}

func projectScoreRun(ctx context.Context, id int, mode string) error {
	var hide bool
	switch mode {
	case "hide":
		hide = true
	case "show":
		hide = false
	default:
		return fmt.Errorf("mode must be 'show' or 'hide', got %q", mode)
	}

	s, err := getPrefs()
	if err != nil {
		return err
	}
	if err := s.SetHideScore(ctx, id, hide); err != nil {
		return err
	}
	state := "visible"
	if hide {
		state = "hidden"
	}
	ui.Success("Score for project %d is now %s on this machine", id, state)
	return nil
}

func historyRun(ctx context.Context) error {
	s, err := getPrefs()
	if err != nil {
		return err
	}
	runs, err := s.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	ui.Runs(runs)
	return nil
}
