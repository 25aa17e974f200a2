// Package projects keeps a local working copy of the user's project list in
// sync with the backend. Mutations that are cheap to undo apply locally
// before the server confirms; destructive ones wait for the server.
package projects

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/refixhq/refix-cli/internal/models"
)

// API is the project slice of the backend client.
type API interface {
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	CreateProject(ctx context.Context, name, githubURL, userID string) (*models.Project, error)
	RenameProject(ctx context.Context, id int, name string) error
	DeleteProject(ctx context.Context, id int) error
	SaveProjectOrder(ctx context.Context, userID string, orderedIDs []int) error
	ReorderProjects(ctx context.Context, userID string, key models.SortKey) ([]models.Project, error)
}

// Notifier surfaces a failed action to the user. Notify blocks until the
// user acknowledges, so the orchestrator never silently loses a change.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Direction of a manual single-step move.
type Direction int

const (
	MoveUp Direction = iota
	MoveDown
)

// Orchestrator owns the cached project list for one user.
type Orchestrator struct {
	api    API
	notify Notifier
	logger *slog.Logger
	userID string

	mu      sync.Mutex
	list    []models.Project
	loading bool
}

// New builds an orchestrator. A nil notifier discards notifications.
func New(api API, userID string, notify Notifier, logger *slog.Logger) *Orchestrator {
	if notify == nil {
		notify = NotifierFunc(func(string) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{api: api, notify: notify, logger: logger, userID: userID}
}

// Projects returns a copy of the current working list.
func (o *Orchestrator) Projects() []models.Project {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Project, len(o.list))
	copy(out, o.list)
	return out
}

// Loading reports whether a fetch is in flight.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// Refresh fetches the list from the server. On failure the previous list is
// kept as-is so the user keeps working with what they had.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	o.loading = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.loading = false
		o.mu.Unlock()
	}()

	list, err := o.api.ListProjects(ctx, o.userID)
	if err != nil {
		o.logger.Error("project list fetch failed", "error", err)
		return fmt.Errorf("list projects: %w", err)
	}

	o.mu.Lock()
	o.list = list
	o.mu.Unlock()
	return nil
}

// Create registers a new project and refetches the list so ordering and
// server-assigned fields come from the source of truth.
func (o *Orchestrator) Create(ctx context.Context, name, githubURL string) (*models.Project, error) {
	p, err := o.api.CreateProject(ctx, name, githubURL, o.userID)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if err := o.Refresh(ctx); err != nil {
		// The project exists server-side; the stale local list heals on the
		// next refresh.
		o.logger.Warn("refresh after create failed", "error", err)
	}
	return p, nil
}

// Rename applies the new name locally first, then persists it. If the server
// rejects the rename the pre-rename list is restored and the user is told.
func (o *Orchestrator) Rename(ctx context.Context, id int, name string) error {
	o.mu.Lock()
	snapshot := make([]models.Project, len(o.list))
	copy(snapshot, o.list)
	found := false
	for i := range o.list {
		if o.list[i].ID == id {
			o.list[i].Name = name
			found = true
			break
		}
	}
	o.mu.Unlock()
	if !found {
		return fmt.Errorf("no such project: %d", id)
	}

	if err := o.api.RenameProject(ctx, id, name); err != nil {
		o.mu.Lock()
		o.list = snapshot
		o.mu.Unlock()
		o.notify.Notify(fmt.Sprintf("Failed to rename project: %v", err))
		return fmt.Errorf("rename project %d: %w", id, err)
	}
	return nil
}

// Delete removes a project. The local list changes only after the server
// confirms; there is no optimistic removal to roll back.
func (o *Orchestrator) Delete(ctx context.Context, id int) error {
	if err := o.api.DeleteProject(ctx, id); err != nil {
		o.notify.Notify(fmt.Sprintf("Failed to delete project: %v", err))
		return fmt.Errorf("delete project %d: %w", id, err)
	}

	o.mu.Lock()
	for i := range o.list {
		if o.list[i].ID == id {
			o.list = append(o.list[:i], o.list[i+1:]...)
			break
		}
	}
	o.mu.Unlock()
	return nil
}

// Move shifts a project one slot up or down, applies the new order locally,
// and persists it. If persistence fails the list is refetched so local state
// never drifts from the server's order.
func (o *Orchestrator) Move(ctx context.Context, id int, dir Direction) error {
	o.mu.Lock()
	idx := -1
	for i := range o.list {
		if o.list[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		o.mu.Unlock()
		return fmt.Errorf("no such project: %d", id)
	}
	swap := idx - 1
	if dir == MoveDown {
		swap = idx + 1
	}
	if swap < 0 || swap >= len(o.list) {
		o.mu.Unlock()
		return nil // already at the edge
	}
	o.list[idx], o.list[swap] = o.list[swap], o.list[idx]
	ids := make([]int, len(o.list))
	for i := range o.list {
		ids[i] = o.list[i].ID
	}
	o.mu.Unlock()

	if err := o.api.SaveProjectOrder(ctx, o.userID, ids); err != nil {
		o.notify.Notify(fmt.Sprintf("Failed to save project order: %v", err))
		if rerr := o.Refresh(ctx); rerr != nil {
			o.logger.Error("refetch after failed reorder", "error", rerr)
		}
		return fmt.Errorf("save project order: %w", err)
	}
	return nil
}

// AutoSort asks the server to re-sort the list by the given key and replaces
// the local list wholesale with the server's answer. Manual is a no-op: it
// means "keep the order the user arranged", not "apply a sort".
func (o *Orchestrator) AutoSort(ctx context.Context, key models.SortKey) error {
	if !models.ValidSortKey(key) {
		return fmt.Errorf("unknown sort key: %s", key)
	}
	if key == models.SortManual {
		return nil
	}

	list, err := o.api.ReorderProjects(ctx, o.userID, key)
	if err != nil {
		o.notify.Notify(fmt.Sprintf("Failed to sort projects: %v", err))
		return fmt.Errorf("sort projects: %w", err)
	}

	o.mu.Lock()
	o.list = list
	o.mu.Unlock()
	return nil
}
