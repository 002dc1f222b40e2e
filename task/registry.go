package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"
)

// EvictFunc is called for every task removed by the retention sweep, after the
// entry is gone from the registry. Used to reclaim on-disk staging directories.
type EvictFunc func(t Task)

// Registry is the process-wide task table. One coordinator goroutine is the
// sole writer for any given entry; readers get copies, never live pointers.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	retention time.Duration
	onEvict   EvictFunc
	log       *logrus.Logger
}

func NewRegistry(retention time.Duration, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		tasks:     make(map[string]*Task),
		retention: retention,
		log:       log,
	}
}

// OnEvict registers the eviction hook. Must be called before Start.
func (r *Registry) OnEvict(fn EvictFunc) {
	r.onEvict = fn
}

// Create allocates a time-derived unique ID and inserts a fresh entry.
func (r *Registry) Create() *Task {
	t := &Task{
		ID:        fmt.Sprintf("%s_%d", shortuuid.New(), time.Now().UnixMilli()),
		State:     StateUploading,
		Progress:  0,
		Message:   "Uploading file...",
		UpdatedAt: time.Now(),
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()

	snapshot := *t
	return &snapshot
}

// Update overwrites the entry's mutable fields. Unknown IDs are ignored so a
// coordinator racing the eviction sweep never crashes. Progress can only move
// forward, and terminal entries are left untouched.
func (r *Registry) Update(id string, state State, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.State.Terminal() {
		return
	}
	if progress < t.Progress {
		progress = t.Progress
	}
	t.State = state
	t.Progress = progress
	t.Message = message
	t.UpdatedAt = time.Now()
}

// SetStagingDir records the scratch directory owned by the task.
func (r *Registry) SetStagingDir(id, dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.StagingDir = dir
	}
}

// Complete marks the task finished and publishes the artifact location. This is
// the only place OutputPath is ever set.
func (r *Registry) Complete(id, outputPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.State.Terminal() {
		return
	}
	t.State = StateCompleted
	t.Progress = 100
	t.Message = "Video created successfully!"
	t.OutputPath = outputPath
	t.UpdatedAt = time.Now()
}

// Fail marks the task terminally failed with a user-facing reason.
func (r *Registry) Fail(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.State.Terminal() {
		return
	}
	t.State = StateFailed
	t.Message = message
	t.UpdatedAt = time.Now()
}

// Active reports whether the task exists and has not reached a terminal
// state. The staging sweep uses this to leave long-running transcodes alone.
func (r *Registry) Active(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	return ok && !t.State.Terminal()
}

// Get returns a snapshot of the task, if it still exists.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// EvictExpired removes every entry whose last update is older than the
// retention window, regardless of state. Called lazily on progress queries and
// from the background sweep.
func (r *Registry) EvictExpired(now time.Time) {
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	var evicted []Task
	for id, t := range r.tasks {
		if t.UpdatedAt.Before(cutoff) {
			evicted = append(evicted, *t)
			delete(r.tasks, id)
		}
	}
	r.mu.Unlock()

	for _, t := range evicted {
		r.log.WithFields(logrus.Fields{"task_id": t.ID, "state": t.State}).Info("evicted expired task")
		if r.onEvict != nil {
			r.onEvict(t)
		}
	}
}

// Start runs the periodic eviction sweep until ctx is canceled.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.retention / 4) // Check 4 times per lifetime
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.log.Info("registry sweep shutting down")
				return
			case now := <-ticker.C:
				r.EvictExpired(now)
			}
		}
	}()
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
