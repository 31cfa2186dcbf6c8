package orchestrator

import (
	"context"
	"sync"

	"github.com/vector-copilot/orchestrator/proposals"
)

// TaskStateStore holds Task State across Run calls sharing a workflowId
// (spec.md §3.7: "Task State attached on first turn, reused if workflowId
// matches"). Implementations must be safe for concurrent use.
type TaskStateStore interface {
	Load(ctx context.Context, workflowID string) (*TaskState, bool, error)
	Save(ctx context.Context, ts *TaskState) error
}

// InMemoryTaskStateStore is the default TaskStateStore, grounded on the
// same simple mutex-guarded-map shape the in-memory Tool-Result Cache uses
// (toolcache/inmemory.go), since Task State here is process-local workflow
// scratch space rather than durable storage.
type InMemoryTaskStateStore struct {
	mu     sync.Mutex
	states map[string]*TaskState
}

// NewInMemoryTaskStateStore builds an empty store.
func NewInMemoryTaskStateStore() *InMemoryTaskStateStore {
	return &InMemoryTaskStateStore{states: make(map[string]*TaskState)}
}

func (s *InMemoryTaskStateStore) Load(_ context.Context, workflowID string) (*TaskState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.states[workflowID]
	return ts, ok, nil
}

func (s *InMemoryTaskStateStore) Save(_ context.Context, ts *TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[ts.WorkflowID] = ts
	return nil
}

// newTaskState builds an empty Task State for a fresh workflow.
func newTaskState(workflowID string) *TaskState {
	return &TaskState{
		WorkflowID:   workflowID,
		Fingerprints: make(map[string]string),
		Scene:        proposals.NewSnapshot(nil),
	}
}
