package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/lexgo/indexer"
)

// TaskStatus is the lifecycle state of an asynchronous batch.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is the pollable outcome of an asynchronous batch submission.
type Task struct {
	ID         uuid.UUID
	Status     TaskStatus
	Report     *indexer.Report
	Err        error
	EnqueuedAt time.Time
	FinishedAt time.Time
}

// maxRetainedTasks bounds how many finished tasks stay pollable. Pending and
// running tasks are never evicted.
const maxRetainedTasks = 256

type taskSet struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]Task
	finished []uuid.UUID
}

func (ts *taskSet) init() {
	ts.tasks = map[uuid.UUID]Task{}
}

func (ts *taskSet) put(t Task) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tasks[t.ID] = t
	if t.Status == TaskSucceeded || t.Status == TaskFailed {
		ts.finished = append(ts.finished, t.ID)
		for len(ts.finished) > maxRetainedTasks {
			delete(ts.tasks, ts.finished[0])
			ts.finished = ts.finished[1:]
		}
	}
}

func (ts *taskSet) get(id uuid.UUID) (Task, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tasks[id]
	return t, ok
}

// EnqueueBatch submits a batch for asynchronous application and returns the
// handle to poll. The batch itself runs under the same serialization and
// resource limits as ApplyBatch.
func (e *Engine) EnqueueBatch(ctx context.Context, b *indexer.Batch) (uuid.UUID, error) {
	if e.closed.Load() {
		return uuid.Nil, ErrClosed
	}

	t := Task{
		ID:         uuid.New(),
		Status:     TaskPending,
		EnqueuedAt: time.Now(),
	}
	e.tasks.put(t)

	go func() {
		t.Status = TaskRunning
		e.tasks.put(t)

		report, err := e.ApplyBatch(ctx, b)
		t.Report = report
		t.Err = err
		t.FinishedAt = time.Now()
		if err != nil {
			t.Status = TaskFailed
		} else {
			t.Status = TaskSucceeded
		}
		e.tasks.put(t)
	}()

	return t.ID, nil
}

// Task returns the state of an asynchronous batch.
func (e *Engine) Task(id uuid.UUID) (Task, bool) {
	return e.tasks.get(id)
}
