package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTaskSetEvictsOldestFinished(t *testing.T) {
	var ts taskSet
	ts.init()

	pending := Task{ID: uuid.New(), Status: TaskPending}
	ts.put(pending)

	oldest := Task{ID: uuid.New(), Status: TaskSucceeded}
	ts.put(oldest)
	var newest Task
	for range maxRetainedTasks {
		newest = Task{ID: uuid.New(), Status: TaskFailed}
		ts.put(newest)
	}

	_, ok := ts.get(oldest.ID)
	assert.False(t, ok)

	_, ok = ts.get(newest.ID)
	assert.True(t, ok)

	// Unfinished tasks are never evicted.
	_, ok = ts.get(pending.ID)
	assert.True(t, ok)

	ts.mu.RLock()
	defer ts.mu.RUnlock()
	assert.Len(t, ts.finished, maxRetainedTasks)
	assert.Len(t, ts.tasks, maxRetainedTasks+1)
}
