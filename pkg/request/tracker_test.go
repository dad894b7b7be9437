package request

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_AddResolve(t *testing.T) {
	tr := NewTracker()
	tr.Add(Request{TaskID: "t1", Filename: "a.txt", Sender: "Alice"})

	req, ok := tr.Resolve("t1")
	require.True(t, ok)
	assert.Equal(t, "a.txt", req.Filename)
	assert.Equal(t, StateResolved, req.State)

	// Entry is gone after resolution.
	_, ok = tr.Get("t1")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_ResolveUnknownID(t *testing.T) {
	tr := NewTracker()

	_, ok := tr.Resolve("bogus")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_ResolveTwice(t *testing.T) {
	tr := NewTracker()
	tr.Add(Request{TaskID: "t1"})

	_, first := tr.Resolve("t1")
	_, second := tr.Resolve("t1")

	assert.True(t, first)
	assert.False(t, second)
}

func TestTracker_AtMostOnceUnderConcurrency(t *testing.T) {
	tr := NewTracker()
	tr.Add(Request{TaskID: "t1"})
	tr.MarkShown("t1")

	const callers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := range callers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			if _, ok := tr.Resolve("t1"); ok {
				wins.Add(1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one caller must win the transition")
}

func TestTracker_MarkShown(t *testing.T) {
	tr := NewTracker()
	tr.Add(Request{TaskID: "t1"})

	assert.True(t, tr.MarkShown("t1"))

	req, ok := tr.Get("t1")
	require.True(t, ok)
	assert.Equal(t, StateShown, req.State)

	assert.False(t, tr.MarkShown("missing"))
}

func TestTracker_AddReplacesExisting(t *testing.T) {
	tr := NewTracker()
	tr.Add(Request{TaskID: "t1", Filename: "old.txt"})
	tr.Add(Request{TaskID: "t1", Filename: "new.txt"})

	req, ok := tr.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "new.txt", req.Filename)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_AllOldestFirst(t *testing.T) {
	tr := NewTracker()
	base := time.Now()
	tr.Add(Request{TaskID: "b", CreatedAt: base.Add(time.Second)})
	tr.Add(Request{TaskID: "a", CreatedAt: base})

	all := tr.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].TaskID)
	assert.Equal(t, "b", all[1].TaskID)
}

func TestTracker_Drain(t *testing.T) {
	tr := NewTracker()
	for i := range 3 {
		tr.Add(Request{TaskID: fmt.Sprintf("t%d", i)})
	}

	abandoned := tr.Drain()
	assert.Len(t, abandoned, 3)
	assert.Equal(t, 0, tr.Len())

	// Signals arriving after the drain are stale and must not win.
	_, ok := tr.Resolve("t0")
	assert.False(t, ok)
}
