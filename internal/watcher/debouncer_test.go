package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(timeout):
		t.Fatal("timeout waiting for debounced events")
		return nil
	}
}

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a single event is added
	d.Add(FileEvent{Path: "index.jsonl", Operation: OpModify, Timestamp: time.Now()})

	// Then: the event passes through after the debounce window
	events := receive(t, d, time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, "index.jsonl", events[0].Path)
	assert.Equal(t, OpModify, events[0].Operation)
}

func TestDebouncer_BurstBecomesOneBatch(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(80 * time.Millisecond)
	defer d.Stop()

	// When: a rebuild touches index and manifest several times
	for range 5 {
		d.Add(FileEvent{Path: "index.jsonl", Operation: OpModify})
		d.Add(FileEvent{Path: "manifest.json", Operation: OpModify})
		time.Sleep(10 * time.Millisecond)
	}

	// Then: one sorted batch with one event per path
	events := receive(t, d, time.Second)
	require.Len(t, events, 2)
	assert.Equal(t, "index.jsonl", events[0].Path)
	assert.Equal(t, "manifest.json", events[1].Path)
}

func TestDebouncer_Coalescing(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want []Operation
	}{
		{"create then modify", []Operation{OpCreate, OpModify}, []Operation{OpCreate}},
		{"modify then delete", []Operation{OpModify, OpDelete}, []Operation{OpDelete}},
		{"delete then create", []Operation{OpDelete, OpCreate}, []Operation{OpModify}},
		{"rename then create", []Operation{OpRename, OpCreate}, []Operation{OpModify}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(30 * time.Millisecond)
			defer d.Stop()

			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "f", Operation: op})
			}

			events := receive(t, d, time.Second)
			got := make([]Operation, len(events))
			for i, e := range events {
				got[i] = e.Operation
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "f", Operation: OpCreate})
	d.Add(FileEvent{Path: "f", Operation: OpDelete})

	select {
	case events := <-d.Output():
		t.Fatalf("unexpected batch %v", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Add(FileEvent{Path: "f", Operation: OpModify})

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "g", Operation: OpModify})

	_, ok := <-d.Output()
	assert.False(t, ok)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "RENAME", OpRename.String())
	assert.Equal(t, "UNKNOWN", Operation(42).String())
}
