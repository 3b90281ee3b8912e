package logic

import (
	"errors"
	"testing"
)

func TestOnEdge(t *testing.T) {
	if OnEdge(true) != ActionRead {
		t.Error("ready edge should read")
	}
	if OnEdge(false) != ActionIgnore {
		t.Error("not-ready edge should be ignored")
	}
}

func TestOnEdgeSequence(t *testing.T) {
	// Falling edge on ready, then data-bit edges while DOUT is high
	ready := []bool{true, false, false, false, true, false}
	want := []Action{ActionRead, ActionIgnore, ActionIgnore, ActionIgnore, ActionRead, ActionIgnore}

	for i, r := range ready {
		if got := OnEdge(r); got != want[i] {
			t.Errorf("edge %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		a    Action
		want string
	}{
		{ActionRead, "READ"},
		{ActionIgnore, "IGNORE"},
		{Action(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.a.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", int(tt.a), got, tt.want)
		}
	}
}

func TestEdgeCountsRecord(t *testing.T) {
	var c EdgeCounts
	c.Record(ActionRead, nil)
	c.Record(ActionIgnore, nil)
	c.Record(ActionIgnore, nil)
	c.Record(ActionRead, errors.New("torn"))

	if c.Edges != 4 {
		t.Errorf("Edges: got %d, want 4", c.Edges)
	}
	if c.Reads != 1 {
		t.Errorf("Reads: got %d, want 1", c.Reads)
	}
	if c.Ignored != 2 {
		t.Errorf("Ignored: got %d, want 2", c.Ignored)
	}
	if c.Errors != 1 {
		t.Errorf("Errors: got %d, want 1", c.Errors)
	}
}
