package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/realtime"
)

// TestAdapterInterface verifies that both adapters drive a machine the same way
func TestAdapterInterface(t *testing.T) {
	createTestMachine := func(j *Journal) *hfsm.Machine[string] {
		a := NewState("a", j)
		a.OnUpdate = func(s *RecordingState[string], dt time.Duration) error {
			if s.Elapsed >= 20*time.Millisecond {
				return s.ChangeState("b")
			}
			return nil
		}
		m := hfsm.NewMachine("root")
		if err := m.AddState(a, NewState("b", j)); err != nil {
			t.Fatalf("AddState failed: %v", err)
		}
		return m
	}

	tests := []struct {
		name    string
		adapter func(m *hfsm.Machine[string]) RuntimeAdapter
	}{
		{
			name: "Direct",
			adapter: func(m *hfsm.Machine[string]) RuntimeAdapter {
				return NewDirectAdapter(m)
			},
		},
		{
			name: "Step",
			adapter: func(m *hfsm.Machine[string]) RuntimeAdapter {
				return NewStepAdapter(m, realtime.Config{TickRate: 10 * time.Millisecond})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Journal{}
			m := createTestMachine(j)
			adapter := tt.adapter(m)

			if err := adapter.Start(context.Background()); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			// Should start in state a
			if m.Current() != "a" {
				t.Errorf("Current() = %q, want %q", m.Current(), "a")
			}

			for i := 0; i < 2; i++ {
				if err := adapter.Tick(10 * time.Millisecond); err != nil {
					t.Fatalf("Tick failed: %v", err)
				}
			}

			if m.Current() != "b" {
				t.Errorf("Current() = %q, want %q", m.Current(), "b")
			}

			if err := adapter.Stop(); err != nil {
				t.Fatalf("Stop failed: %v", err)
			}
			if got := j.Count("b", "exit"); got != 1 {
				t.Errorf("b exits = %d, want 1", got)
			}
		})
	}
}

func TestJournalOrdering(t *testing.T) {
	j := &Journal{}
	first := j.Record("a", "enter")
	second := j.Record("b", "update")
	j.Record("a", "exit")

	if first >= second {
		t.Errorf("Record() seq %d not before %d", first, second)
	}
	if got := j.Trace("enter", "exit"); len(got) != 2 || got[0] != "a.enter" || got[1] != "a.exit" {
		t.Errorf("Trace() = %v", got)
	}
	if got := j.Seqs("update"); len(got) != 1 || got[0] != second {
		t.Errorf("Seqs() = %v, want [%d]", got, second)
	}

	j.Reset()
	if len(j.Entries()) != 0 {
		t.Errorf("Entries() after Reset = %v", j.Entries())
	}
}
