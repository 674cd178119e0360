// Package testutil provides recording states, actions and transition logs
// shared by the hfsm test suites.
package testutil

import (
	"fmt"
	"time"

	"github.com/comalice/hfsm"
)

// Entry is one recorded lifecycle call. Seq increases monotonically across a
// Journal, so entries can be compared for ordering.
type Entry struct {
	Seq  int
	Node string
	Op   string
}

// Journal records lifecycle calls of every node that shares it.
type Journal struct {
	entries []Entry
}

// Record appends a call and returns its sequence number.
func (j *Journal) Record(node, op string) int {
	seq := len(j.entries) + 1
	j.entries = append(j.entries, Entry{Seq: seq, Node: node, Op: op})
	return seq
}

// Entries returns a copy of all entries.
func (j *Journal) Entries() []Entry {
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Count returns how many times node recorded op.
func (j *Journal) Count(node, op string) int {
	n := 0
	for _, e := range j.entries {
		if e.Node == node && e.Op == op {
			n++
		}
	}
	return n
}

// Trace returns "node.op" for every entry whose op is listed, in order.
func (j *Journal) Trace(ops ...string) []string {
	want := make(map[string]bool, len(ops))
	for _, op := range ops {
		want[op] = true
	}
	var out []string
	for _, e := range j.entries {
		if want[e.Op] {
			out = append(out, e.Node+"."+e.Op)
		}
	}
	return out
}

// Seqs returns the sequence numbers of every entry with op.
func (j *Journal) Seqs(op string) []int {
	var out []int
	for _, e := range j.entries {
		if e.Op == op {
			out = append(out, e.Seq)
		}
	}
	return out
}

// Reset forgets all entries.
func (j *Journal) Reset() {
	j.entries = nil
}

// RecordingState is a leaf that journals every lifecycle call and optionally
// runs a callback from Enter, Update or CompleteInitialize.
type RecordingState[ID comparable] struct {
	hfsm.Leaf[ID]

	Journal    *Journal
	Declared   []hfsm.FieldSlot
	OnEnter    func(s *RecordingState[ID]) error
	OnUpdate   func(s *RecordingState[ID], dt time.Duration) error
	OnComplete func(s *RecordingState[ID]) error

	Elapsed time.Duration
}

// NewState returns a RecordingState for id writing to j.
func NewState[ID comparable](id ID, j *Journal, fields ...hfsm.FieldSlot) *RecordingState[ID] {
	return &RecordingState[ID]{
		Leaf:     hfsm.NewLeaf(id),
		Journal:  j,
		Declared: fields,
	}
}

// Name is the journal name of the state.
func (s *RecordingState[ID]) Name() string { return fmt.Sprint(s.ID()) }

func (s *RecordingState[ID]) Fields() []hfsm.FieldSlot { return s.Declared }

func (s *RecordingState[ID]) Initialize() error {
	s.Journal.Record(s.Name(), "initialize")
	return nil
}

func (s *RecordingState[ID]) CompleteInitialize() error {
	s.Journal.Record(s.Name(), "complete")
	if s.OnComplete != nil {
		return s.OnComplete(s)
	}
	return nil
}

func (s *RecordingState[ID]) Enter() error {
	s.Elapsed = 0
	s.Journal.Record(s.Name(), "enter")
	if s.OnEnter != nil {
		return s.OnEnter(s)
	}
	return nil
}

func (s *RecordingState[ID]) Update(dt time.Duration) error {
	s.Elapsed += dt
	s.Journal.Record(s.Name(), "update")
	if s.OnUpdate != nil {
		return s.OnUpdate(s, dt)
	}
	return nil
}

func (s *RecordingState[ID]) Exit() error {
	s.Journal.Record(s.Name(), "exit")
	return nil
}

// RecordingAction journals every lifecycle call under Label.
type RecordingAction[ID comparable] struct {
	hfsm.BaseAction[ID]

	Label    string
	Journal  *Journal
	Declared []hfsm.FieldSlot
	OnUpdate func(a *RecordingAction[ID], dt time.Duration) error
}

// NewAction returns a RecordingAction named label writing to j.
func NewAction[ID comparable](label string, j *Journal, fields ...hfsm.FieldSlot) *RecordingAction[ID] {
	return &RecordingAction[ID]{Label: label, Journal: j, Declared: fields}
}

func (a *RecordingAction[ID]) Fields() []hfsm.FieldSlot { return a.Declared }

func (a *RecordingAction[ID]) Initialize() error {
	a.Journal.Record(a.Label, "initialize")
	return nil
}

func (a *RecordingAction[ID]) CompleteInitialize() error {
	a.Journal.Record(a.Label, "complete")
	return nil
}

func (a *RecordingAction[ID]) Enter() error {
	a.Journal.Record(a.Label, "enter")
	return nil
}

func (a *RecordingAction[ID]) Update(dt time.Duration) error {
	a.Journal.Record(a.Label, "update")
	if a.OnUpdate != nil {
		return a.OnUpdate(a, dt)
	}
	return nil
}

func (a *RecordingAction[ID]) Exit() error {
	a.Journal.Record(a.Label, "exit")
	return nil
}

// Hop is one observed transition.
type Hop[ID comparable] struct {
	Machine  string
	From, To ID
}

func (h Hop[ID]) String() string {
	return fmt.Sprintf("%s:%v->%v", h.Machine, h.From, h.To)
}

// TransitionLog collects hops from any number of machines, in order.
type TransitionLog[ID comparable] struct {
	Hops []Hop[ID]
}

// Attach subscribes the log to m.
func (l *TransitionLog[ID]) Attach(m *hfsm.Machine[ID]) {
	name := m.Name()
	m.OnTransition(func(prev, next ID) {
		l.Hops = append(l.Hops, Hop[ID]{Machine: name, From: prev, To: next})
	})
}

// Strings returns every hop formatted as "machine:from->to".
func (l *TransitionLog[ID]) Strings() []string {
	out := make([]string, len(l.Hops))
	for i, h := range l.Hops {
		out[i] = h.String()
	}
	return out
}
