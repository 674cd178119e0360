package builder_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/builder"
	"github.com/comalice/hfsm/testutil"
)

const layout = `
id: agent
children:
  - id: idle
    start: eat
    children:
      - id: rest
        kind: timed
        params: {after: 20ms, next: eat}
      - id: eat
        kind: timed
        params: {after: 20ms, next: rest}
        actions:
          - kind: counter
  - id: move
    kind: timed
    params: {after: "30ms", next: idle}
`

type timedParams struct {
	After time.Duration `mapstructure:"after"`
	Next  string        `mapstructure:"next"`
}

// newRegistry registers a "timed" leaf that moves to params.next after
// params.after, and a "counter" action that journals its updates.
func newRegistry(t *testing.T, j *testutil.Journal) *builder.Registry {
	t.Helper()
	reg := builder.NewRegistry()
	require.NoError(t, reg.Register("timed", func(id string, params builder.Params) (hfsm.State[string], error) {
		var p timedParams
		if err := params.Decode(&p); err != nil {
			return nil, err
		}
		s := testutil.NewState(id, j)
		s.OnUpdate = func(s *testutil.RecordingState[string], dt time.Duration) error {
			if s.Elapsed >= p.After {
				return s.ChangeState(p.Next)
			}
			return nil
		}
		return s, nil
	}))
	require.NoError(t, reg.RegisterAction("counter", func(params builder.Params) (hfsm.Action[string], error) {
		return testutil.NewAction[string]("counter", j), nil
	}))
	return reg
}

func TestParseAndBuild(t *testing.T) {
	j := &testutil.Journal{}
	root, err := builder.Parse([]byte(layout))
	require.NoError(t, err)

	m, err := builder.Build(root, newRegistry(t, j))
	require.NoError(t, err)
	assert.Equal(t, "agent", m.Name())
	assert.Equal(t, []string{"idle", "move"}, m.States())

	idleState, ok := m.State("idle")
	require.True(t, ok)
	idle, ok := idleState.(*hfsm.Machine[string])
	require.True(t, ok)
	assert.Equal(t, "agent/idle", idle.Name())
	assert.Equal(t, "eat", idle.Start())

	require.NoError(t, m.Initialize())
	assert.Equal(t, []string{"idle", "eat"}, m.ActivePath())

	require.NoError(t, m.Update(10*time.Millisecond))
	assert.Equal(t, []string{"idle", "eat"}, m.ActivePath())
	require.NoError(t, m.Update(10*time.Millisecond))
	assert.Equal(t, []string{"idle", "rest"}, m.ActivePath())

	// The action is skipped on the tick its state requested a transition.
	assert.Equal(t, 1, j.Count("counter", "update"))
	assert.Equal(t, 1, j.Count("counter", "exit"))
}

func TestCompositeHelpers(t *testing.T) {
	j := &testutil.Journal{}
	root := builder.Composite("agent",
		builder.Composite("idle",
			builder.Leaf("rest", "timed", builder.WithParams(builder.Params{"after": "10ms", "next": "eat"})),
			builder.Leaf("eat", "timed",
				builder.WithParams(builder.Params{"after": "10ms", "next": "rest"}),
				builder.WithAction("counter", nil),
			),
		),
		builder.Leaf("move", "timed", builder.WithParams(builder.Params{"after": "10ms", "next": "idle"})),
	).StartAt("move")

	m, err := builder.Build(root, newRegistry(t, j))
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	assert.Equal(t, []string{"move"}, m.ActivePath())

	require.NoError(t, m.Update(10*time.Millisecond))
	assert.Equal(t, []string{"idle", "rest"}, m.ActivePath())
}

func TestValidateRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name string
		node builder.Node
	}{
		{"missing id", builder.Composite("root", builder.Leaf("", "timed"))},
		{"leaf without kind", builder.Composite("root", builder.Node{ID: "a"})},
		{"duplicate child", builder.Composite("root", builder.Leaf("a", "timed"), builder.Leaf("a", "timed"))},
		{"unknown start", builder.Composite("root", builder.Leaf("a", "timed")).StartAt("b")},
		{"machine with kind", builder.Node{ID: "root", Kind: "timed", Children: []builder.Node{builder.Leaf("a", "timed")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.node.Validate(), builder.ErrInvalidLayout)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	j := &testutil.Journal{}
	reg := newRegistry(t, j)

	_, err := builder.Build(builder.Leaf("solo", "timed"), reg)
	assert.ErrorIs(t, err, builder.ErrInvalidLayout)

	_, err = builder.Build(builder.Composite("root", builder.Leaf("a", "missing")), reg)
	assert.ErrorIs(t, err, builder.ErrUnknownKind)

	_, err = builder.Build(builder.Composite("root", builder.Leaf("a", "timed", builder.WithAction("missing", nil))), reg)
	assert.ErrorIs(t, err, builder.ErrUnknownKind)

	_, err = builder.Build(builder.Composite("root",
		builder.Leaf("a", "timed", builder.WithParams(builder.Params{"after": "soon"}))), reg)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := newRegistry(t, &testutil.Journal{})
	assert.Equal(t, []string{"timed"}, reg.Kinds())

	err := reg.Register("timed", nil)
	assert.ErrorIs(t, err, builder.ErrDuplicateKind)
	err = reg.RegisterAction("counter", nil)
	assert.ErrorIs(t, err, builder.ErrDuplicateKind)
}

func TestParamsDecode(t *testing.T) {
	var p struct {
		After time.Duration `mapstructure:"after"`
		Count int           `mapstructure:"count"`
	}
	require.NoError(t, builder.Params{"after": "1.5s", "count": "3"}.Decode(&p))
	assert.Equal(t, 1500*time.Millisecond, p.After)
	assert.Equal(t, 3, p.Count)

	assert.Error(t, builder.Params{"unexpected": 1}.Decode(&p))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(layout), 0o600))

	root, err := builder.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "agent", root.ID)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "counter", root.Children[0].Children[1].Actions[0].Kind)

	_, err = builder.Parse([]byte("id: [\n"))
	assert.Error(t, err)
}
