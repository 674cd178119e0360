package hfsm_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/testutil"
)

// pingPong returns two states that request each other on Enter.
func pingPong(j *testutil.Journal) (*testutil.RecordingState[string], *testutil.RecordingState[string]) {
	ping := testutil.NewState("ping", j)
	pong := testutil.NewState("pong", j)
	ping.OnEnter = func(s *testutil.RecordingState[string]) error { return s.ChangeState("pong") }
	pong.OnEnter = func(s *testutil.RecordingState[string]) error { return s.ChangeState("ping") }
	return ping, pong
}

func TestTransitionLoopFaultsMachine(t *testing.T) {
	j := &testutil.Journal{}
	ping, pong := pingPong(j)

	reg := prometheus.NewRegistry()
	metrics := hfsm.NewMetrics(reg)
	m := hfsm.NewMachine("root", hfsm.WithMaxHops(4), hfsm.WithMetrics(metrics))
	log := &testutil.TransitionLog[string]{}
	log.Attach(m)
	require.NoError(t, m.AddState(ping, pong))

	err := m.Initialize()
	require.Error(t, err)
	assert.ErrorIs(t, err, hfsm.ErrTransitionLoop)
	assert.True(t, hfsm.IsFatal(err))
	assert.Len(t, log.Hops, 4)

	assert.ErrorIs(t, m.Err(), hfsm.ErrTransitionLoop)
	assert.False(t, m.StateChanged())
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Errors().WithLabelValues("root", "transition_loop")))

	updates := j.Count("ping", "update") + j.Count("pong", "update")
	assert.ErrorIs(t, m.Update(tick), hfsm.ErrTransitionLoop)
	assert.Equal(t, updates, j.Count("ping", "update")+j.Count("pong", "update"))
	assert.Len(t, log.Hops, 4)
}

func TestTransitionLoopPropagatesToParent(t *testing.T) {
	j := &testutil.Journal{}
	ping, pong := pingPong(j)

	inner := hfsm.NewMachine("inner", hfsm.WithMaxHops(3))
	require.NoError(t, inner.AddState(ping, pong))
	root := hfsm.NewMachine("root")
	require.NoError(t, root.AddState(inner, testutil.NewState("other", j)))

	err := root.Initialize()
	assert.ErrorIs(t, err, hfsm.ErrTransitionLoop)
	assert.ErrorIs(t, inner.Err(), hfsm.ErrTransitionLoop)
	assert.ErrorIs(t, root.Err(), hfsm.ErrTransitionLoop)
	assert.ErrorIs(t, root.Update(tick), hfsm.ErrTransitionLoop)
}

func TestLongChainWithinHopBudgetSettles(t *testing.T) {
	j := &testutil.Journal{}
	ids := []string{"s0", "s1", "s2", "s3", "s4", "s5"}

	m := hfsm.NewMachine("root", hfsm.WithMaxHops(len(ids)-1))
	for i, id := range ids {
		s := testutil.NewState(id, j)
		if i+1 < len(ids) {
			next := ids[i+1]
			s.OnEnter = func(s *testutil.RecordingState[string]) error { return s.ChangeState(next) }
		}
		require.NoError(t, m.AddState(s))
	}

	require.NoError(t, m.Initialize())
	assert.Equal(t, "s5", m.Current())
	assert.NoError(t, m.Err())
}

func TestSubscriberRequestCountsAsHop(t *testing.T) {
	j := &testutil.Journal{}
	a := testutil.NewState("a", j)
	a.OnUpdate = func(s *testutil.RecordingState[string], dt time.Duration) error {
		return s.ChangeState("b")
	}

	m := hfsm.NewMachine("root", hfsm.WithMaxHops(3))
	log := &testutil.TransitionLog[string]{}
	log.Attach(m)
	m.OnTransition(func(prev, next string) { m.ChangeState(prev) })
	require.NoError(t, m.AddState(a, testutil.NewState("b", j)))
	require.NoError(t, m.Initialize())

	err := m.Update(tick)
	assert.ErrorIs(t, err, hfsm.ErrTransitionLoop)
	assert.True(t, hfsm.IsFatal(err))
	assert.ErrorIs(t, m.Err(), hfsm.ErrTransitionLoop)
	assert.Equal(t, []string{"root:a->b", "root:b->a", "root:a->b"}, log.Strings())
	assert.False(t, m.StateChanged())
}

func TestSubscriberRedirectSettles(t *testing.T) {
	j := &testutil.Journal{}
	a := testutil.NewState("a", j)
	a.OnUpdate = func(s *testutil.RecordingState[string], dt time.Duration) error {
		return s.ChangeState("b")
	}

	m := hfsm.NewMachine("root", hfsm.WithMaxHops(3))
	log := &testutil.TransitionLog[string]{}
	log.Attach(m)
	m.OnTransition(func(prev, next string) {
		if next == "b" {
			m.ChangeState("c")
		}
	})
	require.NoError(t, m.AddState(a, testutil.NewState("b", j), testutil.NewState("c", j)))
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Update(tick))

	assert.Equal(t, "c", m.Current())
	assert.Equal(t, []string{"root:a->b", "root:b->c"}, log.Strings())
	assert.Equal(t, 1, j.Count("b", "exit"))
	assert.NoError(t, m.Err())
}

func TestMetricsCountTransitionsAndErrors(t *testing.T) {
	j := &testutil.Journal{}
	a := testutil.NewState("a", j)
	a.OnUpdate = func(s *testutil.RecordingState[string], dt time.Duration) error {
		return s.ChangeState("b")
	}
	b := testutil.NewState("b", j)
	b.OnUpdate = func(s *testutil.RecordingState[string], dt time.Duration) error {
		return s.ChangeState("nowhere")
	}

	reg := prometheus.NewRegistry()
	metrics := hfsm.NewMetrics(reg)
	m := hfsm.NewMachine("root", hfsm.WithMetrics(metrics))
	require.NoError(t, m.AddState(a, b))
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Update(tick))
	require.Error(t, m.Update(tick))

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Transitions().WithLabelValues("root", "a", "b")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Errors().WithLabelValues("root", "unknown_state_id")))

	n, err := promtest.GatherAndCount(reg, "hfsm_resolution_hops")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	j := &testutil.Journal{}
	a := testutil.NewState("a", j)
	a.OnUpdate = func(s *testutil.RecordingState[string], dt time.Duration) error {
		return s.ChangeState("b")
	}

	m := hfsm.NewMachine("root", hfsm.WithLogger(zap.New(core)))
	require.NoError(t, m.AddState(a, testutil.NewState("b", j)))
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Update(tick))
	assert.Error(t, m.AddState(nil))

	assert.Equal(t, 1, logs.FilterMessage("transition").Len())
	assert.Equal(t, 2, logs.FilterMessage("state added").Len())

	errs := logs.FilterMessage("state machine error").All()
	require.Len(t, errs, 1)
	assert.Equal(t, "root", errs[0].LoggerName)
	assert.Equal(t, zapcore.ErrorLevel, errs[0].Level)
}
