// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"
	"time"

	"github.com/comalice/hfsm"
)

// Tick is the fixed step used by every benchmark.
const Tick = 16 * time.Millisecond

// None marks a Chainer without a successor.
const None = -1

// Cycler is a leaf that requests Next on every update.
type Cycler struct {
	hfsm.Leaf[int]
	Next int
}

// NewCycler creates a Cycler.
func NewCycler(id, next int) *Cycler {
	return &Cycler{Leaf: hfsm.NewLeaf(id), Next: next}
}

func (c *Cycler) Update(time.Duration) error {
	return c.ChangeState(c.Next)
}

// Chainer is a leaf that requests Next as soon as it is entered, so a chain of
// n Chainers settles in n-1 hops within one resolution.
type Chainer struct {
	hfsm.Leaf[int]
	Next int
}

func (c *Chainer) Enter() error {
	if c.Next == None {
		return nil
	}
	return c.ChangeState(c.Next)
}

// BuildFlat creates a machine with n Cyclers; every update moves to the next
// one. The machine is not initialized.
func BuildFlat(n int, opts ...hfsm.Option) *hfsm.Machine[int] {
	if n < 1 {
		n = 1
	}
	m := hfsm.NewMachine(0, append([]hfsm.Option{hfsm.WithName(fmt.Sprintf("flat_%d", n))}, opts...)...)
	for i := 0; i < n; i++ {
		must(m.AddState(NewCycler(i, (i+1)%n)))
	}
	return m
}

// GenFlat is BuildFlat followed by Initialize.
func GenFlat(n int, opts ...hfsm.Option) *hfsm.Machine[int] {
	m := BuildFlat(n, opts...)
	must(m.Initialize())
	return m
}

// GenDeep creates an initialized tree of depth nested machines. The innermost
// machine flips between two Cyclers on every update.
func GenDeep(depth int, opts ...hfsm.Option) *hfsm.Machine[int] {
	if depth < 1 {
		depth = 1
	}
	inner := hfsm.NewMachine(0, opts...)
	must(inner.AddState(NewCycler(0, 1), NewCycler(1, 0)))
	for i := 1; i < depth; i++ {
		outer := hfsm.NewMachine(0, opts...)
		must(outer.AddState(inner))
		inner = outer
	}
	must(inner.Initialize())
	return inner
}

// GenChain creates an initialized machine whose start state is a Cycler that
// requests state 1; states 1..n are Chainers leading to n and state n leads
// back to 0. One update therefore resolves n+1 hops.
func GenChain(n int, opts ...hfsm.Option) *hfsm.Machine[int] {
	if n < 1 {
		n = 1
	}
	opts = append([]hfsm.Option{hfsm.WithMaxHops(n + 2)}, opts...)
	m := hfsm.NewMachine(0, opts...)
	must(m.AddState(NewCycler(0, 1)))
	for i := 1; i <= n; i++ {
		next := i + 1
		if i == n {
			next = 0
		}
		must(m.AddState(&Chainer{Leaf: hfsm.NewLeaf(i), Next: next}))
	}
	must(m.Initialize())
	return m
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
