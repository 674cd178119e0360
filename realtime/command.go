package realtime

import (
	"sort"
)

// command is a posted function with sequencing metadata for deterministic
// ordering.
type command struct {
	fn          func() error
	sequenceNum uint64
	priority    int
}

// Post queues fn to run on the tick goroutine at the start of the next tick,
// before the driver updates. It is safe for concurrent use.
func (rt *Runtime) Post(fn func() error) error {
	return rt.PostWithPriority(fn, 0)
}

// PostWithPriority queues fn with priority. Higher priorities run first; equal
// priorities run in submission order.
func (rt *Runtime) PostWithPriority(fn func() error, priority int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.batch) >= cap(rt.batch) {
		return ErrQueueFull
	}

	rt.batch = append(rt.batch, command{
		fn:          fn,
		sequenceNum: rt.sequenceNum,
		priority:    priority,
	})
	rt.sequenceNum++

	return nil
}

// sortCommands orders commands deterministically
func sortCommands(commands []command) {
	// Stable sort preserves insertion order for equal priorities
	sort.SliceStable(commands, func(i, j int) bool {
		// Primary: Higher priority first
		if commands[i].priority != commands[j].priority {
			return commands[i].priority > commands[j].priority
		}

		// Secondary: Earlier sequence number first (FIFO)
		return commands[i].sequenceNum < commands[j].sequenceNum
	})
}
