// Package realtime provides a tick-based deterministic host for hfsm machine
// trees.
//
// A Runtime owns one Driver (usually the root *hfsm.Machine) and confines it
// to a single goroutine:
//   - Update is called at fixed tick boundaries with dt equal to the tick rate
//   - Other goroutines submit work with Post; commands run on the tick
//     goroutine at the start of the next tick
//   - Command order is deterministic via priority and sequence numbers
//   - A fatal driver error (hfsm.ErrTransitionLoop) or a panic halts the loop
//
// # Example Usage
//
//	root := hfsm.NewMachine("root", hfsm.WithLogger(logger))
//	// ... AddState ...
//	rt := realtime.NewRuntime(root, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//		Logger:   logger,
//	})
//	if err := rt.Start(ctx); err != nil {
//		return err
//	}
//	defer rt.Stop()
//	rt.Post(func() error {
//		root.ChangeState("attack")
//		return nil
//	})
//
// # Manual stepping
//
// Step runs one tick synchronously with an arbitrary dt and never starts a
// goroutine. Tests and offline simulations use it instead of Start to get
// reproducible runs independent of wall-clock timing.
//
// # Command Ordering Guarantees
//
// Commands are ordered deterministically using:
//  1. Priority (higher priority processed first)
//  2. Sequence number (FIFO for same priority)
//  3. Stable sorting (preserves relative order)
//
// This ensures that given the same sequence of Post calls, the machine tree
// always executes the same way, regardless of goroutine scheduling.
package realtime
