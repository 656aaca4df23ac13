// Package bthread models behavioral threads as resumable, side-effect-free
// state machines.
//
// A b-thread runs until it reaches a synchronization point, where it yields
// a Statement (request / wait-for / block) together with a continuation.
// The engine later resumes it with exactly one event; the continuation runs
// until the next synchronization point or until the thread finishes.
//
// # Continuations
//
// Continuations are plain Go closures in continuation-passing style:
//
//	func ticker(c *bthread.Context) bthread.Point {
//	    return bthread.Sync(bthread.Request(event.New("tick")), nil,
//	        func(c *bthread.Context, e event.Event) bthread.Point {
//	            return ticker(c)
//	        })
//	}
//
// Resuming a Snapshot is a pure function of (captured values, event). A
// continuation must never mutate variables it captured; it must pass changed
// values forward to the next Sync instead, and expose them as that Sync's
// locals. The verifier resumes the same snapshot once per outgoing edge, so a
// continuation that mutates captured state makes verification unsound. That
// is the escape hatch: the package cannot enforce it, the caller owns it.
//
// # Locals
//
// The locals value passed to Sync is the thread's state identity. Two
// snapshots are equal when their names, statements and locals are equal;
// the continuation itself is behavior and takes no part in equality.
//
// # Effects
//
// Assertions, spawning and killing threads are requested through Context.
// They are returned to the engine as data (Outcome) and applied by it, so
// thread code never touches shared state directly.
package bthread
