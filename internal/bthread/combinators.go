package bthread

import (
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// Forever returns a body that declares stmt at every synchronization point
// and never finishes.
func Forever(stmt Statement) Body {
	var loop Resume
	loop = func(c *Context, _ event.Event) Point {
		return Sync(stmt, nil, loop)
	}
	return func(c *Context) Point {
		return Sync(stmt, nil, loop)
	}
}

// Sequence returns a body that declares each statement once, in order, then
// finishes. The locals record the position in the sequence.
func Sequence(stmts ...Statement) Body {
	var at func(i int) Point
	at = func(i int) Point {
		if i >= len(stmts) {
			return Done()
		}
		return Sync(stmts[i], ir.IRInt(i), func(c *Context, _ event.Event) Point {
			return at(i + 1)
		})
	}
	return func(c *Context) Point {
		return at(0)
	}
}

// Counter returns a body that waits for events in on forever, counting
// them, and calls check after every occurrence with the new count. check may
// fail the thread through c.
func Counter(on event.Set, check func(c *Context, count int64)) Body {
	var at func(n int64) Point
	at = func(n int64) Point {
		return Sync(WaitFor(on), ir.IRInt(n), func(c *Context, _ event.Event) Point {
			next := n + 1
			if check != nil {
				check(c, next)
			}
			return at(next)
		})
	}
	return func(c *Context) Point {
		return at(0)
	}
}
