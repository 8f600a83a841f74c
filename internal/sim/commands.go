package sim

import (
	"context"
)

// CommandFunc changes the game between two ticks.
type CommandFunc func(g *Game) error

type command struct {
	fn   CommandFunc
	done chan error
}

// commandQueue carries changes from other goroutines (the dashboard, the
// observer) onto the tick goroutine, which applies them before simulating.
type commandQueue struct {
	ch chan command
}

func newCommandQueue(size int) *commandQueue {
	return &commandQueue{ch: make(chan command, max(size, 1))}
}

// submit queues fn and waits for the tick that applies it. It respects
// context cancellation while queueing and while waiting.
func (q *commandQueue) submit(ctx context.Context, fn CommandFunc) error {
	done := make(chan error, 1)
	select {
	case q.ch <- command{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain applies every queued command without blocking.
func (q *commandQueue) drain(g *Game) int {
	n := 0
	for {
		select {
		case c := <-q.ch:
			c.done <- c.fn(g)
			n++
		default:
			return n
		}
	}
}
