// Package admin carries administrative mutations from the transport to the
// control loop. The loop is the only goroutine that touches the controller;
// handlers submit a Request and wait for the loop to apply it between cycles.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// ErrBusy is returned when the queue is full.
var ErrBusy = errors.New("admin: request queue full")

// Op is an administrative intent.
type Op string

const (
	OpToggleManual    Op = "TOGGLE_MANUAL"
	OpToggleSchedule  Op = "TOGGLE_SCHEDULE"
	OpResetOverride   Op = "RESET_OVERRIDE"
	OpReplaceSchedule Op = "REPLACE_SCHEDULE"
)

// Request states. A request leaves pending exactly once: either the loop
// takes it or the submitter abandons it.
const (
	pending int32 = iota
	taken
	abandoned
)

// Request is one mutation waiting to be applied.
type Request struct {
	ID      uuid.UUID
	Op      Op
	Pump    logic.PumpID      // unused by OpResetOverride
	Windows []logic.RawWindow // OpReplaceSchedule only

	state atomic.Int32
	reply chan error
}

// NewRequest creates a Request with a fresh ID.
func NewRequest(op Op, pump logic.PumpID, windows []logic.RawWindow) *Request {
	return &Request{
		ID:      uuid.New(),
		Op:      op,
		Pump:    pump,
		Windows: windows,
		reply:   make(chan error, 1),
	}
}

func (r *Request) String() string {
	if r.Op == OpResetOverride {
		return fmt.Sprintf("%s id=%s", r.Op, r.ID)
	}
	return fmt.Sprintf("%s pump=%s id=%s", r.Op, r.Pump, r.ID)
}

// Apply performs the request against c and returns the result.
func Apply(c *logic.Controller, r *Request) error {
	switch r.Op {
	case OpToggleManual:
		return c.ToggleManual(r.Pump)
	case OpToggleSchedule:
		return c.ToggleSchedule(r.Pump)
	case OpResetOverride:
		c.ResetOverride()
		return nil
	case OpReplaceSchedule:
		return c.ReplaceSchedule(r.Pump, r.Windows)
	default:
		return fmt.Errorf("admin: unknown op %q", r.Op)
	}
}

// Queue is a bounded channel of pending requests.
type Queue struct {
	ch chan *Request
}

// NewQueue creates a Queue holding at most size pending requests.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan *Request, size)}
}

// Submit enqueues r and waits for the loop to apply it. It returns the
// result of Apply, ErrBusy if the queue is full, or ctx.Err() if the context
// ends before the loop takes the request. A request that returned ctx.Err()
// is never applied.
func (q *Queue) Submit(ctx context.Context, r *Request) error {
	select {
	case q.ch <- r:
	default:
		return ErrBusy
	}

	select {
	case err := <-r.reply:
		return err
	case <-ctx.Done():
		if r.state.CompareAndSwap(pending, abandoned) {
			return ctx.Err()
		}
		// The loop took it first; Apply is already running.
		return <-r.reply
	}
}

// Poll returns the oldest pending request without blocking.
func (q *Queue) Poll() (*Request, bool) {
	select {
	case r := <-q.ch:
		return r, true
	default:
		return nil, false
	}
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Service applies at most one pending request to c and replies to its
// submitter. Requests whose submitter gave up are dropped without being
// applied. It returns the applied request and its result, or a nil request
// if nothing live was pending.
func (q *Queue) Service(c *logic.Controller) (*Request, error) {
	for {
		r, ok := q.Poll()
		if !ok {
			return nil, nil
		}
		if !r.state.CompareAndSwap(pending, taken) {
			log.Printf("admin: dropped abandoned %s", r)
			continue
		}
		err := Apply(c, r)
		r.reply <- err
		return r, err
	}
}
