// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loop

import (
	"container/heap"
	"fmt"
	"sync/atomic"
	"time"
)

type Runner interface {
	RunTask(t *Task)
}

type RunnerFunc func(t *Task)

func (f RunnerFunc) RunTask(t *Task) { f(t) }

type task_state uint8

const (
	task_idle task_state = iota
	task_scheduled
	task_running
	task_sleeping
	task_removed
)

var task_state_strings = [...]string{
	task_idle:      "idle",
	task_scheduled: "scheduled",
	task_running:   "running",
	task_sleeping:  "sleeping",
	task_removed:   "removed",
}

func (s task_state) String() string { return task_state_strings[s] }

type Task struct {
	name string
	r    Runner
	l    *Loop

	tickets uint
	// Adaptive tickets move between base and max.
	base, max uint
	stride    uint64
	pass      uint64
	seq       uint64

	// Indices in ready and timer heaps or -1.
	index, timerIndex int
	wakeAt            time.Time

	state task_state
	rerun bool
	wake  uint32

	runs uint64
	work uint

	// Number of packets queued for this task.  Checked on removal.
	Pending func() uint
}

func (t *Task) Name() string     { return t.name }
func (t *Task) Loop() *Loop      { return t.l }
func (t *Task) Tickets() uint    { return t.tickets }
func (t *Task) MaxTickets() uint { return t.max }
func (t *Task) Pass() uint64     { return t.pass }
func (t *Task) Runs() uint64     { return t.runs }
func (t *Task) Work() uint       { return t.work }
func (t *Task) IsScheduled() bool {
	return t.state == task_scheduled || (t.state == task_running && t.rerun)
}
func (t *Task) IsSleeping() bool { return t.state == task_sleeping }
func (t *Task) IsRemoved() bool  { return t.state == task_removed }

func (t *Task) String() string {
	return fmt.Sprintf("%-24s %-9s %6d tickets %10d runs %4d work", t.name, t.state, t.tickets, t.runs, t.work)
}

func (t *Task) setTickets(n uint) {
	if n < 1 {
		n = 1
	}
	if n > MaxTickets {
		n = MaxTickets
	}
	t.tickets = n
	t.stride = Stride1 / uint64(n)
}

// SetTickets sets both the current and the base ticket count.
func (t *Task) SetTickets(n uint) {
	t.setTickets(n)
	t.base = t.tickets
	if t.max < t.base {
		t.max = t.base
	}
}

// SetMaxTickets bounds adaptive inflation.
func (t *Task) SetMaxTickets(n uint) {
	if n > MaxTickets {
		n = MaxTickets
	}
	if n < t.base {
		n = t.base
	}
	t.max = n
	if t.tickets > n {
		t.setTickets(n)
	}
}

// AdjustTickets inflates tickets toward the maximum when the last run did
// a full burst of work and deflates toward the base otherwise.
func (t *Task) AdjustTickets(work, burst uint) {
	t.work = work
	tix := t.tickets
	adj := tix / 4
	if adj < 2 {
		adj = 2
	}
	if work >= burst && burst > 0 {
		tix += adj
		if tix > t.max {
			tix = t.max
		}
	} else if tix > t.base {
		if tix-t.base < adj {
			tix = t.base
		} else {
			tix -= adj
		}
	}
	if tix != t.tickets {
		t.setTickets(tix)
	}
}

// Schedule makes t ready to run.
func (t *Task) Schedule() {
	l := t.l
	switch t.state {
	case task_idle:
		l.push(t)
	case task_sleeping:
		l.unready(t)
		l.push(t)
	case task_running:
		t.rerun = true
	}
}

// Reschedule asks for another turn after the current one.  Called at the end
// of a task body.
func (t *Task) Reschedule() { t.Schedule() }

// Unschedule removes t from the ready queue without removing it from the
// loop.
func (t *Task) Unschedule() {
	switch t.state {
	case task_scheduled, task_sleeping:
		t.l.unready(t)
		t.state = task_idle
	case task_running:
		t.rerun = false
	}
}

// ScheduleAfter puts t to sleep for d.
func (t *Task) ScheduleAfter(d time.Duration) {
	if t.state == task_removed {
		return
	}
	l := t.l
	l.unready(t)
	t.rerun = false
	t.state = task_sleeping
	t.wakeAt = l.now().Add(d)
	heap.Push(&l.timers, t)
}

// Wake schedules an idle or sleeping task.  Safe to call from any goroutine;
// never blocks.
func (t *Task) Wake() {
	atomic.StoreUint32(&t.wake, 1)
	t.l.signal()
}

func (t *Task) takeWake() bool { return atomic.SwapUint32(&t.wake, 0) != 0 }
