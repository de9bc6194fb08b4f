// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loop is a cooperative, single threaded task scheduler.
//
// Exactly one task body runs at a time.  Selection is stride scheduling: the
// ready task with the smallest pass runs next and its pass then advances by
// Stride1/tickets, so over time each task runs in proportion to its tickets.
// A task body does a bounded amount of work and calls Reschedule if it wants
// another turn; nothing is ever preempted.
//
// Wake is the only method that may be called from outside the loop
// goroutine.
package loop

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/platinasystems/vgraph/internal/errors"
)

const (
	Stride1        = 1 << 16
	DefaultTickets = 1 << 10
	MaxTickets     = 1 << 15
)

var ErrTaskBacklog = errors.New(errors.KindConfig, "remove task with packets pending")

type Config struct {
	// Run returns after this long when positive.
	QuitAfterDuration time.Duration
	// Time source; time.Now when nil.
	Now func() time.Time
}

type Loop struct {
	tasks  []*Task
	ready  taskQueue
	timers timerQueue

	// Pass of the most recently selected task; tasks entering the ready
	// queue start here.
	pass uint64
	seq  uint64

	current *Task
	quit    bool
	wakeup  chan struct{}

	Config
}

func New() *Loop {
	return &Loop{wakeup: make(chan struct{}, 1)}
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Time is the loop's notion of now.
func (l *Loop) Time() time.Time { return l.now() }

// NewTask creates a task bound to r.  The task does not run until it is
// scheduled.
func (l *Loop) NewTask(name string, r Runner) *Task {
	t := &Task{
		name:       name,
		r:          r,
		l:          l,
		index:      -1,
		timerIndex: -1,
	}
	t.setTickets(DefaultTickets)
	t.base = DefaultTickets
	t.max = MaxTickets
	l.tasks = append(l.tasks, t)
	return t
}

func (l *Loop) Tasks() []*Task { return l.tasks }
func (l *Loop) Current() *Task { return l.current }

func (l *Loop) push(t *Task) {
	if t.pass < l.pass {
		t.pass = l.pass
	}
	l.seq++
	t.seq = l.seq
	t.state = task_scheduled
	heap.Push(&l.ready, t)
}

func (l *Loop) unready(t *Task) {
	if t.index >= 0 {
		heap.Remove(&l.ready, t.index)
	}
	if t.timerIndex >= 0 {
		heap.Remove(&l.timers, t.timerIndex)
	}
}

// RemoveTask takes t out of the loop for good.  A task with packets still
// pending for it may not be removed.
func (l *Loop) RemoveTask(t *Task) (err error) {
	if t.l != l || t.state == task_removed {
		return
	}
	if t.Pending != nil {
		if n := t.Pending(); n > 0 {
			err = errors.Wrapf(ErrTaskBacklog, errors.KindConfig, "%s: %d packets", t.name, n)
			return
		}
	}
	l.unready(t)
	t.state = task_removed
	for i := range l.tasks {
		if l.tasks[i] == t {
			copy(l.tasks[i:], l.tasks[i+1:])
			l.tasks[len(l.tasks)-1] = nil
			l.tasks = l.tasks[:len(l.tasks)-1]
			break
		}
	}
	return
}

// Pick up wakeups posted from other goroutines.
func (l *Loop) doWakeups() {
	for _, t := range l.tasks {
		if !t.takeWake() {
			continue
		}
		switch t.state {
		case task_idle:
			l.push(t)
		case task_sleeping:
			l.unready(t)
			l.push(t)
		}
	}
}

func (l *Loop) doTimers() {
	if len(l.timers) == 0 {
		return
	}
	now := l.now()
	for len(l.timers) > 0 && !l.timers[0].wakeAt.After(now) {
		t := heap.Pop(&l.timers).(*Task)
		l.push(t)
	}
}

func (l *Loop) pollWakeups() {
	select {
	case <-l.wakeup:
		l.doWakeups()
	default:
	}
}

// RunOnce runs the ready task with the smallest pass.  Returns false when no
// task was ready.
func (l *Loop) RunOnce() (ran bool) {
	l.pollWakeups()
	l.doTimers()
	if len(l.ready) == 0 {
		return
	}
	t := heap.Pop(&l.ready).(*Task)
	l.pass = t.pass
	t.state = task_running
	t.rerun = false
	l.current = t
	t.r.RunTask(t)
	l.current = nil
	t.runs++
	t.pass += t.stride
	if t.state == task_running {
		if t.rerun {
			l.push(t)
		} else {
			t.state = task_idle
		}
	}
	ran = true
	return
}

// Quit makes Run return after the current task finishes.
func (l *Loop) Quit() { l.quit = true }

// Run executes tasks until ctx is done or Quit is called.  When no task is
// ready it sleeps until the next timer or wakeup.
func (l *Loop) Run(ctx context.Context) (err error) {
	l.quit = false
	if l.QuitAfterDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.QuitAfterDuration)
		defer cancel()
	}
	for !l.quit {
		if err = ctx.Err(); err != nil {
			if err == context.DeadlineExceeded && l.QuitAfterDuration > 0 {
				err = nil
			}
			return
		}
		if l.RunOnce() {
			continue
		}
		if err = l.idle(ctx); err != nil {
			return
		}
	}
	return
}

func (l *Loop) idle(ctx context.Context) (err error) {
	var expire <-chan time.Time
	if len(l.timers) > 0 {
		tm := time.NewTimer(l.timers[0].wakeAt.Sub(l.now()))
		defer tm.Stop()
		expire = tm.C
	}
	select {
	case <-ctx.Done():
	case <-l.wakeup:
		l.doWakeups()
	case <-expire:
	}
	return
}

func (l *Loop) signal() {
	select {
	case l.wakeup <- struct{}{}:
	default:
	}
}

// WriteTasks writes one line per task: name, state, tickets, runs and
// last reported work.
func (l *Loop) WriteTasks(w io.Writer) {
	ts := make([]*Task, len(l.tasks))
	copy(ts, l.tasks)
	sort.Slice(ts, func(i, j int) bool { return ts[i].name < ts[j].name })
	for _, t := range ts {
		fmt.Fprintln(w, t)
	}
}
