// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loop

// Ready tasks ordered by pass; equal passes run in the order they became
// ready.
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].pass != q[j].pass {
		return q[i].pass < q[j].pass
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	t := old[len(old)-1]
	old[len(old)-1] = nil
	t.index = -1
	*q = old[:len(old)-1]
	return t
}

// Sleeping tasks ordered by wake time.
type timerQueue []*Task

func (q timerQueue) Len() int           { return len(q) }
func (q timerQueue) Less(i, j int) bool { return q[i].wakeAt.Before(q[j].wakeAt) }
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].timerIndex = i
	q[j].timerIndex = j
}

func (q *timerQueue) Push(x interface{}) {
	t := x.(*Task)
	t.timerIndex = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	t := old[len(old)-1]
	old[len(old)-1] = nil
	t.timerIndex = -1
	*q = old[:len(old)-1]
	return t
}
