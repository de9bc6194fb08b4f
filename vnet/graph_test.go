// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
)

type testSource struct {
	Node
}

func newTestSource() Noder {
	x := &testSource{}
	x.Ports.Out = []PortMode{Push}
	return x
}

type testSink struct {
	Node
	got []*Packet
}

func newTestSink() Noder {
	x := &testSink{}
	x.Ports.In = []PortMode{Agnostic}
	x.Errors = []string{"runt"}
	return x
}

func (x *testSink) Push(port int, p *Packet) {
	if p.Len() < 4 {
		x.Drop(p, 0)
		return
	}
	x.got = append(x.got, p)
}

type testQueue struct {
	Node
	q []*Packet
}

func newTestQueue() Noder {
	x := &testQueue{}
	x.Ports = Ports{In: []PortMode{Push}, Out: []PortMode{Pull}}
	return x
}

func (x *testQueue) Push(port int, p *Packet) { x.q = append(x.q, p) }
func (x *testQueue) Pull(port int) (p *Packet) {
	if len(x.q) > 0 {
		p, x.q = x.q[0], x.q[1:]
	}
	return
}

type testPuller struct {
	Node
	task   *loop.Task
	notask bool
	got    []*Packet
}

func newTestPuller() Noder {
	x := &testPuller{}
	x.Ports.In = []PortMode{Pull}
	return x
}

func (x *testPuller) Init(g *Graph) error {
	if !x.notask {
		x.task = g.Loop().NewTask(x.Name(), x)
	}
	return nil
}

func (x *testPuller) Tasks() []*loop.Task {
	if x.task == nil {
		return nil
	}
	return []*loop.Task{x.task}
}

func (x *testPuller) RunTask(t *loop.Task) {
	if p := x.In(0).Pull(); p != nil {
		x.got = append(x.got, p)
		t.Reschedule()
	}
}

type testIniter struct {
	Node
	err   error
	trace *[]string
	size  uint
}

func (x *testIniter) Configure(o *Options) error {
	x.size = o.Uint("size", 4)
	return nil
}

func (x *testIniter) Init(g *Graph) error {
	*x.trace = append(*x.trace, "init "+x.Name())
	return x.err
}

func (x *testIniter) Exit(g *Graph) {
	*x.trace = append(*x.trace, "exit "+x.Name())
}

func (x *testIniter) Cast(name string) bool {
	return name == "Initer" || x.Node.Cast(name)
}

func init() {
	RegisterClass("TestSource", newTestSource)
	RegisterClass("TestSink", newTestSink)
	RegisterClass("TestQueue", newTestQueue)
	RegisterClass("TestPuller", newTestPuller)
	RegisterClass("TestIniter", func() Noder { return &testIniter{trace: new([]string)} })
}

func TestConnectModes(t *testing.T) {
	g := NewGraph()
	src, sink, q, pull := newTestSource(), newTestSink(), newTestQueue(), newTestPuller()
	require.NoError(t, g.Add(src, "src"))
	require.NoError(t, g.Add(sink, "sink"))
	require.NoError(t, g.Add(q, "q"))
	require.NoError(t, g.Add(pull, "pull"))

	// Push output into pull input.
	err := g.Connect(src, 0, pull, 0)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	require.NoError(t, g.Connect(src, 0, sink, 0))
	assert.Equal(t, Push, sink.GetNode().In(0).Mode())
	// Outputs bind once.
	assert.Error(t, g.Connect(src, 0, q, 0))
	// Port range.
	assert.Error(t, g.Connect(q, 1, pull, 0))

	require.NoError(t, g.Connect(q, 0, pull, 0))
	assert.Equal(t, Pull, pull.GetNode().In(0).Mode())
	assert.Equal(t, "q[0]", pull.GetNode().In(0).Peer().String())

	assert.Error(t, g.Add(newTestSink(), "sink"))
	assert.Error(t, g.ConnectNames("nope", 0, "sink", 0))
}

func TestAgnosticResolvesToPush(t *testing.T) {
	g := NewGraph()
	a, b := newTestSink(), newTestSink()
	a.GetNode().Ports.Out = []PortMode{Agnostic}
	require.NoError(t, g.Add(a, "a"))
	require.NoError(t, g.Add(b, "b"))
	require.NoError(t, g.Add(newTestSource(), "src"))
	require.NoError(t, g.ConnectNames("src", 0, "a", 0))
	require.NoError(t, g.ConnectNames("a", 0, "b", 0))
	assert.Equal(t, Agnostic, b.GetNode().In(0).Mode())
	require.NoError(t, g.Init(loop.New()))
	assert.Equal(t, Push, b.GetNode().In(0).Mode())
	assert.Equal(t, Push, a.GetNode().Out(0).Mode())
}

func TestPushAndPullThroughPorts(t *testing.T) {
	g := NewGraph()
	l := loop.New()
	src, q, pull := newTestSource(), newTestQueue(), newTestPuller()
	require.NoError(t, g.Add(src, "src"))
	require.NoError(t, g.Add(q, "q"))
	require.NoError(t, g.Add(pull, "pull"))
	require.NoError(t, g.Connect(src, 0, q, 0))
	require.NoError(t, g.Connect(q, 0, pull, 0))
	require.NoError(t, g.Init(l))

	for i := 0; i < 3; i++ {
		src.GetNode().Out(0).Push(NewPacket(0, []byte{byte(i)}))
	}
	x := pull.(*testPuller)
	x.task.Schedule()
	for l.RunOnce() {
	}
	require.Len(t, x.got, 3)
	for i, p := range x.got {
		assert.Equal(t, []byte{byte(i)}, p.Data())
	}
}

func TestInitUnconnectedPort(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(newTestSource(), "src"))
	err := g.Init(loop.New())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
	assert.Contains(t, err.Error(), "src: output 0 not connected")
	assert.False(t, g.Running())
}

func TestInitAggregatesAndTearsDown(t *testing.T) {
	var trace []string
	g := NewGraph()
	for _, name := range []string{"a", "b", "c", "d"} {
		x := &testIniter{trace: &trace}
		if name == "b" || name == "d" {
			x.err = fmt.Errorf("%s broke", name)
		}
		require.NoError(t, g.Add(x, name))
	}
	err := g.Init(loop.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: b broke")
	assert.Contains(t, err.Error(), "d: d broke")
	assert.Equal(t, []string{
		"init a", "init b", "init c", "init d",
		"exit c", "exit a",
	}, trace)
	assert.True(t, g.Element("b").GetNode().Failed())
	assert.False(t, g.Element("c").GetNode().Failed())
	assert.Error(t, g.Init(loop.New()))
}

func TestExitReverseIdempotent(t *testing.T) {
	var trace []string
	g := NewGraph()
	for _, name := range []string{"a", "b"} {
		require.NoError(t, g.Add(&testIniter{trace: &trace}, name))
	}
	require.NoError(t, g.Init(loop.New()))
	assert.True(t, g.Running())
	g.Exit()
	g.Exit()
	assert.Equal(t, []string{"init a", "init b", "exit b", "exit a"}, trace)
	assert.Error(t, g.Add(newTestSink(), "late"))
}

func TestFindByCapability(t *testing.T) {
	var trace []string
	g := NewGraph()
	require.NoError(t, g.Add(newTestSource(), "src"))
	require.NoError(t, g.Add(newTestSink(), "sink"))
	require.NoError(t, g.Add(&testIniter{trace: &trace}, "i0"))
	require.NoError(t, g.Add(&testIniter{trace: &trace}, "i1"))

	assert.Nil(t, g.FindByCapability("Neighbor"))
	assert.Equal(t, g.Element("sink"), g.FindByCapability("testSink"))
	assert.Equal(t, g.Element("i0"), g.FindByCapability("Initer"))
	assert.Len(t, g.FindAllByCapability("Initer"), 2)
	assert.Len(t, g.FindAllByCapability("testIniter"), 2)
}

func TestPullChainMustBeDriven(t *testing.T) {
	g := NewGraph()
	q, pull := newTestQueue(), newTestPuller()
	pull.(*testPuller).notask = true
	require.NoError(t, g.Add(newTestSource(), "src"))
	require.NoError(t, g.Add(q, "q"))
	require.NoError(t, g.Add(pull, "pull"))
	require.NoError(t, g.ConnectNames("src", 0, "q", 0))
	require.NoError(t, g.ConnectNames("q", 0, "pull", 0))
	err := g.Init(loop.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pull: pull input 0 is not driven")
}

func TestBuild(t *testing.T) {
	c, err := ParseConfig([]byte(`
elements:
  - name: src
    class: TestSource
  - name: q
    class: TestQueue
  - name: pull
    class: TestPuller
  - name: i
    class: TestIniter
    options:
      size: 9
connections:
  - src -> q[0] -> [0]pull
`))
	require.NoError(t, err)
	g := NewGraph()
	require.NoError(t, g.Build(c))
	assert.Equal(t, uint(9), g.Element("i").(*testIniter).size)
	assert.Equal(t, "TestIniter", g.Element("i").GetNode().Class())
	require.NoError(t, g.Init(loop.New()))

	s, err := g.Read("pull", "ports")
	require.NoError(t, err)
	assert.Equal(t, "in 0 pull <- q[0]\n", s)
	s, err = g.Read("q", "class")
	require.NoError(t, err)
	assert.Equal(t, "TestQueue\n", s)
	assert.Contains(t, g.ReadHandlers("pull"), "tasks")
	_, err = g.Read("q", "bogus")
	assert.True(t, errors.IsKind(err, errors.KindAbsent))
}

func TestBuildErrors(t *testing.T) {
	_, err := ParseConfig([]byte("elements: []\nbogus: 1\n"))
	assert.Error(t, err)

	c, err := ParseConfig([]byte(`
elements:
  - name: a
    class: NoSuchClass
  - name: b
    class: TestIniter
    options:
      size: -1
      colour: red
`))
	require.NoError(t, err)
	err = NewGraph().Build(c)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
	for _, s := range []string{
		"a: NoSuchClass: unknown element class",
		"size: expected unsigned integer",
		"colour: unrecognized option",
	} {
		assert.Contains(t, err.Error(), s)
	}
}

func TestParsePortRef(t *testing.T) {
	for s, want := range map[string]portRef{
		"a":         {name: "a"},
		" a[2] ":    {name: "a", out: 2},
		"[1]b":      {in: 1, name: "b"},
		"[3]c[4]":   {in: 3, name: "c", out: 4},
		"[0] d [1]": {name: "d", out: 1},
	} {
		got, err := parsePortRef(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	for _, s := range []string{"", "[x]a", "a[1", "[1]"} {
		_, err := parsePortRef(s)
		assert.Error(t, err, s)
	}
}

func TestDropCounters(t *testing.T) {
	g := NewGraph()
	src, sink := newTestSource(), newTestSink()
	require.NoError(t, g.Add(src, "src"))
	require.NoError(t, g.Add(sink, "sink"))
	require.NoError(t, g.Connect(src, 0, sink, 0))
	require.NoError(t, g.Init(loop.New()))
	var released int
	p := MakePacket([]byte{1, 2}, func() { released++ })
	src.GetNode().Out(0).Push(p)
	assert.True(t, p.Dead())
	assert.Equal(t, 1, released)
	assert.Equal(t, uint64(1), sink.GetNode().DropCount(0))
	s, err := g.Read("sink", "drops")
	require.NoError(t, err)
	assert.Equal(t, "1 runt\n", s)
}

func TestDropOutsideGraph(t *testing.T) {
	sink := newTestSink()
	p := NewPacket(0, []byte{1})
	sink.(Pusher).Push(0, p)
	assert.True(t, p.Dead())
	n := sink.GetNode()
	assert.Equal(t, uint64(1), n.DropCount(0))
	n.CountDrop(0)
	assert.Equal(t, []string{"runt"}, n.Drops().Names())

	// Counts taken before Add are kept.
	g := NewGraph()
	require.NoError(t, g.Add(sink, "sink"))
	assert.Equal(t, uint64(2), n.DropCount(0))
}
