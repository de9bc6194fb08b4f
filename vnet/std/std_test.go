// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package std

import (
	"fmt"
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

type source struct{ vnet.Node }

func newSource() vnet.Noder {
	x := &source{}
	x.Ports.Out = []vnet.PortMode{vnet.Push}
	return x
}

type sink struct {
	vnet.Node
	got []*vnet.Packet
}

func newSink() vnet.Noder {
	x := &sink{}
	x.Ports.In = []vnet.PortMode{vnet.Push}
	return x
}

func (x *sink) Push(port int, p *vnet.Packet) { x.got = append(x.got, p) }

func init() {
	vnet.RegisterClass("testSource", newSource)
	vnet.RegisterClass("testSink", newSink)
}

func build(t *testing.T, config string) (*vnet.Graph, *loop.Loop) {
	c, err := vnet.ParseConfig([]byte(config))
	require.NoError(t, err)
	g := vnet.NewGraph()
	require.NoError(t, g.Build(c))
	l := loop.New()
	require.NoError(t, g.Init(l))
	return g, l
}

func push(g *vnet.Graph, name string, p *vnet.Packet) {
	g.Element(name).GetNode().Out(0).Push(p)
}

func drain(l *loop.Loop) {
	for l.RunOnce() {
	}
}

func TestQueueDropTail(t *testing.T) {
	q := NewQueue()
	require.NoError(t, vnet.Configure(q, vnet.NewOptions(map[string]interface{}{"capacity": 3})))
	released := 0
	var ps []*vnet.Packet
	for i := 0; i < 5; i++ {
		p := vnet.MakePacket([]byte{byte(i)}, func() { released++ })
		ps = append(ps, p)
		q.Push(0, p)
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(2), q.DropCount(0))
	assert.True(t, ps[3].Dead())
	assert.True(t, ps[4].Dead())
	assert.Equal(t, 2, released)
	for i := 0; i < 3; i++ {
		p := q.Pull(0)
		require.NotNil(t, p)
		assert.Equal(t, []byte{byte(i)}, p.Data())
	}
	assert.Nil(t, q.Pull(0))
	// Wraps around.
	for i := 0; i < 3; i++ {
		q.Push(0, vnet.NewPacket(0, []byte{byte(10 + i)}))
	}
	assert.Equal(t, []byte{10}, q.Pull(0).Data())
	assert.Equal(t, 3, q.Capacity())
	assert.Error(t, vnet.Configure(NewQueue(), vnet.NewOptions(map[string]interface{}{"capacity": 0})))
}

func TestQueueUnqueue(t *testing.T) {
	g, l := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: q, class: Queue, options: {capacity: 8}}
  - {name: uq, class: Unqueue, options: {burst: 2}}
  - {name: out, class: testSink}
connections:
  - src -> q -> uq -> out
`)
	out := g.Element("out").(*sink)
	uq := g.Element("uq").(*Unqueue)
	require.True(t, uq.notify)

	drain(l)
	assert.Empty(t, out.got)
	assert.False(t, uq.task.IsScheduled())

	for i := 0; i < 5; i++ {
		push(g, "src", vnet.NewPacket(0, []byte{byte(i)}))
	}
	drain(l)
	require.Len(t, out.got, 5)
	for i, p := range out.got {
		assert.Equal(t, []byte{byte(i)}, p.Data())
	}

	// Woken again once idle.
	push(g, "src", vnet.NewPacket(0, []byte{9}))
	drain(l)
	require.Len(t, out.got, 6)

	s, err := g.Read("q", "highwater")
	require.NoError(t, err)
	assert.Equal(t, "5\n", s)
	assert.Equal(t, uint64(6), g.Element("q").(*Queue).Counters().Value(1))
}

func TestQueueExitKillsBacklog(t *testing.T) {
	g, _ := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: q, class: Queue}
  - {name: uq, class: Unqueue}
  - {name: out, class: testSink}
connections:
  - src -> q -> uq -> out
`)
	p := vnet.NewPacket(0, []byte{1})
	push(g, "src", p)
	g.Exit()
	assert.True(t, p.Dead())
	assert.Zero(t, g.Element("q").(*Queue).Len())
}

func TestUnqueueBacklogBlocksRemoval(t *testing.T) {
	g, l := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: q, class: Queue}
  - {name: uq, class: Unqueue}
  - {name: out, class: testSink}
connections:
  - src -> q -> uq -> out
`)
	push(g, "src", vnet.NewPacket(0, []byte{1}))
	push(g, "src", vnet.NewPacket(0, []byte{2}))
	task := g.Element("uq").(*Unqueue).Tasks()[0]
	assert.Equal(t, uint(2), task.Pending())
	err := l.RemoveTask(task)
	assert.True(t, errors.Is(err, loop.ErrTaskBacklog))

	g.Exit()
	assert.Zero(t, g.Element("q").(*Queue).Len())
	assert.Empty(t, l.Tasks())
}

func TestDiscard(t *testing.T) {
	g, l := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: d, class: Discard}
  - {name: src2, class: testSource}
  - {name: q, class: Queue}
  - {name: d2, class: Discard}
connections:
  - src -> d
  - src2 -> q -> d2
`)
	p := vnet.NewPacket(0, []byte{1})
	push(g, "src", p)
	assert.True(t, p.Dead())
	d := g.Element("d").(*Discard)
	assert.Equal(t, uint64(1), d.Count())
	assert.Nil(t, d.Tasks())

	d2 := g.Element("d2").(*Discard)
	require.Len(t, d2.Tasks(), 1)
	for i := 0; i < 3; i++ {
		push(g, "src2", vnet.NewPacket(0, []byte{1}))
	}
	drain(l)
	assert.Equal(t, uint64(3), d2.Count())
	s, err := g.Read("d2", "count")
	require.NoError(t, err)
	assert.Equal(t, "3\n", s)
}

func TestTee(t *testing.T) {
	g, _ := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: t, class: Tee, options: {n: 3}}
  - {name: a, class: testSink}
  - {name: b, class: testSink}
  - {name: c, class: testSink}
connections:
  - src -> t
  - t[0] -> a
  - t[1] -> b
  - t[2] -> c
`)
	p := vnet.NewPacket(-1, []byte("abc"))
	p.Device = "eth0"
	push(g, "src", p)
	var got []*vnet.Packet
	for _, n := range []string{"a", "b", "c"} {
		s := g.Element(n).(*sink)
		require.Len(t, s.got, 1)
		got = append(got, s.got[0])
		assert.Equal(t, []byte("abc"), s.got[0].Data())
		assert.Equal(t, "eth0", s.got[0].Device)
	}
	assert.Same(t, p, got[2])
	got[0].Data()[0] = 'x'
	assert.Equal(t, []byte("abc"), got[1].Data())
	assert.Equal(t, 3, g.Element("t").GetNode().NOut())
}

func TestTeeTooFewConnections(t *testing.T) {
	c, err := vnet.ParseConfig([]byte(`
elements:
  - {name: src, class: testSource}
  - {name: t, class: Tee, options: {n: 2}}
  - {name: a, class: testSink}
connections:
  - src -> t -> a
`))
	require.NoError(t, err)
	g := vnet.NewGraph()
	require.NoError(t, g.Build(c))
	err = g.Init(loop.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t: output 1 not connected")
}

func TestToHost(t *testing.T) {
	g, _ := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: h, class: ToHost, options: {capacity: 2}}
  - {name: src2, class: testSource}
  - {name: h2, class: ToHost, options: {device: tap0}}
connections:
  - src -> h
  - src2 -> h2
`)
	h := g.Element("h").(*ToHost)

	p := vnet.NewPacket(0, []byte{1})
	push(g, "src", p)
	assert.True(t, p.Dead())
	assert.Equal(t, uint64(1), h.DropCount(tohost_error_no_device))

	for i := 0; i < 3; i++ {
		q := vnet.NewPacket(0, []byte{byte(i)})
		q.Device = "eth1"
		q.Type = vnet.PacketBroadcast
		push(g, "src", q)
	}
	assert.Equal(t, uint64(1), h.DropCount(tohost_error_full))
	q := <-h.C()
	assert.Equal(t, []byte{0}, q.Data())
	// The packet type annotation is passed through untouched.
	assert.Equal(t, vnet.PacketBroadcast, q.Type)
	assert.Equal(t, uint64(2), h.Counters().Value(0))

	push(g, "src2", vnet.NewPacket(0, []byte{7}))
	q = <-g.Element("h2").(*ToHost).C()
	assert.Equal(t, "tap0", q.Device)

	// The uncollected packet is killed on exit.
	left := <-h.C()
	h.Push(0, left)
	g.Exit()
	assert.True(t, left.Dead())
}

func udpFrame(t *testing.T) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 1000, DstPort: 9999}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload([]byte("hi"))))
	return buf.Bytes()
}

func TestSummarize(t *testing.T) {
	s := Summarize(udpFrame(t))
	assert.Contains(t, s, "02:00:00:00:00:01 > 02:00:00:00:00:02 type 0x0800")
	assert.Contains(t, s, "IPv4 10.0.0.1 > 10.0.0.2 ttl 64")
	assert.Contains(t, s, "UDP 1000 > 9999")
	assert.Contains(t, s, "payload 2")
}

func TestPrintPassesThrough(t *testing.T) {
	g, l := build(t, `
elements:
  - {name: src, class: testSource}
  - {name: p, class: Print, options: {label: rx, contents: 2}}
  - {name: out, class: testSink}
  - {name: src2, class: testSource}
  - {name: q, class: Queue}
  - {name: p2, class: Print}
  - {name: uq, class: Unqueue}
  - {name: d, class: Discard}
connections:
  - src -> p -> out
  - src2 -> q -> p2 -> uq -> d
`)
	b := udpFrame(t)
	push(g, "src", vnet.NewPacket(0, b))
	require.Len(t, g.Element("out").(*sink).got, 1)
	s, err := g.Read("p", "last")
	require.NoError(t, err)
	assert.Contains(t, s, fmt.Sprintf("rx: %d bytes: ", len(b)))
	assert.Contains(t, s, "| 0200\n")

	push(g, "src2", vnet.NewPacket(0, b))
	// Print does not notify, so the unqueue task polls.
	for i := 0; i < 10; i++ {
		l.RunOnce()
	}
	assert.Equal(t, uint64(1), g.Element("d").(*Discard).Count())
	s, err = g.Read("p2", "last")
	require.NoError(t, err)
	assert.Contains(t, s, "UDP 1000 > 9999")
}
