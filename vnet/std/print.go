// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package std

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/platinasystems/vgraph/vnet"
)

// Print logs a one line decode of every packet passing through.
//
//	label     line prefix (element name)
//	contents  leading bytes to dump in hex (0)
type Print struct {
	vnet.Node
	label    string
	contents uint
	last     string
}

func NewPrint() *Print {
	x := &Print{}
	x.Ports = vnet.Ports{
		In:  []vnet.PortMode{vnet.Agnostic},
		Out: []vnet.PortMode{vnet.Agnostic},
	}
	return x
}

func init() {
	vnet.RegisterClass("Print", func() vnet.Noder { return NewPrint() })
}

func (x *Print) Configure(o *vnet.Options) (err error) {
	x.label = o.String("label", "")
	x.contents = o.Uint("contents", 0)
	return
}

func (x *Print) print(p *vnet.Packet) {
	b := p.Data()
	s := fmt.Sprintf("%d bytes: %s", len(b), Summarize(b))
	if x.contents > 0 {
		n := int(x.contents)
		if n > len(b) {
			n = len(b)
		}
		s += " | " + hex.EncodeToString(b[:n])
	}
	if x.label != "" {
		s = x.label + ": " + s
	}
	x.last = s
	x.Logf("%s", s)
}

func (x *Print) Push(port int, p *vnet.Packet) {
	x.print(p)
	x.Out(0).Push(p)
}

func (x *Print) Pull(port int) (p *vnet.Packet) {
	if p = x.In(0).Pull(); p != nil {
		x.print(p)
	}
	return
}

// Summarize decodes an ethernet frame into one line.
func Summarize(b []byte) string {
	pkt := gopacket.NewPacket(b, layers.LayerTypeEthernet, gopacket.NoCopy)
	var parts []string
	for _, l := range pkt.Layers() {
		switch l := l.(type) {
		case *layers.Ethernet:
			parts = append(parts, fmt.Sprintf("%s > %s type 0x%04x",
				l.SrcMAC, l.DstMAC, uint16(l.EthernetType)))
		case *layers.IPv4:
			parts = append(parts, fmt.Sprintf("IPv4 %s > %s ttl %d", l.SrcIP, l.DstIP, l.TTL))
		case *layers.IPv6:
			parts = append(parts, fmt.Sprintf("IPv6 %s > %s", l.SrcIP, l.DstIP))
		case *layers.UDP:
			parts = append(parts, fmt.Sprintf("UDP %d > %d", uint16(l.SrcPort), uint16(l.DstPort)))
		case *layers.TCP:
			parts = append(parts, fmt.Sprintf("TCP %d > %d", uint16(l.SrcPort), uint16(l.DstPort)))
		case *layers.ARP:
			parts = append(parts, fmt.Sprintf("ARP op %d", l.Operation))
		default:
			switch l.LayerType() {
			case gopacket.LayerTypePayload, gopacket.LayerTypeDecodeFailure:
				parts = append(parts, fmt.Sprintf("payload %d", len(l.LayerContents())))
			default:
				parts = append(parts, l.LayerType().String())
			}
		}
	}
	return strings.Join(parts, " ")
}

func (x *Print) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"last": func() string { return x.last + "\n" },
	}
}
