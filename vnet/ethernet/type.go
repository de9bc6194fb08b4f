// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethernet

import (
	"fmt"
	"strconv"
	"strings"
)

// Packet type from ethernet header.
type Type uint16

const (
	// Types < 0x600 (1536) are LLC packet lengths.
	LLC_LENGTH   Type = 0x600
	IP4          Type = 0x800
	ARP          Type = 0x806
	REVERSE_ARP  Type = 0x8035
	VLAN         Type = 0x8100
	VLAN_IN_VLAN Type = 0x9100
	IP6          Type = 0x86DD
	MPLS_UNICAST Type = 0x8847
	LOOPBACK     Type = 0x9000
	// Grid protocol frames.
	GRID     Type = 0x7fff
	RESERVED Type = 0xFFFF
)

var typeStrings = map[Type]string{
	IP4:          "IP4",
	ARP:          "ARP",
	REVERSE_ARP:  "REVERSE_ARP",
	VLAN:         "VLAN",
	VLAN_IN_VLAN: "VLAN_IN_VLAN",
	IP6:          "IP6",
	MPLS_UNICAST: "MPLS_UNICAST",
	LOOPBACK:     "LOOPBACK",
	GRID:         "GRID",
	RESERVED:     "RESERVED",
}

func (t Type) String() string {
	if s, ok := typeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%04x", uint16(t))
}

// ParseType accepts a type name or a number.
func ParseType(s string) (t Type, err error) {
	u := strings.ToUpper(s)
	for k, v := range typeStrings {
		if v == u {
			t = k
			return
		}
	}
	var v uint64
	if v, err = strconv.ParseUint(s, 0, 16); err != nil {
		err = fmt.Errorf("ethernet type: %q: unknown", s)
		return
	}
	t = Type(v)
	return
}
