// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ip4

import (
	"fmt"
	"net"
)

func (a Address) String() string { return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3]) }

func ParseAddress(s string) (a Address, err error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		err = fmt.Errorf("ip4 address: %q: parse error", s)
		return
	}
	copy(a[:], ip)
	return
}
