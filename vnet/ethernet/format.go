// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethernet

import (
	"fmt"
)

func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// ParseAddress accepts xx:xx:xx:xx:xx:xx and xxxx.xxxx.xxxx forms.
func ParseAddress(s string) (a Address, err error) {
	var b [3]uint16
	if n, _ := fmt.Sscanf(s, "%x:%x:%x:%x:%x:%x", &a[0], &a[1], &a[2], &a[3], &a[4], &a[5]); n == AddressBytes {
		return
	}
	if n, _ := fmt.Sscanf(s, "%x.%x.%x", &b[0], &b[1], &b[2]); n == 3 {
		a[0], a[1] = uint8(b[0]>>8), uint8(b[0])
		a[2], a[3] = uint8(b[1]>>8), uint8(b[1])
		a[4], a[5] = uint8(b[2]>>8), uint8(b[2])
		return
	}
	err = fmt.Errorf("ethernet address: %q: parse error", s)
	return
}

func (h *Header) String() (s string) {
	return fmt.Sprintf("%s: %s -> %s", h.Type, h.Src, h.Dst)
}
