// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux
// +build !linux

package devices

import (
	"github.com/platinasystems/vgraph/internal/errors"
)

const DefaultRxBuffers = 256

type PacketDevice struct {
	MemDevice
}

func OpenPacketDevice(name string, nbufs int) (*PacketDevice, error) {
	return nil, errors.Errorf(errors.KindResource, "%s: packet sockets need linux", name)
}

func (d *PacketDevice) Close() error { return nil }
