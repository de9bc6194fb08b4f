// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devices

import (
	"net"
	"sync"

	"github.com/mdlayher/packet"
	"github.com/platinasystems/log"

	"github.com/platinasystems/vgraph/internal/errors"
)

// ETH_P_ALL
const ethPAll = 0x0003

const (
	DefaultRxBuffers = 256
	minRxBufferSize  = 1514
)

// Receive buffer; release returns it to the device pool.
type rxBuffer struct {
	b       []byte
	d       *PacketDevice
	release func()
}

func (r *rxBuffer) put() { r.d.pool <- r }

// PacketDevice reads frames from a Linux interface with an AF_PACKET socket.
// A reader goroutine fills buffers from a fixed pool and hands them to the
// hook; when the pool is empty the reader waits for the consumer to
// release one.
type PacketDevice struct {
	ifi  *net.Interface
	conn *packet.Conn
	pool chan *rxBuffer

	mu   sync.RWMutex
	hook RxHook

	done chan struct{}
	wg   sync.WaitGroup
}

func OpenPacketDevice(name string, nbufs int) (d *PacketDevice, err error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		err = errors.Wrap(err, errors.KindAbsent, name)
		return
	}
	conn, err := packet.Listen(ifi, packet.Raw, ethPAll, nil)
	if err != nil {
		err = errors.Wrapf(err, errors.KindResource, "%s: packet socket", name)
		return
	}
	if nbufs <= 0 {
		nbufs = DefaultRxBuffers
	}
	size := ifi.MTU + 14
	if size < minRxBufferSize {
		size = minRxBufferSize
	}
	d = &PacketDevice{
		ifi:  ifi,
		conn: conn,
		pool: make(chan *rxBuffer, nbufs),
		done: make(chan struct{}),
	}
	for i := 0; i < nbufs; i++ {
		r := &rxBuffer{b: make([]byte, size), d: d}
		r.release = r.put
		d.pool <- r
	}
	d.wg.Add(1)
	go d.rx()
	return
}

func (d *PacketDevice) Name() string { return d.ifi.Name }

func (d *PacketDevice) SetRxHook(h RxHook) {
	d.mu.Lock()
	d.hook = h
	d.mu.Unlock()
}

func (d *PacketDevice) SetPromisc(on bool) error {
	return d.conn.SetPromiscuous(on)
}

func (d *PacketDevice) rx() {
	defer d.wg.Done()
	for {
		var r *rxBuffer
		select {
		case r = <-d.pool:
		case <-d.done:
			return
		}
		n, _, err := d.conn.ReadFrom(r.b)
		if err != nil {
			r.put()
			select {
			case <-d.done:
				return
			default:
			}
			log.Print("err", d.ifi.Name, ": read: ", err)
			continue
		}
		d.mu.RLock()
		if d.hook != nil {
			d.hook(r.b[:n], r.release)
		} else {
			r.put()
		}
		d.mu.RUnlock()
	}
}

// Close stops the reader and closes the socket.
func (d *PacketDevice) Close() error {
	d.SetRxHook(nil)
	close(d.done)
	err := d.conn.Close()
	d.wg.Wait()
	return err
}
