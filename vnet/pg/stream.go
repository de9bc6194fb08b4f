// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pg

import (
	"time"
)

type stream_config struct {
	// Min, max packet size.
	min_size uint
	max_size uint
	// Number of packets to send or 0 for no limit.
	n_packets_limit uint64
	// Packets per second or 0 for no limit.
	rate_packets_per_sec float64
}

// Stream generates packets from a template whose size steps from min to max
// size and wraps.
type Stream struct {
	stream_config

	cur_size uint

	last_time      time.Time
	credit_packets float64

	n_packets_sent uint64

	data []byte
}

func (s *Stream) GetSize() uint       { return s.cur_size }
func (s *Stream) MaxSize() uint       { return s.max_size }
func (s *Stream) PacketsSent() uint64 { return s.n_packets_sent }
func (s *Stream) Data() []byte        { return s.data }
func (s *Stream) Done() bool          { return s.n_packets_limit != 0 && s.n_packets_sent >= s.n_packets_limit }
func (s *Stream) next_size(cur uint) uint {
	if x := cur + 1; x <= s.max_size {
		return x
	}
	return s.min_size
}

// SetData pads header to the maximum size with an incrementing payload.
func (s *Stream) SetData(header []byte) {
	if s.min_size < uint(len(header)) {
		s.min_size = uint(len(header))
	}
	if s.max_size < s.min_size {
		s.max_size = s.min_size
	}
	s.cur_size = s.min_size
	s.data = make([]byte, s.max_size)
	copy(s.data, header)
	for i := len(header); i < len(s.data); i++ {
		s.data[i] = byte(i - len(header))
	}
}

// next returns the bytes of the next packet.
func (s *Stream) next() (b []byte) {
	b = s.data[:s.cur_size]
	s.cur_size = s.next_size(s.cur_size)
	s.n_packets_sent++
	return
}

// budget returns how many of want packets may be sent at now.  When zero,
// wait is the time until the next packet may go.
func (s *Stream) budget(now time.Time, want uint) (n uint, wait time.Duration) {
	n = want
	if s.n_packets_limit != 0 {
		if left := s.n_packets_limit - s.n_packets_sent; left < uint64(n) {
			n = uint(left)
		}
	}
	if s.rate_packets_per_sec <= 0 {
		return
	}
	if s.last_time.IsZero() {
		s.last_time = now
		s.credit_packets = 1
	} else {
		s.credit_packets += now.Sub(s.last_time).Seconds() * s.rate_packets_per_sec
		s.last_time = now
	}
	// Bound the burst after an idle period.
	if c := float64(want); s.credit_packets > c {
		s.credit_packets = c
	}
	if c := uint(s.credit_packets); c < n {
		n = c
	}
	s.credit_packets -= float64(n)
	if n == 0 {
		wait = time.Duration((1 - s.credit_packets) / s.rate_packets_per_sec * float64(time.Second))
	}
	return
}
