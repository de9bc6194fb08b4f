// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"sort"
	"sync"

	"github.com/platinasystems/vgraph/internal/errors"
)

// Constructor returns a new unconfigured element.
type Constructor func() Noder

var classes struct {
	sync.Mutex
	m map[string]Constructor
}

// RegisterClass makes an element class available to Build.  Packages call
// it from init.
func RegisterClass(class string, c Constructor) {
	classes.Lock()
	defer classes.Unlock()
	if classes.m == nil {
		classes.m = make(map[string]Constructor)
	}
	if _, ok := classes.m[class]; ok {
		panic("vnet: duplicate class " + class)
	}
	classes.m[class] = c
}

// NewElement constructs an element of the named class.
func NewElement(class string) (x Noder, err error) {
	classes.Lock()
	c, ok := classes.m[class]
	classes.Unlock()
	if !ok {
		err = errors.Errorf(errors.KindConfig, "%s: unknown element class", class)
		return
	}
	x = c()
	x.GetNode().class = class
	return
}

func Classes() (names []string) {
	classes.Lock()
	defer classes.Unlock()
	for k := range classes.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
