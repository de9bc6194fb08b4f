// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/platinasystems/vgraph/internal/errors"
)

// Config describes a graph:
//
//	elements:
//	  - name: eth0
//	    class: FromDevice
//	    options: {device: eth0, burst: 16}
//	  - name: sink
//	    class: Discard
//	connections:
//	  - eth0 -> sink
//
// A connection is a chain of element references.  A reference may carry an
// input port before the name and an output port after it, as in
// "a[1] -> [0]b[1] -> c"; ports default to 0.
type Config struct {
	Elements    []ElementConfig `yaml:"elements"`
	Connections []string        `yaml:"connections"`
}

type ElementConfig struct {
	Name    string                 `yaml:"name"`
	Class   string                 `yaml:"class"`
	Options map[string]interface{} `yaml:"options"`
}

// ParseConfig decodes YAML; unknown fields are errors.
func ParseConfig(b []byte) (c *Config, err error) {
	c = new(Config)
	d := yaml.NewDecoder(bytes.NewReader(b))
	d.KnownFields(true)
	if err = d.Decode(c); err != nil {
		err = errors.Wrap(err, errors.KindConfig, "parse graph config")
		c = nil
	}
	return
}

func LoadConfig(fn string) (c *Config, err error) {
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		err = errors.Wrap(err, errors.KindConfig, "load graph config")
		return
	}
	return ParseConfig(b)
}

type portRef struct {
	in   int
	name string
	out  int
}

func parsePortIndex(s string) (i int, rest string, err error) {
	j := strings.IndexByte(s, ']')
	if j < 0 {
		err = fmt.Errorf("%q: missing ]", s)
		return
	}
	if i, err = strconv.Atoi(s[1:j]); err != nil || i < 0 {
		err = fmt.Errorf("%q: bad port", s)
		return
	}
	rest = s[j+1:]
	return
}

func parsePortRef(s string) (r portRef, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if r.in, s, err = parsePortIndex(s); err != nil {
			return
		}
	}
	if j := strings.IndexByte(s, '['); j >= 0 {
		if !strings.HasSuffix(s, "]") {
			err = fmt.Errorf("%q: missing ]", s)
			return
		}
		if r.out, _, err = parsePortIndex(s[j:]); err != nil {
			return
		}
		s = s[:j]
	}
	r.name = strings.TrimSpace(s)
	if r.name == "" {
		err = fmt.Errorf("missing element name")
	}
	return
}

// Connect every link of a chain.
func (g *Graph) connectChain(chain string) (err error) {
	parts := strings.Split(chain, "->")
	if len(parts) < 2 {
		return errors.Errorf(errors.KindConfig, "connection %q: expected a -> b", chain)
	}
	refs := make([]portRef, len(parts))
	for i := range parts {
		if refs[i], err = parsePortRef(parts[i]); err != nil {
			return errors.Wrapf(err, errors.KindConfig, "connection %q", chain)
		}
	}
	for i := 0; i+1 < len(refs); i++ {
		if err = g.ConnectNames(refs[i].name, refs[i].out, refs[i+1].name, refs[i+1].in); err != nil {
			return
		}
	}
	return
}

// Build constructs, configures and connects the elements of c.  Every
// problem is reported; the graph is only usable when Build returns nil.
func (g *Graph) Build(c *Config) error {
	var result error
	for i := range c.Elements {
		ec := &c.Elements[i]
		x, err := NewElement(ec.Class)
		if err != nil {
			result = multierror.Append(result, errors.WithElement(err, ec.Name))
			continue
		}
		if err = g.Add(x, ec.Name); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err = Configure(x, NewOptions(ec.Options)); err != nil {
			result = multierror.Append(result, errors.WithElement(
				errors.Wrap(err, errors.KindConfig, "configure"), ec.Name))
		}
	}
	if result != nil {
		return result
	}
	for _, chain := range c.Connections {
		if err := g.connectChain(chain); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
