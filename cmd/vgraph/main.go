// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Vgraph builds an element graph from a YAML configuration and runs it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := (Command{Stdout: os.Stdout}).Main(os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, "vgraph:", err)
		os.Exit(1)
	}
}
