// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/vnet"
	"github.com/platinasystems/vgraph/vnet/devices"
	"github.com/platinasystems/vgraph/vnet/devices/ingress"
	"github.com/platinasystems/vgraph/vnet/stats"

	_ "github.com/platinasystems/vgraph/vnet/grid"
	_ "github.com/platinasystems/vgraph/vnet/pg"
	_ "github.com/platinasystems/vgraph/vnet/std"
)

type Command struct {
	Stdout io.Writer
}

func (Command) String() string { return "vgraph" }

func (Command) Usage() string {
	return `vgraph [-n] [-tasks] [-metrics ADDR] [-redis ADDR] [-for DURATION]
	[-read "ELEMENT.HANDLER..."] CONFIG
vgraph -classes`
}

func (Command) Apropos() map[string]string {
	return map[string]string{
		"en_US.UTF-8": "run a packet processing element graph",
	}
}

func (c Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-n", "-tasks", "-classes")
	parm, args := parms.New(args, "-metrics", "-redis", "-for", "-read")
	w := c.Stdout
	if w == nil {
		w = os.Stdout
	}

	if flag.ByName["-classes"] {
		return writeList(w, vnet.Classes())
	}
	switch len(args) {
	case 0:
		return fmt.Errorf("CONFIG: missing")
	case 1:
	default:
		return fmt.Errorf("%v: unexpected", args[1:])
	}

	var d time.Duration
	if s := parm.ByName["-for"]; s != "" {
		if d, err = time.ParseDuration(s); err != nil {
			return fmt.Errorf("-for: %v", err)
		}
	}

	cfg, err := vnet.LoadConfig(args[0])
	if err != nil {
		return
	}
	g := vnet.NewGraph()
	if err = g.Build(cfg); err != nil {
		return
	}
	closers := openDevices(g)
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()

	l := loop.New()
	l.QuitAfterDuration = d
	if err = g.Init(l); err != nil {
		return
	}
	defer g.Exit()
	if flag.ByName["-n"] {
		fmt.Fprintln(w, "ok")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := parm.ByName["-metrics"]; addr != "" {
		srv := metricsServer(g, addr)
		go func() {
			if e := srv.ListenAndServe(); e != nil && e != http.ErrServerClosed {
				log.Print("err", "metrics: ", e)
			}
		}()
		defer srv.Close()
	}
	if addr := parm.ByName["-redis"]; addr != "" {
		p := stats.NewPublisher(g, addr)
		go p.Run(ctx)
	}

	log.Print("info", "graph ", g.ID(), " running ", len(g.Elements()), " elements")
	if err = l.Run(ctx); err == context.Canceled {
		err = nil
	}

	if flag.ByName["-tasks"] {
		l.WriteTasks(w)
	}
	for _, s := range strings.Fields(parm.ByName["-read"]) {
		if e := readHandler(w, g, s); e != nil && err == nil {
			err = e
		}
	}
	writeCounters(w, stats.Snapshot(g))
	return
}

// Open an AF_PACKET device for each FromDevice whose device is not yet
// registered.  Failures are left for FromDevice to report.
func openDevices(g *vnet.Graph) (closers []io.Closer) {
	for _, x := range g.FindAllByCapability("FromDevice") {
		fd, ok := x.(*ingress.FromDevice)
		if !ok {
			continue
		}
		name := fd.DeviceName()
		if _, ok := devices.Default.Lookup(name); ok {
			continue
		}
		d, err := devices.OpenPacketDevice(name, devices.DefaultRxBuffers)
		if err != nil {
			log.Print("warn", name, ": ", err)
			continue
		}
		if err = devices.Default.Add(d); err != nil {
			d.Close()
			continue
		}
		closers = append(closers, d)
	}
	return
}

func metricsServer(g *vnet.Graph, addr string) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(vnet.NewCollector(g))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}

func readHandler(w io.Writer, g *vnet.Graph, s string) error {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return fmt.Errorf("-read %s: expected ELEMENT.HANDLER", s)
	}
	v, err := g.Read(s[:i], s[i+1:])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s:\n%s", s, v)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func writeList(w io.Writer, names []string) error {
	if isTerminal(w) {
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		for i, n := range names {
			sep := "\t"
			if i%4 == 3 || i == len(names)-1 {
				sep = "\n"
			}
			fmt.Fprint(tw, n, sep)
		}
		return tw.Flush()
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

// Counters are a table on a terminal and name value lines otherwise.
func writeCounters(w io.Writer, m map[string]uint64) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	if isTerminal(w) {
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "counter\tvalue\t")
		for _, k := range names {
			fmt.Fprintf(tw, "%s\t%d\t\n", k, m[k])
		}
		tw.Flush()
		return
	}
	for _, k := range names {
		fmt.Fprintln(w, k, m[k])
	}
}
