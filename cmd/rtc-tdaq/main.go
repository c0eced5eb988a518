// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rtc-tdaq starts a TDAQ server driving an AM1815 RTC.
//
// The RTC settings are read from the YAML file named by the RTC_CONFIG
// environment variable, or from the body of the /config command.
// While running, the server publishes the RTC time on /time once per
// second, and watches the oscillator failure flag.
package main // import "github.com/go-lpc/rtc/cmd/rtc-tdaq"

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/rtc/am1815"
	"github.com/go-lpc/rtc/cli"
	"github.com/go-lpc/rtc/internal/config"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := flags.New()

	dev := newServer(os.Getenv("RTC_CONFIG"))

	if fname := os.Getenv("RTC_PMON"); fname != "" {
		stop, err := monitor(fname, time.Second)
		if err != nil {
			log.Panicf("could not start process monitoring: %+v", err)
		}
		defer stop()
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/time", dev.clock)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type server struct {
	fname string // default configuration file
	freq  time.Duration
	watch time.Duration
	now   func() time.Time

	bus am1815.Bus
	dev *am1815.Device

	n     int
	data  chan []byte
	alert func(subject, body string)
	osc   atomic.Bool // oscillator failure already reported
}

func newServer(fname string) *server {
	return &server{
		fname: fname,
		freq:  time.Second,
		watch: 10 * time.Second,
		now:   time.Now,
		data:  make(chan []byte, 1024),
		alert: alertMail,
	}
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	fname := srv.fname
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		fname = dec.ReadStr()
		if err := dec.Err(); err != nil {
			ctx.Msg.Errorf("could not decode /config request: %+v", err)
			return fmt.Errorf("could not decode /config request: %w", err)
		}
	}

	cfg, err := config.Load(fname)
	if err != nil {
		ctx.Msg.Errorf("could not load configuration %q: %+v", fname, err)
		return fmt.Errorf("could not load configuration %q: %w", fname, err)
	}

	err = srv.open(cfg.Bus)
	if err != nil {
		ctx.Msg.Errorf("could not open RTC: %+v", err)
		return fmt.Errorf("could not open RTC: %w", err)
	}

	err = cli.ApplyProfile(srv.dev, cfg.Profile)
	if err != nil {
		ctx.Msg.Errorf("could not configure RTC: %+v", err)
		return fmt.Errorf("could not configure RTC: %w", err)
	}

	ctx.Msg.Infof("RTC configured (bus=%s)", cfg.Bus.Kind)
	return nil
}

func (srv *server) open(cfg config.BusConfig) error {
	err := srv.close()
	if err != nil {
		return err
	}

	bus, err := cfg.Open()
	if err != nil {
		return err
	}
	srv.bus = bus
	srv.dev = am1815.New(bus)
	return nil
}

func (srv *server) close() error {
	if srv.bus == nil {
		return nil
	}
	err := srv.bus.Close()
	srv.bus = nil
	srv.dev = nil
	if err != nil {
		return fmt.Errorf("could not close RTC: %w", err)
	}
	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.dev == nil {
		ctx.Msg.Errorf("RTC not configured")
		return fmt.Errorf("RTC not configured")
	}

	ok, err := srv.dev.Initialized()
	if err != nil {
		ctx.Msg.Errorf("could not read RTC state: %+v", err)
		return fmt.Errorf("could not read RTC state: %w", err)
	}
	if ok {
		ctx.Msg.Infof("RTC already initialized")
	}

	err = srv.dev.Init()
	if err != nil {
		ctx.Msg.Errorf("could not initialize RTC: %+v", err)
		return fmt.Errorf("could not initialize RTC: %w", err)
	}

	srv.osc.Store(false)
	err = srv.checkOsc(ctx, srv.dev)
	if err != nil {
		return err
	}

	srv.reset()
	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.reset()
	return nil
}

func (srv *server) reset() {
	srv.data = make(chan []byte, 1024)
	srv.n = 0
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if srv.dev == nil {
		ctx.Msg.Errorf("RTC not configured")
		return fmt.Errorf("RTC not configured")
	}
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := srv.n
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return srv.close()
}

func (srv *server) clock(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	dev := srv.dev
	if dev == nil {
		return fmt.Errorf("RTC not configured")
	}

	grp, gctx := errgroup.WithContext(ctx.Ctx)
	grp.Go(func() error {
		tick := time.NewTicker(srv.freq)
		defer tick.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-tick.C:
				raw, err := sample(dev, srv.now)
				if err != nil {
					ctx.Msg.Errorf("could not sample RTC time: %+v", err)
					return err
				}
				select {
				case srv.data <- raw:
					srv.n++
				default:
				}
			}
		}
	})

	grp.Go(func() error {
		tick := time.NewTicker(srv.watch)
		defer tick.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-tick.C:
				err := srv.checkOsc(ctx, dev)
				if err != nil {
					return err
				}
			}
		}
	})

	return grp.Wait()
}

func (srv *server) checkOsc(ctx tdaq.Context, dev *am1815.Device) error {
	failed, err := srv.oscFailure(dev)
	if err != nil {
		ctx.Msg.Errorf("could not read oscillator status: %+v", err)
		return fmt.Errorf("could not read oscillator status: %w", err)
	}
	if failed {
		ctx.Msg.Errorf("RTC oscillator failure detected")
	}
	return nil
}

// oscFailure reports whether the oscillator failure flag of dev is newly
// set, and sends an alert the first time it is.
func (srv *server) oscFailure(dev *am1815.Device) (bool, error) {
	failed, err := dev.OscFailure()
	if err != nil {
		return false, err
	}
	if !failed || srv.osc.Swap(true) {
		return false, nil
	}

	srv.alert(
		"[rtc-tdaq] oscillator failure",
		fmt.Sprintf("RTC oscillator failure flag set at %v", srv.now().UTC()),
	)
	return true, nil
}

// sample reads the RTC time and encodes it, with the offset to the host
// clock, into a /time frame body.
func sample(dev *am1815.Device, now func() time.Time) ([]byte, error) {
	beg := now()
	t, err := dev.ReadTime()
	if err != nil {
		return nil, err
	}
	end := now()
	host := beg.Add(end.Sub(beg) / 2)

	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteI64(t.Unix())
	enc.WriteI64(int64(t.Nanosecond() / int(time.Microsecond)))
	enc.WriteI64(t.Sub(host).Microseconds())
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("could not encode /time frame: %w", err)
	}
	return buf.Bytes(), nil
}

// monitor starts monitoring the resource usage of the current process,
// writing reports to fname.
func monitor(fname string, freq time.Duration) (func(), error) {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("could not monitor pid=%d: %w", os.Getpid(), err)
	}

	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run process monitoring: %+v", err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop process monitoring: %+v", err)
		}
		_ = f.Close()
	}, nil
}
