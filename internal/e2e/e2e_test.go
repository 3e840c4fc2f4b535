// End-to-end exercises of the serial protocol: a real device controller and
// a real host daemon talking over a loopback connection, with only the
// hardware and the container runtime faked.
package e2e

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"picoswitch/internal/device"
	"picoswitch/internal/hostd"
	"picoswitch/internal/serialio"
	"picoswitch/pkg/types"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time        { return c.t }
func (c *fakeClock) Sleep(d time.Duration) { c.t = c.t.Add(d) }

type fakeSwitch struct{ on bool }

func (s *fakeSwitch) Read() bool { return s.on }

type fakeDisplay struct {
	mu     sync.Mutex
	line1s []string
	line2s []string
}

func (d *fakeDisplay) Render(line1, line2 string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.line1s = append(d.line1s, line1)
	d.line2s = append(d.line2s, line2)
	return nil
}

func (d *fakeDisplay) SetBacklight(on bool) {}

func (d *fakeDisplay) lastFrame() (string, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.line1s) == 0 {
		return "", ""
	}
	return d.line1s[len(d.line1s)-1], d.line2s[len(d.line2s)-1]
}

func (d *fakeDisplay) frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.line1s)
}

type fakeRuntime struct {
	mu   sync.Mutex
	raw  string
	ups  int
	errs error
}

func (r *fakeRuntime) Up(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ups++
	r.raw = "created"
	return nil
}

func (r *fakeRuntime) Down(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = "exited (0) 1 second ago"
	return nil
}

func (r *fakeRuntime) RawStatus(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.raw, r.errs
}

type fakeSampler struct {
	gpu, ram types.ResourceSample
	gpuErr   error
}

func (s *fakeSampler) GPU(ctx context.Context) (types.ResourceSample, error) {
	return s.gpu, s.gpuErr
}
func (s *fakeSampler) RAM(ctx context.Context) (types.ResourceSample, error) {
	return s.ram, nil
}

// deviceTransport adapts a serialio.Conn to the device-side interface.
type deviceTransport struct{ c *serialio.Conn }

func (t *deviceTransport) ReadLine() (string, bool) {
	line, ok, err := t.c.ReadLine()
	if err != nil {
		return "", false
	}
	return line, ok
}

func (t *deviceTransport) WriteLine(line string) error { return t.c.WriteLine(line) }

// startDaemon wires a daemon to one end of a loopback TCP connection and
// returns the device end. TCP rather than net.Pipe so writes are buffered
// like a real serial FIFO.
func startDaemon(t *testing.T, rt hostd.ContainerRuntime, s hostd.Sampler) (*serialio.Conn, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	devEnd, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	hostEnd, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	d := hostd.New(rt, s, serialio.NewConn(hostEnd, 20*time.Millisecond), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			// Closing the pipe on teardown surfaces as a read error; that is
			// the expected way out.
			if !strings.Contains(err.Error(), "closed") {
				t.Errorf("daemon exited: %v", err)
			}
		}
	}()
	return serialio.NewConn(devEnd, 20*time.Millisecond), func() {
		cancel()
		devEnd.Close()
		hostEnd.Close()
		<-done
	}
}

func TestSwitchOnStartsServerAndRendersStatus(t *testing.T) {
	rt := &fakeRuntime{raw: "exited (0) 2 hours ago"}
	sampler := &fakeSampler{
		gpu: types.ResourceSample{UsedMB: 512, TotalMB: 8192},
		ram: types.ResourceSample{UsedMB: 2048, TotalMB: 16384},
	}
	conn, stop := startDaemon(t, rt, sampler)
	defer stop()

	sw := &fakeSwitch{on: true}
	disp := &fakeDisplay{}
	ctrl := device.New(sw, disp, &deviceTransport{c: conn}, device.Config{
		Clock:  &fakeClock{t: time.Unix(1_700_000_000, 0)},
		Logger: zerolog.Nop(),
	})

	// First tick emits CMD:ON (first stable read) and CMD:STATUS (initial
	// heartbeat); subsequent ticks pick up the responses.
	deadline := time.Now().Add(2 * time.Second)
	for disp.frames() < 2 {
		ctrl.Tick()
		if time.Now().After(deadline) {
			t.Fatalf("no status frame rendered; frames=%d", disp.frames())
		}
		time.Sleep(5 * time.Millisecond)
	}

	rt.mu.Lock()
	ups := rt.ups
	rt.mu.Unlock()
	if ups != 1 {
		t.Fatalf("switch-on started the server %d times, want 1", ups)
	}

	line1, line2 := disp.lastFrame()
	if !strings.HasPrefix(line1, "VRAM 0.5G/8.0G") {
		t.Errorf("line1 = %q, want VRAM 0.5G/8.0G prefix", line1)
	}
	glyph := line1[len(line1)-1]
	if !strings.ContainsRune(`|/-\`, rune(glyph)) {
		t.Errorf("glyph = %q, want a spinner frame while starting", glyph)
	}
	if want := "RAM  2.0G/16G   "; line2 != want {
		t.Errorf("line2 = %q, want %q", line2, want)
	}
}

func TestStatusQueryWithDeadRuntimeReportsError(t *testing.T) {
	rt := &fakeRuntime{raw: ""} // runtime cannot account for the container
	sampler := &fakeSampler{
		gpuErr: errors.New("nvidia-smi not found"),
		ram:    types.ResourceSample{UsedMB: 3000, TotalMB: 32000},
	}
	conn, stop := startDaemon(t, rt, sampler)
	defer stop()

	if err := conn.WriteLine("CMD:STATUS"); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		line, ok, err := conn.ReadLine()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if ok {
			if want := "STAT:error|0|0|3000|32000"; line != want {
				t.Fatalf("got %q, want %q", line, want)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no status response")
		}
	}
}

func TestToggleOffStopsServer(t *testing.T) {
	rt := &fakeRuntime{raw: "up 10 minutes"}
	conn, stop := startDaemon(t, rt, &fakeSampler{})
	defer stop()

	sw := &fakeSwitch{on: true}
	disp := &fakeDisplay{}
	ctrl := device.New(sw, disp, &deviceTransport{c: conn}, device.Config{
		Clock:  &fakeClock{t: time.Unix(1_700_000_000, 0)},
		Logger: zerolog.Nop(),
	})

	ctrl.Tick() // emits CMD:ON
	sw.on = false
	ctrl.Tick() // emits CMD:OFF

	deadline := time.Now().Add(2 * time.Second)
	for {
		rt.mu.Lock()
		raw := rt.raw
		rt.mu.Unlock()
		if strings.Contains(raw, "exited") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never stopped; raw=%q", raw)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
