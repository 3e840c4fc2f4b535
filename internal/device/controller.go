// Package device implements the switch-side state machine: a fixed-period
// tick that debounces the physical switch, emits commands, polls for status
// lines and drives the two-line display. All hardware sits behind
// interfaces, so the same loop runs against an LCD, a terminal or a test
// fake.
package device

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"picoswitch/internal/protocol"
	"picoswitch/pkg/types"
)

// Switch reads the physical toggle. true means ON.
type Switch interface {
	Read() bool
}

// Display renders two fixed-width text lines. Render errors are tolerated;
// the tick loop skips the frame and carries on.
type Display interface {
	Render(line1, line2 string) error
	SetBacklight(on bool)
}

// Transport carries protocol lines. ReadLine must not block: ok=false means
// no complete line this tick, which is also how a dead link presents.
type Transport interface {
	ReadLine() (line string, ok bool)
	WriteLine(line string) error
}

// Config carries tick-loop timings and display geometry. Zero values take
// the firmware defaults.
type Config struct {
	Debounce     time.Duration // stability window for switch reads
	Heartbeat    time.Duration // CMD:STATUS cadence
	TickPeriod   time.Duration // sleep between ticks in Run
	DisplayWidth int
	Clock        Clock
	Logger       zerolog.Logger
}

const (
	defaultDebounce     = 50 * time.Millisecond
	defaultHeartbeat    = 2 * time.Second
	defaultTickPeriod   = 50 * time.Millisecond
	defaultDisplayWidth = 16
)

func (c *Config) applyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = defaultHeartbeat
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = defaultTickPeriod
	}
	if c.DisplayWidth <= 0 {
		c.DisplayWidth = defaultDisplayWidth
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
}

// switch levels; levelNone means no stable reading has been accepted yet,
// so the first stable read always emits a command and syncs the host.
type switchLevel int8

const (
	levelNone switchLevel = iota
	levelOff
	levelOn
)

// Controller owns all device-side state. Nothing here is shared: one
// Controller, one goroutine.
type Controller struct {
	cfg  Config
	sw   Switch
	disp Display
	tr   Transport

	lastLevel     switchLevel
	status        types.StatusMessage
	spinnerIdx    int
	lastHeartbeat time.Time
}

// New wires a controller. The display shows a splash until the first status
// line arrives.
func New(sw Switch, disp Display, tr Transport, cfg Config) *Controller {
	cfg.applyDefaults()
	c := &Controller{cfg: cfg, sw: sw, disp: disp, tr: tr, status: types.StatusMessage{State: types.StateUnknown}}
	disp.SetBacklight(true)
	c.render("PicoSwitch", "Connecting...")
	return c
}

// Tick runs one iteration of the device loop: debounce, toggle emission,
// heartbeat, and at most one inbound line.
func (c *Controller) Tick() {
	c.pollSwitch()
	c.pollHeartbeat()
	c.pollStatus()
}

// Run ticks until the context is canceled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.Tick()
		c.cfg.Clock.Sleep(c.cfg.TickPeriod)
	}
}

// pollSwitch debounces the pin and emits CMD:ON/CMD:OFF once per physical
// toggle. An unstable pair of reads counts as no change for this tick.
func (c *Controller) pollSwitch() {
	raw := c.sw.Read()
	c.cfg.Clock.Sleep(c.cfg.Debounce)
	if c.sw.Read() != raw {
		return
	}
	level := levelOff
	cmd := types.CmdOff
	if raw {
		level = levelOn
		cmd = types.CmdOn
	}
	if level == c.lastLevel {
		return
	}
	c.lastLevel = level
	c.writeLine(protocol.EncodeCommand(cmd))
}

// pollHeartbeat emits CMD:STATUS on a fixed cadence, independent of switch
// activity. The zero lastHeartbeat makes the first tick query immediately.
func (c *Controller) pollHeartbeat() {
	now := c.cfg.Clock.Now()
	if now.Sub(c.lastHeartbeat) < c.cfg.Heartbeat {
		return
	}
	c.lastHeartbeat = now
	c.writeLine(protocol.EncodeCommand(types.CmdStatus))
}

// pollStatus consumes at most one inbound line per tick and re-renders on
// any applied decode, partial ones included.
func (c *Controller) pollStatus() {
	line, ok := c.tr.ReadLine()
	if !ok {
		return
	}
	next, res := protocol.DecodeStatus(line, c.status)
	if !res.Applied() {
		c.cfg.Logger.Debug().Str("line", line).Msg("discarding unrecognized line")
		return
	}
	c.status = next
	line1, line2 := composeLines(c.status, c.cfg.DisplayWidth, &c.spinnerIdx)
	c.render(line1, line2)
}

func (c *Controller) writeLine(line string) {
	if err := c.tr.WriteLine(line); err != nil {
		c.cfg.Logger.Warn().Err(err).Str("line", line).Msg("serial write failed")
	}
}

// render swallows display errors; a broken frame must not kill the loop.
func (c *Controller) render(line1, line2 string) {
	if err := c.disp.Render(line1, line2); err != nil {
		c.cfg.Logger.Warn().Err(err).Msg("display render failed")
	}
}

// Status returns the latest decoded status, for the simulator UI.
func (c *Controller) Status() types.StatusMessage { return c.status }
