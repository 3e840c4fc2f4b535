// Package hostd implements the host side of the serial link: a single-owner
// loop that reads command lines, fires detached container runtime calls and
// answers with freshly composed status lines. Nothing in a cycle blocks on
// the container becoming ready; truthfulness is eventually consistent via
// the device heartbeat.
package hostd

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"picoswitch/internal/protocol"
	"picoswitch/pkg/types"
)

// ContainerRuntime is the compose collaborator. Up and Down must return as
// soon as the subprocess is spawned.
type ContainerRuntime interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	RawStatus(ctx context.Context) (string, error)
}

// Sampler reads current resource usage. Each call is independently fallible
// and never retried within a cycle.
type Sampler interface {
	GPU(ctx context.Context) (types.ResourceSample, error)
	RAM(ctx context.Context) (types.ResourceSample, error)
}

// LineTransport is the serial channel. ReadLine waits at most the
// transport's configured timeout; ok=false means a quiet link. A non-nil
// error means the channel is gone, which is fatal to the daemon.
type LineTransport interface {
	ReadLine() (line string, ok bool, err error)
	WriteLine(line string) error
}

// Daemon bridges serial commands to the container runtime. State is
// single-owner; the mutex only guards the snapshot read by the HTTP layer.
type Daemon struct {
	rt      ContainerRuntime
	sampler Sampler
	tr      LineTransport
	log     zerolog.Logger

	mu   sync.RWMutex
	last types.StatusMessage
}

func New(rt ContainerRuntime, sampler Sampler, tr LineTransport, log zerolog.Logger) *Daemon {
	return &Daemon{
		rt:      rt,
		sampler: sampler,
		tr:      tr,
		log:     log,
		last:    types.StatusMessage{State: types.StateUnknown},
	}
}

// Run reads and dispatches lines until the context is canceled or the
// transport fails. Malformed lines are discarded; they never stop the loop.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info().Msg("listening")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line, ok, err := d.tr.ReadLine()
		if err != nil {
			return err
		}
		if !ok || line == "" {
			continue
		}
		d.handle(ctx, line)
	}
}

// handle dispatches one inbound line. On/Off fire a detached runtime call
// and then report state as of that instant; Status only reports.
func (d *Daemon) handle(ctx context.Context, line string) {
	cmd, ok := protocol.ParseCommand(line)
	if !ok {
		discardedLinesTotal.Inc()
		d.log.Debug().Str("line", line).Msg("discarding unrecognized line")
		return
	}
	d.log.Info().Stringer("command", cmd).Msg("received command")
	commandsTotal.WithLabelValues(cmd.String()).Inc()

	switch cmd {
	case types.CmdOn:
		if err := d.rt.Up(ctx); err != nil {
			d.log.Warn().Err(err).Msg("start request failed")
		}
	case types.CmdOff:
		if err := d.rt.Down(ctx); err != nil {
			d.log.Warn().Err(err).Msg("stop request failed")
		}
	}
	d.sendStatus(ctx)
}

// sendStatus composes and writes one status line. Failures inside a cycle
// degrade to sentinel values instead of being retried.
func (d *Daemon) sendStatus(ctx context.Context) {
	msg := d.composeStatus(ctx)

	d.mu.Lock()
	d.last = msg
	d.mu.Unlock()

	line := protocol.EncodeStatus(msg)
	if err := d.tr.WriteLine(line); err != nil {
		d.log.Warn().Err(err).Msg("status write failed")
		return
	}
	statusesSentTotal.Inc()
	d.log.Debug().Str("line", line).Msg("sent status")
}

// composeStatus queries the runtime and both samplers, each independently
// fallible: a failed runtime query reports state error, a failed sample
// reports 0/0.
func (d *Daemon) composeStatus(ctx context.Context) types.StatusMessage {
	msg := types.StatusMessage{}

	raw, err := d.rt.RawStatus(ctx)
	if err != nil {
		runtimeQueryFailures.Inc()
		d.log.Warn().Err(err).Msg("runtime status query failed")
		msg.State = types.StateError
	} else {
		msg.State = types.RunStateFromContainerStatus(raw)
	}

	if gpu, err := d.sampler.GPU(ctx); err != nil {
		samplerFailures.WithLabelValues("gpu").Inc()
		d.log.Debug().Err(err).Msg("gpu sample failed")
	} else {
		msg.GPU = gpu
	}
	if ram, err := d.sampler.RAM(ctx); err != nil {
		samplerFailures.WithLabelValues("ram").Inc()
		d.log.Debug().Err(err).Msg("ram sample failed")
	} else {
		msg.RAM = ram
	}
	return msg
}

// Status returns the last composed status message, for the HTTP layer.
func (d *Daemon) Status() types.StatusMessage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}
