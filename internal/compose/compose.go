// Package compose drives the container runtime (podman or docker) behind the
// host daemon. Start and stop are detached so the serial loop never waits on
// container readiness; only the status query is synchronous, with a bounded
// timeout.
package compose

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const queryTimeout = 5 * time.Second

// Runtime wraps compose up/down and container status queries for a single
// compose file and service.
type Runtime struct {
	bin         string
	composeFile string
	container   string
	log         zerolog.Logger
}

// New detects the container runtime (podman preferred, docker fallback) and
// binds it to the given compose file and container name.
func New(composeFile, container string, log zerolog.Logger) *Runtime {
	bin := "docker"
	if _, err := exec.LookPath("podman"); err == nil {
		bin = "podman"
	}
	return &Runtime{
		bin:         bin,
		composeFile: composeFile,
		container:   container,
		log:         log,
	}
}

// Up starts the composed services detached. The subprocess is released
// immediately; readiness is observed later through RawStatus.
func (r *Runtime) Up(ctx context.Context) error {
	r.log.Info().Str("compose_file", r.composeFile).Msg("starting server")
	return r.spawn("compose", "-f", r.composeFile, "up", "-d")
}

// Down stops the composed services detached.
func (r *Runtime) Down(ctx context.Context) error {
	r.log.Info().Str("compose_file", r.composeFile).Msg("stopping server")
	return r.spawn("compose", "-f", r.composeFile, "down")
}

// spawn starts the runtime command without waiting for it. A goroutine reaps
// the process so it never lingers as a zombie.
func (r *Runtime) spawn(args ...string) error {
	cmd := exec.Command(r.bin, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s %s: %w", r.bin, args[0], err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			r.log.Warn().Err(err).Strs("args", args).Msg("runtime command exited with error")
		}
	}()
	return nil
}

// RawStatus returns the trimmed, lower-cased status column of the managed
// container, e.g. "up 3 minutes". Empty output means the container does not
// exist as far as the runtime is concerned.
func (r *Runtime) RawStatus(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.bin, "ps",
		"--filter", "name="+r.container, "--format", "{{.Status}}")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("querying container status: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(string(out))), nil
}
