package types

import "strings"

// RunState is the lifecycle state of the managed container as both sides of
// the serial link understand it. The serialized spelling is the lower-case
// string value; anything unrecognized maps to StateUnknown on parse.
type RunState string

const (
	StateRunning  RunState = "running"
	StateStarting RunState = "starting"
	StateStopping RunState = "stopping"
	StateStopped  RunState = "stopped"
	StateUnknown  RunState = "unknown"
	StateError    RunState = "error"
)

// ParseRunState normalizes a wire token to a RunState. Unknown tokens are
// accepted and folded to StateUnknown rather than rejected; the display
// layer shows them as '?'.
func ParseRunState(tok string) RunState {
	switch RunState(strings.ToLower(tok)) {
	case StateRunning:
		return StateRunning
	case StateStarting:
		return StateStarting
	case StateStopping:
		return StateStopping
	case StateStopped:
		return StateStopped
	case StateError:
		return StateError
	default:
		return StateUnknown
	}
}

// RunStateFromContainerStatus derives a RunState from the raw status column
// of `podman ps` / `docker ps` (e.g. "Up 3 minutes"). Empty output means the
// runtime could not account for the container and is reported as an error.
func RunStateFromContainerStatus(raw string) RunState {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return StateError
	case strings.Contains(s, "up"):
		return StateRunning
	case strings.Contains(s, "created"), strings.Contains(s, "restarting"):
		return StateStarting
	default:
		return StateStopped
	}
}

// ResourceSample is a used/total memory pair in MiB. used <= total is a
// best-effort expectation, not an invariant; TotalMB may be zero when the
// sampler failed, so consumers must not divide by it blindly.
type ResourceSample struct {
	UsedMB  uint64 `json:"used_mb"`
	TotalMB uint64 `json:"total_mb"`
}

// StatusMessage is the unit sent host -> device. It is rebuilt from scratch
// on every cycle; only the latest value is ever meaningful.
type StatusMessage struct {
	State RunState       `json:"state"`
	GPU   ResourceSample `json:"gpu"`
	RAM   ResourceSample `json:"ram"`
}

// Command is the unit sent device -> host.
type Command int

const (
	CmdOn Command = iota
	CmdOff
	CmdStatus
)

func (c Command) String() string {
	switch c {
	case CmdOn:
		return "ON"
	case CmdOff:
		return "OFF"
	case CmdStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}
