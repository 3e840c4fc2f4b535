// Package protocol implements the newline-delimited serial contract between
// the device controller and the host daemon.
//
// Device -> host: CMD:ON, CMD:OFF, CMD:STATUS.
// Host -> device: STAT:<state>|<gpu_used>|<gpu_total>|<ram_used>|<ram_total>
// with all memory figures as base-10 MiB integers.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"picoswitch/pkg/types"
)

const (
	statusPrefix  = "STAT:"
	commandPrefix = "CMD:"
	fieldSep      = "|"
	numFields     = 5
)

// DecodeResult tags the outcome of DecodeStatus.
type DecodeResult int

const (
	// DecodeOK: the line was a well-formed status line and fully applied.
	DecodeOK DecodeResult = iota
	// DecodePartial: the state token was applied but at least one numeric
	// field failed to parse, so all four numeric fields kept their prior
	// values.
	DecodePartial
	// DecodeNotStatus: the line did not carry the STAT: prefix.
	DecodeNotStatus
	// DecodeMalformed: STAT: prefix but the wrong number of fields.
	DecodeMalformed
)

// Applied reports whether the decode changed anything worth re-rendering.
func (r DecodeResult) Applied() bool { return r == DecodeOK || r == DecodePartial }

// EncodeStatus renders a status line without the trailing newline. The state
// is written in its canonical lower-case spelling.
func EncodeStatus(m types.StatusMessage) string {
	return fmt.Sprintf("%s%s|%d|%d|%d|%d", statusPrefix,
		string(m.State), m.GPU.UsedMB, m.GPU.TotalMB, m.RAM.UsedMB, m.RAM.TotalMB)
}

// DecodeStatus applies a status line on top of prev and returns the result.
// Lines without the STAT: prefix or with the wrong arity leave prev
// untouched. The state token is always accepted (unrecognized tokens fold to
// StateUnknown); the four numeric fields update atomically or not at all.
func DecodeStatus(line string, prev types.StatusMessage) (types.StatusMessage, DecodeResult) {
	if !strings.HasPrefix(line, statusPrefix) {
		return prev, DecodeNotStatus
	}
	parts := strings.Split(line[len(statusPrefix):], fieldSep)
	if len(parts) != numFields {
		return prev, DecodeMalformed
	}

	next := prev
	next.State = types.ParseRunState(parts[0])

	var nums [4]uint64
	for i, p := range parts[1:] {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return next, DecodePartial
		}
		nums[i] = v
	}
	next.GPU = types.ResourceSample{UsedMB: nums[0], TotalMB: nums[1]}
	next.RAM = types.ResourceSample{UsedMB: nums[2], TotalMB: nums[3]}
	return next, DecodeOK
}

// EncodeCommand renders a command line without the trailing newline.
func EncodeCommand(c types.Command) string {
	return commandPrefix + c.String()
}

// ParseCommand recognizes the three exact command tokens. Anything else,
// including parameterized or lower-case variants, is rejected.
func ParseCommand(line string) (types.Command, bool) {
	switch line {
	case "CMD:ON":
		return types.CmdOn, true
	case "CMD:OFF":
		return types.CmdOff, true
	case "CMD:STATUS":
		return types.CmdStatus, true
	default:
		return 0, false
	}
}
