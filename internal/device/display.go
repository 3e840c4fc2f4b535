package device

import (
	"fmt"
	"strings"

	"picoswitch/pkg/types"
)

// spinner frames shown while the server is starting or stopping.
const spinner = `|/-\`

// formatGB renders a GiB value compactly: one decimal below 10, whole
// numbers from 10 up. 9.6 -> "9.6G", 10.4 -> "10G".
func formatGB(v float64) string {
	if v >= 10 {
		return fmt.Sprintf("%.0fG", v)
	}
	return fmt.Sprintf("%.1fG", v)
}

// fitWidth truncates or space-pads s to exactly w characters.
func fitWidth(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

// stateGlyph returns the one-character run-state indicator. The spinner
// index advances once per call while in a transitional state; it is a
// display-local counter, never transmitted.
func stateGlyph(state types.RunState, spinnerIdx *int) byte {
	switch state {
	case types.StateRunning:
		return 'U'
	case types.StateStopped:
		return 'D'
	case types.StateStarting, types.StateStopping:
		c := spinner[*spinnerIdx%len(spinner)]
		*spinnerIdx++
		return c
	default:
		return '?'
	}
}

// composeLines builds the two display lines from the latest status. Line 1
// is VRAM with the run-state glyph in the last cell; line 2 is RAM.
func composeLines(m types.StatusMessage, width int, spinnerIdx *int) (string, string) {
	vramUsed := float64(m.GPU.UsedMB) / 1024.0
	vramTotal := float64(m.GPU.TotalMB) / 1024.0
	ramUsed := float64(m.RAM.UsedMB) / 1024.0
	ramTotal := float64(m.RAM.TotalMB) / 1024.0

	line1 := fitWidth(fmt.Sprintf("VRAM %s/%s", formatGB(vramUsed), formatGB(vramTotal)), width-1)
	line1 += string(stateGlyph(m.State, spinnerIdx))
	line2 := fitWidth(fmt.Sprintf("RAM  %s/%s", formatGB(ramUsed), formatGB(ramTotal)), width)
	return line1, line2
}
