package sysinfo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"picoswitch/pkg/types"
)

// RAM returns used/total system memory in MiB, where used is
// MemTotal - MemAvailable.
func (s *Sampler) RAM(ctx context.Context) (types.ResourceSample, error) {
	if err := ctx.Err(); err != nil {
		return types.ResourceSample{}, err
	}
	b, err := os.ReadFile(s.memInfoPath)
	if err != nil {
		return types.ResourceSample{}, fmt.Errorf("reading %s: %w", s.memInfoPath, err)
	}
	return parseMemInfo(b)
}

func parseMemInfo(b []byte) (types.ResourceSample, error) {
	var memTotal, memAvailable uint64
	var haveTotal, haveAvailable bool

	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		// values are in kB
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			v, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return types.ResourceSample{}, fmt.Errorf("parsing MemTotal %q: %w", fields[1], err)
			}
			memTotal, haveTotal = v, true
		case "MemAvailable":
			v, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return types.ResourceSample{}, fmt.Errorf("parsing MemAvailable %q: %w", fields[1], err)
			}
			memAvailable, haveAvailable = v, true
		}
	}
	if !haveTotal || !haveAvailable {
		return types.ResourceSample{}, fmt.Errorf("meminfo missing MemTotal or MemAvailable")
	}

	sample := types.ResourceSample{TotalMB: memTotal / 1024}
	if memTotal > memAvailable {
		sample.UsedMB = (memTotal - memAvailable) / 1024
	}
	return sample, nil
}
