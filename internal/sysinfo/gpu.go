package sysinfo

import (
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"picoswitch/pkg/types"
)

// GPU returns used/total GPU memory in MiB, summed across all GPUs that
// nvidia-smi reports.
func (s *Sampler) GPU(ctx context.Context) (types.ResourceSample, error) {
	ctx, cancel := withSampleTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.nvidiaSMIBin,
		"--query-gpu=memory.used,memory.total", "--format=csv,noheader,nounits")
	out, err := cmd.Output()
	if err != nil {
		return types.ResourceSample{}, fmt.Errorf("calling nvidia-smi: %w", err)
	}
	return parseNvidiaSMI(out)
}

func parseNvidiaSMI(out []byte) (types.ResourceSample, error) {
	r := csv.NewReader(strings.NewReader(string(out)))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return types.ResourceSample{}, fmt.Errorf("parsing nvidia-smi output: %w", err)
	}

	var sample types.ResourceSample
	rows := 0
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		used, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			return types.ResourceSample{}, fmt.Errorf("parsing nvidia-smi used field %q: %w", record[0], err)
		}
		total, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
		if err != nil {
			return types.ResourceSample{}, fmt.Errorf("parsing nvidia-smi total field %q: %w", record[1], err)
		}
		sample.UsedMB += used
		sample.TotalMB += total
		rows++
	}
	if rows == 0 {
		return types.ResourceSample{}, fmt.Errorf("nvidia-smi reported no GPUs")
	}
	return sample, nil
}
