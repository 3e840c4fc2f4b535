// Package sysinfo samples host memory figures for status reporting: GPU
// memory via nvidia-smi and system memory via /proc/meminfo.
package sysinfo

import (
	"context"
	"time"
)

const sampleTimeout = 5 * time.Second

// Sampler reads current GPU and RAM usage. The zero value is not usable;
// call NewSampler.
type Sampler struct {
	nvidiaSMIBin string
	memInfoPath  string
}

// Option tweaks a Sampler, mainly for tests.
type Option func(*Sampler)

// WithNvidiaSMI overrides the nvidia-smi binary path.
func WithNvidiaSMI(path string) Option { return func(s *Sampler) { s.nvidiaSMIBin = path } }

// WithMemInfo overrides the meminfo file path.
func WithMemInfo(path string) Option { return func(s *Sampler) { s.memInfoPath = path } }

func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		nvidiaSMIBin: "nvidia-smi",
		memInfoPath:  "/proc/meminfo",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func withSampleTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, sampleTimeout)
}
