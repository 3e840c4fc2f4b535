package sysinfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseNvidiaSMISingleGPU(t *testing.T) {
	out := []byte("512, 8192\n")
	s, err := parseNvidiaSMI(out)
	if err != nil {
		t.Fatalf("parseNvidiaSMI: %v", err)
	}
	if s.UsedMB != 512 || s.TotalMB != 8192 {
		t.Fatalf("got %+v, want 512/8192", s)
	}
}

func TestParseNvidiaSMISumsGPUs(t *testing.T) {
	out := []byte("512, 8192\n1024, 24576\n")
	s, err := parseNvidiaSMI(out)
	if err != nil {
		t.Fatalf("parseNvidiaSMI: %v", err)
	}
	if s.UsedMB != 1536 || s.TotalMB != 32768 {
		t.Fatalf("got %+v, want 1536/32768", s)
	}
}

func TestParseNvidiaSMIRejectsGarbage(t *testing.T) {
	for _, out := range []string{"", "\n", "abc, def\n", "512\n"} {
		if _, err := parseNvidiaSMI([]byte(out)); err == nil {
			t.Errorf("parseNvidiaSMI(%q) succeeded, want error", out)
		}
	}
}

const meminfoSample = `MemTotal:       32795852 kB
MemFree:         1024000 kB
MemAvailable:   16397926 kB
Buffers:          123456 kB
Cached:          7890123 kB
`

func TestParseMemInfo(t *testing.T) {
	s, err := parseMemInfo([]byte(meminfoSample))
	if err != nil {
		t.Fatalf("parseMemInfo: %v", err)
	}
	wantTotal := uint64(32795852 / 1024)
	wantUsed := uint64((32795852 - 16397926) / 1024)
	if s.TotalMB != wantTotal || s.UsedMB != wantUsed {
		t.Fatalf("got %+v, want %d/%d", s, wantUsed, wantTotal)
	}
}

func TestParseMemInfoMissingFields(t *testing.T) {
	if _, err := parseMemInfo([]byte("MemTotal: 1024 kB\n")); err == nil {
		t.Fatalf("parseMemInfo without MemAvailable succeeded, want error")
	}
	if _, err := parseMemInfo([]byte("")); err == nil {
		t.Fatalf("parseMemInfo of empty input succeeded, want error")
	}
}

func TestRAMFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	if err := os.WriteFile(path, []byte(meminfoSample), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSampler(WithMemInfo(path))
	sample, err := s.RAM(context.Background())
	if err != nil {
		t.Fatalf("RAM: %v", err)
	}
	if sample.TotalMB == 0 {
		t.Fatalf("TotalMB = 0, want nonzero")
	}
}

func TestRAMMissingFileFails(t *testing.T) {
	s := NewSampler(WithMemInfo(filepath.Join(t.TempDir(), "nope")))
	if _, err := s.RAM(context.Background()); err == nil {
		t.Fatalf("RAM with missing meminfo succeeded, want error")
	}
}
