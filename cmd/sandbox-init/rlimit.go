//go:build linux

package main

import (
	"fmt"

	"codejudge/internal/judge/sandbox/spec"

	"golang.org/x/sys/unix"
)

type rlimit struct {
	resource int
	name     string
	value    uint64
}

// rlimitsFor converts the run limits. Zero fields are left unlimited.
// RLIMIT_CPU is only a backstop: it is rounded up to whole seconds plus one so
// the engine's wall timer normally fires first.
func rlimitsFor(limits spec.ResourceLimit) []rlimit {
	var out []rlimit
	if limits.CPUTimeMs > 0 {
		out = append(out, rlimit{unix.RLIMIT_CPU, "cpu", uint64((limits.CPUTimeMs+999)/1000 + 1)})
	}
	if limits.MemoryMB > 0 {
		out = append(out, rlimit{unix.RLIMIT_AS, "as", uint64(limits.MemoryMB) << 20})
	}
	if limits.OutputMB > 0 {
		out = append(out, rlimit{unix.RLIMIT_FSIZE, "fsize", uint64(limits.OutputMB) << 20})
	}
	if limits.StackMB > 0 {
		out = append(out, rlimit{unix.RLIMIT_STACK, "stack", uint64(limits.StackMB) << 20})
	}
	if limits.PIDs > 0 {
		out = append(out, rlimit{unix.RLIMIT_NPROC, "nproc", uint64(limits.PIDs)})
	}
	return out
}

func applyRlimits(limits []rlimit) error {
	for _, l := range limits {
		if err := unix.Setrlimit(l.resource, &unix.Rlimit{Cur: l.value, Max: l.value}); err != nil {
			return fmt.Errorf("set rlimit %s: %w", l.name, err)
		}
	}
	return nil
}
