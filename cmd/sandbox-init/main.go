//go:build linux

// Command sandbox-init is started by the judge engine in place of the target
// program. It reads a JSON request on stdin, narrows its own process with rlimits
// and an optional seccomp filter, wires stdio to the run files, then execs.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"codejudge/internal/judge/sandbox/spec"

	"golang.org/x/sys/unix"
)

const defaultPath = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// initRequest mirrors the document the engine encodes.
type initRequest struct {
	RunSpec        spec.RunSpec
	SeccompProfile string
	EnableSeccomp  bool
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run() error {
	req, err := decodeRequest(os.Stdin)
	if err != nil {
		return err
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	if err := os.Chdir(req.RunSpec.WorkDir); err != nil {
		return fmt.Errorf("chdir workdir: %w", err)
	}

	cmdPath, err := exec.LookPath(req.RunSpec.Cmd[0])
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}
	if err := applyRlimits(rlimitsFor(req.RunSpec.Limits)); err != nil {
		return err
	}
	if err := redirectIO(req.RunSpec); err != nil {
		return err
	}
	// Loaded last: the filter may forbid the syscalls used above.
	if req.EnableSeccomp && req.SeccompProfile != "" {
		if err := applySeccomp(req.SeccompProfile); err != nil {
			return err
		}
	}
	return unix.Exec(cmdPath, req.RunSpec.Cmd, buildEnv(req.RunSpec.Env))
}

func decodeRequest(r io.Reader) (initRequest, error) {
	var req initRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return initRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func validateRequest(req initRequest) error {
	if len(req.RunSpec.Cmd) == 0 {
		return fmt.Errorf("command is required")
	}
	if req.RunSpec.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}
	return nil
}

func redirectIO(runSpec spec.RunSpec) error {
	type target struct {
		path string
		flag int
		fd   int
	}
	targets := []target{
		{runSpec.StdinPath, os.O_RDONLY, unix.Stdin},
		{runSpec.StdoutPath, os.O_CREATE | os.O_WRONLY | os.O_TRUNC, unix.Stdout},
		{runSpec.StderrPath, os.O_CREATE | os.O_WRONLY | os.O_TRUNC, unix.Stderr},
	}
	for _, t := range targets {
		path := t.path
		if path == "" {
			path = os.DevNull
		}
		f, err := os.OpenFile(path, t.flag, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		if err := unix.Dup2(int(f.Fd()), t.fd); err != nil {
			_ = f.Close()
			return fmt.Errorf("dup fd %d: %w", t.fd, err)
		}
		_ = f.Close()
	}
	return nil
}

// buildEnv keeps the given environment or falls back to a bare PATH.
func buildEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.Contains(kv, "=") {
			out = append(out, kv)
		}
	}
	if len(out) == 0 {
		return []string{defaultPath}
	}
	return out
}
