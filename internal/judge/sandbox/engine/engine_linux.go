//go:build linux

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux process engine.
func NewEngine(cfg Config) (Engine, error) {
	cfg.applyDefaults()
	if cfg.UseHelper {
		if _, err := exec.LookPath(cfg.HelperPath); err != nil {
			return nil, fmt.Errorf("sandbox helper not found: %w", err)
		}
	}
	if cfg.EnableSeccomp && !cfg.UseHelper {
		return nil, fmt.Errorf("seccomp requires the sandbox helper")
	}
	if cfg.EnableCgroup && cfg.CgroupRoot == "" {
		return nil, fmt.Errorf("cgroup root is required")
	}
	return &linuxEngine{cfg: cfg}, nil
}

func (e *linuxEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.RunResult{}, err
	}

	cgroupPath := ""
	if e.cfg.EnableCgroup {
		path, cleanup, err := createRunCgroup(e.cfg.CgroupRoot, runSpec.SubmissionID, runSpec.TestID)
		if err != nil {
			return result.RunResult{}, fmt.Errorf("create cgroup: %w", err)
		}
		defer cleanup()
		if err := applyCgroupLimits(path, runSpec.Limits); err != nil {
			return result.RunResult{}, fmt.Errorf("apply cgroup limits: %w", err)
		}
		cgroupPath = path
	}

	cmd, closeFiles, err := e.buildCommand(runSpec)
	if err != nil {
		return result.RunResult{}, err
	}
	defer closeFiles()

	var helperStderr bytes.Buffer
	if e.cfg.UseHelper {
		cmd.Stderr = &helperStderr
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.RunResult{}, fmt.Errorf("start process: %w", err)
	}
	if cgroupPath != "" {
		if err := addProcessToCgroup(cgroupPath, cmd.Process.Pid); err != nil {
			logger.Warn(ctx, "add process to cgroup failed", zap.String("cgroup", cgroupPath), zap.Error(err))
		}
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if wallLimit := durationFromMs(runSpec.Limits.WallTimeMs); wallLimit > 0 {
			timer := time.NewTimer(wallLimit)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-ctx.Done():
			killProcessGroup(cmd.Process.Pid)
		case <-wallTimer:
			timedOut.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	wallTimeMs := time.Since(start).Milliseconds()

	if waitErr != nil && helperStderr.Len() > 0 {
		logger.Warn(ctx, "sandbox helper failed", zap.String("stderr", helperStderr.String()))
	}
	if !timedOut.Load() && ctx.Err() != nil {
		return result.RunResult{}, ctx.Err()
	}

	runResult := result.RunResult{
		ExitCode:   exitCodeFromErr(waitErr, cmd.ProcessState),
		TimeMs:     cpuTimeMs(cmd.ProcessState),
		WallTimeMs: wallTimeMs,
		MemoryKB:   memoryPeakKB(cgroupPath, cmd.ProcessState),
		OutputKB:   fileSizeKB(runSpec.StdoutPath),
		Stdout:     readLimitedFile(runSpec.StdoutPath, e.cfg.StdoutMaxBytes),
		Stderr:     readLimitedFile(runSpec.StderrPath, e.cfg.StderrMaxBytes),
		TimedOut:   timedOut.Load(),
		OomKilled:  wasOomKilled(cgroupPath),
	}
	if runResult.TimedOut && runResult.ExitCode == 0 {
		runResult.ExitCode = -1
	}
	return runResult, nil
}

// buildCommand starts the target directly, or the helper with the target described on stdin.
func (e *linuxEngine) buildCommand(runSpec spec.RunSpec) (*exec.Cmd, func(), error) {
	attr := &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	if e.cfg.UseHelper {
		stdinPipe, err := jsonToPipe(initRequest{
			RunSpec:        runSpec,
			SeccompProfile: e.cfg.SeccompProfile,
			EnableSeccomp:  e.cfg.EnableSeccomp,
		})
		if err != nil {
			return nil, func() {}, fmt.Errorf("encode init request: %w", err)
		}
		cmd := exec.Command(e.cfg.HelperPath)
		cmd.SysProcAttr = attr
		cmd.Stdin = stdinPipe
		return cmd, func() { _ = stdinPipe.Close() }, nil
	}

	var files []*os.File
	closeFiles := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	open := func(path string, flag int) (*os.File, error) {
		if path == "" {
			path = os.DevNull
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		return f, nil
	}
	stdin, err := open(runSpec.StdinPath, os.O_RDONLY)
	if err != nil {
		closeFiles()
		return nil, func() {}, fmt.Errorf("open stdin: %w", err)
	}
	stdout, err := open(runSpec.StdoutPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		closeFiles()
		return nil, func() {}, fmt.Errorf("open stdout: %w", err)
	}
	stderr, err := open(runSpec.StderrPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		closeFiles()
		return nil, func() {}, fmt.Errorf("open stderr: %w", err)
	}

	cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
	cmd.Dir = runSpec.WorkDir
	if len(runSpec.Env) > 0 {
		cmd.Env = runSpec.Env
	}
	cmd.SysProcAttr = attr
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd, closeFiles, nil
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}
	if len(runSpec.Cmd) == 0 {
		return fmt.Errorf("command is required")
	}
	return nil
}

func jsonToPipe(req initRequest) (io.ReadCloser, error) {
	reader, writer := io.Pipe()
	go func() {
		err := json.NewEncoder(writer).Encode(req)
		_ = writer.CloseWithError(err)
	}()
	return reader, nil
}
