// Package workspace manages the scratch directories a judging unit builds and runs in.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codejudge/internal/judge/sandbox/profile"
)

// Artifact is a prepared workspace holding the source and, for compiled
// languages, the built program. It is owned by one judging unit.
type Artifact struct {
	Dir      string
	Language profile.LanguageSpec

	once sync.Once
	err  error
}

// Create makes a fresh directory under root and writes the source into it.
func Create(root string, lang profile.LanguageSpec, source string) (*Artifact, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "judge-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	// The sandboxed program may run as another user through the init helper.
	if err := os.Chmod(dir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("chmod workspace: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, lang.SourceFile), []byte(source), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write source: %w", err)
	}
	return &Artifact{Dir: dir, Language: lang}, nil
}

// RunCommand returns the command that starts the program.
func (a *Artifact) RunCommand() []string {
	return a.Language.RunCommand(a.Dir)
}

// CompileCommand returns the build command, nil for interpreted languages.
func (a *Artifact) CompileCommand() []string {
	return a.Language.CompileCommand(a.Dir)
}

// Release removes the workspace. It is safe to call more than once.
func (a *Artifact) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		a.err = os.RemoveAll(a.Dir)
	})
	return a.err
}

// RunFiles are the stdio files of one process run.
type RunFiles struct {
	Dir    string
	Stdin  string
	Stdout string
	Stderr string
}

// NewRun creates a per-run directory inside the workspace and writes input to it.
func (a *Artifact) NewRun(name, input string) (RunFiles, func(), error) {
	dir, err := os.MkdirTemp(a.Dir, name+"-*")
	if err != nil {
		return RunFiles{}, func() {}, fmt.Errorf("create run dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	if err := os.Chmod(dir, 0o777); err != nil {
		cleanup()
		return RunFiles{}, func() {}, fmt.Errorf("chmod run dir: %w", err)
	}
	files := RunFiles{
		Dir:    dir,
		Stdin:  filepath.Join(dir, "input.txt"),
		Stdout: filepath.Join(dir, "output.txt"),
		Stderr: filepath.Join(dir, "error.txt"),
	}
	if err := os.WriteFile(files.Stdin, []byte(input), 0o644); err != nil {
		cleanup()
		return RunFiles{}, func() {}, fmt.Errorf("write input: %w", err)
	}
	return files, cleanup, nil
}
