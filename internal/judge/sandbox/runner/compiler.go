package runner

import (
	"context"
	"time"

	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
	"codejudge/internal/judge/sandbox/workspace"
)

// CompileTimeout bounds every toolchain invocation regardless of problem limits.
const CompileTimeout = 30 * time.Second

const compileTimeoutMessage = "Compilation timeout"

// Compiler prepares a workspace for a submission and builds it when the language needs it.
type Compiler struct {
	engine   engine.Engine
	registry *profile.Registry
	workRoot string
	recorder observer.MetricsRecorder
}

// NewCompiler creates a compiler writing workspaces under workRoot (os.TempDir when empty).
func NewCompiler(eng engine.Engine, registry *profile.Registry, workRoot string, recorder observer.MetricsRecorder) *Compiler {
	if recorder == nil {
		recorder = observer.Nop{}
	}
	return &Compiler{engine: eng, registry: registry, workRoot: workRoot, recorder: recorder}
}

// Compile returns a ready artifact on success. On a failed build the artifact is
// already released and CompileResult carries the diagnostic. The error is reserved
// for unsupported languages, workspace faults and cancellation.
func (c *Compiler) Compile(ctx context.Context, languageID, source string) (*workspace.Artifact, result.CompileResult, error) {
	lang, err := c.registry.Lookup(languageID)
	if err != nil {
		return nil, result.CompileResult{}, err
	}
	art, err := workspace.Create(c.workRoot, lang, source)
	if err != nil {
		return nil, result.CompileResult{}, err
	}
	if !lang.CompileEnabled() {
		return art, result.CompileResult{OK: true}, nil
	}

	res, err := c.build(ctx, art)
	if err != nil || !res.OK {
		_ = art.Release()
		return nil, res, err
	}
	return art, res, nil
}

func (c *Compiler) build(ctx context.Context, art *workspace.Artifact) (result.CompileResult, error) {
	files, cleanup, err := art.NewRun("compile", "")
	if err != nil {
		return result.CompileResult{}, err
	}
	defer cleanup()

	start := time.Now()
	raw, err := c.engine.Run(ctx, spec.RunSpec{
		TestID:     "compile",
		WorkDir:    art.Dir,
		Cmd:        art.CompileCommand(),
		StdinPath:  files.Stdin,
		StdoutPath: files.Stdout,
		StderrPath: files.Stderr,
		Limits:     spec.ResourceLimit{WallTimeMs: CompileTimeout.Milliseconds()},
	})
	var res result.CompileResult
	switch {
	case err != nil && ctx.Err() != nil:
		return result.CompileResult{}, ctx.Err()
	case err != nil:
		res = result.CompileResult{ExitCode: -1, Diagnostic: "Compilation error: " + err.Error()}
	case raw.TimedOut:
		res = result.CompileResult{ExitCode: raw.ExitCode, Diagnostic: compileTimeoutMessage}
	case raw.ExitCode != 0:
		res = result.CompileResult{ExitCode: raw.ExitCode, Diagnostic: raw.Stderr}
	default:
		res = result.CompileResult{OK: true}
	}
	res.TimeMs = elapsedMs(start)
	c.recorder.ObserveCompile(ctx, art.Language.ID, res.OK, res.TimeMs)
	return res, nil
}
