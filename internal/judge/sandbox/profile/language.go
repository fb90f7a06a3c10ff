// Package profile holds the closed set of supported languages and their toolchain commands.
package profile

import (
	"fmt"
	"sort"
	"strings"

	appErr "codejudge/pkg/errors"

	"github.com/google/shlex"
)

// Placeholders expanded in command templates.
const (
	PlaceholderDir    = "{dir}"
	PlaceholderSource = "{src}"
)

// LanguageSpec describes how one language is built and started.
type LanguageSpec struct {
	ID         string
	SourceFile string
	// CompileCmd is empty for interpreted languages.
	CompileCmd []string
	RunCmd     []string
}

// CompileEnabled reports whether the language needs a build step.
func (l LanguageSpec) CompileEnabled() bool {
	return len(l.CompileCmd) > 0
}

// CompileCommand expands the compile template for a workspace directory.
func (l LanguageSpec) CompileCommand(dir string) []string {
	return expand(l.CompileCmd, dir, l.SourceFile)
}

// RunCommand expands the run template for a workspace directory.
func (l LanguageSpec) RunCommand(dir string) []string {
	return expand(l.RunCmd, dir, l.SourceFile)
}

func expand(tmpl []string, dir, source string) []string {
	if len(tmpl) == 0 {
		return nil
	}
	out := make([]string, len(tmpl))
	for i, arg := range tmpl {
		arg = strings.ReplaceAll(arg, PlaceholderDir, dir)
		out[i] = strings.ReplaceAll(arg, PlaceholderSource, source)
	}
	return out
}

// LanguageConfig overrides one language from YAML. Commands are shell-quoted strings.
type LanguageConfig struct {
	SourceFile string `yaml:"sourceFile"`
	Compile    string `yaml:"compile"`
	Run        string `yaml:"run"`
}

var defaultLanguages = map[string]LanguageConfig{
	"python3": {SourceFile: "solution.py", Run: "python3 solution.py"},
	"c":       {SourceFile: "solution.c", Compile: "gcc -o solution solution.c", Run: "./solution"},
	"cpp":     {SourceFile: "solution.cpp", Compile: "g++ -o solution solution.cpp -std=c++17", Run: "./solution"},
	"java":    {SourceFile: "Solution.java", Compile: "javac Solution.java", Run: "java -cp {dir} Solution"},
}

// Registry resolves language ids.
type Registry struct {
	languages map[string]LanguageSpec
}

// NewRegistry builds the default language table with overrides applied.
// Overrides may only replace known languages; the set itself is closed.
func NewRegistry(overrides map[string]LanguageConfig) (*Registry, error) {
	languages := make(map[string]LanguageSpec, len(defaultLanguages))
	for id, cfg := range defaultLanguages {
		if o, ok := overrides[id]; ok {
			cfg = merge(cfg, o)
		}
		spec, err := parseLanguage(id, cfg)
		if err != nil {
			return nil, err
		}
		languages[id] = spec
	}
	for id := range overrides {
		if _, ok := defaultLanguages[id]; !ok {
			return nil, fmt.Errorf("unknown language %q", id)
		}
	}
	return &Registry{languages: languages}, nil
}

// Lookup returns the spec of a language or LanguageNotSupported.
func (r *Registry) Lookup(id string) (LanguageSpec, error) {
	spec, ok := r.languages[id]
	if !ok {
		return LanguageSpec{}, appErr.New(appErr.LanguageNotSupported).WithDetail("language", id)
	}
	return spec, nil
}

// IDs returns the supported language ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.languages))
	for id := range r.languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func merge(base, o LanguageConfig) LanguageConfig {
	if o.SourceFile != "" {
		base.SourceFile = o.SourceFile
	}
	if o.Compile != "" {
		base.Compile = o.Compile
	}
	if o.Run != "" {
		base.Run = o.Run
	}
	return base
}

func parseLanguage(id string, cfg LanguageConfig) (LanguageSpec, error) {
	if cfg.SourceFile == "" || strings.ContainsAny(cfg.SourceFile, `/\`) {
		return LanguageSpec{}, fmt.Errorf("language %s: invalid source file %q", id, cfg.SourceFile)
	}
	spec := LanguageSpec{ID: id, SourceFile: cfg.SourceFile}
	if cfg.Compile != "" {
		args, err := shlex.Split(cfg.Compile)
		if err != nil {
			return LanguageSpec{}, fmt.Errorf("language %s: parse compile command: %w", id, err)
		}
		spec.CompileCmd = args
	}
	args, err := shlex.Split(cfg.Run)
	if err != nil {
		return LanguageSpec{}, fmt.Errorf("language %s: parse run command: %w", id, err)
	}
	if len(args) == 0 {
		return LanguageSpec{}, fmt.Errorf("language %s: run command is required", id)
	}
	spec.RunCmd = args
	return spec, nil
}
