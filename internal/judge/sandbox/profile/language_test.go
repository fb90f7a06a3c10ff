package profile

import (
	"reflect"
	"testing"

	appErr "codejudge/pkg/errors"
)

func TestDefaultLanguages(t *testing.T) {
	reg, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	if got := reg.IDs(); !reflect.DeepEqual(got, []string{"c", "cpp", "java", "python3"}) {
		t.Fatalf("unexpected ids: %v", got)
	}

	py, _ := reg.Lookup("python3")
	if py.CompileEnabled() {
		t.Fatalf("python3 should not compile")
	}
	if got := py.RunCommand("/w"); !reflect.DeepEqual(got, []string{"python3", "solution.py"}) {
		t.Fatalf("unexpected python run command: %v", got)
	}

	cpp, _ := reg.Lookup("cpp")
	want := []string{"g++", "-o", "solution", "solution.cpp", "-std=c++17"}
	if got := cpp.CompileCommand("/w"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected cpp compile command: %v", got)
	}

	java, _ := reg.Lookup("java")
	if got := java.RunCommand("/tmp/ws"); !reflect.DeepEqual(got, []string{"java", "-cp", "/tmp/ws", "Solution"}) {
		t.Fatalf("unexpected java run command: %v", got)
	}
}

func TestLookupUnknownLanguage(t *testing.T) {
	reg, _ := NewRegistry(nil)
	if _, err := reg.Lookup("rust"); !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
}

func TestOverrides(t *testing.T) {
	reg, err := NewRegistry(map[string]LanguageConfig{
		"cpp": {Compile: `g++ -O2 -o solution {src} "-std=c++20"`},
	})
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	cpp, _ := reg.Lookup("cpp")
	want := []string{"g++", "-O2", "-o", "solution", "solution.cpp", "-std=c++20"}
	if got := cpp.CompileCommand("/w"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected override: %v", got)
	}

	if _, err := NewRegistry(map[string]LanguageConfig{"rust": {Run: "./main"}}); err == nil {
		t.Fatalf("expected unknown language override to fail")
	}
	if _, err := NewRegistry(map[string]LanguageConfig{"c": {SourceFile: "../x.c"}}); err == nil {
		t.Fatalf("expected invalid source file to fail")
	}
}
