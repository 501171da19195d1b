package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaultsWhenNothingIsConfigured(t *testing.T) {
	isolate(t)
	projectDir := t.TempDir()
	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Synth.Backend != BackendReflect || cfg.Synth.Suffix != "Value" || cfg.Synth.Container != "valobj" {
		t.Fatalf("unexpected synth defaults: %+v", cfg.Synth)
	}
	if cfg.Generate.Package != "values" {
		t.Fatalf("unexpected package default %q", cfg.Generate.Package)
	}
	if cfg.Level() != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %s", cfg.Level())
	}
	if cfg.ContractsDir() != filepath.Join(projectDir, "contracts") {
		t.Fatalf("contracts dir not resolved: %s", cfg.ContractsDir())
	}
}

func TestProjectFileOverridesUserFile(t *testing.T) {
	userHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userHome)
	userDir := filepath.Join(userHome, "valobj")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	userYAML := "synth:\n  suffix: Impl\n  container: user\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	projectDir := t.TempDir()
	projectYAML := "synth:\n  container: project\n  backend: Interpreted\n"
	if err := os.WriteFile(filepath.Join(projectDir, ProjectFile), []byte(projectYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(projectDir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Synth.Suffix != "Impl" {
		t.Fatalf("user suffix lost: %q", cfg.Synth.Suffix)
	}
	if cfg.Synth.Container != "project" {
		t.Fatalf("project file must win over user file: %q", cfg.Synth.Container)
	}
	if cfg.Synth.Backend != BackendInterpreted {
		t.Fatalf("backend not normalized: %q", cfg.Synth.Backend)
	}
	if cfg.Level() != zapcore.DebugLevel {
		t.Fatalf("expected debug level, got %s", cfg.Level())
	}
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	isolate(t)
	projectDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(projectDir, ProjectFile), []byte("generate:\n  package: fromfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VALOBJ_GENERATE_PACKAGE", "fromenv")
	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Generate.Package != "fromenv" {
		t.Fatalf("environment must win, got %q", cfg.Generate.Package)
	}
	if got, ok := cfg.Value("generate.package"); !ok || got != "fromenv" {
		t.Fatalf("Value returned %v %v", got, ok)
	}
}

func TestLoadFromPathValidation(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "backend", yaml: "synth:\n  backend: bytecode\n", want: "synth.backend"},
		{name: "package", yaml: "generate:\n  package: not-a-package\n", want: "generate.package"},
		{name: "suffix", yaml: "synth:\n  suffix: \"-x\"\n", want: "synth.suffix"},
		{name: "level", yaml: "log:\n  level: loud\n", want: "log.level"},
		{name: "container", yaml: "synth:\n  container: \"  \"\n", want: "synth.container"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFromPath(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}

func TestInitDirCreatesStateAndProjectFile(t *testing.T) {
	isolate(t)
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("InitDir returned error: %v", err)
	}
	if info, err := os.Stat(filepath.Join(projectDir, Dir, "logs")); err != nil || !info.IsDir() {
		t.Fatalf("logs dir missing: %v", err)
	}
	path := filepath.Join(projectDir, ProjectFile)
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("default project file must load: %v", err)
	}
	if cfg.OutDir() != filepath.Join(projectDir, "generated") {
		t.Fatalf("out dir=%s", cfg.OutDir())
	}

	if err := os.WriteFile(path, []byte("synth:\n  suffix: Kept\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("second InitDir returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Kept") {
		t.Fatalf("existing project file must not be overwritten")
	}
}

func TestKeysListsEverySetting(t *testing.T) {
	isolate(t)
	keys := Default().Keys()
	want := []string{"contracts.dir", "generate.out", "generate.package", "log.level", "synth.backend", "synth.container", "synth.suffix"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys=%v", keys)
	}
}
