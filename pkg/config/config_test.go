package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	s.valid = true
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("COURSEMARK_TEST_NAME", "library")
	p := writeFile(t, "name: ${COURSEMARK_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "library" || s.Port != 9000 || !s.valid {
		t.Errorf("sample = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeFile(t, "name: x\nport: 0\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Port: 1}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Port != 1 || !s.valid {
		t.Errorf("sample = %+v", s)
	}

	p := writeFile(t, "port: 7\n")
	if err := LoadOptional(p, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Port != 7 {
		t.Errorf("port = %d", s.Port)
	}
}
