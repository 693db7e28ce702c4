package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "productos")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\nport: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "productos" || s.Port != 9000 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptionalMissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Port != 8080 {
		t.Errorf("defaults changed: %+v", s)
	}

	var empty sample
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &empty); err == nil {
		t.Error("invalid defaults should still fail validation")
	}
}

func TestLoadOptionalOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Port != 9100 {
		t.Errorf("got %+v", s)
	}
}
