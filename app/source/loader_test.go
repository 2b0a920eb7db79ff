package source

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinition(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	writeDefinition(t, dir, "cisa-kev.yml", `
name: CISA KEV
kind: generic_api
url: https://example.com/kev.json
cron: "*/30 * * * *"
categories: [vulnerabilities]
mapping:
  arrayPath: vulnerabilities
  titleField: vulnerabilityName
`)
	writeDefinition(t, dir, "ghsa.yml", `
kind: github_releases
url: https://api.github.com/advisories
enabled: false
visibility:
  scope: groups
  group_ids: [g1]
`)

	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	kev, err := defs[0].Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if kev.ID != "cisa-kev" || kev.Name != "CISA KEV" {
		t.Errorf("unexpected id/name: %q/%q", kev.ID, kev.Name)
	}
	if kev.Kind != KindGenericAPI {
		t.Errorf("expected kind %q, got %q", KindGenericAPI, kev.Kind)
	}
	if !kev.Enabled {
		t.Error("expected source to default to enabled")
	}
	if got := kev.Mapping.String("titleField", "title"); got != "vulnerabilityName" {
		t.Errorf("expected mapped title field, got %q", got)
	}
	if kev.VisibilityScope != VisibilityPublic {
		t.Errorf("expected public visibility, got %q", kev.VisibilityScope)
	}
	if len(defs[0].Categories) != 1 || defs[0].Categories[0] != "vulnerabilities" {
		t.Errorf("unexpected categories: %v", defs[0].Categories)
	}

	ghsa, err := defs[1].Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if ghsa.Kind != KindAdvisory {
		t.Errorf("expected alias to resolve to %q, got %q", KindAdvisory, ghsa.Kind)
	}
	if ghsa.Enabled {
		t.Error("expected source to be disabled")
	}
	if ghsa.Cron != DefaultCron {
		t.Errorf("expected default cron, got %q", ghsa.Cron)
	}
	if ghsa.Name != "ghsa" {
		t.Errorf("expected name to fall back to id, got %q", ghsa.Name)
	}
}

func TestLoadDirMissing(t *testing.T) {
	defs, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("expected no definitions, got %d", len(defs))
	}
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", "kind: rss\n"},
		{"unknown kind", "kind: carrier_pigeon\nurl: https://example.com\n"},
		{"groups without ids", "kind: rss\nurl: https://example.com\nvisibility:\n  scope: groups\n"},
		{"bad scope", "kind: rss\nurl: https://example.com\nvisibility:\n  scope: secret\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDefinition(t, dir, "src.yml", tt.body)
			if _, err := LoadFile(filepath.Join(dir, "src.yml")); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMappingString(t *testing.T) {
	m := Mapping{"a": "  x ", "n": 3, "empty": "", "nil": nil}

	if got := m.String("a", "d"); got != "x" {
		t.Errorf("expected trimmed value, got %q", got)
	}
	if got := m.String("n", "d"); got != "3" {
		t.Errorf("expected formatted number, got %q", got)
	}
	for _, key := range []string{"empty", "nil", "missing"} {
		if got := m.String(key, "d"); got != "d" {
			t.Errorf("%s: expected default, got %q", key, got)
		}
	}
	var nilMap Mapping
	if got := nilMap.String("a", "d"); got != "d" {
		t.Errorf("nil mapping: expected default, got %q", got)
	}
}
