package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/straja-ai/fieldsense/internal/field"
)

func TestReadFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.json")
	body := `[{"label":"Email","type":"email"},{"label":"State","type":"select","options":["Alabama","Alaska"]}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fields, err := readFields(path)
	if err != nil {
		t.Fatalf("readFields: %v", err)
	}
	if len(fields) != 2 || fields[1].Kind != field.KindDropdown || len(fields[1].Options) != 2 {
		t.Fatalf("unexpected fields %+v", fields)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("[]"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readFields(empty); err == nil {
		t.Fatalf("an empty field list should be rejected")
	}
	if _, err := readFields(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("a missing file should be an error")
	}
}
