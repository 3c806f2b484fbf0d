package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joestump/apidocs/internal/prd"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAggregateCommand(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/api/modules/shared.yaml"), "components: {}\n")
	writeFile(t, filepath.Join(root, "docs/api/modules/incidents.yaml"), "paths:\n  /incidents:\n    get:\n      tags: [Incidents]\n")

	stdout, stderr, err := execute(t, "aggregate", "--root", root, "--log-level", "error")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	out := filepath.Join(root, "docs/api/openapi.yaml")
	if stdout != "Wrote aggregated OpenAPI: "+out+"\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, "Warning: module spec missing: problems.yaml\n") {
		t.Fatalf("expected missing module warnings on stderr, got:\n%s", stderr)
	}
	if strings.Contains(stderr, "incidents.yaml") {
		t.Fatalf("incidents.yaml exists and must not be reported:\n%s", stderr)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected aggregate written: %v", err)
	}
}

func TestAggregateCommandMissingShared(t *testing.T) {
	root := t.TempDir()
	if _, _, err := execute(t, "aggregate", "--root", root, "--log-level", "error"); err == nil {
		t.Fatal("expected an error without shared.yaml")
	}
}

func TestAggregateCommandWriteFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/api/modules/shared.yaml"), "components: {}\n")
	blocker := filepath.Join(root, "blocker")
	writeFile(t, blocker, "not a directory\n")

	stdout, _, err := execute(t, "aggregate", "--root", root, "--output", filepath.Join(blocker, "x.yaml"), "--log-level", "error")
	if err == nil {
		t.Fatal("expected an error when the output path sits under a regular file")
	}
	if strings.Contains(stdout, "Wrote aggregated OpenAPI") {
		t.Fatalf("confirmation printed for a failed write:\n%s", stdout)
	}
}

func TestValidateCommand(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/prd/01-good.md"), "---\ntitle: Good\n---\n## Overview\n## Review Checklist\n## Traceability\n")
	writeFile(t, filepath.Join(root, "docs/prd/02-bad.md"), "---\ntitle: Bad\n---\n## Overview\n## Review Checklist\n")

	stdout, _, err := execute(t, "validate", "--root", root, "--log-level", "error")
	if !errors.Is(err, prd.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	want := "Missing Traceability: " + filepath.Join(root, "docs/prd/02-bad.md") + "\nValidation: FAIL\n"
	if stdout != want {
		t.Fatalf("unexpected stdout:\n%s\nwant:\n%s", stdout, want)
	}
}

func TestValidateCommandPass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/prd/01-good.md"), "---\ntitle: Good\n---\n## Overview\n## Review Checklist\n## Traceability\n")

	stdout, _, err := execute(t, "validate", "--root", root, "--log-level", "error")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if stdout != "Validation: PASS\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestHistoryRequiresDatabase(t *testing.T) {
	if _, _, err := execute(t, "history", "--root", t.TempDir(), "--log-level", "error"); err == nil {
		t.Fatal("expected an error without a history database")
	}
}

func TestHistoryListsRuns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs/api/modules/shared.yaml"), "components: {}\n")
	dbPath := filepath.Join(root, "state", "history.db")

	if _, _, err := execute(t, "aggregate", "--root", root, "--history-db", dbPath, "--log-level", "error"); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	stdout, _, err := execute(t, "history", "--root", root, "--history-db", dbPath, "--log-level", "error", "--diagnostics")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, "aggregate") || !strings.Contains(stdout, "11 warnings") {
		t.Fatalf("unexpected history output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Warning: module spec missing: incidents.yaml") {
		t.Fatalf("expected diagnostics in output:\n%s", stdout)
	}
}
