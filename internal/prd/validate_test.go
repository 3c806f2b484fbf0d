package prd

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const goodPRD = `---
title: Incident Management
status: draft
---

# Incident Management

## Goals

Restore service quickly.

## Review Checklist

- [ ] Reviewed by product

## Traceability

| Requirement | Story |
|---|---|
| FR-1 | 1.1 |
`

func writePRD(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func checks(res Result) []Check {
	out := []Check{}
	for _, f := range res.Findings {
		out = append(out, f.Check)
	}
	return out
}

func TestCheckDocument_WellFormed(t *testing.T) {
	v := New("docs/prd")
	res := v.CheckDocument("docs/prd/01-incidents.md", []byte(goodPRD))

	if !res.OK() {
		t.Fatalf("expected no findings, got %v", res.Findings)
	}
	if res.Title != "Incident Management" || res.Status != "draft" {
		t.Fatalf("expected front matter metadata, got title=%q status=%q", res.Title, res.Status)
	}
}

func TestCheckDocument_MissingTraceability(t *testing.T) {
	doc := strings.Replace(goodPRD, "## Traceability", "## Links", 1)
	res := New("").CheckDocument("02-problems.md", []byte(doc))

	if got := checks(res); !reflect.DeepEqual(got, []Check{CheckTraceability}) {
		t.Fatalf("expected only traceability finding, got %v", got)
	}
	if line := res.Findings[0].String(); line != "Missing Traceability: 02-problems.md" {
		t.Fatalf("unexpected diagnostic %q", line)
	}
}

func TestCheckDocument_EverythingMissing(t *testing.T) {
	res := New("").CheckDocument("03-empty.md", []byte("# Only a title\n\nSome text.\n"))

	want := []Check{CheckFrontMatter, CheckReviewChecklist, CheckTraceability, CheckH2Title}
	if got := checks(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	lines := make([]string, len(res.Findings))
	for i, f := range res.Findings {
		lines[i] = f.String()
	}
	wantLines := []string{
		"Missing front matter: 03-empty.md",
		"Missing Review Checklist: 03-empty.md",
		"Missing Traceability: 03-empty.md",
		"Missing H2 title: 03-empty.md",
	}
	if !reflect.DeepEqual(lines, wantLines) {
		t.Fatalf("expected %v, got %v", wantLines, lines)
	}
}

func TestCheckDocument_FrontMatterAfterWhitespaceAndBOM(t *testing.T) {
	doc := "\ufeff\n\n" + goodPRD
	res := New("").CheckDocument("04-bom.md", []byte(doc))
	if !res.OK() {
		t.Fatalf("expected BOM and leading blank lines to be tolerated, got %v", res.Findings)
	}
}

func TestCheckDocument_FrontMatterIsNotAHeading(t *testing.T) {
	doc := "---\nstatus: draft\n---\n\nPlain text only.\n"
	res := New("").CheckDocument("05-meta.md", []byte(doc))

	want := []Check{CheckReviewChecklist, CheckTraceability, CheckH2Title}
	if got := checks(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(res.Headings) != 0 {
		t.Fatalf("expected no headings, got %v", res.Headings)
	}
}

func TestCheckDocument_MarkersInCodeBlocksCount(t *testing.T) {
	doc := "---\ntitle: x\n---\n\n## Overview\n\n```markdown\n## Review Checklist\n## Traceability\n```\n"
	res := New("").CheckDocument("06-code.md", []byte(doc))

	if !res.OK() {
		t.Fatalf("expected fenced markers to satisfy the checks, got %v", res.Findings)
	}
	if !reflect.DeepEqual(res.Headings, []string{"Overview"}) {
		t.Fatalf("expected only the real heading to be reported, got %v", res.Headings)
	}
}

func TestCheckDocument_LevelThreeHeadingIsNotH2(t *testing.T) {
	doc := "---\ntitle: x\n---\n\n### Review Checklist\n\n### Traceability\n"
	res := New("").CheckDocument("07-h3.md", []byte(doc))

	// "### Review Checklist" contains "## Review Checklist", but no line
	// opens with a level-2 marker.
	want := []Check{CheckH2Title}
	if got := checks(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCheckDocument_HeadingWithSuffix(t *testing.T) {
	doc := "---\ntitle: x\n---\n\n## Review Checklist (PM sign-off)\n\n## Traceability matrix\n"
	res := New("").CheckDocument("08-suffix.md", []byte(doc))
	if !res.OK() {
		t.Fatalf("expected headings to match, got %v", res.Findings)
	}
	want := []string{"Review Checklist (PM sign-off)", "Traceability matrix"}
	if !reflect.DeepEqual(res.Headings, want) {
		t.Fatalf("expected headings %v, got %v", want, res.Headings)
	}
}

func TestCheckDocument_MarkerTextRules(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
		want []Check
	}{
		{"emphasis breaks the marker", "## Review Checklist\n\n## *Traceability*\n", []Check{CheckTraceability}},
		{"setext heading has no marker", "## Review Checklist\n\nTraceability\n------------\n", []Check{CheckTraceability}},
		{"marker inside a paragraph", "## Goals\n\nSee ## Review Checklist and ## Traceability below.\n", []Check{}},
		{"indented marker still matches text", "## Goals\n\n  ## Review Checklist\n\n## Traceability\n", []Check{}},
		{"missing space after hashes", "##Review Checklist\n##Traceability\n", []Check{CheckReviewChecklist, CheckTraceability, CheckH2Title}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := New("").CheckDocument("09-rules.md", []byte("---\ntitle: x\n---\n\n"+tc.body))
			if got := checks(res); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCheckDocument_FrontMatterTextIsSearched(t *testing.T) {
	doc := "---\ntitle: x\nnotes: |\n  ## Review Checklist\n---\n\n## Traceability\n"
	res := New("").CheckDocument("10-meta.md", []byte(doc))
	if !res.OK() {
		t.Fatalf("expected markers anywhere in the file to count, got %v", res.Findings)
	}
}

func TestRun_OneBadDocumentFailsAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs", "prd")
	writePRD(t, dir, "01-incidents.md", goodPRD)
	writePRD(t, dir, "02-problems.md", strings.Replace(goodPRD, "## Traceability", "## Notes", 1))
	writePRD(t, dir, "03-changes.md", goodPRD)

	report, err := New(dir).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Passed {
		t.Fatal("expected overall failure")
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected every document to be checked, got %d", len(report.Results))
	}

	lines := report.Lines()
	want := []string{
		"Missing Traceability: " + filepath.Join(dir, "02-problems.md"),
		"Validation: FAIL",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
}

func TestRun_AllPass(t *testing.T) {
	dir := t.TempDir()
	writePRD(t, dir, "01-a.md", goodPRD)
	writePRD(t, dir, "02-b.md", goodPRD)

	report, err := New(dir).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Passed {
		t.Fatalf("expected pass, got %v", report.Lines())
	}
	if got := report.Lines(); !reflect.DeepEqual(got, []string{"Validation: PASS"}) {
		t.Fatalf("unexpected lines %v", got)
	}
}

func TestDiscover_PatternAndOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10-z.md", "02-b.md", "1-short.md", "README.md", "03-c.txt", "01-a.md"} {
		writePRD(t, dir, name, goodPRD)
	}
	if err := os.MkdirAll(filepath.Join(dir, "04-dir.md"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	paths, err := New(dir).Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join(dir, "01-a.md"),
		filepath.Join(dir, "02-b.md"),
		filepath.Join(dir, "10-z.md"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

func TestRun_MissingDirectoryPasses(t *testing.T) {
	report, err := New(filepath.Join(t.TempDir(), "nope")).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Passed || len(report.Results) != 0 {
		t.Fatalf("expected an empty passing report, got %+v", report)
	}
}
