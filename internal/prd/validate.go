// Package prd checks product requirement documents for the structural
// sections every PRD must carry: front matter, a Review Checklist, a
// Traceability section and at least one second-level heading.
package prd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// DefaultPattern selects numbered PRD files such as 01-overview.md.
const DefaultPattern = "[0-9][0-9]-*.md"

const (
	reviewChecklistMarker = "## Review Checklist"
	traceabilityMarker    = "## Traceability"
)

// h2Line matches an ATX level-2 marker at the start of any line.
var h2Line = regexp.MustCompile(`(?m)^##\s+`)

// ErrValidationFailed is returned when at least one document fails a check.
var ErrValidationFailed = errors.New("validation failed")

// Check names one structural requirement.
type Check string

const (
	CheckFrontMatter     Check = "front_matter"
	CheckReviewChecklist Check = "review_checklist"
	CheckTraceability    Check = "traceability"
	CheckH2Title         Check = "h2_title"
)

var checkLabels = map[Check]string{
	CheckFrontMatter:     "front matter",
	CheckReviewChecklist: "Review Checklist",
	CheckTraceability:    "Traceability",
	CheckH2Title:         "H2 title",
}

// Finding is one failed check for one document.
type Finding struct {
	Check Check  `json:"check"`
	Path  string `json:"path"`
}

// String renders the finding as the diagnostic line printed by validate.
func (f Finding) String() string {
	return fmt.Sprintf("Missing %s: %s", checkLabels[f.Check], f.Path)
}

// Result holds the findings for a single document.
type Result struct {
	Path     string    `json:"path"`
	Title    string    `json:"title,omitempty"`
	Status   string    `json:"status,omitempty"`
	Headings []string  `json:"headings,omitempty"`
	Findings []Finding `json:"findings"`
}

// OK reports whether the document passed every check.
func (r Result) OK() bool { return len(r.Findings) == 0 }

// Report is the outcome of validating a document set.
type Report struct {
	Results []Result `json:"results"`
	Passed  bool     `json:"passed"`
}

// Lines returns every finding followed by the final PASS/FAIL line.
func (r *Report) Lines() []string {
	var lines []string
	for _, res := range r.Results {
		for _, f := range res.Findings {
			lines = append(lines, f.String())
		}
	}
	return append(lines, r.StatusLine())
}

// StatusLine is the overall verdict line.
func (r *Report) StatusLine() string {
	if r.Passed {
		return "Validation: PASS"
	}
	return "Validation: FAIL"
}

// Validator checks the PRD files under Dir that match Pattern.
type Validator struct {
	Dir     string
	Pattern string
	md      goldmark.Markdown
}

// New returns a Validator for dir using DefaultPattern.
func New(dir string) *Validator {
	return &Validator{
		Dir:     dir,
		Pattern: DefaultPattern,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Discover lists the matching documents in name order. A missing
// directory yields no documents.
func (v *Validator) Discover() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(v.Dir), v.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", v.Pattern, v.Dir, err)
	}
	sort.Strings(matches)
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(v.Dir, filepath.FromSlash(m))
	}
	return paths, nil
}

// Run checks every discovered document. A failing document never stops
// the run; only an unreadable file is an error.
func (v *Validator) Run() (*Report, error) {
	paths, err := v.Discover()
	if err != nil {
		return nil, err
	}
	report := &Report{Passed: true}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		res := v.CheckDocument(p, data)
		if !res.OK() {
			report.Passed = false
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// CheckDocument runs all checks against one document's raw bytes. The
// section and H2 checks are plain text matches over the whole file, front
// matter included, so a marker inside a code block or a level-3 heading
// still satisfies them. Headings only feeds the report.
func (v *Validator) CheckDocument(path string, data []byte) Result {
	res := Result{Path: path, Findings: []Finding{}}
	doc := decodeText(data)

	meta, body, hasFrontMatter := splitFrontMatter(doc)
	if !hasFrontMatter {
		res.Findings = append(res.Findings, Finding{Check: CheckFrontMatter, Path: path})
	} else {
		res.Title, res.Status = meta.Title, meta.Status
	}
	res.Headings = v.secondLevelHeadings([]byte(body))

	if !strings.Contains(doc, reviewChecklistMarker) {
		res.Findings = append(res.Findings, Finding{Check: CheckReviewChecklist, Path: path})
	}
	if !strings.Contains(doc, traceabilityMarker) {
		res.Findings = append(res.Findings, Finding{Check: CheckTraceability, Path: path})
	}
	if !h2Line.MatchString(doc) {
		res.Findings = append(res.Findings, Finding{Check: CheckH2Title, Path: path})
	}
	return res
}

// decodeText turns file bytes into a string, dropping a byte order mark
// and decoding UTF-16 when a BOM announces it.
func decodeText(data []byte) string {
	t := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

type frontMatter struct {
	Title  string `yaml:"title"`
	Status string `yaml:"status"`
}

// splitFrontMatter reports whether doc opens with a front matter block
// (after leading whitespace) and returns its metadata and the markdown body
// that follows. An unterminated block still counts as front matter but
// leaves the body untouched.
func splitFrontMatter(doc string) (frontMatter, string, bool) {
	var meta frontMatter
	trimmed := strings.TrimLeft(doc, " \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return meta, doc, false
	}

	lines := strings.SplitAfter(trimmed, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return meta, doc, true
	}
	for i := 1; i < len(lines); i++ {
		marker := strings.TrimSpace(lines[i])
		if marker != "---" && marker != "..." {
			continue
		}
		// Metadata is informational; a block that is not valid YAML still
		// satisfies the front matter check.
		_ = yaml.Unmarshal([]byte(strings.Join(lines[1:i], "")), &meta)
		return meta, strings.Join(lines[i+1:], ""), true
	}
	return meta, doc, true
}

// secondLevelHeadings returns the text of every level-2 heading in src,
// setext headings included.
func (v *Validator) secondLevelHeadings(src []byte) []string {
	root := v.md.Parser().Parse(text.NewReader(src))
	var headings []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level == 2 {
			headings = append(headings, inlineText(h, src))
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
