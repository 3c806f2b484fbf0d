package openapi

import "fmt"

// DiagnosticKind classifies a non-fatal problem found while aggregating.
type DiagnosticKind string

const (
	// KindMissingModule means a listed module file does not exist.
	KindMissingModule DiagnosticKind = "missing_module"
	// KindDuplicatePath means a path was already owned by an earlier module.
	KindDuplicatePath DiagnosticKind = "duplicate_path"
	// KindIgnoredSection means a section had the wrong shape and was skipped.
	KindIgnoredSection DiagnosticKind = "ignored_section"
)

// Diagnostic is one warning produced by a build.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Module  string         `json:"module"`
	Path    string         `json:"path,omitempty"`
	Section string         `json:"section,omitempty"`
}

// String renders the diagnostic as the warning line written to stderr.
func (d Diagnostic) String() string {
	switch d.Kind {
	case KindMissingModule:
		return fmt.Sprintf("Warning: module spec missing: %s", d.Module)
	case KindDuplicatePath:
		return fmt.Sprintf("Warning: duplicate path %s in %s", d.Path, d.Module)
	case KindIgnoredSection:
		return fmt.Sprintf("Warning: %s in %s is not a mapping; ignored", d.Section, d.Module)
	default:
		return fmt.Sprintf("Warning: %s in %s", d.Kind, d.Module)
	}
}

// Module statuses recorded in ModuleOutcome.
const (
	ModuleMerged  = "merged"
	ModuleMissing = "missing"
)

// ModuleOutcome summarises what one module contributed.
type ModuleOutcome struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Paths      int    `json:"paths"`
	Duplicates int    `json:"duplicates"`
	Webhooks   int    `json:"webhooks"`
}

// Report is the diagnostic record of a single build. Callers decide where
// its lines go; Build itself never writes to a stream.
type Report struct {
	Diagnostics []Diagnostic    `json:"diagnostics"`
	Modules     []ModuleOutcome `json:"modules"`
	Paths       int             `json:"paths"`
	Tags        []string        `json:"tags"`
	Webhooks    int             `json:"webhooks"`
	Output      string          `json:"output,omitempty"`
}

func (r *Report) warn(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// Warnings returns the rendered warning lines in the order they occurred.
func (r *Report) Warnings() []string {
	lines := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		lines[i] = d.String()
	}
	return lines
}

// Confirmation is the success line naming the written output.
func (r *Report) Confirmation() string {
	return fmt.Sprintf("Wrote aggregated OpenAPI: %s", r.Output)
}
