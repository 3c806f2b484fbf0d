// Package openapi merges per-module OpenAPI fragments into one aggregate
// document.
//
// The shared document is merged first and seeds the components. Modules
// follow in a fixed order; paths and webhooks are owned by whichever module
// defines them first, and component entries keep their first definition.
package openapi

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrSharedDocument wraps any failure to load the shared document.
var ErrSharedDocument = errors.New("shared document")

// Aggregator builds the aggregate document from a modules directory.
type Aggregator struct {
	ModulesDir string
	Shared     string   // file name of the shared document inside ModulesDir
	Modules    []string // module file names, in processing order
	Info       Info
	Servers    []Server
	Security   []string
}

// New returns an Aggregator over modulesDir with the default module order
// and metadata.
func New(modulesDir string) *Aggregator {
	return &Aggregator{
		ModulesDir: modulesDir,
		Shared:     SharedFile,
		Modules:    append([]string(nil), DefaultModules...),
		Info:       DefaultInfo,
		Servers:    append([]Server(nil), DefaultServers...),
		Security:   append([]string(nil), DefaultSecurity...),
	}
}

// Result is the outcome of a successful build.
type Result struct {
	Document *yaml.Node
	Report   *Report
}

// Build runs one aggregation pass. The only errors are a shared document
// that cannot be loaded and a module file that exists but cannot be read
// or parsed; every other problem is recorded in the report.
func (a *Aggregator) Build() (*Result, error) {
	shared, err := readDocument(filepath.Join(a.ModulesDir, a.Shared))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSharedDocument, a.Shared, err)
	}

	agg, err := a.skeleton()
	if err != nil {
		return nil, err
	}
	report := &Report{}
	components := EnsureComponents(agg)
	paths := mappingValue(agg, "paths")

	if sharedComponents := EnsureComponents(shared); sharedComponents != nil {
		mergeComponents(components, sharedComponents, a.Shared, report)
	} else {
		report.warn(Diagnostic{Kind: KindIgnoredSection, Module: a.Shared, Section: "components"})
	}

	hooks := newMapping()
	for _, name := range a.Modules {
		if err := a.mergeModule(name, paths, components, hooks, report); err != nil {
			return nil, err
		}
	}

	tags := CollectTags(paths)
	set(agg, "tags", TagsNode(tags))
	if len(hooks.Content) > 0 {
		set(agg, "webhooks", hooks)
	}

	report.Paths = len(paths.Content) / 2
	report.Webhooks = len(hooks.Content) / 2
	report.Tags = make([]string, len(tags))
	for i, t := range tags {
		report.Tags[i] = t.Name
	}
	return &Result{Document: agg, Report: report}, nil
}

// skeleton returns the aggregate before any document is merged into it.
func (a *Aggregator) skeleton() (*yaml.Node, error) {
	info := &yaml.Node{}
	if err := info.Encode(a.Info); err != nil {
		return nil, fmt.Errorf("encode info: %w", err)
	}
	servers := &yaml.Node{}
	if err := servers.Encode(a.Servers); err != nil {
		return nil, fmt.Errorf("encode servers: %w", err)
	}
	security := newSequence()
	for _, scheme := range a.Security {
		req := newMapping()
		set(req, scheme, &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle})
		security.Content = append(security.Content, req)
	}

	agg := newMapping()
	set(agg, "openapi", newString(Version))
	set(agg, "info", info)
	set(agg, "servers", servers)
	set(agg, "security", security)
	set(agg, "paths", newMapping())
	set(agg, "components", newMapping())
	return agg, nil
}

func (a *Aggregator) mergeModule(name string, paths, components, hooks *yaml.Node, report *Report) error {
	outcome := ModuleOutcome{Name: name, Status: ModuleMerged}
	defer func() { report.Modules = append(report.Modules, outcome) }()

	mod, err := readDocument(filepath.Join(a.ModulesDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		outcome.Status = ModuleMissing
		report.warn(Diagnostic{Kind: KindMissingModule, Module: name})
		return nil
	}
	if err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}

	pairs(section(mod, "paths", name, report), func(p, item *yaml.Node) {
		if _, taken := lookup(paths, p.Value); taken {
			outcome.Duplicates++
			report.warn(Diagnostic{Kind: KindDuplicatePath, Module: name, Path: p.Value})
			return
		}
		setKey(paths, copyNode(p), copyNode(item))
		outcome.Paths++
	})

	if modComponents := section(mod, "components", name, report); modComponents != nil {
		NormalizeComponents(modComponents)
		mergeComponents(components, modComponents, name, report)
	}

	pairs(section(mod, "webhooks", name, report), func(hook, def *yaml.Node) {
		if _, taken := lookup(hooks, hook.Value); taken {
			return
		}
		setKey(hooks, copyNode(hook), copyNode(def))
		outcome.Webhooks++
	})
	return nil
}

// section returns the mapping stored under key in mod. Absent and null
// sections yield nil; any other non-mapping value is reported and ignored.
func section(mod *yaml.Node, key, module string, report *Report) *yaml.Node {
	v, ok := lookup(mod, key)
	if !ok || isNull(v) {
		return nil
	}
	if !isMapping(v) {
		report.warn(Diagnostic{Kind: KindIgnoredSection, Module: module, Section: key})
		return nil
	}
	return v
}

// mergeComponents merges every sub-category of src into dst, keeping entries
// dst already has. Each sub-category name seen in src ends up in dst, even
// when its value had to be ignored.
func mergeComponents(dst, src *yaml.Node, module string, report *Report) {
	pairs(src, func(kind, value *yaml.Node) {
		target, ok := lookup(dst, kind.Value)
		if !ok {
			target = newMapping()
			setKey(dst, copyNode(kind), target)
		}
		if isNull(value) {
			return
		}
		if !isMapping(value) {
			report.warn(Diagnostic{Kind: KindIgnoredSection, Module: module, Section: "components." + kind.Value})
			return
		}
		DeepMerge(target, value, true)
	})
}

// readDocument loads and parses a YAML file. Read errors are returned
// unwrapped so callers can test them with errors.Is.
func readDocument(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// WriteYAML writes doc to path, creating parent directories and replacing
// any existing file.
func WriteYAML(path string, doc *yaml.Node) error {
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, doc); err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// WriteJSON writes doc to path as JSON.
func WriteJSON(path string, doc *yaml.Node) error {
	data, err := EncodeJSON(doc)
	if err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
