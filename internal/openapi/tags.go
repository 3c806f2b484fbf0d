package openapi

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// operationMethods are the path item keys treated as operations.
var operationMethods = map[string]bool{
	"get":     true,
	"post":    true,
	"put":     true,
	"patch":   true,
	"delete":  true,
	"options": true,
	"head":    true,
	"trace":   true,
}

// Tag is one entry of the aggregate's top-level tags list.
type Tag struct {
	Name string `json:"name" yaml:"name"`
}

// CollectTags returns the distinct tag names referenced by the operations
// under paths, sorted. Path items and operations that are not mappings are
// skipped, as are non-scalar tag entries. paths is not modified.
func CollectTags(paths *yaml.Node) []Tag {
	seen := make(map[string]bool)
	pairs(paths, func(_, item *yaml.Node) {
		pairs(item, func(method, op *yaml.Node) {
			if !operationMethods[strings.ToLower(method.Value)] {
				return
			}
			tags := mappingValue(op, "tags")
			if tags == nil || tags.Kind != yaml.SequenceNode {
				return
			}
			for _, t := range tags.Content {
				t = resolve(t)
				if t.Kind == yaml.ScalarNode && !isNull(t) {
					seen[t.Value] = true
				}
			}
		})
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Tag, len(names))
	for i, name := range names {
		out[i] = Tag{Name: name}
	}
	return out
}

// TagsNode renders tags as a YAML sequence of {name: ...} mappings.
func TagsNode(tags []Tag) *yaml.Node {
	seq := newSequence()
	for _, t := range tags {
		m := newMapping()
		set(m, "name", newString(t.Name))
		seq.Content = append(seq.Content, m)
	}
	return seq
}
