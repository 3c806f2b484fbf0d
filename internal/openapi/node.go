package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// Helpers over *yaml.Node. Documents stay node trees end to end so key
// order, scalar tags and string styles of the inputs reach the output.

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func newString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// resolve follows alias nodes to their anchor.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isMapping(n *yaml.Node) bool {
	n = resolve(n)
	return n != nil && n.Kind == yaml.MappingNode
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// lookup returns the value stored under key in mapping m. The boolean
// reports key presence, so a key holding an explicit null is still found.
func lookup(m *yaml.Node, key string) (*yaml.Node, bool) {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1]), true
		}
	}
	return nil, false
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	v, _ := lookup(m, key)
	return v
}

// set stores v under key, replacing an existing entry in place or
// appending a new one at the end.
func set(m *yaml.Node, key string, v *yaml.Node) {
	setKey(m, newString(key), v)
}

func setKey(m *yaml.Node, key, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key.Value {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, key, v)
}

// pairs calls fn for every key/value of mapping m in document order.
func pairs(m *yaml.Node, fn func(key, value *yaml.Node)) {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		fn(m.Content[i], resolve(m.Content[i+1]))
	}
}

// copyNode returns a deep copy of n that shares no memory with it.
// Aliases are expanded and anchors dropped, so a copy placed twice in the
// output never produces duplicate anchor names.
func copyNode(n *yaml.Node) *yaml.Node {
	n = resolve(n)
	if n == nil {
		return nil
	}
	out := *n
	out.Anchor = ""
	out.Alias = nil
	if n.Content != nil {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = copyNode(c)
		}
	}
	return &out
}

func kindName(n *yaml.Node) string {
	switch resolve(n).Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "unknown"
	}
}

// ParseDocument decodes a YAML document into its top-level mapping node.
// Empty input, comment-only input and an explicit null all yield an empty
// mapping; any other non-mapping top level is an error.
func ParseDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return newMapping(), nil
	}
	root := resolve(doc.Content[0])
	if isNull(root) {
		return newMapping(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is a %s, want a mapping", kindName(root))
	}
	return flatten(root, map[*yaml.Node]bool{})
}

// flatten returns a copy of n with aliases expanded and "<<" merge keys
// applied, the way a YAML loader builds plain maps. Explicit keys win over
// merged ones, earlier merge sources win over later ones, and a key
// repeated in one mapping keeps its first position with its last value.
func flatten(n *yaml.Node, active map[*yaml.Node]bool) (*yaml.Node, error) {
	n = resolve(n)
	if n == nil {
		return nil, nil
	}
	if active[n] {
		return nil, fmt.Errorf("line %d: recursive alias", n.Line)
	}
	active[n] = true
	defer delete(active, n)

	out := *n
	out.Anchor = ""
	out.Alias = nil
	out.Content = nil
	if n.Kind != yaml.MappingNode {
		for _, c := range n.Content {
			fc, err := flatten(c, active)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, fc)
		}
		return &out, nil
	}

	var explicit []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if isMergeKey(k) {
			sources, err := mergeSources(v, active)
			if err != nil {
				return nil, err
			}
			for _, src := range sources {
				for j := 0; j+1 < len(src.Content); j += 2 {
					if keyIndex(&out, src.Content[j]) < 0 {
						out.Content = append(out.Content, src.Content[j], src.Content[j+1])
					}
				}
			}
			continue
		}
		fk, err := flatten(k, active)
		if err != nil {
			return nil, err
		}
		fv, err := flatten(v, active)
		if err != nil {
			return nil, err
		}
		explicit = append(explicit, fk, fv)
	}
	for i := 0; i+1 < len(explicit); i += 2 {
		if at := keyIndex(&out, explicit[i]); at >= 0 {
			out.Content[at+1] = explicit[i+1]
			continue
		}
		out.Content = append(out.Content, explicit[i], explicit[i+1])
	}
	return &out, nil
}

func isMergeKey(k *yaml.Node) bool {
	k = resolve(k)
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

// mergeSources flattens the value of a merge key: one mapping or a
// sequence of mappings, in precedence order.
func mergeSources(v *yaml.Node, active map[*yaml.Node]bool) ([]*yaml.Node, error) {
	v = resolve(v)
	var items []*yaml.Node
	switch v.Kind {
	case yaml.MappingNode:
		items = []*yaml.Node{v}
	case yaml.SequenceNode:
		items = v.Content
	default:
		return nil, fmt.Errorf("line %d: merge key value is a %s, want a mapping or a sequence of mappings", v.Line, kindName(v))
	}
	sources := make([]*yaml.Node, 0, len(items))
	for _, item := range items {
		if !isMapping(item) {
			return nil, fmt.Errorf("line %d: merge key sequence holds a %s, want a mapping", resolve(item).Line, kindName(item))
		}
		src, err := flatten(item, active)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// keyIndex returns the content index of scalar key k in mapping m, or -1.
func keyIndex(m, k *yaml.Node) int {
	if k.Kind != yaml.ScalarNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if c := m.Content[i]; c.Kind == yaml.ScalarNode && c.Value == k.Value {
			return i
		}
	}
	return -1
}

// EncodeYAML writes doc as a block-style YAML document with two-space
// indentation.
func EncodeYAML(w io.Writer, doc *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// EncodeJSON renders doc as indented JSON. Object keys come out sorted.
func EncodeJSON(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, doc); err != nil {
		return nil, err
	}
	raw, err := sigsyaml.YAMLToJSON(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("convert to JSON: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
