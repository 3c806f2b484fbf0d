package openapi

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func parseTestYAML(t *testing.T, src string) *yaml.Node {
	t.Helper()
	n, err := ParseDocument([]byte(src))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return n
}

// decodeTestNode converts n into plain Go values for comparisons.
func decodeTestNode(t *testing.T, n *yaml.Node) any {
	t.Helper()
	var v any
	if err := n.Decode(&v); err != nil {
		t.Fatalf("decode node: %v", err)
	}
	return v
}

func renderTestNode(t *testing.T, n *yaml.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, n); err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	return buf.String()
}

func assertYAMLEqual(t *testing.T, got *yaml.Node, want string) {
	t.Helper()
	g := decodeTestNode(t, got)
	w := decodeTestNode(t, parseTestYAML(t, want))
	if !reflect.DeepEqual(g, w) {
		t.Fatalf("documents differ\n got: %#v\nwant: %#v", g, w)
	}
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func keysOf(n *yaml.Node) []string {
	var keys []string
	pairs(n, func(k, _ *yaml.Node) { keys = append(keys, k.Value) })
	return keys
}
