package openapi

import (
	"bytes"
	"testing"

	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"
)

var propertyKeys = []string{"schemas", "parameters", "headers", "Incident", "Problem", "id", "type", "items"}

// mappingGen draws nested mappings mixing scalars, sequences and nulls.
func mappingGen(depth int) *rapid.Generator[*yaml.Node] {
	return rapid.Custom(func(t *rapid.T) *yaml.Node {
		m := newMapping()
		keys := rapid.SliceOfNDistinct(rapid.SampledFrom(propertyKeys), 0, 5, rapid.ID[string]).Draw(t, "keys")
		for _, k := range keys {
			var v *yaml.Node
			switch kind := rapid.IntRange(0, 3).Draw(t, "kind"); {
			case kind == 0 && depth > 0:
				v = mappingGen(depth-1).Draw(t, "child")
			case kind == 1:
				seq := newSequence()
				for _, s := range rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,3}`), 0, 3).Draw(t, "items") {
					seq.Content = append(seq.Content, newString(s))
				}
				v = seq
			case kind == 2:
				v = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
			default:
				v = newString(rapid.StringMatching(`[a-z]{1,4}`).Draw(t, "leaf"))
			}
			set(m, k, v)
		}
		return m
	})
}

func render(t *rapid.T, n *yaml.Node) string {
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, n); err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	return buf.String()
}

func mutateScalars(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		n.Value = "mutated"
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		mutateScalars(c)
	}
	if n.Kind == yaml.SequenceNode {
		n.Content = append(n.Content, newString("extra"))
	}
}

func TestProperty_NormalizeComponentsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		comps := mappingGen(2).Draw(t, "components")

		NormalizeComponents(comps)
		once := render(t, comps)
		NormalizeComponents(comps)

		if twice := render(t, comps); once != twice {
			t.Fatalf("normalize is not idempotent\nonce:\n%s\ntwice:\n%s", once, twice)
		}
	})
}

func TestProperty_PreferDstNeverReplacesLeaves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dst := mappingGen(2).Draw(t, "dst")
		src := mappingGen(2).Draw(t, "src")

		before := make(map[string]string)
		pairs(dst, func(k, v *yaml.Node) {
			if !isMapping(v) {
				before[k.Value] = render(t, v)
			}
		})

		DeepMerge(dst, src, true)

		for key, want := range before {
			v, ok := lookup(dst, key)
			if !ok {
				t.Fatalf("key %q disappeared", key)
			}
			if got := render(t, v); got != want {
				t.Fatalf("key %q changed from %q to %q", key, want, got)
			}
		}
		pairs(src, func(k, _ *yaml.Node) {
			if _, ok := lookup(dst, k.Value); !ok {
				t.Fatalf("source key %q missing after merge", k.Value)
			}
		})
	})
}

func TestProperty_MergeIntoEmptyIsIsolatedCopy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := mappingGen(3).Draw(t, "src")
		preferDst := rapid.Bool().Draw(t, "preferDst")

		dst := newMapping()
		DeepMerge(dst, src, preferDst)
		merged := render(t, dst)
		if merged != render(t, src) {
			t.Fatalf("merge into empty differs from source\nsrc:\n%s\ndst:\n%s", render(t, src), merged)
		}

		mutateScalars(src)

		if after := render(t, dst); after != merged {
			t.Fatalf("mutating the source changed the merge result\nbefore:\n%s\nafter:\n%s", merged, after)
		}
	})
}
