package openapi

import "gopkg.in/yaml.v3"

// DeepMerge merges the mapping src into the mapping dst in place.
//
// Where both sides hold a mapping under the same key the merge recurses.
// Any other collision is settled by preferDst alone: when true an existing
// dst entry is kept, otherwise it is replaced. Sequences and scalars are
// never merged element-wise. Values taken from src are deep copies, so
// later edits to either tree never show up in the other.
//
// Non-mapping arguments make DeepMerge a no-op.
func DeepMerge(dst, src *yaml.Node, preferDst bool) {
	dst, src = resolve(dst), resolve(src)
	if !isMapping(dst) || !isMapping(src) {
		return
	}
	pairs(src, func(key, value *yaml.Node) {
		existing, ok := lookup(dst, key.Value)
		if isMapping(existing) && isMapping(value) {
			DeepMerge(existing, value, preferDst)
			return
		}
		if preferDst && ok {
			return
		}
		setKey(dst, copyNode(key), copyNode(value))
	})
}
