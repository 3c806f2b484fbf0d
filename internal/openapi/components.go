package openapi

import "gopkg.in/yaml.v3"

// ComponentKinds are the components sub-categories every aggregate carries,
// in the order they are added when missing.
var ComponentKinds = []string{
	"schemas",
	"parameters",
	"responses",
	"headers",
	"securitySchemes",
}

// NormalizeComponents makes sure components holds every ComponentKinds entry.
// Missing or null entries become empty mappings; anything else is left as
// is. Calling it again on its own output changes nothing.
func NormalizeComponents(components *yaml.Node) {
	components = resolve(components)
	if !isMapping(components) {
		return
	}
	for _, kind := range ComponentKinds {
		if v, ok := lookup(components, kind); !ok || isNull(v) {
			set(components, kind, newMapping())
		}
	}
}

// EnsureComponents returns the normalized components mapping of doc,
// creating it when absent or null. It returns nil when doc already holds a
// non-mapping components value.
func EnsureComponents(doc *yaml.Node) *yaml.Node {
	components, ok := lookup(doc, "components")
	if !ok || isNull(components) {
		components = newMapping()
		set(doc, "components", components)
	}
	if !isMapping(components) {
		return nil
	}
	NormalizeComponents(components)
	return components
}
