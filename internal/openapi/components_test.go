package openapi

import "testing"

func TestNormalizeComponents_AddsMissingKinds(t *testing.T) {
	comps := parseTestYAML(t, `
schemas:
  Incident: {type: object}
examples:
  one: {value: 1}
`)

	NormalizeComponents(comps)

	want := []string{"schemas", "examples", "parameters", "responses", "headers", "securitySchemes"}
	got := keysOf(comps)
	if len(got) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected keys %v, got %v", want, got)
		}
	}
	if mappingValue(mappingValue(comps, "schemas"), "Incident") == nil {
		t.Fatal("existing schema entry was lost")
	}
}

func TestNormalizeComponents_NullBecomesEmptyMapping(t *testing.T) {
	comps := parseTestYAML(t, "schemas:\nheaders: ~\n")

	NormalizeComponents(comps)

	for _, kind := range ComponentKinds {
		if !isMapping(mappingValue(comps, kind)) {
			t.Errorf("expected %s to be a mapping", kind)
		}
	}
}

func TestNormalizeComponents_Idempotent(t *testing.T) {
	comps := parseTestYAML(t, `{responses: {NotFound: {description: missing}}}`)

	NormalizeComponents(comps)
	once := renderTestNode(t, comps)
	NormalizeComponents(comps)
	twice := renderTestNode(t, comps)

	if once != twice {
		t.Fatalf("second normalization changed the mapping\nonce:\n%s\ntwice:\n%s", once, twice)
	}
}

func TestNormalizeComponents_LeavesScalarKindsAlone(t *testing.T) {
	comps := parseTestYAML(t, `{schemas: not-a-mapping}`)

	NormalizeComponents(comps)

	if got := mappingValue(comps, "schemas").Value; got != "not-a-mapping" {
		t.Fatalf("expected scalar schemas to be kept, got %q", got)
	}
}

func TestEnsureComponents(t *testing.T) {
	doc := parseTestYAML(t, `paths: {}`)
	comps := EnsureComponents(doc)
	if comps == nil {
		t.Fatal("expected components to be created")
	}
	if len(keysOf(comps)) != len(ComponentKinds) {
		t.Fatalf("expected %d kinds, got %v", len(ComponentKinds), keysOf(comps))
	}
	if EnsureComponents(doc) != comps {
		t.Fatal("expected the existing components mapping to be returned")
	}

	bad := parseTestYAML(t, `components: [schemas]`)
	if EnsureComponents(bad) != nil {
		t.Fatal("expected nil for a non-mapping components value")
	}
}
