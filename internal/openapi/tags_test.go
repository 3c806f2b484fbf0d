package openapi

import (
	"reflect"
	"testing"
)

func TestCollectTags_SortedAndDistinct(t *testing.T) {
	paths := parseTestYAML(t, `
/a:
  get:
    tags: [Incidents]
/b:
  post:
    tags: [Incidents, Problems]
`)

	got := CollectTags(paths)
	want := []Tag{{Name: "Incidents"}, {Name: "Problems"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCollectTags_OnlyOperationMethods(t *testing.T) {
	paths := parseTestYAML(t, `
/incidents:
  parameters:
    - name: id
      tags: [NotAnOperation]
  summary: Incidents
  GET:
    tags: [Upper]
  trace:
    tags: [Trace]
  x-internal:
    tags: [Extension]
`)

	got := CollectTags(paths)
	want := []Tag{{Name: "Trace"}, {Name: "Upper"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCollectTags_ToleratesMalformedEntries(t *testing.T) {
	paths := parseTestYAML(t, `
/broken: just-a-string
/list: [get, post]
/ok:
  get: not-a-mapping
  put:
    tags:
  patch:
    tags: [Changes, {nested: true}, ~]
  delete: {}
`)

	got := CollectTags(paths)
	want := []Tag{{Name: "Changes"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCollectTags_DoesNotMutateInput(t *testing.T) {
	paths := parseTestYAML(t, `{/a: {get: {tags: [B, A]}}}`)
	before := renderTestNode(t, paths)

	CollectTags(paths)

	if after := renderTestNode(t, paths); after != before {
		t.Fatalf("paths changed\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestCollectTags_Empty(t *testing.T) {
	if got := CollectTags(newMapping()); len(got) != 0 {
		t.Fatalf("expected no tags, got %v", got)
	}
	if got := CollectTags(nil); len(got) != 0 {
		t.Fatalf("expected no tags for nil paths, got %v", got)
	}
}

func TestTagsNode(t *testing.T) {
	n := TagsNode([]Tag{{Name: "Incidents"}, {Name: "Problems"}})
	got := decodeTestNode(t, n)
	want := []any{
		map[string]any{"name": "Incidents"},
		map[string]any{"name": "Problems"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
