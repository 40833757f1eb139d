package views

import (
	"reflect"
	"testing"
)

func TestMergeLocals(t *testing.T) {
	base := map[string]any{
		"a":    1,
		"site": map[string]any{"title": "Base", "lang": "en"},
		"tags": []any{"x"},
	}
	over := map[string]any{
		"b":    2,
		"site": Locals{"title": "Over"},
	}

	got := mergeLocals(base, nil, over)
	want := Locals{
		"a":    1,
		"b":    2,
		"site": map[string]any{"title": "Over", "lang": "en"},
		"tags": []any{"x"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeLocals = %v, want %v", got, want)
	}

	got["site"].(map[string]any)["title"] = "changed"
	got["tags"].([]any)[0] = "changed"
	if base["site"].(map[string]any)["title"] != "Base" || base["tags"].([]any)[0] != "x" {
		t.Error("mergeLocals shares nested values with its sources")
	}
}

func TestCloneOptions(t *testing.T) {
	p := &Template{}
	opts := &Options{
		Data:     map[string]any{"title": "Page"},
		Body:     "body",
		Partials: map[string]*Template{"p": p},
	}

	got := cloneOptions(opts, map[string]any{"title": "Site", "site": "Trellis"})
	if got.Data["title"] != "Page" || got.Data["site"] != "Trellis" || got.Body != "body" {
		t.Errorf("unexpected clone %+v", got)
	}
	if got.Partials["p"] != p {
		t.Error("partials should be copied by reference")
	}

	got.Data["title"] = "changed"
	got.Partials["q"] = p
	if opts.Data["title"] != "Page" || len(opts.Partials) != 1 {
		t.Error("cloneOptions shares maps with the original")
	}

	if empty := cloneOptions(nil, nil); empty.Data == nil {
		t.Error("cloneOptions(nil) should return usable Data")
	}
}

func TestCloneTypedContainers(t *testing.T) {
	orig := map[string]any{
		"rows":  []map[string]any{{"n": 1}},
		"index": map[string][]string{"k": {"v"}},
		"nil":   []int(nil),
		"ptr":   &Template{},
	}

	got := cloneMap(orig)
	if !reflect.DeepEqual(got, orig) {
		t.Fatalf("clone differs from the original: %v", got)
	}
	if got["ptr"] != orig["ptr"] {
		t.Error("pointers should be shared")
	}

	got["rows"].([]map[string]any)[0]["n"] = 2
	got["index"].(map[string][]string)["k"][0] = "changed"
	if orig["rows"].([]map[string]any)[0]["n"] != 1 || orig["index"].(map[string][]string)["k"][0] != "v" {
		t.Error("cloneMap shares typed containers with the original")
	}
}
