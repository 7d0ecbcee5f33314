package collector

import (
	"context"
	"testing"
)

type stubFetcher struct {
	id string
}

func (s *stubFetcher) SourceID() string                          { return s.id }
func (s *stubFetcher) Fetch(context.Context) ([]Trend, error) { return nil, nil }

func TestRegistryOrderAndLookup(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"cailian", "jin10", "baidu"} {
		if err := r.Register(&stubFetcher{id: id}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	// SourceIDs 按注册顺序返回，不按字典序
	ids := r.SourceIDs()
	want := []string{"cailian", "jin10", "baidu"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	if f, ok := r.Get("jin10"); !ok || f.SourceID() != "jin10" {
		t.Fatalf("lookup jin10 failed: ok=%v", ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("lookup of unregistered source should fail")
	}
}

func TestRegistryRejectsDuplicatesAndEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubFetcher{id: "cailian"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&stubFetcher{id: "cailian"}); err == nil {
		t.Fatal("duplicate register should fail")
	}
	if err := r.Register(&stubFetcher{id: ""}); err == nil {
		t.Fatal("empty id should fail")
	}
}
