package main

import (
	"testing"
)

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	rg := NewRegistry()

	a := rg.Register(newMockFrameConn(), "a")
	b := rg.Register(newMockFrameConn(), "b")

	if a.id == b.id {
		t.Errorf("both connections got id %d", a.id)
	}
	if rg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", rg.Count())
	}
}

func TestLookupByName(t *testing.T) {
	rg := NewRegistry()
	a := rg.Register(newMockFrameConn(), "a")

	got, ok := rg.LookupByName("a")
	if !ok || got != a {
		t.Errorf("LookupByName(a) = %v, %t", got, ok)
	}
	if _, ok := rg.LookupByName("ghost"); ok {
		t.Error("LookupByName(ghost) reported a connection")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	rg := NewRegistry()
	a := rg.Register(newMockFrameConn(), "a")

	rg.Unregister(a.id)
	rg.Unregister(a.id)
	rg.Unregister(999)

	if rg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", rg.Count())
	}
	if _, ok := rg.LookupByName("a"); ok {
		t.Error("unregistered connection still resolvable by name")
	}
}

func TestDuplicateNamesResolveToFirst(t *testing.T) {
	rg := NewRegistry()
	first := rg.Register(newMockFrameConn(), "twin")
	second := rg.Register(newMockFrameConn(), "twin")

	if got, _ := rg.LookupByName("twin"); got != first {
		t.Error("LookupByName did not resolve to the first registration")
	}

	rg.Unregister(first.id)
	if got, ok := rg.LookupByName("twin"); !ok || got != second {
		t.Error("name was not promoted to the surviving connection")
	}
}

func TestAllReturnsDefensiveCopy(t *testing.T) {
	rg := NewRegistry()
	a := rg.Register(newMockFrameConn(), "a")
	rg.Register(newMockFrameConn(), "b")

	snapshot := rg.All()
	if len(snapshot) != 2 {
		t.Fatalf("All() returned %d connections, want 2", len(snapshot))
	}

	rg.Unregister(a.id)
	if len(snapshot) != 2 {
		t.Error("snapshot shrank after Unregister")
	}
}
