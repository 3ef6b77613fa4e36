package model

import (
	"errors"
	"testing"
)

func TestEntityMapCreateMintsIncreasingKeys(t *testing.T) {
	m0 := NewEntityMap()
	m1, k1 := m0.Create("LINK", Mutable, map[string]any{"url": "a"})
	m2, k2 := m1.Create("LINK", Immutable, nil)
	if k1 != "1" || k2 != "2" {
		t.Fatalf("keys = %q %q", k1, k2)
	}
	if _, k3 := m1.Create("MENTION", Mutable, nil); k3 != "2" {
		t.Fatalf("minting from an older map = %q", k3)
	}
	if m0.Len() != 0 || m1.Len() != 1 || m2.Len() != 2 {
		t.Fatalf("earlier maps were mutated")
	}
	if keys := m2.Keys(); keys[0] != "1" || keys[1] != "2" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestEntityMapPutAdvancesCounter(t *testing.T) {
	m := NewEntityMap().Put("7", NewEntity("IMAGE", Immutable, nil))
	_, key := m.Create("LINK", Mutable, nil)
	if key != "8" {
		t.Fatalf("key after Put(7) = %q, want 8", key)
	}
	m = NewEntityMap().Put("abc", NewEntity("IMAGE", Immutable, nil))
	_, key = m.Create("LINK", Mutable, nil)
	if key != "1" {
		t.Fatalf("non-numeric Put should not move the counter, got %q", key)
	}
}

func TestEntityMapGetUnknownKey(t *testing.T) {
	expectViolation(t, func() { NewEntityMap().Get("1") })
	if _, ok := NewEntityMap().Lookup("1"); ok {
		t.Fatalf("Lookup should report absence")
	}
}

func TestEntityMapDataUpdates(t *testing.T) {
	m, key := NewEntityMap().Create("LINK", Mutable, map[string]any{"url": "a", "title": "t"})
	merged := m.MergeData(key, map[string]any{"url": "b"})
	if d := merged.Get(key).Data(); d["url"] != "b" || d["title"] != "t" {
		t.Fatalf("MergeData = %v", d)
	}
	if d := m.Get(key).Data(); d["url"] != "a" {
		t.Fatalf("original entity mutated: %v", d)
	}
	replaced := m.ReplaceData(key, map[string]any{"src": "x"})
	if d := replaced.Get(key).Data(); len(d) != 1 || d["src"] != "x" {
		t.Fatalf("ReplaceData = %v", d)
	}
	if m.SetMutability(key, Mutable) != m {
		t.Fatalf("unchanged mutability should return the receiver")
	}
	if m.SetMutability(key, Segmented).Get(key).Mutability() != Segmented {
		t.Fatalf("SetMutability failed")
	}
}

func TestParseMutability(t *testing.T) {
	for _, s := range []string{"MUTABLE", "IMMUTABLE", "SEGMENTED", "MUTABLE_INTERIOR"} {
		if m, err := ParseMutability(s); err != nil || string(m) != s {
			t.Fatalf("ParseMutability(%q) = %q, %v", s, m, err)
		}
	}
	if _, err := ParseMutability("mutable"); !errors.Is(err, ErrInvalidMutability) {
		t.Fatalf("expected ErrInvalidMutability, got %v", err)
	}
	if Immutable.Extends() || Segmented.Extends() || !MutableInterior.Extends() {
		t.Fatalf("Extends misclassified")
	}
}

func TestEntityDecodeData(t *testing.T) {
	var link struct {
		URL    string `mapstructure:"url"`
		Width  int    `mapstructure:"width"`
		Target string
	}
	e := NewEntity("LINK", Mutable, map[string]any{"url": "https://x", "width": "40", "Target": "_blank"})
	if err := e.DecodeData(&link); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if link.URL != "https://x" || link.Width != 40 || link.Target != "_blank" {
		t.Fatalf("decoded = %+v", link)
	}
}
