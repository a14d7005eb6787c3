package idgen

import (
	"sort"
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	gen := UUIDv7()
	id := gen()
	if len(id) != 36 {
		t.Fatalf("UUIDv7: got length %d, want 36: %q", len(id), id)
	}
	if id[14] != '7' {
		t.Fatalf("UUIDv7: version nibble = %q, want 7: %q", id[14], id)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen()
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatal("UUIDv7: successive IDs not lexically sorted")
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("itm_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "itm_") {
		t.Fatalf("Prefixed: %q lacks prefix", id)
	}
	if len(id) != 4+36 {
		t.Fatalf("Prefixed: got length %d, want 40", len(id))
	}
}

func TestItemsDefault(t *testing.T) {
	a, b := Items(), Items()
	if a == b {
		t.Fatal("Items generated a duplicate")
	}
	if !strings.HasPrefix(a, "itm_") {
		t.Fatalf("Items: %q lacks itm_ prefix", a)
	}
}
