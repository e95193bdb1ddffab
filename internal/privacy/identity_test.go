package privacy

import (
	"strings"
	"testing"
)

func TestNewAnonymizedID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewAnonymizedID()
		if err != nil {
			t.Fatalf("NewAnonymizedID: %v", err)
		}
		if len(id) != anonymizedIDLen {
			t.Fatalf("id length = %d, want %d", len(id), anonymizedIDLen)
		}
		if strings.ToLower(id) != id {
			t.Fatalf("id %q is not lowercase hex", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPlaceholders(t *testing.T) {
	if got := PlaceholderEmail("abc123def456"); got != "abc123def456@anonymized.local" {
		t.Errorf("PlaceholderEmail = %q", got)
	}
	if got := PlaceholderName("abc123def456"); got != "Participant abc123def456" {
		t.Errorf("PlaceholderName = %q", got)
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("hello")
	b := ContentHash("hello")
	c := ContentHash("hello ")
	if a != b {
		t.Error("hash must be deterministic")
	}
	if a == c {
		t.Error("distinct content must not collide on a trivial case")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
}
