package hasher

import "testing"

func TestFactID_Deterministic(t *testing.T) {
	content := "Company X acquired Company Y in 2023."

	id1 := FactID(content)
	id2 := FactID(content)

	if id1 != id2 {
		t.Errorf("FactID not deterministic: %s != %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(id1))
	}
}

func TestFactID_DifferentContentDifferentID(t *testing.T) {
	id1 := FactID("The treaty entered into force on 2024-06-01.")
	id2 := FactID("The treaty did not enter into force on 2024-06-01.")

	if id1 == id2 {
		t.Errorf("Expected different ids for different content")
	}
}

func TestBlockID_SortsFactIDs(t *testing.T) {
	// fact_ids order in the call must not affect the hash: the
	// payload always hashes the sorted set.
	a := BlockID("prev", 1, "2024-01-01T00:00:00Z", []string{"bbb", "aaa", "ccc"})
	b := BlockID("prev", 1, "2024-01-01T00:00:00Z", []string{"aaa", "bbb", "ccc"})

	if a != b {
		t.Errorf("Expected BlockID to be invariant to input fact_id order: %s != %s", a, b)
	}
}

func TestBlockID_Deterministic(t *testing.T) {
	id1 := BlockID("prev000", 5, "2024-01-01T00:00:00Z", []string{"f1", "f2"})
	id2 := BlockID("prev000", 5, "2024-01-01T00:00:00Z", []string{"f1", "f2"})

	if id1 != id2 {
		t.Errorf("BlockID not deterministic: %s != %s", id1, id2)
	}
}

func TestBlockID_SensitiveToEveryField(t *testing.T) {
	base := BlockID("prev", 1, "2024-01-01T00:00:00Z", []string{"f1"})

	if got := BlockID("other", 1, "2024-01-01T00:00:00Z", []string{"f1"}); got == base {
		t.Errorf("expected different previous_block_id to change the hash")
	}
	if got := BlockID("prev", 2, "2024-01-01T00:00:00Z", []string{"f1"}); got == base {
		t.Errorf("expected different height to change the hash")
	}
	if got := BlockID("prev", 1, "2024-01-02T00:00:00Z", []string{"f1"}); got == base {
		t.Errorf("expected different created_at to change the hash")
	}
	if got := BlockID("prev", 1, "2024-01-01T00:00:00Z", []string{"f2"}); got == base {
		t.Errorf("expected different fact_ids to change the hash")
	}
}
