package space

import "testing"

func TestFreeBlockIndex_AddKeepsSizeOrder(t *testing.T) {
	idx := NewFreeBlockIndex(8)
	idx.Add(100, 50)
	idx.Add(200, 10)
	idx.Add(300, 30)

	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", idx.Len())
	}
	if idx.GetKey(0) != 10 || idx.GetValue(0) != 200 {
		t.Fatalf("expected smallest entry first, got key=%d val=%d", idx.GetKey(0), idx.GetValue(0))
	}
	if idx.GetKey(2) != 50 {
		t.Fatalf("expected largest entry last, got %d", idx.GetKey(2))
	}
}

func TestFreeBlockIndex_FindFirstGreaterEqualKeyIndex(t *testing.T) {
	idx := NewFreeBlockIndex(8)
	idx.Add(100, 10)
	idx.Add(200, 30)
	idx.Add(300, 50)

	i := idx.FindFirstGreaterEqualKeyIndex(20)
	if i == -1 || idx.GetKey(i) != 30 {
		t.Fatalf("expected first entry >= 20 to be size 30, got index %d", i)
	}

	if idx.FindFirstGreaterEqualKeyIndex(100) != -1 {
		t.Fatal("expected no entry >= 100")
	}
}

func TestFreeBlockIndex_Remove(t *testing.T) {
	idx := NewFreeBlockIndex(8)
	idx.Add(100, 10)
	idx.Add(200, 20)

	idx.Remove(0)
	if idx.Len() != 1 || idx.GetKey(0) != 20 {
		t.Fatalf("expected only the size-20 entry left, got len=%d key=%d", idx.Len(), idx.GetKey(0))
	}
}

func TestFreeBlockIndex_Full(t *testing.T) {
	idx := NewFreeBlockIndex(2)
	if idx.Full() {
		t.Fatal("expected empty index not full")
	}
	idx.Add(1, 1)
	idx.Add(2, 2)
	if !idx.Full() {
		t.Fatal("expected index at capacity to report full")
	}
}

func TestFreeBlockIndex_ResetList_DrainsAndClears(t *testing.T) {
	idx := NewFreeBlockIndex(8)
	idx.Add(100, 10)
	idx.Add(200, 20)

	extents := idx.ResetList()
	if len(extents) != 2 {
		t.Fatalf("expected 2 extents, got %d", len(extents))
	}
	if idx.Len() != 0 {
		t.Fatal("expected index empty after ResetList")
	}
}
