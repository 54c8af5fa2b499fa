package gpu

import (
	"testing"
	"unsafe"
)

func TestPad4RoundsUpOddByteCounts(t *testing.T) {
	// Three uint16 indices, the single-triangle case: 6 bytes must become 8.
	indices := []uint16{0, 1, 2}
	padded := pad4(uint16Bytes(indices))

	if got := len(padded); got != 8 {
		t.Fatalf("padded length = %d, want 8", got)
	}
	for i := 6; i < 8; i++ {
		if padded[i] != 0 {
			t.Errorf("pad byte %d = %d, want 0", i, padded[i])
		}
	}
	// The source indices survive the copy.
	if padded[0] != 0 || padded[2] != 1 || padded[4] != 2 {
		t.Error("padding corrupted index data")
	}
}

func TestPad4LeavesAlignedDataAlone(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out := pad4(data)
	if len(out) != len(data) {
		t.Fatalf("aligned slice grew to %d bytes", len(out))
	}
	if unsafe.SliceData(out) != unsafe.SliceData(data) {
		t.Error("aligned slice should pass through without a copy")
	}
}

func TestPad4NeverMutatesCallerData(t *testing.T) {
	indices := []uint16{7, 8, 9}
	raw := uint16Bytes(indices)
	_ = pad4(raw)
	if indices[0] != 7 || indices[1] != 8 || indices[2] != 9 {
		t.Error("padding mutated the caller's indices")
	}
}

func TestPad4EmptyInput(t *testing.T) {
	if out := pad4(nil); len(out) != 0 {
		t.Errorf("empty input padded to %d bytes", len(out))
	}
}
