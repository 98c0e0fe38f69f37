//go:build linux

package memory

import "testing"

func TestReadMemoryHost(t *testing.T) {
	var sample MemorySample
	if err := ReadMemory(&sample); err != nil {
		t.Fatalf("ReadMemory() error = %v", err)
	}

	if sample.RAMTotal == 0 {
		t.Error("RAMTotal = 0, want a positive total")
	}
	if sample.RAMFree > sample.RAMTotal {
		t.Errorf("RAMFree %d exceeds RAMTotal %d", sample.RAMFree, sample.RAMTotal)
	}
	if sample.SwapFree > sample.SwapTotal {
		t.Errorf("SwapFree %d exceeds SwapTotal %d", sample.SwapFree, sample.SwapTotal)
	}
}

func TestReadMemoryHostTotalsStable(t *testing.T) {
	// Free figures move with load; the totals do not.
	var first, second MemorySample
	if err := ReadMemory(&first); err != nil {
		t.Fatalf("ReadMemory() error = %v", err)
	}
	if err := ReadMemory(&second); err != nil {
		t.Fatalf("ReadMemory() error = %v", err)
	}
	if first.RAMTotal != second.RAMTotal || first.SwapTotal != second.SwapTotal {
		t.Errorf("totals changed between reads: %+v vs %+v", first, second)
	}
}

func BenchmarkReadMemory(b *testing.B) {
	var sample MemorySample
	collector := New()

	b.ReportAllocs()
	for b.Loop() {
		if err := collector.ReadMemory(&sample); err != nil {
			b.Fatal(err)
		}
	}
}
