package internaldefs

import (
	"strings"
	"testing"
)

func TestDefsAreUnique(t *testing.T) {
	names := map[string]bool{AuditDroppedName: true}
	for _, d := range CounterDefs {
		if names[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		if !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("counter %s missing _total suffix", d.Name)
		}
		names[d.Name] = true
	}
	for _, d := range HistogramDefs {
		if names[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		names[d.Name] = true
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatalf("bounds %d and suffixes %d disagree", len(HistogramUpperBounds), len(HistogramBoundSuffix))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
