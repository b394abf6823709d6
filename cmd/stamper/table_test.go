package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]tableColumn{{Header: "Outcome"}, {Header: "Count", Numeric: true}},
		[][]string{
			{"processed", "3"},
			{"failed"},
		},
	)
	for _, want := range []string{"Outcome", "Count", "processed", "failed", "3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<nil>") {
		t.Fatalf("short rows must pad with empty cells:\n%s", out)
	}
}

func TestRenderTableWithoutColumns(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}); out != "" {
		t.Fatalf("expected empty output without columns, got %q", out)
	}
}
