package agent

import (
	"math"
	"strings"
	"testing"
)

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"1+2", 3},
		{"2*3+4", 10},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10/4", 2.5},
		{"-3+5", 2},
		{"2**10", 1024},
		{"2**3**2", 512}, // right-associative
		{"1.5 * 2", 3},
		{" 7 - 2 - 1 ", 4},
	}
	for _, tc := range cases {
		got, err := EvalArithmetic(tc.expr)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.expr, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%q: expected %g, got %g", tc.expr, tc.want, got)
		}
	}
}

func TestEvalArithmeticErrors(t *testing.T) {
	for _, expr := range []string{"1/0", "2+", "(1+2", "abc", "1 + x", ""} {
		if _, err := EvalArithmetic(expr); err == nil {
			t.Errorf("%q: expected error", expr)
		}
	}
}

func TestExtractCalculation(t *testing.T) {
	expr, ok := extractCalculation("The chest needs 3 keys. calculate: 12 * 3 + 4")
	if !ok {
		t.Fatal("expected an extracted expression")
	}
	if expr != "12 * 3 + 4" {
		t.Errorf("unexpected expression: %q", expr)
	}

	if _, ok := extractCalculation("no math needed here"); ok {
		t.Error("expected no extraction from plain prose")
	}
}

func TestCalculatorNote(t *testing.T) {
	if note := calculatorNote("6*7"); note != "Calculator result: 42" {
		t.Errorf("unexpected note: %q", note)
	}
	if note := calculatorNote("10/4"); note != "Calculator result: 2.5" {
		t.Errorf("unexpected note: %q", note)
	}
	if note := calculatorNote("1/0"); !strings.HasPrefix(note, "Calculator error:") {
		t.Errorf("expected explicit error note, got %q", note)
	}
}
