package shape

import "testing"

func TestParseShapeLabelsSplitsThreeRows(t *testing.T) {
	env := NewEnv()
	batch, input, output, err := ParseShapeLabels(env, "b|ij->o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Dims) != 1 {
		t.Fatalf("expected one batch axis, got %d", len(batch.Dims))
	}
	if len(input.Dims) != 2 {
		t.Fatalf("expected two input axes, got %d", len(input.Dims))
	}
	if len(output.Dims) != 1 {
		t.Fatalf("expected one output axis, got %d", len(output.Dims))
	}
}

func TestParseShapeLabelsSharesDimVarByLabel(t *testing.T) {
	env := NewEnv()
	_, input, output, err := ParseShapeLabels(env, "n->n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	iv, ok := input.Dims[0].(DimVar)
	if !ok {
		t.Fatalf("expected a dim-variable")
	}
	ov, ok := output.Dims[0].(DimVar)
	if !ok {
		t.Fatalf("expected a dim-variable")
	}
	if iv.ID != ov.ID {
		t.Fatalf("expected the repeated label %q to share one dim-variable", "n")
	}
}

func TestParseShapeLabelsMultiCharMode(t *testing.T) {
	env := NewEnv()
	_, input, _, err := ParseShapeLabels(env, "batch seq hidden->")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(input.Dims) != 3 {
		t.Fatalf("expected three space-separated axes, got %d", len(input.Dims))
	}
}

func TestTokenizeAxesCommaTriggersMultiCharMode(t *testing.T) {
	got := tokenizeAxes("a,bb,c")
	want := []string{"a", "bb", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestTokenizeAxesParenTriggersMultiCharMode(t *testing.T) {
	got := tokenizeAxes("(batch hidden)")
	want := []string{"batch", "hidden"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestParseShapeLabelsCommaWithoutSpaceIsMultiCharMode(t *testing.T) {
	env := NewEnv()
	_, input, _, err := ParseShapeLabels(env, "aa,bb->")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(input.Dims) != 2 {
		t.Fatalf("expected two comma-separated multi-char axes, got %d", len(input.Dims))
	}
}

func TestParseShapeLabelsLeadingEllipsis(t *testing.T) {
	env := NewEnv()
	_, input, _, err := ParseShapeLabels(env, "...ij->")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, isVar := input.IsBareVar(); isVar {
		t.Fatalf("row with explicit axes after ellipsis should not be a bare var")
	}
	if _, ok := input.Terminator.(RowVarTerm); !ok {
		t.Fatalf("expected an open row-variable terminator from the leading ellipsis, to be closed later by FinishInference")
	}
	if len(input.Dims) != 2 {
		t.Fatalf("expected the two axes after the ellipsis, got %d", len(input.Dims))
	}
}

func TestParseShapeLabelsRejectsMidRowEllipsis(t *testing.T) {
	env := NewEnv()
	if _, _, _, err := ParseShapeLabels(env, "i...j->"); err == nil {
		t.Fatalf("expected an error for a non-leading ellipsis")
	}
}

func TestParseEinsumSharesLabelsAcrossOperands(t *testing.T) {
	env := NewEnv()
	operands, result, err := ParseEinsum(env, "ij;jk=>ik")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(operands) != 2 {
		t.Fatalf("expected two operands, got %d", len(operands))
	}
	jLeft := operands[0].Dims[1].(DimVar)
	jRight := operands[1].Dims[0].(DimVar)
	if jLeft.ID != jRight.ID {
		t.Fatalf("expected the shared contraction label j to unify to one dim-variable")
	}
	if len(result.Dims) != 2 {
		t.Fatalf("expected a two-axis result, got %d", len(result.Dims))
	}
}

func TestParseEinsumRequiresResultSeparator(t *testing.T) {
	env := NewEnv()
	if _, _, err := ParseEinsum(env, "ij;jk"); err == nil {
		t.Fatalf("expected an error for a missing => separator")
	}
}

func TestPrintRowRoundTripsSingleCharMode(t *testing.T) {
	env := NewEnv()
	batch, input, output, err := ParseShapeLabels(env, "b|ij->o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spec := PrintShapeLabels(batch, input, output)
	if spec != "b|ij->o" {
		t.Fatalf("expected round-trip spec %q, got %q", "b|ij->o", spec)
	}
}

func TestPrintRowMultiCharMode(t *testing.T) {
	env := NewEnv()
	_, input, _, err := ParseShapeLabels(env, "batch seq->")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := PrintRow(input); got != "batch seq" {
		t.Fatalf("expected space-joined labels, got %q", got)
	}
}
