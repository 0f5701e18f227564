package money

import "testing"

func TestFromStringRoundsToScale4(t *testing.T) {
	m, err := FromString("1000.123456")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if got := m.String(); got != "1000.1235" {
		t.Fatalf("expected 1000.1235, got %s", got)
	}
}

func TestArithmetic(t *testing.T) {
	a := FromFloat(950.0)
	b := FromFloat(50.0)

	if sum := a.Add(b); sum.String() != "1000.0000" {
		t.Fatalf("unexpected sum: %s", sum.String())
	}
	if diff := a.Sub(b); diff.String() != "900.0000" {
		t.Fatalf("unexpected diff: %s", diff.String())
	}
	if neg := b.Neg(); !neg.IsNegative() {
		t.Fatalf("expected negative amount")
	}
}

func TestRequireNonNegative(t *testing.T) {
	if err := FromFloat(-0.01).RequireNonNegative(); err != ErrNegative {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
	if err := FromFloat(0).RequireNonNegative(); err != nil {
		t.Fatalf("zero should be non-negative: %v", err)
	}
}

func TestRequirePositive(t *testing.T) {
	if err := FromFloat(0).RequirePositive(); err != ErrNotPositive {
		t.Fatalf("expected ErrNotPositive for zero, got %v", err)
	}
	if err := FromFloat(-5).RequirePositive(); err != ErrNotPositive {
		t.Fatalf("expected ErrNotPositive for negative, got %v", err)
	}
	if err := FromFloat(0.0001).RequirePositive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := FromFloat(1234.5)
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var out Money
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if out.Cmp(m) != 0 {
		t.Fatalf("round trip mismatch: %s vs %s", out, m)
	}
}
