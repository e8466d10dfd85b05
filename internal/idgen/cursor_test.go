package idgen

import (
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
)

func TestRegularCursor_Sequential(t *testing.T) {
	c, err := NewRegular(100, 104, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"100", "101", "102", "103", "104"}
	for i, w := range want {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("Next() %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("Next() %d = %q, want %q", i, got, w)
		}
	}

	if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
		t.Errorf("expected ErrRangeExhausted after range end, got %v", err)
	}
}

func TestRegularCursor_Step(t *testing.T) {
	c, err := NewRegular(10, 20, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"10", "15", "20"}
	for _, w := range want {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != w {
			t.Errorf("Next() = %q, want %q", got, w)
		}
	}
	if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
		t.Errorf("expected ErrRangeExhausted, got %v", err)
	}
}

func TestRegularCursor_ExhaustionDoesNotCorrupt(t *testing.T) {
	c, err := NewRegular(1, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Repeated exhausted calls stay exhausted and never issue again.
	for i := 0; i < 3; i++ {
		if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
			t.Fatalf("call %d: expected ErrRangeExhausted, got %v", i, err)
		}
	}
}

func TestRegularCursor_ExhaustsAtMaxInt64(t *testing.T) {
	c, err := NewRegular(math.MaxInt64-1, math.MaxInt64, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"9223372036854775806", "9223372036854775807"}
	for _, w := range want {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != w {
			t.Errorf("Next() = %q, want %q", got, w)
		}
	}
	// Stepping past MaxInt64 must exhaust, never wrap negative.
	for i := 0; i < 3; i++ {
		if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
			t.Fatalf("call %d past range end: expected ErrRangeExhausted, got %v", i, err)
		}
	}
}

func TestRegularCursor_StepPastMaxInt64(t *testing.T) {
	c, err := NewRegular(math.MaxInt64-2, math.MaxInt64, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"9223372036854775805", "9223372036854775807"}
	for _, w := range want {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != w {
			t.Errorf("Next() = %q, want %q", got, w)
		}
	}
	if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
		t.Errorf("expected ErrRangeExhausted, got %v", err)
	}
}

func TestRegularCursor_FullSpanRange(t *testing.T) {
	// Span wider than MaxInt64; position arithmetic must stay exact.
	c, err := NewRegular(math.MinInt64, math.MaxInt64, math.MaxInt64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"-9223372036854775808", "-1", "9223372036854775806"}
	for _, w := range want {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != w {
			t.Errorf("Next() = %q, want %q", got, w)
		}
	}
	if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
		t.Errorf("expected ErrRangeExhausted, got %v", err)
	}
}

func TestRegularCursor_ConcurrentUniqueness(t *testing.T) {
	const n = 1000
	c, err := NewRegular(0, n-1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id, err := c.Next()
				if err != nil {
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate identifier issued: %s", id)
		}
		seen[id] = struct{}{}
		v, err := strconv.ParseInt(id, 10, 64)
		if err != nil || v < 0 || v > n-1 {
			t.Fatalf("identifier out of range: %s", id)
		}
	}
	if len(seen) != n {
		t.Errorf("expected %d identifiers, got %d", n, len(seen))
	}
}

func TestPrequalCursor_DecimalFidelity(t *testing.T) {
	c, err := NewPrequal("10000000000000000000", "99999999999999999999", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := c.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "10000000000000000000" {
		t.Errorf("first id = %q, want 10000000000000000000", first)
	}

	second, err := c.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The 20th digit must survive: no float rounding, no scientific notation.
	if second != "10000000000000000001" {
		t.Errorf("second id = %q, want 10000000000000000001", second)
	}
}

func TestPrequalCursor_LeadingZeroWidth(t *testing.T) {
	c, err := NewPrequal("42", "45", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, err := c.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 20 {
		t.Errorf("id length = %d, want 20 (%q)", len(id), id)
	}
	if id != "00000000000000000042" {
		t.Errorf("id = %q, want 00000000000000000042", id)
	}
}

func TestPrequalCursor_Exhaustion(t *testing.T) {
	c, err := NewPrequal("99999999999999999998", "99999999999999999999", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Next(); err != nil {
			t.Fatalf("Next() %d: unexpected error: %v", i, err)
		}
	}
	if _, err := c.Next(); !errors.Is(err, ErrRangeExhausted) {
		t.Errorf("expected ErrRangeExhausted, got %v", err)
	}
}

func TestPrequalCursor_ConcurrentUniqueness(t *testing.T) {
	const n = 500
	c, err := NewPrequal("9999999999999999000", "99999999999999999999", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += 8 {
				id, err := c.Next()
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				ids <- id
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate identifier issued: %s", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != n {
		t.Errorf("expected %d identifiers, got %d", n, len(seen))
	}
}

func TestNewPrequal_Validation(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		step       int64
	}{
		{"not a number", "abc", "100", 1},
		{"negative", "-5", "100", 1},
		{"too many digits", "100000000000000000000", "999999999999999999999", 1},
		{"start after end", "100", "50", 1},
		{"zero step", "1", "100", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewPrequal(tc.start, tc.end, tc.step); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}

func TestFromSpec(t *testing.T) {
	c, err := FromSpec(Spec{Family: FamilyRegular, Start: "1", End: "10", Step: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Family() != FamilyRegular {
		t.Errorf("family = %v, want regular", c.Family())
	}

	c, err = FromSpec(Spec{Family: FamilyPrequal, Start: "10000000000000000000", End: "10000000000000000010"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Family() != FamilyPrequal {
		t.Errorf("family = %v, want prequal", c.Family())
	}

	if _, err := FromSpec(Spec{Family: "bogus", Start: "1", End: "2"}); err == nil {
		t.Error("expected error for unknown family")
	}
}
