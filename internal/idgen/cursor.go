// Package idgen issues unique, ordered test identifiers from bounded
// numeric ranges. Two families are supported: machine-word integers
// ("regular") and 20-digit arbitrary-precision decimals ("prequal").
package idgen

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrRangeExhausted indicates the cursor has no identifiers left. Fatal to
// the run that owns the cursor.
var ErrRangeExhausted = errors.New("identifier range exhausted")

// Family names an identifier range/format.
type Family string

const (
	FamilyRegular Family = "regular"
	FamilyPrequal Family = "prequal"
)

// prequalWidth is the fixed output width of prequal identifiers.
const prequalWidth = 20

// Cursor issues identifiers. Next is safe for concurrent callers: N calls
// with room for N yield pairwise-distinct in-range values with no gaps.
type Cursor interface {
	Next() (string, error)
	Family() Family
}

// Spec describes a cursor range from configuration. Start and End are
// decimal strings so that prequal ranges survive YAML parsing without
// precision loss.
type Spec struct {
	Family Family `yaml:"family"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Step   int64  `yaml:"step"`
}

// FromSpec builds a cursor for the spec's family.
func FromSpec(s Spec) (Cursor, error) {
	step := s.Step
	if step == 0 {
		step = 1
	}
	switch s.Family {
	case FamilyRegular, "":
		start, err := strconv.ParseInt(s.Start, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing range start %q: %w", s.Start, err)
		}
		end, err := strconv.ParseInt(s.End, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing range end %q: %w", s.End, err)
		}
		return NewRegular(start, end, step)
	case FamilyPrequal:
		return NewPrequal(s.Start, s.End, step)
	default:
		return nil, fmt.Errorf("unknown identifier family %q", s.Family)
	}
}

// RegularCursor issues int64 identifiers from a lock-free atomic counter.
// Issuance counts positions rather than advancing the value itself: a value
// near MaxInt64 would wrap when stepped past the range end, so positions and
// the span are kept in uint64, where the arithmetic is exact for any
// start <= end.
type RegularCursor struct {
	start, step int64
	last        uint64 // highest issuable position: (end-start)/step
	issued      atomic.Uint64
}

func NewRegular(start, end, step int64) (*RegularCursor, error) {
	if step < 1 {
		return nil, fmt.Errorf("step must be >= 1, got %d", step)
	}
	if start > end {
		return nil, fmt.Errorf("range start %d exceeds end %d", start, end)
	}
	// Two's-complement subtraction yields the exact unsigned span even when
	// it exceeds MaxInt64.
	span := uint64(end) - uint64(start)
	return &RegularCursor{
		start: start,
		step:  step,
		last:  span / uint64(step),
	}, nil
}

func (c *RegularCursor) Family() Family { return FamilyRegular }

// Next issues the next identifier. The position read and its advance are a
// single fetch-and-add, so concurrent callers never observe duplicates.
func (c *RegularCursor) Next() (string, error) {
	n := c.issued.Add(1) - 1
	if n > c.last {
		return "", ErrRangeExhausted
	}
	// The true value fits [start, end], so the wrapping add lands on it.
	v := c.start + int64(n*uint64(c.step))
	return strconv.FormatInt(v, 10), nil
}

// PrequalCursor issues 20-digit decimal identifiers. Values live in a
// big.Int guarded by a single mutex; they must never pass through a float
// or int64, which would lose precision above 2^53 / 2^63.
type PrequalCursor struct {
	mu      sync.Mutex
	end     *big.Int
	step    *big.Int
	current *big.Int // next value to issue
}

func NewPrequal(start, end string, step int64) (*PrequalCursor, error) {
	if step < 1 {
		return nil, fmt.Errorf("step must be >= 1, got %d", step)
	}
	s, err := parsePrequal(start)
	if err != nil {
		return nil, fmt.Errorf("range start: %w", err)
	}
	e, err := parsePrequal(end)
	if err != nil {
		return nil, fmt.Errorf("range end: %w", err)
	}
	if s.Cmp(e) > 0 {
		return nil, fmt.Errorf("range start %s exceeds end %s", start, end)
	}
	return &PrequalCursor{
		end:     e,
		step:    big.NewInt(step),
		current: s,
	}, nil
}

func parsePrequal(v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", v)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("must be non-negative: %q", v)
	}
	if len(n.String()) > prequalWidth {
		return nil, fmt.Errorf("exceeds %d digits: %q", prequalWidth, v)
	}
	return n, nil
}

func (c *PrequalCursor) Family() Family { return FamilyPrequal }

// Next issues the next identifier as a zero-padded 20-digit string.
func (c *PrequalCursor) Next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Cmp(c.end) > 0 {
		return "", ErrRangeExhausted
	}
	id := fmt.Sprintf("%020d", c.current)
	c.current.Add(c.current, c.step)
	return id, nil
}
