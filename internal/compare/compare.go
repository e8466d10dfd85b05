// Package compare performs deep structural comparison of JSON documents,
// producing a similarity score and a classified list of differences.
package compare

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies a single difference.
type Kind int

const (
	KindTypeMismatch Kind = iota
	KindValueMismatch
	KindMissingKey
	KindExtraKey
	KindToleranceExceeded
)

func (k Kind) String() string {
	switch k {
	case KindTypeMismatch:
		return "type_mismatch"
	case KindValueMismatch:
		return "value_mismatch"
	case KindMissingKey:
		return "missing_key"
	case KindExtraKey:
		return "extra_key"
	case KindToleranceExceeded:
		return "tolerance_exceeded"
	default:
		return "unknown"
	}
}

// Severity ranks how much a difference matters to the similarity score.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Difference is one divergence between the two documents. Path is the full
// key/index chain from the document root.
type Difference struct {
	Path     []string
	Kind     Kind
	Left     string
	Right    string
	Severity Severity
}

// PathString renders the path as a dotted chain, e.g. "b.c" or "items.2".
func (d Difference) PathString() string {
	if len(d.Path) == 0 {
		return "root"
	}
	return strings.Join(d.Path, ".")
}

// Result is the outcome of comparing two documents.
type Result struct {
	Similarity  float64
	Differences []Difference
	Summary     map[Severity]int
}

// Config controls comparison behavior.
type Config struct {
	// IgnoreKeys suppresses the named object keys at any depth, both for
	// one-sided keys and for value comparison of shared keys. Used for
	// known-volatile fields such as timestamps or correlation IDs.
	IgnoreKeys []string
	// Tolerance is the allowed numeric deviation. Zero means exact.
	Tolerance float64
	// Relative interprets Tolerance as a fraction of the larger magnitude
	// instead of an absolute delta.
	Relative bool
	// MaxDepth bounds recursion; subtrees below it are compared as raw
	// text. Defensive limit, not a semantic rule. Zero means DefaultMaxDepth.
	MaxDepth int
	// Weights maps severity to score weight. Missing entries fall back to
	// defaults.
	Weights map[Severity]float64
}

const (
	// DefaultMaxDepth is the recursion ceiling when Config.MaxDepth is zero.
	DefaultMaxDepth = 64
	// maxValueLen truncates reported values for readability.
	maxValueLen = 200
	// maxExactDigits guards numeric-aware string comparison: beyond float64
	// precision, strings are compared exactly.
	maxExactDigits = 15
)

var defaultWeights = map[Severity]float64{
	SeverityInfo:     0.5,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 4,
}

// value category used to detect type mismatches.
type category int

const (
	catNull category = iota
	catBool
	catNumber
	catString
	catArray
	catObject
)

func categoryOf(r gjson.Result) category {
	switch {
	case r.IsObject():
		return catObject
	case r.IsArray():
		return catArray
	case r.Type == gjson.String:
		return catString
	case r.Type == gjson.Number:
		return catNumber
	case r.Type == gjson.True || r.Type == gjson.False:
		return catBool
	default:
		return catNull
	}
}

type walker struct {
	cfg    Config
	ignore map[string]struct{}
	diffs  []Difference
}

// Compare diffs two JSON documents. It is pure and total: malformed input
// yields a root type_mismatch difference, never an error.
func Compare(left, right []byte, cfg Config) Result {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}

	w := &walker{cfg: cfg, ignore: make(map[string]struct{}, len(cfg.IgnoreKeys))}
	for _, k := range cfg.IgnoreKeys {
		w.ignore[k] = struct{}{}
	}

	leftOK := gjson.ValidBytes(left)
	rightOK := gjson.ValidBytes(right)
	if !leftOK || !rightOK {
		w.add(nil, KindTypeMismatch, jsonStatus(leftOK), jsonStatus(rightOK))
		return w.result(1)
	}

	l := gjson.ParseBytes(left)
	r := gjson.ParseBytes(right)
	w.walk(nil, 0, l, r)

	total := leafCount(l)
	if rc := leafCount(r); rc > total {
		total = rc
	}
	return w.result(total)
}

func jsonStatus(valid bool) string {
	if valid {
		return "VALID_JSON"
	}
	return "INVALID_JSON"
}

func (w *walker) walk(path []string, depth int, l, r gjson.Result) {
	if depth >= w.cfg.MaxDepth {
		// Flatten: beyond the ceiling subtrees are compared as raw text.
		if l.Raw != r.Raw {
			w.add(path, KindValueMismatch, l.Raw, r.Raw)
		}
		return
	}

	lc, rc := categoryOf(l), categoryOf(r)
	if lc != rc {
		w.add(path, KindTypeMismatch, l.Raw, r.Raw)
		return
	}

	switch lc {
	case catObject:
		w.walkObjects(path, depth, l, r)
	case catArray:
		w.walkArrays(path, depth, l, r)
	case catNumber:
		w.walkNumbers(path, l, r)
	case catString:
		w.walkStrings(path, l, r)
	case catBool:
		if l.Bool() != r.Bool() {
			w.add(path, KindValueMismatch, l.Raw, r.Raw)
		}
	case catNull:
		// Both null: equal.
	}
}

func (w *walker) walkObjects(path []string, depth int, l, r gjson.Result) {
	lm, rm := l.Map(), r.Map()

	keys := make([]string, 0, len(lm)+len(rm))
	seen := make(map[string]struct{}, len(lm)+len(rm))
	for k := range lm {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range rm {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := w.ignore[k]; ok {
			continue
		}
		sub := append(append([]string(nil), path...), k)
		lv, lok := lm[k]
		rv, rok := rm[k]
		switch {
		case !lok:
			w.add(sub, KindExtraKey, "", rv.Raw)
		case !rok:
			w.add(sub, KindMissingKey, lv.Raw, "")
		default:
			w.walk(sub, depth+1, lv, rv)
		}
	}
}

func (w *walker) walkArrays(path []string, depth int, l, r gjson.Result) {
	la, ra := l.Array(), r.Array()

	// Element-wise by position; no reordering heuristics.
	n := len(la)
	if len(ra) < n {
		n = len(ra)
	}
	for i := 0; i < n; i++ {
		sub := append(append([]string(nil), path...), strconv.Itoa(i))
		w.walk(sub, depth+1, la[i], ra[i])
	}
	for i := n; i < len(la); i++ {
		sub := append(append([]string(nil), path...), strconv.Itoa(i))
		w.add(sub, KindMissingKey, la[i].Raw, "")
	}
	for i := n; i < len(ra); i++ {
		sub := append(append([]string(nil), path...), strconv.Itoa(i))
		w.add(sub, KindExtraKey, "", ra[i].Raw)
	}
}

func (w *walker) walkNumbers(path []string, l, r gjson.Result) {
	// Beyond float64 precision (20-digit identifiers), Num has already
	// rounded, so distinct values would compare equal. Fall back to exact
	// text comparison there.
	if digitCount(l.Raw) > maxExactDigits || digitCount(r.Raw) > maxExactDigits {
		if l.Raw != r.Raw {
			w.add(path, KindValueMismatch, l.Raw, r.Raw)
		}
		return
	}
	if !w.withinTolerance(l.Num, r.Num) {
		w.add(path, KindToleranceExceeded, l.Raw, r.Raw)
	}
}

func (w *walker) walkStrings(path []string, l, r gjson.Result) {
	if l.Str == r.Str {
		return
	}
	// Numeric-aware comparison: "20.0" and "20" are the same value. This is
	// a reporting nicety only; cross-type differences still surface as
	// type_mismatch before we get here.
	if ln, lok := parseNumericString(l.Str); lok {
		if rn, rok := parseNumericString(r.Str); rok {
			if w.withinTolerance(ln, rn) {
				return
			}
			w.add(path, KindValueMismatch, l.Raw, r.Raw)
			return
		}
	}
	w.add(path, KindValueMismatch, l.Raw, r.Raw)
}

// parseNumericString converts a string to a float64 for numeric-aware
// comparison. Strings with more significant digits than float64 can hold
// (e.g. 20-digit identifiers) are rejected so that distinct values are
// never collapsed by rounding.
func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if digitCount(s) > maxExactDigits {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func digitCount(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}

func (w *walker) withinTolerance(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff == 0 {
		return true
	}
	tol := w.cfg.Tolerance
	if w.cfg.Relative {
		scale := math.Max(math.Abs(a), math.Abs(b))
		return diff <= tol*scale
	}
	return diff <= tol
}

func (w *walker) add(path []string, kind Kind, left, right string) {
	w.diffs = append(w.diffs, Difference{
		Path:     append([]string(nil), path...),
		Kind:     kind,
		Left:     truncate(left),
		Right:    truncate(right),
		Severity: severityFor(kind),
	})
}

func severityFor(kind Kind) Severity {
	switch kind {
	case KindTypeMismatch:
		return SeverityCritical
	case KindMissingKey, KindExtraKey:
		return SeverityError
	case KindValueMismatch:
		return SeverityError
	case KindToleranceExceeded:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func truncate(s string) string {
	if len(s) > maxValueLen {
		return s[:maxValueLen] + "..."
	}
	return s
}

// result computes the severity-weighted similarity score over totalLeaves.
// The score is monotonically non-increasing as differences accumulate and
// clamped to [0, 100].
func (w *walker) result(totalLeaves int) Result {
	summary := make(map[Severity]int)
	weighted := 0.0
	for _, d := range w.diffs {
		summary[d.Severity]++
		weight, ok := w.cfg.Weights[d.Severity]
		if !ok {
			weight = defaultWeights[d.Severity]
		}
		weighted += weight
	}

	if totalLeaves < 1 {
		totalLeaves = 1
	}
	similarity := 100 * (1 - weighted/float64(totalLeaves))
	if len(w.diffs) > 0 && similarity >= 100 {
		// A difference always costs something, even with zero weights.
		similarity = math.Nextafter(100, 0)
	}
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 100 {
		similarity = 100
	}

	return Result{
		Similarity:  similarity,
		Differences: w.diffs,
		Summary:     summary,
	}
}

// leafCount counts scalar leaves; empty containers count as one leaf so that
// sparse documents still produce a usable denominator.
func leafCount(r gjson.Result) int {
	switch categoryOf(r) {
	case catObject:
		n := 0
		r.ForEach(func(_, v gjson.Result) bool {
			n += leafCount(v)
			return true
		})
		if n == 0 {
			return 1
		}
		return n
	case catArray:
		n := 0
		for _, v := range r.Array() {
			n += leafCount(v)
		}
		if n == 0 {
			return 1
		}
		return n
	default:
		return 1
	}
}
