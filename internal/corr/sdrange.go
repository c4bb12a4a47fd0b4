package corr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoSDBounds indicates an SD range without any bound was given for
// a non-random run.
var ErrNoSDBounds = errors.New("corr: sd range needs at least a lower bound")

// SDRange is the z-score magnitude window used to pre-filter which
// correlation pairs are considered. A nil bound is open. An SDRange
// with both bounds nil is only valid for random-sample runs.
type SDRange struct {
	Lower *float64 `json:"lower"`
	Upper *float64 `json:"upper"`
}

// NewSDRange builds a closed range.
func NewSDRange(lo, hi float64) SDRange {
	return SDRange{Lower: &lo, Upper: &hi}
}

// NewOpenSDRange builds a range with only a lower bound.
func NewOpenSDRange(lo float64) SDRange {
	return SDRange{Lower: &lo}
}

// Validate checks that the range can be used for a filtered run.
// Random runs skip this check.
func (r SDRange) Validate() error {
	if r.Lower == nil && r.Upper == nil {
		return ErrNoSDBounds
	}
	if r.Lower != nil && r.Upper != nil && *r.Upper <= *r.Lower {
		return fmt.Errorf("corr: sd range upper bound %v <= lower bound %v", *r.Upper, *r.Lower)
	}
	return nil
}

// contains reports whether a z-score magnitude falls in the window.
func (r SDRange) contains(z float64) bool {
	abs := math.Abs(z)
	if r.Lower != nil && abs <= *r.Lower {
		return false
	}
	if r.Upper != nil && abs >= *r.Upper {
		return false
	}
	return true
}

// String renders the range the way result files are tagged: "3-4SD"
// for a closed range, "3+SD" for an open one and "RND" for the
// unbounded random-sample case.
func (r SDRange) String() string {
	if r.Lower == nil {
		return "RND"
	}
	if r.Upper != nil {
		return fmt.Sprintf("%s-%sSD", trimFloat(*r.Lower), trimFloat(*r.Upper))
	}
	return fmt.Sprintf("%s+SD", trimFloat(*r.Lower))
}

// trimFloat formats a bound without a trailing ".0" for whole numbers.
func trimFloat(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseSDRange parses "lo" or "lo,hi" (also accepting "lo-hi") into an
// SDRange.
func ParseSDRange(s string) (SDRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SDRange{}, ErrNoSDBounds
	}
	sep := ","
	if !strings.Contains(s, ",") && strings.Count(s, "-") == 1 && !strings.HasPrefix(s, "-") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	switch len(parts) {
	case 1:
		lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return SDRange{}, fmt.Errorf("corr: parse sd range %q: %w", s, err)
		}
		return NewOpenSDRange(lo), nil
	case 2:
		lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return SDRange{}, fmt.Errorf("corr: parse sd range %q: %w", s, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return SDRange{}, fmt.Errorf("corr: parse sd range %q: %w", s, err)
		}
		r := NewSDRange(lo, hi)
		return r, r.Validate()
	default:
		return SDRange{}, fmt.Errorf("corr: parse sd range %q: want lo or lo,hi", s)
	}
}
