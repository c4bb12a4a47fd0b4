// Package corr provides the entity×entity correlation z-score matrix
// and the deterministic pair stream the matcher consumes.
package corr

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand"
)

// Sentinel errors for matrix construction.
var (
	// ErrNotSquare indicates the label and value dimensions disagree.
	ErrNotSquare = errors.New("corr: matrix is not square")

	// ErrDuplicateLabel indicates the same entity label appears twice.
	ErrDuplicateLabel = errors.New("corr: duplicate entity label")

	// ErrUnknownLabel indicates a lookup for a label not in the matrix.
	ErrUnknownLabel = errors.New("corr: unknown entity label")
)

// Pair is one correlated entity pair drawn from the upper triangle of
// the matrix. A and B follow the matrix label order (index(A) < index(B)).
type Pair struct {
	A string
	B string
	Z float64
}

// Matrix is a square, symmetric entity×entity z-score matrix. NaN
// values mark pairs that were not computed or were filtered out; they
// are skipped, never treated as zero. After construction a Matrix is
// read-only by contract: the matcher takes a snapshot reference and
// concurrent mutation during a run is undefined behavior.
type Matrix struct {
	labels []string
	index  map[string]int
	vals   []float64 // row-major, len = n*n
}

// New creates a matrix from labels and row-major values. The values
// slice is retained by the matrix.
func New(labels []string, vals []float64) (*Matrix, error) {
	n := len(labels)
	if len(vals) != n*n {
		return nil, fmt.Errorf("%w: %d labels, %d values", ErrNotSquare, n, len(vals))
	}
	index := make(map[string]int, n)
	for i, l := range labels {
		if _, ok := index[l]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, l)
		}
		index[l] = i
	}
	return &Matrix{labels: labels, index: index, vals: vals}, nil
}

// Size returns the number of entities (rows/columns).
func (m *Matrix) Size() int { return len(m.labels) }

// Labels returns the entity labels in matrix order. The returned slice
// is owned by the matrix and must not be modified.
func (m *Matrix) Labels() []string { return m.labels }

// At returns the z-score for a pair of labels. NaN means missing.
func (m *Matrix) At(a, b string) (float64, error) {
	i, ok := m.index[a]
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %q", ErrUnknownLabel, a)
	}
	j, ok := m.index[b]
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %q", ErrUnknownLabel, b)
	}
	return m.vals[i*len(m.labels)+j], nil
}

// CountPairs returns the number of non-missing upper-triangle entries,
// excluding the diagonal. This is the exact number of pairs the pair
// stream yields.
func (m *Matrix) CountPairs() int {
	n := len(m.labels)
	count := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !math.IsNaN(m.vals[i*n+j]) {
				count++
			}
		}
	}
	return count
}

// Pairs returns a deterministic, lazy stream of the non-missing
// upper-triangle pairs in row-major order. The sequence is single-use
// as far as chunking reproducibility is concerned: a given matrix
// always yields the same order.
func (m *Matrix) Pairs() iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		n := len(m.labels)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				z := m.vals[i*n+j]
				if math.IsNaN(z) {
					continue
				}
				if !yield(Pair{A: m.labels[i], B: m.labels[j], Z: z}) {
					return
				}
			}
		}
	}
}

// Chunks splits the pair stream into contiguous chunks of at most size
// pairs, without materializing the whole stream. The final chunk may be
// shorter.
func (m *Matrix) Chunks(size int) iter.Seq[[]Pair] {
	if size < 1 {
		size = 1
	}
	return func(yield func([]Pair) bool) {
		chunk := make([]Pair, 0, size)
		for p := range m.Pairs() {
			chunk = append(chunk, p)
			if len(chunk) == size {
				if !yield(chunk) {
					return
				}
				chunk = make([]Pair, 0, size)
			}
		}
		if len(chunk) > 0 {
			yield(chunk)
		}
	}
}

// FilterSDRange returns a copy of the matrix with every value outside
// the SD window replaced by NaN. With both bounds set, values with
// lo < |z| < hi survive; with only a lower bound, |z| > lo survives.
// An unbounded range returns an unmodified copy.
func (m *Matrix) FilterSDRange(r SDRange) *Matrix {
	vals := make([]float64, len(m.vals))
	copy(vals, m.vals)
	out := &Matrix{labels: m.labels, index: m.index, vals: vals}

	if r.Lower == nil && r.Upper == nil {
		return out
	}
	for i := range vals {
		z := vals[i]
		if math.IsNaN(z) {
			continue
		}
		if !r.contains(z) {
			vals[i] = math.NaN()
		}
	}
	return out
}

// Sample returns a copy of the matrix down-sampled so that roughly
// maxPairs off-diagonal pairs remain; all other pairs become NaN. The
// sampling is symmetric and seeded for reproducibility. Matrices with
// no more than maxPairs eligible pairs are returned unchanged (as a
// copy).
func (m *Matrix) Sample(maxPairs int, seed int64) *Matrix {
	n := len(m.labels)
	vals := make([]float64, len(m.vals))
	copy(vals, m.vals)
	out := &Matrix{labels: m.labels, index: m.index, vals: vals}

	eligible := m.CountPairs()
	if maxPairs <= 0 || eligible <= maxPairs {
		return out
	}

	keep := float64(maxPairs) / float64(eligible)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.IsNaN(vals[i*n+j]) {
				continue
			}
			if rng.Float64() >= keep {
				vals[i*n+j] = math.NaN()
				vals[j*n+i] = math.NaN()
			}
		}
	}
	return out
}
