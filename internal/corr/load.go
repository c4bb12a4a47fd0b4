package corr

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load reads a correlation matrix from a CSV file, transparently
// decompressing ".gz" files. The first row holds column labels (first
// cell empty or an index name), each following row starts with its row
// label. Row and column labels must match in order. Empty cells and
// "nan" parse as missing.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open correlation matrix: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip correlation matrix: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	start := time.Now()
	m, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("read correlation matrix %s: %w", path, err)
	}
	slog.Info("loaded correlation matrix",
		"path", path,
		"entities", m.Size(),
		"pairs", m.CountPairs(),
		"elapsed", time.Since(start))
	return m, nil
}

// Read parses a correlation matrix from CSV.
func Read(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: header has %d columns", ErrNotSquare, len(header))
	}
	labels := header[1:]
	n := len(labels)

	vals := make([]float64, n*n)
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		if row >= n {
			return nil, fmt.Errorf("%w: more rows than columns", ErrNotSquare)
		}
		if len(rec) != n+1 {
			return nil, fmt.Errorf("%w: row %d has %d fields, want %d", ErrNotSquare, row+1, len(rec), n+1)
		}
		if rec[0] != labels[row] {
			return nil, fmt.Errorf("corr: row label %q at position %d, want %q (row/column order must match)",
				rec[0], row, labels[row])
		}
		for j, cell := range rec[1:] {
			z, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("row %q column %q: %w", rec[0], labels[j], err)
			}
			vals[row*n+j] = z
		}
		row++
	}
	if row != n {
		return nil, fmt.Errorf("%w: %d rows, %d columns", ErrNotSquare, row, n)
	}

	return New(labels, vals)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	z, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("corr: bad value %q: %w", cell, err)
	}
	return z, nil
}
