package explainer

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// formatVersion tags the serialized layout. Bump on breaking changes.
const formatVersion = 1

// ErrBadVersion indicates an artifact written by an incompatible
// serializer version.
var ErrBadVersion = errors.New("explainer: unsupported artifact version")

type envelope struct {
	Version int       `json:"version"`
	Meta    Meta      `json:"meta"`
	Stats   []PairRow `json:"stats"`
	Expls   []ExplRow `json:"expl"`
}

// Encode writes the explainer as gzipped JSON. Decoding the output
// reproduces the tables and summary exactly.
func (e *Explainer) Encode(w io.Writer) error {
	zw := gzip.NewWriter(w)
	env := envelope{Version: formatVersion, Meta: e.Meta, Stats: e.Stats, Expls: e.Expls}
	if err := json.NewEncoder(zw).Encode(env); err != nil {
		zw.Close()
		return fmt.Errorf("encode explainer: %w", err)
	}
	return zw.Close()
}

// Bytes serializes the explainer to a gzipped JSON blob.
func (e *Explainer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads an explainer written by Encode.
func Decode(r io.Reader) (*Explainer, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode explainer: %w", err)
	}
	defer zr.Close()

	var env envelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode explainer: %w", err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, env.Version)
	}
	return &Explainer{Meta: env.Meta, Stats: env.Stats, Expls: env.Expls}, nil
}

// WriteStatsCSV writes the stats table as CSV. Tri-state flags render
// as "True"/"False" with empty cells for not-evaluated.
func (e *Explainer) WriteStatsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"pair", "agA", "agB", "z_score", "agA_ns", "agA_id", "agB_ns", "agB_id", "not in graph", "explained"}
	header = append(header, Strategies...)
	header = append(header, "errored")
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range e.Stats {
		r := &e.Stats[i]
		rec := []string{
			r.Pair, r.AgA, r.AgB,
			strconv.FormatFloat(r.ZScore, 'g', -1, 64),
			r.AgANS, r.AgAID, r.AgBNS, r.AgBID,
			boolCell(&r.NotInGraph), triCell(r.Explained),
		}
		for _, name := range Strategies {
			rec = append(rec, triCell(r.Flag(name)))
		}
		rec = append(rec, boolCell(&r.Errored))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExplCSV writes the expl table as CSV. Payloads render as a
// semicolon-joined list of node names or statement hashes.
func (e *Explainer) WriteExplCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pair", "agA", "agB", "z_score", "expl type", "expl data"}); err != nil {
		return err
	}
	for _, r := range e.Expls {
		if err := cw.Write([]string{
			r.Pair, r.AgA, r.AgB,
			strconv.FormatFloat(r.ZScore, 'g', -1, 64),
			r.Strategy, explData(r),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the summary counts as CSV, one key per row.
func (e *Explainer) WriteSummaryCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"explanation", "count"}); err != nil {
		return err
	}
	summary := e.Summary()
	for _, key := range e.SummaryKeys() {
		if err := cw.Write([]string{key, strconv.Itoa(summary[key])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func boolCell(p *bool) string {
	if *p {
		return "True"
	}
	return "False"
}

func triCell(p *bool) string {
	if p == nil {
		return ""
	}
	return boolCell(p)
}

func explData(r ExplRow) string {
	if len(r.Nodes) > 0 {
		return strings.Join(r.Nodes, ";")
	}
	if len(r.Stmts) > 0 {
		hashes := make([]string, len(r.Stmts))
		for i, s := range r.Stmts {
			hashes[i] = strconv.FormatInt(s.Hash, 10)
		}
		return strings.Join(hashes, ";")
	}
	return ""
}
