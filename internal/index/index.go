// Package index loads the two-level sample index (clone -> pool -> record)
// that drives a batch run.
//
// The index is a YAML document; JSON is accepted as well since it is a
// subset of YAML:
//
//	cloneA:
//	  pool1: {call: bae, display: "419"}
//	  pool2: {call: ok, display: "88"}
//
// Pairs are returned in document order so logs and reports are reproducible
// across runs of the same file. Record completeness is deliberately not
// checked here; one incomplete entry must not prevent the rest of a large
// index from loading.
package index

import (
	"fmt"
	"slices"
	"strings"
)

// PairID identifies one (clone, pool) pair and is the aggregation key used
// throughout a batch.
type PairID struct {
	Clone string
	Pool  string
}

// String returns "clone/pool".
func (id PairID) String() string {
	return id.Clone + "/" + id.Pool
}

// PairRecord is the manually curated classification for one pair.
type PairRecord struct {
	// Call is the classification label written to the "call" file.
	Call string
	// Display is the human-facing score written to the "score" file.
	Display string
}

// Complete reports whether both the call and the score are present.
func (r PairRecord) Complete() bool {
	return len(r.Missing()) == 0
}

// Missing returns the names of empty fields.
func (r PairRecord) Missing() []string {
	var missing []string
	if strings.TrimSpace(r.Call) == "" {
		missing = append(missing, "call")
	}
	if strings.TrimSpace(r.Display) == "" {
		missing = append(missing, "display")
	}
	return missing
}

// SampleIndex is the read-only, in-memory sample index.
type SampleIndex struct {
	order   []PairID
	records map[PairID]PairRecord
}

func newSampleIndex() *SampleIndex {
	return &SampleIndex{records: make(map[PairID]PairRecord)}
}

// add appends a pair, reporting false if it already exists.
func (x *SampleIndex) add(id PairID, rec PairRecord) bool {
	if _, dup := x.records[id]; dup {
		return false
	}
	x.order = append(x.order, id)
	x.records[id] = rec
	return true
}

// Pairs returns every pair in index order.
func (x *SampleIndex) Pairs() []PairID {
	return slices.Clone(x.order)
}

// Lookup returns the record for id.
func (x *SampleIndex) Lookup(id PairID) (PairRecord, bool) {
	rec, ok := x.records[id]
	return rec, ok
}

// Len returns the number of pairs.
func (x *SampleIndex) Len() int {
	return len(x.order)
}

// Clones returns the distinct clone IDs in index order.
func (x *SampleIndex) Clones() []string {
	var clones []string
	seen := make(map[string]bool)
	for _, id := range x.order {
		if !seen[id.Clone] {
			seen[id.Clone] = true
			clones = append(clones, id.Clone)
		}
	}
	return clones
}

// String summarizes the index for logs.
func (x *SampleIndex) String() string {
	return fmt.Sprintf("%d clones, %d pairs", len(x.Clones()), x.Len())
}
