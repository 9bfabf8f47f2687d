package callback

import (
	"encoding/json"
	"sort"
)

// Pair holds a metric evaluated on training and test data
type Pair struct {
	Train float64 `json:"train"`
	Test  float64 `json:"test"`
}

// Snapshot is the immutable set of metric values recorded for one round.
// It has no mutators; the zero value is an empty snapshot.
type Snapshot struct {
	values map[string]Pair
}

// NewSnapshot copies values into a new snapshot
func NewSnapshot(values map[string]Pair) Snapshot {
	copied := make(map[string]Pair, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied}
}

// Get returns the pair recorded under name
func (s Snapshot) Get(name string) (Pair, bool) {
	p, ok := s.values[name]
	return p, ok
}

// Train returns the training value of name, 0 when missing
func (s Snapshot) Train(name string) float64 {
	return s.values[name].Train
}

// Test returns the test value of name, 0 when missing
func (s Snapshot) Test(name string) float64 {
	return s.values[name].Test
}

// Names returns the recorded metric names in sorted order
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of recorded metrics
func (s Snapshot) Len() int {
	return len(s.values)
}

// Equal reports whether both snapshots hold bit-identical values
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		o, ok := other.values[k]
		if !ok || o != v {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the snapshot as {"metric": {"train": x, "test": y}}
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.values)
}

// Series extracts one metric across a snapshot sequence
func Series(snapshots []Snapshot, name string) []Pair {
	out := make([]Pair, len(snapshots))
	for i, s := range snapshots {
		out[i] = s.values[name]
	}
	return out
}
