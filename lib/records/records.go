// Package records models the rows of docket activity scraped from the
// court website and implements the change detection used to decide
// whether an expediente moved since the last check.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one cell of a scraped docket row. Name is either the
// lowercased column header or a positional fallback produced by
// PositionalName when the source table has no usable header row.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PositionalName returns the fallback field name for column i,
// matching the names the court site scraper emits for headerless
// tables.
func PositionalName(i int) string {
	return "columna_" + strconv.Itoa(i)
}

// Record is one docket row as an ordered list of fields. Order is
// preserved from the source table so the canonical signature is
// stable across fetches.
type Record []Field

// Get looks a field up by name, falling back to the positional name
// for index-keyed rows. The second return is false when neither
// matches.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// At returns the value at column position i, whatever its name.
func (r Record) At(i int) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	return r[i].Value, true
}

// Signature is the canonical string form of a record. Two records
// have the same signature iff they have the same fields with the same
// values in the same order. Names and values are quoted so separator
// characters inside scraped cell text cannot make two different
// records collide.
func (r Record) Signature() string {
	var b strings.Builder
	for i, f := range r {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s=%s", strconv.Quote(f.Name), strconv.Quote(f.Value))
	}
	return b.String()
}

// RecordSet is the ordered result of one fetch, oldest row first.
type RecordSet []Record

// Signature returns the canonical signature of the most recent (last)
// record, or "" for an empty set.
//
// Only the last record participates on purpose: the court system
// appends new activity at the end of the table, so comparing the last
// row is enough to spot movement. Rows inserted before the most
// recent one are invisible to this comparison; see Detect.
func (s RecordSet) Signature() string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1].Signature()
}

// Last returns the most recent record, or nil for an empty set.
func (s RecordSet) Last() Record {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Tail returns up to n of the most recent records, newest last.
func (s RecordSet) Tail(n int) RecordSet {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// EncodeJSON serializes the set for the history store. The
// representation is the plain nested-array form so field order
// survives.
func (s RecordSet) EncodeJSON() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeJSON restores a set serialized by EncodeJSON.
func DecodeJSON(raw string) (RecordSet, error) {
	var s RecordSet
	err := json.Unmarshal([]byte(raw), &s)
	if err != nil {
		return nil, err
	}
	return s, nil
}
