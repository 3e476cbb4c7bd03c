// Package derive contains the pure derivation logic of the engine.
// This is part of the Functional Core - no I/O, only pure functions.
// A Rule maps a base row to derived attribute values; recomputing a rule
// over the same row always yields the same result.
package derive

import "fmt"

// BaseRow is the numeric view of one base-relation row. The engine never
// mutates base rows; it only reads them to compute derived values.
type BaseRow struct {
	Key   string
	Attrs map[string]float64
}

// Attr returns the named attribute and whether it is present.
func (r BaseRow) Attr(column string) (float64, bool) {
	v, ok := r.Attrs[column]
	return v, ok
}

// Clone returns a deep copy of the row. Mutation events hold old/new rows
// across goroutines, so rows handed to the synchronizer must not alias.
func (r BaseRow) Clone() BaseRow {
	attrs := make(map[string]float64, len(r.Attrs))
	for k, v := range r.Attrs {
		attrs[k] = v
	}
	return BaseRow{Key: r.Key, Attrs: attrs}
}

// Rule computes derived attributes from a base row.
// Implementations must be total and deterministic over their declared
// input columns and must not perform I/O.
type Rule interface {
	// Name identifies the rule in drift reports and logs.
	Name() string

	// InputColumns declares the base columns the rule reads. Updates that
	// touch none of these columns skip recomputation entirely.
	InputColumns() []string

	// Derive computes the derived attributes for a row. A *DomainError is
	// returned when an input is outside its valid domain.
	Derive(row BaseRow) (map[string]float64, error)
}

// DomainError reports a base attribute outside the rule's valid input
// domain. It is a per-row failure, never fatal to a batch.
type DomainError struct {
	Key    string
	Column string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error on %s.%s=%g: %s", e.Key, e.Column, e.Value, e.Reason)
}

// ColFreeGHz and ColFreeCores name the columns of the built-in rule.
const (
	ColFreeGHz   = "free_ghz"
	ColFreeCores = "free_cores"
)

// ghzPerCore is the clock budget of one compute core.
const ghzPerCore = 2.4

// FreeCores derives available compute cores from free clock capacity:
// free_cores = free_ghz / 2.4.
type FreeCores struct{}

// Name identifies the rule.
func (FreeCores) Name() string { return "free-cores" }

// InputColumns declares free_ghz as the only input.
func (FreeCores) InputColumns() []string { return []string{ColFreeGHz} }

// Derive computes free_cores for the row.
func (FreeCores) Derive(row BaseRow) (map[string]float64, error) {
	ghz, ok := row.Attr(ColFreeGHz)
	if !ok {
		return nil, &DomainError{
			Key:    row.Key,
			Column: ColFreeGHz,
			Reason: "attribute missing",
		}
	}
	if ghz < 0 {
		return nil, &DomainError{
			Key:    row.Key,
			Column: ColFreeGHz,
			Value:  ghz,
			Reason: "frequency cannot be negative",
		}
	}
	return map[string]float64{ColFreeCores: ghz / ghzPerCore}, nil
}
