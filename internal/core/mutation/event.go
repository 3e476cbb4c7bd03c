// Package mutation models atomic changes to the base relation and the
// change-detection rules that decide whether a change requires
// re-derivation. This is part of the Functional Core - no I/O.
package mutation

import (
	"fmt"

	"github.com/example/projector/internal/core/derive"
)

// Kind tags the variant of a mutation event.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is one committed change to the base relation. Insert carries New,
// Update carries Old and New, Delete carries only the key. Old may be nil
// on an Update when the feed cannot supply the prior image; the
// synchronizer then falls back to re-reading the base relation.
type Event struct {
	Kind Kind
	Key  string
	Old  *derive.BaseRow
	New  *derive.BaseRow
}

// Insert builds an insert event for a new base row.
func Insert(row derive.BaseRow) Event {
	r := row.Clone()
	return Event{Kind: KindInsert, Key: row.Key, New: &r}
}

// Update builds an update event carrying the old and new row images.
func Update(old, new derive.BaseRow) Event {
	o, n := old.Clone(), new.Clone()
	return Event{Kind: KindUpdate, Key: new.Key, Old: &o, New: &n}
}

// Delete builds a delete event for a removed base row.
func Delete(key string) Event {
	return Event{Kind: KindDelete, Key: key}
}

// Validate checks structural invariants of the event.
func (e Event) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("mutation event has empty key")
	}
	switch e.Kind {
	case KindInsert:
		if e.New == nil {
			return fmt.Errorf("insert event for %s carries no row", e.Key)
		}
	case KindUpdate:
		// New may be nil: the consumer then re-reads the base relation.
	case KindDelete:
		// key only
	default:
		return fmt.Errorf("unknown mutation kind %q for %s", e.Kind, e.Key)
	}
	return nil
}

// ChangedColumns returns the attribute names whose values differ between
// the two rows, including attributes present in only one of them.
func ChangedColumns(old, new derive.BaseRow) []string {
	var changed []string
	for col, oldVal := range old.Attrs {
		newVal, ok := new.Attrs[col]
		if !ok || newVal != oldVal {
			changed = append(changed, col)
		}
	}
	for col := range new.Attrs {
		if _, ok := old.Attrs[col]; !ok {
			changed = append(changed, col)
		}
	}
	return changed
}

// Touches reports whether any changed column is among the rule's declared
// inputs. An update that touches no input column needs no recomputation.
func Touches(changed, inputs []string) bool {
	for _, c := range changed {
		for _, in := range inputs {
			if c == in {
				return true
			}
		}
	}
	return false
}

// RequiresDerivation decides whether the event must invoke the derivation
// rule. Inserts always derive. Updates derive only when the changed
// columns intersect the rule inputs; an update without an old image is
// treated conservatively as touching everything. Deletes never derive.
func RequiresDerivation(e Event, inputs []string) bool {
	switch e.Kind {
	case KindInsert:
		return true
	case KindUpdate:
		if e.Old == nil || e.New == nil {
			return true
		}
		return Touches(ChangedColumns(*e.Old, *e.New), inputs)
	default:
		return false
	}
}
