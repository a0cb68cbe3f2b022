// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package ast

import "github.com/pkg/errors"

// SenTreeID is the stable identifier of a sensitivity tree in a SenTable.
//
type SenTreeID int32

// NoSenTree marks the absence of a sensitivity reference.
const NoSenTree SenTreeID = -1

// EdgeKind describes one sensitivity condition.
//
type EdgeKind uint8

// Edge kinds.
const (
	EdgeStatic  EdgeKind = iota // run once before everything else
	EdgeInitial                 // run once at simulation start
	EdgeFinal                   // run once at simulation end
	EdgeCombo                   // pure combinational, re-run whenever any input changes
	EdgePos                     // positive edge of a signal
	EdgeNeg                     // negative edge of a signal
	EdgeBoth                    // either edge of a signal
	EdgeChanged                 // any change of a signal
	EdgeHybrid                  // combinational in effect, change-sensitive to break a cycle
	EdgeTrue                    // boolean expression, used for trigger-indexed sensitivities
)

func (e EdgeKind) String() string {
	switch e {
	case EdgeStatic:
		return "static"
	case EdgeInitial:
		return "initial"
	case EdgeFinal:
		return "final"
	case EdgeCombo:
		return "combo"
	case EdgePos:
		return "posedge"
	case EdgeNeg:
		return "negedge"
	case EdgeBoth:
		return "edge"
	case EdgeChanged:
		return "changed"
	case EdgeHybrid:
		return "hybrid"
	case EdgeTrue:
		return "true"
	}
	return "?"
}

// A SenItem is a single condition within a sensitivity tree: an edge of a
// signal, or an arbitrary boolean expression for trigger-indexed items.
//
type SenItem struct {
	Edge EdgeKind
	Sig  *VarScope // for Pos/Neg/Both/Changed/Hybrid
	Expr Expr      // for EdgeTrue
}

// String returns a human readable description of the condition.
//
func (it SenItem) String() string {
	if it.Sig != nil {
		return it.Edge.String() + " " + it.Sig.Name
	}
	return it.Edge.String()
}

// A SenTree is an immutable disjunction of sensitivity conditions. Multiple
// fragments may reference the same tree; trees are never edited in place
// once published.
//
type SenTree struct {
	ID    SenTreeID
	Items []SenItem
}

func (t *SenTree) has(e EdgeKind) bool {
	for _, it := range t.Items {
		if it.Edge == e {
			return true
		}
	}
	return false
}

// HasStatic reports a static sensitivity.
func (t *SenTree) HasStatic() bool { return t.has(EdgeStatic) }

// HasInitial reports an initial sensitivity.
func (t *SenTree) HasInitial() bool { return t.has(EdgeInitial) }

// HasFinal reports a final sensitivity.
func (t *SenTree) HasFinal() bool { return t.has(EdgeFinal) }

// HasCombo reports a pure combinational sensitivity.
func (t *SenTree) HasCombo() bool { return t.has(EdgeCombo) }

// HasHybrid reports a hybrid (cycle-breaking) sensitivity.
func (t *SenTree) HasHybrid() bool { return t.has(EdgeHybrid) }

// HasClocked reports whether any item is an edge or trigger condition.
//
func (t *SenTree) HasClocked() bool {
	for _, it := range t.Items {
		switch it.Edge {
		case EdgePos, EdgeNeg, EdgeBoth, EdgeChanged, EdgeTrue:
			return true
		}
	}
	return false
}

// Multi reports whether the tree carries more than one condition.
func (t *SenTree) Multi() bool { return len(t.Items) > 1 }

// String returns a human readable form of the whole tree.
//
func (t *SenTree) String() string {
	s := ""
	for i, it := range t.Items {
		if i > 0 {
			s += " or "
		}
		s += it.String()
	}
	return s
}

// A SenTable is the arena owning every sensitivity tree of the design.
//
type SenTable struct {
	trees []*SenTree
}

// NewSenTable creates an empty arena.
//
func NewSenTable() *SenTable {
	return &SenTable{}
}

// Add allocates a new tree with the given items and returns it.
//
func (tb *SenTable) Add(items ...SenItem) *SenTree {
	t := &SenTree{ID: SenTreeID(len(tb.trees)), Items: items}
	tb.trees = append(tb.trees, t)
	return t
}

// Tree returns the tree with the given identifier.
//
func (tb *SenTable) Tree(id SenTreeID) (*SenTree, error) {
	if id < 0 || int(id) >= len(tb.trees) {
		return nil, errors.Errorf("unknown sensitivity tree %d", id)
	}
	return tb.trees[id], nil
}

// MustTree is Tree for identifiers known to be valid.
//
func (tb *SenTable) MustTree(id SenTreeID) *SenTree {
	t, err := tb.Tree(id)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of trees in the arena.
func (tb *SenTable) Len() int { return len(tb.trees) }
