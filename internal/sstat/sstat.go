// Package sstat provides a hierarchical memory/size usage report for the
// succinct structures in this module, adapted from the teacher's
// utils.MemReport (same tree shape: a named node, its own bit count, and
// child nodes), so a caller can break down where an MPHF's or an
// Elias-Fano list's bits actually went.
package sstat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Report is one node in a size breakdown tree. TotalBits is this node's own
// contribution (not counting children); a node's full cost is TotalBits
// plus every child's full cost, recursively.
type Report struct {
	Name      string   `json:"name"`
	TotalBits uint64   `json:"total_bits"`
	Children  []Report `json:"children,omitempty"`
}

// Leaf builds a childless Report for a component reporting only its own
// bit count (e.g. a single bitvector or rank index).
func Leaf(name string, bits uint64) Report {
	return Report{Name: name, TotalBits: bits}
}

// Node builds a Report with no bits of its own (TotalBits 0), so its full
// size is the sum of its children's full sizes (e.g. an Elias-Fano list's "lower", "upper", and "select index"
// breakdown under one "eliasfano.List" node).
func Node(name string, children ...Report) Report {
	return Report{Name: name, Children: children}
}

// Bits returns this node's full size: its own TotalBits plus every
// child's Bits(), recursively.
func (r Report) Bits() uint64 {
	total := r.TotalBits
	for _, c := range r.Children {
		total += c.Bits()
	}
	return total
}

// Bytes returns Bits() rounded up to the nearest whole byte.
func (r Report) Bytes() uint64 {
	return (r.Bits() + 7) / 8
}

// String renders the report as an indented tree, each line annotated with
// a human-readable byte size (via go-humanize) alongside the exact bit
// count.
func (r Report) String() string {
	var sb strings.Builder
	r.writeTree(&sb, 0)
	return sb.String()
}

func (r Report) writeTree(sb *strings.Builder, indent int) {
	prefix := strings.Repeat("  ", indent)
	fmt.Fprintf(sb, "%s- %s: %d bits (%s)\n", prefix, r.Name, r.Bits(), humanize.Bytes(r.Bytes()))
	for _, c := range r.Children {
		c.writeTree(sb, indent+1)
	}
}

// JSON returns a JSON representation of the report tree.
func (r Report) JSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("sstat: marshal report: %w", err)
	}
	return string(b), nil
}
