// Package gf3 implements sparse linear systems over GF(3) and the two
// solvers (dense Gaussian elimination, and peeling-based "lazy"
// elimination with a dense fallback on the residual) used to assign
// 2-bit digits to hypergraph vertices for minimal perfect hashing and
// static-function construction.
package gf3

import (
	"golang.org/x/exp/slices"

	"github.com/aogurtsov/gosux/errutil"
)

// AddMod3 and SubMod3 implement GF(3) addition/subtraction on single
// digits in {0,1,2}. The spec's design notes describe these as a
// packed-2-bit-lane broadword trick; this implementation computes one
// digit per call with a plain branch rather than a lane-parallel SWAR
// formula — see DESIGN.md for why. Digits are held one per byte
// ([]uint8 solutions, and the same in mph's digit planes), not packed.
func AddMod3(a, b uint8) uint8 {
	s := a + b
	if s >= 3 {
		s -= 3
	}
	return s
}

func SubMod3(a, b uint8) uint8 {
	s := a + 3 - b
	if s >= 3 {
		s -= 3
	}
	return s
}

// InverseMod3 returns the multiplicative inverse of a nonzero digit mod 3
// (1 -> 1, 2 -> 2).
func InverseMod3(a uint8) uint8 {
	errutil.BugOn(a == 0, "no inverse for 0 mod 3")
	return a
}

// Equation is a sparse linear equation over GF(3): sum(coeff_i * x_vars[i])
// == constant (mod 3). Vars is kept sorted ascending; coefficients are
// always 1 or 2 (never 0 — zero-coefficient variables are dropped).
type Equation struct {
	Vars     []int
	Coeffs   []uint8
	Constant uint8
}

// NewEquation builds an equation from three hyperedge-derived variables,
// each with coefficient 1 (the GOV/MWHC construction's per-key equation),
// deduplicating repeated variable indices (a degenerate hyperedge where
// two of the three hashes collide) by adding their coefficients mod 3.
func NewEquation(vars [3]int, constant uint8) *Equation {
	sorted := vars[:]
	slices.Sort(sorted)
	eq := &Equation{Constant: constant}
	i := 0
	for i < 3 {
		v := sorted[i]
		coeff := uint8(1)
		i++
		for i < 3 && sorted[i] == v {
			coeff = AddMod3(coeff, 1)
			i++
		}
		if coeff != 0 {
			eq.Vars = append(eq.Vars, v)
			eq.Coeffs = append(eq.Coeffs, coeff)
		}
	}
	return eq
}

// IsEmpty reports whether the equation has no variables left (either a
// trivially true 0==0 equation, if Constant is also 0, or an
// unsatisfiable 0==c equation with c != 0).
func (e *Equation) IsEmpty() bool { return len(e.Vars) == 0 }

// coeffOf returns the coefficient of variable v in e, or 0 if absent.
func (e *Equation) coeffOf(v int) uint8 {
	i, found := slices.BinarySearch(e.Vars, v)
	if found {
		return e.Coeffs[i]
	}
	return 0
}

// eliminate returns a new equation equal to e - k*other (mod 3), where k
// is chosen so the result's coefficient for pivotVar is 0. other must
// have a nonzero coefficient for pivotVar.
func eliminate(e, other *Equation, pivotVar int) *Equation {
	cE := e.coeffOf(pivotVar)
	cOther := other.coeffOf(pivotVar)
	errutil.BugOn(cOther == 0, "pivot variable %d has zero coefficient in eliminator", pivotVar)
	if cE == 0 {
		return e
	}
	k := MulMod3(cE, InverseMod3(cOther))

	out := &Equation{}
	i, j := 0, 0
	for i < len(e.Vars) || j < len(other.Vars) {
		switch {
		case j >= len(other.Vars) || (i < len(e.Vars) && e.Vars[i] < other.Vars[j]):
			out.Vars = append(out.Vars, e.Vars[i])
			out.Coeffs = append(out.Coeffs, e.Coeffs[i])
			i++
		case i >= len(e.Vars) || (j < len(other.Vars) && other.Vars[j] < e.Vars[i]):
			c := MulMod3(k, other.Coeffs[j])
			if c != 0 {
				out.Vars = append(out.Vars, other.Vars[j])
				out.Coeffs = append(out.Coeffs, SubMod3(0, c))
			}
			j++
		default:
			c := SubMod3(e.Coeffs[i], MulMod3(k, other.Coeffs[j]))
			if c != 0 {
				out.Vars = append(out.Vars, e.Vars[i])
				out.Coeffs = append(out.Coeffs, c)
			}
			i++
			j++
		}
	}
	out.Constant = SubMod3(e.Constant, MulMod3(k, other.Constant))
	return out
}

func MulMod3(a, b uint8) uint8 {
	return (a * b) % 3
}

// System is a collection of GF(3) equations over a shared variable space
// of size NumVars.
type System struct {
	Equations []*Equation
	NumVars   int
}

// NewSystem returns an empty system over numVars variables.
func NewSystem(numVars int) *System {
	return &System{NumVars: numVars}
}

// Add appends an equation to the system.
func (s *System) Add(e *Equation) { s.Equations = append(s.Equations, e) }

// Satisfies reports whether the given assignment (length NumVars, each
// entry in {0,1,2}) satisfies every equation in the system.
func (s *System) Satisfies(assignment []uint8) bool {
	for _, e := range s.Equations {
		var sum uint8
		for i, v := range e.Vars {
			sum = AddMod3(sum, MulMod3(e.Coeffs[i], assignment[v]))
		}
		if sum != e.Constant {
			return false
		}
	}
	return true
}

// SolveDense solves the system via classical Gaussian elimination.
// Returns the solution (length NumVars) and true on success, or nil and
// false if the system is inconsistent.
func (s *System) SolveDense() ([]uint8, bool) {
	rows := make([]*Equation, len(s.Equations))
	copy(rows, s.Equations)

	pivotRowForVar := make(map[int]int)
	next := 0
	for _, row := range rows {
		cur := row
		// Eliminating a pivot can bring in other pivot variables from the
		// pivot row, so repeat until cur holds no pivot variable at all.
		for reduced := false; !reduced; {
			reduced = true
			for _, v := range cur.Vars {
				if pr, ok := pivotRowForVar[v]; ok {
					cur = eliminate(cur, rows[pr], v)
					reduced = false
					break
				}
			}
		}
		if cur.IsEmpty() {
			if cur.Constant != 0 {
				return nil, false
			}
			continue
		}
		pivot := cur.Vars[0]
		rows[next] = cur
		pivotRowForVar[pivot] = next
		next++
	}

	assignment := make([]uint8, s.NumVars)
	// back-substitute from the last pivot row to the first, since later
	// rows may still reference variables pivoted by earlier ones.
	for i := next - 1; i >= 0; i-- {
		row := rows[i]
		pivot := row.Vars[0]
		var sum uint8
		for j := 1; j < len(row.Vars); j++ {
			sum = AddMod3(sum, MulMod3(row.Coeffs[j], assignment[row.Vars[j]]))
		}
		rhs := SubMod3(row.Constant, sum)
		assignment[pivot] = MulMod3(rhs, InverseMod3(row.Coeffs[0]))
	}
	return assignment, true
}

// SolveLazy solves the system via peeling: repeatedly find a variable
// that appears in exactly one remaining equation, resolve it directly
// from that equation, and remove it from the residual system. When no
// degree-1 variable remains but unpeeled equations do, falls back to
// SolveDense on the residual and merges the two partial solutions.
func (s *System) SolveLazy() ([]uint8, bool) {
	n := len(s.Equations)
	degree := make([]int, s.NumVars)
	varEquations := make([][]int, s.NumVars)
	for i, e := range s.Equations {
		for _, v := range e.Vars {
			degree[v]++
			varEquations[v] = append(varEquations[v], i)
		}
	}

	removedEq := make([]bool, n)
	removedVar := make([]bool, s.NumVars)
	type peelStep struct {
		eqIdx int
		v     int
	}
	var stack []peelStep

	queue := make([]int, 0, s.NumVars)
	for v := 0; v < s.NumVars; v++ {
		if degree[v] == 1 {
			queue = append(queue, v)
		}
	}

	for len(queue) > 0 {
		v := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if removedVar[v] || degree[v] != 1 {
			continue
		}
		var eqIdx = -1
		for _, idx := range varEquations[v] {
			if !removedEq[idx] {
				eqIdx = idx
				break
			}
		}
		if eqIdx == -1 {
			continue
		}
		removedVar[v] = true
		removedEq[eqIdx] = true
		stack = append(stack, peelStep{eqIdx: eqIdx, v: v})

		for _, ov := range s.Equations[eqIdx].Vars {
			if ov == v || removedVar[ov] {
				continue
			}
			degree[ov]--
			if degree[ov] == 1 {
				queue = append(queue, ov)
			}
		}
	}

	residual := NewSystem(s.NumVars)
	for i, e := range s.Equations {
		if !removedEq[i] {
			residual.Add(e)
		}
	}

	assignment := make([]uint8, s.NumVars)
	resolved := make([]bool, s.NumVars)

	if len(residual.Equations) > 0 {
		partial, ok := residual.SolveDense()
		if !ok {
			return nil, false
		}
		for v := 0; v < s.NumVars; v++ {
			if !removedVar[v] {
				assignment[v] = partial[v]
				resolved[v] = true
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		step := stack[i]
		e := s.Equations[step.eqIdx]
		var sum uint8
		var pivotCoeff uint8
		for j, ov := range e.Vars {
			if ov == step.v {
				pivotCoeff = e.Coeffs[j]
				continue
			}
			errutil.BugOn(!resolved[ov], "peeling order violated: variable %d unresolved", ov)
			sum = AddMod3(sum, MulMod3(e.Coeffs[j], assignment[ov]))
		}
		rhs := SubMod3(e.Constant, sum)
		assignment[step.v] = MulMod3(rhs, InverseMod3(pivotCoeff))
		resolved[step.v] = true
	}

	return assignment, true
}
