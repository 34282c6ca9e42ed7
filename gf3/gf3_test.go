package gf3

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSubMod3Laws(t *testing.T) {
	for a := uint8(0); a < 3; a++ {
		for b := uint8(0); b < 3; b++ {
			sum := AddMod3(a, b)
			require.Less(t, sum, uint8(3))
			require.Equal(t, a, SubMod3(sum, b))
			require.Equal(t, b, SubMod3(sum, a))
		}
	}
}

func TestOverlappingEquationsSystem(t *testing.T) {
	// Two equations sharing variables 1 and 2, still jointly solvable.
	sys := NewSystem(4)
	sys.Add(NewEquation([3]int{0, 1, 2}, 0)) // x0+x1+x2 == 0
	sys.Add(NewEquation([3]int{1, 2, 3}, 1)) // x1+x2+x3 == 1
	sol, ok := sys.SolveDense()
	require.True(t, ok)
	require.True(t, sys.Satisfies(sol))
}

func TestContradictorySystemReportsFailure(t *testing.T) {
	sys := NewSystem(3)
	sys.Add(NewEquation([3]int{0, 1, 2}, 0))
	sys.Add(NewEquation([3]int{0, 1, 2}, 2))
	_, ok := sys.SolveDense()
	require.False(t, ok)
}

func buildPeelableSystem(rng *rand.Rand, numVars, numEquations int) *System {
	sys := NewSystem(numVars)
	for i := 0; i < numEquations; i++ {
		var vars [3]int
		for {
			vars = [3]int{rng.Intn(numVars), rng.Intn(numVars), rng.Intn(numVars)}
			if vars[0] != vars[1] && vars[1] != vars[2] && vars[0] != vars[2] {
				break
			}
		}
		sys.Add(NewEquation(vars, uint8(rng.Intn(3))))
	}
	return sys
}

func TestSolveDenseAgreesWithLazy(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	solvedBoth := 0
	for trial := 0; trial < 40; trial++ {
		numVars := 30 + rng.Intn(20)
		numEquations := int(float64(numVars) / 1.23)
		sys := buildPeelableSystem(rng, numVars, numEquations)

		denseSol, denseOK := sys.SolveDense()
		lazySol, lazyOK := sys.SolveLazy()
		require.Equal(t, denseOK, lazyOK, "trial %d: solvability must agree", trial)
		if denseOK {
			require.True(t, sys.Satisfies(denseSol))
			require.True(t, sys.Satisfies(lazySol))
			solvedBoth++
		}
	}
	require.Greater(t, solvedBoth, 0, "expected at least some generated systems to be solvable")
}

func TestUnsatisfiableSystemReportsFailure(t *testing.T) {
	sys := NewSystem(1)
	sys.Add(NewEquation([3]int{0, 0, 0}, 1)) // 3x == 1 (mod 3), i.e. 0 == 1: unsatisfiable
	_, ok := sys.SolveDense()
	require.False(t, ok)
}

func TestNewEquationDedupesVariables(t *testing.T) {
	eq := NewEquation([3]int{5, 5, 7}, 1)
	require.Equal(t, []int{5, 7}, eq.Vars)
	require.Equal(t, []uint8{2, 1}, eq.Coeffs)
}

func TestEmptySystemTriviallySolved(t *testing.T) {
	sys := NewSystem(0)
	sol, ok := sys.SolveDense()
	require.True(t, ok)
	require.Empty(t, sol)
}
