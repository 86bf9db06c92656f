package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cell(row, col int) CellID {
	return CellID{Sheet: 1, Row: row, Column: col}
}

func TestDependencyGraph(t *testing.T) {
	t.Run("AffectedCells", func(t *testing.T) {
		dg := NewDependencyGraph()
		a1, a2, a3, b1 := cell(0, 0), cell(1, 0), cell(2, 0), cell(0, 1)
		for _, id := range []CellID{a2, a3, b1} {
			dg.SetFormula(id, true)
		}
		dg.AddCellDependency(a2, a1)
		dg.AddCellDependency(a3, a2)
		dg.AddRangeDependency(b1, RangeID{Sheet: 1, FromRow: 0, FromColumn: 0, ToRow: 9, ToColumn: 0})

		// sorted by row, then column
		require.Equal(t, []CellID{b1, a2}, dg.GetDirectDependents(a1))
		require.Equal(t, []CellID{b1, a2, a3}, dg.GetAffectedCells(a1))
		require.Equal(t, []CellID{b1, a3}, dg.GetAffectedCells(a2))
		require.Empty(t, dg.GetAffectedCells(cell(20, 0)))
		require.Equal(t, 1, dg.RangeObserverCount())
	})

	t.Run("DirtyOnlyForFormulas", func(t *testing.T) {
		dg := NewDependencyGraph()
		a1, a2 := cell(0, 0), cell(1, 0)
		dg.SetFormula(a2, true)
		dg.AddCellDependency(a2, a1)

		dg.MarkDirty(a1)
		dg.MarkDirty(a2)
		require.False(t, dg.IsDirty(a1))
		require.True(t, dg.IsDirty(a2))
		require.Equal(t, []CellID{a2}, dg.DirtyCells())

		dg.ClearDirty(a2)
		require.Empty(t, dg.DirtyCells())
	})

	t.Run("ClearDependenciesReleasesNodes", func(t *testing.T) {
		dg := NewDependencyGraph()
		a1, a2 := cell(0, 0), cell(1, 0)
		dg.SetFormula(a2, true)
		dg.AddCellDependency(a2, a1)
		dg.AddRangeDependency(a2, RangeID{Sheet: 2, ToRow: 4})
		dg.MarkVolatile(a2)
		require.Equal(t, 2, dg.NodeCount())
		require.Len(t, dg.Sheets(), 2)

		dg.ClearDependencies(a2)
		require.Equal(t, 1, dg.NodeCount())
		require.Zero(t, dg.RangeObserverCount())
		require.False(t, dg.IsVolatile(a2))

		dg.SetFormula(a2, false)
		require.Zero(t, dg.NodeCount())
	})

	t.Run("CalculationOrder", func(t *testing.T) {
		dg := NewDependencyGraph()
		a1, a2, a3, b1 := cell(0, 0), cell(1, 0), cell(2, 0), cell(0, 1)
		for _, id := range []CellID{a1, a2, a3, b1} {
			dg.SetFormula(id, true)
		}
		// a1 reads a3, a3 reads a2, b1 sums a1:a3
		dg.AddCellDependency(a1, a3)
		dg.AddCellDependency(a3, a2)
		dg.AddRangeDependency(b1, RangeID{Sheet: 1, ToRow: 2})

		order, hasCycle := dg.CalculationOrder([]CellID{b1, a1, a2, a3})
		require.False(t, hasCycle)
		require.Equal(t, []CellID{a2, a3, a1, b1}, order)

		order, _ = dg.CalculationOrder([]CellID{a1})
		require.Equal(t, []CellID{a1}, order)
		require.False(t, dg.HasCycle())
	})

	t.Run("Cycle", func(t *testing.T) {
		dg := NewDependencyGraph()
		a1, a2, a3 := cell(0, 0), cell(1, 0), cell(2, 0)
		for _, id := range []CellID{a1, a2, a3} {
			dg.SetFormula(id, true)
		}
		dg.AddCellDependency(a1, a2)
		dg.AddCellDependency(a2, a3)
		dg.AddCellDependency(a3, a1)

		order, hasCycle := dg.CalculationOrder([]CellID{a1, a2, a3})
		require.True(t, hasCycle)
		require.ElementsMatch(t, []CellID{a1, a2, a3}, order)
		require.True(t, dg.HasCycle())

		dg.ClearDependencies(a3)
		require.False(t, dg.HasCycle())
	})

	t.Run("RangeContainingItsReader", func(t *testing.T) {
		dg := NewDependencyGraph()
		a2 := cell(1, 0)
		dg.SetFormula(a2, true)
		dg.AddRangeDependency(a2, RangeID{Sheet: 1, ToRow: 2})
		require.True(t, dg.HasCycle())
	})

	t.Run("Volatile", func(t *testing.T) {
		dg := NewDependencyGraph()
		dg.MarkVolatile(cell(3, 0))
		dg.MarkVolatile(cell(1, 0))
		require.True(t, dg.IsVolatile(cell(1, 0)))
		require.Equal(t, []CellID{cell(1, 0), cell(3, 0)}, dg.VolatileCells())

		dg.Clear()
		require.Empty(t, dg.VolatileCells())
		require.Zero(t, dg.NodeCount())
	})
}
