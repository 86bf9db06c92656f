package grid

import (
	"slices"
)

// CellID identifies a cell by worksheet id, so it survives renames
type CellID struct {
	Sheet  uint32
	Row    int
	Column int
}

// RangeID identifies a block of cells on one worksheet
type RangeID struct {
	Sheet      uint32
	FromRow    int
	FromColumn int
	ToRow      int
	ToColumn   int
}

// Contains checks if a cell is within the block
func (r RangeID) Contains(cell CellID) bool {
	return cell.Sheet == r.Sheet &&
		cell.Row >= r.FromRow && cell.Row <= r.ToRow &&
		cell.Column >= r.FromColumn && cell.Column <= r.ToColumn
}

func compareCells(a, b CellID) int {
	if a.Sheet != b.Sheet {
		return int(a.Sheet) - int(b.Sheet)
	}
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Column - b.Column
}

// DependencyNode represents a cell in the dependency graph
type DependencyNode struct {
	ID CellID

	// cell-to-cell dependencies
	CellPrecedents map[CellID]*DependencyNode // cells this cell depends on
	CellDependents map[CellID]*DependencyNode // cells that depend on this cell

	// blocks read by the formula of this cell
	RangePrecedents map[RangeID]struct{}

	HasFormula bool
	IsDirty    bool
}

// DependencyGraph tracks which formula cells read which cells and blocks,
// and which formula cells need recalculation
type DependencyGraph struct {
	nodes          map[CellID]*DependencyNode       // all nodes in the graph
	rangeObservers map[RangeID]map[CellID]struct{} // block -> formula cells reading it
	dirtySet       map[CellID]struct{}              // cells needing recalculation
	volatileCells  map[CellID]struct{}              // cells calling NOW, RAND and friends
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:          make(map[CellID]*DependencyNode),
		rangeObservers: make(map[RangeID]map[CellID]struct{}),
		dirtySet:       make(map[CellID]struct{}),
		volatileCells:  make(map[CellID]struct{}),
	}
}

// GetOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) GetOrCreateNode(id CellID) *DependencyNode {
	if node, exists := dg.nodes[id]; exists {
		return node
	}

	node := &DependencyNode{
		ID:              id,
		CellPrecedents:  make(map[CellID]*DependencyNode),
		CellDependents:  make(map[CellID]*DependencyNode),
		RangePrecedents: make(map[RangeID]struct{}),
	}
	dg.nodes[id] = node
	return node
}

// GetNode retrieves a node if it exists
func (dg *DependencyGraph) GetNode(id CellID) (*DependencyNode, bool) {
	node, exists := dg.nodes[id]
	return node, exists
}

// cleanupNodeIfEmpty removes a node that has no formula and no edges
func (dg *DependencyGraph) cleanupNodeIfEmpty(id CellID) {
	node, exists := dg.nodes[id]
	if !exists {
		return
	}

	if node.HasFormula ||
		len(node.CellPrecedents) > 0 ||
		len(node.CellDependents) > 0 ||
		len(node.RangePrecedents) > 0 {
		return
	}

	delete(dg.nodes, id)
	delete(dg.dirtySet, id)
	delete(dg.volatileCells, id)
}

// SetFormula records whether a cell holds a formula
func (dg *DependencyGraph) SetFormula(id CellID, hasFormula bool) {
	if !hasFormula {
		if node, exists := dg.nodes[id]; exists {
			node.HasFormula = false
			dg.cleanupNodeIfEmpty(id)
		}
		return
	}
	dg.GetOrCreateNode(id).HasFormula = true
}

// AddCellDependency adds a cell-to-cell dependency (from depends on to)
func (dg *DependencyGraph) AddCellDependency(from, to CellID) {
	fromNode := dg.GetOrCreateNode(from)
	toNode := dg.GetOrCreateNode(to)

	fromNode.CellPrecedents[to] = toNode
	toNode.CellDependents[from] = fromNode
}

// AddRangeDependency adds a cell-to-block dependency (from depends on the
// block)
func (dg *DependencyGraph) AddRangeDependency(from CellID, r RangeID) {
	node := dg.GetOrCreateNode(from)
	node.RangePrecedents[r] = struct{}{}

	if dg.rangeObservers[r] == nil {
		dg.rangeObservers[r] = make(map[CellID]struct{})
	}
	dg.rangeObservers[r][from] = struct{}{}
}

// ClearDependencies drops every precedent of a cell and its volatile mark
func (dg *DependencyGraph) ClearDependencies(id CellID) {
	node, exists := dg.nodes[id]
	if !exists {
		return
	}

	for precedentID, precedent := range node.CellPrecedents {
		delete(precedent.CellDependents, id)
		delete(node.CellPrecedents, precedentID)
		dg.cleanupNodeIfEmpty(precedentID)
	}

	for r := range node.RangePrecedents {
		delete(node.RangePrecedents, r)
		if observers, exists := dg.rangeObservers[r]; exists {
			delete(observers, id)
			if len(observers) == 0 {
				delete(dg.rangeObservers, r)
			}
		}
	}

	delete(dg.volatileCells, id)
	dg.cleanupNodeIfEmpty(id)
}

// MarkDirty marks a formula cell as needing recalculation. cells without
// a formula are never dirty.
func (dg *DependencyGraph) MarkDirty(id CellID) {
	node, exists := dg.nodes[id]
	if !exists || !node.HasFormula {
		return
	}
	node.IsDirty = true
	dg.dirtySet[id] = struct{}{}
}

// IsDirty reports whether a cell awaits recalculation
func (dg *DependencyGraph) IsDirty(id CellID) bool {
	_, dirty := dg.dirtySet[id]
	return dirty
}

// ClearDirty clears the dirty flag for a cell
func (dg *DependencyGraph) ClearDirty(id CellID) {
	delete(dg.dirtySet, id)
	if node, exists := dg.nodes[id]; exists {
		node.IsDirty = false
	}
}

// DirtyCells returns the cells awaiting recalculation, sorted by worksheet,
// row and column
func (dg *DependencyGraph) DirtyCells() []CellID {
	result := make([]CellID, 0, len(dg.dirtySet))
	for id := range dg.dirtySet {
		result = append(result, id)
	}
	slices.SortFunc(result, compareCells)
	return result
}

// GetDirectDependents returns cells directly depending on this cell,
// through a cell reference or a block containing it
func (dg *DependencyGraph) GetDirectDependents(id CellID) []CellID {
	seen := make(map[CellID]struct{})
	if node, exists := dg.nodes[id]; exists {
		for dependentID := range node.CellDependents {
			seen[dependentID] = struct{}{}
		}
	}
	for r, observers := range dg.rangeObservers {
		if !r.Contains(id) {
			continue
		}
		for observerID := range observers {
			seen[observerID] = struct{}{}
		}
	}

	result := make([]CellID, 0, len(seen))
	for dependentID := range seen {
		result = append(result, dependentID)
	}
	slices.SortFunc(result, compareCells)
	return result
}

// GetAffectedCells returns all cells that need recalculation when a cell
// changes: the transitive closure of its dependents
func (dg *DependencyGraph) GetAffectedCells(id CellID) []CellID {
	visited := map[CellID]struct{}{id: {}}
	queue := []CellID{id}
	var result []CellID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependentID := range dg.GetDirectDependents(current) {
			if _, seen := visited[dependentID]; seen {
				continue
			}
			visited[dependentID] = struct{}{}
			result = append(result, dependentID)
			queue = append(queue, dependentID)
		}
	}

	slices.SortFunc(result, compareCells)
	return result
}

// GetDirectPrecedents returns formula-relevant cells this cell reads:
// referenced cells plus formula cells inside referenced blocks
func (dg *DependencyGraph) GetDirectPrecedents(id CellID) []CellID {
	node, exists := dg.nodes[id]
	if !exists {
		return nil
	}

	seen := make(map[CellID]struct{}, len(node.CellPrecedents))
	for precedentID := range node.CellPrecedents {
		seen[precedentID] = struct{}{}
	}
	for r := range node.RangePrecedents {
		for candidateID, candidate := range dg.nodes {
			if candidate.HasFormula && r.Contains(candidateID) {
				seen[candidateID] = struct{}{}
			}
		}
	}

	result := make([]CellID, 0, len(seen))
	for precedentID := range seen {
		result = append(result, precedentID)
	}
	slices.SortFunc(result, compareCells)
	return result
}

// GetRangePrecedents returns blocks this cell depends on
func (dg *DependencyGraph) GetRangePrecedents(id CellID) []RangeID {
	node, exists := dg.nodes[id]
	if !exists {
		return nil
	}

	result := make([]RangeID, 0, len(node.RangePrecedents))
	for r := range node.RangePrecedents {
		result = append(result, r)
	}
	return result
}

// CalculationOrder orders cells so precedents come before the cells
// reading them. the bool reports a cycle among the visited cells; the
// order is still complete then, with the cycle broken arbitrarily.
func (dg *DependencyGraph) CalculationOrder(cells []CellID) ([]CellID, bool) {
	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[CellID]bool)
	order := make([]CellID, 0, len(cells))
	hasCycle := false

	var visit func(id CellID)
	visit = func(id CellID) {
		if completed, exists := state[id]; exists {
			if !completed {
				hasCycle = true
			}
			return
		}

		state[id] = false
		for _, precedentID := range dg.GetDirectPrecedents(id) {
			visit(precedentID)
		}
		state[id] = true
		order = append(order, id)
	}

	sorted := slices.Clone(cells)
	slices.SortFunc(sorted, compareCells)
	for _, id := range sorted {
		visit(id)
	}

	wanted := make(map[CellID]struct{}, len(cells))
	for _, id := range cells {
		wanted[id] = struct{}{}
	}
	return slices.DeleteFunc(order, func(id CellID) bool {
		_, keep := wanted[id]
		return !keep
	}), hasCycle
}

// HasCycle checks if there are circular dependencies among formula cells
func (dg *DependencyGraph) HasCycle() bool {
	var formulas []CellID
	for id, node := range dg.nodes {
		if node.HasFormula {
			formulas = append(formulas, id)
		}
	}
	_, hasCycle := dg.CalculationOrder(formulas)
	return hasCycle
}

// MarkVolatile marks a cell as containing volatile functions
func (dg *DependencyGraph) MarkVolatile(id CellID) {
	dg.GetOrCreateNode(id)
	dg.volatileCells[id] = struct{}{}
}

// IsVolatile checks if a cell contains volatile functions
func (dg *DependencyGraph) IsVolatile(id CellID) bool {
	_, isVolatile := dg.volatileCells[id]
	return isVolatile
}

// VolatileCells returns all cells marked as volatile
func (dg *DependencyGraph) VolatileCells() []CellID {
	result := make([]CellID, 0, len(dg.volatileCells))
	for id := range dg.volatileCells {
		result = append(result, id)
	}
	slices.SortFunc(result, compareCells)
	return result
}

// Sheets returns the ids of worksheets that appear in the graph
func (dg *DependencyGraph) Sheets() map[uint32]struct{} {
	sheets := make(map[uint32]struct{})
	for id, node := range dg.nodes {
		sheets[id.Sheet] = struct{}{}
		for r := range node.RangePrecedents {
			sheets[r.Sheet] = struct{}{}
		}
	}
	return sheets
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of observed blocks
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[CellID]*DependencyNode)
	dg.rangeObservers = make(map[RangeID]map[CellID]struct{})
	dg.dirtySet = make(map[CellID]struct{})
	dg.volatileCells = make(map[CellID]struct{})
}
