package dbwriter

// stringBuckets are the precision steps a growing string column walks
// through, capped at 4000 (16-bit backends) or 8000 (8-bit backends).
var stringBuckets = []int{250, 500, 1000, 2000, 4000}

const (
	stringCap16 = 4000
	stringCap8  = 8000
)

// widen computes the column definition a new value's semantic type and
// precision requires, given the column's current definition. It never
// narrows: once current is the terminal string(cap), widen returns it
// unchanged. eightBit selects the 8000 string cap (e.g. VARCHAR on a
// backend without native NVARCHAR); it has no effect once a column is
// already numeric.
func widen(current ColumnDefinition, next SemanticType, precision int, eightBit bool) ColumnDefinition {
	cap := stringCap16
	if eightBit {
		cap = stringCap8
	}

	if current.Semantic == SemanticString && current.SQLPrecision >= cap {
		return current // terminal
	}

	target := widenSemantic(current.Semantic, next)
	targetPrec := widenPrecision(target, current.SQLPrecision, precision, cap)
	if target == SemanticString && current.Semantic != SemanticString && current.Semantic != SemanticUnknown {
		targetPrec = cap // incompatible transition: straight to the terminal string
	}

	return ColumnDefinition{Name: current.Name, Semantic: target, SQLPrecision: targetPrec}
}

// widenSemantic resolves the lattice's target semantic bucket for a
// transition from current to next. Compatible numeric transitions widen;
// anything incompatible (e.g. float into an int column, or vice versa)
// degrades to the terminal string bucket.
func widenSemantic(current, next SemanticType) SemanticType {
	if current == SemanticUnknown {
		return next
	}
	if current == next {
		return current
	}
	if isIntLattice(current) && isIntLattice(next) {
		return maxIntSemantic(current, next)
	}
	return SemanticString
}

func isIntLattice(t SemanticType) bool {
	switch t {
	case SemanticInt32, SemanticInt64, SemanticBigNumeric:
		return true
	}
	return false
}

func maxIntSemantic(a, b SemanticType) SemanticType {
	rank := map[SemanticType]int{SemanticInt32: 0, SemanticInt64: 1, SemanticBigNumeric: 2}
	if rank[a] > rank[b] {
		return a
	}
	return b
}

// widenPrecision picks the string precision bucket for target, or 0 for
// non-string semantic types (precision is meaningless there).
func widenPrecision(target SemanticType, currentPrec, requestedPrec, cap int) int {
	if target != SemanticString {
		return 0
	}
	p := requestedPrec
	if currentPrec > p {
		p = currentPrec
	}
	for _, bucket := range stringBuckets {
		if p <= bucket {
			p = bucket
			break
		}
	}
	if p > cap {
		p = cap
	}
	return p
}
