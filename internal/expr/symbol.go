package expr

// AbsSection is the pseudo-section of values with no section relocation
// (plain constants, differences of same-section labels).
const AbsSection = -1

// Symbol is one name in the assembler's symbol table. A symbol may be
// referenced before it is defined; every unresolved expression referencing it
// appends itself to dependents so definition can trigger re-evaluation.
type Symbol struct {
	Name       string
	Section    int
	Value      uint64
	Defined    bool
	External   bool
	dependents []*Expression
}

// Table maps names to symbols, preserving first-reference order for
// deterministic finalization and output symbol tables.
type Table struct {
	syms  map[string]*Symbol
	order []*Symbol
}

func NewTable() *Table {
	return &Table{syms: map[string]*Symbol{}}
}

// Ref returns the symbol named name, creating an undefined entry on first
// reference.
func (t *Table) Ref(name string) *Symbol {
	if s, ok := t.syms[name]; ok {
		return s
	}
	s := &Symbol{Name: name, Section: AbsSection}
	t.syms[name] = s
	t.order = append(t.order, s)
	return s
}

// Get returns the symbol if it exists, without creating it.
func (t *Table) Get(name string) (*Symbol, bool) {
	s, ok := t.syms[name]
	return s, ok
}

// Define sets a symbol's value and returns the expressions that were waiting
// on it. Redefinition of an already-defined symbol is the caller's error to
// raise; Define itself is idempotent on equal values.
func (t *Table) Define(name string, section int, value uint64) (*Symbol, []*Expression) {
	s := t.Ref(name)
	s.Section = section
	s.Value = value
	s.Defined = true
	deps := s.dependents
	s.dependents = nil
	return s, deps
}

// All returns the symbols in first-reference order.
func (t *Table) All() []*Symbol { return t.order }

// Undefined returns the names that are still undefined and not declared
// external, in first-reference order.
func (t *Table) Undefined() []*Symbol {
	var out []*Symbol
	for _, s := range t.order {
		if !s.Defined && !s.External {
			out = append(out, s)
		}
	}
	return out
}
