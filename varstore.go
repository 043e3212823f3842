// varstore.go - variable storage binding: every declared
// variable gets a Storage (register or RBP-relative spill slot) from the
// active RegisterAllocator, recorded alongside its Symbol.
package main

// DeclareVariable interns name, allocates storage for it via ra, and
// declares it in st's innermost scope. The caller supplies the VarDef
// node index so diagnostics can point back at the declaration site.
func DeclareVariable(st *SymbolTable, ra *RegisterAllocator, name string, vt VarType, defNode NodeIndex) (*Symbol, error) {
	storage := ra.AllocGP()
	sym := &Symbol{
		Name:    name,
		Kind:    SymVar,
		Type:    vt,
		Storage: storage,
		NodeIdx: defNode,
	}
	if err := st.Declare(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// ResolveVariable looks up name and reports KindSymbolUndefined if absent,
// the error-kind vocabulary errors.go enumerates.
func ResolveVariable(st *SymbolTable, name string, loc SourceLocation) (*Symbol, error) {
	sym, ok := st.Lookup(name)
	if !ok {
		return nil, KindError(KindSymbolUndefined, "undefined variable '"+name+"'", loc)
	}
	return sym, nil
}
