package main

import "hash/fnv"

//
// The symbol table.  One flat hash table with chained buckets holds
// every dynamic variable, every array and every registered PROC/FN
// definition.  Arrays are keyed with a trailing "(" so an array and
// a scalar of the same name coexist; PROC and FN definitions are
// keyed with their keyword prefix ("PROCfoo", "FNbar").
//
// The static integers @% and A%..Z% live in fixed workspace slots
// and never appear here
//

const symBuckets = 512

func newSymbolTable() *symbolTable {

	return &symbolTable{
		buckets: make([]*symEntry, symBuckets),
		mask:    symBuckets - 1,
	}
}

func hashName(name string) uint32 {

	h := fnv.New32a()
	h.Write([]byte(name))

	return h.Sum32()
}

func (t *symbolTable) find(name string) *symEntry {

	h := hashName(name)

	for e := t.buckets[h&t.mask]; e != nil; e = e.next {
		if e.hash == h && e.name == name {
			return e
		}
	}

	return nil
}

func (t *symbolTable) insert(name string, kind int) *symEntry {

	h := hashName(name)

	e := &symEntry{name: name, hash: h, kind: kind}

	slot := h & t.mask
	e.next = t.buckets[slot]
	t.buckets[slot] = e
	t.count++

	return e
}

//
// Reset all variable state.  Run by NEW, CLEAR, RUN and after any
// program edit, since every resolved reference in the executable
// halves dies with the table
//

func initSymbols() {

	g.symtab = newSymbolTable()

	g.descTable = nil
	g.descFree = nil
	g.symRefs = nil
	g.caseTables = nil

	g.fnprocCursor = g.ws.start

	for _, lib := range g.libraries {
		lib.scanned = false
		lib.priv = nil
	}
	for _, lib := range g.installed {
		lib.scanned = false
		lib.priv = nil
	}
}

//
// symRef hands out the small operand index the resolved array and
// PROC/FN tokens carry, since their targets are Go-side objects
// rather than workspace offsets
//

func symRef(e *symEntry) int32 {

	g.symRefs = append(g.symRefs, e)

	return int32(len(g.symRefs) - 1)
}

func symFromRef(idx int32) *symEntry {

	return g.symRefs[idx]
}

//
// Dynamic scalar lookup and creation.  The payload slot is 8 bytes
// for every kind: integers and floats use it directly, strings keep
// a descriptor (length, body offset) in it
//

func findVariable(name string) *symEntry {

	if priv := libPrivateTable(name); priv != nil {
		return priv.find(name)
	}

	return g.symtab.find(name)
}

func createVariable(name string) *symEntry {

	kind := kindFromName(name)

	tab := g.symtab
	if priv := libPrivateTable(name); priv != nil {
		tab = priv
	}

	e := tab.insert(name, kind)
	e.off = g.ws.allocHeap(8)

	return e
}

//
// Arrays get their symbol entry at DIM time; the descriptor arrives
// separately so a reference before DIM can be diagnosed
//

func findArray(name string) *symEntry {

	if priv := libPrivateTable(name + "("); priv != nil {
		return priv.find(name + "(")
	}

	return g.symtab.find(name + "(")
}

func createArray(name string) *symEntry {

	kind := kindFromName(name)

	tab := g.symtab
	if priv := libPrivateTable(name + "("); priv != nil {
		tab = priv
	}

	e := tab.insert(name+"(", kind|symArrayBit)

	return e
}

//
// PROC/FN definition registry.  Definitions are discovered lazily:
// the main program is scanned forward from a cursor the first time
// a name is not found, then each library image in load order,
// newest first.  Registration skips names already present, so a
// main-program definition always beats a library one, and a newer
// library beats an older
//

func fnProcKey(name string, isFn bool) string {

	if isFn {
		return "FN" + name
	}

	return "PROC" + name
}

func findFnProc(name string, isFn bool) *symEntry {

	key := fnProcKey(name, isFn)

	if e := g.symtab.find(key); e != nil {
		return e
	}

	for g.fnprocCursor < g.ws.top {
		off := g.fnprocCursor
		g.fnprocCursor = off + g.ws.lineLength(off)

		scanLineForDef(spaceMain, off, g.ws.lineBytes(off))

		if e := g.symtab.find(key); e != nil {
			return e
		}
	}

	for _, lib := range g.libraries {
		if e := scanLibraryDefs(lib, key); e != nil {
			return e
		}
	}
	for _, lib := range g.installed {
		if e := scanLibraryDefs(lib, key); e != nil {
			return e
		}
	}

	if isFn {
		raise(errFnMiss, name)
	}
	raise(errProcMiss, name)

	return nil
}

func scanLibraryDefs(lib *library, key string) *symEntry {

	if !lib.scanned {
		for off := 0; lib.image[off] != 0x00 || lib.image[off+1] != 0xFF; {
			length := int(lib.image[off+2]) | int(lib.image[off+3])<<8
			scanLineForDef(lib.space, off, lib.image[off:off+length])
			off += length
		}
		lib.scanned = true
	}

	return g.symtab.find(key)
}

//
// A definition line carries DEF then the PROC or FN keyword with the
// name in clear text.  The registered cursor points just past the
// name, at the parameter list or the statement body
//

func scanLineForDef(space, lineOff int, line []byte) {

	exe := int(line[4]) | int(line[5])<<8

	if line[exe] != tokDEF {
		return
	}

	pos := exe + 1

	var isFn bool

	switch line[pos] {
	case tokPROC:
		isFn = false
	case tokFN:
		isFn = true
	default:
		return
	}
	pos++

	start := pos
	for pos < len(line) && identChar(line[pos]) {
		pos++
	}

	if pos == start {
		return
	}

	name := string(line[start:pos])
	key := fnProcKey(name, isFn)

	if g.symtab.find(key) != nil {
		return
	}

	bit := symProcBit
	if isFn {
		bit = symFnBit
	}

	e := g.symtab.insert(key, bit)
	e.def = &fnProcDef{
		name:  name,
		isFn:  isFn,
		where: textPos{space: space, lineOff: lineOff, pos: pos},
	}
}

//
// The bytes a code space lives in.  Main program lines are inside
// the workspace, the immediate line and library images are Go
// slices of their own
//

func spaceBytes(space int) []byte {

	switch space {
	case spaceMain:
		return g.ws.mem
	case spaceImmediate:
		return g.immLine
	default:
		return g.spaces[space-spaceLibBase].image
	}
}
