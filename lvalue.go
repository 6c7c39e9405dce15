package main

//
// Reference resolution and lvalues.
//
// The first time a variable reference executes, its tokXVar marker
// still points back at the name text in the source half.  We look
// the name up (or create it, in assignment position), then rewrite
// the executable token in place to the typed form with the direct
// workspace offset, so every later execution skips the lookup.
// clearAllRefs undoes all of this after any edit
//

func readAnchorName(anchor int) string {

	return anchorName(r.line, anchor)
}

func anchorName(line []byte, anchor int) string {

	pos := anchor + 1

	start := pos
	for pos < len(line) && identChar(line[pos]) {
		pos++
	}

	for pos < len(line) {
		ch := line[pos]
		if ch == '%' || ch == '&' || ch == '#' || ch == '$' {
			pos++
			continue
		}
		break
	}

	return string(line[start:pos])
}

//
// resolveVarRef rewrites the tokXVar at the cursor.  The cursor
// does not move; the caller re-dispatches on the new token
//

func resolveVarRef(create bool) {

	anchor := int(operand32(r.line, r.cur.pos+1))
	name := readAnchorName(anchor)

	if r.line[r.cur.pos+5] == '(' {
		e := findArray(name)
		if e == nil {
			raise(errArrayMiss, name)
		}
		r.line[r.cur.pos] = tokArrayVar
		putOperand32(r.line, r.cur.pos+1, symRef(e))
		return
	}

	if idx := staticIndex(name); idx >= 0 {
		r.line[r.cur.pos] = tokStaticVar
		putOperand32(r.line, r.cur.pos+1, int32(idx))
		return
	}

	e := findVariable(name)
	if e == nil {
		if !create {
			raise(errVarMiss, name)
		}
		e = createVariable(name)
	}

	r.line[r.cur.pos] = kindToVarToken(e.kind)
	putOperand32(r.line, r.cur.pos+1, int32(e.off))
}

//
// getLvalue parses a storable reference at the cursor: a variable,
// an array element, a whole array, or an indirection expression.
// Chained indirection (A!4?1 = ...) keeps folding left to right
//

func getLvalue() lvalue {

	var lv lvalue

	for {
		tok := curTok()

		switch tok {

		case tokXVar:
			resolveVarRef(true)
			continue

		case tokIntVar:
			lv = lvalue{mode: modeScalar, kind: kindInt32,
				off: int(operand32(r.line, r.cur.pos+1))}
			bump(5)

		case tokInt64Var:
			lv = lvalue{mode: modeScalar, kind: kindInt64,
				off: int(operand32(r.line, r.cur.pos+1))}
			bump(5)

		case tokByteVar:
			lv = lvalue{mode: modeScalar, kind: kindUint8,
				off: int(operand32(r.line, r.cur.pos+1))}
			bump(5)

		case tokFloatVar:
			lv = lvalue{mode: modeScalar, kind: kindFloat64,
				off: int(operand32(r.line, r.cur.pos+1))}
			bump(5)

		case tokStringVar:
			lv = lvalue{mode: modeStringDesc, kind: kindString,
				off: int(operand32(r.line, r.cur.pos+1))}
			bump(5)

		case tokStaticVar:
			lv = lvalue{mode: modeStatic, kind: kindInt32,
				off: int(operand32(r.line, r.cur.pos+1))}
			bump(5)

		case tokArrayVar:
			lv = arrayLvalue()

		case '?', '!', ']', '|', '$':
			bump(1)
			evalFactor()
			lv = lvalue{mode: modeIndirect, kind: indirectKind(tok),
				off: popAddress()}

		default:
			raise(errSyntax)
		}

		break
	}

	//
	// Dyadic indirection hanging off the reference re-bases it
	//

	for {
		op := curTok()

		if op != '?' && op != '!' && op != ']' && op != '|' {
			return lv
		}

		base := loadFromLvalue(lv)
		if !base.isNumeric() {
			raise(errTypeNum)
		}

		bump(1)
		evalFactor()
		off := popNumeric().asInt64()

		addr := base.asInt64() + off
		if addr < 0 || addr >= int64(len(g.ws.mem)) {
			raise(errRange)
		}

		lv = lvalue{mode: modeIndirect, kind: indirectKind(op), off: int(addr)}
	}
}

//
// Reading through an lvalue, for compound assignment, FOR and the
// RETURN parameter plumbing
//

func loadFromLvalue(lv lvalue) value {

	ws := g.ws

	switch lv.mode {

	case modeStatic:
		n := ws.load64(staticSlotOff(lv.off))
		if n == int64(int32(n)) {
			return value{kind: kindInt32, i: n}
		}
		return value{kind: kindInt64, i: n}

	case modeScalar:
		switch lv.kind {
		case kindInt32:
			return value{kind: kindInt32, i: int64(ws.load32(lv.off))}
		case kindUint8:
			return value{kind: kindUint8, i: int64(ws.mem[lv.off])}
		case kindInt64:
			return value{kind: kindInt64, i: ws.load64(lv.off)}
		default:
			return value{kind: kindFloat64, f: ws.loadFloat(lv.off)}
		}

	case modeStringDesc:
		length, body := ws.loadStrDesc(lv.off)
		return value{kind: kindString, sLen: length, sBody: body}

	case modeArrayElem:
		return arrayElemValue(lv.desc, lv.elem)

	case modeIndirect:
		return indirectValue(lv.kind, lv.off)

	default:
		fatalError("cannot read lvalue mode %d", lv.mode)
		panic(nil)
	}
}

//
// Writing through an lvalue.  A string temp passed in is consumed
//

func storeToLvalue(lv lvalue, v value) {

	ws := g.ws

	switch lv.mode {

	case modeStatic:
		if !v.isNumeric() {
			raise(errTypeNum)
		}
		ws.store64(staticSlotOff(lv.off), v.asInt64())

	case modeScalar:
		if !v.isNumeric() {
			raise(errTypeNum)
		}
		switch lv.kind {
		case kindInt32:
			ws.store32(lv.off, v.asInt32())
		case kindUint8:
			ws.mem[lv.off] = uint8(v.asInt64())
		case kindInt64:
			ws.store64(lv.off, v.asInt64())
		default:
			ws.storeFloat(lv.off, v.asFloat())
		}

	case modeStringDesc:
		if v.kind != kindString {
			raise(errTypeStr)
		}
		s := strValue(v)
		releaseValue(v)
		ws.setStrDesc(lv.off, s)

	case modeArrayElem:
		storeArrayElem(lv.desc, lv.elem, v)

	case modeIndirect:
		storeIndirect(lv.kind, lv.off, v)

	default:
		fatalError("cannot write lvalue mode %d", lv.mode)
	}
}

//
// Indirection loads and stores.  The string form is the classic
// CR-terminated block of bytes at an address
//

func indirectValue(kind, addr int) value {

	ws := g.ws

	switch kind {
	case kindUint8:
		return value{kind: kindUint8, i: int64(ws.mem[addr])}
	case kindInt32:
		return value{kind: kindInt32, i: int64(ws.load32(addr))}
	case kindInt64:
		return value{kind: kindInt64, i: ws.load64(addr)}
	case kindFloat64:
		return value{kind: kindFloat64, f: ws.loadFloat(addr)}
	default:
		end := addr
		for end < len(ws.mem) && ws.mem[end] != 0x0D {
			end++
		}
		s := string(ws.mem[addr:end])
		return value{kind: kindString, sLen: len(s), sBody: addr}
	}
}

func loadIndirect(kind, addr int) {

	v := indirectValue(kind, addr)

	if v.kind == kindString {
		pushString(strValue(v))
		return
	}

	pushValue(v)
}

func storeIndirect(kind, addr int, v value) {

	ws := g.ws

	if kind == kindString {
		if v.kind != kindString {
			raise(errTypeStr)
		}
		s := strValue(v)
		releaseValue(v)

		if addr+len(s)+1 > len(ws.mem) {
			raise(errRange)
		}
		copy(ws.mem[addr:], s)
		ws.mem[addr+len(s)] = 0x0D
		return
	}

	if !v.isNumeric() {
		raise(errTypeNum)
	}

	switch kind {
	case kindUint8:
		ws.mem[addr] = uint8(v.asInt64())
	case kindInt32:
		ws.store32(addr, v.asInt32())
	case kindInt64:
		ws.store64(addr, v.asInt64())
	default:
		ws.storeFloat(addr, v.asFloat())
	}
}
