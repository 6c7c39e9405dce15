package main

//
// PROC and FN machinery.
//
// A call runs in six steps: find (or lazily register) the
// definition, parse its parameter list on first use, evaluate the
// arguments with the caller's bindings still intact, push the call
// frame, shadow each parameter variable with a LOCAL save and bind
// the argument, then jump to the body.  ENDPROC (or the = return in
// a function) unwinds the same entries in reverse, which restores
// the shadowed variables and copies RETURN parameters back out
//

type argBinding struct {
	v     value
	lv    lvalue
	hasLv bool
	desc  *arrayDesc
}

//
// resolveFnProcRef rewrites the unresolved call marker at the
// cursor.  The operand of the X form points at the PROC/FN keyword
// in the source half, with the name in clear text after it
//

func resolveFnProcRef() *fnProcDef {

	if curTok() == tokXFnProc {
		anchor := int(operand32(r.line, r.cur.pos+1))
		isFn := r.line[anchor] == tokFN

		pos := anchor + 1
		start := pos
		for pos < len(r.line) && identChar(r.line[pos]) {
			pos++
		}

		e := findFnProc(string(r.line[start:pos]), isFn)

		r.line[r.cur.pos] = tokFnProc
		putOperand32(r.line, r.cur.pos+1, symRef(e))
	}

	e := symFromRef(operand32(r.line, r.cur.pos+1))
	bump(5)

	if !e.def.scanned {
		scanParamList(e.def)
	}

	return e.def
}

//
// First-call parse of the parameter list on the DEF line.  The
// parameter tokens there are never executed, so they stay in their
// anchor form and we read the names straight out of them
//

func scanParamList(def *fnProcDef) {

	saved := r
	defer func() { r = saved }()

	setLine(def.where.space, def.where.lineOff)
	r.cur.pos = def.where.pos

	if curTok() == '(' {
		bump(1)

		for {
			var p fnParam

			if curTok() == tokRETURN {
				bump(1)
				p.byRef = true
			}

			if curTok() != tokXVar {
				raise(errSyntax)
			}

			name := readAnchorName(int(operand32(r.line, r.cur.pos+1)))
			bump(5)

			if curTok() == '(' && peekTok(1) == ')' {
				bump(2)
				p.isArray = true

				e := findArray(name)
				if e == nil {
					e = createArray(name)
				}
				p.entry = e
			} else if idx := staticIndex(name); idx >= 0 {
				p.lv = lvalue{mode: modeStatic, kind: kindInt32, off: idx}
			} else {
				e := findVariable(name)
				if e == nil {
					e = createVariable(name)
				}
				if e.kind == kindString {
					p.lv = lvalue{mode: modeStringDesc, kind: kindString, off: e.off}
				} else {
					p.lv = lvalue{mode: modeScalar, kind: e.kind, off: e.off}
				}
			}

			def.params = append(def.params, p)

			if curTok() != ',' {
				break
			}
			bump(1)
		}

		expectByte(')', errMissingRParen)
	}

	if curTok() == ':' {
		bump(1)
	}

	def.body = textPos{space: r.cur.space, lineOff: r.cur.lineOff, pos: r.cur.pos}
	def.scanned = true
}

//
// Argument evaluation, at the call site.  RETURN and array
// parameters need a reference, everything else an expression
//

func parseArguments(def *fnProcDef) []argBinding {

	args := make([]argBinding, 0, len(def.params))

	if curTok() != '(' {
		if len(def.params) > 0 {
			raise(errNotEnuff)
		}
		return args
	}
	bump(1)

	for i := 0; ; i++ {
		if i >= len(def.params) {
			raise(errTooMany)
		}

		p := def.params[i]

		var a argBinding

		switch {
		case p.isArray:
			// arrays travel by descriptor, so RETURN adds nothing
			lv := getLvalue()
			if lv.mode != modeWholeArray {
				raise(errVarArray)
			}
			a.desc = lv.desc

		case p.byRef:
			a.lv = getLvalue()
			a.hasLv = true
			a.v = copiedValue(loadFromLvalue(a.lv))

		default:
			evalExpr()
			a.v = copiedValue(popValue())
		}

		checkParamKind(i, p, a)
		args = append(args, a)

		if curTok() != ',' {
			break
		}
		bump(1)
	}

	expectByte(')', errMissingRParen)

	if len(args) < len(def.params) {
		raise(errNotEnuff)
	}

	return args
}

//
// Borrowed string values must not survive the rebinding of the
// variables they borrow from, so arguments are always private
// copies
//

func copiedValue(v value) value {

	if v.kind != kindString || v.sTemp || v.sLen == 0 {
		return v
	}

	body := g.ws.allocString(v.sLen)
	copy(g.ws.mem[body:], g.ws.mem[v.sBody:v.sBody+v.sLen])

	return value{kind: kindString, sLen: v.sLen, sBody: body, sTemp: true}
}

func checkParamKind(i int, p fnParam, a argBinding) {

	if p.isArray {
		return
	}

	if p.lv.kind == kindString && a.v.kind != kindString {
		raise(errParmStr, i+1)
	}

	if p.lv.kind != kindString && a.v.kind == kindString {
		raise(errParmNum, i+1)
	}
}

//
// bindParameters: save each parameter variable on the stack, then
// store the argument into it.  The string descriptor is zeroed
// between the save and the store so binding cannot free the saved
// body
//

func bindParameters(def *fnProcDef, args []argBinding) {

	for i, p := range def.params {

		a := args[i]

		if p.isArray {
			pushLocalArrFrame(symRef(p.entry), p.entry.desc)
			p.entry.desc = a.desc
			continue
		}

		saveLocalVar(p.lv)
		storeToLvalue(p.lv, a.v)

		if a.hasLv {
			pushRetParmFrame(a.lv, p.lv)
		}
	}
}

//
// The 8-byte save slot: raw bits for scalars, the descriptor pair
// for strings.  The variable is left holding zero / empty
//

func saveLocalVar(lv lvalue) {

	ws := g.ws

	var bits int64

	switch lv.mode {
	case modeStatic:
		bits = ws.load64(staticSlotOff(lv.off))
		ws.store64(staticSlotOff(lv.off), 0)

	case modeScalar:
		bits = ws.load64(lv.off)
		ws.store64(lv.off, 0)

	case modeStringDesc:
		bits = ws.load64(lv.off)
		ws.storeStrDesc(lv.off, 0, 0)

	default:
		raise(errSyntax)
	}

	pushLocalFrame(lv, bits)
}

func restoreLocalVar(lv lvalue, bits int64) {

	ws := g.ws

	switch lv.mode {
	case modeStatic:
		ws.store64(staticSlotOff(lv.off), bits)

	case modeScalar:
		ws.store64(lv.off, bits)

	case modeStringDesc:
		length, body := ws.loadStrDesc(lv.off)
		ws.freeString(body, length)
		ws.store64(lv.off, bits)
	}
}

//
// PROC call, from the statement dispatcher with the cursor on the
// call marker
//

func callProc(def *fnProcDef) {

	if def.isFn {
		raise(errSyntax)
	}

	if r.depth >= g.recurseLimit {
		raise(errStackFull)
	}

	args := parseArguments(def)

	pushCallFrame(stkProc, r.cur)
	bindParameters(def, args)

	r.depth++
	jumpTo(def.body)
}

//
// ENDPROC unwinds to the call frame, restoring every shadowed
// variable and copying RETURN parameters out on the way
//

func endProc() {

	ret := unwindCall(stkProc, errNoProc)

	r.depth--
	jumpTo(ret)
}

//
// FN call, from the evaluator.  The body runs in a nested
// statement loop that ends at the = return; the result is left on
// the value stack for the waiting expression
//

func evalFnCall() {

	def := resolveFnProcRef()

	if !def.isFn {
		raise(errSyntax)
	}

	if r.depth >= g.recurseLimit {
		raise(errStackFull)
	}

	args := parseArguments(def)

	pushCallFrame(stkFn, r.cur)
	bindParameters(def, args)

	r.depth++
	jumpTo(def.body)

	runLoop(true)
}

//
// The = statement in a function body: evaluate the result, unwind
// to the function frame, hand the result to the caller
//

func fnReturn() {

	evalExpr()
	result := copiedValue(popValue())

	ret := unwindCall(stkFn, errNoFn)

	r.depth--
	jumpTo(ret)

	pushValue(result)
}

//
// unwindCall pops the stack to the requested call frame, undoing
// parameter bindings and LOCAL saves as they come off
//

func unwindCall(want, errCode int) textPos {

	ws := g.ws

	for {
		if ws.stacktop >= ws.himem {
			raise(errCode)
		}

		tag := int(ws.mem[ws.stacktop])

		if tag == want {
			ret := loadPos(ws.stacktop + 1)
			dropEntry()
			return ret
		}

		switch tag {

		case stkInt32, stkUint8, stkInt64, stkFloat, stkStrRef:
			dropEntry()

		case stkStrTemp:
			length := int(ws.load32(ws.stacktop + 1))
			body := int(ws.load32(ws.stacktop + 5))
			ws.freeString(body, length)
			dropEntry()

		case stkArray:
			releaseHandle(ws.load32(ws.stacktop + 1))
			dropEntry()

		case stkRetParm:
			caller := loadLvalue(ws.stacktop + 1)
			local := loadLvalue(ws.stacktop + 21)
			dropEntry()
			storeToLvalue(caller, copiedValue(loadFromLvalue(local)))

		case stkLocal:
			lv := loadLvalue(ws.stacktop + 1)
			bits := ws.load64(ws.stacktop + 21)
			dropEntry()
			restoreLocalVar(lv, bits)

		case stkLocalArr:
			entryRef := ws.load32(ws.stacktop + 1)
			h := ws.load32(ws.stacktop + 5)
			dropEntry()

			e := symFromRef(entryRef)
			if h >= 0 {
				e.desc = descFromHandle(h)
				releaseHandle(h)
			} else {
				e.desc = nil
			}

		case stkGosub, stkForInt, stkForFloat, stkRepeat, stkWhile:
			// an unfinished loop or subroutine inside the body
			dropEntry()

		case stkError:
			prev, local := popErrorFrame()
			r.errHandler = prev
			r.errHandlerLocal = local
			r.errHandlerSet = prev != (textPos{})

		default:
			raise(errCode)
		}
	}
}

//
// LOCAL: shadow the named variables for the rest of the enclosing
// PROC or FN.  LOCAL ERROR pushes an error handler frame instead
//

func executeLocal() {

	bump(1)

	if curTok() == tokERROR {
		bump(1)
		pushErrorFrame(r.errHandler, r.errHandlerLocal)
		r.errHandlerLocal = true
		return
	}

	if r.depth == 0 {
		raise(errNoProc)
	}

	for {
		if curTok() == tokXVar {
			resolveVarRef(true)
		}

		if curTok() == tokArrayVar {
			e := symFromRef(operand32(r.line, r.cur.pos+1))
			bump(5)
			expectByte('(', errSyntax)
			expectByte(')', errMissingRParen)

			pushLocalArrFrame(symRef(e), e.desc)
			e.desc = nil
		} else {
			lv := getLvalue()
			if lv.mode != modeScalar && lv.mode != modeStringDesc && lv.mode != modeStatic {
				raise(errSyntax)
			}
			saveLocalVar(lv)
		}

		if curTok() != ',' {
			return
		}
		bump(1)
	}
}

//
// Error handler control.  ON ERROR remembers where the handler
// statements start; the rest of the line is the handler, so normal
// flow skips to the next line
//

func executeOnError() {

	switch curTok() {

	case tokOFF:
		bump(1)
		r.errHandler = textPos{}
		r.errHandlerSet = false
		r.errHandlerLocal = false

	case tokLOCAL:
		bump(1)
		pushErrorFrame(r.errHandler, r.errHandlerLocal)
		r.errHandler = r.cur
		r.errHandlerSet = true
		r.errHandlerLocal = true
		skipToEol()

	default:
		r.errHandler = r.cur
		r.errHandlerSet = true
		r.errHandlerLocal = false
		skipToEol()
	}
}

//
// An error with a handler in place lands here from the run loop.
// A plain handler throws away everything on the stack; a LOCAL one
// unwinds to its frame and reinstates the previous handler
//

func handleRuntimeError(re *runtimeErrorInfo) {

	r.errNo = re.code
	r.errMsg = re.msg
	r.erl = re.line

	if !r.errHandlerLocal {
		resetStack()
		r.depth = 0
		jumpTo(r.errHandler)
		return
	}

	target := r.errHandler

	findFrameForError()
	jumpTo(target)
}

//
// Unwind to the newest error frame, undoing call bindings on the
// way, then pop it to reinstate the enclosing handler
//

func findFrameForError() {

	ws := g.ws

	for ws.stacktop < ws.himem {
		if int(ws.mem[ws.stacktop]) == stkError {
			prev, local := popErrorFrame()
			r.errHandler = prev
			r.errHandlerLocal = local
			r.errHandlerSet = prev != (textPos{})
			return
		}

		unwindOneEntry()
	}

	resetStack()
	r.depth = 0
}

func unwindOneEntry() {

	ws := g.ws

	switch int(ws.mem[ws.stacktop]) {

	case stkStrTemp:
		length := int(ws.load32(ws.stacktop + 1))
		body := int(ws.load32(ws.stacktop + 5))
		ws.freeString(body, length)
		dropEntry()

	case stkArray:
		releaseHandle(ws.load32(ws.stacktop + 1))
		dropEntry()

	case stkLocal:
		lv := loadLvalue(ws.stacktop + 1)
		bits := ws.load64(ws.stacktop + 21)
		dropEntry()
		restoreLocalVar(lv, bits)

	case stkLocalArr:
		entryRef := ws.load32(ws.stacktop + 1)
		h := ws.load32(ws.stacktop + 5)
		dropEntry()

		e := symFromRef(entryRef)
		if h >= 0 {
			e.desc = descFromHandle(h)
			releaseHandle(h)
		} else {
			e.desc = nil
		}

	case stkProc, stkFn:
		dropEntry()
		if r.depth > 0 {
			r.depth--
		}

	default:
		dropEntry()
	}
}
