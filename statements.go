package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/goforj/godump"
)

//
// The statement interpreter.  The run cursor lives in r.cur and
// always points into the executable half of r.line; every handler
// leaves it either on a statement separator or at the start of a
// statement it has jumped to
//

//
// setLine makes the line at the given offset current.  Position 0
// in a textPos means the first executable token of the line
//

func setLine(space, lineOff int) {

	buf := spaceBytes(space)
	length := operand16(buf, lineOff+2)

	r.line = buf[lineOff : lineOff+length]
	r.execBase = operand16(r.line, 4)
	r.cur = textPos{space: space, lineOff: lineOff, pos: r.execBase}

	if space == spaceImmediate {
		r.curLineNo = -1
		return
	}

	r.curLineNo = operand16(r.line, 0)

	if g.traceExec && r.curLineNo != sentinelLineNo {
		myPrintf("[%d]", r.curLineNo)
	}
}

//
// advanceLine steps to the next stored line.  The immediate line
// stands alone, so falling off its end finishes the loop; a stored
// program always has the sentinel line, whose END token does the
// finishing instead
//

func advanceLine() bool {

	if r.cur.space == spaceImmediate {
		return false
	}

	setLine(r.cur.space, r.cur.lineOff+len(r.line))

	return true
}

func jumpTo(pos textPos) {

	setLine(pos.space, pos.lineOff)

	if pos.pos != 0 {
		r.cur.pos = pos.pos
	}
}

//
// jumpToAbs maps a space-absolute byte offset back onto a line and
// a position within it.  Forward jumps start the walk at the
// current line, anything else at the top of the space
//

func jumpToAbs(space, abs int) {

	off := spaceStart(space)
	if space == r.cur.space && r.cur.lineOff <= abs {
		off = r.cur.lineOff
	}

	buf := spaceBytes(space)

	for abs >= off+operand16(buf, off+2) {
		off += operand16(buf, off+2)
	}

	setLine(space, off)
	r.cur.pos = abs - off
}

func spaceStart(space int) int {

	if space == spaceMain {
		return g.ws.start
	}

	return 0
}

//
// skipExec steps over one executable token, operands included
//

func skipExec(line []byte, pos int) int {

	ch := line[pos]

	if ch == tokFuncPfx || ch == tokCmdPfx || ch == tokPrintPfx {
		return pos + 2
	}

	return pos + 1 + execOperandWidth[ch]
}

func skipToEol() {

	for curTok() != tokNul {
		r.cur.pos = skipExec(r.line, r.cur.pos)
	}
}

//
// walkExec visits every executable token from the given position to
// the end of the code space, stopping early when the callback says
// so.  The sentinel line is not entered
//

func walkExec(space, lineOff, pos int, fn func(lineOff, pos int, tok byte) bool) bool {

	buf := spaceBytes(space)

	for {
		line := buf[lineOff : lineOff+operand16(buf, lineOff+2)]

		for line[pos] != tokNul {
			if fn(lineOff, pos, line[pos]) {
				return true
			}
			pos = skipExec(line, pos)
		}

		if space == spaceImmediate {
			return false
		}

		lineOff += len(line)
		if operand16(buf, lineOff) == sentinelLineNo {
			return false
		}
		pos = operand16(buf, lineOff+4)
	}
}

//
// The run loop.  Each pass deals with whatever the cursor points
// at: separators and block markers directly, real statements through
// the dispatcher.  Only the outermost loop fields runtime errors,
// so a panic inside a nested FN body unwinds the Go stack all the
// way back to where an ON ERROR handler can take over
//

func runLoop(inFn bool) {

	for {
		switch curTok() {

		case ':':
			bump(1)

		case tokNul:
			if !advanceLine() {
				return
			}

		case tokXElse, tokRElse:
			// end of a THEN branch: skip the ELSE part
			elseSkip()

		case tokXWhen, tokRWhen, tokXOtherwise, tokROtherwise:
			// a WHEN body ran into the next arm
			hopToEndcase()

		default:
			var stop bool

			if inFn {
				stop = executeStatement()
			} else {
				stop = safeStatement()
			}

			if stop {
				return
			}
		}
	}
}

//
// safeStatement shields one statement so an ON ERROR handler can
// field whatever it raises.  Everything else re-panics to the REPL
//

func safeStatement() (stop bool) {

	defer func() {
		if pay := recover(); pay != nil {
			re, ok := pay.(*runtimeErrorInfo)
			if !ok || !r.errHandlerSet {
				panic(pay)
			}
			handleRuntimeError(re)
		}
	}()

	return executeStatement()
}

//
// One statement.  Returns true only for the = return of a function,
// which ends the nested loop the FN call started
//

func executeStatement() bool {

	checkEscape()
	discardOperands()

	s.numStatements++

	switch tok := curTok(); tok {

	case tokXVar, tokIntVar, tokInt64Var, tokByteVar, tokFloatVar,
		tokStringVar, tokStaticVar, tokArrayVar, tokIndVar,
		'?', '!', ']', '|', '$':
		executeAssignment()

	case tokLET:
		bump(1)
		executeAssignment()

	case tokXFnProc, tokFnProc:
		callProc(resolveFnProcRef())

	case tokENDPROC:
		bump(1)
		endProc()

	case '=':
		bump(1)
		fnReturn()
		return true

	case tokXIf, tokRIf:
		executeIf()

	case tokXCase, tokRCase:
		executeCase()

	case tokENDCASE:
		bump(1)

	case tokXWhile, tokRWhile:
		executeWhile()

	case tokENDWHILE:
		executeEndwhile()

	case tokREPEAT:
		bump(1)
		pushRepeatFrame(r.cur)

	case tokUNTIL:
		executeUntil()

	case tokFOR:
		executeFor()

	case tokNEXT:
		executeNext()

	case tokGOTO:
		bump(1)
		jumpTo(resolveLineRef())

	case tokGOSUB:
		bump(1)
		target := resolveLineRef()
		pushGosubFrame(r.cur)
		jumpTo(target)

	case tokRETURN:
		bump(1)
		jumpTo(popGosubFrame())

	case tokXLinenum, tokLinenum:
		// a bare line number after THEN or ELSE is a GOTO
		jumpTo(resolveLineRef())

	case tokON:
		executeOn()

	case tokDEF:
		skipToEol()

	case tokEND:
		panic(&crawloutException{})

	case tokSTOP:
		raise(errStopped)

	case tokREM, tokDATA:
		skipToEol()

	case tokRESTORE:
		executeRestore()

	case tokREAD:
		executeRead()

	case tokDIM:
		executeDim()

	case tokLOCAL:
		executeLocal()

	case tokERROR:
		executeError()

	case tokREPORT:
		bump(1)
		myPrintf("\n%s\n", r.errMsg)

	case tokTRACE:
		executeTrace()

	case tokPRINT:
		executePrint()

	case tokINPUT:
		executeInput()

	case tokOSCLI:
		bump(1)
		oscliCommand(evalString())

	case tokStar:
		starCommand()

	case tokBPUT:
		executeBput()

	case tokCLOSE:
		executeClose()

	case tokLIBRARY:
		executeLibrary(false)

	case tokINSTALL:
		executeLibrary(true)

	case tokRUN:
		executeRun()

	case tokCHAIN:
		bump(1)
		loadProgram(evalString())
		startRun(0)

	case tokCLEAR:
		bump(1)
		executeClear()

	case tokQUIT:
		executeQuit()

	case tokCALL:
		raise(errUnsupported)

	case tokCmdPfx:
		executeCommand(int(peekTok(1)))

	case tokBadline:
		raise(int(peekTok(1)))

	default:
		raise(errSyntax)
	}

	return false
}

//
// Assignment, including the compound forms and whole-array targets
//

func executeAssignment() {

	lv := getLvalue()

	op := curTok()

	switch op {

	case '=':
		bump(1)
		evalExpr()

		if lv.mode == modeWholeArray && curTok() == ',' {
			arrayListAssign(lv.desc)
			return
		}

	case tokPlusEq, tokMinusEq, tokPowEq:
		bump(1)

		if lv.mode == modeWholeArray {
			pushArray(lv.desc)
		} else {
			pushValue(loadFromLvalue(lv))
		}

		evalExpr()

		switch op {
		case tokPlusEq:
			applyBinaryOp('+')
		case tokMinusEq:
			applyBinaryOp('-')
		default:
			applyBinaryOp('^')
		}

	default:
		raise(errSyntax)
	}

	v := popValue()

	if lv.mode == modeWholeArray {
		arrayAssign(lv.desc, v)
		return
	}

	storeToLvalue(lv, v)
}

//
// a() = 1,2,3,4 fills elements in row-major order starting from the
// first, leaving any remainder alone.  The first value is already
// on the stack when this is called
//

func arrayListAssign(d *arrayDesc) {

	elem := int32(0)

	for {
		if elem >= d.arrsize {
			raise(errBadIndex)
		}

		storeArrayElem(d, elem, popValue())
		elem++

		if curTok() != ',' {
			return
		}
		bump(1)
		evalExpr()
	}
}

//
// IF.  Single line form: the marker's slot caches the position of
// the false branch, found on the first false condition by scanning
// for a depth-matched ELSE
//

func executeIf() {

	pos0 := r.cur.pos
	resolved := curTok() == tokRIf

	bump(3)

	if evalCondition() {
		if curTok() == tokTHEN {
			bump(1)
		}
		return
	}

	if resolved {
		r.cur.pos = pos0 + operand16(r.line, pos0+1)
		return
	}

	target := findElseOnLine()

	putOperand16(r.line, pos0+1, target-pos0)
	r.line[pos0] = tokRIf

	r.cur.pos = target
}

//
// Scan the rest of the line for the ELSE belonging to this IF.
// Nested IFs claim their own ELSE first.  No ELSE means the false
// branch is the end of the line
//

func findElseOnLine() int {

	depth := 0

	for pos := r.cur.pos; r.line[pos] != tokNul; pos = skipExec(r.line, pos) {

		switch r.line[pos] {

		case tokXIf, tokRIf:
			depth++

		case tokXElse, tokRElse:
			if depth == 0 {
				return pos + 3
			}
			depth--
		}
	}

	return len(r.line) - 1
}

//
// An ELSE marker reached in normal flow ends the THEN branch, so
// everything after it is skipped.  The slot caches the end of line
//

func elseSkip() {

	pos0 := r.cur.pos

	if curTok() == tokRElse {
		r.cur.pos = pos0 + operand16(r.line, pos0+1)
		return
	}

	target := len(r.line) - 1

	putOperand16(r.line, pos0+1, target-pos0)
	r.line[pos0] = tokRElse

	r.cur.pos = target
}

//
// CASE.  The first execution builds a jump table of the WHEN and
// OTHERWISE arms and parks its handle in the marker's operand;
// every execution evaluates the subject once and tries each arm's
// comparand list in order
//

func executeCase() {

	pos0 := r.cur.pos

	var tbl *caseTable

	if curTok() == tokRCase {
		tbl = g.caseTables[operand32(r.line, pos0+1)]
	} else {
		tbl = buildCaseTable()
		g.caseTables = append(g.caseTables, tbl)
		putOperand32(r.line, pos0+1, int32(len(g.caseTables)-1))
		r.line[pos0] = tokRCase
	}

	bump(5)
	evalExpr()
	v := popValue()

	expectByte(tokOF, errSyntax)
	if curTok() != tokNul {
		raise(errSyntax)
	}

	for _, arm := range tbl.arms {

		if arm.otherwise {
			releaseValue(v)
			jumpTo(arm.where)
			return
		}

		jumpTo(arm.where)

		matched := false

		for {
			evalExpr()
			c := popValue()
			if !matched && caseMatch(v, c) {
				matched = true
			}
			releaseValue(c)

			if curTok() != ',' {
				break
			}
			bump(1)
		}

		if matched {
			releaseValue(v)
			return
		}
	}

	releaseValue(v)
	jumpTo(tbl.endcase)
}

//
// Scan the lines after the CASE for its arms and its ENDCASE,
// minding nested CASE blocks.  The line right after the OF must
// open with WHEN or OTHERWISE.  Each arm marker's short slot gets
// the forward distance to the ENDCASE, for bodies that run into
// the next arm
//

func buildCaseTable() *caseTable {

	space := r.cur.space
	caseLine := r.cur.lineOff

	tbl := &caseTable{}
	depth := 0
	found := false
	firstLine := true

	var markers []int // space-absolute marker offsets

	buf := spaceBytes(space)
	next := caseLine + operand16(buf, caseLine+2)
	nextExe := operand16(buf, next+4)

	walkExec(space, next, nextExe, func(lineOff, pos int, tok byte) bool {

		if firstLine {
			if tok != tokXWhen && tok != tokRWhen &&
				tok != tokXOtherwise && tok != tokROtherwise {
				raise(errNotWhenable)
			}
			firstLine = false
		}

		switch tok {

		case tokXCase, tokRCase:
			depth++

		case tokENDCASE:
			if depth > 0 {
				depth--
				break
			}
			tbl.endcase = textPos{space: space, lineOff: lineOff, pos: pos}
			found = true
			return true

		case tokXWhen, tokRWhen, tokXOtherwise, tokROtherwise:
			if depth == 0 {
				tbl.arms = append(tbl.arms, caseArm{
					where:     textPos{space: space, lineOff: lineOff, pos: pos + 3},
					otherwise: tok == tokXOtherwise || tok == tokROtherwise,
				})
				markers = append(markers, lineOff+pos)
			}
		}

		return false
	})

	if !found {
		raise(errNotWhenable)
	}

	endAbs := tbl.endcase.lineOff + tbl.endcase.pos

	for _, m := range markers {

		dist := endAbs - m
		if dist >= 0xFFFF {
			dist = 0xFFFF
		}

		putOperand16(buf, m+1, dist)
		if buf[m] == tokXWhen {
			buf[m] = tokRWhen
		} else if buf[m] == tokXOtherwise {
			buf[m] = tokROtherwise
		}
	}

	return tbl
}

//
// A body that runs into the next WHEN arm is finished: continue at
// the ENDCASE.  The marker's slot usually knows where that is
//

func hopToEndcase() {

	markerAbs := r.cur.lineOff + r.cur.pos
	slot := operand16(r.line, r.cur.pos+1)

	if slot > 0 && slot < 0xFFFF {
		jumpToAbs(r.cur.space, markerAbs+slot)
		return
	}

	depth := 0
	found := false
	space := r.cur.space

	walkExec(space, r.cur.lineOff, r.cur.pos+3, func(lineOff, pos int, tok byte) bool {

		switch tok {
		case tokXCase, tokRCase:
			depth++
		case tokENDCASE:
			if depth > 0 {
				depth--
				break
			}
			setLine(space, lineOff)
			r.cur.pos = pos
			found = true
			return true
		}

		return false
	})

	if !found {
		raise(errNotWhenable)
	}
}

func caseMatch(v, c value) bool {

	if v.kind == kindString {
		if c.kind != kindString {
			raise(errTypeStr)
		}
		return strValue(v) == strValue(c)
	}

	if c.kind == kindString {
		raise(errTypeNum)
	}

	if v.kind == kindFloat64 || c.kind == kindFloat64 {
		return v.asFloat() == c.asFloat()
	}

	return v.asInt64() == c.asInt64()
}

//
// WHILE / ENDWHILE.  The frame carries the marker's own position,
// so a loop iteration recognises its frame at the top of the stack.
// The marker slot caches the forward distance past the ENDWHILE,
// with 0xFFFF standing for "too far, rescan"
//

func executeWhile() {

	marker := r.cur
	pos0 := r.cur.pos
	slot := operand16(r.line, pos0+1)

	if stackTag() != stkWhile || loadPos(g.ws.stacktop+1) != marker {
		pushWhileFrame(marker)
	}

	bump(3)

	if evalCondition() {
		return
	}

	dropEntry()

	markerAbs := marker.lineOff + pos0

	if slot > 0 && slot < 0xFFFF {
		jumpToAbs(marker.space, markerAbs+slot)
		return
	}

	target := scanPastEndwhile(marker.space, marker.lineOff, pos0+3)

	dist := target - markerAbs
	if dist >= 0xFFFF {
		dist = 0xFFFF
	}
	putOperand16(r.line, pos0+1, dist)
	r.line[pos0] = tokRWhile

	jumpToAbs(marker.space, target)
}

func scanPastEndwhile(space, lineOff, pos int) int {

	depth := 0
	target := -1

	walkExec(space, lineOff, pos, func(lineOff, pos int, tok byte) bool {

		switch tok {
		case tokXWhile, tokRWhile:
			depth++
		case tokENDWHILE:
			if depth > 0 {
				depth--
				break
			}
			target = lineOff + pos + 1
			return true
		}

		return false
	})

	if target < 0 {
		raise(errNoWhile)
	}

	return target
}

func executeEndwhile() {

	discardOperands()

	if stackTag() != stkWhile {
		raise(errNoWhile)
	}

	jumpTo(loadPos(g.ws.stacktop + 1))
}

//
// REPEAT body position is in the frame; UNTIL loops back to it
// until the condition holds
//

func executeUntil() {

	bump(1)
	findFrame(stkRepeat, errNoRepeat)

	body := loadPos(g.ws.stacktop + 1)

	if evalCondition() {
		dropEntry()
		return
	}

	jumpTo(body)
}

//
// FOR.  The body always runs at least once; NEXT steps and tests.
// The frame is integer when the loop variable and all three loop
// values are integral, float otherwise
//

func executeFor() {

	bump(1)

	lv := getLvalue()
	if lv.mode == modeWholeArray || lv.kind == kindString {
		raise(errVarNum)
	}

	expectByte('=', errSyntax)
	init := evalNumeric()

	if curTok() != tokTO {
		raise(errSyntax)
	}
	bump(1)

	limit := evalNumeric()

	step := value{kind: kindInt32, i: 1}
	if curTok() == tokSTEP {
		bump(1)
		step = evalNumeric()
	}

	storeToLvalue(lv, init)

	isInt := lv.kind != kindFloat64 &&
		init.kind != kindFloat64 &&
		limit.kind != kindFloat64 &&
		step.kind != kindFloat64

	if isInt {
		pushForFrame(stkForInt, lv, limit.asInt64(), step.asInt64(), r.cur)
	} else {
		pushForFrame(stkForFloat, lv,
			int64(math.Float64bits(limit.asFloat())),
			int64(math.Float64bits(step.asFloat())),
			r.cur)
	}
}

func executeNext() {

	bump(1)

	var want lvalue
	named := false

	switch curTok() {
	case tokXVar, tokIntVar, tokInt64Var, tokByteVar, tokFloatVar,
		tokStringVar, tokStaticVar, tokArrayVar, tokIndVar:
		want = getLvalue()
		named = true
	}

	for {
		fr := peekForFrame()

		if named && !sameLoopVar(fr.lv, want) {
			// NEXT J inside a FOR I loop closes the I loop too
			dropEntry()
			continue
		}

		if fr.tag == stkForInt {
			cur := loadFromLvalue(fr.lv).asInt64() + fr.step
			storeToLvalue(fr.lv, value{kind: kindInt64, i: cur})

			if (fr.step >= 0 && cur > fr.limit) || (fr.step < 0 && cur < fr.limit) {
				dropEntry()
				return
			}
		} else {
			cur := loadFromLvalue(fr.lv).asFloat() + fr.fstep
			storeToLvalue(fr.lv, value{kind: kindFloat64, f: cur})

			if (fr.fstep >= 0 && cur > fr.flimit) || (fr.fstep < 0 && cur < fr.flimit) {
				dropEntry()
				return
			}
		}

		rearmForFrame(fr.lv)
		jumpTo(fr.body)
		return
	}
}

func sameLoopVar(a, b lvalue) bool {

	return a.mode == b.mode && a.off == b.off &&
		a.elem == b.elem && a.desc == b.desc
}

//
// Line number references.  The X form still holds the literal
// number; resolving swaps in the line's offset so later passes skip
// the index lookup.  References typed at the prompt stay in X form,
// since they point into the main program from outside it
//

func resolveLineRef() textPos {

	switch curTok() {

	case tokLinenum:
		off := int(operand32(r.line, r.cur.pos+1))
		bump(5)
		return textPos{space: r.cur.space, lineOff: off}

	case tokXLinenum:
		num := int(operand32(r.line, r.cur.pos+1)) & 0xFFFF

		var off int
		var space int

		if r.cur.space >= spaceLibBase {
			space = r.cur.space
			off = findLineInSpace(space, num)
		} else {
			space = spaceMain
			off = findLine(num)
		}

		if off < 0 {
			raise(errNoLine)
		}

		if r.cur.space != spaceImmediate {
			putOperand32(r.line, r.cur.pos+1, int32(off))
			r.line[r.cur.pos] = tokLinenum
		}

		bump(5)
		return textPos{space: space, lineOff: off}

	default:
		raise(errSyntax)
		panic(nil)
	}
}

func findLineInSpace(space, num int) int {

	buf := spaceBytes(space)
	off := 0

	for operand16(buf, off) != sentinelLineNo {
		if operand16(buf, off) == num {
			return off
		}
		off += operand16(buf, off+2)
	}

	return -1
}

//
// ON: either the error-handler forms or the computed jump
//

func executeOn() {

	bump(1)

	if curTok() == tokERROR {
		bump(1)
		executeOnError()
		return
	}

	n := evalInt()

	verb := curTok()
	if verb != tokGOTO && verb != tokGOSUB {
		raise(errSyntax)
	}
	bump(1)

	var targets []textPos

	for {
		targets = append(targets, resolveLineRef())
		if curTok() != ',' {
			break
		}
		bump(1)
	}

	if n < 1 || n > int64(len(targets)) {
		// fall into the ELSE branch when the line has one
		for curTok() != tokNul {
			if curTok() == tokXElse || curTok() == tokRElse {
				bump(3)
				return
			}
			r.cur.pos = skipExec(r.line, r.cur.pos)
		}
		raise(errRange)
	}

	target := targets[n-1]

	if verb == tokGOSUB {
		pushGosubFrame(r.cur)
	}

	jumpTo(target)
}

//
// READ / DATA / RESTORE.  The data cursor walks the source halves,
// looking for DATA keywords; items are raw text, comma separated,
// with the usual doubled-quote string escape
//

func executeRestore() {

	bump(1)

	switch curTok() {
	case tokXLinenum, tokLinenum:
		target := resolveLineRef()
		r.data = textPos{space: spaceMain, lineOff: target.lineOff}
	default:
		r.data = textPos{space: spaceMain, lineOff: g.ws.start}
	}
}

func executeRead() {

	bump(1)

	for {
		lv := getLvalue()
		item := nextDataItem()

		if lv.kind == kindString {
			pushString(item)
			storeToLvalue(lv, popValue())
		} else {
			storeToLvalue(lv, dataNumber(item))
		}

		if curTok() != ',' {
			return
		}
		bump(1)
	}
}

func nextDataItem() string {

	ws := g.ws

	if r.data.lineOff == 0 {
		r.data.lineOff = ws.start
	}

	for {
		off := r.data.lineOff

		if ws.atSentinel(off) {
			raise(errNoData)
		}

		line := ws.lineBytes(off)
		srcEnd := ws.lineExecOff(off) - 1
		pos := r.data.pos

		if pos == 0 {
			pos = findDataKeyword(line, srcEnd)
		}

		if pos < 0 || pos >= srcEnd {
			r.data.lineOff += len(line)
			r.data.pos = 0
			continue
		}

		item, next := parseDataItem(line, pos, srcEnd)
		r.data.pos = next

		return item
	}
}

func findDataKeyword(line []byte, srcEnd int) int {

	for pos := lineHdrSize; pos < srcEnd; pos++ {

		switch line[pos] {
		case '"':
			pos = skipQuoted(line, pos) - 1
		case tokDATA:
			return pos + 1
		}
	}

	return -1
}

func parseDataItem(line []byte, pos, srcEnd int) (string, int) {

	for pos < srcEnd && line[pos] == ' ' {
		pos++
	}

	var sb strings.Builder

	if pos < srcEnd && line[pos] == '"' {
		pos++
		for pos < srcEnd {
			if line[pos] == '"' {
				if pos+1 < srcEnd && line[pos+1] == '"' {
					sb.WriteByte('"')
					pos += 2
					continue
				}
				pos++
				break
			}
			sb.WriteByte(line[pos])
			pos++
		}
	} else {
		for pos < srcEnd && line[pos] != ',' {
			sb.WriteByte(line[pos])
			pos++
		}
	}

	for pos < srcEnd && line[pos] == ' ' {
		pos++
	}

	if pos < srcEnd && line[pos] == ',' {
		pos++
	} else {
		pos = srcEnd
	}

	return sb.String(), pos
}

//
// A numeric DATA item accepts everything a numeric constant in a
// program would, hex included
//

func dataNumber(item string) value {

	text := strings.TrimSpace(item)

	if text == "" {
		return value{kind: kindInt32}
	}

	if strings.HasPrefix(text, "&") {
		n, err := strconv.ParseUint(text[1:], 16, 64)
		if err != nil {
			raise(errTypeNum)
		}
		return value{kind: kindInt64, i: int64(n)}
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return value{kind: kindInt32, i: n}
		}
		return value{kind: kindInt64, i: n}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		raise(errTypeNum)
	}

	return value{kind: kindFloat64, f: f}
}

//
// DIM: array declarations, or the byte-block form that reserves raw
// heap and leaves the address in a variable
//

func executeDim() {

	bump(1)

	for {
		switch {

		case curTok() == tokXVar && peekTok(5) == '(':
			name := readAnchorName(int(operand32(r.line, r.cur.pos+1)))
			bump(5)
			dimArrayAt(name)

		case curTok() == tokArrayVar:
			e := symFromRef(operand32(r.line, r.cur.pos+1))
			bump(5)
			dimArrayAt(strings.TrimSuffix(e.name, "("))

		default:
			lv := getLvalue()
			if lv.kind == kindString || lv.mode == modeWholeArray {
				raise(errVarNum)
			}

			size := evalInt()
			if size < 0 || size > int64(len(g.ws.mem)) {
				raise(errRange)
			}

			block := g.ws.allocHeap(int(size) + 1)
			storeToLvalue(lv, value{kind: kindInt32, i: int64(block)})
		}

		if curTok() != ',' {
			return
		}
		bump(1)
	}
}

func dimArrayAt(name string) {

	expectByte('(', errSyntax)

	var bounds []int32

	for {
		bounds = append(bounds, evalInt32())
		if curTok() != ',' {
			break
		}
		bump(1)
	}

	expectByte(')', errMissingRParen)

	dimArray(name, bounds)
}

//
// ERROR raises a custom error with the given code and text, exactly
// as if the interpreter had raised it
//

func executeError() {

	bump(1)

	code := evalInt()
	expectByte(',', errMissingComma)
	msg := evalString()

	panic(&runtimeErrorInfo{code: int(code), msg: msg, line: r.curLineNo})
}

func executeTrace() {

	bump(1)

	switch curTok() {

	case tokON:
		bump(1)
		g.traceExec = true

	case tokOFF:
		bump(1)
		g.traceExec = false

	case tokXVar:
		name := readAnchorName(int(operand32(r.line, r.cur.pos+1)))
		if name != "DUMP" {
			raise(errSyntax)
		}
		bump(5)
		godump.Dump(g.symtab)

	default:
		raise(errSyntax)
	}
}

//
// The star command: everything after the * in the source half goes
// to the host shell verbatim
//

func starCommand() {

	bump(1)

	srcEnd := r.execBase - 1

	for pos := lineHdrSize; pos < srcEnd; pos++ {
		if r.line[pos] == tokStar {
			oscliCommand(string(r.line[pos+1 : srcEnd]))
			break
		}
	}

	skipToEol()
}

func executeLibrary(perm bool) {

	bump(1)

	if curTok() == tokLOCAL {
		// private declarations are handled at library load
		skipToEol()
		return
	}

	loadLibrary(evalString(), perm)
}

//
// RUN, CHAIN, CLEAR.  A run starts from a clean heap and stack with
// every reference unresolved, since the old symbol offsets die with
// the heap
//

func executeRun() {

	bump(1)

	from := 0

	switch curTok() {
	case ':', tokNul:
	default:
		n := evalInt()
		from = findLine(int(n))
		if from < 0 {
			raise(errNoLine)
		}
	}

	startRun(from)
}

func startRun(from int) {

	clearRuntime()

	if from == 0 {
		from = g.ws.start
	}

	g.running = true

	initClock()
	defer printStatistics()
	defer resetPrint()

	setLine(spaceMain, from)

	runLoop(false)
}

//
// The CLEAR statement wipes the runtime but execution carries on
// with the next statement, so the cursor survives the reset
//

func executeClear() {

	cur := r.cur

	clearRuntime()

	setLine(cur.space, cur.lineOff)
	r.cur = cur
}

func clearRuntime() {

	closeAllFiles()
	clearTempLibraries()

	resetHeap(g.ws)
	resetStackTop()
	initSymbols()
	clearAllRefs()

	r = run{}
	r.curLineNo = -1
}

func executeQuit() {

	bump(1)

	switch curTok() {
	case ':', tokNul:
	default:
		g.exitCode = int(evalInt())
	}

	g.exiting = true

	panic(&crawloutException{})
}
