package main

import (
	"github.com/danswartzendruber/avl"
)

//
// The program editor.  Stored lines sit end to end in the workspace
// between start and top, in strictly ascending line number order,
// with the sentinel line at top.  Every edit shuffles the tail with
// a single copy, then rebuilds the line number index and throws away
// all variables and resolved references, since both hold raw
// offsets into the moved bytes
//

//
// Assemble a stored line from its two halves
//

func buildLine(lineNo int, src, exe []byte) []byte {

	total := lineHdrSize + len(src) + 1 + len(exe) + 1
	if total > maxLineLen {
		raise(errLineLen)
	}

	line := make([]byte, total)

	line[0] = byte(lineNo)
	line[1] = byte(lineNo >> 8)
	line[2] = byte(total)
	line[3] = byte(total >> 8)

	exeOff := lineHdrSize + len(src) + 1
	line[4] = byte(exeOff)
	line[5] = byte(exeOff >> 8)

	copy(line[lineHdrSize:], src)
	copy(line[exeOff:], exe)

	return line
}

func tokenizeFull(lineNo int, text string) []byte {

	src := tokenizeSource(text)

	return buildLine(lineNo, src, makeExecutable(src))
}

//
// The AVL index maps line numbers to workspace offsets.  It is
// rebuilt wholesale after every edit; the edit already paid a pass
// over the tail of the program, so this does not change the
// complexity of anything
//

func cmpLineKey(key any, node any) int {

	return cmpLineNos(key.(int), node.(*lineIndexNode).lineNo)
}

func cmpLineNode(node1, node2 any) int {

	return cmpLineNos(node1.(*lineIndexNode).lineNo, node2.(*lineIndexNode).lineNo)
}

func cmpLineNos(a, b int) int {

	if a < b {
		return -1
	} else if a > b {
		return 1
	} else {
		return 0
	}
}

func rebuildLineIndex() {

	// an empty tree is a nil root; AvlTreeInsert grows it in place
	g.lineIndex = nil

	ws := g.ws

	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		node := &lineIndexNode{lineNo: ws.lineNumber(off), off: off}
		if avl.AvlTreeInsert(&g.lineIndex, &node.avl, node, cmpLineNode) != nil {
			fatalError("duplicate line %d in index", node.lineNo)
		}
	}
}

//
// findLine resolves a line number to its workspace offset, -1 when
// the line does not exist
//

func findLine(lineNo int) int {

	p := avl.AvlTreeLookup(g.lineIndex, lineNo, cmpLineKey)
	if p == nil {
		return -1
	}

	return p.(*lineIndexNode).off
}

//
// findLineGE is the first stored line with number >= lineNo, used
// by LIST and DELETE ranges and by RESTORE.  The lines are in
// order, so a forward scan serves
//

func findLineGE(lineNo int) int {

	ws := g.ws

	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		if ws.lineNumber(off) >= lineNo {
			return off
		}
	}

	return ws.top
}

//
// Everything holding memory offsets dies on an edit: variables, the
// heap, resolved references and the index
//

func editInvalidate() {

	resetHeap(g.ws)
	resetStackTop()
	initSymbols()
	clearAllRefs()
	rebuildLineIndex()

	g.lastAdded = g.ws.start
	g.modified = true
}

func resetStackTop() {

	g.ws.stacktop = g.ws.himem
}

//
// editLine is what a numbered input line at the prompt becomes:
// insert, replace, or (with an empty body) delete
//

func editLine(lineNo int, text string) {

	if lineNo > maxLineNo {
		raise(errLineNoRange)
	}

	trimmed := false
	for _, ch := range text {
		if ch != ' ' && ch != '\t' {
			trimmed = true
			break
		}
	}

	if !trimmed {
		deleteLine(lineNo)
		return
	}

	insertLine(tokenizeFull(lineNo, text))
}

func insertLine(line []byte) {

	ws := g.ws
	lineNo := int(line[0]) | int(line[1])<<8

	at, exact := insertionPoint(lineNo)

	oldLen := 0
	if exact {
		oldLen = ws.lineLength(at)
	}

	delta := len(line) - oldLen

	if ws.top+delta+sentinelSize > stacklimit(ws) {
		raise(errNoRoom)
	}

	//
	// One copy moves everything behind the edit point, sentinel
	// included
	//

	tail := ws.top + sentinelSize
	copy(ws.mem[at+len(line):tail+delta], ws.mem[at+oldLen:tail])
	copy(ws.mem[at:], line)

	ws.top += delta

	editInvalidate()
	g.lastAdded = at + len(line)
}

func deleteLine(lineNo int) {

	at := findLine(lineNo)
	if at < 0 {
		return
	}

	removeSpan(at, at+g.ws.lineLength(at))
}

//
// DELETE lo,hi - both bounds inclusive
//

func deleteRange(lo, hi int) {

	ws := g.ws

	from := findLineGE(lo)

	to := from
	for to < ws.top && ws.lineNumber(to) <= hi {
		to += ws.lineLength(to)
	}

	if to > from {
		removeSpan(from, to)
	}
}

func removeSpan(from, to int) {

	ws := g.ws

	tail := ws.top + sentinelSize
	copy(ws.mem[from:], ws.mem[to:tail])
	ws.top -= to - from

	editInvalidate()
}

//
// insertionPoint finds where a line number lives or belongs.  The
// ascending-insert hint makes loading a saved program linear: each
// appended line starts its scan where the previous one ended
//

func insertionPoint(lineNo int) (int, bool) {

	ws := g.ws

	if at := findLine(lineNo); at >= 0 {
		return at, true
	}

	off := ws.start

	if g.lastAdded > ws.start && g.lastAdded < ws.top &&
		ws.lineNumber(g.lastAdded) <= lineNo {
		off = g.lastAdded
	}

	for off < ws.top {
		if ws.lineNumber(off) > lineNo {
			return off, false
		}
		off += ws.lineLength(off)
	}

	return ws.top, false
}

//
// NEW parks the current program where OLD can find it, then empties
// the workspace.  OLD restores the parked image, provided nothing
// has been typed in since
//

func newProgram() {

	ws := g.ws

	if ws.top > ws.start {
		g.oldProgram = append([]byte(nil), ws.mem[ws.start:ws.top+sentinelSize]...)
	}

	ws.top = ws.start
	writeSentinel(ws, ws.start)

	clearTempLibraries()
	editInvalidate()

	g.programFilename = ""
	g.modified = false
}

func oldProgram() {

	if g.oldProgram == nil {
		raise(errNotFound, "OLD program")
	}

	ws := g.ws

	if ws.start+len(g.oldProgram) > stacklimit(ws) {
		raise(errNoRoom)
	}

	copy(ws.mem[ws.start:], g.oldProgram)
	ws.top = ws.start + len(g.oldProgram) - sentinelSize
	g.oldProgram = nil

	editInvalidate()
}

//
// RENUMBER.  Three passes: build the old-to-new mapping, rewrite
// the line number references in the source halves, then rewrite
// the headers and rebuild the executable halves.  When the
// requested step overruns the line number range we quietly retry
// with a step of 1 before giving up
//

func renumberProgram(start, step int) {

	ws := g.ws

	count := 0
	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		count++
	}

	if count == 0 {
		return
	}

	if start+(count-1)*step > maxLineNo {
		step = 1
		if start+count-1 > maxLineNo {
			raise(errRenumber)
		}
	}

	mapping := make(map[int]int, count)

	next := start
	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		mapping[ws.lineNumber(off)] = next
		next += step
	}

	//
	// References to lines that do not exist keep their old number;
	// the dangling reference was already broken and renumbering
	// should not quietly point it somewhere real
	//

	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		line := ws.lineBytes(off)
		exe := int(line[4]) | int(line[5])<<8

		for pos := lineHdrSize; pos < exe-1; {
			switch line[pos] {
			case tokXVar:
				pos++
			case tokXLinenum:
				old := int(line[pos+1]) | int(line[pos+2])<<8
				if fresh, ok := mapping[old]; ok {
					line[pos+1] = byte(fresh)
					line[pos+2] = byte(fresh >> 8)
				}
				pos += 3
			case '"':
				pos = skipQuoted(line, pos)
			case tokREM, tokDATA, tokStar:
				pos = exe - 1
			default:
				pos++
			}
		}
	}

	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		line := ws.lineBytes(off)
		fresh := mapping[ws.lineNumber(off)]
		line[0] = byte(fresh)
		line[1] = byte(fresh >> 8)
	}

	editInvalidate()
}

func skipQuoted(line []byte, pos int) int {

	pos++
	for pos < len(line) && line[pos] != '"' {
		pos++
	}

	return pos + 1
}

//
// Structural validity check.  Walks every stored line checking the
// header fields, the ordering invariant, the source half against
// the legal token set and the executable half against the operand
// width table.  A program that passes can be executed without any
// bounds checking surprises; LOAD runs this over everything read
// from a binary file
//

func validateProgram() error {

	ws := g.ws
	prev := -1

	for off := ws.start; off < ws.top; {

		if off+minLineLen > ws.top {
			return validityError(off, "truncated line")
		}

		lineNo := ws.lineNumber(off)
		length := ws.lineLength(off)
		exe := ws.lineExecOff(off)

		if lineNo > maxLineNo {
			return validityError(off, "line number out of range")
		}
		if lineNo <= prev {
			return validityError(off, "line numbers out of order")
		}
		if length < minLineLen || length > maxLineLen || off+length > ws.top {
			return validityError(off, "bad line length")
		}
		if exe < lineHdrSize+1 || exe >= length {
			return validityError(off, "bad executable offset")
		}

		line := ws.mem[off : off+length]

		if line[exe-1] != tokNul || line[length-1] != tokNul {
			return validityError(off, "missing terminator")
		}

		if err := validateSource(line, exe); err != "" {
			return validityError(off, err)
		}
		if err := validateExec(line, exe); err != "" {
			return validityError(off, err)
		}

		prev = lineNo
		off += length
	}

	if !ws.atSentinel(ws.top) {
		return validityError(ws.top, "missing sentinel")
	}

	return nil
}

func validityError(off int, msg string) error {

	return &runtimeErrorInfo{
		code: errBroken,
		msg:  "bad program: " + msg,
		line: g.ws.lineNumber(off),
	}
}

func validateSource(line []byte, exe int) string {

	for pos := lineHdrSize; pos < exe-1; {
		ch := line[pos]

		switch {
		case ch == tokXLinenum:
			pos += 3
		case ch == tokFuncPfx || ch == tokCmdPfx || ch == tokPrintPfx:
			pos += 2
		case ch == tokREM || ch == tokDATA || ch == tokStar:
			return "" // free text to the end of the half
		case !legalSourceToken[ch]:
			return "illegal byte in source half"
		default:
			pos++
		}
	}

	return ""
}

func validateExec(line []byte, exe int) string {

	for pos := exe; line[pos] != tokNul; {

		ch := line[pos]

		if ch == tokFuncPfx || ch == tokCmdPfx || ch == tokPrintPfx {
			pos += 2
			continue
		}

		pos += 1 + execOperandWidth[ch]

		if pos >= len(line) {
			return "executable half overruns line"
		}
	}

	return ""
}
