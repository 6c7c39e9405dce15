package main

import (
	"math"
	"strconv"
	"strings"
)

//
// Tokenising, pass 2: the source half to the executable half.
//
// The executable half is what the run loop actually walks: spacing
// is gone, number literals are binary constants, string and
// identifier tokens carry line-relative offsets back into the
// source half, and the block keywords gain their patchable jump
// slots.  Pass 2 is deterministic, so re-running it over an
// unchanged source half always yields the same bytes - clearAllRefs
// depends on that to revert resolved references in place
//

type execBuilder struct {
	src []byte
	pos int
	out []byte

	afterDef bool // a PROC/FN here is a definition, not a call
}

//
// makeExecutable never fails: a line with a syntax problem gets a
// tokBadline half carrying the error code, raised if the line is
// ever executed
//

func makeExecutable(src []byte) (exe []byte) {

	defer func() {
		if p := recover(); p != nil {
			re, ok := p.(*runtimeErrorInfo)
			if !ok {
				panic(p)
			}
			exe = []byte{tokBadline, byte(re.code)}
		}
	}()

	b := &execBuilder{src: src}

	for b.pos < len(b.src) {

		ch := b.src[b.pos]

		switch {
		case ch == ' ' || ch == '\t':
			b.pos++

		case ch == tokXVar:
			b.variable()

		case ch == tokXLinenum:
			b.lineReference()

		case ch == '"':
			b.stringConstant()

		case ch >= '0' && ch <= '9' || ch == '.':
			b.number()

		case ch == '&':
			b.hexNumber()

		case ch == '%':
			b.binNumber()

		case ch == tokStar:
			// the command text lives in the source half only
			b.emit(tokStar)
			b.pos = len(b.src)

		case ch >= 0x80:
			b.token()

		default:
			b.emit(ch)
			b.pos++
			if ch != ',' {
				b.afterDef = false
			}
		}
	}

	return b.out
}

func (b *execBuilder) emit(bytes ...byte) {

	b.out = append(b.out, bytes...)
}

func (b *execBuilder) emit16(val int) {

	b.emit(byte(val), byte(val>>8))
}

func (b *execBuilder) emit32(val int32) {

	b.emit(byte(val), byte(val>>8), byte(val>>16), byte(val>>24))
}

func (b *execBuilder) emit64(val int64) {

	b.emit32(int32(val))
	b.emit32(int32(val >> 32))
}

//
// The anchor offset stored with an unresolved reference is relative
// to the start of the stored line, header included
//

func lineRelative(srcIdx int) int32 {

	return int32(lineHdrSize + srcIdx)
}

func (b *execBuilder) variable() {

	anchor := b.pos
	b.pos++

	for b.pos < len(b.src) && identChar(b.src[b.pos]) {
		b.pos++
	}

	for b.pos < len(b.src) {
		ch := b.src[b.pos]
		if ch == '%' || ch == '&' || ch == '#' || ch == '$' {
			b.pos++
			continue
		}
		break
	}

	b.emit(tokXVar)
	b.emit32(lineRelative(anchor))
	b.afterDef = false
}

//
// Line references widen from 3 source bytes to the 5-byte
// executable form; the number sits in the low half of the operand
// so resolution can overwrite the whole slot with a workspace
// offset and reversion can narrow it back
//

func (b *execBuilder) lineReference() {

	num := int(b.src[b.pos+1]) | int(b.src[b.pos+2])<<8
	b.pos += 3

	b.emit(tokXLinenum)
	b.emit32(int32(num))
}

//
// String constants: a 2-byte line-relative offset of the first body
// character, then the raw body length.  Bodies containing doubled
// quotes get the Q form, unescaped each time they are pushed
//

func (b *execBuilder) stringConstant() {

	b.pos++
	start := b.pos
	quoted := false

	for {
		if b.pos >= len(b.src) {
			raise(errQuoteMissing)
		}

		if b.src[b.pos] == '"' {
			if b.pos+1 < len(b.src) && b.src[b.pos+1] == '"' {
				quoted = true
				b.pos += 2
				continue
			}
			break
		}
		b.pos++
	}

	tok := byte(tokStringCon)
	if quoted {
		tok = tokQStringCon
	}

	b.emit(tok)
	b.emit16(int(lineRelative(start)))
	b.emit16(b.pos - start)
	b.pos++

	b.afterDef = false
}

func (b *execBuilder) number() {

	start := b.pos
	isFloat := false

	for b.pos < len(b.src) {
		ch := b.src[b.pos]

		if ch >= '0' && ch <= '9' {
			b.pos++
			continue
		}

		if ch == '.' {
			isFloat = true
			b.pos++
			continue
		}

		if ch == 'E' {
			isFloat = true
			b.pos++
			if b.pos < len(b.src) && (b.src[b.pos] == '+' || b.src[b.pos] == '-') {
				b.pos++
			}
			continue
		}

		break
	}

	text := string(b.src[start:b.pos])

	if text == "." {
		// a lone dot is the matrix multiply operator
		b.emit('.')
		return
	}

	if isFloat {
		val, err := strconv.ParseFloat(text, 64)
		if err != nil {
			raise(errSyntax)
		}
		b.emitFloat(val)
		return
	}

	val, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// out of int64 range; it still has a float value
		fval, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			raise(errSyntax)
		}
		b.emitFloat(fval)
		return
	}

	b.emitInt(val)
}

func (b *execBuilder) hexNumber() {

	b.pos++
	start := b.pos

	for b.pos < len(b.src) && isHexDigit(b.src[b.pos]) {
		b.pos++
	}

	if b.pos == start {
		raise(errBadHex)
	}

	val, err := strconv.ParseUint(string(b.src[start:b.pos]), 16, 64)
	if err != nil {
		raise(errBadHex)
	}

	b.emitInt(int64(val))
}

func (b *execBuilder) binNumber() {

	b.pos++
	start := b.pos

	for b.pos < len(b.src) && (b.src[b.pos] == '0' || b.src[b.pos] == '1') {
		b.pos++
	}

	if b.pos == start {
		raise(errBadBin)
	}

	val, err := strconv.ParseUint(string(b.src[start:b.pos]), 2, 64)
	if err != nil {
		raise(errBadBin)
	}

	b.emitInt(int64(val))
}

func (b *execBuilder) emitInt(val int64) {

	switch {
	case val == 0:
		b.emit(tokIntZero)

	case val == 1:
		b.emit(tokIntOne)

	case val >= 0 && val <= 255:
		b.emit(tokSmallInt, byte(val))

	case val >= -2147483648 && val <= 2147483647:
		b.emit(tokIntCon)
		b.emit32(int32(val))

	default:
		b.emit(tokInt64Con)
		b.emit64(val)
	}
}

func (b *execBuilder) emitFloat(val float64) {

	switch val {
	case 0:
		b.emit(tokFloatZero)

	case 1:
		b.emit(tokFloatOne)

	default:
		b.emit(tokFloatCon)
		b.emit64(int64(math.Float64bits(val)))
	}
}

//
// Keyword tokens mostly copy straight across.  The exceptions: the
// block keywords swap to their patchable X forms, a PROC or FN
// after DEF keeps its name in clear text for the definition
// scanner, and any other PROC or FN becomes an unresolved call
// marker pointing back at the keyword
//

func (b *execBuilder) token() {

	tok := b.src[b.pos]

	switch tok {
	case tokIF:
		b.pos++
		b.emit(tokXIf)
		b.emit16(0)

	case tokELSE:
		b.pos++
		b.emit(tokXElse)
		b.emit16(0)

	case tokWHEN:
		b.pos++
		b.emit(tokXWhen)
		b.emit16(0)

	case tokOTHERWISE:
		b.pos++
		b.emit(tokXOtherwise)
		b.emit16(0)

	case tokWHILE:
		b.pos++
		b.emit(tokXWhile)
		b.emit16(0)

	case tokCASE:
		b.pos++
		b.emit(tokXCase)
		b.emit32(0)

	case tokDEF:
		b.pos++
		b.emit(tokDEF)
		b.afterDef = true

	case tokPROC, tokFN:
		b.fnproc(tok)

	case tokREM, tokDATA:
		// content stays in the source half
		b.emit(tok)
		b.pos = len(b.src)

	case tokFuncPfx, tokCmdPfx, tokPrintPfx:
		b.emit(tok, b.src[b.pos+1])
		b.pos += 2

	default:
		b.emit(tok)
		b.pos++
	}

	if tok != tokDEF {
		b.afterDef = false
	}
}

func (b *execBuilder) fnproc(tok byte) {

	keywordAt := b.pos
	b.pos++

	start := b.pos
	for b.pos < len(b.src) && identChar(b.src[b.pos]) {
		b.pos++
	}

	if b.pos == start {
		raise(errSyntax)
	}

	if b.afterDef {
		b.emit(tok)
		b.emit(b.src[start:b.pos]...)
		b.afterDef = false
		return
	}

	b.emit(tokXFnProc)
	b.emit32(lineRelative(keywordAt))
}

//
// clearAllRefs undoes every resolved reference by rebuilding the
// executable halves from the source halves.  Pass 2 is
// deterministic, so the rebuilt half always has the old length and
// the line layout is untouched.  Run after any edit, NEW, OLD or
// CLEAR, together with initSymbols
//

func clearAllRefs() {

	ws := g.ws

	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		rebuildExecHalf(ws.lineBytes(off))
	}

	for _, lib := range g.libraries {
		clearLibraryRefs(lib)
	}
	for _, lib := range g.installed {
		clearLibraryRefs(lib)
	}

	if g.immLine != nil {
		rebuildExecHalf(g.immLine)
	}
}

func clearLibraryRefs(lib *library) {

	for off := 0; lib.image[off] != 0x00 || lib.image[off+1] != 0xFF; {
		length := int(lib.image[off+2]) | int(lib.image[off+3])<<8
		rebuildExecHalf(lib.image[off : off+length])
		off += length
	}
}

func rebuildExecHalf(line []byte) {

	exe := int(line[4]) | int(line[5])<<8
	src := line[lineHdrSize : exe-1] // strip the NUL after the source half

	fresh := makeExecutable(src)

	basicAssert(len(fresh) == len(line)-exe-1,
		"rebuilt executable half changed length")

	copy(line[exe:], fresh)
}

//
// Shared operand readers for the executable half
//

func operand16(line []byte, pos int) int {

	return int(line[pos]) | int(line[pos+1])<<8
}

func operand32(line []byte, pos int) int32 {

	return int32(line[pos]) | int32(line[pos+1])<<8 |
		int32(line[pos+2])<<16 | int32(line[pos+3])<<24
}

func operand64(line []byte, pos int) int64 {

	return int64(operand32(line, pos))&0xFFFFFFFF |
		int64(operand32(line, pos+4))<<32
}

func putOperand16(line []byte, pos, val int) {

	line[pos] = byte(val)
	line[pos+1] = byte(val >> 8)
}

func putOperand32(line []byte, pos int, val int32) {

	line[pos] = byte(val)
	line[pos+1] = byte(val >> 8)
	line[pos+2] = byte(val >> 16)
	line[pos+3] = byte(val >> 24)
}

//
// The body of a string constant, offsets as pass 2 laid them down.
// The Q form collapses doubled quotes
//

func stringConBody(line []byte, pos int, quoted bool) string {

	off := operand16(line, pos)
	length := operand16(line, pos+2)

	body := string(line[off : off+length])

	if quoted {
		body = strings.ReplaceAll(body, "\"\"", "\"")
	}

	return body
}
