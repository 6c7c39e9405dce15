package main

import "math"

//
// The value stack lives in the top of the workspace and grows
// downward from himem.  Every entry is self-describing: the tag byte
// sits at stacktop and its payload immediately above it, so the
// newest entry is always identifiable without outside bookkeeping.
// Expression operands, control-flow frames and saved LOCAL values
// all share the one stack
//

const (
	stkEmpty = iota // what stackTag reports at himem
	stkInt32
	stkUint8
	stkInt64
	stkFloat
	stkStrTemp // string whose body we own and free on consumption
	stkStrRef  // string borrowed from a variable body
	stkArray
	stkGosub
	stkForInt
	stkForFloat
	stkRepeat
	stkWhile
	stkProc
	stkFn
	stkError
	stkLocal
	stkLocalArr
	stkRetParm
)

//
// Payload widths, for walking the stack without decoding it
//

var stkPayload = [...]int{
	stkInt32:    4,
	stkUint8:    1,
	stkInt64:    8,
	stkFloat:    8,
	stkStrTemp:  8,
	stkStrRef:   8,
	stkArray:    4,
	stkGosub:    12,
	stkForInt:   48,
	stkForFloat: 48,
	stkRepeat:   12,
	stkWhile:    12,
	stkProc:     12,
	stkFn:       12,
	stkError:    16,
	stkLocal:    28,
	stkLocalArr: 8,
	stkRetParm:  40,
}

//
// A transient decoded operand.  The byte stack is the representation;
// this struct only exists between a pop and the operator that
// consumes it
//

type value struct {
	kind  int
	i     int64
	f     float64
	sLen  int
	sBody int
	sTemp bool
	desc  *arrayDesc
}

//
// Array descriptors are Go-side objects, so the stack carries them
// as small handles into a table
//

func descHandle(d *arrayDesc) int32 {

	if n := len(g.descFree); n > 0 {
		h := g.descFree[n-1]
		g.descFree = g.descFree[:n-1]
		g.descTable[h] = d
		return int32(h)
	}

	g.descTable = append(g.descTable, d)

	return int32(len(g.descTable) - 1)
}

func descFromHandle(h int32) *arrayDesc {

	d := g.descTable[h]
	basicAssert(d != nil, "stale array handle")

	return d
}

func releaseHandle(h int32) {

	g.descTable[h] = nil
	g.descFree = append(g.descFree, int(h))
}

//
// Raw push/pop plumbing
//

func reserveStack(n int) int {

	ws := g.ws

	if ws.stacktop-n-1 < ws.vartop+heapGuard {
		raise(errNoRoom)
	}

	ws.stacktop -= n + 1

	return ws.stacktop
}

func stackTag() int {

	if g.ws.stacktop >= g.ws.himem {
		return stkEmpty
	}

	return int(g.ws.mem[g.ws.stacktop])
}

func dropEntry() {

	ws := g.ws
	ws.stacktop += 1 + stkPayload[ws.mem[ws.stacktop]]
}

//
// Scalar pushes
//

func pushInt32(v int32) {

	off := reserveStack(4)
	g.ws.mem[off] = stkInt32
	g.ws.store32(off+1, v)
}

func pushUint8(v uint8) {

	off := reserveStack(1)
	g.ws.mem[off] = stkUint8
	g.ws.mem[off+1] = v
}

func pushInt64(v int64) {

	off := reserveStack(8)
	g.ws.mem[off] = stkInt64
	g.ws.store64(off+1, v)
}

func pushFloat(v float64) {

	off := reserveStack(8)
	g.ws.mem[off] = stkFloat
	g.ws.storeFloat(off+1, v)
}

//
// pushString copies a Go string into a fresh temporary body.
// pushStrRef borrows an existing body (a variable's); the consumer
// must not free it
//

func pushString(val string) {

	body := 0

	if len(val) > 0 {
		body = g.ws.allocString(len(val))
		copy(g.ws.mem[body:], val)
	}

	pushStrEntry(stkStrTemp, len(val), body)
}

func pushStrRef(length, body int) {

	pushStrEntry(stkStrRef, length, body)
}

func pushStrTemp(length, body int) {

	pushStrEntry(stkStrTemp, length, body)
}

func pushStrEntry(tag, length, body int) {

	off := reserveStack(8)
	g.ws.mem[off] = byte(tag)
	g.ws.store32(off+1, int32(length))
	g.ws.store32(off+5, int32(body))
}

func pushArray(d *arrayDesc) {

	off := reserveStack(4)
	g.ws.mem[off] = stkArray
	g.ws.store32(off+1, descHandle(d))
}

//
// popValue decodes the newest operand entry.  Frames underneath an
// operand are a parser bug, hence the hard assert
//

func popValue() value {

	ws := g.ws
	if ws.stacktop >= ws.himem {
		fatalError("operand expected on empty value stack")
	}

	off := ws.stacktop
	tag := int(ws.mem[off])

	var v value

	switch tag {
	case stkInt32:
		v.kind = kindInt32
		v.i = int64(ws.load32(off + 1))
	case stkUint8:
		v.kind = kindUint8
		v.i = int64(ws.mem[off+1])
	case stkInt64:
		v.kind = kindInt64
		v.i = ws.load64(off + 1)
	case stkFloat:
		v.kind = kindFloat64
		v.f = ws.loadFloat(off + 1)
	case stkStrTemp, stkStrRef:
		v.kind = kindString
		v.sLen = int(ws.load32(off + 1))
		v.sBody = int(ws.load32(off + 5))
		v.sTemp = tag == stkStrTemp
	case stkArray:
		v.kind = kindArray
		h := ws.load32(off + 1)
		v.desc = descFromHandle(h)
		releaseHandle(h)
	default:
		fatalError("operand expected on value stack, found tag %d", tag)
	}

	dropEntry()

	return v
}

//
// pushValue is the inverse, used when an operator result or a
// converted operand goes back on the stack
//

func pushValue(v value) {

	switch v.kind {
	case kindInt32:
		pushInt32(int32(v.i))
	case kindUint8:
		pushUint8(uint8(v.i))
	case kindInt64:
		pushInt64(v.i)
	case kindFloat64:
		pushFloat(v.f)
	case kindString:
		if v.sTemp {
			pushStrTemp(v.sLen, v.sBody)
		} else {
			pushStrRef(v.sLen, v.sBody)
		}
	case kindArray:
		pushArray(v.desc)
	default:
		fatalError("cannot push kind %d", v.kind)
	}
}

//
// String operand helpers.  releaseValue gives a temporary body back
// to the slab once the operator has taken what it needs
//

func strValue(v value) string {

	if v.sLen == 0 {
		return ""
	}

	return string(g.ws.mem[v.sBody : v.sBody+v.sLen])
}

func releaseValue(v value) {

	if v.kind == kindString && v.sTemp {
		g.ws.freeString(v.sBody, v.sLen)
	}
}

//
// Numeric coercion views of a decoded operand
//

func (v value) isNumeric() bool {

	return v.kind != kindString && v.kind != kindArray
}

func (v value) asFloat() float64 {

	if v.kind == kindFloat64 {
		return v.f
	}

	return float64(v.i)
}

func (v value) asInt64() int64 {

	if v.kind == kindFloat64 {
		return floatToInt64(v.f)
	}

	return v.i
}

func (v value) asInt32() int32 {

	return int32(v.asInt64())
}

//
// floatToInt64 is the rounding used everywhere a float meets an
// integer context
//

func floatToInt64(f float64) int64 {

	if f >= maxInt64AsFloat || f < -maxInt64AsFloat {
		raise(errRange)
	}

	return int64(math.Round(f))
}

const maxInt64AsFloat = 9223372036854775807.0

//
// textPos serialisation for frames
//

func storePos(off int, pos textPos) {

	ws := g.ws
	ws.store32(off, int32(pos.space))
	ws.store32(off+4, int32(pos.lineOff))
	ws.store32(off+8, int32(pos.pos))
}

func loadPos(off int) textPos {

	ws := g.ws

	return textPos{
		space:   int(ws.load32(off)),
		lineOff: int(ws.load32(off + 4)),
		pos:     int(ws.load32(off + 8)),
	}
}

//
// lvalue serialisation: mode, kind, offset, descriptor handle and
// element index, 20 bytes.  The handle slot is -1 when no array is
// involved
//

func storeLvalue(off int, lv lvalue) {

	ws := g.ws
	ws.store32(off, int32(lv.mode))
	ws.store32(off+4, int32(lv.kind))
	ws.store32(off+8, int32(lv.off))

	h := int32(-1)
	if lv.desc != nil {
		h = descHandle(lv.desc)
	}
	ws.store32(off+12, h)
	ws.store32(off+16, lv.elem)
}

func loadLvalue(off int) lvalue {

	ws := g.ws

	lv := lvalue{
		mode: int(ws.load32(off)),
		kind: int(ws.load32(off + 4)),
		off:  int(ws.load32(off + 8)),
		elem: ws.load32(off + 16),
	}

	if h := ws.load32(off + 12); h >= 0 {
		lv.desc = descFromHandle(h)
		releaseHandle(h)
	}

	return lv
}

//
// Control-flow frames
//

func pushGosubFrame(ret textPos) {

	off := reserveStack(stkPayload[stkGosub])
	g.ws.mem[off] = stkGosub
	storePos(off+1, ret)
}

func popGosubFrame() textPos {

	off := findFrame(stkGosub, errNoGosub)
	ret := loadPos(off + 1)
	dropEntry()

	return ret
}

//
// FOR frames carry the loop variable, the limit, the step and the
// position of the statement after the FOR.  Integer and float loops
// get separate tags so NEXT never has to guess the widths
//

func pushForFrame(tag int, lv lvalue, limit, step int64, body textPos) {

	off := reserveStack(stkPayload[tag])
	g.ws.mem[off] = byte(tag)
	storeLvalue(off+1, lv)
	g.ws.store64(off+21, limit)
	g.ws.store64(off+29, step)
	storePos(off+37, body)
}

type forFrame struct {
	tag    int
	lv     lvalue
	limit  int64
	step   int64
	flimit float64
	fstep  float64
	body   textPos
}

func peekForFrame() forFrame {

	ws := g.ws
	if ws.stacktop >= ws.himem {
		raise(errNoFor)
	}

	off := ws.stacktop
	tag := int(ws.mem[off])

	if tag != stkForInt && tag != stkForFloat {
		raise(errNoFor)
	}

	fr := forFrame{
		tag:  tag,
		lv:   loadLvalue(off + 1),
		body: loadPos(off + 37),
	}

	if tag == stkForInt {
		fr.limit = ws.load64(off + 21)
		fr.step = ws.load64(off + 29)
	} else {
		fr.flimit = ws.loadFloat(off + 21)
		fr.fstep = ws.loadFloat(off + 29)
	}

	return fr
}

//
// peekForFrame decodes the lvalue, which consumes its descriptor
// handle, so a staying frame must have the handle reinstated
//

func rearmForFrame(lv lvalue) {

	if lv.desc != nil {
		g.ws.store32(g.ws.stacktop+13, descHandle(lv.desc))
	}
}

func pushRepeatFrame(body textPos) {

	off := reserveStack(stkPayload[stkRepeat])
	g.ws.mem[off] = stkRepeat
	storePos(off+1, body)
}

func pushWhileFrame(top textPos) {

	off := reserveStack(stkPayload[stkWhile])
	g.ws.mem[off] = stkWhile
	storePos(off+1, top)
}

func pushCallFrame(tag int, ret textPos) {

	off := reserveStack(stkPayload[tag])
	g.ws.mem[off] = byte(tag)
	storePos(off+1, ret)
}

//
// Error handler frames: the previous handler position and whether it
// was a LOCAL one, so RESTORE ERROR and unwinding can reinstate it
//

func pushErrorFrame(prev textPos, prevLocal bool) {

	off := reserveStack(stkPayload[stkError])
	g.ws.mem[off] = stkError
	storePos(off+1, prev)

	flag := int32(0)
	if prevLocal {
		flag = 1
	}
	g.ws.store32(off+13, flag)
}

func popErrorFrame() (textPos, bool) {

	basicAssert(stackTag() == stkError, "error frame expected")

	off := g.ws.stacktop
	prev := loadPos(off + 1)
	local := g.ws.load32(off+13) != 0
	dropEntry()

	return prev, local
}

//
// LOCAL save entries.  The 8-byte value slot holds the integer bits,
// the float bits, or a string descriptor, as the kind dictates
//

func pushLocalFrame(lv lvalue, bits int64) {

	off := reserveStack(stkPayload[stkLocal])
	g.ws.mem[off] = stkLocal
	storeLvalue(off+1, lv)
	g.ws.store64(off+21, bits)
}

func pushLocalArrFrame(entryRef int32, old *arrayDesc) {

	off := reserveStack(stkPayload[stkLocalArr])
	g.ws.mem[off] = stkLocalArr
	g.ws.store32(off+1, entryRef)

	h := int32(-1)
	if old != nil {
		h = descHandle(old)
	}
	g.ws.store32(off+5, h)
}

//
// RETURN parameter entries: where the caller's argument lives and
// where the local shadow lives, copied back at ENDPROC time
//

func pushRetParmFrame(caller, local lvalue) {

	off := reserveStack(stkPayload[stkRetParm])
	g.ws.mem[off] = stkRetParm
	storeLvalue(off+1, caller)
	storeLvalue(off+21, local)
}

//
// findFrame walks down the stack discarding operand entries (and
// freeing any temporary string bodies) until it reaches an entry
// with the wanted tag.  Loop frames may not be jumped over; finding
// one before the target is the caller's error
//

func findFrame(want, errCode int) int {

	ws := g.ws

	for {
		if ws.stacktop >= ws.himem {
			raise(errCode)
		}

		tag := int(ws.mem[ws.stacktop])

		if tag == want {
			return ws.stacktop
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
		default:
			raise(errCode)
		}
	}
}

//
// discardOperands clears leftover expression results above any frame,
// reclaiming their temporaries.  Statement boundaries use this so an
// abandoned expression cannot leak slab blocks
//

func discardOperands() {

	ws := g.ws

	for ws.stacktop < ws.himem {
		switch int(ws.mem[ws.stacktop]) {
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
		default:
			return
		}
	}
}

//
// resetStack empties the stack entirely, for RUN / CLEAR / fatal
// unwinds back to the prompt
//

func resetStack() {

	ws := g.ws

	for ws.stacktop < ws.himem {
		switch int(ws.mem[ws.stacktop]) {
		case stkStrTemp:
			length := int(ws.load32(ws.stacktop + 1))
			body := int(ws.load32(ws.stacktop + 5))
			ws.freeString(body, length)
		case stkArray:
			releaseHandle(ws.load32(ws.stacktop + 1))
		}
		dropEntry()
	}
}
