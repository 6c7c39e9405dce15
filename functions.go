package main

import (
	"bufio"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

//
// Builtin functions.  The evaluator lands here with the cursor just
// past the two-byte function token; the result goes on the value
// stack.  The keyword table spells the paren-carrying names with
// their "(", so those parse their arguments up to the closing ")"
//

func callBuiltin(sub int) {

	switch sub {

	case fnABS:
		v := factorNumeric()
		if v.kind == kindFloat64 {
			pushFloat(math.Abs(v.f))
		} else if v.i < 0 {
			pushIntResult(-v.i, v.kind == kindInt64)
		} else {
			pushIntResult(v.i, v.kind == kindInt64)
		}

	case fnARGC:
		pushInt32(int32(len(g.progArgs)))

	case fnARGVS:
		n := factorNumeric().asInt64()
		switch {
		case n == 0:
			pushString(g.programFilename)
		case n >= 1 && n <= int64(len(g.progArgs)):
			pushString(g.progArgs[n-1])
		default:
			raise(errRange)
		}

	case fnASC:
		s := factorString()
		if s == "" {
			pushInt32(-1)
		} else {
			pushInt32(int32(s[0]))
		}

	case fnBGET:
		h := fileFromHandle(int(factorNumeric().asInt64()), true)
		pushInt32(int32(readFileByte(h)))

	case fnCHRS:
		pushString(string(rune(uint8(factorNumeric().asInt64()))))

	case fnCOUNT:
		pushInt32(int32(p.cursorPos))

	case fnEOF:
		h := fileFromHandle(int(factorNumeric().asInt64()), true)
		if fileAtEof(h) {
			pushInt32(-1)
		} else {
			pushInt32(0)
		}

	case fnERL:
		pushInt32(int32(r.erl))

	case fnERR:
		pushInt32(int32(r.errNo))

	case fnGETS:
		pushString(readOneChar())

	case fnINSTR:
		fnInstr()

	case fnINT:
		v := factorNumeric()
		if v.kind == kindFloat64 {
			pushIntResult(floatToInt64(math.Floor(v.f)), true)
		} else {
			pushIntResult(v.i, v.kind == kindInt64)
		}

	case fnLEFTS:
		s := evalString()
		expectByte(',', errMissingComma)
		n := evalInt()
		expectByte(')', errMissingRParen)
		if n < 0 {
			n = 0
		}
		if n > int64(len(s)) {
			n = int64(len(s))
		}
		pushString(s[:n])

	case fnLEN:
		fnLen()

	case fnMIDS:
		fnMid()

	case fnOPENIN:
		openFile(false)

	case fnOPENOUT:
		openFile(true)

	case fnREPORTS:
		pushString(r.errMsg)

	case fnRIGHTS:
		s := evalString()
		expectByte(',', errMissingComma)
		n := evalInt()
		expectByte(')', errMissingRParen)
		if n < 0 {
			n = 0
		}
		if n > int64(len(s)) {
			n = int64(len(s))
		}
		pushString(s[len(s)-int(n):])

	case fnRND:
		fnRnd()

	case fnSGN:
		v := factorNumeric()
		switch {
		case v.kind == kindFloat64 && v.f > 0, v.kind != kindFloat64 && v.i > 0:
			pushInt32(1)
		case v.kind == kindFloat64 && v.f < 0, v.kind != kindFloat64 && v.i < 0:
			pushInt32(-1)
		default:
			pushInt32(0)
		}

	case fnSQR:
		f := factorNumeric().asFloat()
		if f < 0 {
			raise(errNegRoot)
		}
		pushFloat(math.Sqrt(f))

	case fnSTRS:
		fnStr()

	case fnSTRINGS:
		n := evalInt()
		expectByte(',', errMissingComma)
		s := evalString()
		expectByte(')', errMissingRParen)
		if n < 0 || int(n)*len(s) > maxStringLen {
			raise(errStringLen)
		}
		pushString(strings.Repeat(s, int(n)))

	case fnSUM:
		evalFactor()
		v := popValue()
		if v.kind != kindArray {
			raise(errVarArray)
		}
		sumArray(v.desc)

	case fnTIME:
		pushInt64(time.Since(g.loginTime).Milliseconds() / 10)

	case fnTIMES:
		pushString(time.Now().Format("Mon,02 Jan 2006.15:04:05"))

	case fnUSR:
		raise(errUnsupported)

	case fnVAL:
		pushFloatOrInt(valNumber(factorString()))

	default:
		raise(errBadToken, sub)
	}
}

//
// Argument helpers.  The classic unary functions bind to a factor,
// so LEN A$ and LEN(A$+B$) both parse
//

func factorNumeric() value {

	evalFactor()

	return popNumeric()
}

func factorString() string {

	evalFactor()

	v := popValue()
	if v.kind != kindString {
		raise(errTypeStr)
	}

	s := strValue(v)
	releaseValue(v)

	return s
}

func fnLen() {

	evalFactor()

	v := popValue()
	if v.kind != kindString {
		raise(errTypeStr)
	}

	releaseValue(v)
	pushInt32(int32(v.sLen))
}

//
// INSTR(a$, b$ [, start]) with the classic 1-based positions; an
// empty needle matches at the start position
//

func fnInstr() {

	hay := evalString()
	expectByte(',', errMissingComma)
	needle := evalString()

	start := 1
	if curTok() == ',' {
		bump(1)
		start = int(evalInt())
	}
	expectByte(')', errMissingRParen)

	if start < 1 {
		start = 1
	}
	if start > len(hay) {
		if needle == "" && start == len(hay)+1 {
			pushInt32(int32(start))
			return
		}
		pushInt32(0)
		return
	}

	idx := strings.Index(hay[start-1:], needle)
	if idx < 0 {
		pushInt32(0)
		return
	}

	pushInt32(int32(start + idx))
}

//
// MID$(a$, start [, count]), 1-based, count defaulting to the rest
//

func fnMid() {

	s := evalString()
	expectByte(',', errMissingComma)
	start := evalInt()

	count := int64(len(s))
	if curTok() == ',' {
		bump(1)
		count = evalInt()
	}
	expectByte(')', errMissingRParen)

	if start < 1 {
		start = 1
	}
	if start > int64(len(s)) || count <= 0 {
		pushString("")
		return
	}

	end := start - 1 + count
	if end > int64(len(s)) {
		end = int64(len(s))
	}

	pushString(s[start-1 : end])
}

//
// RND with the classic shape: bare RND is a random 32-bit integer;
// RND(n) for n>1 rolls 1..n, n=1 a float in [0,1), n=0 repeats the
// last RND(1), and negative n reseeds and returns n
//

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))
var lastRnd1 float64

func fnRnd() {

	if curTok() != '(' {
		pushInt32(int32(rng.Uint32()))
		return
	}

	bump(1)
	n := evalInt()
	expectByte(')', errMissingRParen)

	switch {
	case n < 0:
		rng = rand.New(rand.NewSource(n))
		pushIntResult(n, true)

	case n == 0:
		pushFloat(lastRnd1)

	case n == 1:
		lastRnd1 = rng.Float64()
		pushFloat(lastRnd1)

	default:
		pushIntResult(1+rng.Int63n(n), n > math.MaxInt32)
	}
}

//
// STR$ renders a number the way PRINT would; STR$~ renders it in
// hexadecimal
//

func fnStr() {

	hex := false
	if curTok() == '~' {
		bump(1)
		hex = true
	}

	v := factorNumeric()

	if hex {
		pushString(formatHex(v))
		return
	}

	pushString(formatNumber(v))
}

//
// VAL semantics: the longest leading numeric prefix, 0 when there
// is none.  Hex with a leading & is accepted
//

func valNumber(s string) float64 {

	text := strings.TrimLeft(s, " ")

	if strings.HasPrefix(text, "&") {
		end := 1
		for end < len(text) && isHexDigit(text[end]) {
			end++
		}
		n := int64(0)
		for _, ch := range []byte(text[1:end]) {
			n = n<<4 | int64(hexVal(ch))
		}
		return float64(n)
	}

	end := 0
	seenDigit := false

	if end < len(text) && (text[end] == '+' || text[end] == '-') {
		end++
	}
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
		seenDigit = true
	}
	if end < len(text) && text[end] == '.' {
		end++
		for end < len(text) && text[end] >= '0' && text[end] <= '9' {
			end++
			seenDigit = true
		}
	}
	if seenDigit && end < len(text) && (text[end] == 'E' || text[end] == 'e') {
		mark := end
		end++
		if end < len(text) && (text[end] == '+' || text[end] == '-') {
			end++
		}
		if end < len(text) && text[end] >= '0' && text[end] <= '9' {
			for end < len(text) && text[end] >= '0' && text[end] <= '9' {
				end++
			}
		} else {
			end = mark
		}
	}

	if !seenDigit {
		return 0
	}

	f, err := strconv.ParseFloat(text[:end], 64)
	if err != nil {
		return 0
	}

	return f
}

func hexVal(ch byte) int {

	switch {
	case ch <= '9':
		return int(ch - '0')
	case ch <= 'F':
		return int(ch-'A') + 10
	default:
		return int(ch-'a') + 10
	}
}

//
// A parsed VAL result stays integral when it can
//

func pushFloatOrInt(f float64) {

	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		pushIntResult(int64(f), false)
		return
	}

	pushFloat(f)
}

//
// File channels.  Handles are small 1-based integers into a fixed
// table; channel 0 in CLOSE# means every open file
//

func openFile(forWrite bool) {

	name := factorString()

	slot := -1
	for i, h := range r.handles {
		if h == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		raise(errTooManyFiles)
	}

	h, err := newFileHandle(name, forWrite)
	if err != nil {
		// the classic contract: OPENIN of a missing file yields 0
		pushInt32(0)
		return
	}

	r.handles[slot] = h
	pushInt32(int32(slot + 1))
}

func fileFromHandle(n int, needRead bool) *fileHandle {

	if n < 1 || n > len(r.handles) || r.handles[n-1] == nil {
		raise(errFileIo, "channel not open")
	}

	h := r.handles[n-1]

	if needRead && !h.canRead {
		raise(errFileIo, "channel not open for input")
	}

	return h
}

func readFileByte(h *fileHandle) int {

	if h.ahead == -2 {
		raise(errReadFail, "end of file")
	}

	if h.ahead >= 0 {
		b := h.ahead
		h.ahead = -1
		return b
	}

	b, err := h.rd.ReadByte()
	if err != nil {
		h.ahead = -2
		raise(errReadFail, "end of file")
	}

	return int(b)
}

func fileAtEof(h *fileHandle) bool {

	if h.ahead == -2 {
		return true
	}
	if h.ahead >= 0 {
		return false
	}

	b, err := h.rd.ReadByte()
	if err != nil {
		h.ahead = -2
		return true
	}

	h.ahead = int(b)
	return false
}

func writeFileByte(h *fileHandle, b byte) {

	if h.wr == nil {
		raise(errFileIo, "channel not open for output")
	}

	if err := h.wr.WriteByte(b); err != nil {
		raise(errWriteFail, err)
	}
}

func closeFile(n int) {

	h := fileFromHandle(n, false)
	r.handles[n-1] = nil

	if h.wr != nil {
		h.wr.Flush()
	}
	if h.closer != nil {
		h.closer.Close()
	}
}

func closeAllFiles() {

	for i, h := range r.handles {
		if h == nil {
			continue
		}
		r.handles[i] = nil
		if h.wr != nil {
			h.wr.Flush()
		}
		if h.closer != nil {
			h.closer.Close()
		}
	}
}

//
// BPUT#channel, value: a byte for a numeric value, the bytes plus a
// newline for a string, or without the newline when the statement
// ends with a semicolon
//

func executeBput() {

	bump(1)
	h := fileFromHandle(int(evalInt()), false)
	expectByte(',', errMissingComma)

	evalExpr()
	v := popValue()

	if v.kind == kindString {
		s := strValue(v)
		releaseValue(v)

		for i := 0; i < len(s); i++ {
			writeFileByte(h, s[i])
		}

		if curTok() == ';' {
			bump(1)
		} else {
			writeFileByte(h, '\n')
		}
		return
	}

	writeFileByte(h, byte(v.asInt64()))
}

func executeClose() {

	bump(1)

	n := int(evalInt())

	if n == 0 {
		closeAllFiles()
		return
	}

	closeFile(n)
}

//
// One keypress for GET$.  Interactive sessions read a single rune
// from the line stateful reader; redirected input just takes the
// next byte
//

func readOneChar() string {

	b, err := g.stdin.ReadByte()
	if err != nil {
		return ""
	}

	return string(rune(b))
}

//
// Star and OSCLI commands go to the host shell, output threaded
// through the interpreter's writer so redirection tests see it
//

func oscliCommand(cmd string) {

	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}

	out, err := exec.Command("sh", "-c", cmd).CombinedOutput()
	g.out.Write(out)

	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			raise(errFileIo, err)
		}
	}
}

func newFileHandle(name string, forWrite bool) (*fileHandle, error) {

	if forWrite {
		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		return &fileHandle{name: name, wr: bufio.NewWriter(f), closer: f, ahead: -1}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	return &fileHandle{name: name, rd: bufio.NewReader(f), closer: f,
		ahead: -1, canRead: true}, nil
}
