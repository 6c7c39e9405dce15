package main

//
// Tokenising, pass 1: raw text to the source half of a stored line.
//
// The source half preserves the user's spelling - spacing, number
// literals and string bodies stay as typed - but keywords collapse
// to their token bytes, identifiers gain a tokXVar anchor so pass 2
// can find them, and decimal literals in line-number positions
// (after GOTO and friends) become 3-byte tokXLinenum references so
// RENUMBER can rewrite them
//

type tokenizer struct {
	src []byte
	pos int
	out []byte

	lineNoMode bool // next decimal literals are line references
	stmtStart  bool // at the start of a statement, where * commands live
}

//
// parseLineNumber peels a leading line number off an input line.
// Returns -1 when there is none
//

func parseLineNumber(text string) (int, string) {

	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}

	start := i
	num := 0

	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		num = num*10 + int(text[i]-'0')
		if num > maxLineNo {
			raise(errLineNoRange)
		}
		i++
	}

	if i == start {
		return -1, text[start:]
	}

	if i < len(text) && text[i] == ' ' {
		i++
	}

	return num, text[i:]
}

func tokenizeSource(text string) []byte {

	t := &tokenizer{src: []byte(text), stmtStart: true}

	for t.pos < len(t.src) {

		ch := t.src[t.pos]

		switch {
		case ch == ' ' || ch == '\t':
			t.emit(ch)
			t.pos++

		case ch == ':':
			t.emit(ch)
			t.pos++
			t.stmtStart = true
			t.lineNoMode = false

		case ch == '*' && t.stmtStart:
			t.emit(tokStar)
			t.pos++
			t.copyRest()

		case ch == '"':
			t.copyString()

		case ch >= '0' && ch <= '9':
			if t.lineNoMode {
				t.lineReference()
			} else {
				t.copyNumber()
			}
			t.stmtStart = false

		case ch == '.' && t.pos+1 < len(t.src) &&
			t.src[t.pos+1] >= '0' && t.src[t.pos+1] <= '9':
			t.copyNumber()
			t.stmtStart = false
			t.lineNoMode = false

		case ch == '&':
			t.copyHex()
			t.stmtStart = false
			t.lineNoMode = false

		case ch == '%' && t.pos+1 < len(t.src) &&
			(t.src[t.pos+1] == '0' || t.src[t.pos+1] == '1'):
			t.copyBinary()
			t.stmtStart = false
			t.lineNoMode = false

		case ch >= 'A' && ch <= 'Z':
			t.keywordOrIdent()

		case identStart(ch):
			t.identifier()
			t.stmtStart = false
			t.lineNoMode = false

		case ch == ',':
			// commas keep line-number mode alive for ON GOTO lists
			t.emit(ch)
			t.pos++

		default:
			t.operator()
			t.stmtStart = false
		}
	}

	return t.out
}

func (t *tokenizer) emit(bytes ...byte) {

	t.out = append(t.out, bytes...)
}

func (t *tokenizer) copyRest() {

	t.emit(t.src[t.pos:]...)
	t.pos = len(t.src)
}

//
// Quoted strings are copied verbatim, quotes included.  A doubled
// quote is part of the body.  An unterminated string is copied as
// it stands; pass 2 reports it
//

func (t *tokenizer) copyString() {

	t.emit('"')
	t.pos++

	for t.pos < len(t.src) {
		ch := t.src[t.pos]
		t.emit(ch)
		t.pos++

		if ch == '"' {
			if t.pos < len(t.src) && t.src[t.pos] == '"' {
				t.emit('"')
				t.pos++
				continue
			}
			break
		}
	}

	t.stmtStart = false
	t.lineNoMode = false
}

//
// Number literals stay textual in the source half.  We accept
// digits, one decimal point and one exponent group; anything beyond
// that is someone else's syntax error
//

func (t *tokenizer) copyNumber() {

	seenDot := false

	for t.pos < len(t.src) {
		ch := t.src[t.pos]

		if ch >= '0' && ch <= '9' {
			t.emit(ch)
			t.pos++
			continue
		}

		if ch == '.' && !seenDot {
			seenDot = true
			t.emit(ch)
			t.pos++
			continue
		}

		if ch == 'E' && t.pos+1 < len(t.src) {
			next := t.src[t.pos+1]
			if next >= '0' && next <= '9' || next == '+' || next == '-' {
				t.emit(ch)
				t.pos++
				t.emit(t.src[t.pos])
				t.pos++
				continue
			}
		}

		break
	}
}

func (t *tokenizer) copyHex() {

	t.emit('&')
	t.pos++

	for t.pos < len(t.src) && isHexDigit(t.src[t.pos]) {
		t.emit(t.src[t.pos])
		t.pos++
	}
}

func (t *tokenizer) copyBinary() {

	t.emit('%')
	t.pos++

	for t.pos < len(t.src) && (t.src[t.pos] == '0' || t.src[t.pos] == '1') {
		t.emit(t.src[t.pos])
		t.pos++
	}
}

func isHexDigit(ch byte) bool {

	return ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'F' ||
		ch >= 'a' && ch <= 'f'
}

//
// A decimal literal where a line number belongs becomes a 3-byte
// reference: the marker plus the number, low byte first
//

func (t *tokenizer) lineReference() {

	num := 0

	for t.pos < len(t.src) && t.src[t.pos] >= '0' && t.src[t.pos] <= '9' {
		num = num*10 + int(t.src[t.pos]-'0')
		if num > maxLineNo {
			raise(errLineNoRange)
		}
		t.pos++
	}

	t.emit(tokXLinenum, byte(num), byte(num>>8))
}

//
// An uppercase letter opens either a keyword or an identifier.
// The per-letter keyword lists are longest first, so an exact match
// and an abbreviated one both resolve to the longest candidate
//

func (t *tokenizer) keywordOrIdent() {

	if kw, end := t.matchKeyword(); kw != nil {
		t.emit(kw.tok...)
		t.pos = end

		t.lineNoMode = kw.lineNo
		t.stmtStart = false

		switch kw.rest {
		case restLine:
			t.copyRest()
		case restName:
			t.copyName()
		}
		return
	}

	t.identifier()
	t.stmtStart = false
	t.lineNoMode = false
}

func (t *tokenizer) matchKeyword() (*keyword, int) {

	for _, kw := range keywordsByLetter[t.src[t.pos]-'A'] {

		n := t.matchLen(kw.text)

		if n == len(kw.text) {
			end := t.pos + n
			if kw.cond && end < len(t.src) && identChar(t.src[end]) {
				continue
			}
			return kw, end
		}

		//
		// Abbreviation: a strict prefix followed by a dot
		//

		if n > 0 && t.pos+n < len(t.src) && t.src[t.pos+n] == '.' {
			return kw, t.pos + n + 1
		}
	}

	return nil, 0
}

func (t *tokenizer) matchLen(text string) int {

	n := 0
	for n < len(text) && t.pos+n < len(t.src) && t.src[t.pos+n] == text[n] {
		n++
	}

	return n
}

//
// Identifiers: the anchor marker, then the text with any kind
// suffix.  The int64 suffix is two percent signs; a single ampersand
// after the name is the byte suffix
//

func (t *tokenizer) identifier() {

	t.emit(tokXVar)

	for t.pos < len(t.src) && identChar(t.src[t.pos]) {
		t.emit(t.src[t.pos])
		t.pos++
	}

	if t.pos < len(t.src) {
		switch t.src[t.pos] {
		case '%':
			t.emit('%')
			t.pos++
			if t.pos < len(t.src) && t.src[t.pos] == '%' {
				t.emit('%')
				t.pos++
			}
		case '&', '#', '$':
			t.emit(t.src[t.pos])
			t.pos++
		}
	}
}

//
// The name after PROC or FN is copied without an anchor; the call
// marker in the executable half points at the keyword itself
//

func (t *tokenizer) copyName() {

	for t.pos < len(t.src) && identChar(t.src[t.pos]) {
		t.emit(t.src[t.pos])
		t.pos++
	}
}

//
// Everything else: multi-character operators collapse to their
// token byte, any other printable character passes through, and
// control characters are dropped
//

func (t *tokenizer) operator() {

	rest := t.src[t.pos:]

	ops := []struct {
		text string
		tok  byte
	}{
		{">>>", tokLsr},
		{">=", tokGE},
		{"<=", tokLE},
		{"<>", tokNE},
		{"<<", tokLsl},
		{">>", tokAsr},
		{"+=", tokPlusEq},
		{"-=", tokMinusEq},
		{"^=", tokPowEq},
	}

	for _, op := range ops {
		if len(rest) >= len(op.text) && string(rest[:len(op.text)]) == op.text {
			t.emit(op.tok)
			t.pos += len(op.text)
			t.lineNoMode = false
			return
		}
	}

	if rest[0] >= 0x20 && rest[0] <= 0x7E {
		t.emit(rest[0])
	}
	t.pos++

	if rest[0] != ' ' && rest[0] != ',' {
		t.lineNoMode = false
	}
}
