package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

//
// All interpreter output funnels through printText so the PRINT
// cursor stays honest.  COUNT and the comma zones both read it
//

func printText(msg string) {

	io.WriteString(g.out, msg)

	if nl := strings.LastIndexByte(msg, '\n'); nl >= 0 {
		p.cursorPos = len(msg) - nl - 1
	} else {
		p.cursorPos += len(msg)
	}

	p.outputZone = p.cursorPos / zoneWidth
}

func myPrintf(f string, args ...any) {

	printText(fmt.Sprintf(f, args...))
}

//
// resetPrint squares up the column when a run finishes, so the
// prompt (or the error message) never lands mid-line
//

func resetPrint() {

	if p.cursorPos != 0 || p.outputZone != 0 {
		printText("\n")
	}
}

//
// Numbers print unpadded.  Floats get at most nine significant
// digits, an upper-case exponent marker and no redundant '+',
// which is what the classic ROM produced
//

func formatNumber(v value) string {

	if v.kind != kindFloat64 {
		return strconv.FormatInt(v.asInt64(), 10)
	}

	str := strconv.FormatFloat(v.f, 'g', 9, 64)

	if e := strings.IndexByte(str, 'e'); e >= 0 {
		mant := strings.TrimRight(str[:e], "0")
		mant = strings.TrimSuffix(mant, ".")
		exp := strings.TrimPrefix(str[e+1:], "+")
		str = mant + "E" + exp
	}

	return str
}

//
// Hexadecimal form, as selected by a '~' in a PRINT list or by
// STR$~.  Narrow values print in their natural width
//

func formatHex(v value) string {

	n := v.asInt64()

	if v.kind != kindInt64 && v.kind != kindFloat64 {
		return strings.ToUpper(strconv.FormatUint(uint64(uint32(n)), 16))
	}

	return strings.ToUpper(strconv.FormatUint(uint64(n), 16))
}

func printEnd(tok byte) bool {

	return tok == tokNul || tok == ':' || tok == tokXElse || tok == tokRElse
}

//
// PRINT.  Comma hops to the next output zone, semicolon abuts,
// apostrophe is a newline, TAB( and SPC position the cursor and a
// '~' switches the remaining numeric items to hexadecimal.  The
// trailing newline is suppressed when the list ends in ',' or ';'
//

func executePrint() {

	bump(1)

	hex := false
	newline := true

	for !printEnd(curTok()) {

		newline = true

		switch curTok() {

		case ',':
			bump(1)
			nextZone()
			newline = false
			continue

		case ';':
			bump(1)
			newline = false
			continue

		case '\'':
			bump(1)
			printText("\n")
			continue

		case '~':
			bump(1)
			hex = true
			continue

		case tokPrintPfx:
			printFunction(peekTok(1))
			continue
		}

		evalExpr()
		v := popValue()

		if v.kind == kindString {
			printText(strValue(v))
			releaseValue(v)
		} else if v.kind == kindArray {
			raise(errTypeNum)
		} else if hex {
			printText(formatHex(v))
		} else {
			printText(formatNumber(v))
		}
	}

	if newline {
		printText("\n")
	}
}

func nextZone() {

	if rem := p.cursorPos % zoneWidth; rem != 0 {
		printText(strings.Repeat(" ", zoneWidth-rem))
	}
}

//
// TAB(n) pads to column n, starting a fresh line if the cursor is
// already past it.  TAB(x,y) keeps only the column on a plain
// stream.  SPC n emits n spaces
//

func printFunction(sub byte) {

	bump(2)

	switch sub {

	case pfSPC:
		n := int(evalInt())
		if n > 0 {
			printText(strings.Repeat(" ", n))
		}

	case pfTAB:
		col := int(evalInt())

		if curTok() == ',' {
			bump(1)
			evalInt() // row ignored
			printText("\n")
		}

		expectByte(')', errMissingRParen)

		if col >= 0 {
			if p.cursorPos > col {
				printText("\n")
			}
			if p.cursorPos < col {
				printText(strings.Repeat(" ", col-p.cursorPos))
			}
		}

	default:
		raise(errSyntax)
	}
}

//
// INPUT.  A literal string in the list is a prompt; variables
// consume comma-separated fields from the typed line, asking again
// with a bare '?' when the line runs dry
//

func executeInput() {

	bump(1)

	var pending string
	havePending := false
	prompted := false

	for !printEnd(curTok()) {

		switch curTok() {

		case ',', ';':
			bump(1)
			continue

		case tokStringCon, tokQStringCon:
			evalFactor()
			v := popValue()
			printText(strValue(v))
			releaseValue(v)
			prompted = true
			continue
		}

		lv := getLvalue()

		if lv.mode == modeWholeArray {
			raise(errVarNum)
		}

		if !havePending {
			prompt := inputPrompt
			if prompted {
				prompt = ""
			}
			pending = readInputLine(prompt)
			havePending = true
			prompted = false
		}

		var field string
		field, pending, havePending = nextInputField(pending)

		if lv.kind == kindString {
			pushString(field)
			storeToLvalue(lv, popValue())
		} else {
			storeToLvalue(lv, valueOfNumber(valNumber(field)))
		}
	}

	p.cursorPos = 0
	p.outputZone = 0
}

//
// Fields split at commas; a quoted field keeps embedded commas and
// sheds its quotes
//

func nextInputField(line string) (string, string, bool) {

	line = strings.TrimLeft(line, " \t")

	if strings.HasPrefix(line, "\"") {
		if end := strings.Index(line[1:], "\""); end >= 0 {
			field := line[1 : end+1]
			rest := strings.TrimLeft(line[end+2:], " \t")
			rest = strings.TrimPrefix(rest, ",")
			return field, rest, rest != ""
		}
	}

	if comma := strings.IndexByte(line, ','); comma >= 0 {
		return strings.TrimRight(line[:comma], " \t"), line[comma+1:], true
	}

	return strings.TrimRight(line, " \t"), "", false
}

func valueOfNumber(f float64) value {

	if f == float64(int64(f)) && f >= -maxInt64AsFloat && f <= maxInt64AsFloat {
		n := int64(f)
		if n == int64(int32(n)) {
			return value{kind: kindInt32, i: n}
		}
		return value{kind: kindInt64, i: n}
	}

	return value{kind: kindFloat64, f: f}
}
