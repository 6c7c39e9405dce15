package main

import (
	"strconv"
	"strings"
)

//
// Foreign tokenised programs.  Two classic on-disk layouts are
// recognised and converted to text, which then goes through our own
// tokeniser like anything typed in:
//
//   Acorn:    <CR> <hi> <lo> <len> <tokens...>   trailer <CR> <FF>
//   Russell:  <len> <lo> <hi> <tokens...> <CR>   trailer <00> <FF> <FF>
//
// Both use the same classic token assignments, expanded through the
// table below.  Keywords with no counterpart here still expand to
// their text; the line that uses them will earn its syntax error
// when it runs, which is as much as the original machine would have
// offered
//

var bbcTokens = [128]string{
	0x80 - 0x80: "AND", "DIV", "EOR", "MOD", "OR", "ERROR", "LINE", "OFF",
	0x88 - 0x80: "STEP", "SPC", "TAB(", "ELSE", "THEN", "", "OPENIN", "PTR",
	0x90 - 0x80: "PAGE", "TIME", "LOMEM", "HIMEM", "ABS", "ACS", "ADVAL", "ASC",
	0x98 - 0x80: "ASN", "ATN", "BGET", "COS", "COUNT", "DEG", "ERL", "ERR",
	0xA0 - 0x80: "EVAL", "EXP", "EXT", "FALSE", "FN", "GET", "INKEY", "INSTR(",
	0xA8 - 0x80: "INT", "LEN", "LN", "LOG", "NOT", "OPENUP", "OPENOUT", "PI",
	0xB0 - 0x80: "POINT(", "POS", "RAD", "RND", "SGN", "SIN", "SQR", "TAN",
	0xB8 - 0x80: "TO", "TRUE", "USR", "VAL", "VPOS", "CHR$", "GET$", "INKEY$",
	0xC0 - 0x80: "LEFT$(", "MID$(", "RIGHT$(", "STR$", "STRING$(", "EOF", "AUTO", "DELETE",
	0xC8 - 0x80: "LOAD", "LIST", "NEW", "OLD", "RENUMBER", "SAVE", "EDIT", "PTR",
	0xD0 - 0x80: "PAGE", "TIME", "LOMEM", "HIMEM", "SOUND", "BPUT", "CALL", "CHAIN",
	0xD8 - 0x80: "CLEAR", "CLOSE", "CLG", "CLS", "DATA", "DEF", "DIM", "DRAW",
	0xE0 - 0x80: "END", "ENDPROC", "ENVELOPE", "FOR", "GOSUB", "GOTO", "GCOL", "IF",
	0xE8 - 0x80: "INPUT", "LET", "LOCAL", "MODE", "MOVE", "NEXT", "ON", "VDU",
	0xF0 - 0x80: "PLOT", "PRINT", "PROC", "READ", "REM", "REPEAT", "REPORT", "RESTORE",
	0xF8 - 0x80: "RETURN", "RUN", "STOP", "COLOUR", "TRACE", "UNTIL", "WIDTH", "OSCLI",
}

const bbcLineRef = 0x8D

//
// Encoded line references are three bytes shuffled to dodge the CR
// and token ranges; this is the inverse shuffle
//

func unshuffleLineNo(a, b, c byte) int {

	hi := ((int(a)<<4 ^ int(c)) & 0xFF)
	lo := ((int(a)<<2 ^ int(b)) & 0xFF)

	return hi<<8 | lo
}

func isAcornFormat(data []byte) bool {

	return len(data) >= 2 && data[0] == 0x0D
}

func isRussellFormat(data []byte) bool {

	if len(data) < 4 {
		return false
	}

	//
	// First byte is the total length of the first line, CR
	// included; the file trailer is a zero length then FF FF
	//

	length := int(data[0])

	return length >= 5 && length <= len(data) && data[length-1] == 0x0D &&
		data[len(data)-2] == 0xFF && data[len(data)-1] == 0xFF
}

func convertAcorn(data []byte) []string {

	var out []string

	pos := 0

	for {
		if pos+2 > len(data) || data[pos] != 0x0D {
			raise(errCantRead, "tokenised program")
		}
		pos++

		if data[pos] == 0xFF {
			return out
		}

		if pos+3 > len(data) {
			raise(errCantRead, "tokenised program")
		}

		lineNo := int(data[pos])<<8 | int(data[pos+1])
		length := int(data[pos+2])

		if length < 4 || pos-1+length > len(data) {
			raise(errCantRead, "tokenised program")
		}

		body := data[pos+3 : pos-1+length]
		out = append(out, expandForeignLine(lineNo, body))

		pos += length - 1
	}
}

func convertRussell(data []byte) []string {

	var out []string

	pos := 0

	for {
		if pos >= len(data) {
			raise(errCantRead, "tokenised program")
		}

		length := int(data[pos])

		if length == 0 {
			return out
		}

		if length < 5 || pos+length > len(data) || data[pos+length-1] != 0x0D {
			raise(errCantRead, "tokenised program")
		}

		lineNo := int(data[pos+1]) | int(data[pos+2])<<8
		body := data[pos+3 : pos+length-1]

		out = append(out, expandForeignLine(lineNo, body))

		pos += length
	}
}

//
// Token bytes expand to keyword text with a blank on either side
// when the neighbouring characters could otherwise fuse with the
// keyword; quoted strings pass through untouched
//

func expandForeignLine(lineNo int, body []byte) string {

	var sb strings.Builder

	sb.WriteString(strconv.Itoa(lineNo))
	sb.WriteByte(' ')

	inString := false

	for pos := 0; pos < len(body); pos++ {

		ch := body[pos]

		if inString {
			sb.WriteByte(ch)
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			sb.WriteByte(ch)

		case ch == bbcLineRef:
			if pos+3 >= len(body) {
				raise(errCantRead, "tokenised program")
			}
			num := unshuffleLineNo(body[pos+1], body[pos+2], body[pos+3])
			pos += 3
			sb.WriteString(strconv.Itoa(num))

		case ch >= 0x80:
			writeKeyword(&sb, bbcTokens[ch-0x80], nextByte(body, pos+1))

		default:
			sb.WriteByte(ch)
		}
	}

	return sb.String()
}

func nextByte(body []byte, pos int) byte {

	if pos < len(body) {
		return body[pos]
	}

	return 0
}

func writeKeyword(sb *strings.Builder, text string, next byte) {

	if text == "" {
		return
	}

	cur := sb.String()

	if len(cur) > 0 {
		last := cur[len(cur)-1]
		if identChar(last) || last == '$' || last == '%' {
			sb.WriteByte(' ')
		}
	}

	sb.WriteString(text)

	tail := text[len(text)-1]
	if identChar(tail) && identChar(next) {
		sb.WriteByte(' ')
	}
}
