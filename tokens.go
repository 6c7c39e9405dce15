package main

//
// Token byte assignments.
//
// Bytes 0x01..0x1F are markers and inline-constant introducers.
// Plain ASCII 0x20..0x7E passes through both halves of a line
// unchanged (identifier text, numbers, operators, string bodies).
// Keywords occupy 0x80 up, with three two-byte prefix groups.
// 0xE0..0xEB are the executable-only block forms (unresolved X form
// and resolved form pairs), and 0xF0..0xF8 the multi-character
// operators
//

const (
	tokNul = 0x00

	//
	// Binary numeric constants (executable half only)
	//

	tokIntZero   = 0x01
	tokIntOne    = 0x02
	tokSmallInt  = 0x03 // + 1 byte value
	tokIntCon    = 0x04 // + 4 byte LE int32
	tokInt64Con  = 0x05 // + 8 byte LE int64
	tokFloatZero = 0x06
	tokFloatOne  = 0x07
	tokFloatCon  = 0x08 // + 8 byte LE IEEE-754

	//
	// String constants: 2 byte offset (from line start) of the first
	// character in the source half, then a 2 byte raw length.  The Q
	// form contains "" escapes and is unescaped when pushed
	//

	tokStringCon  = 0x09
	tokQStringCon = 0x0A

	//
	// Variable references.  In the source half tokXVar is an anchor
	// that precedes the identifier text.  In the executable half the
	// unresolved form is tokXVar plus a 4 byte line-relative offset
	// back to that anchor; resolving rewrites the marker to one of
	// the typed forms below with a 4 byte workspace offset
	//

	tokXVar      = 0x0B
	tokIntVar    = 0x0C
	tokInt64Var  = 0x0D
	tokByteVar   = 0x0E
	tokFloatVar  = 0x0F
	tokStringVar = 0x10
	tokStaticVar = 0x11
	tokArrayVar  = 0x12
	tokIndVar    = 0x13 // scalar reference with an indirection operator following

	//
	// Line number references.  Both forms carry 4 operand bytes so
	// resolving never changes the line length: the X form keeps the
	// literal number in the low 16 bits (the source half stores only
	// those 2 bytes), the resolved form a workspace line offset
	//

	tokXLinenum = 0x14
	tokLinenum  = 0x15

	//
	// PROC/FN call: X form carries the line-relative offset of the
	// PROC or FN keyword in the source half; the resolved form the
	// workspace offset of the callee's symbol entry
	//

	tokXFnProc = 0x16
	tokFnProc  = 0x17

	tokStar    = 0x18 // rest of source half is a verbatim OS command
	tokBadline = 0x19 // + 1 byte error code; whole executable half
)

//
// Single-byte keywords
//

const (
	tokAND = 0x80 + iota
	tokBPUT
	tokCALL
	tokCASE
	tokCHAIN
	tokCLEAR
	tokCLOSE
	tokDATA
	tokDEF
	tokDIM
	tokDIV
	tokELSE
	tokEND
	tokENDCASE
	tokENDPROC
	tokENDWHILE
	tokEOR
	tokERROR
	tokFALSE
	tokFN
	tokFOR
	tokGOSUB
	tokGOTO
	tokIF
	tokINPUT
	tokINSTALL
	tokLET
	tokLIBRARY
	tokLOCAL
	tokMOD
	tokNEXT
	tokNOT
	tokOF
	tokOFF
	tokON
	tokOR
	tokOSCLI
	tokOTHERWISE
	tokPRINT
	tokPROC
	tokQUIT
	tokREAD
	tokREM
	tokREPEAT
	tokREPORT
	tokRESTORE
	tokRETURN
	tokRUN
	tokSTEP
	tokSTOP
	tokTHEN
	tokTO
	tokTRACE
	tokTRUE
	tokUNTIL
	tokWHEN
	tokWHILE
)

//
// Two-byte prefixes
//

const (
	tokFuncPfx  = 0xC6
	tokCmdPfx   = 0xC7
	tokPrintPfx = 0xC8
)

//
// Function subcodes (second byte after tokFuncPfx)
//

const (
	fnABS = 1 + iota
	fnARGC
	fnARGVS
	fnASC
	fnBGET
	fnCHRS
	fnCOUNT
	fnEOF
	fnERL
	fnERR
	fnGETS
	fnINSTR
	fnINT
	fnLEFTS
	fnLEN
	fnMIDS
	fnOPENIN
	fnOPENOUT
	fnREPORTS
	fnRIGHTS
	fnRND
	fnSGN
	fnSQR
	fnSTRS
	fnSTRINGS
	fnSUM
	fnTIME
	fnTIMES
	fnUSR
	fnVAL
)

//
// Command subcodes (second byte after tokCmdPfx)
//

const (
	cmdDELETE = 1 + iota
	cmdHELP
	cmdLIST
	cmdLOAD
	cmdNEW
	cmdOLD
	cmdRENUMBER
	cmdSAVE
)

//
// Print function subcodes (second byte after tokPrintPfx)
//

const (
	pfSPC = 1 + iota
	pfTAB
)

//
// Executable-only block forms.  The X form carries a zero offset
// slot filled in on first execution; a resolved form has the same
// width so filling never moves bytes
//

const (
	tokXIf        = 0xE0 // + 2 byte forward offset to the false branch
	tokRIf        = 0xE1
	tokXElse      = 0xE2 // + 2 byte forward offset past the statement
	tokRElse      = 0xE3
	tokXWhen      = 0xE4 // + 2 byte forward offset to the next WHEN/OTHERWISE
	tokRWhen      = 0xE5
	tokXOtherwise = 0xE6 // + 2 byte forward offset to ENDCASE
	tokROtherwise = 0xE7
	tokXWhile     = 0xE8 // + 2 byte forward offset past ENDWHILE
	tokRWhile     = 0xE9
	tokXCase      = 0xEA // + 4 byte jump table handle, built lazily
	tokRCase      = 0xEB
)

//
// Multi-character operators
//

const (
	tokGE      = 0xF0 // >=
	tokLE      = 0xF1 // <=
	tokNE      = 0xF2 // <>
	tokLsl     = 0xF3 // <<
	tokAsr     = 0xF4 // >>
	tokLsr     = 0xF5 // >>>
	tokPlusEq  = 0xF6 // +=
	tokMinusEq = 0xF7 // -=
	tokPowEq   = 0xF8 // ^=
)

//
// Keyword table entry.  'cond' keywords only tokenise when the next
// character cannot continue an identifier (so COUNTER stays a
// variable).  'lineNo' keywords flag the next decimal literals as
// line number references.  'rest' directs special handling of the
// bytes that follow the keyword
//

const (
	restNone = iota
	restLine // rest of line copied uninterpreted (REM, DATA)
	restName // next identifier copied uninterpreted (FN, PROC)
)

type keyword struct {
	text   string
	tok    []byte
	cond   bool
	lineNo bool
	rest   int
}

var keywordList = []keyword{
	{text: "ABS", tok: []byte{tokFuncPfx, fnABS}},
	{text: "AND", tok: []byte{tokAND}},
	{text: "ARGC", tok: []byte{tokFuncPfx, fnARGC}, cond: true},
	{text: "ARGV$", tok: []byte{tokFuncPfx, fnARGVS}},
	{text: "ASC", tok: []byte{tokFuncPfx, fnASC}},
	{text: "BGET#", tok: []byte{tokFuncPfx, fnBGET}},
	{text: "BPUT#", tok: []byte{tokBPUT}},
	{text: "CALL", tok: []byte{tokCALL}},
	{text: "CASE", tok: []byte{tokCASE}},
	{text: "CHAIN", tok: []byte{tokCHAIN}},
	{text: "CHR$", tok: []byte{tokFuncPfx, fnCHRS}},
	{text: "CLEAR", tok: []byte{tokCLEAR}},
	{text: "CLOSE#", tok: []byte{tokCLOSE}},
	{text: "COUNT", tok: []byte{tokFuncPfx, fnCOUNT}, cond: true},
	{text: "DATA", tok: []byte{tokDATA}, rest: restLine},
	{text: "DEF", tok: []byte{tokDEF}},
	{text: "DELETE", tok: []byte{tokCmdPfx, cmdDELETE}},
	{text: "DIM", tok: []byte{tokDIM}},
	{text: "DIV", tok: []byte{tokDIV}},
	{text: "ELSE", tok: []byte{tokELSE}, lineNo: true},
	{text: "END", tok: []byte{tokEND}, cond: true},
	{text: "ENDCASE", tok: []byte{tokENDCASE}},
	{text: "ENDPROC", tok: []byte{tokENDPROC}},
	{text: "ENDWHILE", tok: []byte{tokENDWHILE}},
	{text: "EOF#", tok: []byte{tokFuncPfx, fnEOF}},
	{text: "EOR", tok: []byte{tokEOR}},
	{text: "ERL", tok: []byte{tokFuncPfx, fnERL}, cond: true},
	{text: "ERR", tok: []byte{tokFuncPfx, fnERR}, cond: true},
	{text: "ERROR", tok: []byte{tokERROR}},
	{text: "FALSE", tok: []byte{tokFALSE}, cond: true},
	{text: "FN", tok: []byte{tokFN}, rest: restName},
	{text: "FOR", tok: []byte{tokFOR}},
	{text: "GET$", tok: []byte{tokFuncPfx, fnGETS}},
	{text: "GOSUB", tok: []byte{tokGOSUB}, lineNo: true},
	{text: "GOTO", tok: []byte{tokGOTO}, lineNo: true},
	{text: "HELP", tok: []byte{tokCmdPfx, cmdHELP}, cond: true},
	{text: "IF", tok: []byte{tokIF}},
	{text: "INPUT", tok: []byte{tokINPUT}},
	{text: "INSTALL", tok: []byte{tokINSTALL}},
	{text: "INSTR(", tok: []byte{tokFuncPfx, fnINSTR}},
	{text: "INT", tok: []byte{tokFuncPfx, fnINT}},
	{text: "LEFT$(", tok: []byte{tokFuncPfx, fnLEFTS}},
	{text: "LEN", tok: []byte{tokFuncPfx, fnLEN}},
	{text: "LET", tok: []byte{tokLET}},
	{text: "LIBRARY", tok: []byte{tokLIBRARY}},
	{text: "LIST", tok: []byte{tokCmdPfx, cmdLIST}, cond: true},
	{text: "LOAD", tok: []byte{tokCmdPfx, cmdLOAD}},
	{text: "LOCAL", tok: []byte{tokLOCAL}},
	{text: "MID$(", tok: []byte{tokFuncPfx, fnMIDS}},
	{text: "MOD", tok: []byte{tokMOD}},
	{text: "NEW", tok: []byte{tokCmdPfx, cmdNEW}, cond: true},
	{text: "NEXT", tok: []byte{tokNEXT}},
	{text: "NOT", tok: []byte{tokNOT}},
	{text: "OF", tok: []byte{tokOF}},
	{text: "OFF", tok: []byte{tokOFF}},
	{text: "OLD", tok: []byte{tokCmdPfx, cmdOLD}, cond: true},
	{text: "ON", tok: []byte{tokON}},
	{text: "OPENIN", tok: []byte{tokFuncPfx, fnOPENIN}},
	{text: "OPENOUT", tok: []byte{tokFuncPfx, fnOPENOUT}},
	{text: "OR", tok: []byte{tokOR}},
	{text: "OSCLI", tok: []byte{tokOSCLI}},
	{text: "OTHERWISE", tok: []byte{tokOTHERWISE}},
	{text: "PRINT", tok: []byte{tokPRINT}},
	{text: "PROC", tok: []byte{tokPROC}, rest: restName},
	{text: "QUIT", tok: []byte{tokQUIT}, cond: true},
	{text: "READ", tok: []byte{tokREAD}},
	{text: "REM", tok: []byte{tokREM}, rest: restLine},
	{text: "RENUMBER", tok: []byte{tokCmdPfx, cmdRENUMBER}, cond: true},
	{text: "REPEAT", tok: []byte{tokREPEAT}},
	{text: "REPORT$", tok: []byte{tokFuncPfx, fnREPORTS}},
	{text: "REPORT", tok: []byte{tokREPORT}, cond: true},
	{text: "RESTORE", tok: []byte{tokRESTORE}, lineNo: true},
	{text: "RETURN", tok: []byte{tokRETURN}},
	{text: "RIGHT$(", tok: []byte{tokFuncPfx, fnRIGHTS}},
	{text: "RND", tok: []byte{tokFuncPfx, fnRND}, cond: true},
	{text: "RUN", tok: []byte{tokRUN}, cond: true},
	{text: "SAVE", tok: []byte{tokCmdPfx, cmdSAVE}},
	{text: "SGN", tok: []byte{tokFuncPfx, fnSGN}},
	{text: "SPC", tok: []byte{tokPrintPfx, pfSPC}},
	{text: "SQR", tok: []byte{tokFuncPfx, fnSQR}},
	{text: "STEP", tok: []byte{tokSTEP}},
	{text: "STOP", tok: []byte{tokSTOP}, cond: true},
	{text: "STR$", tok: []byte{tokFuncPfx, fnSTRS}},
	{text: "STRING$(", tok: []byte{tokFuncPfx, fnSTRINGS}},
	{text: "SUM", tok: []byte{tokFuncPfx, fnSUM}, cond: true},
	{text: "TAB(", tok: []byte{tokPrintPfx, pfTAB}},
	{text: "THEN", tok: []byte{tokTHEN}, lineNo: true},
	{text: "TIME$", tok: []byte{tokFuncPfx, fnTIMES}},
	{text: "TIME", tok: []byte{tokFuncPfx, fnTIME}, cond: true},
	{text: "TO", tok: []byte{tokTO}},
	{text: "TRACE", tok: []byte{tokTRACE}},
	{text: "TRUE", tok: []byte{tokTRUE}, cond: true},
	{text: "UNTIL", tok: []byte{tokUNTIL}},
	{text: "USR", tok: []byte{tokFuncPfx, fnUSR}},
	{text: "VAL", tok: []byte{tokFuncPfx, fnVAL}},
	{text: "WHEN", tok: []byte{tokWHEN}},
	{text: "WHILE", tok: []byte{tokWHILE}},
}

//
// keywordsByLetter holds, for each starting letter, the keywords
// beginning with that letter sorted longest first, so the scanner
// can try the longest match and an abbreviation picks up the
// longest candidate ("P." is PRINT, not PROC)
//

var keywordsByLetter [26][]*keyword

//
// tokenText maps a single keyword byte, and the two-byte groups,
// back to their textual form for LIST and SAVE
//

var tokenText map[int]string

//
// legalSourceToken marks the bytes allowed in the source half of a
// stored line; the validity check walks every line against it
//

var legalSourceToken [256]bool

func initTokenTables() {

	tokenText = make(map[int]string)

	for i := range keywordList {
		kw := &keywordList[i]

		idx := kw.text[0] - 'A'
		keywordsByLetter[idx] = append(keywordsByLetter[idx], kw)

		if len(kw.tok) == 1 {
			tokenText[int(kw.tok[0])] = kw.text
		} else {
			tokenText[int(kw.tok[0])<<8|int(kw.tok[1])] = kw.text
		}

		for _, b := range kw.tok {
			legalSourceToken[b] = true
		}
	}

	//
	// Longest first within each letter
	//

	for i := range keywordsByLetter {
		kws := keywordsByLetter[i]
		for a := 1; a < len(kws); a++ {
			for b := a; b > 0 && len(kws[b].text) > len(kws[b-1].text); b-- {
				kws[b], kws[b-1] = kws[b-1], kws[b]
			}
		}
	}

	for ch := 0x20; ch <= 0x7E; ch++ {
		legalSourceToken[ch] = true
	}

	legalSourceToken[tokXVar] = true
	legalSourceToken[tokXLinenum] = true
	legalSourceToken[tokStar] = true

	for _, op := range []byte{tokGE, tokLE, tokNE, tokLsl, tokAsr, tokLsr,
		tokPlusEq, tokMinusEq, tokPowEq} {
		legalSourceToken[op] = true
	}

	tokenText[tokGE] = ">="
	tokenText[tokLE] = "<="
	tokenText[tokNE] = "<>"
	tokenText[tokLsl] = "<<"
	tokenText[tokAsr] = ">>"
	tokenText[tokLsr] = ">>>"
	tokenText[tokPlusEq] = "+="
	tokenText[tokMinusEq] = "-="
	tokenText[tokPowEq] = "^="
}

//
// Operand widths in the executable half.  A zero entry means the
// token stands alone.  Used by the structural walk in the validity
// check and by anything that needs to skip a token it does not
// interpret
//

var execOperandWidth = [256]int{
	tokSmallInt:   1,
	tokIntCon:     4,
	tokInt64Con:   8,
	tokFloatCon:   8,
	tokStringCon:  4,
	tokQStringCon: 4,
	tokXVar:       4,
	tokIntVar:     4,
	tokInt64Var:   4,
	tokByteVar:    4,
	tokFloatVar:   4,
	tokStringVar:  4,
	tokStaticVar:  4,
	tokArrayVar:   4,
	tokIndVar:     4,
	tokXLinenum:   4,
	tokLinenum:    4,
	tokXFnProc:    4,
	tokFnProc:     4,
	tokBadline:    1,
	tokXIf:        2,
	tokRIf:        2,
	tokXElse:      2,
	tokRElse:      2,
	tokXWhen:      2,
	tokRWhen:      2,
	tokXOtherwise: 2,
	tokROtherwise: 2,
	tokXWhile:     2,
	tokRWhile:     2,
	tokXCase:      4,
	tokRCase:      4,
}

//
// Identifier character classification.  Names are letters, digits,
// underscore and the backquote, with the type suffix characters
// handled by the scanner itself
//

func identStart(ch byte) bool {

	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' ||
		ch == '_' || ch == '`'
}

func identChar(ch byte) bool {

	return identStart(ch) || ch >= '0' && ch <= '9'
}

//
// Map a variable kind to its resolved executable token
//

func kindToVarToken(kind int) byte {

	switch kind {
	default:
		fatalError("bad kind %d", kind)
		panic(nil)

	case kindInt32:
		return tokIntVar

	case kindUint8:
		return tokByteVar

	case kindInt64:
		return tokInt64Var

	case kindFloat64:
		return tokFloatVar

	case kindString:
		return tokStringVar
	}
}

//
// Derive the variable kind from the name suffix.  The default type,
// with no suffix, is float
//

func kindFromName(name string) int {

	switch {
	case len(name) > 2 && name[len(name)-2] == '%' && name[len(name)-1] == '%':
		return kindInt64

	case name[len(name)-1] == '%':
		return kindInt32

	case name[len(name)-1] == '&':
		return kindUint8

	case name[len(name)-1] == '#':
		return kindFloat64

	case name[len(name)-1] == '$':
		return kindString

	default:
		return kindFloat64
	}
}
