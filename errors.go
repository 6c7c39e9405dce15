package main

import (
	"fmt"
	"runtime"
	"strings"
)

//
// Error kinds.  Grouped the way the manual groups them; the numeric
// value doubles as the ERR code visible to ON ERROR handlers
//

const (
	errNone = iota

	// syntax / parse
	errSyntax
	errMissingRParen
	errMissingComma
	errBadHex
	errBadBin
	errQuoteMissing
	errLineLen
	errBadToken
	errBadExpr
	errLineNoRange

	// identifier lookup
	errVarMiss
	errProcMiss
	errFnMiss
	errArrayMiss
	errNoDims
	errDuplDim
	errDimRange
	errDimCount
	errBadIndex
	errNotOneDim

	// type mismatch
	errTypeNum
	errTypeStr
	errTypeArray
	errNumArray
	errIntArray
	errFpArray
	errMatArray
	errParmNum
	errParmStr
	errVarArray
	errVarNum

	// arithmetic
	errRange
	errDivZero
	errLogRange
	errNegRoot
	errArithmetic
	errStringLen

	// resource
	errNoRoom
	errStackFull
	errOpStack
	errLibSize

	// control flow
	errTooMany
	errNotEnuff
	errRenumber
	errEscape
	errNoGosub
	errNoFor
	errNoRepeat
	errNoWhile
	errNoProc
	errNoFn
	errNotWhenable
	errStopped
	errNoData
	errNoLine
	errUnsupported

	// I/O
	errNotFound
	errNoLib
	errFileIo
	errReadFail
	errWriteFail
	errCantRead
	errNotCreated
	errNoGzip
	errTooManyFiles

	// internal - always a bug
	errBroken
)

//
// Message skeletons.  A %v in the skeleton is filled from the
// arguments passed to raise
//

var errorText = map[int]string{
	errSyntax:        "Syntax error",
	errMissingRParen: "Missing )",
	errMissingComma:  "Missing ,",
	errBadHex:        "Bad hexadecimal constant",
	errBadBin:        "Bad binary constant",
	errQuoteMissing:  "Missing \"",
	errLineLen:       "Line too long",
	errBadToken:      "Bad token value %v",
	errBadExpr:       "Expression expected",
	errLineNoRange:   "Line number out of range",

	errVarMiss:   "Variable '%v' not found",
	errProcMiss:  "Procedure '%v' not found",
	errFnMiss:    "Function '%v' not found",
	errArrayMiss: "Array '%v' not found",
	errNoDims:    "Array '%v' has not been dimensioned",
	errDuplDim:   "Array '%v' already dimensioned",
	errDimRange:  "Dimension size out of range",
	errDimCount:  "Too many dimensions",
	errBadIndex:  "Subscript out of range",
	errNotOneDim: "Array is not one-dimensional",

	errTypeNum:   "Number wanted",
	errTypeStr:   "String wanted",
	errTypeArray: "Arrays have different shapes",
	errNumArray:  "Numeric array wanted",
	errIntArray:  "Integer array wanted",
	errFpArray:   "Floating point array wanted",
	errMatArray:  "Array shapes unsuitable for matrix multiply",
	errParmNum:   "Parameter %v is not a number",
	errParmStr:   "Parameter %v is not a string",
	errVarArray:  "Array wanted",
	errVarNum:    "Scalar wanted",

	errRange:      "Number out of range",
	errDivZero:    "Division by zero",
	errLogRange:   "Logarithm of a non-positive number",
	errNegRoot:    "Square root of a negative number",
	errArithmetic: "Arithmetic overflow",
	errStringLen:  "String too long",

	errNoRoom:    "No room",
	errStackFull: "Too much recursion",
	errOpStack:   "Expression too complex",
	errLibSize:   "Library too large",

	errTooMany:     "Too many parameters",
	errNotEnuff:    "Not enough parameters",
	errRenumber:    "Unable to renumber",
	errEscape:      "Escape",
	errNoGosub:     "Not in a subroutine",
	errNoFor:       "Not in a FOR loop",
	errNoRepeat:    "Not in a REPEAT loop",
	errNoWhile:     "Not in a WHILE loop",
	errNoProc:      "Not in a procedure",
	errNoFn:        "Not in a function",
	errNotWhenable: "WHEN or OTHERWISE expected",
	errStopped:     "Stopped",
	errNoData:      "Out of data",
	errNoLine:      "No such line",
	errUnsupported: "Unsupported feature",

	errNotFound:     "Cannot find '%v'",
	errNoLib:        "Cannot load library '%v'",
	errFileIo:       "File error: %v",
	errReadFail:     "Read failed: %v",
	errWriteFail:    "Write failed: %v",
	errCantRead:     "Cannot read '%v'",
	errNotCreated:   "Cannot create '%v'",
	errNoGzip:       "Bad gzip data in '%v'",
	errTooManyFiles: "Too many open files",

	errBroken: "Fatal interpreter error: %v",
}

//
// Panic payloads.  decodePanic in basic.go sorts these out at the
// REPL loop.  runtimeErrorInfo is a BASIC-level error that the error
// frames may field; basicErrorInfo is an interpreter bug; the
// crawlout exception aborts quietly to command level
//

type runtimeErrorInfo struct {
	code int
	msg  string
	line int // line number at raise time, -1 for immediate mode
}

type basicErrorInfo struct {
	msg  string
	file string
	line int
}

type crawloutException struct {
	continuable bool
}

func (e *runtimeErrorInfo) Error() string {

	if e.line >= 0 {
		return fmt.Sprintf("%s at line %d", e.msg, e.line)
	}

	return e.msg
}

//
// Raise a BASIC error.  Control never returns: the panic is fielded
// by the nearest run loop, which consults the error frames on the
// value stack, or failing that by the REPL wrapper
//

func raise(code int, args ...any) {

	skel, ok := errorText[code]
	if !ok {
		fatalError("no message for error code %d", code)
	}

	msg := skel
	if strings.Contains(skel, "%v") {
		msg = fmt.Sprintf(skel, args...)
	}

	panic(&runtimeErrorInfo{code: code, msg: msg, line: r.curLineNo})
}

//
// Interpreter bugs.  We record the Go source position of the caller
// for whoever has to debug this
//

func fatalError(f string, args ...any) {

	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "?", 0
	}

	panic(&basicErrorInfo{msg: fmt.Sprintf(f, args...), file: file, line: line})
}

//
// A couple of handy assert style helpers
//

func basicAssert(chk bool, f string, args ...any) {

	if !chk {
		panic(&basicErrorInfo{msg: fmt.Sprintf(f, args...)})
	}
}

func exitToPrompt(msg string) {

	if msg != "" {
		myPrintf("%s\n", msg)
	}

	panic(&crawloutException{continuable: false})
}

//
// Check whether the signal handler has posted an interrupt.  Called
// at every statement boundary and at long-running loop heads
//

func checkEscape() {

	if g.interrupted {
		g.interrupted = false
		raise(errEscape)
	}
}
