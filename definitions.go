package main

import (
	"bufio"
	"io"
	"time"

	"github.com/danswartzendruber/avl"
	"github.com/danswartzendruber/liner"
)

//
// Constants
//

const basFileSuffix = ".bas"

//
// Marker word at the very start of the program image.  A workspace
// whose page pointer does not address this magic has been corrupted
//

const pageMagic uint32 = 0xD7C1C7C5

//
// Line numbers run 0..0xFEFF.  The end-of-program sentinel line
// carries the impossible number 0xFF00 and a body of a single END
// token
//

const maxLineNo = 0xFEFF
const sentinelLineNo = 0xFF00

//
// A stored line is:
//   [lineno u16] [length u16] [exec offset u16]
//   [source bytes] [NUL] [exec bytes] [NUL]
// so the smallest possible line is the 6 byte header plus the two
// terminators, and the sentinel adds one END token to that
//

const lineHdrSize = 6
const minLineLen = lineHdrSize + 2
const maxLineLen = 1024

const maxStringLen = 65535
const maxDims = 5

const maxNameLen = 64

const defaultWorkSize = 512 * 1024
const minWorkSize = 16 * 1024

//
// The stack and the variable heap share the free space above the
// program; an allocation from either side keeps this many bytes of
// daylight between vartop and stacktop
//

const heapGuard = 512

const defaultRecurseLimit = 1024

const maxFileHandles = 16

const numStatics = 27 // @% plus A%..Z%
const staticSlotSize = 8

const zoneWidth = 10

const myPrompt = "> "
const inputPrompt = "? "

const loadPathEnv = "BASIC64PATH"
const recurseEnv = "BASICRECURSE"
const workSizeEnv = "BASICSIZE"

//
// Value kinds.  Scalar kinds double as array element kinds; the
// array bit is kept in symbol entry flags, not here
//

const (
	kindInt32 = iota
	kindUint8
	kindInt64
	kindFloat64
	kindString
	numScalarKinds
)

// kindArray tags whole-array operands on the value stack
const kindArray = numScalarKinds

//
// Symbol entry flag bits, or-ed with the kind
//

const (
	symArrayBit  = 1 << 4
	symReturnBit = 1 << 5
	symFnBit     = 1 << 6
	symProcBit   = 1 << 7
	symMarkerBit = 1 << 8
)

//
// Type definitions
//

type window struct {
	rows int
	cols int
}

//
// A position in executable code: which code space (main workspace,
// immediate line, or a library image), the offset of the line within
// that space, and the byte index of the cursor within the line
//

type textPos struct {
	space   int
	lineOff int
	pos     int
}

//
// Code space indices.  Libraries are assigned indices at load time
//

const (
	spaceMain = iota
	spaceImmediate
	spaceLibBase
)

type symEntry struct {
	name string
	hash uint32
	kind int
	next *symEntry

	//
	// Workspace offset of the payload slot: the scalar cell, the
	// string descriptor, or the 4 byte handle cell for arrays and
	// PROC/FN entries
	//

	off int

	owner *library
	desc  *arrayDesc
	def   *fnProcDef
}

type symbolTable struct {
	buckets []*symEntry
	mask    uint32
	count   int
}

type fnProcDef struct {
	name    string
	isFn    bool
	where   textPos // cursor just past the DEF PROC/FN name
	body    textPos // first statement after the parameter list
	params  []fnParam
	scanned bool // parameter list parsed (first invocation)
}

type fnParam struct {
	lv      lvalue    // where the parameter value lives
	entry   *symEntry // array parameters only
	byRef   bool      // RETURN parameter
	isArray bool
}

//
// CASE jump table, built the first time the CASE executes.  Each
// arm position is the statement just past its WHEN or OTHERWISE
// marker and offset slot
//

type caseArm struct {
	where     textPos
	otherwise bool
}

type caseTable struct {
	arms    []caseArm
	endcase textPos // the ENDCASE token itself
}

//
// Array descriptor.  The payload is one typed slice according to the
// element kind; the others stay nil.  Element order is row-major
//

type arrayDesc struct {
	kind     int
	dimcount int
	dimsize  [maxDims]int32
	arrsize  int32

	ints   []int32
	bytes  []uint8
	int64s []int64
	floats []float64
	strs   []string
}

//
// A loaded library.  LIBRARY places the image on the variable heap
// (dropped by CLEAR); INSTALL gives it a permanent private image.
// Either way the library may own a private symbol table populated
// from LIBRARY LOCAL and DIM statements seen at load time
//

type library struct {
	name    string
	space   int
	image   []byte
	perm    bool
	scanned bool // DEF entries registered in the symbol table

	locals []string     // names declared LIBRARY LOCAL, arrays with a "(" suffix
	priv   *symbolTable // their entries, built lazily per run
}

//
// One open file handle.  The lookahead byte supports EOF# without
// disturbing the stream
//

type fileHandle struct {
	name    string
	rd      *bufio.Reader
	wr      *bufio.Writer
	closer  io.Closer
	ahead   int // -1 none, -2 at EOF, else the byte
	canRead bool
}

//
// AVL index node mapping a line number to its workspace offset.
// The index is rebuilt after any edit, since edits shift offsets
//

type lineIndexNode struct {
	avl    avl.AvlNode
	lineNo int
	off    int
}

//
// Saved lvalue for RETURN parameters and LOCAL shadowing
//

type lvalue struct {
	kind int
	mode int
	off  int        // workspace offset (scalar slot / string desc / raw address)
	desc *arrayDesc // array element or whole array
	elem int32      // element index for array element mode
}

//
// Lvalue addressing modes
//

const (
	modeStatic = iota
	modeScalar
	modeStringDesc
	modeArrayElem
	modeWholeArray
	modeIndirect // raw workspace offset; kind gives the width
)

//
// Global variables
//

var buildTimestampStr string

//
// Persistent interpreter state
//

var g struct {
	ws        *workspace
	lineIndex *avl.AvlNode
	symtab    *symbolTable

	descTable []*arrayDesc
	descFree  []int

	symRefs []*symEntry // operand index -> entry, for array and PROC/FN tokens

	caseTables []*caseTable // operand index -> lazily built CASE jump table

	libraries []*library // temporary, newest first
	installed []*library // permanent, newest first
	spaces    []*library // space index - spaceLibBase -> library

	immLine []byte // tokenised immediate-mode line

	oldProgram []byte // rollback snapshot for OLD

	out io.Writer

	parserLiner *liner.State
	inputLiner  *liner.State
	stdin       *bufio.Reader
	interactive bool

	window window

	loadPath        []string
	progArgs        []string
	programFilename string

	workSize     int
	recurseLimit int
	shift64      bool
	quitAfter    bool

	loginTime time.Time

	fnprocCursor int // resume point for the DEF scan in findFnProc

	lastAdded int // offset hint for ascending-line insertion

	exiting     bool
	exitCode    int
	interrupted bool
	modified    bool
	running     bool
	printStats  bool
	traceExec   bool
}

//
// Non-persistent (per RUN) state
//

type run struct {
	cur       textPos
	line      []byte // bytes of the current line, header included
	execBase  int    // index of the first executable byte in line
	curLineNo int    // -1 in immediate mode

	depth int // PROC/FN recursion depth

	data textPos // READ cursor

	errMsg string
	errNo  int
	erl    int

	errHandler      textPos // ON ERROR jump target
	errHandlerSet   bool
	errHandlerLocal bool

	handles [maxFileHandles]*fileHandle
}

var r run

//
// Print cursor state
//

var p struct {
	cursorPos  int
	outputZone int
}

//
// Runtime statistics for the executing program
//

var s struct {
	elapsed       time.Time
	utime         int64
	stime         int64
	numStatements int64
}
