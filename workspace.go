package main

import (
	"encoding/binary"
	"math"
)

//
// The workspace is the single contiguous byte region owning the
// program image, the variable heap (with the string slab), and the
// value stack.  All pointers into it are plain byte offsets:
//
//   [statics][page: magic][start: lines...][top: sentinel]
//   [lomem: heap, growing up ... vartop]
//   ... free ...
//   [stacktop: value stack, growing down ... himem]
//
// with page < start <= top < lomem <= vartop <= stacklimit <
// stacktop <= himem.  The 27 static integer slots sit below page so
// that editing and CLEAR never disturb them
//

type workspace struct {
	mem []byte

	page  int
	start int
	top   int

	lomem  int
	vartop int

	stacktop int
	himem    int

	//
	// String slab free lists.  Freed bodies are chained through
	// their first 4 bytes, binned by rounded size; oversize blocks
	// all land in the last bin and are first-fit scanned
	//

	freeBins [numFreeBins]int
}

const strAlign = 16
const numFreeBins = 33 // 16..512 by 16, plus the oversize bin
const sentinelSize = minLineLen + 1

func stacklimit(ws *workspace) int {

	return ws.stacktop - heapGuard
}

func newWorkspace(size int) *workspace {

	if size < minWorkSize {
		size = minWorkSize
	}

	ws := &workspace{mem: make([]byte, size)}

	ws.page = numStatics*staticSlotSize + 4
	ws.himem = size
	ws.stacktop = size

	binary.LittleEndian.PutUint32(ws.mem[ws.page:], pageMagic)
	ws.start = ws.page + 4

	writeSentinel(ws, ws.start)
	ws.top = ws.start

	resetHeap(ws)

	//
	// @% carries the traditional default print format word
	//

	ws.store64(staticSlotOff(0), 0x0000090A)

	return ws
}

//
// The end-of-program sentinel: line number 0xFF00, an empty source
// half, and a single END token as the executable half
//

func writeSentinel(ws *workspace, off int) {

	ws.store16(off, sentinelLineNo)
	ws.store16(off+2, sentinelSize)
	ws.store16(off+4, lineHdrSize+1)
	ws.mem[off+6] = tokNul
	ws.mem[off+7] = tokEND
	ws.mem[off+8] = tokNul
}

//
// Reset the variable heap to empty, directly above the program.
// Every symbol, string body and loaded temporary library dies here
//

func resetHeap(ws *workspace) {

	end := ws.top + int(ws.load16(ws.top+2))

	ws.lomem = (end + 7) &^ 7
	ws.vartop = ws.lomem

	for i := range ws.freeBins {
		ws.freeBins[i] = 0
	}
}

//
// Byte accessors.  Everything in the image is little-endian
//

func (ws *workspace) load16(off int) int {

	return int(binary.LittleEndian.Uint16(ws.mem[off:]))
}

func (ws *workspace) store16(off, val int) {

	binary.LittleEndian.PutUint16(ws.mem[off:], uint16(val))
}

func (ws *workspace) load32(off int) int32 {

	return int32(binary.LittleEndian.Uint32(ws.mem[off:]))
}

func (ws *workspace) store32(off int, val int32) {

	binary.LittleEndian.PutUint32(ws.mem[off:], uint32(val))
}

func (ws *workspace) load64(off int) int64 {

	return int64(binary.LittleEndian.Uint64(ws.mem[off:]))
}

func (ws *workspace) store64(off int, val int64) {

	binary.LittleEndian.PutUint64(ws.mem[off:], uint64(val))
}

func (ws *workspace) loadFloat(off int) float64 {

	return math.Float64frombits(binary.LittleEndian.Uint64(ws.mem[off:]))
}

func (ws *workspace) storeFloat(off int, val float64) {

	binary.LittleEndian.PutUint64(ws.mem[off:], math.Float64bits(val))
}

//
// Stored-line header accessors
//

func (ws *workspace) lineNumber(off int) int {

	return ws.load16(off)
}

func (ws *workspace) lineLength(off int) int {

	return ws.load16(off + 2)
}

func (ws *workspace) lineExecOff(off int) int {

	return ws.load16(off + 4)
}

func (ws *workspace) lineBytes(off int) []byte {

	return ws.mem[off : off+ws.lineLength(off)]
}

func (ws *workspace) atSentinel(off int) bool {

	return ws.lineNumber(off) == sentinelLineNo
}

//
// Static integer file
//

func staticSlotOff(idx int) int {

	return idx * staticSlotSize
}

//
// staticIndex maps "@%" to 0 and single-letter "A%".."Z%" to 1..26;
// anything else is not a static
//

func staticIndex(name string) int {

	if len(name) != 2 || name[1] != '%' {
		return -1
	}

	if name[0] == '@' {
		return 0
	}

	up := name[0] &^ 0x20

	if up >= 'A' && up <= 'Z' {
		return int(up-'A') + 1
	}

	return -1
}

//
// Heap allocation.  Variable payloads and symbol slots come from
// here; they are only ever reclaimed wholesale by resetHeap
//

func (ws *workspace) allocHeap(n int) int {

	n = (n + 7) &^ 7

	if ws.vartop+n > stacklimit(ws) {
		raise(errNoRoom)
	}

	off := ws.vartop
	ws.vartop += n

	for i := off; i < off+n; i++ {
		ws.mem[i] = 0
	}

	return off
}

//
// String slab.  Bodies are rounded to the allocation granule; freed
// blocks go to a size-binned free list and are reused before the
// heap is grown
//

func roundStrSize(n int) int {

	if n < strAlign {
		return strAlign
	}

	return (n + strAlign - 1) &^ (strAlign - 1)
}

func strBin(size int) int {

	if size > 512 {
		return numFreeBins - 1
	}

	return size/strAlign - 1
}

func (ws *workspace) allocString(n int) int {

	if n > maxStringLen {
		raise(errStringLen)
	}

	size := roundStrSize(n)
	bin := strBin(size)

	if bin < numFreeBins-1 {
		if off := ws.freeBins[bin]; off != 0 {
			ws.freeBins[bin] = int(ws.load32(off))
			return off
		}
	} else {

		//
		// Oversize bin: first fit over the chain.  Block capacity is
		// kept in the 4 bytes after the chain link
		//

		prev := -1
		for off := ws.freeBins[bin]; off != 0; off = int(ws.load32(off)) {
			if int(ws.load32(off+4)) >= size {
				if prev < 0 {
					ws.freeBins[bin] = int(ws.load32(off))
				} else {
					ws.store32(prev, ws.load32(off))
				}
				return off
			}
			prev = off
		}
	}

	off := ws.allocHeap(size)

	if bin == numFreeBins-1 {
		// capacity survives in the block for the oversize free path
		ws.store32(off+4, int32(size))
	}

	return off
}

func (ws *workspace) freeString(off, n int) {

	if off == 0 || n == 0 {
		return
	}

	size := roundStrSize(n)
	bin := strBin(size)

	if bin == numFreeBins-1 {
		ws.store32(off+4, int32(size))
	}

	ws.store32(off, int32(ws.freeBins[bin]))
	ws.freeBins[bin] = off
}

func (ws *workspace) resizeString(off, oldLen, newLen int) int {

	if roundStrSize(oldLen) >= roundStrSize(newLen) && off != 0 {
		return off
	}

	newOff := ws.allocString(newLen)
	copy(ws.mem[newOff:newOff+oldLen], ws.mem[off:off+oldLen])
	ws.freeString(off, oldLen)

	return newOff
}

//
// Snapshot of the free list heads, for the leak accounting the
// string-temp tests rely on
//

func (ws *workspace) freeListSnapshot() [numFreeBins]int {

	return ws.freeBins
}

//
// String descriptor slots: 4 byte length then 4 byte body offset
//

func (ws *workspace) loadStrDesc(off int) (int, int) {

	return int(ws.load32(off)), int(ws.load32(off + 4))
}

func (ws *workspace) storeStrDesc(off, length, body int) {

	ws.store32(off, int32(length))
	ws.store32(off+4, int32(body))
}

func (ws *workspace) strDescValue(off int) string {

	length, body := ws.loadStrDesc(off)

	return string(ws.mem[body : body+length])
}

//
// Replace the string owned by a descriptor slot, reusing or freeing
// the old body as the allocator sees fit
//

func (ws *workspace) setStrDesc(off int, val string) {

	if len(val) > maxStringLen {
		raise(errStringLen)
	}

	oldLen, body := ws.loadStrDesc(off)

	if len(val) == 0 {
		ws.freeString(body, oldLen)
		ws.storeStrDesc(off, 0, 0)
		return
	}

	body = ws.resizeString(body, oldLen, len(val))
	copy(ws.mem[body:], val)
	ws.storeStrDesc(off, len(val), body)
}
