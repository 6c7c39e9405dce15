package main

import (
	"bytes"
	"compress/gzip"
	"io"
	"sort"
	"strings"
)

//
// Libraries.  A library is a tokenised program image of its own,
// outside the workspace, holding PROC and FN definitions.  LIBRARY
// loads one for the session, INSTALL keeps one across NEW and LOAD.
// Call resolution searches the main program first, then libraries
// newest first, so a later LIBRARY quietly shadows an earlier
// definition of the same name
//

const maxLibSize = 1 << 20

func loadLibrary(name string, perm bool) {

	data := readProgramFile(name)

	var image []byte

	switch identifyFormat(data) {
	case formatBinary:
		image = append([]byte(nil), data[4:]...)

	case formatGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			raise(errNoGzip, name)
		}
		text, err := io.ReadAll(zr)
		if err != nil {
			raise(errNoGzip, name)
		}
		image = buildLibraryImage(string(text))

	case formatAcorn:
		image = linesToImage(convertAcorn(data))

	case formatRussell:
		image = linesToImage(convertRussell(data))

	default:
		image = buildLibraryImage(string(data))
	}

	if len(image) > maxLibSize {
		raise(errLibSize)
	}

	lib := &library{
		name:  name,
		space: spaceLibBase + len(g.spaces),
		image: image,
		perm:  perm,
	}

	scanLibraryLocals(lib)

	g.spaces = append(g.spaces, lib)

	if perm {
		g.installed = append([]*library{lib}, g.installed...)
	} else {
		g.libraries = append([]*library{lib}, g.libraries...)
	}
}

func buildLibraryImage(text string) []byte {

	stripped := strings.TrimRight(text, "\n")

	lines := strings.Split(stripped, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#!") {
		lines = lines[1:]
	}

	return linesToImage(lines)
}

//
// linesToImage is the out-of-workspace sibling of loadTextLines:
// same numbering and duplicate rules, but the result is a private
// image with offsets relative to its own start
//

func linesToImage(text []string) []byte {

	lines := make([]numberedLine, 0, len(text))
	last := 0

	for seq, raw := range text {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		num, body := parseLineNumber(raw)
		if num < 0 {
			num = last + 10
		}
		last = num

		lines = append(lines, numberedLine{lineNo: num, seq: seq, text: body})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].lineNo < lines[j].lineNo
	})

	var image []byte

	for i, nl := range lines {
		if i+1 < len(lines) && lines[i+1].lineNo == nl.lineNo {
			continue
		}
		image = append(image, tokenizeFull(nl.lineNo, nl.text)...)
	}

	sentinel := make([]byte, sentinelSize)
	sentinel[0] = byte(sentinelLineNo & 0xFF)
	sentinel[1] = byte(sentinelLineNo >> 8)
	sentinel[2] = byte(sentinelSize)
	sentinel[4] = lineHdrSize + 1
	sentinel[7] = tokEND

	return append(image, sentinel...)
}

//
// LIBRARY LOCAL lines at the top of a library declare variables
// private to it.  References inside the library resolve against a
// private table first, so a library can keep state without
// trampling the program's names.  The scan stops at the first line
// that is not such a declaration
//

func scanLibraryLocals(lib *library) {

	for off := 0; ; off += operand16(lib.image, off+2) {

		if operand16(lib.image, off) == sentinelLineNo {
			return
		}

		line := lib.image[off : off+operand16(lib.image, off+2)]
		pos := operand16(line, 4)

		if line[pos] != tokLIBRARY || line[pos+1] != tokLOCAL {
			return
		}
		pos += 2

		for line[pos] == tokXVar {
			name := anchorName(line, int(operand32(line, pos+1)))
			pos += 5

			if line[pos] == '(' {
				name += "("
				pos++
				if line[pos] == ')' {
					pos++
				}
			}

			lib.locals = append(lib.locals, name)

			if line[pos] == ',' {
				pos++
			}
		}
	}
}

//
// The private table for the library whose code is executing, when
// it claims the given name
//

func libPrivateTable(name string) *symbolTable {

	if r.cur.space < spaceLibBase {
		return nil
	}

	lib := g.spaces[r.cur.space-spaceLibBase]
	if lib == nil {
		return nil
	}

	for _, local := range lib.locals {
		if local == name {
			if lib.priv == nil {
				lib.priv = newSymbolTable()
			}
			return lib.priv
		}
	}

	return nil
}

//
// Session libraries go away with the program; installed ones stay.
// Their space slots are left in place so that installed libraries
// keep their space numbers
//

func clearTempLibraries() {

	for _, lib := range g.libraries {
		g.spaces[lib.space-spaceLibBase] = nil
	}

	g.libraries = nil
}
