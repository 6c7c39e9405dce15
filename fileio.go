package main

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//
// Program files.  Three formats load: plain text, gzipped text, and
// the binary workspace image (identified by its magic word).  The
// two tokenised formats of other interpreters are also recognised
// and converted on the way in - see foreign.go.  SAVE always writes
// text, so anything we save loads anywhere
//

const (
	formatText = iota
	formatGzip
	formatBinary
	formatAcorn
	formatRussell
)

func identifyFormat(data []byte) int {

	switch {
	case len(data) >= 4 &&
		uint32(data[0])|uint32(data[1])<<8|uint32(data[2])<<16|uint32(data[3])<<24 == pageMagic:
		return formatBinary

	case len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B:
		return formatGzip

	case isAcornFormat(data):
		return formatAcorn

	case isRussellFormat(data):
		return formatRussell

	default:
		return formatText
	}
}

//
// The search path: the name as given, then each directory named in
// BASIC64PATH, each tried with and without the .bas suffix
//

func findProgramFile(name string) string {

	candidates := []string{name}
	if !strings.HasSuffix(name, basFileSuffix) {
		candidates = append(candidates, name+basFileSuffix)
	}

	for _, dir := range g.loadPath {
		candidates = append(candidates, filepath.Join(dir, name))
		if !strings.HasSuffix(name, basFileSuffix) {
			candidates = append(candidates, filepath.Join(dir, name+basFileSuffix))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}

	return ""
}

func readProgramFile(name string) []byte {

	path := findProgramFile(name)
	if path == "" {
		raise(errNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		raise(errCantRead, name)
	}

	return data
}

func loadProgram(name string) {

	data := readProgramFile(name)

	newProgram()
	g.oldProgram = nil

	installProgram(data, name)

	g.programFilename = name
	g.modified = false
}

//
// installProgram parses already-read bytes into the workspace; the
// foreign tests drive it directly
//

func installProgram(data []byte, name string) {

	switch identifyFormat(data) {
	case formatBinary:
		loadBinaryProgram(data)

	case formatGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			raise(errNoGzip, name)
		}
		text, err := io.ReadAll(zr)
		if err != nil {
			raise(errNoGzip, name)
		}
		loadTextProgram(text)

	case formatAcorn:
		loadTextLines(convertAcorn(data))

	case formatRussell:
		loadTextLines(convertRussell(data))

	default:
		loadTextProgram(data)
	}
}

//
// Text programs: split into lines, skip a leading shebang, peel the
// line numbers, then store in one ascending pass.  A file with any
// unnumbered line is renumbered 1, 2, 3... in file order; a
// duplicate number keeps its last occurrence, like retyping the
// line would
//

func loadTextProgram(data []byte) {

	text := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	if len(text) > 0 && strings.HasPrefix(text[0], "#!") {
		text = text[1:]
	}

	loadTextLines(text)
}

type numberedLine struct {
	lineNo int
	seq    int
	text   string
}

func loadTextLines(text []string) {

	lines := make([]numberedLine, 0, len(text))
	unnumbered := false

	for seq, raw := range text {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		num, body := parseLineNumber(raw)
		if num < 0 {
			unnumbered = true
		}

		lines = append(lines, numberedLine{lineNo: num, seq: seq, text: body})
	}

	if unnumbered {
		// one bare line and the file's own numbering no longer
		// means anything, so the whole program counts from 1
		for i := range lines {
			lines[i].lineNo = i + 1
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].lineNo < lines[j].lineNo
	})

	ws := g.ws

	for i, nl := range lines {
		if i+1 < len(lines) && lines[i+1].lineNo == nl.lineNo {
			continue // a later occurrence replaces this one
		}

		line := tokenizeFull(nl.lineNo, nl.text)

		if ws.top+len(line)+sentinelSize > stacklimit(ws) {
			raise(errNoRoom)
		}

		copy(ws.mem[ws.top:], line)
		ws.top += len(line)
	}

	writeSentinel(ws, ws.top)
	editInvalidate()
	g.modified = false
}

//
// Binary programs are the stored image verbatim: magic word, lines,
// sentinel.  Nothing inside is trusted until the structural check
// has been over all of it
//

func loadBinaryProgram(data []byte) {

	ws := g.ws

	image := data[4:]

	if ws.start+len(image) > stacklimit(ws) {
		raise(errNoRoom)
	}

	copy(ws.mem[ws.start:], image)

	//
	// Find the sentinel to place top, without trusting the line
	// lengths beyond the buffer
	//

	off := ws.start
	end := ws.start + len(image)

	for off+minLineLen <= end && !ws.atSentinel(off) {
		length := ws.lineLength(off)
		if length < minLineLen {
			break
		}
		off += length
	}

	if off+sentinelSize > end || !ws.atSentinel(off) {
		panicValidity("no sentinel line")
	}

	ws.top = off

	if err := validateProgram(); err != nil {
		panic(err)
	}

	editInvalidate()
	g.modified = false
}

func panicValidity(msg string) {

	panic(&runtimeErrorInfo{code: errBroken, msg: "bad program: " + msg, line: -1})
}

//
// SAVE.  Plain detokenised text, one line per stored line
//

func saveProgram(name string) {

	if !strings.Contains(filepath.Base(name), ".") {
		name += basFileSuffix
	}

	f, err := os.Create(name)
	if err != nil {
		raise(errNotCreated, name)
	}

	w := bufio.NewWriter(f)
	ws := g.ws

	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		if _, err := w.WriteString(detokenizeLine(ws.lineBytes(off)) + "\n"); err != nil {
			f.Close()
			raise(errWriteFail, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		raise(errWriteFail, err)
	}
	if err := f.Close(); err != nil {
		raise(errWriteFail, err)
	}

	g.programFilename = name
	g.modified = false
}

//
// The load path from BASIC64PATH, comma separated
//

func initLoadPath(env string) {

	for _, dir := range strings.Split(env, ",") {
		if dir != "" {
			g.loadPath = append(g.loadPath, dir)
		}
	}
}
