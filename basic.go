package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danswartzendruber/liner"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/term"
)

const version = "1.0"

func main() {

	defer cleanupLiners()

	programName := parseArgs(os.Args[1:])

	initEnv()

	initTokenTables()
	g.ws = newWorkspace(g.workSize)
	initSymbols()
	rebuildLineIndex()
	initLoadPath(os.Getenv(loadPathEnv))

	go sigHdlr()

	if programName != "" {
		runNamedProgram(programName)

		if g.quitAfter || !g.interactive {
			os.Exit(g.exitCode)
		}
	}

	if g.interactive {
		printVersionInfo()
	}

	repl()

	os.Exit(g.exitCode)
}

//
// Options first, then an optional program name, then anything after
// '--' is handed to the program via ARGC / ARGV$
//

func parseArgs(args []string) string {

	g.recurseLimit = defaultRecurseLimit
	g.workSize = defaultWorkSize

	if env := os.Getenv(workSizeEnv); env != "" {
		g.workSize = parseSize(env)
	}

	if env := os.Getenv(recurseEnv); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			g.recurseLimit = n
		}
	}

	programName := ""

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {

		case "-size":
			i++
			if i >= len(args) {
				usage()
			}
			g.workSize = parseSize(args[i])

		case "-path":
			i++
			if i >= len(args) {
				usage()
			}
			initLoadPath(args[i])

		case "-quit":
			g.quitAfter = true

		case "-64":
			g.shift64 = true

		case "-stats":
			g.printStats = true

		case "--":
			g.progArgs = args[i+1:]
			return programName

		default:
			if strings.HasPrefix(arg, "-") || programName != "" {
				usage()
			}
			programName = arg
		}
	}

	return programName
}

//
// Sizes take an optional K or M suffix.  Anything unparseable, or
// too small to hold the heap plus a stack, is refused up front
//

func parseSize(text string) int {

	mult := 1

	switch {
	case strings.HasSuffix(text, "K"), strings.HasSuffix(text, "k"):
		mult = 1024
		text = text[:len(text)-1]
	case strings.HasSuffix(text, "M"), strings.HasSuffix(text, "m"):
		mult = 1024 * 1024
		text = text[:len(text)-1]
	}

	n, err := strconv.Atoi(text)
	if err != nil || n*mult < minWorkSize {
		usage()
	}

	return n * mult
}

func usage() {

	fmt.Fprintf(os.Stderr,
		"Usage: basic64 [-size N[K|M]] [-path dirs] [-quit] [-64] [-stats] [program] [-- args]\n")
	os.Exit(2)
}

//
// Liner wants a real terminal.  When stdin is a pipe (a test, or a
// program pushed through us) we fall back to plain buffered reads
//

func initEnv() {

	g.out = os.Stdout
	g.stdin = bufio.NewReader(os.Stdin)
	g.loginTime = time.Now()

	g.interactive = term.IsTerminal(0) && term.IsTerminal(1)

	if !g.interactive {
		g.window = window{rows: 24, cols: 80}
		return
	}

	setupWindow()
	setupLiners()
}

func setupWindow() {

	cols, rows, err := term.GetSize(0)
	if err != nil {
		g.window = window{rows: 24, cols: 80}
		return
	}

	g.window = window{rows: rows, cols: cols}
}

//
// Two Liner instances: the parser one keeps a scrollback history,
// the INPUT one does not.  They restore terminal state on Close, so
// they must be torn down in LIFO order
//

func setupLiners() {

	g.parserLiner = setupLiner(false)
	g.inputLiner = setupLiner(true)
}

func setupLiner(allowCtrlC bool) *liner.State {

	l := liner.NewLiner()
	l.SetMultiLineMode(allowCtrlC)

	return l
}

func cleanupLiners() {

	cleanupLiner(&g.inputLiner)
	cleanupLiner(&g.parserLiner)
}

func cleanupLiner(linerState **liner.State) {

	if *linerState != nil {
		(*linerState).Close()
		*linerState = nil
	}
}

func printVersionInfo() {

	myPrintf("basic64 version %s %s\n", version, buildTimestampStr)
}

func sigHdlr() {

	ch := make(chan os.Signal, 1)

	signal.Ignore(syscall.SIGTSTP)

	signal.Notify(ch, syscall.SIGINT)
	signal.Notify(ch, syscall.SIGWINCH)

	for {
		switch <-ch {

		case syscall.SIGWINCH:
			setupWindow()

		case syscall.SIGINT:
			g.interrupted = true
		}
	}
}

//
// A program named on the command line is loaded and run before the
// prompt appears (or instead of it, with -quit)
//

func runNamedProgram(name string) {

	call(func() {
		loadProgram(name)
		startRun(0)
	})
}

//
// The prompt loop.  A line starting with a number edits the
// program; anything else is tokenised into the immediate buffer
// and executed on the spot
//

func repl() {

	for !g.exiting {
		g.running = false

		line, eof := promptLine()
		if eof {
			break
		}

		call(func() {
			interpretLine(line)
		})
	}
}

func promptLine() (string, bool) {

	if !g.interactive {
		text, err := g.stdin.ReadString('\n')
		if err == io.EOF && text == "" {
			return "", true
		}
		return strings.TrimRight(text, "\r\n"), false
	}

	return readLine(g.parserLiner, myPrompt, true)
}

func readLine(l *liner.State, prompt string, history bool) (string, bool) {

	text, err := l.Prompt(prompt)

	if err != nil {
		if err == io.EOF {
			return "", true
		}
		if err == liner.ErrPromptAborted {
			raise(errEscape)
		}
		fatalError("readLine: %v", err)
	}

	if history && text != "" {
		l.AppendHistory(text)
	}

	return text, false
}

//
// INPUT reads through here so it shares the liner / pipe fallback
//

func readInputLine(prompt string) string {

	if prompt != "" {
		printText(prompt)
	}

	if !g.interactive {
		text, err := g.stdin.ReadString('\n')
		if err != nil && text == "" {
			raise(errEscape)
		}
		text = strings.TrimRight(text, "\r\n")
		printText(text + "\n")
		return text
	}

	text, eof := readLine(g.inputLiner, "", false)
	if eof {
		raise(errEscape)
	}

	p.cursorPos = 0
	p.outputZone = 0

	return text
}

func interpretLine(text string) {

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if text[0] >= '0' && text[0] <= '9' {
		editNumberedLine(text)
		return
	}

	g.immLine = tokenizeFull(0, text)

	setLine(spaceImmediate, 0)
	runLoop(false)
}

func editNumberedLine(text string) {

	pos := 0
	lineNo := 0

	for pos < len(text) && text[pos] >= '0' && text[pos] <= '9' {
		lineNo = lineNo*10 + int(text[pos]-'0')
		if lineNo > maxLineNo {
			raise(errLineNoRange)
		}
		pos++
	}

	// one separator space belongs to the number, not the body
	if pos < len(text) && text[pos] == ' ' {
		pos++
	}

	editLine(lineNo, text[pos:])
}

//
// call shields the REPL from everything the interpreter throws
//

func call(f func()) {

	defer func() {
		if pay := recover(); pay != nil {
			decodePanic(pay)
		}
	}()

	f()
}

//
// Three payload types reach us: a BASIC-level error that no ON
// ERROR handler wanted, an interpreter bug, or the quiet crawlout
// that END and QUIT use.  A raw Go panic means a bug too, so it
// gets the full treatment
//

func decodePanic(e any) {

	switch e := e.(type) {

	case *crawloutException:
		// quiet return to the prompt

	case *runtimeErrorInfo:
		if e.line >= 0 {
			myPrintf("%s at line %d\n", e.msg, e.line)
		} else {
			myPrintf("%s\n", e.msg)
		}

	case *basicErrorInfo:
		myPrintf("internal error: %s (%s:%d)\n",
			e.msg, filepath.Base(e.file), e.line)
		debug.PrintStack()

	default:
		myPrintf("panic: %v\n", e)
		debug.PrintStack()
		g.exiting = true
		g.exitCode = 2
	}
}

//
// Post-RUN statistics, enabled with -stats.  The CPU numbers come
// from /proc the way the classic port did it
//

func printStatistics() {

	if !g.printStats {
		return
	}

	var mem runtime.MemStats

	elapsed := time.Since(s.elapsed)
	utime, stime := getCPUInfo()

	runtime.ReadMemStats(&mem)

	myPrintf("\nelapsed %s / user %ds / system %ds\n",
		elapsed.Round(time.Millisecond),
		utime-s.utime, stime-s.stime)
	myPrintf("%d statements, %dKB heap\n",
		s.numStatements, mem.HeapAlloc/1024)
}

func initClock() {

	s.elapsed = time.Now()
	s.utime, s.stime = getCPUInfo()
	s.numStatements = 0
}

func getCPUInfo() (int64, int64) {

	clktck, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clktck == 0 {
		return 0, 0
	}

	contents, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, 0
	}

	fields := strings.Fields(string(contents))
	if len(fields) < 15 {
		return 0, 0
	}

	utime, _ := strconv.ParseInt(fields[13], 10, 64)
	stime, _ := strconv.ParseInt(fields[14], 10, 64)

	return utime / clktck, stime / clktck
}
