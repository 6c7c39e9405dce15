package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var tokenTablesOnce sync.Once

//
// Fresh interpreter state for one test.  The token tables are
// process-wide and build once; everything else is rebuilt
//

func testInit() {

	tokenTablesOnce.Do(initTokenTables)

	g.ws = newWorkspace(defaultWorkSize)
	g.lineIndex = nil
	g.symtab = nil
	g.descTable = nil
	g.descFree = nil
	g.symRefs = nil
	g.caseTables = nil
	g.libraries = nil
	g.installed = nil
	g.spaces = nil
	g.immLine = nil
	g.oldProgram = nil
	g.loadPath = nil
	g.progArgs = nil
	g.programFilename = ""
	g.recurseLimit = defaultRecurseLimit
	g.exiting = false
	g.exitCode = 0
	g.interrupted = false
	g.modified = false
	g.running = false
	g.printStats = false
	g.traceExec = false
	g.interactive = false
	g.shift64 = false

	initSymbols()
	rebuildLineIndex()

	r = run{}
	r.curLineNo = -1

	p.cursorPos = 0
	p.outputZone = 0
}

//
// Feed lines to the prompt loop the way a user would and capture
// everything the interpreter prints
//

func feedLines(t *testing.T, src string) string {

	t.Helper()
	testInit()

	var buf bytes.Buffer
	g.out = &buf

	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		call(func() {
			interpretLine(line)
		})
	}

	return buf.String()
}

func runProgram(t *testing.T, src string) string {

	t.Helper()

	return feedLines(t, src+"\nRUN\n")
}

func TestImmediateStatements(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT 123`, "123\n"},
		{`PRINT "def"`, "def\n"},
		{`PRINT -123`, "-123\n"},
		{`PRINT 12+34*56`, "1916\n"},
		{`PRINT (12+34)*56`, "2576\n"},
		{`PRINT 123=456`, "0\n"},
		{`PRINT 123=123`, "-1\n"},
		{`PRINT "abc"+"def"`, "abcdef\n"},
		{`PRINT 1234 DIV 56`, "22\n"},
		{`PRINT 1234 MOD 56`, "2\n"},
		{`PRINT 2^10`, "1024\n"},
		{`PRINT 1;2;3`, "123\n"},
		{`PRINT 1,2`, "1         2\n"},
		{`PRINT "a" ' "b"`, "a\nb\n"},
		{`PRINT ~255`, "FF\n"},
		{`PRINT 1.5+1.25`, "2.75\n"},
		{`PRINT LEN("hello")`, "5\n"},
		{`PRINT CHR$(65)`, "A\n"},
		{`PRINT ASC("A")`, "65\n"},
		{`PRINT STR$(42)+"!"`, "42!\n"},
		{`PRINT VAL("12.5abc")`, "12.5\n"},
		{`PRINT SGN(-9)`, "-1\n"},
		{`PRINT ABS(-4.5)`, "4.5\n"},
		{`PRINT INT(-2.5)`, "-3\n"},
		{`PRINT SQR(49)`, "7\n"},
		{`PRINT LEFT$("hello",2)`, "he\n"},
		{`PRINT RIGHT$("hello",3)`, "llo\n"},
		{`PRINT MID$("hello",2,3)`, "ell\n"},
		{`PRINT INSTR("hello","ll")`, "3\n"},
		{`PRINT STRING$(3,"ab")`, "ababab\n"},
		{`PRINT TRUE;FALSE`, "-10\n"},
		{`PRINT NOT 0`, "-1\n"},
		{`PRINT 6 AND 3`, "2\n"},
		{`PRINT 6 OR 3`, "7\n"},
		{`PRINT 6 EOR 3`, "5\n"},
		{`PRINT 1<<4`, "16\n"},
		{`PRINT -16>>2`, "-4\n"},
	}

	for _, c := range cases {
		got := feedLines(t, c.in)
		require.Equal(t, c.out, got, "input %q", c.in)
	}
}

func TestImmediateErrors(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT 1/0`, "Division by zero\n"},
		{`PRINT 1 DIV 0`, "Division by zero\n"},
		{`PRINT SQR(-1)`, "Square root of a negative number\n"},
		{`PRINT "a"-"b"`, "Number wanted\n"},
		{`XYZ%=1:PRINT XYZ$`, "Variable 'XYZ$' not found\n"},
	}

	for _, c := range cases {
		got := feedLines(t, c.in)
		require.Equal(t, c.out, got, "input %q", c.in)
	}
}

//
// Loop and subroutine keywords typed at the prompt find nothing on
// the value stack and must say so instead of falling over
//

func TestLoopKeywordsAtPrompt(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`UNTIL 1`, "Not in a REPEAT loop\n"},
		{`ENDWHILE`, "Not in a WHILE loop\n"},
		{`NEXT`, "Not in a FOR loop\n"},
		{`RETURN`, "Not in a subroutine\n"},
		{`ENDPROC`, "Not in a procedure\n"},
	}

	for _, c := range cases {
		got := feedLines(t, c.in)
		require.Equal(t, c.out, got, "input %q", c.in)
	}
}

//
// The end-to-end behaviours a released interpreter must show
//

func TestOverflowWidening(t *testing.T) {

	out := runProgram(t, `
		10 A%=2000000000
		20 B%=A%+A%
		30 PRINT B%
	`)

	require.Equal(t, "4000000000\n", out)
}

func TestArrayBroadcast(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(3)
		20 a()=1,2,3,4
		30 PRINT SUM(a()*2)
	`)

	require.Equal(t, "20\n", out)
}

func TestRenumberPreservesReferences(t *testing.T) {

	src := `
		5 GOTO 30
		10 PRINT "A"
		20 END
		30 PRINT "B":GOTO 20
		RENUMBER 100,10
		LIST
		RUN
	`

	want := "100 GOTO 130\n" +
		"110 PRINT \"A\"\n" +
		"120 END\n" +
		"130 PRINT \"B\":GOTO 120\n" +
		"B\n"

	require.Equal(t, want, feedLines(t, src))
}

func TestProcReturnParameter(t *testing.T) {

	out := runProgram(t, `
		10 A%=1:PROCdouble(A%)
		20 PRINT A%
		30 END
		40 DEF PROCdouble(RETURN x%)
		50 x%=x%*2
		60 ENDPROC
	`)

	require.Equal(t, "2\n", out)
}

func TestStringEscapeAndConcat(t *testing.T) {

	out := runProgram(t, `
		10 A$="he said ""hi"""
		20 PRINT LEN(A$);" ";A$+"!"
	`)

	require.Equal(t, "12 he said \"hi\"!\n", out)
}

//
// A run that stops with the cursor mid-line still leaves the output
// on a whole line, whether it fell off the end or hit END
//

func TestRunFlushesPartialLine(t *testing.T) {

	out := runProgram(t, `10 PRINT "half";`)
	require.Equal(t, "half\n", out)

	out = runProgram(t, `
		10 PRINT "x";
		20 END
	`)
	require.Equal(t, "x\n", out)

	out = runProgram(t, `10 PRINT "whole"`)
	require.Equal(t, "whole\n", out)
}

func TestControlFlow(t *testing.T) {

	cases := []struct {
		name, src, out string
	}{
		{
			"for next",
			`10 FOR I%=1 TO 5
			 20 PRINT I%;
			 30 NEXT`,
			"12345\n",
		},
		{
			"for step down",
			`10 FOR I%=10 TO 0 STEP -5:PRINT I%;:NEXT`,
			"1050\n",
		},
		{
			"for body runs once",
			`10 FOR I%=5 TO 1:PRINT "x";:NEXT`,
			"x\n",
		},
		{
			"repeat until",
			`10 N%=0
			 20 REPEAT
			 30 N%=N%+1
			 40 UNTIL N%=3
			 50 PRINT N%`,
			"3\n",
		},
		{
			"while endwhile",
			`10 N%=3
			 20 WHILE N%>0
			 30 PRINT N%;
			 40 N%=N%-1
			 50 ENDWHILE`,
			"321\n",
		},
		{
			"while false body skipped",
			`10 WHILE FALSE
			 20 PRINT "no"
			 30 ENDWHILE
			 40 PRINT "yes"`,
			"yes\n",
		},
		{
			"if then else",
			`10 IF 1=2 THEN PRINT "a" ELSE PRINT "b"`,
			"b\n",
		},
		{
			"gosub return",
			`10 GOSUB 40
			 20 PRINT "back"
			 30 END
			 40 PRINT "sub"
			 50 RETURN`,
			"sub\nback\n",
		},
		{
			"on goto",
			`10 N%=2
			 20 ON N% GOTO 40,50,60
			 40 PRINT "one":END
			 50 PRINT "two":END
			 60 PRINT "three":END`,
			"two\n",
		},
		{
			"case when otherwise",
			`10 X%=2
			 20 CASE X% OF
			 30 WHEN 1: PRINT "one"
			 40 WHEN 2,3: PRINT "two or three"
			 50 OTHERWISE: PRINT "many"
			 60 ENDCASE
			 70 PRINT "after"`,
			"two or three\nafter\n",
		},
		{
			"case otherwise",
			`10 X$="z"
			 20 CASE X$ OF
			 30 WHEN "a": PRINT "eh"
			 40 OTHERWISE: PRINT "other"
			 50 ENDCASE`,
			"other\n",
		},
		{
			"fn result",
			`10 PRINT FNsq(7)
			 20 END
			 30 DEF FNsq(n)=n*n`,
			"49\n",
		},
		{
			"proc local",
			`10 X%=5:PROCp
			 20 PRINT X%
			 30 END
			 40 DEF PROCp
			 50 LOCAL X%
			 60 X%=99
			 70 ENDPROC`,
			"5\n",
		},
		{
			"read data restore",
			`10 READ A%,B$
			 20 PRINT A%;B$;
			 30 RESTORE
			 40 READ C%
			 50 PRINT C%
			 60 DATA 7,"x"`,
			"7x7\n",
		},
		{
			"error handler",
			`10 ON ERROR GOTO 50
			 20 ERROR 42,"boom"
			 30 PRINT "not reached"
			 40 END
			 50 PRINT ERR;REPORT$`,
			"42boom\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.out, runProgram(t, c.src))
		})
	}
}
