package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// Numeric promotion at the int32 boundary: the widest exact
// representation wins
//

func TestIntegerWidening(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT 2147483646+1`, "2147483647\n"},
		{`PRINT 2147483647+1`, "2147483648\n"},
		{`PRINT -2147483647-1`, "-2147483648\n"},
		{`PRINT 2000000000*2000000000`, "4000000000000000000\n"},
		{`PRINT 4000000000000000000+4000000000000000000`, "8000000000000000000\n"},
		{`PRINT 10^3`, "1000\n"},
		{`PRINT 10^19`, "1E19\n"},
		{`PRINT 7 DIV 2`, "3\n"},
		{`PRINT -7 MOD 3`, "-1\n"},
		{`PRINT 7/2`, "3.5\n"},
	}

	for _, c := range cases {
		require.Equal(t, c.out, feedLines(t, c.in), "input %q", c.in)
	}
}

func TestShiftSemantics(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT 1<<4`, "16\n"},
		{`PRINT &7FFFFFFF<<1`, "-2\n"},
		{`PRINT &80000000`, "2147483648\n"},
		{`PRINT -8>>1`, "-4\n"},
		{`PRINT -8>>>1`, "2147483644\n"},
		{`PRINT 1<<300`, "0\n"},
	}

	for _, c := range cases {
		require.Equal(t, c.out, feedLines(t, c.in), "input %q", c.in)
	}
}

//
// Comparisons bind tighter than AND/OR/EOR, so conditions read the
// way BASIC programmers write them; comparisons never chain
//

func TestRelationalCombination(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT 1=1 AND 2=2`, "-1\n"},
		{`PRINT 1=1 AND 2=3`, "0\n"},
		{`PRINT 0=1 OR 1=1`, "-1\n"},
		{`PRINT 1=1 EOR 1=0`, "-1\n"},
		{`PRINT 1<2 AND 3>=3 AND 4<>5`, "-1\n"},
		{`PRINT NOT 1=2`, "-1\n"},
		{`PRINT (1=1)=(2=2)`, "-1\n"},
		{`PRINT 1<2<3`, "Syntax error\n"},
		{`PRINT 1<<2>>1`, "Syntax error\n"},
	}

	for _, c := range cases {
		require.Equal(t, c.out, feedLines(t, c.in), "input %q", c.in)
	}
}

func TestConditionWithConnectives(t *testing.T) {

	out := runProgram(t, `
		10 A%=1
		20 IF A%=1 AND 2=2 THEN PRINT "Y" ELSE PRINT "N"
		30 IF A%=2 OR A%>5 THEN PRINT "Y" ELSE PRINT "N"
	`)

	require.Equal(t, "Y\nN\n", out)
}

func TestStringOperators(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT "abc"<"abd"`, "-1\n"},
		{`PRINT "abc"="abc"`, "-1\n"},
		{`PRINT "abc">"abd"`, "0\n"},
		{`PRINT "a"+"b"+"c"`, "abc\n"},
		{`PRINT LEN("")`, "0\n"},
		{`PRINT ASC("")`, "-1\n"},
		{`PRINT MID$("hello",99)`, "\n"},
	}

	for _, c := range cases {
		require.Equal(t, c.out, feedLines(t, c.in), "input %q", c.in)
	}
}

//
// No operand may survive a finished statement, and every string
// temp consumed must go back to the free lists
//

func TestStatementLeavesStackClean(t *testing.T) {

	out := feedLines(t, `A$="x"+"y":B$=A$+A$:PRINT B$`)
	require.Equal(t, "xyxy\n", out)

	require.Equal(t, g.ws.himem, g.ws.stacktop, "operand left on value stack")
}

func TestStringTempAccounting(t *testing.T) {

	testInit()
	g.out = io.Discard

	stmt := `PRINT LEFT$(A$+A$,3)+RIGHT$(A$,2)`

	call(func() {
		interpretLine(`A$="seed"`)
	})

	// warm up so the slab reaches its steady state, then every
	// further execution must reuse freed bodies exactly
	call(func() {
		interpretLine(stmt)
	})

	vartop := g.ws.vartop
	bins := g.ws.freeListSnapshot()

	for i := 0; i < 3; i++ {
		call(func() {
			interpretLine(stmt)
		})
	}

	assert.Equal(t, vartop, g.ws.vartop, "string heap grew")
	assert.Equal(t, bins, g.ws.freeListSnapshot(), "string temp leaked")
}

//
// Indirection: byte, word, double and long forms all address raw
// workspace memory reserved with the block form of DIM
//

func TestIndirection(t *testing.T) {

	out := runProgram(t, `
		10 DIM P% 32
		20 ?P%=65
		30 P%!4=&12345678
		40 P%|8=2.5
		50 $(P%+16)="str"
		60 PRINT ?P%;" ";P%!4;" ";P%|8;" ";$(P%+16)
	`)

	require.Equal(t, "65 305419896 2.5 str\n", out)
}

func TestDivZeroAndDomainErrors(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`PRINT 1 DIV 0`, "Division by zero\n"},
		{`PRINT 1 MOD 0`, "Division by zero\n"},
		{`PRINT 1.0/0.0`, "Division by zero\n"},
		{`PRINT 1/0`, "Division by zero\n"},
	}

	for _, c := range cases {
		require.Equal(t, c.out, feedLines(t, c.in), "input %q", c.in)
	}
}
