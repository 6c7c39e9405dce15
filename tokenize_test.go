package main

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// Text in, text out.  The source half preserves what the user
// typed, so the listing must match the input byte for byte
//

func TestDetokenizeRoundTrip(t *testing.T) {

	testInit()

	cases := []string{
		`10 PRINT "HI"`,
		`20 FOR I%=1 TO 10 STEP 2:PRINT I%:NEXT`,
		`30 IF A%>3 THEN PRINT "big" ELSE PRINT "small"`,
		`40 DEF PROCshow(x$):PRINT x$:ENDPROC`,
		`50 A$="quote "" inside"`,
		`60 GOTO 10`,
		`70 X=1.5*2E3`,
		`80 REM anything goes here, even PRINT`,
		`90 DATA 1,2,"three"`,
		`100 B%=&FF+%1010`,
		`110 ?&8000=65`,
	}

	for _, text := range cases {
		numText, body, _ := strings.Cut(text, " ")
		lineNo, err := strconv.Atoi(numText)
		require.NoError(t, err)

		line := tokenizeFull(lineNo, body)

		require.Equal(t, text, detokenizeLine(line), "line %q", text)
	}
}

//
// Keyword abbreviation: a '.' completes the longest keyword that
// matches the prefix
//

func TestKeywordAbbreviation(t *testing.T) {

	testInit()

	line := tokenizeFull(10, `PR."HI"`)

	assert.Equal(t, `10 PRINT"HI"`, detokenizeLine(line))
}

//
// Structural checks on the two halves of a stored line
//

func TestStoredLineLayout(t *testing.T) {

	testInit()

	line := tokenizeFull(12345, `PRINT "HI"`)

	require.Equal(t, 12345, operand16(line, 0))
	require.Equal(t, len(line), operand16(line, 2))

	exe := operand16(line, 4)
	require.Equal(t, byte(0), line[exe-1], "NUL after source half")
	require.Equal(t, byte(tokNul), line[len(line)-1], "NUL after executable half")

	require.Equal(t, byte(tokPRINT), line[exe])
}

func TestNumericConstantForms(t *testing.T) {

	testInit()

	cases := []struct {
		text string
		tok  byte
	}{
		{`X=0`, tokIntZero},
		{`X=1`, tokIntOne},
		{`X=200`, tokSmallInt},
		{`X=100000`, tokIntCon},
		{`X=10000000000`, tokInt64Con},
		{`X=0.0`, tokFloatZero},
		{`X=1.0`, tokFloatOne},
		{`X=2.5`, tokFloatCon},
	}

	for _, c := range cases {
		line := tokenizeFull(10, c.text)
		exe := operand16(line, 4)

		//
		// Skip the variable reference and the '=' to reach the
		// constant
		//

		pos := exe + 5
		require.Equal(t, byte('='), line[pos], "input %q", c.text)
		pos++

		assert.Equal(t, c.tok, line[pos], "input %q", c.text)
	}
}

//
// A line that will not parse still stores, with the executable
// half replaced by a BADLINE marker carrying the error code
//

func TestBadlineReplacement(t *testing.T) {

	testInit()

	line := tokenizeFull(10, `PRINT "unterminated`)
	exe := operand16(line, 4)

	require.Equal(t, byte(tokBadline), line[exe])
	assert.Equal(t, byte(errQuoteMissing), line[exe+1])
}

//
// Pass 2 is deterministic: rebuilding the executable half of an
// unchanged source half reproduces it exactly.  clearAllRefs
// depends on this to revert resolved references
//

func TestExecRebuildDeterministic(t *testing.T) {

	testInit()

	line := tokenizeFull(10, `IF A%>1 THEN PRINT "x" ELSE PRINT "y"`)

	exe := operand16(line, 4)
	src := line[lineHdrSize : exe-1]

	first := makeExecutable(src)
	second := makeExecutable(src)

	require.Equal(t, first, second)
	require.Equal(t, []byte(line[exe:len(line)-1]), first)
}

//
// Branch slots are zero straight out of the tokeniser; they only
// fill in when the statement first executes
//

func TestBranchSlotsStartZero(t *testing.T) {

	testInit()

	line := tokenizeFull(10, `IF 1 THEN PRINT "a" ELSE PRINT "b"`)
	exe := operand16(line, 4)

	require.Equal(t, byte(tokXIf), line[exe])
	assert.Equal(t, 0, operand16(line, exe+1))
}
