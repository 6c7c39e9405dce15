package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnshuffleLineNo(t *testing.T) {

	//
	// The encoder splits a 16-bit line number across three bytes,
	// xor-folded so none of them can look like a CR or a token.
	// Check the decoder against the published shuffle
	//

	shuffle := func(n int) (byte, byte, byte) {
		a := byte(((n>>8)&0xC0)>>2|(n&0xC0)>>6) ^ 0x54
		b := byte((int(a)<<2 ^ n) & 0xFF)
		c := byte((int(a)<<4 ^ n>>8) & 0xFF)

		return a, b, c
	}

	for _, n := range []int{0, 1, 10, 100, 255, 256, 1000, 32767, 0xFEFF} {
		a, b, c := shuffle(n)
		assert.Equal(t, n, unshuffleLineNo(a, b, c), "line %d", n)
	}
}

//
// An Acorn-format program: each line is CR, line number high byte,
// low byte, total length, tokens.  0xF1 is the classic PRINT token
//

func acornLine(lineNo int, tokens []byte) []byte {

	line := []byte{0x0D, byte(lineNo >> 8), byte(lineNo), byte(4 + len(tokens))}

	return append(line, tokens...)
}

func acornProgram(lines ...[]byte) []byte {

	var data []byte
	for _, line := range lines {
		data = append(data, line...)
	}

	return append(data, 0x0D, 0xFF)
}

func TestAcornImport(t *testing.T) {

	testInit()

	data := acornProgram(
		acornLine(10, []byte{0xF1, ' ', '"', 'H', 'I', '"'}),
	)

	require.Equal(t, formatAcorn, identifyFormat(data))

	installProgram(data, "hi")

	require.Equal(t, []int{10}, storedLineNumbers())
	require.Equal(t, `10 PRINT "HI"`,
		detokenizeLine(g.ws.lineBytes(findLine(10))))

	//
	// Re-saving as text yields exactly what a native program
	// would have produced
	//

	name := filepath.Join(t.TempDir(), "hi.bas")
	saveProgram(name)

	text, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "10 PRINT \"HI\"\n", string(text))
}

//
// Crunched source has no blanks, so the expander must put one
// around each keyword to stop the retokenised text fusing
//

func TestAcornCrunchedKeywords(t *testing.T) {

	testInit()

	// FORI%=1TO3:PRINTI%:NEXT crunched, 0xE3 FOR, 0xB8 TO, 0xED NEXT
	tokens := []byte{
		0xE3, 'I', '%', '=', '1', 0xB8, '3', ':',
		0xF1, 'I', '%', ':', 0xED,
	}

	installProgram(acornProgram(acornLine(10, tokens)), "crunch")

	require.Equal(t, []int{10}, storedLineNumbers())

	var buf bytes.Buffer
	g.out = &buf

	call(func() {
		startRun(0)
	})

	assert.Equal(t, "1\n2\n3\n", buf.String())
}

func TestRussellImport(t *testing.T) {

	testInit()

	//
	// Russell layout: length byte first, little-endian line
	// number, tokens, CR.  Trailer is a zero length then FF FF
	//

	tokens := []byte{0xF1, ' ', '"', 'O', 'K', '"'}
	line := append([]byte{byte(4 + len(tokens)), 20, 0}, tokens...)
	line = append(line, 0x0D)

	data := append(line, 0x00, 0xFF, 0xFF)

	require.Equal(t, formatRussell, identifyFormat(data))

	installProgram(data, "ok")

	require.Equal(t, []int{20}, storedLineNumbers())
	require.Equal(t, `20 PRINT "OK"`,
		detokenizeLine(g.ws.lineBytes(findLine(20))))
}

//
// A token with a line reference after GOTO: the three shuffled
// bytes follow an 0x8D marker
//

func TestAcornLineReference(t *testing.T) {

	testInit()

	ref := func(n int) []byte {
		a := byte(((n>>8)&0xC0)>>2|(n&0xC0)>>6) ^ 0x54
		b := byte((int(a)<<2 ^ n&0xFF) & 0xFF)
		c := byte((int(a)<<4 ^ n>>8) & 0xFF)
		return []byte{bbcLineRef, a, b, c}
	}

	data := acornProgram(
		acornLine(10, append([]byte{0xE5, ' '}, ref(30)...)), // GOTO 30
		acornLine(20, []byte{0xF1, '"', 'A', '"'}),
		acornLine(30, []byte{0xF1, '"', 'B', '"'}),
	)

	installProgram(data, "goto")

	require.Equal(t, `10 GOTO 30`,
		detokenizeLine(g.ws.lineBytes(findLine(10))))

	var buf bytes.Buffer
	g.out = &buf

	call(func() {
		startRun(0)
	})

	assert.Equal(t, "B\n", buf.String())
}
