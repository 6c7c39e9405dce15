package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedLineNumbers() []int {

	ws := g.ws

	var nums []int
	for off := ws.start; off < ws.top; off += ws.lineLength(off) {
		nums = append(nums, ws.lineNumber(off))
	}

	return nums
}

func TestInsertKeepsOrder(t *testing.T) {

	testInit()

	editLine(30, `PRINT 3`)
	editLine(10, `PRINT 1`)
	editLine(20, `PRINT 2`)

	require.Equal(t, []int{10, 20, 30}, storedLineNumbers())
	require.NoError(t, validateProgram())
}

func TestReplaceAndDelete(t *testing.T) {

	testInit()

	editLine(10, `PRINT 1`)
	editLine(20, `PRINT 2`)
	editLine(10, `PRINT "replaced"`)

	require.Equal(t, []int{10, 20}, storedLineNumbers())
	require.Equal(t, `10 PRINT "replaced"`,
		detokenizeLine(g.ws.lineBytes(findLine(10))))

	// a bare line number deletes
	editLine(10, "")
	require.Equal(t, []int{20}, storedLineNumbers())

	// deleting a line that is not there is quietly ignored
	editLine(99, "")
	require.Equal(t, []int{20}, storedLineNumbers())
}

func TestLineNumberBounds(t *testing.T) {

	testInit()

	editLine(0xFEFF, `PRINT "top"`)
	require.Equal(t, []int{0xFEFF}, storedLineNumbers())

	err := catchError(func() {
		editLine(0xFF00, `PRINT "no"`)
	})

	require.NotNil(t, err)
	assert.Equal(t, errLineNoRange, err.code)
}

func catchError(f func()) (caught *runtimeErrorInfo) {

	defer func() {
		if pay := recover(); pay != nil {
			if re, ok := pay.(*runtimeErrorInfo); ok {
				caught = re
				return
			}
			panic(pay)
		}
	}()

	f()
	return nil
}

func TestRenumberIdempotent(t *testing.T) {

	testInit()

	editLine(5, `GOTO 30`)
	editLine(30, `GOTO 5`)

	renumberProgram(1, 1)
	once := append([]byte(nil), g.ws.mem[g.ws.start:g.ws.top]...)

	renumberProgram(1, 1)
	twice := g.ws.mem[g.ws.start : g.ws.top]

	require.Equal(t, once, []byte(twice))
	require.Equal(t, []int{1, 2}, storedLineNumbers())
	require.Equal(t, `1 GOTO 2`, detokenizeLine(g.ws.lineBytes(findLine(1))))
}

func TestClearRefsIdempotent(t *testing.T) {

	testInit()

	editLine(10, `A%=1:GOTO 20`)
	editLine(20, `PRINT A%`)

	clearAllRefs()
	once := append([]byte(nil), g.ws.mem[g.ws.start:g.ws.top]...)

	clearAllRefs()
	require.Equal(t, once, []byte(g.ws.mem[g.ws.start:g.ws.top]))
}

func TestNewAndOld(t *testing.T) {

	testInit()

	editLine(10, `PRINT "still here"`)
	newProgram()

	require.Empty(t, storedLineNumbers())

	oldProgram()
	require.Equal(t, []int{10}, storedLineNumbers())
	require.Equal(t, `10 PRINT "still here"`,
		detokenizeLine(g.ws.lineBytes(findLine(10))))
}

func TestSaveLoadRoundTrip(t *testing.T) {

	testInit()

	editLine(10, `PRINT "one"`)
	editLine(20, `GOTO 10`)

	name := filepath.Join(t.TempDir(), "prog.bas")
	saveProgram(name)

	text, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "10 PRINT \"one\"\n20 GOTO 10\n", string(text))

	newProgram()
	loadProgram(name)

	require.Equal(t, []int{10, 20}, storedLineNumbers())
	require.Equal(t, `20 GOTO 10`, detokenizeLine(g.ws.lineBytes(findLine(20))))
}

//
// A text file with any unnumbered line gets renumbered 1, 2, 3...
// in file order; a fully numbered file keeps its own numbers
//

func TestLoadUnnumberedText(t *testing.T) {

	testInit()

	loadTextLines([]string{
		`PRINT "a"`,
		`50 PRINT "b"`,
		`PRINT "c"`,
	})

	require.Equal(t, []int{1, 2, 3}, storedLineNumbers())
	require.Equal(t, `2 PRINT "b"`, detokenizeLine(g.ws.lineBytes(findLine(2))))

	testInit()

	loadTextLines([]string{
		`20 PRINT "x"`,
		`10 PRINT "y"`,
	})

	require.Equal(t, []int{10, 20}, storedLineNumbers())
}

func TestFindLine(t *testing.T) {

	testInit()

	editLine(10, `PRINT 1`)
	editLine(30, `PRINT 3`)

	require.GreaterOrEqual(t, findLine(10), g.ws.start)
	require.Equal(t, -1, findLine(20))

	at := findLineGE(20)
	require.Equal(t, 30, g.ws.lineNumber(at))
}
