package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLibrary(t *testing.T, name, text string) string {

	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	return path
}

func TestLibraryCall(t *testing.T) {

	lib := writeLibrary(t, "greet.bas",
		"DEF PROCgreet\nPRINT \"lib\"\nENDPROC\n")

	out := runProgram(t, `
		10 LIBRARY "`+lib+`"
		20 PROCgreet
	`)

	require.Equal(t, "lib\n", out)
}

//
// A later LIBRARY shadows an earlier definition of the same name,
// and the main program beats them both
//

func TestLibraryShadowing(t *testing.T) {

	first := writeLibrary(t, "first.bas",
		"DEF PROCwho\nPRINT \"first\"\nENDPROC\nDEF PROConly\nPRINT \"only\"\nENDPROC\n")
	second := writeLibrary(t, "second.bas",
		"DEF PROCwho\nPRINT \"second\"\nENDPROC\n")

	out := runProgram(t, `
		10 LIBRARY "`+first+`"
		20 LIBRARY "`+second+`"
		30 PROCwho
		40 PROConly
	`)

	require.Equal(t, "second\nonly\n", out)

	lib := writeLibrary(t, "shadowed.bas",
		"DEF PROCwho\nPRINT \"library\"\nENDPROC\n")

	out = runProgram(t, `
		10 LIBRARY "`+lib+`"
		20 PROCwho
		30 END
		40 DEF PROCwho
		50 PRINT "program"
		60 ENDPROC
	`)

	require.Equal(t, "program\n", out)
}

//
// LIBRARY LOCAL declarations keep a library's state out of the
// program's namespace: both sides can use the same name freely
//

func TestLibraryPrivateVariables(t *testing.T) {

	lib := writeLibrary(t, "counter.bas",
		"LIBRARY LOCAL n\n"+
			"DEF PROCbump\n"+
			"n=n+1\n"+
			"PRINT n\n"+
			"ENDPROC\n")

	out := runProgram(t, `
		10 LIBRARY "`+lib+`"
		20 n=99
		30 PROCbump
		40 PROCbump
		50 PRINT n
	`)

	require.Equal(t, "1\n2\n99\n", out)
}

//
// CLEAR forgets session libraries along with the variables, so a
// procedure that lived in one is gone afterwards
//

func TestClearDropsLibraries(t *testing.T) {

	lib := writeLibrary(t, "greet.bas",
		"DEF PROCgreet\nPRINT \"lib\"\nENDPROC\n")

	out := feedLines(t, `
		LIBRARY "`+lib+`"
		PROCgreet
		CLEAR
		PROCgreet
	`)

	require.Equal(t, "lib\nProcedure 'greet' not found\n", out)
}
